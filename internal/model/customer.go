package model

import "time"

type CustomerType string

const (
	CustomerTypeFinance CustomerType = "finance"
	CustomerTypeCash    CustomerType = "cash"
)

type CustomerStatus string

// Customer lifecycle. Transitions only move forward: active -> completed ->
// archived. Archived is terminal.
const (
	CustomerStatusActive    CustomerStatus = "active"
	CustomerStatusCompleted CustomerStatus = "completed"
	CustomerStatusArchived  CustomerStatus = "archived"
)

// TotalSteps is the fixed length of the installation pipeline.
const TotalSteps = 16

// Customer is one solar-installation sales engagement.
type Customer struct {
	ID            int64          `json:"id"`
	WorkspaceID   int64          `json:"workspace_id"`
	Name          string         `json:"name"`
	Phone         string         `json:"phone"`
	Email         string         `json:"email,omitempty"`
	Address       string         `json:"address,omitempty"`
	Type          CustomerType   `json:"type"`
	Status        CustomerStatus `json:"status"`
	CurrentStep   int            `json:"current_step"`
	ProjectCost   int64          `json:"project_cost"`
	LoanAmount    int64          `json:"loan_amount"`
	SubsidyAmount int64          `json:"subsidy_amount"`
	Notes         string         `json:"notes,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
