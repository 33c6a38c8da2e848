package model

import (
	"encoding/json"
	"time"
)

// StepData holds the form payload for one pipeline step of one customer.
// Data is an arbitrarily nested JSON object; document references appear as
// string leaf values anywhere inside it. The backup core never writes Data.
type StepData struct {
	ID          int64           `json:"id"`
	WorkspaceID int64           `json:"workspace_id"`
	CustomerID  int64           `json:"customer_id"`
	StepNumber  int             `json:"step_number"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
