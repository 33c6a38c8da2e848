package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dhruvshah/sunbeam/internal/model"
)

type StepDataStore struct {
	db *sql.DB
}

func NewStepDataStore(db *sql.DB) *StepDataStore {
	return &StepDataStore{db: db}
}

// Upsert writes the payload for one (customer, step) slot, replacing any
// previous payload for that step.
func (s *StepDataStore) Upsert(workspaceID, customerID int64, stepNumber int, data json.RawMessage) (*model.StepData, error) {
	if stepNumber < 1 || stepNumber > model.TotalSteps {
		return nil, fmt.Errorf("step number %d out of range", stepNumber)
	}
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("step %d payload is not valid JSON", stepNumber)
	}

	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO step_data (workspace_id, customer_id, step_number, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (customer_id, step_number)
		 DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		workspaceID, customerID, stepNumber, string(data), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert step %d for customer %d: %w", stepNumber, customerID, err)
	}
	return s.Get(workspaceID, customerID, stepNumber)
}

func (s *StepDataStore) Get(workspaceID, customerID int64, stepNumber int) (*model.StepData, error) {
	sd := &model.StepData{}
	var raw string
	err := s.db.QueryRow(
		`SELECT id, workspace_id, customer_id, step_number, data, created_at, updated_at
		 FROM step_data WHERE workspace_id = ? AND customer_id = ? AND step_number = ?`,
		workspaceID, customerID, stepNumber,
	).Scan(&sd.ID, &sd.WorkspaceID, &sd.CustomerID, &sd.StepNumber, &raw, &sd.CreatedAt, &sd.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get step %d for customer %d: %w", stepNumber, customerID, err)
	}
	sd.Data = json.RawMessage(raw)
	return sd, nil
}

// ListByCustomer returns all recorded steps for a customer in step order.
// Steps never filled in are simply absent.
func (s *StepDataStore) ListByCustomer(workspaceID, customerID int64) ([]model.StepData, error) {
	rows, err := s.db.Query(
		`SELECT id, workspace_id, customer_id, step_number, data, created_at, updated_at
		 FROM step_data WHERE workspace_id = ? AND customer_id = ? ORDER BY step_number`,
		workspaceID, customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list steps for customer %d: %w", customerID, err)
	}
	defer rows.Close()

	var steps []model.StepData
	for rows.Next() {
		var sd model.StepData
		var raw string
		if err := rows.Scan(&sd.ID, &sd.WorkspaceID, &sd.CustomerID, &sd.StepNumber, &raw, &sd.CreatedAt, &sd.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan step data: %w", err)
		}
		sd.Data = json.RawMessage(raw)
		steps = append(steps, sd)
	}
	return steps, rows.Err()
}
