package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dhruvshah/sunbeam/internal/model"
)

type CustomerStore struct {
	db *sql.DB
}

func NewCustomerStore(db *sql.DB) *CustomerStore {
	return &CustomerStore{db: db}
}

const customerColumns = `id, workspace_id, name, phone, email, address, type, status,
	current_step, project_cost, loan_amount, subsidy_amount, notes, created_at, updated_at`

func scanCustomer(row interface{ Scan(...any) error }) (*model.Customer, error) {
	c := &model.Customer{}
	err := row.Scan(
		&c.ID, &c.WorkspaceID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.Type, &c.Status,
		&c.CurrentStep, &c.ProjectCost, &c.LoanAmount, &c.SubsidyAmount, &c.Notes,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CustomerStore) Create(workspaceID int64, name, phone, email, address string, ctype model.CustomerType, projectCost int64) (*model.Customer, error) {
	now := time.Now().UTC()
	result, err := s.db.Exec(
		`INSERT INTO customers (workspace_id, name, phone, email, address, type, status, current_step, project_cost, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`,
		workspaceID, name, phone, email, address, ctype, model.CustomerStatusActive, projectCost, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	id, _ := result.LastInsertId()
	return &model.Customer{
		ID:          id,
		WorkspaceID: workspaceID,
		Name:        name,
		Phone:       phone,
		Email:       email,
		Address:     address,
		Type:        ctype,
		Status:      model.CustomerStatusActive,
		CurrentStep: 1,
		ProjectCost: projectCost,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// GetByID loads a customer scoped to a workspace. Returns nil when the id is
// absent or belongs to another tenant.
func (s *CustomerStore) GetByID(id, workspaceID int64) (*model.Customer, error) {
	row := s.db.QueryRow(
		`SELECT `+customerColumns+` FROM customers WHERE id = ? AND workspace_id = ?`,
		id, workspaceID,
	)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get customer %d: %w", id, err)
	}
	return c, nil
}

func (s *CustomerStore) List(workspaceID int64, status model.CustomerStatus) ([]model.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE workspace_id = ?`
	args := []any{workspaceID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

func (s *CustomerStore) Update(c *model.Customer) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`UPDATE customers SET name = ?, phone = ?, email = ?, address = ?, type = ?,
		 project_cost = ?, loan_amount = ?, subsidy_amount = ?, notes = ?, updated_at = ?
		 WHERE id = ? AND workspace_id = ?`,
		c.Name, c.Phone, c.Email, c.Address, c.Type,
		c.ProjectCost, c.LoanAmount, c.SubsidyAmount, c.Notes, now,
		c.ID, c.WorkspaceID,
	)
	if err != nil {
		return fmt.Errorf("update customer %d: %w", c.ID, err)
	}
	c.UpdatedAt = now
	return nil
}

// AdvanceStep moves an active customer forward one pipeline step, marking it
// completed when the final step is passed.
func (s *CustomerStore) AdvanceStep(id, workspaceID int64) (*model.Customer, error) {
	c, err := s.GetByID(id, workspaceID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	if c.Status != model.CustomerStatusActive {
		return c, nil
	}

	now := time.Now().UTC()
	if c.CurrentStep >= model.TotalSteps {
		_, err = s.db.Exec(
			`UPDATE customers SET status = ?, updated_at = ? WHERE id = ? AND workspace_id = ?`,
			model.CustomerStatusCompleted, now, id, workspaceID,
		)
		if err != nil {
			return nil, fmt.Errorf("complete customer %d: %w", id, err)
		}
		c.Status = model.CustomerStatusCompleted
	} else {
		_, err = s.db.Exec(
			`UPDATE customers SET current_step = current_step + 1, updated_at = ? WHERE id = ? AND workspace_id = ?`,
			now, id, workspaceID,
		)
		if err != nil {
			return nil, fmt.Errorf("advance customer %d: %w", id, err)
		}
		c.CurrentStep++
	}
	c.UpdatedAt = now
	return c, nil
}

// MarkArchived flips a completed customer to archived as a single conditional
// update. Returns false if the customer was not in completed status, which is
// how a concurrent backup race loser finds out.
func (s *CustomerStore) MarkArchived(id, workspaceID int64) (bool, error) {
	now := time.Now().UTC()
	result, err := s.db.Exec(
		`UPDATE customers SET status = ?, updated_at = ?
		 WHERE id = ? AND workspace_id = ? AND status = ?`,
		model.CustomerStatusArchived, now, id, workspaceID, model.CustomerStatusCompleted,
	)
	if err != nil {
		return false, fmt.Errorf("archive customer %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("archive customer %d: %w", id, err)
	}
	return n == 1, nil
}
