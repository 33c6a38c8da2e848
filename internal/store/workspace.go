package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dhruvshah/sunbeam/internal/model"
)

type WorkspaceStore struct {
	db *sql.DB
}

func NewWorkspaceStore(db *sql.DB) *WorkspaceStore {
	return &WorkspaceStore{db: db}
}

// Create inserts a workspace with a generated join code.
func (s *WorkspaceStore) Create(name string) (*model.Workspace, error) {
	now := time.Now().UTC()
	code := strings.ToUpper(uuid.NewString()[:8])
	result, err := s.db.Exec(
		`INSERT INTO workspaces (name, code, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		name, code, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	id, _ := result.LastInsertId()
	return &model.Workspace{ID: id, Name: name, Code: code, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *WorkspaceStore) GetByID(id int64) (*model.Workspace, error) {
	w := &model.Workspace{}
	err := s.db.QueryRow(
		`SELECT id, name, code, created_at, updated_at FROM workspaces WHERE id = ?`, id,
	).Scan(&w.ID, &w.Name, &w.Code, &w.CreatedAt, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get workspace %d: %w", id, err)
	}
	return w, nil
}

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(workspaceID int64, username string, role model.UserRole) (*model.User, error) {
	now := time.Now().UTC()
	result, err := s.db.Exec(
		`INSERT INTO users (workspace_id, username, role, created_at) VALUES (?, ?, ?, ?)`,
		workspaceID, username, role, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	id, _ := result.LastInsertId()
	return &model.User{ID: id, WorkspaceID: workspaceID, Username: username, Role: role, CreatedAt: now}, nil
}

func (s *UserStore) GetByID(id, workspaceID int64) (*model.User, error) {
	u := &model.User{}
	err := s.db.QueryRow(
		`SELECT id, workspace_id, username, role, created_at FROM users WHERE id = ? AND workspace_id = ?`,
		id, workspaceID,
	).Scan(&u.ID, &u.WorkspaceID, &u.Username, &u.Role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}
