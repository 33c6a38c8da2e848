package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dhruvshah/sunbeam/internal/model"
)

type BackupLogStore struct {
	db *sql.DB
}

func NewBackupLogStore(db *sql.DB) *BackupLogStore {
	return &BackupLogStore{db: db}
}

// Create appends one audit entry. Entries are never updated or deleted.
func (s *BackupLogStore) Create(e *model.BackupLogEntry) (*model.BackupLogEntry, error) {
	now := time.Now().UTC()
	result, err := s.db.Exec(
		`INSERT INTO backup_logs (workspace_id, customer_id, customer_name, performed_by,
		 performed_by_username, action_type, storage_freed_bytes, documents_deleted, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.WorkspaceID, e.CustomerID, e.CustomerName, e.PerformedBy,
		e.PerformedByUsername, e.ActionType, e.StorageFreedBytes, e.DocumentsDeleted, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create backup log: %w", err)
	}
	id, _ := result.LastInsertId()
	out := *e
	out.ID = id
	out.CreatedAt = now
	return &out, nil
}

func (s *BackupLogStore) ListByWorkspace(workspaceID int64, limit int) ([]model.BackupLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, workspace_id, customer_id, customer_name, performed_by, performed_by_username,
		 action_type, storage_freed_bytes, documents_deleted, created_at
		 FROM backup_logs WHERE workspace_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		workspaceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list backup logs: %w", err)
	}
	defer rows.Close()

	var entries []model.BackupLogEntry
	for rows.Next() {
		var e model.BackupLogEntry
		if err := rows.Scan(&e.ID, &e.WorkspaceID, &e.CustomerID, &e.CustomerName, &e.PerformedBy,
			&e.PerformedByUsername, &e.ActionType, &e.StorageFreedBytes, &e.DocumentsDeleted, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan backup log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *BackupLogStore) TotalFreedByWorkspace(workspaceID int64) (int64, error) {
	var total sql.NullInt64
	err := s.db.QueryRow(
		`SELECT SUM(storage_freed_bytes) FROM backup_logs WHERE workspace_id = ? AND action_type = ?`,
		workspaceID, model.BackupActionCleanup,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total freed bytes: %w", err)
	}
	if !total.Valid {
		return 0, nil
	}
	return total.Int64, nil
}
