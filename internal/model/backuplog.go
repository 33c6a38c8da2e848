package model

import "time"

type BackupAction string

const (
	BackupActionDownload BackupAction = "download"
	BackupActionCleanup  BackupAction = "cleanup"
)

// BackupLogEntry is the append-only audit record written once per backup
// download or storage cleanup. Never mutated or deleted.
type BackupLogEntry struct {
	ID                  int64        `json:"id"`
	WorkspaceID         int64        `json:"workspace_id"`
	CustomerID          int64        `json:"customer_id"`
	CustomerName        string       `json:"customer_name"`
	PerformedBy         int64        `json:"performed_by"`
	PerformedByUsername string       `json:"performed_by_username"`
	ActionType          BackupAction `json:"action_type"`
	StorageFreedBytes   int64        `json:"storage_freed_bytes"`
	DocumentsDeleted    int          `json:"documents_deleted"`
	CreatedAt           time.Time    `json:"created_at"`
}
