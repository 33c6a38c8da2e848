// Package backup sequences the two administrative flows at the end of a
// customer's life: downloading a full backup archive (which archives the
// customer) and reclaiming object storage afterwards (which irreversibly
// deletes the customer's documents).
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dhruvshah/sunbeam/internal/archive"
	"github.com/dhruvshah/sunbeam/internal/docref"
	"github.com/dhruvshah/sunbeam/internal/model"
	"github.com/dhruvshah/sunbeam/internal/storage"
	"github.com/dhruvshah/sunbeam/internal/store"
)

var (
	// ErrNotFound means the customer does not exist in the workspace.
	ErrNotFound = errors.New("customer not found")
	// ErrInvalidState means the customer's lifecycle status does not permit
	// the requested flow.
	ErrInvalidState = errors.New("invalid customer state")
)

// Actor identifies the operator recorded on audit log entries.
type Actor struct {
	ID       int64
	Username string
}

// Archive is a built backup ready to stream to the caller. Never persisted
// server-side.
type Archive struct {
	Filename string
	Data     []byte
}

// CleanupResult reports a storage reclamation run. A partial failure is a
// successful result carrying failure detail, not an error.
type CleanupResult struct {
	DocumentsDeleted  int      `json:"documents_deleted"`
	DocumentsFailed   int      `json:"documents_failed"`
	StorageFreedBytes int64    `json:"storage_freed_bytes"`
	FailedRefs        []string `json:"failed_refs,omitempty"`
}

// EventFunc is called after significant state changes so the caller can push
// progress to workspace dashboards.
type EventFunc func(workspaceID, customerID int64, action string, extra map[string]any)

// Service is the backup orchestrator.
type Service struct {
	customers  *store.CustomerStore
	steps      *store.StepDataStore
	logs       *store.BackupLogStore
	builder    *archive.Builder
	accountant *storage.Accountant
	notify     EventFunc
	logger     *slog.Logger
}

func NewService(cs *store.CustomerStore, ss *store.StepDataStore, ls *store.BackupLogStore, builder *archive.Builder, accountant *storage.Accountant, notify EventFunc, logger *slog.Logger) *Service {
	if notify == nil {
		notify = func(int64, int64, string, map[string]any) {}
	}
	return &Service{
		customers:  cs,
		steps:      ss,
		logs:       ls,
		builder:    builder,
		accountant: accountant,
		notify:     notify,
		logger:     logger,
	}
}

// DownloadBackup builds the full backup archive for a completed customer and
// transitions the customer to archived.
//
// The status flip happens before the archive build, as a single conditional
// update: two concurrent downloads cannot both win, and a failed build still
// leaves the customer correctly archived (the step rows it would have been
// built from are untouched, so cleanup can proceed). The flip is not rolled
// back on build failure; that asymmetry is deliberate.
func (s *Service) DownloadBackup(ctx context.Context, customerID, workspaceID int64, actor Actor) (*Archive, error) {
	c, err := s.customers.GetByID(customerID, workspaceID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}

	switch c.Status {
	case model.CustomerStatusCompleted:
		// proceed
	case model.CustomerStatusArchived:
		return nil, fmt.Errorf("%w: customer already archived", ErrInvalidState)
	default:
		return nil, fmt.Errorf("%w: customer must complete all steps before backup", ErrInvalidState)
	}

	steps, err := s.steps.ListByCustomer(workspaceID, customerID)
	if err != nil {
		return nil, err
	}

	archived, err := s.customers.MarkArchived(customerID, workspaceID)
	if err != nil {
		return nil, err
	}
	if !archived {
		// Lost a race with a concurrent download.
		return nil, fmt.Errorf("%w: customer already archived", ErrInvalidState)
	}
	c.Status = model.CustomerStatusArchived
	s.notify(workspaceID, customerID, "backup_started", nil)

	now := time.Now().UTC()
	data, err := s.builder.Build(ctx, c, steps, now, actor.Username)
	if err != nil {
		return nil, fmt.Errorf("build archive: %w", err)
	}

	s.writeLog(c, actor, model.BackupActionDownload, 0, 0)
	s.notify(workspaceID, customerID, "backup_completed", map[string]any{"size_bytes": len(data)})

	return &Archive{
		Filename: fmt.Sprintf("backup-%s-%s.zip", slug(c.Name), now.Format("2006-01-02")),
		Data:     data,
	}, nil
}

// CleanupStorage deletes every document referenced by an archived customer's
// step data and reports exactly what was reclaimed. Irreversible; the caller
// must have obtained operator confirmation before invoking it.
func (s *Service) CleanupStorage(ctx context.Context, customerID, workspaceID int64, actor Actor) (*CleanupResult, error) {
	c, err := s.customers.GetByID(customerID, workspaceID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	if c.Status != model.CustomerStatusArchived {
		return nil, fmt.Errorf("%w: download a backup before cleaning up storage", ErrInvalidState)
	}

	steps, err := s.steps.ListByCustomer(workspaceID, customerID)
	if err != nil {
		return nil, err
	}

	refs := docref.Strings(docref.Extract(steps))
	if len(refs) == 0 {
		s.writeLog(c, actor, model.BackupActionCleanup, 0, 0)
		return &CleanupResult{}, nil
	}

	res := s.accountant.DeleteAll(ctx, refs)
	s.writeLog(c, actor, model.BackupActionCleanup, res.BytesFreed, res.Deleted)
	s.notify(workspaceID, customerID, "cleanup_completed", map[string]any{
		"documents_deleted": res.Deleted,
		"documents_failed":  res.Failed,
		"bytes_freed":       res.BytesFreed,
	})

	return &CleanupResult{
		DocumentsDeleted:  res.Deleted,
		DocumentsFailed:   res.Failed,
		StorageFreedBytes: res.BytesFreed,
		FailedRefs:        res.FailedRefs,
	}, nil
}

// StorageUsage reports how many referenced documents exist for a customer and
// their total size, for the confirmation dialog shown before cleanup.
func (s *Service) StorageUsage(ctx context.Context, customerID, workspaceID int64) (*storage.Usage, error) {
	c, err := s.customers.GetByID(customerID, workspaceID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}

	steps, err := s.steps.ListByCustomer(workspaceID, customerID)
	if err != nil {
		return nil, err
	}
	u := s.accountant.Aggregate(ctx, docref.Strings(docref.Extract(steps)))
	return &u, nil
}

// writeLog appends an audit entry. A failure here is logged and swallowed:
// the primary operation already succeeded and must not be undone by
// bookkeeping.
func (s *Service) writeLog(c *model.Customer, actor Actor, action model.BackupAction, freed int64, deleted int) {
	_, err := s.logs.Create(&model.BackupLogEntry{
		WorkspaceID:         c.WorkspaceID,
		CustomerID:          c.ID,
		CustomerName:        c.Name,
		PerformedBy:         actor.ID,
		PerformedByUsername: actor.Username,
		ActionType:          action,
		StorageFreedBytes:   freed,
		DocumentsDeleted:    deleted,
	})
	if err != nil {
		s.logger.Error("write backup log", "customer_id", c.ID, "action", action, "error", err)
	}
}

func slug(name string) string {
	return strings.ToLower(strings.ReplaceAll(archive.SanitizeName(name), "_", "-"))
}
