package store

import (
	"testing"

	"github.com/dhruvshah/sunbeam/internal/database"
	"github.com/dhruvshah/sunbeam/internal/model"
)

func setupLogTestDB(t *testing.T) (*BackupLogStore, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	w, err := NewWorkspaceStore(db).Create("Surya Solar")
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	return NewBackupLogStore(db), w.ID
}

func TestBackupLogCreateAndList(t *testing.T) {
	ls, wID := setupLogTestDB(t)

	entry, err := ls.Create(&model.BackupLogEntry{
		WorkspaceID:         wID,
		CustomerID:          7,
		CustomerName:        "Ramesh Kumar",
		PerformedBy:         1,
		PerformedByUsername: "admin",
		ActionType:          model.BackupActionDownload,
	})
	if err != nil {
		t.Fatalf("create log: %v", err)
	}
	if entry.ID == 0 {
		t.Error("expected assigned id")
	}

	_, err = ls.Create(&model.BackupLogEntry{
		WorkspaceID:         wID,
		CustomerID:          7,
		CustomerName:        "Ramesh Kumar",
		PerformedBy:         1,
		PerformedByUsername: "admin",
		ActionType:          model.BackupActionCleanup,
		StorageFreedBytes:   4096,
		DocumentsDeleted:    3,
	})
	if err != nil {
		t.Fatalf("create cleanup log: %v", err)
	}

	entries, err := ls.ListByWorkspace(wID, 10)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Newest first.
	if entries[0].ActionType != model.BackupActionCleanup {
		t.Errorf("entries[0].ActionType = %q, want cleanup", entries[0].ActionType)
	}
}

func TestBackupLogTotalFreed(t *testing.T) {
	ls, wID := setupLogTestDB(t)

	total, err := ls.TotalFreedByWorkspace(wID)
	if err != nil {
		t.Fatalf("total freed: %v", err)
	}
	if total != 0 {
		t.Errorf("total = %d, want 0 with no entries", total)
	}

	for _, freed := range []int64{1000, 2500} {
		ls.Create(&model.BackupLogEntry{
			WorkspaceID:  wID,
			CustomerID:   7,
			CustomerName: "Ramesh",
			ActionType:   model.BackupActionCleanup,
			StorageFreedBytes: freed,
		})
	}
	// Download entries never contribute.
	ls.Create(&model.BackupLogEntry{
		WorkspaceID:  wID,
		CustomerID:   7,
		CustomerName: "Ramesh",
		ActionType:   model.BackupActionDownload,
	})

	total, err = ls.TotalFreedByWorkspace(wID)
	if err != nil {
		t.Fatalf("total freed: %v", err)
	}
	if total != 3500 {
		t.Errorf("total = %d, want 3500", total)
	}
}
