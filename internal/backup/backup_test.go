package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/dhruvshah/sunbeam/internal/archive"
	"github.com/dhruvshah/sunbeam/internal/database"
	"github.com/dhruvshah/sunbeam/internal/model"
	"github.com/dhruvshah/sunbeam/internal/storage"
	"github.com/dhruvshah/sunbeam/internal/store"
)

type fakeObjects struct {
	objects    map[string]storage.Object
	deleteErrs map[string]error
}

func (f *fakeObjects) Stat(_ context.Context, ref string) (int64, error) {
	obj, ok := f.objects[ref]
	if !ok {
		return 0, storage.ErrNotFound
	}
	return int64(len(obj.Data)), nil
}

func (f *fakeObjects) Get(_ context.Context, ref string) (*storage.Object, error) {
	obj, ok := f.objects[ref]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &obj, nil
}

func (f *fakeObjects) Delete(_ context.Context, ref string) error {
	if err := f.deleteErrs[ref]; err != nil {
		return err
	}
	if _, ok := f.objects[ref]; !ok {
		return storage.ErrNotFound
	}
	delete(f.objects, ref)
	return nil
}

type event struct {
	workspaceID int64
	customerID  int64
	action      string
}

type fixture struct {
	svc       *Service
	customers *store.CustomerStore
	steps     *store.StepDataStore
	logs      *store.BackupLogStore
	objects   *fakeObjects
	events    *[]event
	workspace int64
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w, err := store.NewWorkspaceStore(db).Create("Surya Solar")
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}

	objects := &fakeObjects{objects: map[string]storage.Object{}}
	var events []event
	notify := func(workspaceID, customerID int64, action string, _ map[string]any) {
		events = append(events, event{workspaceID, customerID, action})
	}

	f := &fixture{
		customers: store.NewCustomerStore(db),
		steps:     store.NewStepDataStore(db),
		logs:      store.NewBackupLogStore(db),
		objects:   objects,
		events:    &events,
		workspace: w.ID,
	}
	f.svc = NewService(
		f.customers, f.steps, f.logs,
		archive.NewBuilder(objects, logger),
		storage.NewAccountant(objects, logger),
		notify, logger,
	)
	return f
}

func (f *fixture) completedCustomer(t *testing.T) *model.Customer {
	t.Helper()
	c, err := f.customers.Create(f.workspace, "Ramesh Kumar", "", "", "", model.CustomerTypeCash, 0)
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	for i := 0; i < model.TotalSteps; i++ {
		if _, err := f.customers.AdvanceStep(c.ID, f.workspace); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	c, _ = f.customers.GetByID(c.ID, f.workspace)
	return c
}

func (f *fixture) addStep(t *testing.T, customerID int64, step int, payload string) {
	t.Helper()
	if _, err := f.steps.Upsert(f.workspace, customerID, step, json.RawMessage(payload)); err != nil {
		t.Fatalf("upsert step %d: %v", step, err)
	}
}

func actor() Actor { return Actor{ID: 1, Username: "admin"} }

func TestDownloadBackupNoDocuments(t *testing.T) {
	f := setup(t)
	c := f.completedCustomer(t)

	a, err := f.svc.DownloadBackup(context.Background(), c.ID, f.workspace, actor())
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if !strings.HasPrefix(a.Filename, "backup-ramesh-kumar-") || !strings.HasSuffix(a.Filename, ".zip") {
		t.Errorf("filename = %q", a.Filename)
	}

	zr, err := zip.NewReader(bytes.NewReader(a.Data), int64(len(a.Data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 2 {
		t.Errorf("expected report + snapshot, got %d entries", len(zr.File))
	}

	got, _ := f.customers.GetByID(c.ID, f.workspace)
	if got.Status != model.CustomerStatusArchived {
		t.Errorf("status = %q, want archived", got.Status)
	}

	// Cleanup with nothing referenced reports zeroes without error.
	res, err := f.svc.CleanupStorage(context.Background(), c.ID, f.workspace, actor())
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if res.DocumentsDeleted != 0 || res.DocumentsFailed != 0 || res.StorageFreedBytes != 0 {
		t.Errorf("cleanup result = %+v, want zeroes", res)
	}

	entries, _ := f.logs.ListByWorkspace(f.workspace, 10)
	if len(entries) != 2 {
		t.Fatalf("expected download + cleanup log entries, got %d", len(entries))
	}
}

func TestDownloadBackupRequiresCompletion(t *testing.T) {
	f := setup(t)
	c, _ := f.customers.Create(f.workspace, "Ramesh", "", "", "", model.CustomerTypeCash, 0)

	_, err := f.svc.DownloadBackup(context.Background(), c.ID, f.workspace, actor())
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}

	got, _ := f.customers.GetByID(c.ID, f.workspace)
	if got.Status != model.CustomerStatusActive {
		t.Errorf("status mutated to %q", got.Status)
	}
	entries, _ := f.logs.ListByWorkspace(f.workspace, 10)
	if len(entries) != 0 {
		t.Errorf("rejected download wrote %d log entries", len(entries))
	}
}

func TestDownloadBackupOnlyOnce(t *testing.T) {
	f := setup(t)
	c := f.completedCustomer(t)

	if _, err := f.svc.DownloadBackup(context.Background(), c.ID, f.workspace, actor()); err != nil {
		t.Fatalf("first download: %v", err)
	}
	_, err := f.svc.DownloadBackup(context.Background(), c.ID, f.workspace, actor())
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second download err = %v, want ErrInvalidState", err)
	}
}

func TestDownloadBackupUnknownCustomer(t *testing.T) {
	f := setup(t)
	_, err := f.svc.DownloadBackup(context.Background(), 999, f.workspace, actor())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCleanupRequiresArchived(t *testing.T) {
	f := setup(t)
	c := f.completedCustomer(t)
	f.addStep(t, c.ID, 1, `{"aadhaar_card": "1/7/aadhaar_card/100_id.jpg"}`)
	f.objects.objects["1/7/aadhaar_card/100_id.jpg"] = storage.Object{Data: []byte("bytes")}

	_, err := f.svc.CleanupStorage(context.Background(), c.ID, f.workspace, actor())
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
	if _, ok := f.objects.objects["1/7/aadhaar_card/100_id.jpg"]; !ok {
		t.Error("cleanup on a completed customer deleted objects")
	}
}

func TestCleanupDeletesAndAccounts(t *testing.T) {
	f := setup(t)
	c := f.completedCustomer(t)
	f.addStep(t, c.ID, 1, `{"aadhaar_card": "1/7/aadhaar_card/100_id.jpg", "pan_card": "1/7/pan_card/101_pan.jpg"}`)
	f.addStep(t, c.ID, 2, `{"site_photo": ["1/7/site_photo/102_a.jpg", "1/7/site_photo/103_gone.jpg"]}`)
	f.objects.objects["1/7/aadhaar_card/100_id.jpg"] = storage.Object{Data: bytes.Repeat([]byte("a"), 1000)}
	f.objects.objects["1/7/pan_card/101_pan.jpg"] = storage.Object{Data: bytes.Repeat([]byte("b"), 2000)}
	f.objects.objects["1/7/site_photo/102_a.jpg"] = storage.Object{Data: bytes.Repeat([]byte("c"), 500)}

	if _, err := f.svc.DownloadBackup(context.Background(), c.ID, f.workspace, actor()); err != nil {
		t.Fatalf("download: %v", err)
	}

	res, err := f.svc.CleanupStorage(context.Background(), c.ID, f.workspace, actor())
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if res.DocumentsDeleted != 3 {
		t.Errorf("deleted = %d, want 3", res.DocumentsDeleted)
	}
	if res.DocumentsFailed != 1 {
		t.Errorf("failed = %d, want 1", res.DocumentsFailed)
	}
	if res.StorageFreedBytes != 3500 {
		t.Errorf("freed = %d, want 3500", res.StorageFreedBytes)
	}
	if len(res.FailedRefs) != 1 || res.FailedRefs[0] != "1/7/site_photo/103_gone.jpg" {
		t.Errorf("failed refs = %v", res.FailedRefs)
	}
	if len(f.objects.objects) != 0 {
		t.Errorf("objects left behind: %v", f.objects.objects)
	}

	entries, _ := f.logs.ListByWorkspace(f.workspace, 10)
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	cleanup := entries[0]
	if cleanup.ActionType != model.BackupActionCleanup {
		t.Fatalf("newest entry is %q", cleanup.ActionType)
	}
	if cleanup.StorageFreedBytes != 3500 || cleanup.DocumentsDeleted != 3 {
		t.Errorf("cleanup log = %+v", cleanup)
	}
	if cleanup.PerformedByUsername != "admin" {
		t.Errorf("performed_by = %q", cleanup.PerformedByUsername)
	}
}

func TestStorageUsage(t *testing.T) {
	f := setup(t)
	c := f.completedCustomer(t)
	f.addStep(t, c.ID, 1, `{"aadhaar_card": "1/7/aadhaar_card/100_id.jpg", "missing": "1/7/doc/101_gone.pdf"}`)
	f.objects.objects["1/7/aadhaar_card/100_id.jpg"] = storage.Object{Data: bytes.Repeat([]byte("a"), 1234)}

	u, err := f.svc.StorageUsage(context.Background(), c.ID, f.workspace)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if u.FileCount != 1 || u.TotalBytes != 1234 {
		t.Errorf("usage = %+v, want 1 file / 1234 bytes", u)
	}
}

func TestProgressEvents(t *testing.T) {
	f := setup(t)
	c := f.completedCustomer(t)
	f.addStep(t, c.ID, 1, `{"doc": "1/7/doc/100_a.pdf"}`)
	f.objects.objects["1/7/doc/100_a.pdf"] = storage.Object{Data: []byte("pdf")}

	if _, err := f.svc.DownloadBackup(context.Background(), c.ID, f.workspace, actor()); err != nil {
		t.Fatalf("download: %v", err)
	}
	if _, err := f.svc.CleanupStorage(context.Background(), c.ID, f.workspace, actor()); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	want := []string{"backup_started", "backup_completed", "cleanup_completed"}
	got := *f.events
	if len(got) != len(want) {
		t.Fatalf("events = %+v", got)
	}
	for i, action := range want {
		if got[i].action != action || got[i].workspaceID != f.workspace || got[i].customerID != c.ID {
			t.Errorf("events[%d] = %+v, want %s", i, got[i], action)
		}
	}
}
