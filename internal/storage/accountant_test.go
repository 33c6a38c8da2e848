package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
)

// fakeStore is an in-memory ObjectStore with programmable failures.
type fakeStore struct {
	objects    map[string][]byte
	statErrs   map[string]error
	deleteErrs map[string]error
	deleted    []string
	deleteTry  map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:    make(map[string][]byte),
		statErrs:   make(map[string]error),
		deleteErrs: make(map[string]error),
		deleteTry:  make(map[string]int),
	}
}

func (f *fakeStore) Stat(_ context.Context, ref string) (int64, error) {
	if err := f.statErrs[ref]; err != nil {
		return 0, err
	}
	data, ok := f.objects[ref]
	if !ok {
		return 0, ErrNotFound
	}
	return int64(len(data)), nil
}

func (f *fakeStore) Get(_ context.Context, ref string) (*Object, error) {
	data, ok := f.objects[ref]
	if !ok {
		return nil, ErrNotFound
	}
	return &Object{Data: data}, nil
}

func (f *fakeStore) Delete(_ context.Context, ref string) error {
	f.deleteTry[ref]++
	if err := f.deleteErrs[ref]; err != nil {
		return err
	}
	if _, ok := f.objects[ref]; !ok {
		return ErrNotFound
	}
	delete(f.objects, ref)
	f.deleted = append(f.deleted, ref)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAggregate(t *testing.T) {
	fs := newFakeStore()
	fs.objects["a/1/x/1_a.pdf"] = make([]byte, 100)
	fs.objects["a/1/x/2_b.pdf"] = make([]byte, 250)

	a := NewAccountant(fs, testLogger())
	u := a.Aggregate(context.Background(), []string{"a/1/x/1_a.pdf", "a/1/x/2_b.pdf", "a/1/x/3_missing.pdf"})

	if u.FileCount != 2 {
		t.Errorf("FileCount = %d, want 2", u.FileCount)
	}
	if u.TotalBytes != 350 {
		t.Errorf("TotalBytes = %d, want 350", u.TotalBytes)
	}
}

func TestDeleteAllCountInvariant(t *testing.T) {
	fs := newFakeStore()
	fs.objects["r1"] = make([]byte, 10)
	fs.objects["r3"] = make([]byte, 30)
	fs.deleteErrs["r3"] = errors.New("permission denied")

	refs := []string{"r1", "r2", "r3"}
	a := NewAccountant(fs, testLogger())
	res := a.DeleteAll(context.Background(), refs)

	if res.Deleted+res.Failed != len(refs) {
		t.Errorf("Deleted(%d) + Failed(%d) != %d", res.Deleted, res.Failed, len(refs))
	}
}

func TestDeleteAllPartialFailure(t *testing.T) {
	fs := newFakeStore()
	fs.objects["w/1/doc/1_a.pdf"] = make([]byte, 1000)
	fs.objects["w/1/doc/2_b.pdf"] = make([]byte, 2000)
	// Third reference 404s on stat.

	refs := []string{"w/1/doc/1_a.pdf", "w/1/doc/2_b.pdf", "w/1/doc/3_gone.pdf"}
	a := NewAccountant(fs, testLogger())
	res := a.DeleteAll(context.Background(), refs)

	if res.Deleted != 2 {
		t.Errorf("Deleted = %d, want 2", res.Deleted)
	}
	if res.Failed != 1 {
		t.Errorf("Failed = %d, want 1", res.Failed)
	}
	if res.BytesFreed != 3000 {
		t.Errorf("BytesFreed = %d, want 3000 (successful sizes only)", res.BytesFreed)
	}
	if !reflect.DeepEqual(res.FailedRefs, []string{"w/1/doc/3_gone.pdf"}) {
		t.Errorf("FailedRefs = %v, want the missing reference", res.FailedRefs)
	}
}

func TestDeleteAllTransientStatStillDeletes(t *testing.T) {
	fs := newFakeStore()
	fs.objects["r1"] = make([]byte, 500)
	fs.statErrs["r1"] = errors.New("connection reset")

	a := NewAccountant(fs, testLogger())
	res := a.DeleteAll(context.Background(), []string{"r1"})

	if res.Deleted != 1 {
		t.Errorf("Deleted = %d, want 1 (delete attempted despite stat failure)", res.Deleted)
	}
	// Size could not be determined before deletion.
	if res.BytesFreed != 0 {
		t.Errorf("BytesFreed = %d, want 0", res.BytesFreed)
	}
}

func TestDeleteAllEmpty(t *testing.T) {
	a := NewAccountant(newFakeStore(), testLogger())
	res := a.DeleteAll(context.Background(), nil)
	if res.Deleted != 0 || res.Failed != 0 || res.BytesFreed != 0 || len(res.FailedRefs) != 0 {
		t.Errorf("expected zero result, got %+v", res)
	}
}

func TestDeleteAllFailureDoesNotAbortBatch(t *testing.T) {
	fs := newFakeStore()
	fs.objects["r1"] = make([]byte, 1)
	fs.objects["r2"] = make([]byte, 2)
	fs.objects["r3"] = make([]byte, 4)
	fs.deleteErrs["r1"] = errors.New("boom")

	a := NewAccountant(fs, testLogger())
	res := a.DeleteAll(context.Background(), []string{"r1", "r2", "r3"})

	if res.Deleted != 2 || res.Failed != 1 {
		t.Errorf("Deleted=%d Failed=%d, want 2/1", res.Deleted, res.Failed)
	}
	if res.BytesFreed != 6 {
		t.Errorf("BytesFreed = %d, want 6", res.BytesFreed)
	}
	if len(fs.deleted) != 2 {
		t.Errorf("backend deleted %v, want the two healthy refs", fs.deleted)
	}
}

func TestDeleteRetriesTransientErrors(t *testing.T) {
	fs := newFakeStore()
	fs.objects["r1"] = make([]byte, 64)
	fs.deleteErrs["r1"] = errors.New("throttled")

	a := NewAccountant(fs, testLogger())
	res := a.DeleteAll(context.Background(), []string{"r1"})

	if res.Failed != 1 {
		t.Fatalf("Failed = %d, want 1", res.Failed)
	}
	// Initial attempt plus two retries.
	if fs.deleteTry["r1"] != 3 {
		t.Errorf("delete attempts = %d, want 3", fs.deleteTry["r1"])
	}
}
