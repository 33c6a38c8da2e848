package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// Usage summarizes what a set of references occupies in storage. FileCount
// only counts references that resolved; missing objects contribute nothing.
type Usage struct {
	FileCount  int   `json:"file_count"`
	TotalBytes int64 `json:"total_bytes"`
}

// DeleteResult reports a best-effort batch deletion. Deleted+Failed always
// equals the number of references attempted; FailedRefs preserves the order
// the references were supplied in.
type DeleteResult struct {
	Deleted    int      `json:"documents_deleted"`
	Failed     int      `json:"documents_failed"`
	BytesFreed int64    `json:"storage_freed_bytes"`
	FailedRefs []string `json:"failed_refs,omitempty"`
}

// Accountant computes aggregate storage usage and performs batch deletions
// with per-reference failure accounting.
type Accountant struct {
	store  ObjectStore
	logger *slog.Logger
}

func NewAccountant(store ObjectStore, logger *slog.Logger) *Accountant {
	return &Accountant{store: store, logger: logger}
}

// Aggregate stats every reference and sums sizes. A reference that cannot be
// resolved is skipped, not an error.
func (a *Accountant) Aggregate(ctx context.Context, refs []string) Usage {
	var u Usage
	for _, ref := range refs {
		size, err := a.store.Stat(ctx, ref)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				a.logger.Warn("stat failed", "ref", ref, "error", err)
			}
			continue
		}
		u.FileCount++
		u.TotalBytes += size
	}
	return u
}

// DeleteAll deletes every reference independently; one failure never aborts
// the rest. Sizes are fetched before deletion since a post-delete stat is
// impossible. A reference whose object is already gone counts as failed:
// there is nothing to reclaim and the operator should know.
func (a *Accountant) DeleteAll(ctx context.Context, refs []string) DeleteResult {
	var res DeleteResult
	for _, ref := range refs {
		size, statErr := a.store.Stat(ctx, ref)
		switch {
		case errors.Is(statErr, ErrNotFound):
			res.Failed++
			res.FailedRefs = append(res.FailedRefs, ref)
			continue
		case statErr != nil:
			// Transient stat failure: credit zero bytes, still delete.
			a.logger.Warn("pre-delete stat failed", "ref", ref, "error", statErr)
			size = 0
		}

		if err := a.deleteWithRetry(ctx, ref); err != nil {
			a.logger.Warn("delete failed", "ref", ref, "error", err)
			res.Failed++
			res.FailedRefs = append(res.FailedRefs, ref)
			continue
		}
		res.Deleted++
		res.BytesFreed += size
	}
	return res
}

func (a *Accountant) deleteWithRetry(ctx context.Context, ref string) error {
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(100*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := a.store.Delete(ctx, ref); err != nil {
			if errors.Is(err, ErrNotFound) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
}
