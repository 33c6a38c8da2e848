// Package archive assembles a customer backup: rendered report, raw data
// snapshot, and every recoverable document, zipped into one portable blob.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/dhruvshah/sunbeam/internal/docref"
	"github.com/dhruvshah/sunbeam/internal/model"
	"github.com/dhruvshah/sunbeam/internal/report"
	"github.com/dhruvshah/sunbeam/internal/storage"
)

const (
	reportFile   = "report.md"
	snapshotFile = "data.json"
	documentsDir = "documents"
)

// Builder downloads referenced documents and produces backup archives.
type Builder struct {
	store  storage.ObjectStore
	logger *slog.Logger
}

func NewBuilder(store storage.ObjectStore, logger *slog.Logger) *Builder {
	return &Builder{store: store, logger: logger}
}

// snapshot is the raw JSON copy of everything the archive was built from.
type snapshot struct {
	Customer   *model.Customer  `json:"customer"`
	Steps      []model.StepData `json:"steps"`
	ExportedAt time.Time        `json:"exported_at"`
	ExportedBy string           `json:"exported_by"`
}

// Build produces the archive bytes. Individual document downloads are best
// effort: a broken reference is logged and skipped so one bad link never
// costs the operator the rest of the backup. Only serialization failures
// are fatal.
func (b *Builder) Build(ctx context.Context, c *model.Customer, steps []model.StepData, exportedAt time.Time, exportedBy string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := writeEntry(zw, reportFile, []byte(report.Render(c, steps, exportedAt, exportedBy))); err != nil {
		return nil, err
	}

	snap, err := json.MarshalIndent(snapshot{
		Customer:   c,
		Steps:      steps,
		ExportedAt: exportedAt.UTC(),
		ExportedBy: exportedBy,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := writeEntry(zw, snapshotFile, snap); err != nil {
		return nil, err
	}

	namer := newNamer()
	owner := SanitizeName(c.Name)
	for _, ref := range docref.Extract(steps) {
		obj, err := b.store.Get(ctx, ref.Raw)
		if err != nil {
			b.logger.Warn("skipping document", "ref", ref.Raw, "error", err)
			continue
		}
		name := namer.assign(owner+"_"+ref.Category, extension(ref.Raw, obj.ContentType))
		if err := writeEntry(zw, documentsDir+"/"+name, obj.Data); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// namer hands out archive-unique file names, comparing case-insensitively so
// the archive extracts cleanly on case-preserving filesystems.
type namer struct {
	used map[string]struct{}
}

func newNamer() *namer {
	return &namer{used: make(map[string]struct{})}
}

func (n *namer) assign(base, ext string) string {
	name := base + ext
	for i := 2; ; i++ {
		key := strings.ToLower(name)
		if _, taken := n.used[key]; !taken {
			n.used[key] = struct{}{}
			return name
		}
		name = fmt.Sprintf("%s_%d%s", base, i, ext)
	}
}

// extension derives a file extension from the reference's original filename,
// falling back to the declared media type.
func extension(ref, contentType string) string {
	if ext := path.Ext(storage.ParseReference(ref).Basename()); ext != "" && len(ext) <= 8 {
		return strings.ToLower(ext)
	}
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			switch mediaType {
			case "image/jpeg":
				return ".jpg"
			case "image/png":
				return ".png"
			case "application/pdf":
				return ".pdf"
			}
			if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
				return exts[0]
			}
		}
	}
	return ".bin"
}

// SanitizeName reduces a customer name to a filename-safe token.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '_' || r == '-':
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "customer"
	}
	return out
}
