// Package docref discovers document references inside customer step data.
//
// A reference is any string leaf that points at an object in document
// storage, either as a tenant-scoped key ({workspace}/{customer}/{category}/
// {timestamp}_{filename}) or as an absolute URL from the storage provider
// (including the legacy blob-store URLs older records still carry).
package docref

import (
	"encoding/json"
	"net/url"
	"sort"
	"strings"

	"github.com/dhruvshah/sunbeam/internal/model"
)

// Reference is one discovered document pointer. Category is derived from the
// JSON key the value was found under and is used for archive file naming.
type Reference struct {
	Raw      string
	Category string
}

// storageHosts are URL host suffixes recognized as document storage.
var storageHosts = []string{
	".r2.cloudflarestorage.com",
	".r2.dev",
	".blob.vercel-storage.com", // legacy uploads
}

// Extract walks every step payload and returns all document references,
// deduplicated by exact string equality. Discovery order is deterministic:
// steps in input order, object keys in sorted order. Running it twice over
// the same steps yields the same result.
func Extract(steps []model.StepData) []Reference {
	seen := make(map[string]struct{})
	var refs []Reference

	for _, sd := range steps {
		if len(sd.Data) == 0 {
			continue
		}
		var payload any
		if err := json.Unmarshal(sd.Data, &payload); err != nil {
			// Malformed step payloads contribute nothing.
			continue
		}
		walk(payload, "", seen, &refs)
	}
	return refs
}

// Strings returns just the raw reference strings, in discovery order.
func Strings(refs []Reference) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Raw
	}
	return out
}

func walk(v any, key string, seen map[string]struct{}, refs *[]Reference) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(val[k], k, seen, refs)
		}
	case []any:
		// Array elements are tested as strings or recursed as objects;
		// nested arrays are not descended further.
		for _, elem := range val {
			switch e := elem.(type) {
			case string:
				capture(e, key, seen, refs)
			case map[string]any:
				walk(e, key, seen, refs)
			}
		}
	case string:
		capture(val, key, seen, refs)
	}
	// Numbers, booleans, and nulls are ignored.
}

func capture(s, key string, seen map[string]struct{}, refs *[]Reference) {
	s = strings.TrimSpace(s)
	if !IsDocumentReference(s) {
		return
	}
	if _, dup := seen[s]; dup {
		return
	}
	seen[s] = struct{}{}
	*refs = append(*refs, Reference{Raw: s, Category: categoryFromKey(key)})
}

// IsDocumentReference reports whether a string value denotes a stored
// document: a URL on a known storage host, or a tenant-scoped storage key
// (at least one path separator, no URL scheme).
func IsDocumentReference(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return false
		}
		host := strings.ToLower(u.Host)
		for _, suffix := range storageHosts {
			if strings.HasSuffix(host, suffix) {
				return true
			}
		}
		return false
	}
	return strings.Contains(s, "/")
}

// categoryFromKey normalizes the JSON key a reference was found under into a
// filename-safe category label.
func categoryFromKey(key string) string {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return "document"
	}
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "document"
	}
	return out
}
