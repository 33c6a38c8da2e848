package storage

import (
	"net/url"
	"path"
	"strings"
)

// RefKind distinguishes the two shapes a document reference can take.
type RefKind int

const (
	// KindTenantKey is the current convention:
	// {workspaceId}/{customerId}/{category}/{timestamp}_{filename}.
	KindTenantKey RefKind = iota
	// KindLegacyURL is an absolute URL from before tenant-scoped keys; the
	// object key is recovered from the URL path.
	KindLegacyURL
)

// Reference is a parsed document reference. All object-store operations
// resolve through its Key, so legacy URLs and tenant keys share one code path.
type Reference struct {
	Raw  string
	Kind RefKind
}

// ParseReference classifies a raw reference string.
func ParseReference(raw string) Reference {
	if strings.Contains(raw, "://") {
		return Reference{Raw: raw, Kind: KindLegacyURL}
	}
	return Reference{Raw: raw, Kind: KindTenantKey}
}

// Key returns the object-store key for the reference.
func (r Reference) Key() string {
	switch r.Kind {
	case KindLegacyURL:
		u, err := url.Parse(r.Raw)
		if err != nil {
			return r.Raw
		}
		return strings.TrimPrefix(u.Path, "/")
	default:
		return r.Raw
	}
}

// Basename returns the final path element of the reference with any
// timestamp prefix stripped, used to recover the original filename.
func (r Reference) Basename() string {
	base := path.Base(r.Key())
	if i := strings.IndexByte(base, '_'); i > 0 {
		if prefix := base[:i]; isDigits(prefix) {
			return base[i+1:]
		}
	}
	return base
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
