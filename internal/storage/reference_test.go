package storage

import "testing"

func TestParseReferenceKinds(t *testing.T) {
	tests := []struct {
		raw  string
		kind RefKind
		key  string
	}{
		{"1/42/aadhaar_card/1700000000_id.jpg", KindTenantKey, "1/42/aadhaar_card/1700000000_id.jpg"},
		{"https://bucket.acct.r2.cloudflarestorage.com/1/42/doc/1700000000_a.pdf", KindLegacyURL, "1/42/doc/1700000000_a.pdf"},
		{"https://abc.public.blob.vercel-storage.com/passbook-x1y2.pdf", KindLegacyURL, "passbook-x1y2.pdf"},
	}
	for _, tt := range tests {
		ref := ParseReference(tt.raw)
		if ref.Kind != tt.kind {
			t.Errorf("ParseReference(%q).Kind = %v, want %v", tt.raw, ref.Kind, tt.kind)
		}
		if got := ref.Key(); got != tt.key {
			t.Errorf("ParseReference(%q).Key() = %q, want %q", tt.raw, got, tt.key)
		}
	}
}

func TestReferenceBasename(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		// Timestamp prefix stripped.
		{"1/42/doc/1700000000_statement.pdf", "statement.pdf"},
		// No timestamp prefix.
		{"1/42/doc/statement.pdf", "statement.pdf"},
		// Underscore but non-numeric prefix stays.
		{"1/42/doc/bank_statement.pdf", "bank_statement.pdf"},
		{"https://abc.r2.dev/1/42/doc/1700000000_photo.jpg", "photo.jpg"},
	}
	for _, tt := range tests {
		if got := ParseReference(tt.raw).Basename(); got != tt.want {
			t.Errorf("Basename(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
