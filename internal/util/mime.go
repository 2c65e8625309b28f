package util

import (
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DetectMIME sniffs the content type from the head of r. r is consumed, so
// callers pass a reader they can rewind or a buffered prefix.
func DetectMIME(r io.Reader) (string, error) {
	detected, err := mimetype.DetectReader(r)
	if err != nil {
		return "", err
	}
	return detected.String(), nil
}

// MIMEAllowed reports whether mimeType matches one of the allowed entries.
// Entries may be exact ("application/pdf") or a family wildcard ("image/*").
// An empty allow list admits everything.
func MIMEAllowed(mimeType string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}

	base, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		base = strings.ToLower(strings.TrimSpace(mimeType))
	}

	for _, entry := range allowed {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == base {
			return true
		}
		if family, ok := strings.CutSuffix(entry, "/*"); ok && strings.HasPrefix(base, family+"/") {
			return true
		}
	}
	return false
}
