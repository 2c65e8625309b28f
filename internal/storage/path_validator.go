package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"freelance-market/pkg/apierror"
)

// PathValidator maps stored file names onto the flat upload directory.
type PathValidator struct {
	rootAbs string
}

func NewPathValidator(root string) (*PathValidator, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("root path cannot be empty")
	}

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}

	return &PathValidator{rootAbs: rootAbs}, nil
}

func (v *PathValidator) RootAbs() string {
	return v.rootAbs
}

// ResolvePath accepts a bare file name, optionally prefixed with "/", and
// returns its absolute location under the root. Nested paths are refused.
func (v *PathValidator) ResolvePath(name string) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(name), "/")
	if trimmed == "" || trimmed == "." || trimmed == ".." {
		return "", apierror.Validation("file name is invalid", name)
	}

	if strings.Contains(trimmed, "\x00") || hasControlCharacters(trimmed) {
		return "", apierror.Validation("file name contains invalid characters", name)
	}

	if strings.ContainsAny(trimmed, `/\`) {
		return "", apierror.Forbidden("path traversal attempt detected")
	}

	resolvedAbs, err := filepath.Abs(filepath.Join(v.rootAbs, trimmed))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}

	if !isWithinRoot(v.rootAbs, resolvedAbs) {
		return "", apierror.Forbidden("resolved path is outside storage root")
	}

	return resolvedAbs, nil
}

func hasControlCharacters(value string) bool {
	for _, char := range value {
		if unicode.IsControl(char) {
			return true
		}
	}

	return false
}

func isWithinRoot(rootAbs string, candidateAbs string) bool {
	rootWithSeparator := rootAbs + string(filepath.Separator)
	return strings.HasPrefix(candidateAbs, rootWithSeparator)
}
