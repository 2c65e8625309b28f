package util

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"freelance-market/pkg/apierror"
)

const maxExtensionLen = 16

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// UploadFileName builds the stored name of an uploaded file:
// "{unix millis}-{form field}{extension of the client's file name}".
func UploadFileName(at time.Time, field string, original string) string {
	field = strings.TrimSpace(field)
	if field == "" {
		field = "file"
	}
	return fmt.Sprintf("%d-%s%s", at.UnixMilli(), invalidFilenameChars.ReplaceAllString(field, "_"), CleanExtension(original))
}

// WithNameSuffix inserts "-suffix" before the extension of an upload name.
func WithNameSuffix(name string, suffix string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "-" + suffix + ext
}

// CleanExtension returns the extension of a client-supplied file name, or ""
// when it carries anything but letters and digits or is implausibly long.
func CleanExtension(original string) string {
	ext := filepath.Ext(strings.ReplaceAll(strings.TrimSpace(original), `\`, "/"))
	if len(ext) < 2 || len(ext) > maxExtensionLen {
		return ""
	}
	for _, char := range ext[1:] {
		if char > unicode.MaxASCII || !(unicode.IsLetter(char) || unicode.IsDigit(char)) {
			return ""
		}
	}
	return ext
}

// SanitizeFilename cleans a name for use in a Content-Disposition header.
func SanitizeFilename(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", apierror.Validation("filename cannot be empty", "")
	}

	builder := strings.Builder{}
	builder.Grow(len(trimmed))

	for _, char := range trimmed {
		if unicode.IsControl(char) || isInvisibleUnicode(char) {
			continue
		}

		builder.WriteRune(char)
	}

	cleaned := strings.TrimSpace(invalidFilenameChars.ReplaceAllString(builder.String(), "_"))
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return "", apierror.Validation("filename is invalid after sanitization", trimmed)
	}

	// Truncate by runes so multi-byte characters are never split.
	runes := []rune(cleaned)
	if len(runes) > 255 {
		runes = runes[:255]
	}

	return string(runes), nil
}

// isInvisibleUnicode returns true for zero-width, formatting, and other
// invisible Unicode characters that should be stripped from filenames.
func isInvisibleUnicode(r rune) bool {
	switch r {
	case
		'\u200B', // Zero-Width Space
		'\u200C', // Zero-Width Non-Joiner
		'\u200D', // Zero-Width Joiner
		'\u200E', // Left-to-Right Mark
		'\u200F', // Right-to-Left Mark
		'\u2060', // Word Joiner
		'\uFEFF': // Zero-Width No-Break Space / BOM
		return true
	}

	return unicode.Is(unicode.Cf, r)
}
