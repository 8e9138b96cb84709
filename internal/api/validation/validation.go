package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrFileTypeBlocked = errors.New("file type not allowed")
	ErrEmptyFile       = errors.New("file is empty")
)

// IsValidEmail checks if the string is a valid email format
func IsValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// FileExtension returns the lowercased extension of name without the dot.
func FileExtension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// UploadRules is the upload size limit and extension allowlist.
type UploadRules struct {
	MaxSize      int64
	AllowedTypes []string
}

// Check validates a file name and size against the rules.
func (u UploadRules) Check(name string, size int64) error {
	if size <= 0 {
		return ErrEmptyFile
	}
	if u.MaxSize > 0 && size > u.MaxSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, size, u.MaxSize)
	}

	ext := FileExtension(name)
	for _, allowed := range u.AllowedTypes {
		if ext != "" && ext == strings.ToLower(allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrFileTypeBlocked, ext)
}

// SanitizeString removes control characters other than newlines and tabs.
func SanitizeString(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// TruncateString truncates s to at most maxLen runes.
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

// SafeFileName strips directory parts and control characters from an
// uploaded file name.
func SafeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSpace(SanitizeString(strings.ReplaceAll(name, "\n", "")))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return TruncateString(name, 255)
}
