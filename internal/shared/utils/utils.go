package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// GetEnvVariable returns the environment variable or fallback when unset or empty.
func GetEnvVariable(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func ParseStringToUUID(s string) uuid.UUID {
	uid, err := uuid.Parse(s)
	if err != nil || s == "" {
		return uuid.Nil
	}
	return uid
}

// ParseUUIDs parses every id and reports the first invalid one.
func ParseUUIDs(ids []string) ([]uuid.UUID, string, bool) {
	out := make([]uuid.UUID, 0, len(ids))
	for _, s := range ids {
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			return nil, s, false
		}
		out = append(out, id)
	}
	return out, "", true
}

// FileExtension returns the lower-cased extension of name without the dot.
// "photo.JPG" → "jpg", "archive" → "".
func FileExtension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filepath.Base(name)), "."))
}

// StringPtr returns nil for blank strings and a pointer to the trimmed value otherwise.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
