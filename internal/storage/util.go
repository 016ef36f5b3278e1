package storage

import (
	"os"
	"time"

	"github.com/google/uuid"
)

// EnsureDir ensures a directory exists with default permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// NewID returns a new opaque record identifier.
func NewID() string {
	return uuid.NewString()
}

// PrepareMeeting fills in the ID and timestamps a caller left unset.
func PrepareMeeting(m *Meeting, now time.Time) {
	if m.ID == "" {
		m.ID = NewID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now.UTC()
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
}

// ClampPage normalizes skip/limit paging arguments.
func ClampPage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = 20
	}
	return skip, limit
}
