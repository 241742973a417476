// Package snapshot stores revisioned graph documents.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"
)

// Store persists document revisions per project.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save appends data as the next revision of project. Revisions start
	// at 1 and increase by one per save, surviving deletion of older ones.
	Save(project string, data []byte) (Info, error)

	// Load returns the data of a revision.
	// Returns ErrNotFound if the revision doesn't exist.
	Load(project string, revision int64) ([]byte, error)

	// Latest returns the newest revision and its data.
	// Returns ErrNotFound if the project has no revisions.
	Latest(project string) (Info, []byte, error)

	// List returns the project's revisions, oldest first.
	// Returns an empty slice (not error) for an unknown project.
	List(project string) ([]Info, error)

	// Projects returns every project with at least one revision, sorted.
	Projects() ([]string, error)

	// DeleteProject removes every revision of project.
	// Returns nil if the project has none.
	DeleteProject(project string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info describes a revision without its data.
type Info struct {
	Project   string
	Revision  int64
	Timestamp time.Time
	Size      int64
	// Digest is the hex SHA-256 of the revision's data.
	Digest string
}

// Sentinel errors for snapshot operations.
var (
	// ErrNotFound indicates a revision doesn't exist.
	ErrNotFound = errors.New("snapshot not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("snapshot store closed")

	// ErrEmptyProject indicates a save without a project name.
	ErrEmptyProject = errors.New("snapshot project is empty")
)

// Option configures a store.
type Option func(*storeConfig)

type storeConfig struct {
	logger *slog.Logger
	keep   int
}

// WithLogger logs saves and failures. Nil disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *storeConfig) {
		c.logger = logger
	}
}

// WithRetention keeps only the newest n revisions per project.
// Zero or negative keeps everything.
func WithRetention(n int) Option {
	return func(c *storeConfig) {
		c.keep = n
	}
}

func newStoreConfig(opts []Option) storeConfig {
	var c storeConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
