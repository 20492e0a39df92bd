// Package storage defines the vault file-system abstraction.
package storage

import (
	"time"

	"github.com/starford/ansuz/internal/models"
)

// Provider is the interface for vault file operations.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to vault root).
	List(dir string) ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to vault root).
	// A crash mid-write never leaves a corrupted file behind.
	Write(path string, content []byte) error
	// Stat returns the creation and modification timestamps of path.
	Stat(path string) (created, modified time.Time, err error)
}
