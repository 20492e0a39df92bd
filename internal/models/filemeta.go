// Package models defines the domain types for Ansuz.
package models

import "time"

// FileMeta is a lightweight representation returned by storage listing.
// Fingerprint is the SHA-256 of the file content; the indexer compares it
// against stored records to skip unchanged documents.
type FileMeta struct {
	Path        string    `json:"path"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
