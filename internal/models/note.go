// Package models defines the vault domain types shared by storage, index and
// the host API.
package models

import (
	"time"

	"github.com/starford/syncembed/internal/section"
)

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Note is an indexed vault document.
type Note struct {
	Path      string            `json:"path"`
	Title     string            `json:"title,omitempty"`
	Checksum  string            `json:"checksum"`
	Headings  []section.Heading `json:"headings,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}
