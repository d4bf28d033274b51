package embed

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every one of these is recovered inside the engine and shown
// as an inline message; none escapes to the host as a failure.
var (
	ErrSectionNotFound = errors.New("section not found")
	ErrTargetNotFound  = errors.New("note not found")
	ErrRecursiveEmbed  = errors.New("recursive embed")
	ErrSurfaceInit     = errors.New("surface init failed")
	ErrWriteConflict   = errors.New("section heading missing at write time")

	// ErrDetached is returned by operations on a closed window.
	ErrDetached = errors.New("window detached")
	// ErrNotReady is returned by input operations on a window that is not
	// showing synced content.
	ErrNotReady = errors.New("window not ready")
)

// Inline messages rendered in place of a window body.
const (
	msgEmptyBlock = "No embeds found in sync block"
	msgRecursive  = "Cannot create a recursive embed of the same note."
	msgSurface    = "Failed to load a markdown view."
	msgPasteFixed = "Pasted headers adjusted to maintain section hierarchy"
)

// Message returns the inline text shown for err.
func Message(err error, subject string) string {
	switch {
	case errors.Is(err, ErrSectionNotFound):
		return "Section not found: " + subject
	case errors.Is(err, ErrTargetNotFound):
		return "Note not found: " + subject
	case errors.Is(err, ErrRecursiveEmbed):
		return msgRecursive
	case errors.Is(err, ErrSurfaceInit):
		return msgSurface
	default:
		return fmt.Sprintf("Error loading: %v", err)
	}
}
