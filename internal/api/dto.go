package api

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/syncembed/internal/embed"
	"github.com/starford/syncembed/internal/index"
	"github.com/starford/syncembed/internal/noteservice"
	"github.com/starford/syncembed/internal/surface"
)

// RenderRequest is the request body for rendering a sync block.
type RenderRequest struct {
	Source string `json:"source" example:"daily/2025-01-20.md" validate:"required"`
	Body   string `json:"body" example:"![[Projects#Tasks]]"`
}

// Validate validates the request.
func (r RenderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Source, validation.Required),
	)
}

// EditRequest replaces the text between From and To.
type EditRequest struct {
	From surface.Position `json:"from" validate:"required"`
	To   surface.Position `json:"to" validate:"required"`
	Text string           `json:"text"`
}

// Validate validates the request.
func (r EditRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.From, validation.By(validPosition)),
		validation.Field(&r.To, validation.By(validPosition)),
	)
}

func surfaceChange(r EditRequest) surface.Change {
	return surface.Change{From: r.From, To: r.To, Text: r.Text}
}

// KeyRequest presses one special key.
type KeyRequest struct {
	Key string `json:"key" example:"Backspace" validate:"required"`
}

// Validate validates the request.
func (r KeyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Key, validation.Required),
	)
}

// TextRequest carries typed or pasted text.
type TextRequest struct {
	Text string `json:"text" example:"hello" validate:"required"`
}

// Validate validates the request.
func (r TextRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Text, validation.Required),
	)
}

// SelectRequest sets the selection.
type SelectRequest struct {
	Anchor surface.Position `json:"anchor" validate:"required"`
	Head   surface.Position `json:"head" validate:"required"`
}

// Validate validates the request.
func (r SelectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Anchor, validation.By(validPosition)),
		validation.Field(&r.Head, validation.By(validPosition)),
	)
}

// ClickRequest places the cursor.
type ClickRequest struct {
	surface.Position
}

// Validate validates the request.
func (r ClickRequest) Validate() error {
	return validPosition(r.Position)
}

// ScrollRequest scrolls a window so Line is the first visible line.
type ScrollRequest struct {
	Line int `json:"line" example:"3"`
}

// Validate validates the request.
func (r ScrollRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Line, validation.Min(0)),
	)
}

// FocusRequest reports a focus change in the host view.
type FocusRequest struct {
	Node    string `json:"node" example:"block-id/window-id/editor" validate:"required"`
	Related string `json:"related,omitempty"`
}

// Validate validates the request.
func (r FocusRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Node, validation.Required),
	)
}

// WriteSectionRequest is the request body for replacing a section body.
type WriteSectionRequest struct {
	Body string `json:"body" example:"- [ ] ship it"`
}

// Validate validates the request.
func (r WriteSectionRequest) Validate() error { return nil }

func validPosition(value any) error {
	p, _ := value.(surface.Position)
	if p.Line < 0 || p.Ch < 0 {
		return errors.New("must not be negative")
	}
	return nil
}

// ItemResponse is one rendered embed: a live window or an inline error.
type ItemResponse struct {
	Declaration embed.Declaration `json:"declaration"`
	Error       string            `json:"error,omitempty"`
	Window      *embed.View       `json:"window,omitempty"`
}

// BlockResponse is a rendered sync block.
type BlockResponse struct {
	ID      string         `json:"id" validate:"required"`
	Source  string         `json:"source" validate:"required"`
	Message string         `json:"message,omitempty"`
	Items   []ItemResponse `json:"items" validate:"required"`
}

func newBlockResponse(b *embed.Block) BlockResponse {
	out := BlockResponse{ID: b.ID, Source: b.Source, Message: b.Message, Items: []ItemResponse{}}
	for _, it := range b.Items {
		item := ItemResponse{Declaration: it.Declaration, Error: it.Error}
		if w := it.Window(); w != nil {
			v := w.View()
			item.Window = &v
		}
		out.Items = append(out.Items, item)
	}
	return out
}

// KeyResponse reports whether a key press reached the surface.
type KeyResponse struct {
	Applied bool       `json:"applied"`
	Window  embed.View `json:"window"`
}

// ExecuteResponse reports whether a command handled the invocation.
type ExecuteResponse struct {
	Handled bool   `json:"handled"`
	Focused string `json:"focused,omitempty"`
}

// FocusResponse names the focused window, if any.
type FocusResponse struct {
	Window string `json:"window"`
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []index.NoteRow `json:"notes" validate:"required"`
	Total int             `json:"total" example:"42" validate:"required"`
}

// Section is the section response type (aliased from the domain layer).
type Section = noteservice.Section
