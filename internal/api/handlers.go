package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/syncembed/internal/checksum"
	"github.com/starford/syncembed/internal/embed"
	"github.com/starford/syncembed/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	session *embed.Session
	svc     *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(session *embed.Session, svc *noteservice.Service) *Handler {
	return &Handler{session: session, svc: svc}
}

// notePath extracts the note path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List indexed notes
//	@Tags			notes
//	@Produce		json
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.ListNotes(r.Context())
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: rows, Total: len(rows)})
}

// Outline handles GET /api/outline/*.
//
//	@Summary		Get the heading outline of a note
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	models.Note
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/outline/{path} [get]
func (h *Handler) Outline(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.svc.Outline(r.Context(), path)
	if err != nil {
		writeError(w, "outline", err, slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// GetSection handles GET /api/sections/*.
//
//	@Summary		Read one section of a note
//	@Tags			sections
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Param			title	query		string	false	"Heading title; empty reads the whole note"
//	@Success		200		{object}	Section
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sections/{path} [get]
func (h *Handler) GetSection(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	title := r.URL.Query().Get("title")
	sec, err := h.svc.ReadSection(r.Context(), path, title)
	if err != nil {
		writeError(w, "read section", err, slog.String("path", path), slog.String("section", title))
		return
	}
	w.Header().Set("ETag", checksum.ETag(sec.Checksum))
	writeJSON(w, http.StatusOK, sec)
}

// PutSection handles PUT /api/sections/*.
//
//	@Summary		Replace the body of a section with optimistic concurrency
//	@Tags			sections
//	@Accept			json
//	@Produce		json
//	@Param			path		path		string				true	"Note path"
//	@Param			title		query		string				false	"Heading title; empty replaces the whole note"
//	@Param			If-Match	header		string				false	"SHA-256 checksum of the note"
//	@Param			body		body		WriteSectionRequest	true	"New section body"
//	@Success		200			{object}	Section
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sections/{path} [put]
func (h *Handler) PutSection(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req WriteSectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ifMatch := r.Header.Get("If-Match")
	title := r.URL.Query().Get("title")

	sec, err := h.svc.WriteSection(r.Context(), path, title, req.Body, ifMatch)
	if err != nil {
		writeError(w, "write section", err, slog.String("path", path), slog.String("section", title))
		return
	}
	w.Header().Set("ETag", checksum.ETag(sec.Checksum))
	writeJSON(w, http.StatusOK, sec)
}
