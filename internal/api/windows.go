package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/syncembed/internal/embed"
)

// RenderBlock handles POST /api/blocks.
//
//	@Summary		Render a sync block into embedded windows
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenderRequest	true	"Block source and body"
//	@Success		201		{object}	BlockResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks [post]
func (h *Handler) RenderBlock(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.session.Render(r.Context(), req.Source, req.Body)
	if err != nil {
		writeError(w, "render block", err, slog.String("source", req.Source))
		return
	}
	writeJSON(w, http.StatusCreated, newBlockResponse(b))
}

// GetBlock handles GET /api/blocks/{id}.
//
//	@Summary		Get a rendered block
//	@Tags			blocks
//	@Produce		json
//	@Param			id	path		string	true	"Block id"
//	@Success		200	{object}	BlockResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks/{id} [get]
func (h *Handler) GetBlock(w http.ResponseWriter, r *http.Request) {
	b, err := h.session.Block(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get block", err)
		return
	}
	writeJSON(w, http.StatusOK, newBlockResponse(b))
}

// CloseBlock handles DELETE /api/blocks/{id}.
//
//	@Summary		Close every window of a block
//	@Tags			blocks
//	@Param			id	path	string	true	"Block id"
//	@Success		204	"Block closed"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks/{id} [delete]
func (h *Handler) CloseBlock(w http.ResponseWriter, r *http.Request) {
	if err := h.session.CloseBlock(chi.URLParam(r, "id")); err != nil {
		writeError(w, "close block", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListWindows handles GET /api/windows.
//
//	@Summary		List live embedded windows
//	@Tags			windows
//	@Produce		json
//	@Success		200	{array}	embed.View
//	@Security		BearerAuth
//	@Router			/windows [get]
func (h *Handler) ListWindows(w http.ResponseWriter, _ *http.Request) {
	views := []embed.View{}
	for _, win := range h.session.Windows() {
		views = append(views, win.View())
	}
	writeJSON(w, http.StatusOK, views)
}

// window resolves the {id} URL parameter. On failure the response has been
// written and nil is returned.
func (h *Handler) window(w http.ResponseWriter, r *http.Request) *embed.Window {
	win, err := h.session.Window(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get window", err)
		return nil
	}
	return win
}

// GetWindow handles GET /api/windows/{id}.
//
//	@Summary		Get an embedded window
//	@Tags			windows
//	@Produce		json
//	@Param			id	path		string	true	"Window id"
//	@Success		200	{object}	embed.View
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/windows/{id} [get]
func (h *Handler) GetWindow(w http.ResponseWriter, r *http.Request) {
	win := h.window(w, r)
	if win == nil {
		return
	}
	writeJSON(w, http.StatusOK, win.View())
}

// CloseWindow handles DELETE /api/windows/{id}.
//
//	@Summary		Close an embedded window
//	@Tags			windows
//	@Param			id	path	string	true	"Window id"
//	@Success		204	"Window closed"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/windows/{id} [delete]
func (h *Handler) CloseWindow(w http.ResponseWriter, r *http.Request) {
	if err := h.session.CloseWindow(chi.URLParam(r, "id")); err != nil {
		writeError(w, "close window", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reveal handles POST /api/windows/{id}/reveal.
//
//	@Summary		Load a lazily created window
//	@Tags			windows
//	@Produce		json
//	@Param			id	path		string	true	"Window id"
//	@Success		200	{object}	embed.View
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/windows/{id}/reveal [post]
func (h *Handler) Reveal(w http.ResponseWriter, r *http.Request) {
	win := h.window(w, r)
	if win == nil {
		return
	}
	// A failed load leaves the window inert with a placeholder, which the
	// view reports.
	if err := win.Reveal(r.Context()); err != nil {
		slog.Debug("reveal left window inert", slog.String("window", win.ID()), slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, win.View())
}

// Flush handles POST /api/windows/{id}/flush.
//
//	@Summary		Write pending edits back immediately
//	@Tags			windows
//	@Produce		json
//	@Param			id	path		string	true	"Window id"
//	@Success		200	{object}	embed.View
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/windows/{id}/flush [post]
func (h *Handler) Flush(w http.ResponseWriter, r *http.Request) {
	win := h.window(w, r)
	if win == nil {
		return
	}
	if err := win.Flush(r.Context()); err != nil {
		writeError(w, "flush window", err, slog.String("window", win.ID()))
		return
	}
	writeJSON(w, http.StatusOK, win.View())
}

// Edit handles POST /api/windows/{id}/edit.
//
//	@Summary		Apply a raw text change
//	@Tags			windows
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Window id"
//	@Param			body	body		EditRequest	true	"Change"
//	@Success		200		{object}	embed.View
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/windows/{id}/edit [post]
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	h.act(w, r, &req, func(win *embed.Window) error {
		return win.Edit(surfaceChange(req))
	})
}

// Key handles POST /api/windows/{id}/key.
//
//	@Summary		Press a special key
//	@Tags			windows
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Window id"
//	@Param			body	body		KeyRequest	true	"Key name"
//	@Success		200		{object}	KeyResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/windows/{id}/key [post]
func (h *Handler) Key(w http.ResponseWriter, r *http.Request) {
	win := h.window(w, r)
	if win == nil {
		return
	}
	var req KeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	applied, err := win.Key(req.Key)
	if err != nil {
		writeError(w, "key", err, slog.String("window", win.ID()))
		return
	}
	writeJSON(w, http.StatusOK, KeyResponse{Applied: applied, Window: win.View()})
}

// Type handles POST /api/windows/{id}/type.
//
//	@Summary		Type text at the cursor
//	@Tags			windows
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Window id"
//	@Param			body	body		TextRequest	true	"Typed text"
//	@Success		200		{object}	embed.View
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/windows/{id}/type [post]
func (h *Handler) Type(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	h.act(w, r, &req, func(win *embed.Window) error {
		return win.Type(req.Text)
	})
}

// Paste handles POST /api/windows/{id}/paste.
//
//	@Summary		Paste text at the cursor
//	@Tags			windows
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Window id"
//	@Param			body	body		TextRequest	true	"Pasted text"
//	@Success		200		{object}	embed.View
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/windows/{id}/paste [post]
func (h *Handler) Paste(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	h.act(w, r, &req, func(win *embed.Window) error {
		return win.Paste(req.Text)
	})
}

// Select handles POST /api/windows/{id}/select.
//
//	@Summary		Set the selection
//	@Tags			windows
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Window id"
//	@Param			body	body		SelectRequest	true	"Selection"
//	@Success		200		{object}	embed.View
//	@Security		BearerAuth
//	@Router			/windows/{id}/select [post]
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	h.act(w, r, &req, func(win *embed.Window) error {
		return win.Select(req.Anchor, req.Head)
	})
}

// Click handles POST /api/windows/{id}/click.
//
//	@Summary		Place the cursor
//	@Tags			windows
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Window id"
//	@Param			body	body		ClickRequest	true	"Position"
//	@Success		200		{object}	embed.View
//	@Security		BearerAuth
//	@Router			/windows/{id}/click [post]
func (h *Handler) Click(w http.ResponseWriter, r *http.Request) {
	var req ClickRequest
	h.act(w, r, &req, func(win *embed.Window) error {
		return win.Click(req.Position)
	})
}

// Scroll handles POST /api/windows/{id}/scroll.
//
//	@Summary		Scroll a window
//	@Tags			windows
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Window id"
//	@Param			body	body		ScrollRequest	true	"First visible line"
//	@Success		200		{object}	embed.View
//	@Security		BearerAuth
//	@Router			/windows/{id}/scroll [post]
func (h *Handler) Scroll(w http.ResponseWriter, r *http.Request) {
	var req ScrollRequest
	h.act(w, r, &req, func(win *embed.Window) error {
		return win.Scroll(req.Line)
	})
}

// act decodes req, runs fn against the addressed window and answers with the
// window view.
func (h *Handler) act(w http.ResponseWriter, r *http.Request, req validatable, fn func(*embed.Window) error) {
	win := h.window(w, r)
	if win == nil {
		return
	}
	if !decodeJSON(w, r, req) {
		return
	}
	if err := fn(win); err != nil {
		writeError(w, "window action", err, slog.String("window", win.ID()), slog.String("path", r.URL.Path))
		return
	}
	writeJSON(w, http.StatusOK, win.View())
}

// FocusIn handles POST /api/focus/in.
//
//	@Summary		Report that a host node gained focus
//	@Tags			focus
//	@Accept			json
//	@Produce		json
//	@Param			body	body		FocusRequest	true	"Focused node"
//	@Success		200		{object}	FocusResponse
//	@Security		BearerAuth
//	@Router			/focus/in [post]
func (h *Handler) FocusIn(w http.ResponseWriter, r *http.Request) {
	var req FocusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.session.FocusIn(req.Node)
	writeJSON(w, http.StatusOK, FocusResponse{Window: h.session.Focused()})
}

// FocusOut handles POST /api/focus/out.
//
//	@Summary		Report that a host node lost focus
//	@Tags			focus
//	@Accept			json
//	@Produce		json
//	@Param			body	body		FocusRequest	true	"Node losing focus and the node gaining it"
//	@Success		200		{object}	FocusResponse
//	@Security		BearerAuth
//	@Router			/focus/out [post]
func (h *Handler) FocusOut(w http.ResponseWriter, r *http.Request) {
	var req FocusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.session.FocusOut(req.Node, req.Related)
	writeJSON(w, http.StatusOK, FocusResponse{Window: h.session.Focused()})
}

// Focused handles GET /api/focus.
//
//	@Summary		Get the focused window
//	@Tags			focus
//	@Produce		json
//	@Success		200	{object}	FocusResponse
//	@Security		BearerAuth
//	@Router			/focus [get]
func (h *Handler) Focused(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, FocusResponse{Window: h.session.Focused()})
}

// ListCommands handles GET /api/commands.
//
//	@Summary		List registered editor commands
//	@Tags			commands
//	@Produce		json
//	@Success		200	{array}	command.Command
//	@Security		BearerAuth
//	@Router			/commands [get]
func (h *Handler) ListCommands(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Pipeline().Commands())
}

// ExecuteCommand handles POST /api/commands/{id}.
//
//	@Summary		Run an editor command against the focused editor
//	@Tags			commands
//	@Produce		json
//	@Param			id	path		string	true	"Command id"
//	@Success		200	{object}	ExecuteResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/commands/{id} [post]
func (h *Handler) ExecuteCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	handled, err := h.session.Execute(id)
	if err != nil {
		writeError(w, "execute command", err, slog.String("command", id))
		return
	}
	writeJSON(w, http.StatusOK, ExecuteResponse{Handled: handled, Focused: h.session.Focused()})
}
