package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Sync blocks.
	r.Post("/blocks", h.RenderBlock)
	r.Get("/blocks/{id}", h.GetBlock)
	r.Delete("/blocks/{id}", h.CloseBlock)

	// Embedded windows.
	r.Get("/windows", h.ListWindows)
	r.Route("/windows/{id}", func(r chi.Router) {
		r.Get("/", h.GetWindow)
		r.Delete("/", h.CloseWindow)
		r.Post("/reveal", h.Reveal)
		r.Post("/flush", h.Flush)
		r.Post("/edit", h.Edit)
		r.Post("/key", h.Key)
		r.Post("/type", h.Type)
		r.Post("/paste", h.Paste)
		r.Post("/select", h.Select)
		r.Post("/click", h.Click)
		r.Post("/scroll", h.Scroll)
	})

	// Focus and commands.
	r.Get("/focus", h.Focused)
	r.Post("/focus/in", h.FocusIn)
	r.Post("/focus/out", h.FocusOut)
	r.Get("/commands", h.ListCommands)
	r.Post("/commands/{id}", h.ExecuteCommand)

	// Notes and one-shot section access.
	r.Get("/notes", h.ListNotes)
	r.Get("/outline/*", h.Outline)
	r.Get("/sections/*", h.GetSection)
	r.Put("/sections/*", h.PutSection)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
