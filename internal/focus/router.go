package focus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/syncembed/internal/command"
)

// Resolver tries to run cmd against the focused window t. handled reports
// whether it took the command; result is the command's outcome.
type Resolver func(cmd *command.Command, t command.Target) (result, handled bool)

// TableResolver runs commands that have an entry in tbl.
func TableResolver(tbl *command.Table) Resolver {
	return func(cmd *command.Command, t command.Target) (bool, bool) {
		h, ok := tbl.Lookup(cmd.ID)
		if !ok {
			return false, false
		}
		return h(t), true
	}
}

// EditorCallbackResolver runs a command's generic editor callback against
// the focused window's surface instead of the host's active one.
func EditorCallbackResolver() Resolver {
	return func(cmd *command.Command, t command.Target) (bool, bool) {
		if cmd.EditorCallback == nil {
			return false, false
		}
		return cmd.EditorCallback(t.Editor()), true
	}
}

// Router redirects host commands to the focused window. Resolvers are tried
// in order; when none takes the command, one fails, or no window is focused,
// the host default runs.
type Router struct {
	registry  *Registry
	resolvers []Resolver
	logger    *slog.Logger

	mu     sync.Mutex
	remove func()
}

// NewRouter creates a router over registry. Without resolvers the chain is
// the command table followed by the editor callback.
func NewRouter(registry *Registry, tbl *command.Table, logger *slog.Logger, resolvers ...Resolver) *Router {
	if len(resolvers) == 0 {
		resolvers = []Resolver{TableResolver(tbl), EditorCallbackResolver()}
	}
	return &Router{registry: registry, resolvers: resolvers, logger: logger}
}

// Intercept is the command.Interceptor the router installs.
func (r *Router) Intercept(cmd *command.Command, next func() bool) bool {
	t, ok := r.registry.Focused()
	if !ok {
		return next()
	}
	for i, res := range r.resolvers {
		result, handled, err := r.try(res, cmd, t)
		if err != nil {
			r.logger.Error("focus: command failed",
				slog.String("command", cmd.ID),
				slog.Int("resolver", i),
				slog.String("error", err.Error()))
			return next()
		}
		if handled {
			r.logger.Debug("focus: command routed", slog.String("command", cmd.ID), slog.Int("resolver", i))
			return result
		}
	}
	return next()
}

// try runs one resolver, turning a panic into an error so a broken command
// never takes down the host dispatcher.
func (r *Router) try(res Resolver, cmd *command.Command, t command.Target) (result, handled bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("focus: %s: panic: %v", cmd.ID, p)
		}
	}()
	result, handled = res(cmd, t)
	return result, handled, nil
}

// Install registers the router on p. Installing twice is a no-op.
func (r *Router) Install(p *command.Pipeline) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.remove != nil {
		return
	}
	r.remove = p.Use(r.Intercept)
}

// Uninstall removes the router from the pipeline it was installed on.
func (r *Router) Uninstall() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.remove != nil {
		r.remove()
		r.remove = nil
	}
}
