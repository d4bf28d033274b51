// Package focus tracks which embedded window holds input focus and routes
// host commands to it.
package focus

import (
	"strings"
	"sync"

	"github.com/starford/syncembed/internal/command"
)

// Node is an element of the host's containment tree.
type Node interface {
	// Parent returns the containing element, or nil at the root.
	Parent() Node
}

// Path is a Node addressed by slash-separated element ids, e.g.
// "note.md/block-0/embed-2/editor". Its parent drops the last segment.
type Path string

// Parent returns the path without its last segment.
func (p Path) Parent() Node {
	i := strings.LastIndexByte(string(p), '/')
	if i <= 0 {
		return nil
	}
	return p[:i]
}

// Registry is the single focused-window slot plus the set of nodes that host
// a window. One registry lives for one activation of the engine.
type Registry struct {
	mu      sync.Mutex
	bound   map[Node]command.Target
	focused Node
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bound: make(map[Node]command.Target)}
}

// Bind records that node hosts the window t.
func (r *Registry) Bind(node Node, t command.Target) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bound[node] = t
}

// Unbind forgets node and clears focus if it was the focused window.
func (r *Registry) Unbind(node Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bound, node)
	if r.focused == node {
		r.focused = nil
	}
}

// Resolve walks from node up its ancestors and returns the first bound one.
func (r *Registry) Resolve(node Node) (Node, command.Target, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveLocked(node)
}

func (r *Registry) resolveLocked(node Node) (Node, command.Target, bool) {
	for n := node; n != nil; n = n.Parent() {
		if t, ok := r.bound[n]; ok {
			return n, t, true
		}
	}
	return nil, nil, false
}

// FocusIn handles a focus-entered signal. Focus moves only when node lies
// inside a window.
func (r *Registry) FocusIn(node Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, _, ok := r.resolveLocked(node); ok {
		r.focused = n
	}
}

// FocusOut handles a focus-left signal. related is the element receiving
// focus, possibly nil. Focus is cleared unless related is inside a window.
func (r *Registry) FocusOut(node Node, related Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if related != nil {
		if _, _, ok := r.resolveLocked(related); ok {
			return
		}
	}
	r.focused = nil
}

// Focused returns the focused window, if any.
func (r *Registry) Focused() (command.Target, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.focused == nil {
		return nil, false
	}
	t, ok := r.bound[r.focused]
	return t, ok
}

// FocusedNode returns the node of the focused window, if any.
func (r *Registry) FocusedNode() (Node, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.focused, r.focused != nil
}

// Clear drops focus and every binding.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.focused = nil
	r.bound = make(map[Node]command.Target)
}
