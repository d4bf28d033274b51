package command

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/starford/syncembed/internal/apperr"
	"github.com/starford/syncembed/internal/surface"
)

// ErrUnknownCommand is returned by Execute for ids nobody registered.
var ErrUnknownCommand = errors.New("unknown command")

// Command is a host command.
type Command struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Hotkey is informational, e.g. "Alt+2".
	Hotkey string `json:"hotkey,omitempty"`

	// Callback runs when the command does not need an editor.
	Callback func() bool `json:"-"`
	// EditorCallback runs against the active editor.
	EditorCallback func(ed surface.Editor) bool `json:"-"`
}

// Interceptor wraps command execution. Calling next continues down the
// chain and finally runs the host default.
type Interceptor func(cmd *Command, next func() bool) bool

type interceptorEntry struct {
	id int
	fn Interceptor
}

// Pipeline is the host's command dispatcher. Interceptors registered with Use
// run before the default handling, last registered outermost.
type Pipeline struct {
	mu           sync.RWMutex
	commands     map[string]*Command
	interceptors []interceptorEntry
	nextID       int
	active       surface.Editor
}

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{commands: make(map[string]*Command)}
}

// Register adds cmd. Ids must be unique.
func (p *Pipeline) Register(cmd Command) error {
	if cmd.ID == "" {
		return fmt.Errorf("command: register: empty id")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.commands[cmd.ID]; ok {
		return fmt.Errorf("command: register %s: %w", cmd.ID, apperr.ErrAlreadyExists)
	}
	c := cmd
	p.commands[cmd.ID] = &c
	return nil
}

// Unregister removes the command with id.
func (p *Pipeline) Unregister(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.commands, id)
}

// Commands lists registered commands by id.
func (p *Pipeline) Commands() []Command {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Command, 0, len(p.commands))
	for _, c := range p.commands {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetActiveEditor sets the editor default handling targets.
func (p *Pipeline) SetActiveEditor(ed surface.Editor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = ed
}

// ActiveEditor returns the host's default editor, which may be nil.
func (p *Pipeline) ActiveEditor() surface.Editor {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active
}

// Use installs an interceptor and returns its uninstall function.
func (p *Pipeline) Use(fn Interceptor) (remove func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.interceptors = append(p.interceptors, interceptorEntry{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			for i, e := range p.interceptors {
				if e.id == id {
					p.interceptors = append(p.interceptors[:i], p.interceptors[i+1:]...)
					return
				}
			}
		})
	}
}

// Execute runs the command with id through the interceptor chain.
func (p *Pipeline) Execute(id string) (bool, error) {
	p.mu.RLock()
	cmd, ok := p.commands[id]
	chain := make([]Interceptor, len(p.interceptors))
	for i, e := range p.interceptors {
		chain[i] = e.fn
	}
	active := p.active
	p.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("command: execute %s: %w", id, ErrUnknownCommand)
	}

	run := func() bool { return defaultRun(cmd, active) }
	for i := 0; i < len(chain); i++ {
		fn, next := chain[i], run
		run = func() bool { return fn(cmd, next) }
	}
	return run(), nil
}

func defaultRun(cmd *Command, active surface.Editor) bool {
	if cmd.EditorCallback != nil {
		if active == nil {
			return false
		}
		return cmd.EditorCallback(active)
	}
	if cmd.Callback != nil {
		return cmd.Callback()
	}
	return false
}
