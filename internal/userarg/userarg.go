// Package userarg implements the process-wide CLI-argument registration
// context consumed by user-argument nodes (C8). Grounded on
// rflow/userargument.py's _UserArgumentsContext/USER_ARGS_CONTEXT.
package userarg

import (
	"strings"
	"sync"
)

// Descriptor mirrors the kwargs the original passed through to
// argparse.add_argument: a default value, whether the flag is required,
// and a help string. The CLI layer (internal/cli) turns these into
// cobra flags.
type Descriptor struct {
	Name     string
	Default  any
	Required bool
	Help     string
}

// Context is a process-wide registry of user-argument descriptors plus
// the values parsed from the most recent CLI invocation.
type Context struct {
	mu          sync.Mutex
	descriptors []Descriptor
	byName      map[string]int
	parsed      map[string]any
}

// Global is the default context, analogous to the original's
// module-level USER_ARGS_CONTEXT singleton. Prefer constructing your own
// Context in tests to avoid cross-test leakage.
var Global = New()

func New() *Context {
	return &Context{byName: make(map[string]int), parsed: make(map[string]any)}
}

// sanitize turns a CLI-flag style name ("--learning-rate") into an
// attribute-safe key ("learning_rate"), mirroring the original's
// dash-to-underscore rule.
func sanitize(name string) string {
	n := strings.TrimLeft(name, "-")
	return strings.ReplaceAll(n, "-", "_")
}

// Add registers a descriptor, deduping by sanitized name, and returns
// the sanitized attribute name.
func (c *Context) Add(d Descriptor) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := sanitize(d.Name)
	if idx, ok := c.byName[key]; ok {
		c.descriptors[idx] = d
		return key
	}
	c.byName[key] = len(c.descriptors)
	c.descriptors = append(c.descriptors, d)
	return key
}

// Descriptors returns all registered descriptors in registration order.
func (c *Context) Descriptors() []Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Descriptor, len(c.descriptors))
	copy(out, c.descriptors)
	return out
}

// RegisterParsed stores the values parsed for this invocation, keyed by
// sanitized name.
func (c *Context) RegisterParsed(values map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range values {
		c.parsed[sanitize(k)] = v
	}
}

// Get returns the value parsed for name in the current invocation, and
// whether it was set.
func (c *Context) Get(name string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.parsed[sanitize(name)]
	return v, ok
}
