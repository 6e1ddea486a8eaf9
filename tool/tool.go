// Package tool holds the fixed set of named capabilities the model runtime
// may call during generation, and the registry used to look them up.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"
)

// Handle describes a single callable capability. Handles are immutable after
// registry construction.
type Handle struct {
	// Name uniquely identifies the tool within a registry.
	Name string
	// Description tells the model when to call the tool.
	Description string
	// Schema describes the tool's parameters.
	Schema *jsonschema.Schema
	// Invoke runs the tool with JSON-encoded arguments and returns its
	// text output.
	Invoke func(ctx context.Context, args json.RawMessage) (string, error)
}

// InvocationError reports a tool that failed during a generation call.
type InvocationError struct {
	Tool string
	Err  error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// Registry holds a fixed set of tools keyed by name.
type Registry struct {
	handles map[string]Handle
}

// NewRegistry builds a registry from the given handles. A handle whose name
// was already registered replaces the earlier one.
func NewRegistry(handles ...Handle) *Registry {
	r := &Registry{handles: make(map[string]Handle, len(handles))}
	for _, h := range handles {
		r.handles[h.Name] = h
	}
	return r
}

// ListNames returns all registered tool names sorted ascending.
func (r *Registry) ListNames() []string {
	names := make([]string, 0, len(r.handles))
	for name := range r.handles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Find returns the handle with the given name.
func (r *Registry) Find(name string) (Handle, bool) {
	h, ok := r.handles[name]
	return h, ok
}

// ResolveAll maps names to handles, silently dropping unknown names.
// The lenient lookup is deliberate: enabling a tool that does not exist is
// not an error, it just enables nothing.
func (r *Registry) ResolveAll(names []string) []Handle {
	handles := make([]Handle, 0, len(names))
	for _, name := range names {
		if h, ok := r.handles[name]; ok {
			handles = append(handles, h)
		}
	}
	return handles
}
