package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	log "github.com/go-pkgz/lgr"
)

// ErrUnknownTool returned by Call for names not in the registry
var ErrUnknownTool = errors.New("unknown tool")

// Registry manages available tools for the agent
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool to the registry.
// Returns an error if a tool with the same name already exists
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = tool
	return nil
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, exists := r.tools[name]
	return tool, exists
}

// List returns all registered tool names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions converts all registered tools to OpenAI tool definition format, sorted by name
func (r *Registry) Definitions() []Definition {
	names := r.List()

	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]Definition, 0, len(names))
	for _, name := range names {
		tool := r.tools[name]
		res = append(res, Definition{
			Type:     "function",
			Function: Function{Name: tool.Name(), Description: tool.Description(), Parameters: tool.Parameters()},
		})
	}
	return res
}

// Call executes the named tool with raw json arguments
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (Result, error) {
	tool, ok := r.Get(name)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	res, err := tool.Execute(ctx, args)
	if err != nil {
		return Result{}, fmt.Errorf("tool %s failed: %w", name, err)
	}
	log.Printf("[DEBUG] tool %s called, error result: %v", name, res.IsError)
	return res, nil
}
