package datagentic

import (
	"fmt"
	"strings"
	"sync"

	"github.com/nexxia-ai/datagentic/ai"
)

// Registry holds the tools a run can dispatch, keyed by exact name. Lookups
// are case sensitive; the model must use tool names verbatim.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]AgentTool
	order  []string
}

// NewRegistry constructs a registry seeded with the provided tools. Seeding
// errors (empty or duplicate names) are returned with the partial registry.
func NewRegistry(tools ...AgentTool) (*Registry, error) {
	r := &Registry{byName: make(map[string]AgentTool)}
	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			return r, err
		}
	}
	return r, nil
}

// Register adds a tool. Duplicate names return an error.
func (r *Registry) Register(tool AgentTool) error {
	name := strings.TrimSpace(tool.Name)
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if name != tool.Name {
		return fmt.Errorf("tool name %q has surrounding whitespace", tool.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.byName[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the tool registered under exactly name.
func (r *Registry) Lookup(name string) (AgentTool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.byName[name]
	if !ok {
		return AgentTool{}, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return tool, nil
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []AgentTool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]AgentTool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.byName[name])
	}
	return tools
}

// Dispatch validates and runs one tool by name, outside a model turn. Unlike
// the run loop, which feeds unknown names and validation failures back to the
// model as tool errors, Dispatch surfaces them to the caller.
func (r *Registry) Dispatch(run *AgentRun, name string, args map[string]interface{}) (*ai.ToolResult, error) {
	tool, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	vr, err := tool.validateInput(run, args)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	return tool.call(run, vr)
}
