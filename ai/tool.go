package ai

import (
	"fmt"
)

// Tool is the wire-level tool definition handed to a provider. InputSchema
// is a JSON schema object describing the arguments.
type Tool struct {
	Name        string                                                 `json:"name"`
	Description string                                                 `json:"description"`
	InputSchema map[string]interface{}                                 `json:"inputSchema,omitempty"`
	Execute     func(args map[string]interface{}) (*ToolResult, error) `json:"-"`
}

// Call executes the tool with the given arguments
func (t *Tool) Call(args map[string]interface{}) (*ToolResult, error) {
	if t.Execute == nil {
		return nil, fmt.Errorf("tool %s has no execute function", t.Name)
	}

	return t.Execute(args)
}
