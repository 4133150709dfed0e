package datagentic

import (
	"github.com/nexxia-ai/datagentic/ai"
)

// Interceptor hooks into a run around model and tool calls. Implementations
// may rewrite the payload passing through or return an error to abort the
// run. The run loop always appends its own logging interceptor last.
type Interceptor interface {
	// BeforeCall runs before each model call with the outgoing messages
	// and tool definitions.
	BeforeCall(run *AgentRun, messages []ai.Message, tools []ai.Tool) ([]ai.Message, []ai.Tool, error)

	// AfterCall runs after the model responds.
	AfterCall(run *AgentRun, request []ai.Message, response ai.AIMessage) (ai.AIMessage, error)

	// BeforeToolCall runs after argument validation, before the tool executes.
	BeforeToolCall(run *AgentRun, toolName string, toolCallID string, validationResult ValidationResult) (ValidationResult, error)

	// AfterToolCall runs once the tool execution completes.
	AfterToolCall(run *AgentRun, toolName string, toolCallID string, validationResult ValidationResult, result *ai.ToolResult) (*ai.ToolResult, error)
}
