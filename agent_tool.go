package datagentic

import (
	"github.com/nexxia-ai/datagentic/ai"
)

// toolCallGroup collects the responses for one assistant message that
// requested several tools, so they are appended to history together.
type toolCallGroup struct {
	aiMessage *ai.AIMessage
	responses map[string]ai.ToolMessage
}

type ValidationResult struct {
	Values           any
	Message          string
	ValidationErrors []error
}

// AgentTool is a tool the model can call during a run. Validate parses and
// checks the raw arguments; NewExecute runs with the validation result and
// has access to the run, including its dataset and execution budget.
type AgentTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema,omitempty"`
	Validate    func(run *AgentRun, args map[string]interface{}) (ValidationResult, error)
	NewExecute  func(run *AgentRun, validationResult ValidationResult) (*ai.ToolResult, error)
}

// validateInput is always called before calling the tool
func (t *AgentTool) validateInput(run *AgentRun, args map[string]interface{}) (ValidationResult, error) {
	if t.Validate == nil {
		return ValidationResult{Values: args}, nil
	}
	return t.Validate(run, args)
}

// call is invoked with the result of the validation step
func (t *AgentTool) call(run *AgentRun, validationResult ValidationResult) (*ai.ToolResult, error) {
	if t.NewExecute == nil {
		return nil, nil
	}
	return t.NewExecute(run, validationResult)
}

func (t *AgentTool) toTool(run *AgentRun) ai.Tool {
	return ai.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.InputSchema,
		Execute: func(args map[string]interface{}) (*ai.ToolResult, error) {
			vr, err := t.validateInput(run, args)
			if err != nil {
				return nil, err
			}
			return t.call(run, vr)
		},
	}
}

// WrapTool creates an AgentTool from an ai.Tool
func WrapTool(tool ai.Tool) AgentTool {
	return AgentTool{
		Name:        tool.Name,
		Description: tool.Description,
		InputSchema: tool.InputSchema,
		NewExecute: func(run *AgentRun, validationResult ValidationResult) (*ai.ToolResult, error) {
			args, _ := validationResult.Values.(map[string]interface{})
			return tool.Execute(args)
		},
	}
}
