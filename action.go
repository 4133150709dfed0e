package datagentic

type action interface {
	target() string
}

type llmCallAction struct {
	Message string
}

func (a *llmCallAction) target() string { return "" }

type toolCallAction struct {
	ToolCallID       string
	ToolName         string
	Args             map[string]interface{}
	ValidationResult ValidationResult
	Group            *toolCallGroup
}

func (a *toolCallAction) target() string { return a.ToolCallID }

type toolResponseAction struct {
	request  *toolCallAction
	response string
}

func (a *toolResponseAction) target() string { return a.request.ToolCallID }

type stopAction struct {
	Error error
}

func (a *stopAction) target() string { return "" }
