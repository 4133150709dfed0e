package datagentic

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nexxia-ai/datagentic/ai"
	"github.com/nexxia-ai/datagentic/dataset"
)

// Defaults for the run bounds. Each is used when the corresponding Agent
// field is zero.
const (
	DefaultMaxLLMCalls     = 8
	DefaultMaxHistory      = 20
	DefaultSampleThreshold = 50
	DefaultSampleRows      = 5
	DefaultExecTimeout     = 30 * time.Second
)

// Agent wires a model, a dataset and a tool set into runnable configuration.
// The zero bounds fall back to the package defaults, so a minimal agent only
// needs Model and Dataset.
type Agent struct {
	Model   *ai.Model
	Name    string
	ID      string
	Session *Session

	Description  string
	Instructions string

	// Dataset is the single table this agent answers questions about.
	Dataset *dataset.Dataset

	AgentTools []AgentTool

	// MaxLLMCalls bounds the model calls per run. A run that reaches the
	// bound without a final answer fails with ErrIterationLimit.
	MaxLLMCalls int

	// MaxHistory bounds the retained message history.
	MaxHistory int

	// SampleThreshold is the row count above which prompts carry only
	// SampleRows rows of the dataset instead of all of them.
	SampleThreshold int
	SampleRows      int

	// ExecTimeout bounds each generated-code execution.
	ExecTimeout time.Duration

	Stream         bool
	Interceptors   []Interceptor
	ContextManager ContextManager
	LogLevel       slog.Level
}

// Run starts an agent run for the given user message and returns immediately.
// Consume events via Next or block via Wait.
func (a *Agent) Run(message string) (*AgentRun, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Name == "" {
		a.Name = a.ID
	}
	run := newAgentRun(*a, message)
	run.start()
	return run, nil
}

// RunAndWait runs to completion and returns the final answer.
func (a *Agent) RunAndWait(message string) (string, error) {
	run, err := a.Run(message)
	if err != nil {
		return "", err
	}
	return run.Wait(0)
}

// Dispatch runs one registered tool directly, without a model conversation.
// UIs use this for quick actions such as a schema overview or a one-click
// summary. Unknown names return ErrUnknownTool.
func (a *Agent) Dispatch(ctx context.Context, name string, args map[string]interface{}) (*ai.ToolResult, error) {
	agent := *a
	agent.Session = NewSession(ctx)
	defer agent.Session.Cancel()

	run := newAgentRun(agent, "")
	return run.registry.Dispatch(run, name, args)
}
