package event

import (
	"github.com/nexxia-ai/datagentic/ai"
)

// RunState tracks the lifecycle of an agent run. A run moves from Received
// to Planning, loops through ToolDispatch while the model requests tools,
// reaches Responding when the model produces a final answer, and ends in
// Done or Failed.
type RunState string

const (
	StateReceived     RunState = "received"
	StatePlanning     RunState = "planning"
	StateToolDispatch RunState = "tool_dispatch"
	StateResponding   RunState = "responding"
	StateDone         RunState = "done"
	StateFailed       RunState = "failed"
)

// Event interface identifies types that can be sent to the event channel.
// Events are used to notify the caller of the execution of the agent's actions.
// For example, when the agent calls a tool, a ToolEvent is sent to the event channel.
//
// The caller will typically use a switch statement to handle the event type.
// For example:
//
//	 for event := range run.Next() {
//			switch ev := event.(type) {
//			case *StateEvent:
//				fmt.Println(ev.State)
//			case *ContentEvent:
//				fmt.Println(ev.Content)
//			case *ToolEvent:
//				fmt.Println(ev.ToolName)
//			case *ToolResponseEvent:
//				fmt.Println(ev.Content)
//			case *ArtifactEvent:
//				os.WriteFile(ev.Name, ev.Data, 0o644)
//			case *ErrorEvent:
//				fmt.Println(ev.Err)
//			}
//		}
type Event interface {
	ID() string
}

// StateEvent is emitted on every run state transition.
type StateEvent struct {
	RunID     string
	AgentName string
	SessionID string
	State     RunState
}

func (e *StateEvent) ID() string { return e.RunID }

type LLMCallEvent struct {
	RunID     string
	AgentName string
	SessionID string
	Message   string
	Tools     []ai.Tool
}

func (e *LLMCallEvent) ID() string { return e.RunID }

type ContentEvent struct {
	RunID     string
	AgentName string
	SessionID string
	Content   string
}

func (e *ContentEvent) ID() string { return e.RunID }

type ToolResponseEvent struct {
	RunID      string
	AgentName  string
	SessionID  string
	ToolCallID string
	ToolName   string
	Content    string
}

func (e *ToolResponseEvent) ID() string { return e.RunID }

type ToolEvent struct {
	RunID     string
	EventID   string
	AgentName string
	SessionID string
	ToolName  string
	Args      map[string]any
}

func (e *ToolEvent) ID() string { return e.RunID }

type ThinkingEvent struct {
	RunID     string
	AgentName string
	SessionID string
	Thought   string
}

func (e *ThinkingEvent) ID() string { return e.RunID }

// ArtifactEvent carries a binary payload produced by a tool, such as a
// rendered chart. The payload lives in memory only; persisting or displaying
// it is the caller's business.
type ArtifactEvent struct {
	RunID      string
	AgentName  string
	SessionID  string
	ToolCallID string
	Name       string
	MimeType   string
	Data       []byte
}

func (e *ArtifactEvent) ID() string { return e.RunID }

type ErrorEvent struct {
	RunID     string
	AgentName string
	SessionID string
	Err       error
}

func (e *ErrorEvent) ID() string { return e.RunID }
