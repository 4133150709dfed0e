package datagentic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/nexxia-ai/datagentic/ai"
	"github.com/nexxia-ai/datagentic/dataset"
	"github.com/nexxia-ai/datagentic/event"
)

// AgentRun is one execution of an agent over a user message. A processing
// goroutine alternates model calls and tool dispatches until the model
// produces a final answer, a bound trips or the run is cancelled. Progress is
// published on the event channel.
type AgentRun struct {
	id      string
	agent   Agent
	session *Session
	model   *ai.Model

	ctx        context.Context
	cancelFunc context.CancelFunc

	registry   *Registry
	msgHistory []ai.Message

	contextManager ContextManager
	interceptors   []Interceptor

	eventQueue  chan event.Event
	actionQueue chan action

	processedToolCallIDs map[string]bool // tool calls already handled from streaming chunks
	currentStreamGroup   *toolCallGroup  // group shared between chunks and the final message

	userMessage  string
	state        event.RunState
	llmCallCount int
	maxLLMCalls  int

	// rejectedRetried records that the one reduced-prompt retry after a
	// provider rejection has been spent. reduced stays set for the rest of
	// the run so the retried payload is not immediately regrown.
	rejectedRetried bool
	reduced         bool

	Logger *slog.Logger
}

func (r *AgentRun) ID() string {
	return r.id
}

func (r *AgentRun) Session() *Session {
	return r.session
}

func (r *AgentRun) Model() *ai.Model {
	return r.model
}

// Dataset returns the table this run answers questions about.
func (r *AgentRun) Dataset() *dataset.Dataset {
	return r.agent.Dataset
}

// Context returns the run context. Tool executions should honor it.
func (r *AgentRun) Context() context.Context {
	return r.ctx
}

// ExecTimeout is the per-execution budget for generated code.
func (r *AgentRun) ExecTimeout() time.Duration {
	if r.agent.ExecTimeout > 0 {
		return r.agent.ExecTimeout
	}
	return DefaultExecTimeout
}

func (r *AgentRun) sampleThreshold() int {
	if r.agent.SampleThreshold > 0 {
		return r.agent.SampleThreshold
	}
	return DefaultSampleThreshold
}

func (r *AgentRun) sampleRows() int {
	if r.agent.SampleRows > 0 {
		return r.agent.SampleRows
	}
	return DefaultSampleRows
}

func (r *AgentRun) maxHistory() int {
	if r.agent.MaxHistory > 0 {
		return r.agent.MaxHistory
	}
	return DefaultMaxHistory
}

func (r *AgentRun) reducedPrompt() bool {
	return r.reduced
}

func (r *AgentRun) Cancel() {
	if r.cancelFunc != nil {
		r.cancelFunc()
	}
}

func newAgentRun(a Agent, message string) *AgentRun {
	runID := uuid.New().String()
	session := a.Session
	if session == nil {
		session = NewSession(context.Background())
	}
	runCtx, cancelFunc := context.WithCancel(session.Context)
	model := a.Model
	if model == nil {
		model = ai.NewDummyModel(func(ctx context.Context, messages []ai.Message, tools []ai.Tool) (ai.AIMessage, error) {
			return ai.AIMessage{}, fmt.Errorf("agent model is not set")
		})
	}

	// Build interceptor chain: copy from agent, logger always last
	interceptors := make([]Interceptor, len(a.Interceptors))
	copy(interceptors, a.Interceptors)
	interceptors = append(interceptors, newLoggerInterceptor())

	maxLLMCalls := DefaultMaxLLMCalls
	if a.MaxLLMCalls != 0 {
		maxLLMCalls = a.MaxLLMCalls
	}

	if a.ContextManager == nil {
		a.ContextManager = NewBasicContextManager()
	}

	run := &AgentRun{
		id:                   runID,
		agent:                a,
		model:                model,
		session:              session,
		ctx:                  runCtx,
		cancelFunc:           cancelFunc,
		userMessage:          message,
		interceptors:         interceptors,
		maxLLMCalls:          maxLLMCalls,
		state:                event.StateReceived,
		eventQueue:           make(chan event.Event, 100),
		actionQueue:          make(chan action, 100),
		processedToolCallIDs: make(map[string]bool),
		contextManager:       a.ContextManager,
		Logger:               slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: a.LogLevel})).With("agent", a.Name),
	}

	run.registry = &Registry{byName: make(map[string]AgentTool)}
	for _, tool := range a.AgentTools {
		if err := run.registry.Register(tool); err != nil {
			run.Logger.Warn("skipping tool", "tool", tool.Name, "error", err)
		}
	}
	return run
}

func (r *AgentRun) start() {
	// Queue the initial event and action before the loop starts so it can
	// never close the queues underneath them.
	r.queueEvent(&event.StateEvent{RunID: r.id, AgentName: r.agent.Name, SessionID: r.session.ID, State: event.StateReceived})
	r.queueAction(&llmCallAction{Message: r.userMessage})

	// goroutine to read the action queue and process actions.
	// it terminates when a stop action is processed or the context ends.
	go r.processLoop()
}

func (r *AgentRun) stop() {
	if r.cancelFunc != nil {
		r.cancelFunc()
	}
	close(r.eventQueue)
	close(r.actionQueue)
}

// Wait blocks until the run finishes and returns the final answer. A positive
// d bounds the wait; when it trips, the run is cancelled.
func (r *AgentRun) Wait(d time.Duration) (string, error) {
	var timeout <-chan time.Time
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		timeout = t.C
	}

	content := ""
	var err error
	for {
		select {
		case evt, ok := <-r.eventQueue:
			if !ok {
				return content, err
			}
			switch ev := evt.(type) {
			case *event.ContentEvent:
				if r.ID() == ev.RunID {
					content += ev.Content
				}
			case *event.ErrorEvent:
				err = ev.Err
			}
		case <-timeout:
			r.Cancel()
			return content, fmt.Errorf("wait timed out after %s", d)
		}
	}
}

// Next exposes the event stream. The channel closes when the run finishes.
func (r *AgentRun) Next() <-chan event.Event {
	return r.eventQueue
}

func (r *AgentRun) setState(s event.RunState) {
	if r.state == s {
		return
	}
	r.state = s
	r.queueEvent(&event.StateEvent{RunID: r.id, AgentName: r.agent.Name, SessionID: r.session.ID, State: s})
}

func (r *AgentRun) processLoop() {
	for {
		select {
		case act, ok := <-r.actionQueue:
			if !ok {
				r.runStopAction(&stopAction{Error: fmt.Errorf("action queue closed unexpectedly")})
				return
			}
			switch act := act.(type) {
			case *stopAction:
				r.runStopAction(act)
				return

			case *llmCallAction:
				r.runLLMCallAction(act.Message)

			case *toolResponseAction:
				r.runToolResponseAction(act.request, act.response)

			case *toolCallAction:
				r.runToolCallAction(act)

			default:
				panic(fmt.Sprintf("unknown action: %T", act))
			}

		case <-r.ctx.Done():
			r.runStopAction(&stopAction{Error: fmt.Errorf("run cancelled: %w", r.ctx.Err())})
			return
		}
	}
}

func (r *AgentRun) runStopAction(act *stopAction) {
	if act.Error != nil {
		r.setState(event.StateFailed)
		r.Logger.Error("stopping agent", "error", act.Error)
		r.queueEvent(&event.ErrorEvent{
			RunID:     r.id,
			AgentName: r.agent.Name,
			SessionID: r.session.ID,
			Err:       act.Error,
		})
	} else {
		r.setState(event.StateDone)
	}

	r.stop()
}

func (r *AgentRun) runLLMCallAction(message string) {
	// Check limit before making any LLM call
	if r.maxLLMCalls > 0 && r.llmCallCount >= r.maxLLMCalls {
		err := fmt.Errorf("%w: %d model calls (configured limit: %d)",
			ErrIterationLimit, r.llmCallCount, r.maxLLMCalls)
		r.queueAction(&stopAction{Error: err})
		return
	}
	r.llmCallCount++

	r.setState(event.StatePlanning)

	// Clear processed tool call IDs and stream group for this new LLM call
	r.processedToolCallIDs = make(map[string]bool)
	r.currentStreamGroup = nil

	agentTools := r.registry.Tools()
	tools := make([]ai.Tool, len(agentTools))
	for i := range agentTools {
		tools[i] = agentTools[i].toTool(r)
	}

	r.queueEvent(&event.LLMCallEvent{
		RunID:     r.id,
		AgentName: r.agent.Name,
		SessionID: r.session.ID,
		Message:   message,
		Tools:     tools,
	})

	msgs, err := r.contextManager.BuildPrompt(r, r.msgHistory, tools)
	if err != nil {
		r.queueAction(&stopAction{Error: err})
		return
	}

	// Chain BeforeCall interceptors
	currentMsgs := msgs
	currentTools := tools
	for _, interceptor := range r.interceptors {
		currentMsgs, currentTools, err = interceptor.BeforeCall(r, currentMsgs, currentTools)
		if err != nil {
			r.queueAction(&stopAction{Error: fmt.Errorf("interceptor rejected: %w", err)})
			return
		}
	}

	var respMsg ai.AIMessage
	if r.agent.Stream {
		respMsg, err = r.model.Stream(r.ctx, currentMsgs, currentTools, func(chunk ai.AIMessage) error {
			r.handleAIMessage(chunk, true)
			return nil
		})
	} else {
		respMsg, err = r.model.Call(r.ctx, currentMsgs, currentTools)
	}

	if err != nil {
		// A rejected request gets exactly one retry with a reduced prompt:
		// no history and a two-row dataset sample.
		if errors.Is(err, ai.ErrRejected) && !r.rejectedRetried {
			r.rejectedRetried = true
			r.reduced = true
			r.Logger.Warn("provider rejected request, retrying reduced", "error", err)
			r.queueAction(&llmCallAction{Message: r.userMessage})
			return
		}
		r.queueAction(&stopAction{Error: err})
		return
	}

	// Chain AfterCall interceptors
	currentResp := respMsg
	for _, interceptor := range r.interceptors {
		currentResp, err = interceptor.AfterCall(r, currentMsgs, currentResp)
		if err != nil {
			r.queueAction(&stopAction{Error: fmt.Errorf("interceptor error: %w", err)})
			return
		}
	}

	r.handleAIMessage(currentResp, false)
}

func (r *AgentRun) runToolCallAction(act *toolCallAction) {
	r.setState(event.StateToolDispatch)

	tool, err := r.registry.Lookup(act.ToolName)
	if err != nil {
		// answered in-band so the model can correct itself
		r.queueAction(&toolResponseAction{
			request:  act,
			response: fmt.Sprintf("tool not found: %s", act.ToolName),
		})
		return
	}

	r.queueEvent(&event.ToolEvent{
		RunID:     r.id,
		EventID:   uuid.New().String(),
		AgentName: r.agent.Name,
		SessionID: r.session.ID,
		ToolName:  act.ToolName,
		Args:      act.Args,
	})

	currentValidationResult := act.ValidationResult
	for _, interceptor := range r.interceptors {
		currentValidationResult, err = interceptor.BeforeToolCall(r, act.ToolName, act.ToolCallID, currentValidationResult)
		if err != nil {
			r.queueAction(&toolResponseAction{request: act, response: fmt.Sprintf("interceptor rejected tool call: %v", err)})
			return
		}
	}

	result, err := tool.call(r, currentValidationResult)
	if err != nil {
		r.queueAction(&toolResponseAction{request: act, response: fmt.Sprintf("tool execution error: %v", err)})
		return
	}

	currentResult := result
	for _, interceptor := range r.interceptors {
		currentResult, err = interceptor.AfterToolCall(r, act.ToolName, act.ToolCallID, currentValidationResult, currentResult)
		if err != nil {
			r.queueAction(&toolResponseAction{request: act, response: fmt.Sprintf("interceptor error after tool call: %v", err)})
			return
		}
	}

	r.queueAction(&toolResponseAction{request: act, response: r.formatToolResponse(act, currentResult)})
}

// formatToolResponse flattens a tool result into the text sent back to the
// model. Image payloads are published as ArtifactEvents and replaced by a
// short placeholder; raw bytes never enter the prompt.
func (r *AgentRun) formatToolResponse(act *toolCallAction, result *ai.ToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	parts := make([]string, 0, len(result.Content))
	for _, item := range result.Content {
		if item.Type == "image" {
			data, _ := item.Content.([]byte)
			if len(data) == 0 {
				continue
			}
			r.queueEvent(&event.ArtifactEvent{
				RunID:      r.id,
				AgentName:  r.agent.Name,
				SessionID:  r.session.ID,
				ToolCallID: act.ToolCallID,
				Name:       artifactName(act.ToolName, act.ToolCallID),
				MimeType:   "image/png",
				Data:       data,
			})
			parts = append(parts, fmt.Sprintf("[image] %s rendered a %d byte PNG; it was delivered to the user", act.ToolName, len(data)))
			continue
		}

		segment := stringifyToolContent(item.Content)
		if segment == "" {
			continue
		}
		if item.Type != "" && item.Type != "text" {
			segment = fmt.Sprintf("[%s] %s", item.Type, segment)
		}
		parts = append(parts, segment)
	}

	return strings.Join(parts, "\n")
}

func artifactName(toolName, toolCallID string) string {
	id := toolCallID
	if id == "" {
		id = uuid.New().String()
	}
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s-%s.png", toolName, id)
}

func stringifyToolContent(content any) string {
	switch v := content.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		if utf8.Valid(v) {
			return string(v)
		}
		return fmt.Sprintf("0x%x", v)
	case fmt.Stringer:
		return v.String()
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}

func (r *AgentRun) runToolResponseAction(act *toolCallAction, content string) {
	toolMsg := ai.ToolMessage{
		Role:       ai.ToolRole,
		Content:    content,
		ToolCallID: act.ToolCallID,
		ToolName:   act.ToolName,
	}
	act.Group.responses[act.ToolCallID] = toolMsg

	// Don't check completion while streaming (checked when the final message arrives)
	if r.currentStreamGroup != nil && r.currentStreamGroup == act.Group {
		return
	}

	if len(act.Group.responses) == len(act.Group.aiMessage.ToolCalls) {
		r.completeToolCallGroup(act.Group)
	}
}

// completeToolCallGroup appends the group's responses to history, publishes
// them and queues the next planning turn.
func (r *AgentRun) completeToolCallGroup(group *toolCallGroup) {
	for _, tc := range group.aiMessage.ToolCalls {
		response, exists := group.responses[tc.ID]
		if !exists {
			continue
		}
		r.msgHistory = append(r.msgHistory, response)
		r.queueEvent(&event.ToolResponseEvent{
			RunID:      r.id,
			AgentName:  r.agent.Name,
			SessionID:  r.session.ID,
			ToolCallID: response.ToolCallID,
			ToolName:   response.ToolName,
			Content:    response.Content,
		})
	}
	r.trimHistory()

	// Notify any content from the AI message
	if group.aiMessage.Content != "" {
		r.queueEvent(&event.ContentEvent{
			RunID:     r.id,
			AgentName: r.agent.Name,
			SessionID: r.session.ID,
			Content:   group.aiMessage.Content,
		})
	}

	r.queueAction(&llmCallAction{Message: r.userMessage})
}

// trimHistory caps the retained history at the configured bound. The window
// never starts with an orphan tool response, since tool messages only make
// sense after the assistant message that requested them.
func (r *AgentRun) trimHistory() {
	max := r.maxHistory()
	if len(r.msgHistory) <= max {
		return
	}
	trimmed := r.msgHistory[len(r.msgHistory)-max:]
	for len(trimmed) > 0 {
		if toolMsg, ok := trimmed[0].(ai.ToolMessage); ok && toolMsg.Role == ai.ToolRole {
			trimmed = trimmed[1:]
			continue
		}
		break
	}
	r.msgHistory = append([]ai.Message(nil), trimmed...)
}

// handleAIMessage handles the response from the LLM, whether it's a complete message or a chunk
func (r *AgentRun) handleAIMessage(msg ai.AIMessage, isChunk bool) {
	// only fire events if not streaming or if this is a chunk in streaming.
	// do not fire event for the final message when streaming to prevent duplicate content
	if !r.agent.Stream || isChunk {
		if msg.Think != "" {
			r.queueEvent(&event.ThinkingEvent{
				RunID:     r.id,
				AgentName: r.agent.Name,
				SessionID: r.session.ID,
				Thought:   msg.Think,
			})
		}

		if msg.Content != "" {
			r.queueEvent(&event.ContentEvent{
				RunID:     r.id,
				AgentName: r.agent.Name,
				SessionID: r.session.ID,
				Content:   msg.Content,
			})
		}
	}

	// Process tool calls from chunks immediately, tracking them to avoid duplicates
	if isChunk {
		if len(msg.ToolCalls) > 0 {
			if r.currentStreamGroup == nil {
				chunkMsg := ai.AIMessage{
					Role:      msg.Role,
					ToolCalls: msg.ToolCalls,
				}
				r.currentStreamGroup = &toolCallGroup{
					aiMessage: &chunkMsg,
					responses: make(map[string]ai.ToolMessage),
				}
			}
			r.processToolCallsFromChunk(msg.ToolCalls)
		}
		return
	}

	// not a chunk: the model call is complete
	if len(msg.ToolCalls) == 0 {
		r.setState(event.StateResponding)
		r.msgHistory = append(r.msgHistory, msg)
		r.trimHistory()
		r.queueAction(&stopAction{Error: nil})
		return
	}

	r.msgHistory = append(r.msgHistory, msg)

	// If a stream group exists from chunks, finish it with the final message
	if r.currentStreamGroup != nil {
		r.currentStreamGroup.aiMessage = &msg
		r.groupToolCalls(msg.ToolCalls, msg, r.currentStreamGroup)
		if len(r.currentStreamGroup.responses) == len(r.currentStreamGroup.aiMessage.ToolCalls) {
			r.completeToolCallGroup(r.currentStreamGroup)
		}
		r.currentStreamGroup = nil
	} else {
		r.groupToolCalls(msg.ToolCalls, msg, nil)
	}
}

func parseToolArgs(raw string) (map[string]interface{}, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]interface{}{}, nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	return args, nil
}

// processToolCallsFromChunk processes tool calls from a streaming chunk using the shared stream group
func (r *AgentRun) processToolCallsFromChunk(toolCalls []ai.ToolCall) {
	for _, tc := range toolCalls {
		if r.processedToolCallIDs[tc.ID] {
			continue
		}
		r.processedToolCallIDs[tc.ID] = true

		args, err := parseToolArgs(tc.Args)
		if err != nil {
			r.queueAction(&toolResponseAction{
				request: &toolCallAction{
					ToolCallID:       tc.ID,
					ToolName:         tc.Name,
					ValidationResult: ValidationResult{Values: args},
					Group:            r.currentStreamGroup,
				},
				response: fmt.Sprintf("invalid tool parameters: %v", err)})
			continue
		}

		tool, err := r.registry.Lookup(tc.Name)
		if err != nil {
			r.queueAction(&toolResponseAction{
				request:  &toolCallAction{ToolCallID: tc.ID, ToolName: tc.Name, ValidationResult: ValidationResult{Values: args}, Group: r.currentStreamGroup},
				response: fmt.Sprintf("tool not found: %s", tc.Name),
			})
			continue
		}

		values, err := tool.validateInput(r, args)
		if err != nil {
			r.queueAction(&toolResponseAction{
				request:  &toolCallAction{ToolCallID: tc.ID, ToolName: tc.Name, ValidationResult: ValidationResult{Values: args}, Group: r.currentStreamGroup},
				response: fmt.Sprintf("invalid tool parameters: %v", err)})
			continue
		}

		r.queueAction(&toolCallAction{ToolCallID: tc.ID, ToolName: tc.Name, Args: args, ValidationResult: values, Group: r.currentStreamGroup})
	}
}

// groupToolCalls processes a slice of tool calls and queues the appropriate actions
func (r *AgentRun) groupToolCalls(toolCalls []ai.ToolCall, msg ai.AIMessage, existingGroup *toolCallGroup) {
	var group *toolCallGroup
	if existingGroup != nil {
		group = existingGroup
		group.aiMessage = &msg
	} else {
		group = &toolCallGroup{
			aiMessage: &msg,
			responses: make(map[string]ai.ToolMessage),
		}
	}

	for _, tc := range toolCalls {
		if r.processedToolCallIDs[tc.ID] {
			continue
		}
		r.processedToolCallIDs[tc.ID] = true

		args, err := parseToolArgs(tc.Args)
		if err != nil {
			r.queueAction(&toolResponseAction{
				request: &toolCallAction{
					ToolCallID: tc.ID,
					ToolName:   tc.Name, ValidationResult: ValidationResult{Values: args}, Group: group},
				response: fmt.Sprintf("invalid tool parameters: %v", err)})
			continue
		}

		tool, err := r.registry.Lookup(tc.Name)
		if err != nil {
			r.queueAction(&toolResponseAction{
				request:  &toolCallAction{ToolCallID: tc.ID, ToolName: tc.Name, ValidationResult: ValidationResult{Values: args}, Group: group},
				response: fmt.Sprintf("tool not found: %s", tc.Name),
			})
			continue
		}

		values, err := tool.validateInput(r, args)
		if err != nil {
			r.queueAction(&toolResponseAction{
				request:  &toolCallAction{ToolCallID: tc.ID, ToolName: tc.Name, ValidationResult: ValidationResult{Values: args}, Group: group},
				response: fmt.Sprintf("invalid tool parameters: %v", err)})
			continue
		}

		r.queueAction(&toolCallAction{ToolCallID: tc.ID, ToolName: tc.Name, Args: args, ValidationResult: values, Group: group})
	}
}

func (r *AgentRun) queueEvent(ev event.Event) {
	select {
	case r.eventQueue <- ev:
		// queued
	default:
		r.Logger.Error("event queue is full. dropping event", "event", ev)
	}
}

func (r *AgentRun) queueAction(act action) {
	select {
	case r.actionQueue <- act:
		// queued
	default:
		r.Logger.Error("action queue is full. dropping action", "action", act)
	}
}
