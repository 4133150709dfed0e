package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"
)

// defaultMaxRetries is the number of attempts made for temporary provider
// errors when the model does not set MaxRetries.
const defaultMaxRetries = 3

type StatusError struct {
	StatusCode   int
	Status       string
	ErrorMessage string
}

func (e StatusError) Error() string {
	return fmt.Sprintf("status: %s, code: %d, error: %s", e.Status, e.StatusCode, e.ErrorMessage)
}

// Model represents a generic model container that uses function variables for provider-specific logic
type Model struct {
	ModelName string
	APIKey    string
	BaseURL   string

	// callFunc and streamFunc hold the implementation for each provider
	callFunc   func(ctx context.Context, model *Model, messages []Message, tools []Tool) (AIMessage, error)
	streamFunc func(ctx context.Context, model *Model, messages []Message, tools []Tool, chunkFunc func(AIMessage) error) (AIMessage, error)

	// Options pointer variables - use nil to represent option not set
	Temperature   *float64
	MaxTokens     *int
	TopP          *float64
	StopSequences *[]string
	Parameters    map[string]interface{} // additional non-standard parameters for the model

	// MaxRetries is the total number of attempts made for temporary provider
	// errors. nil uses defaultMaxRetries; values below one still make a
	// single attempt.
	MaxRetries *int
}

// Call makes a single call to the model. It does not execute any tool calls,
// but returns the requested ToolCalls for the caller's own dispatch loop.
// Temporary provider errors are retried with exponential backoff; all other
// errors are returned unchanged so the caller can classify them.
func (m *Model) Call(ctx context.Context, messages []Message, tools []Tool) (AIMessage, error) {
	if m.callFunc == nil {
		return AIMessage{}, fmt.Errorf("model %s has no call function", m.ModelName)
	}
	return m.withRetry(ctx, func() (AIMessage, error) {
		return m.callFunc(ctx, m, messages, tools)
	})
}

// Stream makes a streaming call to the model. chunkFunc is invoked for each
// partial message; the returned AIMessage is the accumulated final message.
// Falls back to Call when the provider has no streaming implementation.
func (m *Model) Stream(ctx context.Context, messages []Message, tools []Tool, chunkFunc func(AIMessage) error) (AIMessage, error) {
	if m.streamFunc == nil {
		msg, err := m.Call(ctx, messages, tools)
		if err != nil {
			return AIMessage{}, err
		}
		if err := chunkFunc(msg); err != nil {
			return AIMessage{}, err
		}
		return msg, nil
	}
	return m.withRetry(ctx, func() (AIMessage, error) {
		return m.streamFunc(ctx, m, messages, tools, chunkFunc)
	})
}

func (m *Model) maxAttempts() int {
	if m.MaxRetries == nil {
		return defaultMaxRetries
	}
	if *m.MaxRetries < 1 {
		return 1
	}
	return *m.MaxRetries
}

// withRetry reruns call while it fails with ErrTemporary. The last temporary
// error is returned as-is once attempts are exhausted.
func (m *Model) withRetry(ctx context.Context, call func() (AIMessage, error)) (AIMessage, error) {
	attempts := m.maxAttempts()
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		msg, err := call()
		if err == nil {
			return msg, nil
		}
		if !errors.Is(err, ErrTemporary) {
			return AIMessage{}, err
		}
		lastErr = err
		if attempt == attempts-1 {
			break
		}

		delay := m.calculateBackoffDelay(attempt)
		slog.Warn("model call failed, retrying",
			"model", m.ModelName,
			"attempt", attempt+1,
			"max_attempts", attempts,
			"delay", delay,
			"error", err.Error())

		select {
		case <-ctx.Done():
			return AIMessage{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	return AIMessage{}, lastErr
}

// calculateBackoffDelay returns the wait before the next attempt: exponential
// from one second, capped at thirty seconds, with up to 10% positive jitter.
func (m *Model) calculateBackoffDelay(attempt int) time.Duration {
	delay := time.Second << uint(attempt)
	if delay <= 0 || delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return delay + time.Duration(rand.Int63n(int64(delay)/10))
}

// WithTemperature sets the temperature for the model and returns the model for chaining
func (m *Model) WithTemperature(temperature float64) *Model {
	m.Temperature = &temperature
	return m
}

// WithMaxTokens sets the maximum tokens for the model and returns the model for chaining
func (m *Model) WithMaxTokens(maxTokens int) *Model {
	m.MaxTokens = &maxTokens
	return m
}

// WithTopP sets the top_p parameter for the model and returns the model for chaining
func (m *Model) WithTopP(topP float64) *Model {
	m.TopP = &topP
	return m
}

// WithStopSequences sets the stop sequences for the model and returns the model for chaining
func (m *Model) WithStopSequences(sequences []string) *Model {
	m.StopSequences = &sequences
	return m
}

func (m *Model) WithParameter(name string, value interface{}) *Model {
	if m.Parameters == nil {
		m.Parameters = map[string]interface{}{}
	}
	m.Parameters[name] = value
	return m
}

// SetGenerateFunc sets the generate function for the model. This is used to override
// the default generate function to use a non standard provider.
func (m *Model) SetGenerateFunc(generateFunc func(ctx context.Context, model *Model, messages []Message, tools []Tool) (AIMessage, error)) error {
	m.callFunc = generateFunc
	return nil
}

// SetStreamingFunc sets the streaming function for the model.
func (m *Model) SetStreamingFunc(streamFunc func(ctx context.Context, model *Model, messages []Message, tools []Tool, chunkFunc func(AIMessage) error) (AIMessage, error)) error {
	m.streamFunc = streamFunc
	return nil
}

// ExtractThinkTags extracts <think>...</think> tags from the content and returns both the cleaned content and the think part
func ExtractThinkTags(content string) (cleanedContent string, thinkPart string) {
	startTag := "<think>"
	endTag := "</think>"

	start := strings.Index(content, startTag)
	if start == -1 {
		return content, "" // No think tags found
	}

	end := strings.Index(content[start:], endTag)
	if end == -1 {
		return content, "" // No closing tag found
	}
	end += start + len(endTag)

	thinkPart = content[start+len(startTag) : end-len(endTag)]

	cleanedContent = content[:start] + content[end:]

	return strings.TrimSpace(cleanedContent), strings.TrimSpace(thinkPart)
}
