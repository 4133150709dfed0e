package ai

// This file contains the shared test suite for model drivers. Packages that
// implement a provider run it against a live model, usually gated on the
// provider's API key being present.
import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// Common echo tool for driver tests.
var echoTool = Tool{
	Name:        "echo",
	Description: "Echoes back the input text",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "The text to echo back",
			},
		},
		"required": []string{"text"},
	},
	Execute: func(args map[string]interface{}) (*ToolResult, error) {
		text, _ := args["text"].(string)
		return TextResult(text), nil
	},
}

// ModelTestSuite defines a test suite for a model implementation.
type ModelTestSuite struct {
	NewModel  func() *Model
	Name      string
	SkipTests []string
}

// RunModelTestSuite runs the standard driver tests against a model
// implementation.
func RunModelTestSuite(t *testing.T, suite ModelTestSuite) {
	shouldSkipTest := func(testName string) bool {
		for _, skipTest := range suite.SkipTests {
			if skipTest == testName {
				return true
			}
		}
		return false
	}

	tests := []struct {
		name string
		fn   func(*testing.T, *Model)
	}{
		{"GenerateSimple", TestGenerateSimple},
		{"GenerateContentWithTools", TestGenerateContentWithTools},
		{"StreamSimple", TestStreamSimple},
		{"ParameterChaining", TestParameterChaining},
		{"ZeroValueParameters", TestZeroValueParameters},
		{"ContextTimeout", TestContextTimeout},
		{"ContextCancellation", TestContextCancellation},
	}

	t.Run(suite.Name, func(t *testing.T) {
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				if shouldSkipTest(tc.name) {
					t.Skipf("Skipping %s test for %s", tc.name, suite.Name)
				}
				tc.fn(t, suite.NewModel())
			})
		}
	})
}

func TestGenerateSimple(t *testing.T, model *Model) {
	messages := []Message{UserMessage{Role: UserRole, Content: "What is the capital of Australia?"}}

	got, err := model.Call(context.Background(), messages, nil)
	if err != nil {
		t.Errorf("Model.Call() error = %v", err)
		return
	}
	_, content := got.Value()
	if !strings.Contains(content, "Canberra") {
		t.Errorf("Model.Call() = %v, want content containing 'Canberra'", got)
	}
}

func TestGenerateContentWithTools(t *testing.T, model *Model) {
	messages := []Message{
		UserMessage{Role: UserRole, Content: "Please use the echo tool to echo back the text 'Hello, World!'"},
	}

	got, err := model.Call(context.Background(), messages, []Tool{echoTool})
	if err != nil {
		t.Errorf("Model.Call() error = %v", err)
		return
	}

	if len(got.ToolCalls) == 0 {
		t.Error("Expected tool calls in response, got none")
		return
	}
	for _, toolCall := range got.ToolCalls {
		if toolCall.Name == "echo" {
			return
		}
	}
	t.Errorf("Expected echo tool call, got: %v", got.ToolCalls)
}

func TestStreamSimple(t *testing.T, model *Model) {
	messages := []Message{UserMessage{Role: UserRole, Content: "What is the capital of Australia?"}}

	var chunks int
	final, err := model.Stream(context.Background(), messages, nil, func(partial AIMessage) error {
		chunks++
		return nil
	})
	if err != nil {
		t.Errorf("Model.Stream() error = %v", err)
		return
	}
	if chunks == 0 {
		t.Error("Expected at least one streamed chunk")
	}
	if !strings.Contains(final.Content, "Canberra") {
		t.Errorf("Model.Stream() = %q, want content containing 'Canberra'", final.Content)
	}
}

func TestParameterChaining(t *testing.T, model *Model) {
	result := model.
		WithTemperature(0.5).
		WithMaxTokens(100).
		WithTemperature(0.8). // overwrite
		WithMaxTokens(200).   // overwrite
		WithTopP(0.9).
		WithStopSequences([]string{"END"}).
		WithParameter("seed", 7)

	if result != model {
		t.Error("With methods should return the same model instance for chaining")
	}
	if model.Temperature == nil || *model.Temperature != 0.8 {
		t.Errorf("Expected temperature 0.8, got %v", model.Temperature)
	}
	if model.MaxTokens == nil || *model.MaxTokens != 200 {
		t.Errorf("Expected max tokens 200, got %v", model.MaxTokens)
	}
	if model.TopP == nil || *model.TopP != 0.9 {
		t.Errorf("Expected top_p 0.9, got %v", model.TopP)
	}
	if model.StopSequences == nil || len(*model.StopSequences) != 1 || (*model.StopSequences)[0] != "END" {
		t.Errorf("Expected stop sequences [END], got %v", model.StopSequences)
	}
	if model.Parameters["seed"] != 7 {
		t.Errorf("Expected parameter seed=7, got %v", model.Parameters["seed"])
	}
}

func TestZeroValueParameters(t *testing.T, model *Model) {
	result := model.
		WithTemperature(0.0).
		WithMaxTokens(0).
		WithTopP(0.0).
		WithStopSequences([]string{})

	if result != model {
		t.Error("With methods should return the same model instance for chaining")
	}
	if model.Temperature == nil || *model.Temperature != 0.0 {
		t.Errorf("Expected temperature 0.0, got %v", model.Temperature)
	}
	if model.MaxTokens == nil || *model.MaxTokens != 0 {
		t.Errorf("Expected max tokens 0, got %v", model.MaxTokens)
	}
	if model.TopP == nil || *model.TopP != 0.0 {
		t.Errorf("Expected top_p 0.0, got %v", model.TopP)
	}
	if model.StopSequences == nil || len(*model.StopSequences) != 0 {
		t.Errorf("Expected empty stop sequences, got %v", model.StopSequences)
	}
}

func TestContextTimeout(t *testing.T, model *Model) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Millisecond)
	defer cancel()

	messages := []Message{UserMessage{Role: UserRole, Content: "What is the capital of France?"}}

	start := time.Now()
	_, err := model.Call(ctx, messages, nil)
	duration := time.Since(start)

	if err == nil {
		t.Error("Expected error due to timeout, but got none")
		return
	}
	if !strings.Contains(strings.ToLower(err.Error()), "context deadline exceeded") {
		t.Errorf("Expected error containing 'context deadline exceeded', got: %s", err)
	}
	if duration > 5*time.Second {
		t.Errorf("Call took too long (%v) after a 1ms timeout", duration)
	}
}

func TestContextCancellation(t *testing.T, model *Model) {
	ctx, cancel := context.WithCancel(context.Background())

	messages := []Message{UserMessage{Role: UserRole, Content: "What is the capital of France?"}}

	var err error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err = model.Call(ctx, messages, nil)
	}()

	time.Sleep(1 * time.Millisecond)
	cancel()
	wg.Wait()

	if err == nil {
		t.Error("Expected error due to context cancellation, but got none")
		return
	}
	if !strings.Contains(strings.ToLower(err.Error()), "context canceled") {
		t.Errorf("Expected error containing 'context canceled', got: %s", err)
	}
}
