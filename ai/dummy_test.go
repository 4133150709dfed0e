package ai

import (
	"context"
	"errors"
	"testing"
)

func TestDummyModelScriptedResponse(t *testing.T) {
	var seen []Message
	model := NewDummyModel(func(ctx context.Context, messages []Message, tools []Tool) (AIMessage, error) {
		seen = messages
		return AIMessage{Role: AssistantRole, Content: "resposta roteirizada"}, nil
	})

	got, err := model.Call(context.Background(), []Message{
		UserMessage{Role: UserRole, Content: "pergunta"},
	}, nil)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got.Content != "resposta roteirizada" {
		t.Errorf("Call() content = %q, want scripted response", got.Content)
	}
	if len(seen) != 1 {
		t.Fatalf("expected the dummy to see 1 message, got %d", len(seen))
	}
	if _, content := seen[0].Value(); content != "pergunta" {
		t.Errorf("dummy saw %q, want the user message", content)
	}
}

func TestDummyModelStreamDeliversSingleChunk(t *testing.T) {
	model := NewDummyModel(func(ctx context.Context, messages []Message, tools []Tool) (AIMessage, error) {
		return AIMessage{Role: AssistantRole, Content: "tudo de uma vez"}, nil
	})

	var chunks []AIMessage
	final, err := model.Stream(context.Background(), nil, nil, func(chunk AIMessage) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "tudo de uma vez" || final.Content != "tudo de uma vez" {
		t.Errorf("chunk = %q, final = %q, want scripted content in both", chunks[0].Content, final.Content)
	}
}

func TestDummyModelStreamSkipsEmptyChunk(t *testing.T) {
	model := NewDummyModel(func(ctx context.Context, messages []Message, tools []Tool) (AIMessage, error) {
		return AIMessage{
			Role:      AssistantRole,
			ToolCalls: []ToolCall{{ID: "call_1", Type: "function", Name: "execute_code", Args: "{}"}},
		}, nil
	})

	var chunks int
	final, err := model.Stream(context.Background(), nil, nil, func(chunk AIMessage) error {
		chunks++
		return nil
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if chunks != 0 {
		t.Errorf("expected no content chunks for a tool-call-only response, got %d", chunks)
	}
	if len(final.ToolCalls) != 1 {
		t.Errorf("expected the tool call in the final message, got %v", final.ToolCalls)
	}
}

func TestDummyModelStreamChunkError(t *testing.T) {
	model := NewDummyModel(func(ctx context.Context, messages []Message, tools []Tool) (AIMessage, error) {
		return AIMessage{Role: AssistantRole, Content: "algo"}, nil
	})

	boom := errors.New("consumer gave up")
	_, err := model.Stream(context.Background(), nil, nil, func(chunk AIMessage) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Stream() error = %v, want the chunk callback error", err)
	}
}
