// Package groq implements the ai.Model driver for Groq's OpenAI-compatible
// chat completions endpoint.
package groq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/nexxia-ai/datagentic/ai"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const GroqBaseURL = "https://api.groq.com/openai/v1"

func init() {
	registerStandardModels()
}

func registerStandardModels() {
	models := []struct {
		identifier string
		model      string
		family     string
	}{
		{"Llama 3.1 8B Instant", "llama-3.1-8b-instant", "llama"},
		{"Llama 3.3 70B Versatile", "llama-3.3-70b-versatile", "llama"},
		{"GPT OSS 20B", "openai/gpt-oss-20b", "gpt-oss"},
		{"GPT OSS 120B", "openai/gpt-oss-120b", "gpt-oss"},
		{"Qwen 3 32B", "qwen/qwen3-32b", "qwen"},
		{"Kimi K2 Instruct", "moonshotai/kimi-k2-instruct", "kimi"},
	}

	for _, m := range models {
		ai.RegisterModel(ai.ModelInfo{
			Provider:   "groq",
			Model:      m.model,
			Identifier: m.identifier,
			Family:     m.family,
			BaseURL:    GroqBaseURL,
			NewModel: func(modelName, apiKey string, baseURLs ...string) *ai.Model {
				return NewModel(modelName, apiKey, baseURLs...)
			},
			APIKeyName: "GROQ_API_KEY",
		})
	}
}

func NewModel(modelName string, apiKey string, baseURLs ...string) *ai.Model {
	url := GroqBaseURL
	if len(baseURLs) > 0 && baseURLs[0] != "" {
		url = baseURLs[0]
	}

	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
		if apiKey == "" {
			slog.Error("GROQ_API_KEY is not set")
		}
	}

	model := &ai.Model{
		ModelName:  modelName,
		APIKey:     apiKey,
		BaseURL:    url,
		Parameters: map[string]any{},
	}
	model.SetGenerateFunc(groqGenerate)
	model.SetStreamingFunc(groqStream)
	return model
}

func groqGenerate(ctx context.Context, model *ai.Model, messages []ai.Message, tools []ai.Tool) (ai.AIMessage, error) {
	return callChatAPI(ctx, createClient(model), model, messages, tools)
}

func groqStream(ctx context.Context, model *ai.Model, messages []ai.Message, tools []ai.Tool, chunkFunction func(ai.AIMessage) error) (ai.AIMessage, error) {
	return streamChatAPI(ctx, createClient(model), model, messages, tools, chunkFunction)
}

func createClient(model *ai.Model) openai.Client {
	url := model.BaseURL
	if url == "" {
		url = GroqBaseURL
	}
	return openai.NewClient(
		option.WithAPIKey(model.APIKey),
		option.WithBaseURL(url),
	)
}

// classifyError maps provider failures onto the ai error kinds: oversized
// payloads become ErrRejected so the caller can retry with a reduced prompt,
// rate limits and server faults become ErrTemporary.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "context_length_exceeded") ||
		strings.Contains(errStr, "maximum context length") ||
		strings.Contains(errStr, "request too large") ||
		strings.Contains(errStr, "request entity too large") ||
		strings.Contains(errStr, "reduce the length") {
		return fmt.Errorf("%w: %v", ai.ErrRejected, err)
	}

	if strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "rate_limit_exceeded") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "bad gateway") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "gateway timeout") {
		return fmt.Errorf("%w: %v", ai.ErrTemporary, err)
	}

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "temporary") {
		return fmt.Errorf("%w: %v", ai.ErrTemporary, err)
	}

	var apiErr interface {
		StatusCode() int
	}
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode() == 413:
			return fmt.Errorf("%w: %v", ai.ErrRejected, err)
		case apiErr.StatusCode() >= 500 || apiErr.StatusCode() == 429:
			return fmt.Errorf("%w: %v", ai.ErrTemporary, err)
		}
	}

	return err
}
