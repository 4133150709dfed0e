package groq

import (
	"strings"
	"testing"

	"github.com/nexxia-ai/datagentic/ai"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamingThinkParser(t *testing.T) {
	tests := []struct {
		name        string
		chunks      []string
		wantContent string
		wantThink   string
	}{
		{
			name:        "plain text",
			chunks:      []string{"ola ", "mundo"},
			wantContent: "ola mundo",
		},
		{
			name:        "think then answer",
			chunks:      []string{"<think>", "plano", "</think>", "resposta final"},
			wantContent: "resposta final",
			wantThink:   "plano",
		},
		{
			name:        "content around a chunked think block",
			chunks:      []string{"a", "<think>b1", "b2", "</think>", "c"},
			wantContent: "ac",
			wantThink:   "b1b2",
		},
		{
			name:        "tags embedded in larger chunks",
			chunks:      []string{"a<think>b", "</think>c", "!"},
			wantContent: "ac!",
			wantThink:   "b",
		},
		{
			name:        "single chunk with complete tags",
			chunks:      []string{"<think>x</think>y"},
			wantContent: "y",
			wantThink:   "x",
		},
		{
			name:        "trailing content recovered by flush",
			chunks:      []string{"bom <think>avaliando", "</think>dia"},
			wantContent: "bom dia",
			wantThink:   "avaliando",
		},
		{
			name:      "unterminated think block",
			chunks:    []string{"<think>", "ainda pensando"},
			wantThink: "ainda pensando",
		},
		{
			name: "empty stream",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parser := &streamingThinkParser{}
			var content, think strings.Builder
			for _, chunk := range tc.chunks {
				c, th := parser.addChunk(chunk)
				content.WriteString(c)
				think.WriteString(th)
			}
			c, th := parser.flush()
			content.WriteString(c)
			think.WriteString(th)

			assert.Equal(t, tc.wantContent, content.String())
			assert.Equal(t, tc.wantThink, think.String())
		})
	}
}

func TestStreamingThinkParserPerChunk(t *testing.T) {
	parser := &streamingThinkParser{}

	c, th := parser.addChunk("a")
	assert.Equal(t, "a", c)
	assert.Empty(t, th)

	c, th = parser.addChunk("<think>b1")
	assert.Empty(t, c)
	assert.Equal(t, "b1", th)

	c, th = parser.addChunk("b2")
	assert.Empty(t, c)
	assert.Equal(t, "b2", th)

	c, th = parser.addChunk("</think>")
	assert.Empty(t, c)
	assert.Empty(t, th)

	c, th = parser.addChunk("c")
	assert.Equal(t, "c", c)
	assert.Empty(t, th)
}

func TestToChatMessages(t *testing.T) {
	msgs := []ai.Message{
		ai.SystemMessage{Role: ai.SystemRole, Content: "voce analisa dados"},
		ai.UserMessage{Role: ai.UserRole, Content: "qual a media?"},
		ai.AIMessage{
			Role:    ai.AssistantRole,
			Content: "vou calcular",
			ToolCalls: []ai.ToolCall{
				{ID: "call_1", Type: "function", Name: "execute_code", Args: `{"code":"df.mean('tempo')"}`},
			},
		},
		ai.ToolMessage{Role: ai.ToolRole, Content: "20", ToolCallID: "call_1", ToolName: "execute_code"},
	}

	got, err := toChatMessages(msgs)
	require.NoError(t, err)
	require.Len(t, got, 4)

	require.NotNil(t, got[0].OfSystem)
	assert.Equal(t, "voce analisa dados", got[0].OfSystem.Content.OfString.Value)

	require.NotNil(t, got[1].OfUser)
	assert.Equal(t, "qual a media?", got[1].OfUser.Content.OfString.Value)

	require.NotNil(t, got[2].OfAssistant)
	assert.Equal(t, "vou calcular", got[2].OfAssistant.Content.OfString.Value)
	require.Len(t, got[2].OfAssistant.ToolCalls, 1)
	call := got[2].OfAssistant.ToolCalls[0].OfFunction
	require.NotNil(t, call)
	assert.Equal(t, "call_1", call.ID)
	assert.Equal(t, "execute_code", call.Function.Name)
	assert.Equal(t, `{"code":"df.mean('tempo')"}`, call.Function.Arguments)

	require.NotNil(t, got[3].OfTool)
	assert.Equal(t, "call_1", got[3].OfTool.ToolCallID)
	assert.Equal(t, "20", got[3].OfTool.Content.OfString.Value)
}

type oddMessage struct{}

func (oddMessage) Value() (ai.MessageRole, string) { return ai.UserRole, "x" }

func TestToChatMessagesRejectsUnknownType(t *testing.T) {
	_, err := toChatMessages([]ai.Message{oddMessage{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported message type")
}

func TestToChatTools(t *testing.T) {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"code": map[string]interface{}{"type": "string"},
		},
		"required": []string{"code"},
	}
	tools := []ai.Tool{{Name: "execute_code", Description: "runs code", InputSchema: schema}}

	got := toChatTools(tools)
	require.Len(t, got, 1)
	fn := got[0].OfFunction
	require.NotNil(t, fn)
	assert.Equal(t, "execute_code", fn.Function.Name)
	assert.Equal(t, "runs code", fn.Function.Description.Value)
	assert.Equal(t, shared.FunctionParameters(schema), fn.Function.Parameters)

	assert.Nil(t, toChatTools(nil))
}

func TestBuildChatParamsDefaults(t *testing.T) {
	model := NewModel("llama-3.1-8b-instant", "test-key")
	msgs := []ai.Message{ai.UserMessage{Role: ai.UserRole, Content: "oi"}}

	params, err := buildChatParams(model, msgs, nil)
	require.NoError(t, err)

	assert.Equal(t, shared.ChatModel("llama-3.1-8b-instant"), params.Model)
	assert.Len(t, params.Messages, 1)
	assert.Nil(t, params.Tools)
	assert.False(t, params.Temperature.Valid())
	assert.False(t, params.MaxTokens.Valid())
	assert.False(t, params.TopP.Valid())
	assert.False(t, params.Stop.OfString.Valid())
	assert.Nil(t, params.Stop.OfStringArray)
}

func TestBuildChatParamsCarriesModelSettings(t *testing.T) {
	model := NewModel("llama-3.1-8b-instant", "test-key").
		WithTemperature(0.2).
		WithMaxTokens(512).
		WithTopP(0.9)
	msgs := []ai.Message{ai.UserMessage{Role: ai.UserRole, Content: "oi"}}
	tools := []ai.Tool{{Name: "execute_code", Description: "runs code"}}

	params, err := buildChatParams(model, msgs, tools)
	require.NoError(t, err)

	assert.Equal(t, openai.Opt(0.2), params.Temperature)
	assert.Equal(t, openai.Opt(int64(512)), params.MaxTokens)
	assert.Equal(t, openai.Opt(0.9), params.TopP)
	require.Len(t, params.Tools, 1)
	assert.Equal(t, "execute_code", params.Tools[0].OfFunction.Function.Name)
}

func TestBuildChatParamsStopSequences(t *testing.T) {
	msgs := []ai.Message{ai.UserMessage{Role: ai.UserRole, Content: "oi"}}

	single := NewModel("llama-3.1-8b-instant", "test-key").WithStopSequences([]string{"FIM"})
	params, err := buildChatParams(single, msgs, nil)
	require.NoError(t, err)
	assert.Equal(t, openai.Opt("FIM"), params.Stop.OfString)
	assert.Nil(t, params.Stop.OfStringArray)

	multi := NewModel("llama-3.1-8b-instant", "test-key").WithStopSequences([]string{"FIM", "END"})
	params, err = buildChatParams(multi, msgs, nil)
	require.NoError(t, err)
	assert.False(t, params.Stop.OfString.Valid())
	assert.Equal(t, []string{"FIM", "END"}, params.Stop.OfStringArray)
}

func TestBuildChatParamsPropagatesConversionErrors(t *testing.T) {
	model := NewModel("llama-3.1-8b-instant", "test-key")

	_, err := buildChatParams(model, []ai.Message{oddMessage{}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to convert messages")
}
