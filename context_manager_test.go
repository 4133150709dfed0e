package datagentic

import (
	"testing"

	"github.com/nexxia-ai/datagentic/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestPrompt(t *testing.T, run *AgentRun, history []ai.Message) (system, user string) {
	t.Helper()
	cm := NewBasicContextManager()
	msgs, err := cm.BuildPrompt(run, history, nil)
	require.NoError(t, err)
	require.NotEmpty(t, msgs)

	sysMsg, ok := msgs[0].(ai.SystemMessage)
	require.True(t, ok, "first message is the system prompt")
	system = sysMsg.Content
	if len(msgs) > 1 {
		if userMsg, ok := msgs[1].(ai.UserMessage); ok {
			user = userMsg.Content
		}
	}
	return system, user
}

func TestBuildPromptIncludesDatasetAndQuestion(t *testing.T) {
	ds := testDataset(t, "clima,tempo_entrega\nchuva,30\nsol,10\nchuva,20\n")
	run := newAgentRun(Agent{Name: "prompt", Dataset: ds}, "qual a média do tempo_entrega por clima?")
	defer run.Cancel()

	system, user := buildTestPrompt(t, run, nil)

	assert.Contains(t, system, "clima")
	assert.Contains(t, system, "tempo_entrega")
	assert.Contains(t, system, "3 rows, 2 columns")
	assert.Contains(t, system, "chuva", "small datasets are shown in full")
	assert.Contains(t, user, "qual a média do tempo_entrega por clima?")
}

func TestBuildPromptWithoutDataset(t *testing.T) {
	run := newAgentRun(Agent{Name: "prompt"}, "hello")
	defer run.Cancel()

	system, _ := buildTestPrompt(t, run, nil)
	assert.Contains(t, system, "(no dataset loaded)")
}

func TestBuildPromptSamplesLargeDataset(t *testing.T) {
	run := newAgentRun(Agent{Name: "prompt", Dataset: testDataset(t, rowsCSV(60))}, "question")
	defer run.Cancel()

	system, _ := buildTestPrompt(t, run, nil)

	assert.Contains(t, system, "row-05", "the sample keeps the leading rows")
	assert.NotContains(t, system, "row-06", "rows beyond the sample stay out of the prompt")
	assert.Contains(t, system, "showing first 5 of 60 rows")
}

func TestBuildPromptThresholdKeepsFullDataset(t *testing.T) {
	run := newAgentRun(Agent{
		Name:            "prompt",
		Dataset:         testDataset(t, rowsCSV(60)),
		SampleThreshold: 100,
	}, "question")
	defer run.Cancel()

	system, _ := buildTestPrompt(t, run, nil)

	assert.Contains(t, system, "row-60")
	assert.NotContains(t, system, "showing first")
}

func TestBuildPromptToolHistory(t *testing.T) {
	run := newAgentRun(Agent{Name: "prompt"}, "question")
	defer run.Cancel()

	history := []ai.Message{
		ai.AIMessage{
			Role: ai.AssistantRole,
			ToolCalls: []ai.ToolCall{
				{ID: "call_1", Type: "function", Name: "statistical_summary", Args: `{"columns":["tempo_entrega"]}`},
			},
		},
		ai.ToolMessage{Role: ai.ToolRole, ToolCallID: "call_1", ToolName: "statistical_summary", Content: "mean 20"},
	}

	system, _ := buildTestPrompt(t, run, history)

	assert.Contains(t, system, "<tool_called>")
	assert.Contains(t, system, "tool_name: statistical_summary")
	assert.Contains(t, system, "tool_call_id: call_1")
	assert.Contains(t, system, "mean 20")
}

func TestBuildPromptReducedDropsHistoryAndShrinksSample(t *testing.T) {
	run := newAgentRun(Agent{Name: "prompt", Dataset: testDataset(t, rowsCSV(10))}, "question")
	defer run.Cancel()
	run.reduced = true

	history := []ai.Message{
		ai.AIMessage{
			Role:      ai.AssistantRole,
			ToolCalls: []ai.ToolCall{{ID: "call_1", Type: "function", Name: "echo", Args: "{}"}},
		},
		ai.ToolMessage{Role: ai.ToolRole, ToolCallID: "call_1", ToolName: "echo", Content: "echoed"},
	}

	cm := NewBasicContextManager()
	msgs, err := cm.BuildPrompt(run, history, nil)
	require.NoError(t, err)

	sysMsg := msgs[0].(ai.SystemMessage)
	assert.NotContains(t, sysMsg.Content, "<tool_called>", "reduced prompts drop the tool history")
	assert.Contains(t, sysMsg.Content, "row-02")
	assert.NotContains(t, sysMsg.Content, "row-03", "reduced prompts carry two rows")

	// System plus user question only; the message history is dropped.
	assert.Len(t, msgs, 2)
}

func TestBuildPromptAppendsHistory(t *testing.T) {
	run := newAgentRun(Agent{Name: "prompt"}, "question")
	defer run.Cancel()

	history := []ai.Message{
		ai.AIMessage{Role: ai.AssistantRole, Content: "earlier answer"},
	}

	cm := NewBasicContextManager()
	msgs, err := cm.BuildPrompt(run, history, nil)
	require.NoError(t, err)

	require.Len(t, msgs, 3)
	last, ok := msgs[2].(ai.AIMessage)
	require.True(t, ok)
	assert.Equal(t, "earlier answer", last.Content)
}

func TestBuildPromptRoleAndInstructions(t *testing.T) {
	run := newAgentRun(Agent{
		Name:         "prompt",
		Description:  "a meticulous analyst",
		Instructions: "always show units",
	}, "question")
	defer run.Cancel()

	system, _ := buildTestPrompt(t, run, nil)

	assert.Contains(t, system, "<role>")
	assert.Contains(t, system, "a meticulous analyst")
	assert.Contains(t, system, "<instructions>")
	assert.Contains(t, system, "always show units")
}

func TestBuildPromptListsTools(t *testing.T) {
	run := newAgentRun(Agent{Name: "prompt"}, "question")
	defer run.Cancel()

	tools := []ai.Tool{
		{Name: "dataframe_info", Description: "Schema and shape overview"},
		{Name: "generate_chart", Description: "Chart rendering"},
	}

	cm := NewBasicContextManager()
	msgs, err := cm.BuildPrompt(run, nil, tools)
	require.NoError(t, err)

	system := msgs[0].(ai.SystemMessage).Content
	assert.Contains(t, system, "<tools>")
	assert.Contains(t, system, "dataframe_info")
	assert.Contains(t, system, "Schema and shape overview")
	assert.Contains(t, system, "generate_chart")
}

func TestCustomTemplates(t *testing.T) {
	run := newAgentRun(Agent{Name: "prompt"}, "the question")
	defer run.Cancel()

	cm := NewBasicContextManager()
	require.NoError(t, cm.ParseSystemTemplate("SYSTEM ONLY"))
	require.NoError(t, cm.ParseUserTemplate("Q: {{.Message}}"))

	msgs, err := cm.BuildPrompt(run, nil, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "SYSTEM ONLY", msgs[0].(ai.SystemMessage).Content)
	assert.Equal(t, "Q: the question", msgs[1].(ai.UserMessage).Content)
}
