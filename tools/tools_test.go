package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexxia-ai/datagentic"
	"github.com/nexxia-ai/datagentic/ai"
	"github.com/nexxia-ai/datagentic/dataset"
)

const climaCSV = "clima,tempo_entrega\nchuva,30\nsol,10\nchuva,20\n"

// climaAgent builds an agent over the delivery-time fixture with the built-in
// tools registered, ready for Dispatch.
func climaAgent(t *testing.T) *datagentic.Agent {
	t.Helper()
	ds, err := dataset.Load("clima.csv", strings.NewReader(climaCSV))
	require.NoError(t, err)
	return &datagentic.Agent{Name: "test-agent", Dataset: ds, AgentTools: DefaultTools()}
}

func dispatch(t *testing.T, agent *datagentic.Agent, name string, args map[string]interface{}) *ai.ToolResult {
	t.Helper()
	res, err := agent.Dispatch(context.Background(), name, args)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func textOf(t *testing.T, res *ai.ToolResult) string {
	t.Helper()
	for _, c := range res.Content {
		if c.Type == "text" {
			text, ok := c.Content.(string)
			require.True(t, ok, "text content is not a string")
			return text
		}
	}
	t.Fatal("tool result has no text content")
	return ""
}

func imageOf(t *testing.T, res *ai.ToolResult) []byte {
	t.Helper()
	for _, c := range res.Content {
		if c.Type == "image" {
			img, ok := c.Content.([]byte)
			require.True(t, ok, "image content is not bytes")
			return img
		}
	}
	t.Fatal("tool result has no image content")
	return nil
}

func TestDefaultTools(t *testing.T) {
	defaults := DefaultTools()

	var names []string
	for _, tool := range defaults {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
		assert.NotNil(t, tool.NewExecute, tool.Name)
		require.NotNil(t, tool.InputSchema, tool.Name)
		assert.Equal(t, "object", tool.InputSchema["type"], tool.Name)
	}
	assert.Equal(t, []string{
		DataframeInfoToolName,
		StatisticalSummaryToolName,
		GenerateChartToolName,
		ExecuteCodeToolName,
	}, names)
}

func TestParseParams(t *testing.T) {
	var params ExecuteCodeParams
	err := parseParams(map[string]interface{}{"code": "1 + 1"}, &params)
	require.NoError(t, err)
	assert.Equal(t, "1 + 1", params.Code)

	err = parseParams(map[string]interface{}{"code": 123}, &params)
	assert.ErrorContains(t, err, "parsing parameters")
}
