package datagentic

// This file contains reusable integration tests to run against live model providers.

import (
	"strings"
	"testing"
	"time"

	"github.com/nexxia-ai/datagentic/ai"
	"github.com/nexxia-ai/datagentic/dataset"
	"github.com/nexxia-ai/datagentic/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// IntegrationTestSuite defines a test suite for integration testing with different providers
type IntegrationTestSuite struct {
	NewModel  func() *ai.Model
	Name      string
	SkipTests []string
}

// RunIntegrationTestSuite runs all standard integration tests against a model implementation
func RunIntegrationTestSuite(t *testing.T, suite IntegrationTestSuite) {
	shouldSkipTest := func(testName string) bool {
		for _, skipTest := range suite.SkipTests {
			if skipTest == testName {
				return true
			}
		}
		return false
	}

	t.Run(suite.Name, func(t *testing.T) {
		t.Run("BasicAgent", func(t *testing.T) {
			if shouldSkipTest("BasicAgent") {
				t.Skipf("Skipping BasicAgent test for %s", suite.Name)
			}
			TestBasicAgent(t, suite.NewModel())
		})

		t.Run("ToolIntegration", func(t *testing.T) {
			if shouldSkipTest("ToolIntegration") {
				t.Skipf("Skipping ToolIntegration test for %s", suite.Name)
			}
			TestToolIntegration(t, suite.NewModel())
		})

		t.Run("DatasetQuestion", func(t *testing.T) {
			if shouldSkipTest("DatasetQuestion") {
				t.Skipf("Skipping DatasetQuestion test for %s", suite.Name)
			}
			TestDatasetQuestion(t, suite.NewModel())
		})

		t.Run("StreamingRun", func(t *testing.T) {
			if shouldSkipTest("StreamingRun") {
				t.Skipf("Skipping StreamingRun test for %s", suite.Name)
			}
			TestStreamingRun(t, suite.NewModel())
		})

		t.Run("ConcurrentRuns", func(t *testing.T) {
			if shouldSkipTest("ConcurrentRuns") {
				t.Skipf("Skipping ConcurrentRuns test for %s", suite.Name)
			}
			TestConcurrentRuns(t, suite.NewModel())
		})
	})
}

// NewDeliveryTargetTool returns a canned lookup tool for tool-calling tests.
func NewDeliveryTargetTool() AgentTool {
	return WrapTool(ai.Tool{
		Name:        "lookup_delivery_target",
		Description: "A tool that looks up the delivery time target in minutes for a region code",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"region": map[string]interface{}{
					"type":        "string",
					"description": "The region code to lookup",
				},
			},
			"required": []string{"region"},
		},
		Execute: func(args map[string]interface{}) (*ai.ToolResult, error) {
			return ai.TextResult("The delivery target for that region is 37 minutes"), nil
		},
	})
}

func deliveriesDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	csv := "clima,tempo_entrega\nchuva,30\nsol,10\nchuva,20\n"
	ds, err := dataset.Load("entregas.csv", strings.NewReader(csv))
	require.NoError(t, err)
	return ds
}

// Individual test functions that can be reused
func TestBasicAgent(t *testing.T, model *ai.Model) {
	tests := []struct {
		agent    Agent
		name     string
		message  string
		validate func(t *testing.T, content string, agent Agent)
	}{
		{
			agent:   Agent{Model: model},
			name:    "empty agent",
			message: "What is the capital of New South Wales, Australia?",
			validate: func(t *testing.T, content string, agent Agent) {
				assert.NotEmpty(t, content)
				assert.NotEmpty(t, agent.ID)
				assert.Contains(t, strings.ToLower(content), "sydney")
			},
		},
		{
			agent: Agent{
				Model:        model,
				Description:  "You are a concise geography assistant.",
				Instructions: "Answer with the city name only.",
			},
			name:    "agent with instructions",
			message: "What is the capital of New South Wales, Australia?",
			validate: func(t *testing.T, content string, agent Agent) {
				assert.NotEmpty(t, content)
				assert.Contains(t, strings.ToLower(content), "sydney")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, err := tt.agent.Run(tt.message)
			if err != nil {
				t.Fatalf("Agent run failed: %v", err)
			}
			var finalContent string
			for ev := range run.Next() {
				switch e := ev.(type) {
				case *event.ContentEvent:
					finalContent += e.Content
				case *event.ErrorEvent:
					t.Fatalf("Agent error: %v", e.Err)
				}
			}
			if tt.validate != nil {
				tt.validate(t, finalContent, tt.agent)
			}
		})
	}
}

func TestToolIntegration(t *testing.T, model *ai.Model) {
	agent := Agent{
		Name:         "tool-agent",
		Model:        model,
		Description:  "You are an assistant for a delivery company.",
		Instructions: "Use tools when the question needs data you do not have.",
		AgentTools:   []AgentTool{NewDeliveryTargetTool()},
	}

	response, err := agent.RunAndWait("What is the delivery time target for region 150? Use tools.")
	if err != nil {
		t.Fatalf("Agent run failed: %v", err)
	}
	assert.NotEmpty(t, response)
	assert.Contains(t, response, "37")
}

func TestDatasetQuestion(t *testing.T, model *ai.Model) {
	agent := Agent{
		Name:    "dataset-agent",
		Model:   model,
		Dataset: deliveriesDataset(t),
		Instructions: "The dataset rows are in your context. Compute the answer yourself " +
			"and reply with the number only.",
	}

	response, err := agent.RunAndWait("What is the average tempo_entrega on chuva days?")
	if err != nil {
		t.Fatalf("Agent run failed: %v", err)
	}
	assert.Contains(t, response, "25")
}

func TestStreamingRun(t *testing.T, model *ai.Model) {
	agent := Agent{
		Model:  model,
		Stream: true,
	}

	run, err := agent.Run("Count from 1 to 5, one number per line.")
	if err != nil {
		t.Fatalf("Agent run failed: %v", err)
	}

	var chunks int
	var content string
	for ev := range run.Next() {
		switch e := ev.(type) {
		case *event.ContentEvent:
			chunks++
			content += e.Content
		case *event.ErrorEvent:
			t.Fatalf("Agent error: %v", e.Err)
		}
	}

	assert.Greater(t, chunks, 0, "expected streamed content events")
	assert.Contains(t, content, "3")
}

func TestConcurrentRuns(t *testing.T, model *ai.Model) {
	agent := Agent{
		Model:        model,
		Description:  "You are a helpful assistant for a delivery company.",
		Instructions: "Use tools when requested. Keep answers short.",
		AgentTools:   []AgentTool{NewDeliveryTargetTool()},
	}

	runs := []struct {
		name        string
		message     string
		expectsTool bool
	}{
		{
			name:        "tool call request",
			message:     "What is the delivery time target for region 150? Use tools.",
			expectsTool: true,
		},
		{
			name:    "simple question",
			message: "What is the capital of France? Respond with the name of the city only.",
		},
		{
			name:    "arithmetic question",
			message: "What is 2 + 2? Respond with the answer only.",
		},
	}

	var agentRuns []*AgentRun
	for i, run := range runs {
		t.Logf("Starting run %d: %s", i+1, run.name)

		agentRun, err := agent.Run(run.message)
		if err != nil {
			t.Fatalf("Run %d failed to start: %v", i+1, err)
		}
		agentRuns = append(agentRuns, agentRun)
	}

	var responses []string
	for i, agentRun := range agentRuns {
		response, err := agentRun.Wait(2 * time.Minute)
		if err != nil {
			t.Fatalf("Wait for run %d failed: %v", i+1, err)
		}
		responses = append(responses, response)
		t.Logf("Run %d completed with response: %s", i+1, response)
	}

	require.Len(t, responses, len(runs))
	for i, run := range runs {
		assert.NotEmpty(t, responses[i], "Run %d should have a non-empty response", i+1)
		if run.expectsTool {
			assert.Contains(t, responses[i], "37", "Run %d should contain the looked-up target", i+1)
		}
	}
}
