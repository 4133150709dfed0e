package datagentic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/nexxia-ai/datagentic/ai"
)

// ContextManager builds the messages sent to the model on each planning turn.
type ContextManager interface {
	BuildPrompt(run *AgentRun, history []ai.Message, tools []ai.Tool) ([]ai.Message, error)
}

// BasicContextManager renders the default analyst prompt: a system message
// carrying the dataset block, the tool descriptions and the tool call
// history, followed by the user question and the retained message history.
//
// When the run is in reduced mode (after the provider rejected a request),
// the dataset sample shrinks to two rows and the history is dropped.
type BasicContextManager struct {
	SystemTemplate *template.Template
	UserTemplate   *template.Template
}

var _ ContextManager = &BasicContextManager{}

const reducedSampleRows = 2

const DefaultSystemTemplate = `You are a data analyst agent. You answer questions about a single tabular dataset using the tools you are given.
Reason about which tool answers the question, call it, then answer from the tool results.
{{if .HasRole}}
The user provided the following description of your role:
<role>
{{.Role}}
</role>
{{end}}
{{if .HasInstructions}}
<instructions>
{{.Instructions}}
</instructions>
{{end}}
<dataset>
{{.DatasetBlock}}
</dataset>
{{if .HasTools}}
You have access to the following tools:

<tools>
{{range .Tools}}<tool>
{{.Name}}
{{.Description}}
</tool>
{{end}}</tools>
{{end}}
{{if .HasToolHistory}}
You have already used the following tools. Analyse them before deciding the next step to prevent executing the same calls:

<tool_call_history>
{{.ToolHistory}}
</tool_call_history>
{{end}}
<rules>
- Only report numbers computed by tools. Never estimate from the sample rows.
- The dataset block shows a sample; the full data is only reachable through tools.
- Use dataframe_info and statistical_summary for overviews, generate_chart for charts and execute_code for anything custom.
- Column names must match the schema exactly.
- Answer in the language the question was asked in.
</rules>`

const DefaultUserTemplate = `{{if .HasMessage}}Please answer the following question about the dataset:
{{.Message}}
{{end}}`

func NewBasicContextManager() *BasicContextManager {
	cm := &BasicContextManager{}
	cm.SetDefaultTemplates()
	return cm
}

// SetDefaultTemplates sets the default system and user templates
func (r *BasicContextManager) SetDefaultTemplates() {
	r.SystemTemplate = template.Must(template.New("system").Parse(DefaultSystemTemplate))
	r.UserTemplate = template.Must(template.New("user").Parse(DefaultUserTemplate))
}

// ParseSystemTemplate parses and sets a custom system template
func (r *BasicContextManager) ParseSystemTemplate(templateStr string) error {
	tmpl, err := template.New("system").Parse(templateStr)
	if err != nil {
		return err
	}
	r.SystemTemplate = tmpl
	return nil
}

// ParseUserTemplate parses and sets a custom user template
func (r *BasicContextManager) ParseUserTemplate(templateStr string) error {
	tmpl, err := template.New("user").Parse(templateStr)
	if err != nil {
		return err
	}
	r.UserTemplate = tmpl
	return nil
}

func (r *BasicContextManager) BuildPrompt(run *AgentRun, history []ai.Message, tools []ai.Tool) ([]ai.Message, error) {
	reduced := run.reducedPrompt()

	toolHistory := ""
	if !reduced {
		toolHistory = createToolHistory(history)
	}

	systemVars := createSystemVariables(run, tools, toolHistory, reduced)
	var systemBuf bytes.Buffer
	if err := r.SystemTemplate.Execute(&systemBuf, systemVars); err != nil {
		return nil, fmt.Errorf("failed to execute system template: %w", err)
	}

	msgs := []ai.Message{
		ai.SystemMessage{Role: ai.SystemRole, Content: systemBuf.String()},
	}

	userVars := createUserVariables(run.userMessage)
	var userBuf bytes.Buffer
	if err := r.UserTemplate.Execute(&userBuf, userVars); err != nil {
		return nil, fmt.Errorf("failed to execute user template: %w", err)
	}
	if userContent := userBuf.String(); userContent != "" {
		msgs = append(msgs, ai.UserMessage{Role: ai.UserRole, Content: userContent})
	}

	if !reduced {
		msgs = append(msgs, history...)
	}
	return msgs, nil
}

func createSystemVariables(run *AgentRun, tools []ai.Tool, toolHistory string, reduced bool) map[string]interface{} {
	agent := run.agent

	datasetBlock := "(no dataset loaded)"
	if ds := run.Dataset(); ds != nil {
		maxRows := ds.RowCount()
		if maxRows > run.sampleThreshold() {
			maxRows = run.sampleRows()
		}
		if reduced {
			maxRows = reducedSampleRows
		}
		datasetBlock = ds.PromptBlock(maxRows, 0)
	}

	hasToolHistory := strings.TrimSpace(toolHistory) != ""

	return map[string]interface{}{
		"HasTools":        len(tools) > 0,
		"Role":            agent.Description,
		"Instructions":    agent.Instructions,
		"Tools":           tools,
		"ToolHistory":     toolHistory,
		"DatasetBlock":    datasetBlock,
		"HasRole":         agent.Description != "",
		"HasInstructions": agent.Instructions != "",
		"HasToolHistory":  hasToolHistory,
	}
}

func createUserVariables(message string) map[string]interface{} {
	return map[string]interface{}{
		"Message":    message,
		"HasMessage": message != "",
	}
}

// createToolHistory renders completed tool calls as text blocks the model can
// scan without replaying the raw message history.
func createToolHistory(msgHistory []ai.Message) string {
	msg := ""

	toolResponses := make(map[string]ai.ToolMessage)
	for _, history := range msgHistory {
		if toolMsg, ok := history.(ai.ToolMessage); ok && toolMsg.Role == ai.ToolRole {
			toolResponses[toolMsg.ToolCallID] = toolMsg
		}
	}

	for _, history := range msgHistory {
		aiMsg, ok := history.(ai.AIMessage)
		if !ok || aiMsg.Role != ai.AssistantRole {
			continue
		}
		for _, toolCall := range aiMsg.ToolCalls {
			toolResponse, found := toolResponses[toolCall.ID]
			if !found {
				continue
			}
			toolParams := toolCall.Args
			if toolParams == "" {
				toolParams = "{}"
			}

			var toolResult string
			if resultBytes, err := json.Marshal(toolResponse.Content); err == nil {
				toolResult = string(resultBytes)
			} else {
				toolResult = fmt.Sprintf("%q", toolResponse.Content)
			}

			msg += fmt.Sprintf("<tool_called>\ntool_name: %s\ntool_call_id: %s\ntool_parameters: %s\ntool_result: %s\n</tool_called>\n",
				toolCall.Name, toolCall.ID, toolParams, toolResult)
		}
	}

	return msg
}
