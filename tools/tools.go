// Package tools provides the built-in analyst tools: dataset overview,
// statistical summary, chart generation and sandboxed code execution. Each
// tool reads the dataset from its run and never mutates it.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/nexxia-ai/datagentic"
)

// DefaultTools returns the built-in tool set in the order agents usually
// register them.
func DefaultTools() []datagentic.AgentTool {
	return []datagentic.AgentTool{
		NewDataframeInfoTool(),
		NewStatisticalSummaryTool(),
		NewGenerateChartTool(),
		NewExecuteCodeTool(),
	}
}

// parseParams round-trips raw arguments through JSON into a typed params
// struct, so field handling matches the advertised schema.
func parseParams(args map[string]interface{}, out interface{}) error {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshaling parameters: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing parameters: %w", err)
	}
	return nil
}
