package tools

import (
	"github.com/nexxia-ai/datagentic"
	"github.com/nexxia-ai/datagentic/ai"
)

const (
	DataframeInfoToolName    = "dataframe_info"
	dataframeInfoDescription = `Dataset overview tool that reports the shape and schema of the loaded dataset.

WHEN TO USE THIS TOOL:
- Use when you need to know which columns exist and what kind of data they hold
- Helpful as a first step before choosing columns for other tools
- Useful for checking row and column counts before deciding how to compute

HOW TO USE:
- Call it without arguments
- The tool returns the dataset name, row and column counts, and one line per column with its inferred kind and non-null count

FEATURES:
- Distinguishes numeric, categorical, datetime and text columns
- Reports non-null counts so sparse columns stand out
- Output is a compact markdown table

LIMITATIONS:
- Reports structure only; it computes no statistics
- Requires a dataset to be loaded`
)

func NewDataframeInfoTool() datagentic.AgentTool {
	return datagentic.AgentTool{
		Name:        DataframeInfoToolName,
		Description: dataframeInfoDescription,
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
		NewExecute: func(run *datagentic.AgentRun, _ datagentic.ValidationResult) (*ai.ToolResult, error) {
			ds := run.Dataset()
			if ds == nil {
				return ai.ErrorResult("no dataset loaded"), nil
			}
			return ai.TextResult(ds.Info()), nil
		},
	}
}
