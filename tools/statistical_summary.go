package tools

import (
	"fmt"

	"github.com/nexxia-ai/datagentic"
	"github.com/nexxia-ai/datagentic/ai"
	"github.com/nexxia-ai/datagentic/dataset"
)

type StatisticalSummaryParams struct {
	Columns []string `json:"columns"`
}

const (
	StatisticalSummaryToolName    = "statistical_summary"
	statisticalSummaryDescription = `Descriptive statistics tool that summarises every column of the loaded dataset.

WHEN TO USE THIS TOOL:
- Use for questions about averages, spread, extremes or typical values
- Useful to understand a dataset before writing custom code
- Use when the user asks for a general description of the data

HOW TO USE:
- Call it without arguments to summarise all columns
- Pass the optional columns array to restrict the output to specific columns

FEATURES:
- Numeric columns report count, mean, standard deviation, min, quartiles and max
- Categorical, datetime and text columns report count, unique values, the most frequent value and its frequency
- Repeated calls over the same dataset return identical output

LIMITATIONS:
- Statistics cover one column at a time; relations between columns need execute_code
- Requires a dataset to be loaded`
)

func NewStatisticalSummaryTool() datagentic.AgentTool {
	return datagentic.AgentTool{
		Name:        StatisticalSummaryToolName,
		Description: statisticalSummaryDescription,
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"columns": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Optional subset of columns to summarise. Omit for all columns.",
				},
			},
		},
		Validate: func(run *datagentic.AgentRun, args map[string]interface{}) (datagentic.ValidationResult, error) {
			var params StatisticalSummaryParams
			if err := parseParams(args, &params); err != nil {
				return datagentic.ValidationResult{}, err
			}
			if ds := run.Dataset(); ds != nil {
				for _, col := range params.Columns {
					if !ds.HasColumn(col) {
						return datagentic.ValidationResult{}, fmt.Errorf("unknown column %q", col)
					}
				}
			}
			return datagentic.ValidationResult{Values: params}, nil
		},
		NewExecute: func(run *datagentic.AgentRun, vr datagentic.ValidationResult) (*ai.ToolResult, error) {
			ds := run.Dataset()
			if ds == nil {
				return ai.ErrorResult("no dataset loaded"), nil
			}
			params, _ := vr.Values.(StatisticalSummaryParams)
			summary := ds.Describe()
			if len(params.Columns) > 0 {
				summary = filterSummary(summary, params.Columns)
			}
			return ai.TextResult(summary.Render()), nil
		},
	}
}

func filterSummary(s *dataset.Summary, columns []string) *dataset.Summary {
	keep := make(map[string]bool, len(columns))
	for _, c := range columns {
		keep[c] = true
	}
	out := &dataset.Summary{Rows: s.Rows}
	for _, c := range s.Columns {
		if keep[c.Name] {
			out.Columns = append(out.Columns, c)
		}
	}
	return out
}
