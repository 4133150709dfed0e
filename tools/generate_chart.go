package tools

import (
	"fmt"

	"github.com/nexxia-ai/datagentic"
	"github.com/nexxia-ai/datagentic/ai"
	"github.com/nexxia-ai/datagentic/chart"
	"github.com/nexxia-ai/datagentic/dataset"
)

type GenerateChartParams struct {
	ChartType   string `json:"chart_type"`
	XColumn     string `json:"x_column"`
	YColumn     string `json:"y_column"`
	Aggregation string `json:"aggregation"`
	Title       string `json:"title"`
}

const (
	GenerateChartToolName    = "generate_chart"
	generateChartDescription = `Chart rendering tool that draws the loaded dataset as a PNG image.

WHEN TO USE THIS TOOL:
- Use whenever the user asks for a chart, plot, graph or visualisation
- Prefer it over execute_code for standard chart shapes

HOW TO USE:
- Choose chart_type: bar, line, scatter or histogram
- bar and line group y_column by x_column and combine each group with the aggregation (mean, sum, count or median; defaults to mean)
- scatter draws raw (x_column, y_column) numeric pairs
- histogram bins y_column and ignores x_column
- Optionally set title; a descriptive one is generated otherwise

FEATURES:
- The image is delivered to the user automatically; you only receive a confirmation
- Group order follows first appearance in the data, so bars match the rows

LIMITATIONS:
- y_column must be numeric for every chart type except bar and line with count aggregation
- One chart per call
- Requires a dataset to be loaded`
)

func NewGenerateChartTool() datagentic.AgentTool {
	return datagentic.AgentTool{
		Name:        GenerateChartToolName,
		Description: generateChartDescription,
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"chart_type": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"bar", "line", "scatter", "histogram"},
					"description": "The kind of chart to draw.",
				},
				"x_column": map[string]interface{}{
					"type":        "string",
					"description": "Column for the x axis; the grouping column for bar and line. Ignored by histogram.",
				},
				"y_column": map[string]interface{}{
					"type":        "string",
					"description": "Numeric column for the y axis.",
				},
				"aggregation": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"mean", "sum", "count", "median"},
					"description": "How to combine y values per group for bar and line charts. Defaults to mean.",
				},
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Optional chart title.",
				},
			},
			"required": []string{"chart_type", "y_column"},
		},
		Validate: func(run *datagentic.AgentRun, args map[string]interface{}) (datagentic.ValidationResult, error) {
			var params GenerateChartParams
			if err := parseParams(args, &params); err != nil {
				return datagentic.ValidationResult{}, err
			}
			spec, err := buildChartSpec(run.Dataset(), params)
			if err != nil {
				return datagentic.ValidationResult{}, err
			}
			return datagentic.ValidationResult{Values: spec}, nil
		},
		NewExecute: func(run *datagentic.AgentRun, vr datagentic.ValidationResult) (*ai.ToolResult, error) {
			ds := run.Dataset()
			if ds == nil {
				return ai.ErrorResult("no dataset loaded"), nil
			}
			spec, ok := vr.Values.(chart.Spec)
			if !ok {
				return ai.ErrorResult("invalid chart parameters"), nil
			}
			png, err := chart.Render(ds, spec)
			if err != nil {
				return ai.ErrorResult(err.Error()), nil
			}
			caption := fmt.Sprintf("%s chart of %s rendered (%d bytes)", spec.Type, spec.YColumn, len(png))
			return ai.ImageResult(png, caption), nil
		},
	}
}

// buildChartSpec checks the raw parameters against the dataset and fills
// defaults, so rendering only sees well-formed specs.
func buildChartSpec(ds *dataset.Dataset, params GenerateChartParams) (chart.Spec, error) {
	ctype, err := chart.ParseType(params.ChartType)
	if err != nil {
		return chart.Spec{}, err
	}
	agg := dataset.AggMean
	if params.Aggregation != "" {
		agg, err = dataset.ParseAggregation(params.Aggregation)
		if err != nil {
			return chart.Spec{}, err
		}
	}
	if params.YColumn == "" {
		return chart.Spec{}, fmt.Errorf("y_column is required")
	}
	if ctype != chart.TypeHistogram && params.XColumn == "" {
		return chart.Spec{}, fmt.Errorf("x_column is required for %s charts", ctype)
	}
	if ds != nil {
		if !ds.HasColumn(params.YColumn) {
			return chart.Spec{}, fmt.Errorf("unknown column %q", params.YColumn)
		}
		if ctype != chart.TypeHistogram && !ds.HasColumn(params.XColumn) {
			return chart.Spec{}, fmt.Errorf("unknown column %q", params.XColumn)
		}
	}
	return chart.Spec{
		Type:        ctype,
		XColumn:     params.XColumn,
		YColumn:     params.YColumn,
		Aggregation: agg,
		Title:       params.Title,
	}, nil
}
