package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nexxia-ai/datagentic"
	"github.com/nexxia-ai/datagentic/ai"
	"github.com/nexxia-ai/datagentic/sandbox"
)

type ExecuteCodeParams struct {
	Code string `json:"code"`
}

const (
	ExecuteCodeToolName    = "execute_code"
	executeCodeDescription = `JavaScript execution tool that runs short analysis code against the loaded dataset in a locked-down interpreter.

WHEN TO USE THIS TOOL:
- Use for computations the other tools do not cover: filters, derived values, multi-step aggregations
- Use when a question needs an exact number computed from the full data, not the sample shown in the prompt

HOW TO USE:
- Provide the JavaScript source in the code parameter
- Read the dataset through the df object: df.columns, df.kinds, df.numRows, df.rows(), df.head(n), df.column(name), df.numeric(name), df.groupBy(by, target, agg)
- Use the helpers mean, sum, std, min, max, median, count, unique and round for statistics
- Draw with plot.bar(labels, values, opts), plot.line(xs, ys, opts), plot.scatter(xs, ys, opts) or plot.hist(values, opts); opts may set title, xlabel, ylabel and bins
- Print intermediate values with console.log
- The value of the final expression is the result: an array of objects becomes a table, an object becomes key/value rows, a number or string stays a scalar

FEATURES:
- df.groupBy(by, target, agg) returns rows ready to be used as a table result
- Rendered plots are captured as PNG images and delivered to the user automatically
- Numeric columns are parsed for you, including comma decimals

LIMITATIONS:
- No require, no filesystem, no network, no process access and no timers
- The dataset is read-only; mutating the rows you read changes only your copy
- Execution is interrupted at the configured timeout and printed output is capped

TIPS:
- Prefer df.numeric over df.column for arithmetic
- End the snippet with the expression you want reported, for example: mean(df.numeric("price"))`
)

func NewExecuteCodeTool() datagentic.AgentTool {
	return datagentic.AgentTool{
		Name:        ExecuteCodeToolName,
		Description: executeCodeDescription,
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"code": map[string]interface{}{
					"type":        "string",
					"description": "JavaScript source to run against the dataset.",
				},
			},
			"required": []string{"code"},
		},
		Validate: func(run *datagentic.AgentRun, args map[string]interface{}) (datagentic.ValidationResult, error) {
			var params ExecuteCodeParams
			if err := parseParams(args, &params); err != nil {
				return datagentic.ValidationResult{}, err
			}
			if strings.TrimSpace(params.Code) == "" {
				return datagentic.ValidationResult{}, fmt.Errorf("code is required")
			}
			return datagentic.ValidationResult{Values: params}, nil
		},
		NewExecute: func(run *datagentic.AgentRun, vr datagentic.ValidationResult) (*ai.ToolResult, error) {
			ds := run.Dataset()
			if ds == nil {
				return ai.ErrorResult("no dataset loaded"), nil
			}
			params, ok := vr.Values.(ExecuteCodeParams)
			if !ok {
				return ai.ErrorResult("invalid code parameters"), nil
			}

			executor := &sandbox.Executor{Timeout: run.ExecTimeout()}
			result, err := executor.Execute(run.Context(), params.Code, ds)
			if err != nil {
				// A cancelled run aborts; everything else is reported to
				// the model so it can fix its code.
				if errors.Is(err, context.Canceled) {
					return nil, err
				}
				return ai.ErrorResult(err.Error()), nil
			}
			return toolResultFor(result), nil
		},
	}
}

// toolResultFor maps a sandbox result onto tool content: tables as markdown,
// scalars as text, images as binary payloads with a caption.
func toolResultFor(result *sandbox.Result) *ai.ToolResult {
	logs := strings.Join(result.Logs, "\n")
	switch result.Kind {
	case sandbox.KindImage:
		caption := fmt.Sprintf("code rendered a chart (%d bytes)", len(result.Image))
		if logs != "" {
			caption = logs + "\n" + caption
		}
		return ai.ImageResult(result.Image, caption)
	case sandbox.KindTable:
		text := result.Table.Markdown()
		if logs != "" {
			text = logs + "\n\n" + text
		}
		return ai.TextResult(text)
	default:
		text := result.Scalar
		if text == "" {
			text = "(no output)"
		} else if logs != "" && logs != result.Scalar {
			text = logs + "\n\n" + text
		}
		return ai.TextResult(text)
	}
}
