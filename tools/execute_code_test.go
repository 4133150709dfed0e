package tools

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteCodeScalar(t *testing.T) {
	agent := climaAgent(t)

	res := dispatch(t, agent, ExecuteCodeToolName, map[string]interface{}{
		"code": `mean(df.numeric("tempo_entrega"))`,
	})
	require.False(t, res.Error)
	assert.Equal(t, "20", textOf(t, res))
}

func TestExecuteCodeGroupedMean(t *testing.T) {
	agent := climaAgent(t)

	res := dispatch(t, agent, ExecuteCodeToolName, map[string]interface{}{
		"code": `df.groupBy("clima", "tempo_entrega", "mean")`,
	})
	require.False(t, res.Error)

	text := textOf(t, res)
	assert.Contains(t, text, "| clima | tempo_entrega |")
	assert.Contains(t, text, "| chuva | 25 |")
	assert.Contains(t, text, "| sol | 10 |")
}

func TestExecuteCodeLogsPrependOutput(t *testing.T) {
	agent := climaAgent(t)

	res := dispatch(t, agent, ExecuteCodeToolName, map[string]interface{}{
		"code": `console.log("passo 1"); 42`,
	})
	assert.Equal(t, "passo 1\n\n42", textOf(t, res))
}

func TestExecuteCodeNoOutput(t *testing.T) {
	agent := climaAgent(t)

	res := dispatch(t, agent, ExecuteCodeToolName, map[string]interface{}{
		"code": "var x = 1;",
	})
	assert.Equal(t, "(no output)", textOf(t, res))
}

func TestExecuteCodeChart(t *testing.T) {
	agent := climaAgent(t)

	res := dispatch(t, agent, ExecuteCodeToolName, map[string]interface{}{
		"code": `plot.bar(["chuva", "sol"], [25, 10], {title: "tempo médio"})`,
	})
	require.False(t, res.Error)

	assert.True(t, bytes.HasPrefix(imageOf(t, res), pngMagic))
	assert.Contains(t, textOf(t, res), "code rendered a chart")
}

func TestExecuteCodeTimeoutReported(t *testing.T) {
	agent := climaAgent(t)
	agent.ExecTimeout = 100 * time.Millisecond

	start := time.Now()
	res := dispatch(t, agent, ExecuteCodeToolName, map[string]interface{}{
		"code": "while (true) {}",
	})

	assert.True(t, res.Error)
	assert.Contains(t, textOf(t, res), "execution timeout")
	assert.Less(t, time.Since(start), 5*time.Second, "the loop must be interrupted")
}

func TestExecuteCodeFaultReported(t *testing.T) {
	agent := climaAgent(t)

	res := dispatch(t, agent, ExecuteCodeToolName, map[string]interface{}{
		"code": "naoExiste()",
	})
	assert.True(t, res.Error)
	assert.Contains(t, textOf(t, res), "execution fault")
}

func TestExecuteCodeValidation(t *testing.T) {
	agent := climaAgent(t)

	_, err := agent.Dispatch(context.Background(), ExecuteCodeToolName, map[string]interface{}{
		"code": "   ",
	})
	assert.ErrorContains(t, err, "code is required")

	_, err = agent.Dispatch(context.Background(), ExecuteCodeToolName, nil)
	assert.ErrorContains(t, err, "code is required")
}

func TestExecuteCodeKeepsDatasetIntact(t *testing.T) {
	agent := climaAgent(t)

	dispatch(t, agent, ExecuteCodeToolName, map[string]interface{}{
		"code": `df.rows()[0].clima = "mutated"; df.head(1)[0].tempo_entrega = 99;`,
	})

	assert.Equal(t, "chuva", agent.Dataset.Row(0)[0])
	assert.Equal(t, 3, agent.Dataset.RowCount())
}
