package chart

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexxia-ai/datagentic/dataset"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func climaDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Load("clima.csv",
		strings.NewReader("clima,tempo_entrega\nchuva,30\nsol,10\nchuva,20\n"))
	require.NoError(t, err)
	return ds
}

func TestParseType(t *testing.T) {
	for _, s := range []string{"bar", "line", "scatter", "histogram", " Bar "} {
		got, err := ParseType(s)
		require.NoError(t, err, s)
		assert.Equal(t, Type(strings.ToLower(strings.TrimSpace(s))), got)
	}

	_, err := ParseType("pie")
	assert.ErrorIs(t, err, ErrInvalidSpec)
	assert.Contains(t, err.Error(), `unknown chart type "pie"`)
}

func TestRenderChartTypes(t *testing.T) {
	ds := climaDataset(t)

	tests := []struct {
		name string
		spec Spec
	}{
		{"bar", Spec{Type: TypeBar, XColumn: "clima", YColumn: "tempo_entrega", Aggregation: dataset.AggMean}},
		{"line", Spec{Type: TypeLine, XColumn: "clima", YColumn: "tempo_entrega", Aggregation: dataset.AggSum}},
		{"scatter", Spec{Type: TypeScatter, XColumn: "tempo_entrega", YColumn: "tempo_entrega"}},
		{"histogram", Spec{Type: TypeHistogram, YColumn: "tempo_entrega"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			png, err := Render(ds, tt.spec)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(png, pngMagic), "output is not a PNG")
		})
	}
}

func TestRenderDefaultAggregationIsMean(t *testing.T) {
	png, err := Render(climaDataset(t), Spec{
		Type:    TypeBar,
		XColumn: "clima",
		YColumn: "tempo_entrega",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}

func TestRenderLineWithNumericGroups(t *testing.T) {
	ds, err := dataset.Load("dias.csv",
		strings.NewReader("dia,valor\n3,30\n1,10\n2,20\n"))
	require.NoError(t, err)

	png, err := Render(ds, Spec{Type: TypeLine, XColumn: "dia", YColumn: "valor"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}

func TestRenderInvalidSpecs(t *testing.T) {
	ds := climaDataset(t)

	tests := []struct {
		name string
		spec Spec
	}{
		{"unknown type", Spec{Type: "pie", XColumn: "clima", YColumn: "tempo_entrega"}},
		{"unknown aggregation", Spec{Type: TypeBar, XColumn: "clima", YColumn: "tempo_entrega", Aggregation: "mode"}},
		{"unknown group column", Spec{Type: TypeBar, XColumn: "missing", YColumn: "tempo_entrega"}},
		{"unknown value column", Spec{Type: TypeBar, XColumn: "clima", YColumn: "missing"}},
		{"scatter over categorical", Spec{Type: TypeScatter, XColumn: "clima", YColumn: "tempo_entrega"}},
		{"histogram over categorical", Spec{Type: TypeHistogram, YColumn: "clima"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			png, err := Render(ds, tt.spec)
			assert.Nil(t, png)
			assert.ErrorIs(t, err, ErrInvalidSpec)
		})
	}
}

func TestBarValidation(t *testing.T) {
	_, err := Bar("t", "x", "y", []string{"a"}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrInvalidSpec)

	_, err = Bar("t", "x", "y", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidSpec)
}

func TestLineAndScatterValidation(t *testing.T) {
	_, err := Line("t", "x", "y", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidSpec)

	_, err = Scatter("t", "x", "y", []float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrInvalidSpec)
}

func TestHistogramValidation(t *testing.T) {
	_, err := Histogram("t", "x", nil, 10)
	assert.ErrorIs(t, err, ErrInvalidSpec)

	png, err := Histogram("t", "x", []float64{1, 2, 3, 4, 5}, 0)
	require.NoError(t, err, "non-positive bins fall back to the default")
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}
