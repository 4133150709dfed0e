package dataset

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, csv string) *Dataset {
	t.Helper()
	ds, err := Load("test.csv", strings.NewReader(csv))
	require.NoError(t, err)
	return ds
}

func TestLoadCommaCSV(t *testing.T) {
	ds := load(t, "clima,tempo_entrega\nchuva,30\nsol,10\nchuva,20\n")

	assert.Equal(t, "test.csv", ds.Name())
	assert.Equal(t, 3, ds.RowCount())
	assert.Equal(t, 2, ds.ColumnCount())
	assert.Equal(t, []string{"clima", "tempo_entrega"}, ds.Columns())
	assert.Equal(t, []string{"chuva", "30"}, ds.Row(0))
}

func TestLoadSniffsDelimiter(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"semicolon", "clima;tempo\nchuva;30\nsol;10\n"},
		{"tab", "clima\ttempo\nchuva\t30\nsol\t10\n"},
		{"pipe", "clima|tempo\nchuva|30\nsol|10\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := load(t, tt.input)
			assert.Equal(t, []string{"clima", "tempo"}, ds.Columns())
			assert.Equal(t, 2, ds.RowCount())
			assert.Equal(t, "30", ds.Row(0)[1])
		})
	}
}

func TestLoadLatin1Fallback(t *testing.T) {
	// "região" and "café" encoded as Latin-1, not valid UTF-8.
	raw := "regi\xe3o;produto\nsul;caf\xe9\nnorte;ch\xe1\n"
	ds, err := Load("latin1.csv", strings.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, []string{"região", "produto"}, ds.Columns())
	assert.Equal(t, "café", ds.Row(0)[1])
	assert.Equal(t, "chá", ds.Row(1)[1])
}

func TestLoadStripsBOM(t *testing.T) {
	ds := load(t, "\ufeffclima,tempo\nchuva,30\n")
	assert.Equal(t, "clima", ds.Columns()[0])
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty input", ""},
		{"header only", "clima,tempo\n"},
		{"ragged rows", "a,b\n1,2\n3\n"},
		{"too many cells", "a,b\n1,2,3\n"},
		{"empty column name", "a,,c\n1,2,3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("bad.csv", strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParse), "expected ErrParse, got %v", err)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("/does/not/exist.csv")
	assert.True(t, errors.Is(err, ErrParse))
}

func TestKindInference(t *testing.T) {
	var b strings.Builder
	b.WriteString("id;preco;valor;data;clima;descricao\n")
	for i := 1; i <= 25; i++ {
		clima := "chuva"
		if i%2 == 0 {
			clima = "sol"
		}
		fmt.Fprintf(&b, "%d;%d.5;%d,5;2024-01-%02d;%s;registro unico numero %d\n",
			i, i, i, i, clima, i)
	}

	ds := load(t, b.String())

	kinds := map[string]Kind{}
	for _, col := range ds.Schema() {
		kinds[col.Name] = col.Kind
	}
	assert.Equal(t, KindNumeric, kinds["id"])
	assert.Equal(t, KindNumeric, kinds["preco"])
	assert.Equal(t, KindNumeric, kinds["valor"], "comma decimals count as numeric")
	assert.Equal(t, KindDatetime, kinds["data"])
	assert.Equal(t, KindCategorical, kinds["clima"])
	assert.Equal(t, KindText, kinds["descricao"])
}

func TestDecimalCommaNumeric(t *testing.T) {
	ds := load(t, "produto;valor\na;1,5\nb;2,5\nc;3,0\n")

	vals, err := ds.Numeric("valor")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5, 3.0}, vals)
}

func TestAccessorsReturnCopies(t *testing.T) {
	ds := load(t, "clima,tempo\nchuva,30\nsol,10\n")

	ds.Row(0)[0] = "mutated"
	ds.Rows()[0][0] = "mutated"
	ds.Columns()[0] = "mutated"
	ds.Preview(1).Rows[0][0] = "mutated"
	ds.Records(1)[0]["clima"] = "mutated"

	assert.Equal(t, "chuva", ds.Row(0)[0])
	assert.Equal(t, "chuva", ds.Rows()[0][0])
	assert.Equal(t, "clima", ds.Columns()[0])
	assert.Equal(t, "chuva", ds.Preview(1).Rows[0][0])
	assert.Equal(t, "chuva", ds.Records(1)[0]["clima"])
}

func TestRecords(t *testing.T) {
	ds := load(t, "clima,tempo\nchuva,30\nsol,\nchuva,20\n")

	recs := ds.Records(-1)
	require.Len(t, recs, 3)
	assert.Equal(t, "chuva", recs[0]["clima"])
	assert.Equal(t, float64(30), recs[0]["tempo"])
	assert.Nil(t, recs[1]["tempo"], "null cells come back as nil")

	assert.Len(t, ds.Records(2), 2)
	assert.Empty(t, ds.Records(0))
	assert.Len(t, ds.Records(10), 3)
}

func TestPreviewBounds(t *testing.T) {
	ds := load(t, "a,b\n1,2\n3,4\n5,6\n")

	assert.Empty(t, ds.Preview(0).Rows)
	assert.Empty(t, ds.Preview(-1).Rows)
	assert.Len(t, ds.Preview(2).Rows, 2)
	assert.Len(t, ds.Preview(100).Rows, 3)
}

func TestUnknownColumn(t *testing.T) {
	ds := load(t, "a,b\n1,2\n")

	_, err := ds.Cells("missing")
	assert.ErrorContains(t, err, `unknown column "missing"`)

	_, err = ds.Numeric("missing")
	assert.Error(t, err)

	assert.True(t, ds.HasColumn("a"))
	assert.False(t, ds.HasColumn("A"), "column lookup is exact")
}

func TestNumericSkipsNulls(t *testing.T) {
	ds := load(t, "a,b\n1,x\n,y\n3,z\nna,w\n")

	vals, err := ds.Numeric("a")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, vals)
}

func TestNumericPairs(t *testing.T) {
	ds := load(t, "x,y\n1,10\n2,\n3,30\nfoo,40\n")

	xs, ys, err := ds.NumericPairs("x", "y")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, xs)
	assert.Equal(t, []float64{10, 30}, ys)

	_, _, err = ds.NumericPairs("x", "missing")
	assert.Error(t, err)
}

func TestInfo(t *testing.T) {
	ds := load(t, "clima,tempo\nchuva,30\nsol,10\nchuva,20\n")

	info := ds.Info()
	assert.Contains(t, info, "[DATAFRAME INFO] test.csv")
	assert.Contains(t, info, "3 rows, 2 columns")
	assert.Contains(t, info, "| clima | categorical | 3 |")
	assert.Contains(t, info, "| tempo | numeric | 3 |")
}

func TestPromptBlock(t *testing.T) {
	var b strings.Builder
	b.WriteString("id,value\n")
	for i := 1; i <= 12; i++ {
		fmt.Fprintf(&b, "row-%02d,%d\n", i, i)
	}
	ds := load(t, b.String())

	block := ds.PromptBlock(5, 0)
	assert.Contains(t, block, "[DATASET] test.csv: 12 rows, 2 columns")
	assert.Contains(t, block, "row-05")
	assert.NotContains(t, block, "row-06")
	assert.Contains(t, block, "(showing first 5 of 12 rows)")

	full := ds.PromptBlock(100, 0)
	assert.Contains(t, full, "row-12")
	assert.NotContains(t, full, "showing first")
}

func TestPromptBlockColumnCap(t *testing.T) {
	ds := load(t, "a,b,c\n1,2,3\n")

	block := ds.PromptBlock(5, 2)
	assert.Contains(t, block, "(showing first 2 of 3 columns)")
}

func TestTableMarkdown(t *testing.T) {
	table := Table{
		Columns: []string{"clima", "tempo"},
		Rows:    [][]string{{"chuva", "30"}, {"sol", "10"}},
	}

	md := table.Markdown()
	assert.Equal(t, "| clima | tempo |\n| --- | --- |\n| chuva | 30 |\n| sol | 10 |\n", md)
}
