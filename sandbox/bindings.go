package sandbox

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/dop251/goja"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/nexxia-ai/datagentic/chart"
	"github.com/nexxia-ai/datagentic/dataset"
)

// runState collects what a run produces outside its final value: printed
// lines and the last rendered plot.
type runState struct {
	maxOutput int
	logBytes  int
	logs      []string
	image     []byte
}

func (st *runState) appendLog(line string) {
	if st.logBytes+len(line) > st.maxOutput {
		panic(errOutputLimit)
	}
	st.logBytes += len(line)
	st.logs = append(st.logs, line)
}

// bind installs the df object, the stats helpers, the plot functions and a
// bounded console into the runtime. Host errors are thrown as JS exceptions
// so user code can catch them; uncaught ones surface as ErrFault.
func bind(vm *goja.Runtime, st *runState, ds *dataset.Dataset) error {
	throw := func(err error) {
		panic(vm.ToValue(err.Error()))
	}

	kinds := make(map[string]string)
	for _, c := range ds.Schema() {
		kinds[c.Name] = c.Kind.String()
	}

	df := vm.NewObject()
	dfBinds := []struct {
		name  string
		value interface{}
	}{
		{"name", ds.Name()},
		{"numRows", ds.RowCount()},
		{"numColumns", ds.ColumnCount()},
		{"columns", ds.Columns()},
		{"kinds", kinds},
		{"rows", func() []map[string]interface{} { return ds.Records(-1) }},
		{"head", func(n ...int) []map[string]interface{} {
			limit := 5
			if len(n) > 0 {
				limit = n[0]
			}
			return ds.Records(limit)
		}},
		{"column", func(name string) []string {
			cells, err := ds.Cells(name)
			if err != nil {
				throw(err)
			}
			return cells
		}},
		{"numeric", func(name string) []float64 {
			xs, err := ds.Numeric(name)
			if err != nil {
				throw(err)
			}
			return xs
		}},
		{"groupBy", func(by, target string, agg ...string) []map[string]interface{} {
			name := string(dataset.AggMean)
			if len(agg) > 0 {
				name = agg[0]
			}
			a, err := dataset.ParseAggregation(name)
			if err != nil {
				throw(err)
			}
			groups, err := ds.GroupAggregate(by, target, a)
			if err != nil {
				throw(err)
			}
			valueKey := target
			if a == dataset.AggCount && valueKey == "" {
				valueKey = "count"
			}
			out := make([]map[string]interface{}, len(groups))
			for i, g := range groups {
				out[i] = map[string]interface{}{by: g.Group, valueKey: g.Value}
			}
			return out
		}},
	}
	for _, b := range dfBinds {
		if err := df.Set(b.name, b.value); err != nil {
			return err
		}
	}
	if err := vm.Set("df", df); err != nil {
		return err
	}

	helpers := map[string]interface{}{
		"mean": func(xs []float64) float64 {
			if len(xs) == 0 {
				return math.NaN()
			}
			return stat.Mean(xs, nil)
		},
		"sum": func(xs []float64) float64 { return floats.Sum(xs) },
		"std": func(xs []float64) float64 {
			if len(xs) < 2 {
				return math.NaN()
			}
			return stat.StdDev(xs, nil)
		},
		"min": func(xs []float64) float64 {
			if len(xs) == 0 {
				return math.NaN()
			}
			return floats.Min(xs)
		},
		"max": func(xs []float64) float64 {
			if len(xs) == 0 {
				return math.NaN()
			}
			return floats.Max(xs)
		},
		"median": func(xs []float64) float64 { return median(xs) },
		"count":  func(xs []interface{}) int { return len(xs) },
		"unique": func(xs []interface{}) []interface{} {
			seen := make(map[string]bool)
			out := make([]interface{}, 0, len(xs))
			for _, x := range xs {
				key := fmt.Sprint(x)
				if !seen[key] {
					seen[key] = true
					out = append(out, x)
				}
			}
			return out
		},
		"round": func(x float64, digits ...int) float64 {
			d := 0
			if len(digits) > 0 {
				d = digits[0]
			}
			pow := math.Pow(10, float64(d))
			return math.Round(x*pow) / pow
		},
	}
	for name, fn := range helpers {
		if err := vm.Set(name, fn); err != nil {
			return err
		}
	}

	plotObj := vm.NewObject()
	plotBinds := []struct {
		name string
		fn   interface{}
	}{
		{"bar", func(labels []string, values []float64, opts ...map[string]interface{}) {
			o := parseOpts(opts)
			png, err := chart.Bar(o.title, o.xlabel, o.ylabel, labels, values)
			if err != nil {
				throw(err)
			}
			st.image = png
		}},
		{"line", func(xs, ys []float64, opts ...map[string]interface{}) {
			o := parseOpts(opts)
			png, err := chart.Line(o.title, o.xlabel, o.ylabel, xs, ys)
			if err != nil {
				throw(err)
			}
			st.image = png
		}},
		{"scatter", func(xs, ys []float64, opts ...map[string]interface{}) {
			o := parseOpts(opts)
			png, err := chart.Scatter(o.title, o.xlabel, o.ylabel, xs, ys)
			if err != nil {
				throw(err)
			}
			st.image = png
		}},
		{"hist", func(values []float64, opts ...map[string]interface{}) {
			o := parseOpts(opts)
			png, err := chart.Histogram(o.title, o.xlabel, values, o.bins)
			if err != nil {
				throw(err)
			}
			st.image = png
		}},
	}
	for _, b := range plotBinds {
		if err := plotObj.Set(b.name, b.fn); err != nil {
			return err
		}
	}
	if err := vm.Set("plot", plotObj); err != nil {
		return err
	}

	console := vm.NewObject()
	if err := console.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = jsString(arg)
		}
		st.appendLog(strings.Join(parts, " "))
		return goja.Undefined()
	}); err != nil {
		return err
	}
	return vm.Set("console", console)
}

// finish turns the final expression value into a Result. A rendered plot wins
// over the value; undefined and null fall back to whatever was printed.
func (st *runState) finish(value goja.Value) *Result {
	res := &Result{Logs: st.logs}
	if st.image != nil {
		res.Kind = KindImage
		res.Image = st.image
		return res
	}
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		res.Scalar = strings.Join(st.logs, "\n")
		return res
	}

	switch v := value.Export().(type) {
	case []interface{}:
		if tbl, ok := tableFromObjects(v); ok {
			res.Kind = KindTable
			res.Table = tbl
			return res
		}
		res.Scalar = jsonString(v)
	case []map[string]interface{}:
		items := make([]interface{}, len(v))
		for i := range v {
			items[i] = v[i]
		}
		if tbl, ok := tableFromObjects(items); ok {
			res.Kind = KindTable
			res.Table = tbl
			return res
		}
		res.Scalar = jsonString(v)
	case map[string]interface{}:
		res.Kind = KindTable
		res.Table = tableFromMap(v)
	case float64:
		res.Scalar = strconv.FormatFloat(v, 'g', -1, 64)
	case int64:
		res.Scalar = strconv.FormatInt(v, 10)
	case string:
		res.Scalar = v
	case bool:
		res.Scalar = strconv.FormatBool(v)
	default:
		res.Scalar = jsonString(v)
	}
	return res
}

// tableFromObjects builds a table from an array of objects. Columns are the
// sorted union of keys, since key order does not survive the export.
func tableFromObjects(items []interface{}) (*dataset.Table, bool) {
	if len(items) == 0 {
		return nil, false
	}
	rows := make([]map[string]interface{}, len(items))
	for i, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			return nil, false
		}
		rows[i] = m
	}

	seen := make(map[string]bool)
	var cols []string
	for _, m := range rows {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)

	tbl := &dataset.Table{Columns: cols}
	for _, m := range rows {
		row := make([]string, len(cols))
		for j, c := range cols {
			if cell, ok := m[c]; ok {
				row[j] = cellString(cell)
			}
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl, true
}

// tableFromMap renders a plain object as a two-column key/value table with
// sorted keys.
func tableFromMap(m map[string]interface{}) *dataset.Table {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tbl := &dataset.Table{Columns: []string{"key", "value"}}
	for _, k := range keys {
		tbl.Rows = append(tbl.Rows, []string{k, cellString(m[k])})
	}
	return tbl
}

func cellString(v interface{}) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(c, 10)
	case bool:
		return strconv.FormatBool(c)
	default:
		return jsonString(c)
	}
}

func jsonString(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func jsString(v goja.Value) string {
	switch v.Export().(type) {
	case map[string]interface{}, []interface{}, []map[string]interface{}:
		return jsonString(v.Export())
	}
	return v.String()
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

type plotOpts struct {
	title  string
	xlabel string
	ylabel string
	bins   int
}

func parseOpts(opts []map[string]interface{}) plotOpts {
	var po plotOpts
	if len(opts) == 0 {
		return po
	}
	o := opts[0]
	if s, ok := o["title"].(string); ok {
		po.title = s
	}
	if s, ok := o["xlabel"].(string); ok {
		po.xlabel = s
	}
	if s, ok := o["ylabel"].(string); ok {
		po.ylabel = s
	}
	switch n := o["bins"].(type) {
	case int64:
		po.bins = int(n)
	case float64:
		po.bins = int(n)
	}
	return po
}
