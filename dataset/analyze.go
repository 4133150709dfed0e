package dataset

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Aggregation selects how grouped values are combined.
type Aggregation string

const (
	AggMean   Aggregation = "mean"
	AggSum    Aggregation = "sum"
	AggCount  Aggregation = "count"
	AggMedian Aggregation = "median"
)

// ParseAggregation validates an aggregation name.
func ParseAggregation(s string) (Aggregation, error) {
	switch Aggregation(strings.ToLower(strings.TrimSpace(s))) {
	case AggMean:
		return AggMean, nil
	case AggSum:
		return AggSum, nil
	case AggCount:
		return AggCount, nil
	case AggMedian:
		return AggMedian, nil
	}
	return "", fmt.Errorf("unknown aggregation %q (want mean, sum, count or median)", s)
}

// ColumnSummary holds per-column statistics. The numeric fields are only
// meaningful for numeric columns; the other kinds fill Top/Freq instead.
type ColumnSummary struct {
	Name   string
	Kind   Kind
	Count  int
	Unique int

	Top  string
	Freq int

	Mean   float64
	Std    float64
	Min    float64
	Max    float64
	Q25    float64
	Median float64
	Q75    float64
}

type Summary struct {
	Rows    int
	Columns []ColumnSummary
}

// Describe computes per-column statistics: count, mean, std, min, max and
// quartiles for numeric columns; count, unique, top value and top frequency
// for everything else. The result is deterministic for a given dataset.
func (d *Dataset) Describe() *Summary {
	s := &Summary{Rows: len(d.rows)}
	for j, name := range d.cols {
		m := d.meta[j]
		cs := ColumnSummary{Name: name, Kind: m.kind, Count: m.nonNull, Unique: m.unique}

		if m.kind == KindNumeric {
			xs := make([]float64, 0, len(d.rows))
			for _, row := range d.rows {
				if j >= len(row) {
					continue
				}
				if v, ok := parseNumeric(row[j], m.decimalComma); ok {
					xs = append(xs, v)
				}
			}
			cs.Count = len(xs)
			if len(xs) > 0 {
				sorted := make([]float64, len(xs))
				copy(sorted, xs)
				sort.Float64s(sorted)
				cs.Mean = stat.Mean(xs, nil)
				cs.Std = stat.StdDev(xs, nil)
				cs.Min = sorted[0]
				cs.Max = sorted[len(sorted)-1]
				cs.Q25 = quantile(sorted, 0.25)
				cs.Median = quantile(sorted, 0.5)
				cs.Q75 = quantile(sorted, 0.75)
			}
		} else {
			cs.Top, cs.Freq = topValue(d.rows, j)
		}
		s.Columns = append(s.Columns, cs)
	}
	return s
}

// quantile interpolates linearly between order statistics, the same
// convention spreadsheet describe() reports use. sorted must be ascending.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	h := p * float64(n-1)
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

// topValue returns the most frequent non-null cell, first appearance winning
// ties.
func topValue(rows [][]string, j int) (string, int) {
	counts := make(map[string]int)
	var order []string
	for _, row := range rows {
		if j >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[j])
		if isNull(cell) {
			continue
		}
		if _, seen := counts[cell]; !seen {
			order = append(order, cell)
		}
		counts[cell]++
	}
	top, freq := "", 0
	for _, v := range order {
		if counts[v] > freq {
			top, freq = v, counts[v]
		}
	}
	return top, freq
}

// Render produces the markdown the statistical_summary tool returns.
func (s *Summary) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[STATISTICAL SUMMARY] %d rows\n", s.Rows)
	for _, c := range s.Columns {
		if c.Kind == KindNumeric {
			fmt.Fprintf(&b, "- %s (numeric): count=%d mean=%s std=%s min=%s 25%%=%s 50%%=%s 75%%=%s max=%s\n",
				c.Name, c.Count,
				formatFloat(c.Mean), formatFloat(c.Std),
				formatFloat(c.Min), formatFloat(c.Q25), formatFloat(c.Median), formatFloat(c.Q75),
				formatFloat(c.Max))
			continue
		}
		fmt.Fprintf(&b, "- %s (%s): count=%d unique=%d top=%s freq=%d\n",
			c.Name, c.Kind, c.Count, c.Unique, c.Top, c.Freq)
	}
	return b.String()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// GroupValue is one group's aggregated value, ordered by first appearance.
type GroupValue struct {
	Group string
	Value float64
}

// GroupAggregate groups rows by the `by` column and combines the `target`
// column per group. AggCount counts rows and needs no numeric target; the
// other aggregations skip cells that do not parse as numbers.
func (d *Dataset) GroupAggregate(by, target string, agg Aggregation) ([]GroupValue, error) {
	bi, err := d.colIndex(by)
	if err != nil {
		return nil, err
	}
	ti := -1
	var tdc bool
	if agg != AggCount {
		ti, err = d.colIndex(target)
		if err != nil {
			return nil, err
		}
		tdc = d.meta[ti].decimalComma
	}

	groups := make(map[string][]float64)
	counts := make(map[string]int)
	var order []string

	for _, row := range d.rows {
		if bi >= len(row) {
			continue
		}
		key := strings.TrimSpace(row[bi])
		if isNull(key) {
			continue
		}
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
		if ti >= 0 && ti < len(row) {
			if v, ok := parseNumeric(row[ti], tdc); ok {
				groups[key] = append(groups[key], v)
			}
		}
	}

	out := make([]GroupValue, 0, len(order))
	for _, key := range order {
		gv := GroupValue{Group: key}
		switch agg {
		case AggCount:
			gv.Value = float64(counts[key])
		case AggSum:
			gv.Value = floats(groups[key]).sum()
		case AggMean:
			xs := groups[key]
			if len(xs) == 0 {
				gv.Value = math.NaN()
			} else {
				gv.Value = stat.Mean(xs, nil)
			}
		case AggMedian:
			xs := append([]float64(nil), groups[key]...)
			sort.Float64s(xs)
			gv.Value = quantile(xs, 0.5)
		default:
			return nil, fmt.Errorf("unknown aggregation %q", agg)
		}
		out = append(out, gv)
	}
	return out, nil
}

type floats []float64

func (f floats) sum() float64 {
	total := 0.0
	for _, v := range f {
		total += v
	}
	return total
}
