// Package compare lays out two to four properties side by side and marks the
// best value in each numeric row.
package compare

import (
	"strconv"
	"strings"

	"github.com/propscout/propscout/api"
	"github.com/propscout/propscout/errors"
	"github.com/propscout/propscout/internal/util"
)

const (
	MinProperties = 2
	MaxProperties = 4
)

// Cell is one formatted value. Best marks the winning value(s) of its row.
type Cell struct {
	Value string `json:"value"`
	Best  bool   `json:"best,omitempty"`
}

// Row is one attribute across all compared properties.
type Row struct {
	Label string `json:"label"`
	Cells []Cell `json:"cells"`
}

// Table is a ready-to-render comparison.
type Table struct {
	Properties []api.Property `json:"properties"`
	Headers    []string       `json:"headers"`
	Rows       []Row          `json:"rows"`
	Code       string         `json:"code"`
}

type direction int

const (
	unranked direction = iota
	lowerIsBetter
	higherIsBetter
)

type metric struct {
	label  string
	better direction
	value  func(api.Property) *float64
	format func(float64) string
}

var metrics = []metric{
	{"Price", lowerIsBetter, func(p api.Property) *float64 { return p.Price }, dollars},
	{"Price / sqft", lowerIsBetter, api.Property.PricePerSqft, dollars},
	{"Bedrooms", higherIsBetter, func(p api.Property) *float64 { return p.Bedrooms }, plain},
	{"Bathrooms", higherIsBetter, func(p api.Property) *float64 { return p.Bathrooms }, plain},
	{"Square feet", higherIsBetter, func(p api.Property) *float64 { return p.SquareFeet }, util.Thousands},
	{"Lot size (sqft)", higherIsBetter, func(p api.Property) *float64 { return p.LotSize }, util.Thousands},
	{"Year built", higherIsBetter, func(p api.Property) *float64 { return intPtr(p.YearBuilt) }, year},
	{"Days on market", unranked, func(p api.Property) *float64 { return intPtr(p.DaysOnMarket) }, plain},
}

// Build lays out props in the given order.
func Build(props []api.Property) (*Table, error) {
	if err := checkCount(len(props)); err != nil {
		return nil, err
	}

	ids := make([]int64, len(props))
	t := &Table{Properties: props, Headers: make([]string, len(props))}
	for i, p := range props {
		ids[i] = p.ID
		t.Headers[i] = p.Address
		if t.Headers[i] == "" {
			t.Headers[i] = "#" + strconv.FormatInt(p.ID, 10)
		}
	}
	code, err := Encode(ids)
	if err != nil {
		return nil, err
	}
	t.Code = code

	for _, m := range metrics {
		t.Rows = append(t.Rows, m.row(props))
	}
	t.Rows = append(t.Rows, Row{Label: "Type", Cells: textCells(props, func(p api.Property) string { return p.PropertyType })})
	t.Rows = append(t.Rows, Row{Label: "City", Cells: textCells(props, func(p api.Property) string { return p.City })})
	return t, nil
}

func (m metric) row(props []api.Property) Row {
	values := make([]*float64, len(props))
	row := Row{Label: m.label, Cells: make([]Cell, len(props))}
	for i, p := range props {
		values[i] = m.value(p)
		if values[i] == nil {
			row.Cells[i] = Cell{Value: "N/A"}
			continue
		}
		row.Cells[i] = Cell{Value: m.format(*values[i])}
	}

	if m.better == unranked {
		return row
	}
	best, distinct := bestValue(values, m.better)
	if !distinct {
		return row
	}
	for i, v := range values {
		if v != nil && *v == best {
			row.Cells[i].Best = true
		}
	}
	return row
}

// bestValue returns the winning value and whether the present values differ
// at all. A row where everyone ties has no winner.
func bestValue(values []*float64, dir direction) (best float64, distinct bool) {
	seen := false
	for _, v := range values {
		if v == nil {
			continue
		}
		switch {
		case !seen:
			best, seen = *v, true
		case *v != best:
			distinct = true
			if (dir == lowerIsBetter && *v < best) || (dir == higherIsBetter && *v > best) {
				best = *v
			}
		}
	}
	return best, distinct
}

func textCells(props []api.Property, get func(api.Property) string) []Cell {
	cells := make([]Cell, len(props))
	for i, p := range props {
		v := strings.TrimSpace(get(p))
		if v == "" {
			v = "N/A"
		}
		cells[i] = Cell{Value: v}
	}
	return cells
}

// ParseIDs accepts IDs as separate arguments, comma separated, or both.
// Duplicates are dropped keeping first occurrence.
func ParseIDs(args []string) ([]int64, error) {
	seen := make(map[int64]bool)
	var ids []int64
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, errors.Wrapf(errors.ErrInvalidRequest, "invalid property id %q", part)
			}
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if err := checkCount(len(ids)); err != nil {
		return nil, err
	}
	return ids, nil
}

func checkCount(n int) error {
	if n < MinProperties || n > MaxProperties {
		return errors.WithHint(
			errors.Wrapf(errors.ErrInvalidRequest, "can compare %d to %d properties, got %d", MinProperties, MaxProperties, n),
			"pick between two and four properties")
	}
	return nil
}

func intPtr(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}

func dollars(v float64) string { return "$" + util.Thousands(v) }

func plain(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func year(v float64) string { return strconv.Itoa(int(v)) }
