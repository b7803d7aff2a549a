package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Datum is a single numeric observation that may be absent. Absent is
// distinct from zero: a missing node, an unresolved key, or a non-numeric
// token all yield an absent datum, never a zero-filled one.
type Datum struct {
	Value   float64
	Present bool
}

// Present wraps a concrete observation.
func Present(v float64) Datum {
	return Datum{Value: v, Present: true}
}

// Absent is the missing observation.
func Absent() Datum {
	return Datum{}
}

// ParseDatum coerces one whitespace-trimmed token to a datum. Non-numeric
// tokens become absent rather than an error.
func ParseDatum(token string) Datum {
	v, err := strconv.ParseFloat(strings.TrimSpace(token), 64)
	if err != nil {
		return Absent()
	}
	return Present(v)
}

// Sub returns d minus o, absent when either operand is absent.
func (d Datum) Sub(o Datum) Datum {
	if !d.Present || !o.Present {
		return Absent()
	}
	return Present(d.Value - o.Value)
}

// MarshalJSON renders an absent datum as null and a present one as a number.
func (d Datum) MarshalJSON() ([]byte, error) {
	if !d.Present {
		return []byte("null"), nil
	}
	return json.Marshal(d.Value)
}

// UnmarshalJSON accepts a number or null.
func (d *Datum) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Absent()
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*d = Present(v)
	return nil
}

// TableKind discriminates the result tables and is the value of the wide
// tables' data column.
type TableKind string

const (
	TableMeasured TableKind = "measured"
	TableTarget   TableKind = "target"
	TableAidedSII TableKind = "aided_sii"
)

// HasFrequency reports whether tables of this kind carry a frequency axis.
// The aided-metric table is one scalar row per file.
func (k TableKind) HasFrequency() bool {
	return k != TableAidedSII
}

// WideRow is one row of a wide table: a file (and, for frequency-indexed
// kinds, grid point) coordinate plus one cell per condition column. Cells
// holds present data only; a condition missing from Cells is an absent
// cell. That keeps unpivoting and re-pivoting lossless.
type WideRow struct {
	Filename  string
	Frequency int
	Cells     map[Condition]Datum
}

// Cell returns the datum under the given condition, absent when unset.
func (r WideRow) Cell(c Condition) Datum {
	return r.Cells[c]
}

// WideTable is a wide-format result table: per-file segments concatenated in
// processing order, with the condition column set being the first-seen union
// across segments.
type WideTable struct {
	Kind       TableKind
	Conditions []Condition
	Rows       []WideRow
}

// NewWideTable creates an empty table of the given kind.
func NewWideTable(kind TableKind) *WideTable {
	return &WideTable{Kind: kind}
}

// AddCondition registers a condition column, preserving first-seen order.
func (t *WideTable) AddCondition(c Condition) {
	for _, have := range t.Conditions {
		if have == c {
			return
		}
	}
	t.Conditions = append(t.Conditions, c)
}

// AppendSegment concatenates a per-file segment onto the table, merging its
// condition columns first-seen.
func (t *WideTable) AppendSegment(seg *WideTable) {
	if seg == nil {
		return
	}
	for _, c := range seg.Conditions {
		t.AddCondition(c)
	}
	t.Rows = append(t.Rows, seg.Rows...)
}

// Cell returns the datum at (filename, frequency, condition), absent when no
// such row or cell exists.
func (t *WideTable) Cell(filename string, frequency int, c Condition) Datum {
	for _, row := range t.Rows {
		if row.Filename == filename && row.Frequency == frequency {
			return row.Cell(c)
		}
	}
	return Absent()
}

// Filenames returns the distinct source files in row order.
func (t *WideTable) Filenames() []string {
	seen := make(map[string]bool, len(t.Rows))
	var names []string
	for _, row := range t.Rows {
		if !seen[row.Filename] {
			seen[row.Filename] = true
			names = append(names, row.Filename)
		}
	}
	return names
}

// LongRow is one tidy observation: (file, frequency, condition, value).
// Frequency is unused for frequencyless kinds.
type LongRow struct {
	Filename  string    `json:"filename"`
	Frequency int       `json:"frequency"`
	Condition Condition `json:"condition"`
	Value     Datum     `json:"value"`
}

// LongTable is the tidy counterpart of a wide table.
type LongTable struct {
	Kind TableKind `json:"kind"`
	Rows []LongRow `json:"rows"`
}

// DiffRow joins one measured and one target observation on (file, frequency,
// condition). Diff is measured minus target, absent unless both sides are
// present.
type DiffRow struct {
	Filename  string    `json:"filename"`
	Frequency int       `json:"frequency"`
	Condition Condition `json:"condition"`
	Measured  Datum     `json:"measured"`
	Target    Datum     `json:"target"`
	Diff      Datum     `json:"measured_target"`
}
