package dataset

import (
	"remcli/pkg/contracts/domain"
)

// Unpivot melts a wide table into tidy long form: one row per (file,
// frequency, condition), stacked column by column in the wide table's
// condition order. Conditions a file never exercised still yield rows, with
// absent values, so downstream joins see the full coordinate set.
func Unpivot(t *domain.WideTable) *domain.LongTable {
	if t == nil {
		return &domain.LongTable{}
	}

	long := &domain.LongTable{Kind: t.Kind}
	long.Rows = make([]domain.LongRow, 0, len(t.Conditions)*len(t.Rows))
	for _, cond := range t.Conditions {
		for _, row := range t.Rows {
			long.Rows = append(long.Rows, domain.LongRow{
				Filename:  row.Filename,
				Frequency: row.Frequency,
				Condition: cond,
				Value:     row.Cell(cond),
			})
		}
	}
	return long
}

// Pivot reassembles a wide table from tidy rows, grouping on (file,
// frequency) in first-seen order. Absent values stay unstored, so a table
// survives Unpivot followed by Pivot unchanged.
func Pivot(long *domain.LongTable) *domain.WideTable {
	wide := domain.NewWideTable(long.Kind)

	type coord struct {
		filename  string
		frequency int
	}
	index := make(map[coord]int)

	for _, row := range long.Rows {
		wide.AddCondition(row.Condition)

		c := coord{row.Filename, row.Frequency}
		i, ok := index[c]
		if !ok {
			i = len(wide.Rows)
			index[c] = i
			wide.Rows = append(wide.Rows, domain.WideRow{
				Filename:  row.Filename,
				Frequency: row.Frequency,
				Cells:     make(map[domain.Condition]domain.Datum),
			})
		}
		if row.Value.Present {
			wide.Rows[i].Cells[row.Condition] = row.Value
		}
	}
	return wide
}
