package dataset

import (
	"sort"

	"remcli/pkg/contracts/domain"
)

// Diffs outer-joins the measured and target long tables on (file, frequency,
// condition) and computes the signed difference measured minus target. The
// difference exists only where both sides are present; a row with one side
// absent keeps the present value and an undefined difference, never a zero.
//
// Rows come back sorted ascending by filename, frequency, condition, so the
// join is reproducible regardless of input order.
func Diffs(measured, targets *domain.LongTable) []domain.DiffRow {
	type joinKey struct {
		filename  string
		frequency int
		condition domain.Condition
	}
	type pair struct {
		measured domain.Datum
		target   domain.Datum
	}

	joined := make(map[joinKey]pair)
	if measured != nil {
		for _, row := range measured.Rows {
			k := joinKey{row.Filename, row.Frequency, row.Condition}
			p := joined[k]
			p.measured = row.Value
			joined[k] = p
		}
	}
	if targets != nil {
		for _, row := range targets.Rows {
			k := joinKey{row.Filename, row.Frequency, row.Condition}
			p := joined[k]
			p.target = row.Value
			joined[k] = p
		}
	}

	keys := make([]joinKey, 0, len(joined))
	for k := range joined {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].filename != keys[j].filename {
			return keys[i].filename < keys[j].filename
		}
		if keys[i].frequency != keys[j].frequency {
			return keys[i].frequency < keys[j].frequency
		}
		return keys[i].condition < keys[j].condition
	})

	rows := make([]domain.DiffRow, 0, len(keys))
	for _, k := range keys {
		p := joined[k]
		rows = append(rows, domain.DiffRow{
			Filename:  k.filename,
			Frequency: k.frequency,
			Condition: k.condition,
			Measured:  p.measured,
			Target:    p.target,
			Diff:      p.measured.Sub(p.target),
		})
	}
	return rows
}
