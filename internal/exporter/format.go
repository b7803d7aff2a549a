package exporter

import (
	"fmt"
	"strconv"

	"remcli/pkg/contracts/domain"
)

// formatFloat renders a curve value with two decimals, so 4.3 lands in
// the CSV as 4.30.
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

// formatInt renders a frequency column value.
func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatDatum renders a datum for CSV output. Absent values become empty
// cells so a blank always means the instrument recorded nothing.
func formatDatum(d domain.Datum) string {
	if !d.Present {
		return ""
	}
	return formatFloat(d.Value)
}
