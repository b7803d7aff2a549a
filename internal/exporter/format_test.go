package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"remcli/pkg/contracts/domain"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{"two decimals kept", 65.53, "65.53"},
		{"single decimal padded", 4.3, "4.30"},
		{"integer padded", 70, "70.00"},
		{"third decimal rounded", 0.815, "0.81"},
		{"negative", -2.5, "-2.50"},
		{"zero", 0, "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatFloat(tt.value))
		})
	}
}

func TestFormatInt(t *testing.T) {
	assert.Equal(t, "1000", formatInt(1000))
	assert.Equal(t, "0", formatInt(0))
	assert.Equal(t, "-1", formatInt(-1))
}

func TestFormatDatum(t *testing.T) {
	assert.Equal(t, "65.50", formatDatum(domain.Present(65.5)))
	assert.Equal(t, "0.00", formatDatum(domain.Present(0)))
	assert.Equal(t, "", formatDatum(domain.Absent()), "absent values must render as empty cells, not zeros")
}
