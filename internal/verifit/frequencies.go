package verifit

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "remcli/internal/errors"
)

// Node names of the two frequency grids every session file carries.
const (
	gridAnalysis    = "12ths"
	gridAudiometric = "audiometric"
)

// audiometricSentinels is the count of trailing non-frequency entries the
// instrument appends to the audiometric grid and to every target array.
// Observed as two across sample files; both are stripped together so the
// grids stay index-aligned.
const audiometricSentinels = 2

// Grids resolves both frequency grids for the document. Every extraction
// stage indexes against one of the two, so a missing or unusable grid is
// fatal for the file.
//
// Values are coerced through floating point and truncated to integer Hz.
// The audiometric grid drops its trailing sentinel entries.
func (d *Document) Grids() (fine, audiometric []int, err error) {
	fine, err = d.parseGrid(gridAnalysis)
	if err != nil {
		return nil, nil, err
	}

	raw, err := d.parseGrid(gridAudiometric)
	if err != nil {
		return nil, nil, err
	}
	if len(raw) <= audiometricSentinels {
		return nil, nil, apperrors.NewAppError(apperrors.ErrTypeMissingGrid,
			fmt.Sprintf("frequency grid %q holds only sentinel entries", gridAudiometric), nil).
			WithContext("file", d.Filename).
			WithContext("grid", gridAudiometric)
	}
	audiometric = raw[:len(raw)-audiometricSentinels]

	return fine, audiometric, nil
}

func (d *Document) parseGrid(name string) ([]int, error) {
	node, ok := d.gridNode(name)
	if !ok {
		return nil, apperrors.NewMissingGridError(d.Filename, name)
	}

	tokens := strings.Fields(node.Text)
	if len(tokens) == 0 {
		return nil, apperrors.NewAppError(apperrors.ErrTypeMissingGrid,
			fmt.Sprintf("frequency grid %q is empty", name), nil).
			WithContext("file", d.Filename).
			WithContext("grid", name)
	}

	grid := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			// Sample arrays tolerate stray tokens, grids cannot: every
			// downstream row is positioned by grid index.
			return nil, apperrors.NewAppError(apperrors.ErrTypeMissingGrid,
				fmt.Sprintf("frequency grid %q holds non-numeric token %q", name, tok), err).
				WithContext("file", d.Filename).
				WithContext("grid", name)
		}
		grid = append(grid, int(v))
	}

	return grid, nil
}
