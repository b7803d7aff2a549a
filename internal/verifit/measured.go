package verifit

import (
	"log/slog"
	"strings"

	apperrors "remcli/internal/errors"
	"remcli/pkg/contracts/domain"
)

// extractMeasured pulls every speech curve present in the document plus the
// per-channel peak-output sweep. Most sessions exercise only a few of the
// fourteen possible (level, channel) pairs, so absent pairs are notices,
// never errors. The raw node text is retained on each curve because slot
// resolution compares text, not parsed numbers.
func (e *Extractor) extractMeasured(doc *Document) ([]domain.MeasuredCurve, []*apperrors.AppError) {
	var curves []domain.MeasuredCurve
	var notices []*apperrors.AppError

	for _, level := range domain.StimulusLevels {
		for _, ch := range domain.Channels {
			cond := domain.ConditionFor(ch, level)
			node, ok := doc.measuredNode(ch, level)
			if !ok {
				notices = append(notices, apperrors.NewMissingCurveError(doc.Filename, "measured", string(cond)))
				e.log.Debug("no measured data",
					slog.String("file", doc.Filename),
					slog.String("condition", string(cond)))
				continue
			}

			samples, bad := e.parseSamples(doc.Filename, string(cond), strings.Fields(node.Text))
			notices = append(notices, bad...)
			curves = append(curves, domain.MeasuredCurve{
				Condition: cond,
				Channel:   ch,
				Level:     level,
				RawText:   node.Text,
				Samples:   samples,
			})
			e.log.Debug("found measured data",
				slog.String("file", doc.Filename),
				slog.String("condition", string(cond)),
				slog.Int("samples", len(samples)))
		}
	}

	for _, ch := range domain.Channels {
		cond := domain.MPOCondition(ch)
		node, ok := doc.mpoNode(ch)
		if !ok {
			notices = append(notices, apperrors.NewMissingCurveError(doc.Filename, "mpo", string(cond)))
			e.log.Debug("no MPO data",
				slog.String("file", doc.Filename),
				slog.String("channel", string(ch)))
			continue
		}

		samples, bad := e.parseSamples(doc.Filename, string(cond), strings.Fields(node.Text))
		notices = append(notices, bad...)
		curves = append(curves, domain.MeasuredCurve{
			Condition: cond,
			Channel:   ch,
			MPO:       true,
			RawText:   node.Text,
			Samples:   samples,
		})
	}

	return curves, notices
}

// parseSamples coerces whitespace-split tokens into data. A token that fails
// coercion becomes an absent datum in place, keeping the rest of the array
// aligned with its frequency grid.
func (e *Extractor) parseSamples(file, field string, tokens []string) ([]domain.Datum, []*apperrors.AppError) {
	if len(tokens) == 0 {
		return nil, nil
	}

	samples := make([]domain.Datum, len(tokens))
	var notices []*apperrors.AppError
	for i, tok := range tokens {
		samples[i] = domain.ParseDatum(tok)
		if !samples[i].Present {
			notices = append(notices, apperrors.NewNonNumericError(file, field, tok))
			e.log.Warn("token treated as absent",
				slog.String("file", file),
				slog.String("field", field),
				slog.String("token", tok))
		}
	}
	return samples, notices
}

// measuredSegment lays the file's curves onto the fine frequency grid and
// keeps only allow-listed rows. Curves shorter than the grid contribute
// absent cells past their end rather than failing the file.
func (e *Extractor) measuredSegment(s *domain.SessionData) *domain.WideTable {
	seg := domain.NewWideTable(domain.TableMeasured)
	if len(s.Measured) == 0 {
		return seg
	}

	for _, c := range s.Measured {
		seg.AddCondition(c.Condition)
	}

	allowed := make(map[int]bool, len(e.freqs))
	for _, f := range e.freqs {
		allowed[f] = true
	}

	for i, freq := range s.FineGrid {
		if !allowed[freq] {
			continue
		}
		row := domain.WideRow{
			Filename:  s.Filename,
			Frequency: freq,
			Cells:     make(map[domain.Condition]domain.Datum, len(s.Measured)),
		}
		for _, c := range s.Measured {
			if i < len(c.Samples) && c.Samples[i].Present {
				row.Cells[c.Condition] = c.Samples[i]
			}
		}
		seg.Rows = append(seg.Rows, row)
	}

	return seg
}
