package verifit

import (
	"log/slog"
	"strings"

	apperrors "remcli/internal/errors"
	"remcli/pkg/contracts/domain"
)

// extractAidedSII pulls the instrument's scalar speech-intelligibility index
// for every resolved curve. The node name embeds the acoustic test context,
// so on-ear and test-box sessions address different nodes for the same
// slot. A non-numeric payload keeps the column with an absent value.
func (e *Extractor) extractAidedSII(doc *Document, keys domain.KeyTable) ([]domain.AidedMetric, []*apperrors.AppError) {
	var metrics []domain.AidedMetric
	var notices []*apperrors.AppError

	for _, level := range domain.StimulusLevels {
		for _, ch := range domain.Channels {
			key, ok := keys[domain.CurveRef{Level: level, Channel: ch}]
			if !ok {
				continue
			}

			cond := key.Ref.Condition()
			name := key.MetricBase + e.testType.MetricSuffix()
			node, ok := doc.namedNode(ch, name)
			if !ok {
				notices = append(notices, apperrors.NewMissingCurveError(doc.Filename, "aided SII", string(cond)))
				e.log.Warn("no aided SII data",
					slog.String("file", doc.Filename),
					slog.String("condition", string(cond)),
					slog.String("node", name))
				continue
			}

			value := domain.ParseDatum(node.Text)
			if !value.Present {
				notices = append(notices, apperrors.NewNonNumericError(doc.Filename, string(cond), strings.TrimSpace(node.Text)))
				e.log.Warn("aided SII value treated as absent",
					slog.String("file", doc.Filename),
					slog.String("condition", string(cond)),
					slog.String("node", name))
			}
			metrics = append(metrics, domain.AidedMetric{
				Ref:       key.Ref,
				Condition: cond,
				Value:     value,
			})
		}
	}

	return metrics, notices
}

// metricSegment is the file's aided-SII contribution: exactly one row per
// extracted file, scalar cells, no frequency axis. Files where nothing
// resolved still emit the row so the table stays one-row-per-file.
func (e *Extractor) metricSegment(s *domain.SessionData) *domain.WideTable {
	seg := domain.NewWideTable(domain.TableAidedSII)
	if len(s.Measured) == 0 {
		return seg
	}

	row := domain.WideRow{
		Filename: s.Filename,
		Cells:    make(map[domain.Condition]domain.Datum, len(s.Metrics)),
	}
	for _, m := range s.Metrics {
		seg.AddCondition(m.Condition)
		if m.Value.Present {
			row.Cells[m.Condition] = m.Value
		}
	}
	seg.Rows = append(seg.Rows, row)

	return seg
}
