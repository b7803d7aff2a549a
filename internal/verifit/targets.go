package verifit

import (
	"log/slog"
	"strings"

	apperrors "remcli/internal/errors"
	"remcli/pkg/contracts/domain"
)

// extractTargets pulls the prescriptive-target array for every resolved
// curve. Target arrays are indexed on the audiometric grid and carry the
// same trailing sentinel entries the grid does, stripped here so lengths
// stay aligned. A missing target node is a notice; the condition is simply
// absent from the target table, never zero-filled.
func (e *Extractor) extractTargets(doc *Document, keys domain.KeyTable) ([]domain.TargetCurve, []*apperrors.AppError) {
	var targets []domain.TargetCurve
	var notices []*apperrors.AppError

	for _, level := range domain.StimulusLevels {
		for _, ch := range domain.Channels {
			key, ok := keys[domain.CurveRef{Level: level, Channel: ch}]
			if !ok {
				continue
			}

			cond := key.Ref.Condition()
			node, ok := doc.internalNode(ch, key.TargetNode)
			if !ok {
				notices = append(notices, apperrors.NewMissingCurveError(doc.Filename, "target", string(cond)))
				e.log.Warn("no target data",
					slog.String("file", doc.Filename),
					slog.String("condition", string(cond)),
					slog.String("node", key.TargetNode))
				continue
			}

			tokens := strings.Fields(node.Text)
			if len(tokens) > audiometricSentinels {
				tokens = tokens[:len(tokens)-audiometricSentinels]
			} else {
				tokens = nil
			}

			samples, bad := e.parseSamples(doc.Filename, string(cond), tokens)
			notices = append(notices, bad...)
			targets = append(targets, domain.TargetCurve{
				Ref:       key.Ref,
				Condition: cond,
				Samples:   samples,
			})
		}
	}

	return targets, notices
}

// targetSegment lays resolved target curves onto the audiometric grid. The
// caller's frequency allow-list does not apply here; target tables keep the
// full audiometric axis.
func (e *Extractor) targetSegment(s *domain.SessionData) *domain.WideTable {
	seg := domain.NewWideTable(domain.TableTarget)
	if len(s.Targets) == 0 {
		return seg
	}

	for _, t := range s.Targets {
		seg.AddCondition(t.Condition)
	}

	for i, freq := range s.AudiometricGrid {
		row := domain.WideRow{
			Filename:  s.Filename,
			Frequency: freq,
			Cells:     make(map[domain.Condition]domain.Datum, len(s.Targets)),
		}
		for _, t := range s.Targets {
			if i < len(t.Samples) && t.Samples[i].Present {
				row.Cells[t.Condition] = t.Samples[i]
			}
		}
		seg.Rows = append(seg.Rows, row)
	}

	return seg
}
