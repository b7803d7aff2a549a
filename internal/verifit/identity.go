package verifit

import (
	"fmt"
	"log/slog"

	apperrors "remcli/internal/errors"
	"remcli/pkg/contracts/domain"
)

// maxCurveSlots is the number of internal curve slots a session holds per
// test context. The vendor format never exceeds four.
const maxCurveSlots = 4

// slotNode is the internal attribute addressing a slot's raw curve array.
func slotNode(scheme string, slot int) string {
	return fmt.Sprintf("map_%sspl%d", scheme, slot)
}

// targetNodeName is the internal attribute addressing a slot's prescriptive
// targets. Unlike slotNode the vendor writes an underscore before the
// suffix here.
func targetNodeName(scheme string, slot int) string {
	return fmt.Sprintf("map_%s_targetspl%d", scheme, slot)
}

// metricBase prefixes the aided-metric node names derived from a slot.
func metricBase(slot int) string {
	return fmt.Sprintf("test%d", slot)
}

// resolveKeys correlates each measured speech curve with an internal curve
// slot. The format declares no foreign key between a curve and its targets;
// the only linkage is that the instrument writes the same sample text under
// both the stim_level node and one of the slot-addressed internal nodes. A
// slot matches when its raw text equals the measured curve's raw text
// exactly, and the first matching slot wins.
//
// Unmatched curves are dropped from the table and reported; they get no
// target or aided metric downstream. Peak-output sweeps have no slot and
// are skipped outright.
func (e *Extractor) resolveKeys(doc *Document, curves []domain.MeasuredCurve) (domain.KeyTable, []*apperrors.AppError) {
	keys := make(domain.KeyTable)
	var notices []*apperrors.AppError

	for _, curve := range curves {
		if curve.MPO {
			continue
		}

		ref := domain.CurveRef{Level: curve.Level, Channel: curve.Channel}
		resolved := false
		for slot := 1; slot <= maxCurveSlots; slot++ {
			node, ok := doc.internalNode(curve.Channel, slotNode(e.scheme, slot))
			if !ok || node.Text != curve.RawText {
				continue
			}

			keys[ref] = domain.CurveKey{
				Ref:        ref,
				Slot:       slot,
				TargetNode: targetNodeName(e.scheme, slot),
				MetricBase: metricBase(slot),
			}
			resolved = true
			e.log.Debug("resolved curve slot",
				slog.String("file", doc.Filename),
				slog.String("condition", string(curve.Condition)),
				slog.Int("slot", slot))
			break
		}

		if !resolved {
			notices = append(notices, apperrors.NewUnresolvedKeyError(doc.Filename, string(curve.Condition)))
			e.log.Warn("no internal curve matches measured data",
				slog.String("file", doc.Filename),
				slog.String("condition", string(curve.Condition)))
		}
	}

	return keys, notices
}
