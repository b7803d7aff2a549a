// Package domain contains the shared data model for Verifit session
// extraction: channels, stimulus levels, curves, correlation keys, and the
// wide/long result tables consumed by the reshape and export layers.
package domain

// Channel identifies one side of a bilateral fitting.
type Channel string

const (
	ChannelLeft  Channel = "left"
	ChannelRight Channel = "right"
)

// Channels lists both channels in extraction order.
var Channels = []Channel{ChannelLeft, ChannelRight}

// StimulusLevel is the labeled presentation intensity tag of a speech curve
// as it appears in the session file's stim_level attribute.
type StimulusLevel string

const (
	LevelSoft50 StimulusLevel = "soft50"
	LevelSoft55 StimulusLevel = "soft55"
	LevelAvg60  StimulusLevel = "avg60"
	LevelAvg65  StimulusLevel = "avg65"
	LevelAvg70  StimulusLevel = "avg70"
	LevelLoud75 StimulusLevel = "loud75"
	LevelLoud80 StimulusLevel = "loud80"
)

// StimulusLevels lists every level tag the instrument can record, in
// extraction order. Files typically exercise only a subset.
var StimulusLevels = []StimulusLevel{
	LevelSoft50,
	LevelSoft55,
	LevelAvg60,
	LevelAvg65,
	LevelAvg70,
	LevelLoud75,
	LevelLoud80,
}

// Suffix returns the two-digit dB suffix of the level tag ("avg65" -> "65").
func (l StimulusLevel) Suffix() string {
	s := string(l)
	if len(s) < 2 {
		return s
	}
	return s[len(s)-2:]
}

// TestType selects which of the instrument's node-naming schemes the
// extractor searches for. On-ear and speechmap sessions use the real-ear
// ("rear") scheme, test-box sessions the coupler ("sar") scheme.
type TestType string

const (
	TestTypeOnEar     TestType = "on-ear"
	TestTypeTestBox   TestType = "test-box"
	TestTypeSpeechmap TestType = "speechmap"
)

// Valid reports whether the test type is one of the recognized values.
func (t TestType) Valid() bool {
	switch t {
	case TestTypeOnEar, TestTypeTestBox, TestTypeSpeechmap:
		return true
	}
	return false
}

// Scheme returns the internal node-name fragment for the test type.
func (t TestType) Scheme() string {
	if t == TestTypeTestBox {
		return "sar"
	}
	return "rear"
}

// MetricSuffix returns the aided-SII node-name suffix for the test type.
// The instrument names these nodes by acoustic context, not by scheme.
func (t TestType) MetricSuffix() string {
	if t == TestTypeTestBox {
		return "_testbox_meas_sii"
	}
	return "_on-ear_meas_sii"
}

// Condition is the column token shared by wide and long layouts: the channel
// plus the two-digit level suffix ("left65"), or the channel plus "mpo" for
// peak-output sweeps.
type Condition string

// ConditionFor builds the condition token for a speech curve.
func ConditionFor(ch Channel, lvl StimulusLevel) Condition {
	return Condition(string(ch) + lvl.Suffix())
}

// MPOCondition builds the condition token for a peak-output sweep.
func MPOCondition(ch Channel) Condition {
	return Condition(string(ch) + "mpo")
}

// CurveRef identifies one measured speech curve within a session.
type CurveRef struct {
	Level   StimulusLevel `json:"level"`
	Channel Channel       `json:"channel"`
}

// Condition returns the column token for the referenced curve.
func (r CurveRef) Condition() Condition {
	return ConditionFor(r.Channel, r.Level)
}

// CurveKey is one resolved correlation entry: the internal curve slot whose
// raw sample text matched a measured curve, plus the node names derived from
// that slot number. Keys are file-specific and never reused across files.
type CurveKey struct {
	Ref        CurveRef `json:"ref"`
	Slot       int      `json:"slot"`
	TargetNode string   `json:"target_node"` // internal attribute of the target data node
	MetricBase string   `json:"metric_base"` // name prefix of the aided-metric node
}

// KeyTable maps measured curves to their resolved internal slots for one
// file. A missing entry means the curve could not be correlated and has no
// downstream target or metric.
type KeyTable map[CurveRef]CurveKey

// MeasuredCurve is one extracted sample array. Samples align index-for-index
// with the session's fine-grained frequency grid. RawText preserves the exact
// node payload because identity resolution compares text, not numbers.
type MeasuredCurve struct {
	Condition Condition     `json:"condition"`
	Channel   Channel       `json:"channel"`
	Level     StimulusLevel `json:"level,omitempty"` // empty for MPO sweeps
	MPO       bool          `json:"mpo,omitempty"`
	RawText   string        `json:"-"`
	Samples   []Datum       `json:"samples"`
}

// TargetCurve is one prescriptive-target array aligned to the audiometric
// grid, with the trailing sentinel entries already stripped.
type TargetCurve struct {
	Ref       CurveRef  `json:"ref"`
	Condition Condition `json:"condition"`
	Samples   []Datum   `json:"samples"`
}

// AidedMetric is the instrument's scalar speech-intelligibility index for one
// resolved curve.
type AidedMetric struct {
	Ref       CurveRef  `json:"ref"`
	Condition Condition `json:"condition"`
	Value     Datum     `json:"value"`
}

// SessionData holds everything extracted from one session file. Filename is
// the stem of the source path.
type SessionData struct {
	Filename        string          `json:"filename"`
	FineGrid        []int           `json:"fine_grid"`
	AudiometricGrid []int           `json:"audiometric_grid"`
	Measured        []MeasuredCurve `json:"measured"`
	Keys            KeyTable        `json:"keys"`
	Targets         []TargetCurve   `json:"targets"`
	Metrics         []AidedMetric   `json:"metrics"`
}

// DefaultFrequencies is the standard audiometric frequency set used when the
// caller supplies no allow-list.
var DefaultFrequencies = []int{250, 500, 750, 1000, 1500, 2000, 3000, 4000, 6000, 8000}
