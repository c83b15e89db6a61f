package model

// ThresholdType is the comparison applied by Threshold and
// ThresholdMetForDuration transforms.
type ThresholdType string

const (
	GreaterThan ThresholdType = "GREATER_THAN"
	LessThan    ThresholdType = "LESS_THAN"
	EqualTo     ThresholdType = "EQUAL_TO"
)

// Matches reports whether value satisfies the comparison against threshold.
func (t ThresholdType) Matches(value, threshold float64) bool {
	switch t {
	case GreaterThan:
		return value > threshold
	case LessThan:
		return value < threshold
	case EqualTo:
		return value == threshold
	default:
		return false
	}
}

// Status levels produced by Threshold-family transforms.
const (
	StatusOK   = 0.0
	StatusInfo = 1.0
	StatusWarn = 2.0
	StatusCrit = 3.0
)

// TransformKind tags the concrete payload carried by a Transform value.
type TransformKind string

const (
	TransformKindLastDatapoint           TransformKind = "last_datapoint"
	TransformKindInfoStatus              TransformKind = "info_status"
	TransformKindThreshold                TransformKind = "threshold"
	TransformKindThresholdMetForDuration TransformKind = "threshold_met_for_duration"
)

// Transform is a closed tagged-variant sum type dispatched by the pipeline
// engine to a pure Matrix -> Matrix function. Every concrete transform must
// be deterministic and side-effect-free.
type Transform struct {
	Kind                    TransformKind
	Threshold               *ThresholdTransform
	ThresholdMetForDuration *ThresholdMetForDurationTransform
}

// ThresholdTransform compares each cell against Threshold under Type and
// emits a clamped status value.
type ThresholdTransform struct {
	Threshold float64
	Type      ThresholdType
}

// ThresholdMetForDurationTransform implements the duration-aware state
// reduction described in spec.md §4.5. All three duration fields are
// milliseconds measured back from the last point's timestamp.
type ThresholdMetForDurationTransform struct {
	Threshold              float64
	Type                    ThresholdType
	CriticalDurationMillis int64
	WarnDurationMillis      int64
	InfoDurationMillis      int64
	Name                    string
}

// Equals compares two ThresholdMetForDurationTransform values. Not preserved
// verbatim (spec.md §9 Open Questions): the source's equals implementation
// compares InfoDurationMillis against other.WarnDurationMillis, which is
// almost certainly a defect; this corrected version compares like-for-like
// fields and is pinned by a dedicated test (see transform package tests).
func (t ThresholdMetForDurationTransform) Equals(other ThresholdMetForDurationTransform) bool {
	return t.Threshold == other.Threshold &&
		t.Type == other.Type &&
		t.CriticalDurationMillis == other.CriticalDurationMillis &&
		t.WarnDurationMillis == other.WarnDurationMillis &&
		t.InfoDurationMillis == other.InfoDurationMillis &&
		t.Name == other.Name
}
