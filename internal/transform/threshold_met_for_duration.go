package transform

import (
	"fmt"
	"time"

	"github.com/pyplyn/pyplyn/internal/model"
)

// ThresholdMetForDuration implements the duration-aware state reduction of
// spec.md §4.5. Per row: compute lastPoint (drop empty rows), derive
// crit/warn/info cutoff timestamps relative to lastPoint.Time, and scan
// points newest-to-oldest while they match the threshold, emitting CRIT as
// soon as a matching point is old enough, or falling back to WARN/INFO/OK
// based on how far back the run of matches reached.
//
// One behavior documented in spec.md §9 is preserved verbatim rather than
// "fixed": the INFO-branch message uses warnDurationMillis' formatted
// duration, both mid-scan and in the post-loop fallback — matching
// ThresholdMetForDuration.applyThreshold's appendMessage(..., warnDurationMillis)
// call in the INFO branch. The other open question, the source's
// equals-method field-comparison defect, is corrected rather than preserved:
// see ThresholdMetForDurationTransform.Equals.
func ThresholdMetForDuration(cfg model.ThresholdMetForDurationTransform) func(model.Matrix) model.Matrix {
	return func(m model.Matrix) model.Matrix {
		out := make(model.Matrix, 0, len(m))
		for _, row := range m {
			if len(row) == 0 {
				continue
			}
			if result, ok := reduceRow(row, cfg); ok {
				out = append(out, model.Row{result})
			}
		}
		return out
	}
}

func reduceRow(row model.Row, cfg model.ThresholdMetForDurationTransform) (model.Transmutation, bool) {
	lastPoint := row[len(row)-1]
	lastTs := lastPoint.Time

	critTs := lastTs.Add(-time.Duration(cfg.CriticalDurationMillis) * time.Millisecond)
	warnTs := lastTs.Add(-time.Duration(cfg.WarnDurationMillis) * time.Millisecond)
	infoTs := lastTs.Add(-time.Duration(cfg.InfoDurationMillis) * time.Millisecond)

	atWarningLevel := false
	atInfoLevel := false

	for i := len(row) - 1; i >= 0; i-- {
		point := row[i]
		if !cfg.Type.Matches(point.Value, cfg.Threshold) {
			// warn is checked ahead of info: warnTs is always the more
			// recent cutoff, so checking info first would make this
			// branch unreachable.
			if !point.Time.After(warnTs) {
				return changeValue(point, model.StatusWarn).WithMetadata(warnMessage(cfg)), true
			}
			if !point.Time.After(infoTs) {
				return changeValue(point, model.StatusInfo).WithMetadata(warnMessage(cfg)), true
			}
			return changeValue(point, model.StatusOK), true
		}

		if !point.Time.After(critTs) {
			msg := fmt.Sprintf("<CRIT> threshold hit by %s, with value=%v %s %v, duration longer than %s",
				cfg.Name, point.OriginalValue, cfg.Type, cfg.Threshold, formatDuration(cfg.CriticalDurationMillis))
			return changeValue(lastPoint, model.StatusCrit).WithMetadata(msg), true
		}
		if !point.Time.After(warnTs) {
			atWarningLevel = true
			continue
		}
		if !point.Time.After(infoTs) {
			atInfoLevel = true
			continue
		}
	}

	switch {
	case atWarningLevel:
		return changeValue(lastPoint, model.StatusWarn).WithMetadata(warnMessage(cfg)), true
	case atInfoLevel:
		return changeValue(lastPoint, model.StatusInfo).WithMetadata(warnMessage(cfg)), true
	default:
		return changeValue(lastPoint, model.StatusOK), true
	}
}

// warnMessage uses warnDurationMillis in its formatted duration even for
// the INFO branch, per spec.md §9's documented open question: preserve
// verbatim unless the integrator explicitly requests otherwise.
func warnMessage(cfg model.ThresholdMetForDurationTransform) string {
	return fmt.Sprintf("threshold not met for %s", formatDuration(cfg.WarnDurationMillis))
}

// changeValue preserves OriginalValue and Time, per spec.md §4.5.
func changeValue(point model.Transmutation, value float64) model.Transmutation {
	return point.WithValue(value)
}

// formatDuration renders millis as "<dd>days hh:mm:ss" when days > 0, else
// "hh:mm:ss", zero-padded to two digits, per spec.md §4.5.
func formatDuration(millis int64) string {
	d := time.Duration(millis) * time.Millisecond
	totalSeconds := int64(d / time.Second)

	days := totalSeconds / 86400
	rem := totalSeconds % 86400
	hours := rem / 3600
	rem %= 3600
	minutes := rem / 60
	seconds := rem % 60

	if days > 0 {
		return fmt.Sprintf("%ddays %02d:%02d:%02d", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
