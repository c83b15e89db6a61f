package transform

import (
	"testing"
	"time"

	"github.com/pyplyn/pyplyn/internal/model"
)

func mkPoint(name string, value float64, t time.Time) model.Transmutation {
	return model.Transmutation{Name: name, Value: value, OriginalValue: value, Time: t}
}

func TestLastDatapointKeepsOnlyHighestIndexPerRow(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := model.Matrix{
		{mkPoint("a", 1, base), mkPoint("a", 2, base.Add(time.Minute))},
		{},
		{mkPoint("b", 5, base)},
	}
	out := LastDatapoint(m)
	if len(out) != 2 {
		t.Fatalf("expected empty rows dropped, got %d rows", len(out))
	}
	if out[0][0].Value != 2 {
		t.Fatalf("expected the last element of row 0, got %v", out[0][0].Value)
	}
	if out[1][0].Value != 5 {
		t.Fatalf("expected row 1's single element preserved, got %v", out[1][0].Value)
	}
}

func TestInfoStatusClampsOKToInfo(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := model.Matrix{{mkPoint("a", 0, base), mkPoint("a", 3, base)}}

	out := InfoStatus(m)
	if out[0][0].Value != model.StatusInfo {
		t.Fatalf("expected OK clamped to INFO, got %v", out[0][0].Value)
	}
	if out[0][1].Value != 3 {
		t.Fatalf("expected non-OK value unchanged, got %v", out[0][1].Value)
	}
}

func TestInfoStatusIsIdempotent(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := model.Matrix{{mkPoint("a", 0, base)}}

	once := InfoStatus(m)
	twice := InfoStatus(once)
	if once[0][0].Value != twice[0][0].Value {
		t.Fatalf("expected applying InfoStatus twice to equal applying it once")
	}
}

func TestThresholdMarksMatchesAsCrit(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := model.Matrix{{mkPoint("a", 10, base), mkPoint("a", 1, base)}}

	fn := Threshold(model.ThresholdTransform{Threshold: 5, Type: model.GreaterThan})
	out := fn(m)

	if out[0][0].Value != model.StatusCrit {
		t.Fatalf("expected a matching value clamped to CRIT, got %v", out[0][0].Value)
	}
	if out[0][1].Value != model.StatusOK {
		t.Fatalf("expected a non-matching value clamped to OK, got %v", out[0][1].Value)
	}
	if out[0][0].OriginalValue != 10 {
		t.Fatalf("expected OriginalValue preserved, got %v", out[0][0].OriginalValue)
	}
}

func thresholdDurationCfg() model.ThresholdMetForDurationTransform {
	return model.ThresholdMetForDurationTransform{
		Threshold:              10,
		Type:                   model.GreaterThan,
		CriticalDurationMillis: int64(10 * time.Minute / time.Millisecond),
		WarnDurationMillis:     int64(5 * time.Minute / time.Millisecond),
		InfoDurationMillis:     int64(2 * time.Minute / time.Millisecond),
		Name:                   "cpu",
	}
}

func TestThresholdMetForDurationReachesCrit(t *testing.T) {
	last := time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)
	row := model.Row{
		mkPoint("cpu", 20, last.Add(-11*time.Minute)),
		mkPoint("cpu", 20, last.Add(-6*time.Minute)),
		mkPoint("cpu", 20, last),
	}
	cfg := thresholdDurationCfg()
	out := ThresholdMetForDuration(cfg)(model.Matrix{row})

	if len(out) != 1 {
		t.Fatalf("expected one reduced row, got %d", len(out))
	}
	if out[0][0].Value != model.StatusCrit {
		t.Fatalf("expected CRIT once a matching point crosses the critical cutoff, got %v", out[0][0].Value)
	}
}

func TestThresholdMetForDurationFallsBackToWarn(t *testing.T) {
	last := time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)
	row := model.Row{
		mkPoint("cpu", 20, last.Add(-6*time.Minute)),
		mkPoint("cpu", 20, last),
	}
	cfg := thresholdDurationCfg()
	out := ThresholdMetForDuration(cfg)(model.Matrix{row})

	if out[0][0].Value != model.StatusWarn {
		t.Fatalf("expected WARN when the match run reaches the warn cutoff but not critical, got %v", out[0][0].Value)
	}
}

func TestThresholdMetForDurationBreaksOutToInfoOnNonMatch(t *testing.T) {
	last := time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)
	row := model.Row{
		mkPoint("cpu", 20, last.Add(-6*time.Minute)),
		mkPoint("cpu", 5, last.Add(-3*time.Minute)),
		mkPoint("cpu", 20, last),
	}
	cfg := thresholdDurationCfg()
	out := ThresholdMetForDuration(cfg)(model.Matrix{row})

	if out[0][0].Value != model.StatusInfo {
		t.Fatalf("expected the non-matching point older than the info cutoff to break out to INFO, got %v", out[0][0].Value)
	}
	if len(out[0][0].Metadata) == 0 {
		t.Fatalf("expected a metadata message on the INFO breakout")
	}
}

func TestThresholdMetForDurationChecksWarnBeforeInfoOnNonMatch(t *testing.T) {
	last := time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)
	row := model.Row{
		mkPoint("cpu", 50, last.Add(-90*time.Second)),
		mkPoint("cpu", 150, last.Add(-0*time.Second)),
	}
	cfg := model.ThresholdMetForDurationTransform{
		Threshold:              100,
		Type:                   model.GreaterThan,
		CriticalDurationMillis: int64(60 * time.Second / time.Millisecond),
		WarnDurationMillis:     int64(30 * time.Second / time.Millisecond),
		InfoDurationMillis:     int64(10 * time.Second / time.Millisecond),
		Name:                   "cpu",
	}
	out := ThresholdMetForDuration(cfg)(model.Matrix{row})

	if out[0][0].Value != model.StatusWarn {
		t.Fatalf("expected the non-matching point older than the warn cutoff to break out to WARN (checked before INFO), got %v", out[0][0].Value)
	}
}

func TestThresholdMetForDurationStaysOKWhenNoMatchesRunLongEnough(t *testing.T) {
	last := time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)
	row := model.Row{
		mkPoint("cpu", 1, last.Add(-time.Minute)),
		mkPoint("cpu", 20, last),
	}
	cfg := thresholdDurationCfg()
	out := ThresholdMetForDuration(cfg)(model.Matrix{row})

	if out[0][0].Value != model.StatusOK {
		t.Fatalf("expected OK when the matching run doesn't reach any cutoff, got %v", out[0][0].Value)
	}
}

func TestThresholdMetForDurationDropsEmptyRows(t *testing.T) {
	cfg := thresholdDurationCfg()
	out := ThresholdMetForDuration(cfg)(model.Matrix{{}})
	if len(out) != 0 {
		t.Fatalf("expected empty rows dropped, got %d", len(out))
	}
}

func TestThresholdMetForDurationTransformEqualsComparesLikeForLike(t *testing.T) {
	a := model.ThresholdMetForDurationTransform{
		Threshold: 1, Type: model.GreaterThan,
		CriticalDurationMillis: 1, WarnDurationMillis: 2, InfoDurationMillis: 3,
		Name: "x",
	}
	b := a
	b.InfoDurationMillis = 99

	if a.Equals(b) {
		t.Fatalf("expected Equals to detect a differing InfoDurationMillis")
	}

	c := a
	c.WarnDurationMillis = 99
	if a.Equals(c) {
		t.Fatalf("expected Equals to detect a differing WarnDurationMillis, not compare it against InfoDurationMillis")
	}

	if !a.Equals(a) {
		t.Fatalf("expected a value to equal itself")
	}
}
