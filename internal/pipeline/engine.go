// Package pipeline implements the ETL pipeline engine of spec.md §4.7: for
// one Configuration, run its Extracts (dispatched by tagged variant),
// concatenate their rows in declared order, apply its Transforms in
// declared order, and dispatch the result to its Loads.
package pipeline

import (
	"context"
	"fmt"

	"github.com/pyplyn/pyplyn/internal/model"
	"github.com/pyplyn/pyplyn/internal/status"
	"github.com/pyplyn/pyplyn/internal/transform"
)

// MeterName is the metering name this engine exposes.
const MeterName = "pipeline"

// RefocusRunner executes the Refocus-kind Extract processor for a group of
// RefocusExtract definitions drawn from one Configuration.
type RefocusRunner interface {
	Run(ctx context.Context, extracts []*model.RefocusExtract) model.Matrix
}

// LoadRunner dispatches the final Matrix to every declared Load sink and
// reports one success bool per sink.
type LoadRunner interface {
	Run(ctx context.Context, matrix model.Matrix, loads []model.Load) []bool
}

// transformFunc is a pure Matrix -> Matrix stage.
type transformFunc func(model.Matrix) model.Matrix

// Engine runs a single Configuration through Extract, Transform, and Load.
// Repetition is the Scheduler's responsibility (spec.md §4.7): a call to Run
// is single-shot.
type Engine struct {
	refocus RefocusRunner
	loads   LoadRunner
	status  *status.Status
}

// New constructs an Engine. Additional Extract kinds would extend the
// constructor signature and the switch in extract, not this type.
func New(refocus RefocusRunner, loads LoadRunner, st *status.Status) *Engine {
	return &Engine{refocus: refocus, loads: loads, status: st}
}

// Run executes one Configuration end to end, timed as a whole per
// spec.md §4.7.
func (e *Engine) Run(ctx context.Context, c model.Configuration) error {
	stop := e.status.Timer(MeterName, "run")
	defer stop()

	matrix, err := e.extract(ctx, c.Extracts)
	if err != nil {
		return err
	}

	matrix = e.transform(matrix, c.Transforms)
	e.loads.Run(ctx, matrix, c.Loads)
	return nil
}

func (e *Engine) extract(ctx context.Context, extracts []model.Extract) (model.Matrix, error) {
	var refocus []*model.RefocusExtract
	for _, ex := range extracts {
		switch ex.Kind {
		case model.ExtractKindRefocus:
			refocus = append(refocus, ex.Refocus)
		default:
			return nil, fmt.Errorf("pipeline: unknown extract kind %q", ex.Kind)
		}
	}

	if len(refocus) == 0 {
		return nil, nil
	}
	return e.refocus.Run(ctx, refocus), nil
}

func (e *Engine) transform(m model.Matrix, transforms []model.Transform) model.Matrix {
	for _, t := range transforms {
		fn := resolve(t)
		if fn == nil {
			e.status.LogError("pipeline_unknown_transform_kind", fmt.Errorf("kind %q", t.Kind))
			continue
		}
		m = fn(m)
	}
	return m
}

func resolve(t model.Transform) transformFunc {
	switch t.Kind {
	case model.TransformKindLastDatapoint:
		return transform.LastDatapoint
	case model.TransformKindInfoStatus:
		return transform.InfoStatus
	case model.TransformKindThreshold:
		return transform.Threshold(*t.Threshold)
	case model.TransformKindThresholdMetForDuration:
		return transform.ThresholdMetForDuration(*t.ThresholdMetForDuration)
	default:
		return nil
	}
}
