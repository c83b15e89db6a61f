package transform

import "github.com/pyplyn/pyplyn/internal/model"

// Threshold compares each cell value against cfg.Threshold under cfg.Type
// and replaces it with a status level drawn from {OK, INFO, WARN, CRIT}.
// The exact OK/INFO/WARN/CRIT assignment rule is out of scope for this
// simple variant per spec.md §4.5 ("exact rules out of scope here"); this
// implementation applies the single-level clamp a bare Threshold transform
// is expected to provide: CRIT when the value matches the comparison, OK
// otherwise. ThresholdMetForDuration is the hard, duration-aware case.
func Threshold(cfg model.ThresholdTransform) func(model.Matrix) model.Matrix {
	return func(m model.Matrix) model.Matrix {
		out := make(model.Matrix, len(m))
		for i, row := range m {
			newRow := make(model.Row, len(row))
			for j, t := range row {
				if cfg.Type.Matches(t.Value, cfg.Threshold) {
					newRow[j] = t.WithValue(model.StatusCrit)
				} else {
					newRow[j] = t.WithValue(model.StatusOK)
				}
			}
			out[i] = newRow
		}
		return out
	}
}
