// Package transform implements the pure Matrix -> Matrix transform library
// of spec.md §4.5: LastDatapoint, InfoStatus, Threshold, and
// ThresholdMetForDuration.
package transform

import "github.com/pyplyn/pyplyn/internal/model"

// LastDatapoint keeps only the last (highest-index) element of each row,
// dropping empty rows. Row order is preserved.
func LastDatapoint(m model.Matrix) model.Matrix {
	out := make(model.Matrix, 0, len(m))
	for _, row := range m {
		if len(row) == 0 {
			continue
		}
		out = append(out, model.Row{row[len(row)-1]})
	}
	return out
}
