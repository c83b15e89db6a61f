package transform

import "github.com/pyplyn/pyplyn/internal/model"

// InfoStatus clamps OK (0) readings to INFO (1); every other cell is
// unchanged. Applied twice, it equals applying it once.
func InfoStatus(m model.Matrix) model.Matrix {
	out := make(model.Matrix, len(m))
	for i, row := range m {
		newRow := make(model.Row, len(row))
		for j, t := range row {
			if int64(t.Value) == 0 {
				newRow[j] = t.WithValue(1)
			} else {
				newRow[j] = t
			}
		}
		out[i] = newRow
	}
	return out
}
