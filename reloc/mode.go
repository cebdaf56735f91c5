// Package reloc implements the prediction-merging side of camera
// relocalisation: the per-leaf cluster-mode tables a trained forest produces
// and the evaluator that fuses them into bounded per-pixel sets of 3D scene
// coordinate hypotheses for a downstream pose solver.
package reloc

import (
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Mode is one mode of a leaf's multi-modal scene-coordinate distribution: a
// learned 3D point with the weight of the evidence behind it. Modes are
// populated during forest consolidation and read-only at inference time.
type Mode struct {
	Position r3.Vector
	Weight   float64
}

// Prediction is a bounded list of cluster modes for one pixel, ordered by
// descending weight once merged. An empty prediction means "no relocalisation
// evidence here", which callers must treat as information absence rather than
// an error.
type Prediction []Mode

// Table maps forest-global leaf rows to their learned cluster modes. Each row
// is bounded to a fixed maximum mode count; rows for internal tree nodes are
// simply left empty.
type Table struct {
	maxModesPerLeaf int
	rows            [][]Mode
}

// NewTable creates a table with rowCount empty rows, each holding at most
// maxModesPerLeaf modes.
func NewTable(rowCount, maxModesPerLeaf int) *Table {
	return &Table{
		maxModesPerLeaf: maxModesPerLeaf,
		rows:            make([][]Mode, rowCount),
	}
}

// RowCount returns the number of rows in the table.
func (t *Table) RowCount() int {
	return len(t.rows)
}

// SetRow stores the modes for the given leaf row. If more modes are supplied
// than the per-leaf bound allows, the highest-weighted ones are kept.
func (t *Table) SetRow(row int, modes []Mode) error {
	if row < 0 || row >= len(t.rows) {
		return errors.Errorf("leaf row %d out of range [0, %d)", row, len(t.rows))
	}
	stored := make([]Mode, len(modes))
	copy(stored, modes)
	sortByWeight(stored)
	if len(stored) > t.maxModesPerLeaf {
		stored = stored[:t.maxModesPerLeaf]
	}
	t.rows[row] = stored
	return nil
}

// Row returns the modes stored for the given leaf row, or nil if the row is
// out of range or empty. Callers must not mutate the returned slice.
func (t *Table) Row(row int) []Mode {
	if row < 0 || row >= len(t.rows) {
		return nil
	}
	return t.rows[row]
}

func sortByWeight(modes []Mode) {
	sort.SliceStable(modes, func(i, j int) bool {
		return modes[i].Weight > modes[j].Weight
	})
}
