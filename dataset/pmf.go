package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// ProbabilityMassFunction is a normalised label distribution derived from a
// histogram, e.g. the one stored at a tree leaf.
type ProbabilityMassFunction[L comparable] struct {
	masses map[L]float64
}

// NewProbabilityMassFunction creates a PMF from the given histogram. An empty
// histogram yields an empty PMF with zero mass everywhere.
func NewProbabilityMassFunction[L comparable](h *Histogram[L]) *ProbabilityMassFunction[L] {
	masses := make(map[L]float64, len(h.bins))
	if h.total > 0 {
		total := float64(h.total)
		for label, count := range h.bins {
			masses[label] = float64(count) / total
		}
	}
	return &ProbabilityMassFunction[L]{masses: masses}
}

// Mass returns the probability mass for the given label.
func (pmf *ProbabilityMassFunction[L]) Mass(label L) float64 {
	return pmf.masses[label]
}

// BestLabel returns the label with the highest mass, and false if the PMF is
// empty.
func (pmf *ProbabilityMassFunction[L]) BestLabel() (L, bool) {
	var best L
	bestMass := math.Inf(-1)
	if len(pmf.masses) == 0 {
		return best, false
	}
	for label, mass := range pmf.masses {
		if mass > bestMass {
			best, bestMass = label, mass
		}
	}
	return best, true
}

// Entropy returns the Shannon entropy of the PMF, in bits.
func (pmf *ProbabilityMassFunction[L]) Entropy() float64 {
	probs := make([]float64, 0, len(pmf.masses))
	for _, mass := range pmf.masses {
		probs = append(probs, mass)
	}
	return stat.Entropy(probs) / math.Ln2
}

// AverageProbabilityMassFunctions averages the given PMFs with equal weight,
// e.g. to combine the per-tree lookups of a forest. Empty PMFs still count
// towards the divisor.
func AverageProbabilityMassFunctions[L comparable](pmfs ...*ProbabilityMassFunction[L]) *ProbabilityMassFunction[L] {
	masses := map[L]float64{}
	if len(pmfs) == 0 {
		return &ProbabilityMassFunction[L]{masses: masses}
	}
	for _, pmf := range pmfs {
		for label, mass := range pmf.masses {
			masses[label] += mass
		}
	}
	for label := range masses {
		masses[label] /= float64(len(pmfs))
	}
	return &ProbabilityMassFunction[L]{masses: masses}
}

// String renders the PMF with deterministic ordering so tree dumps are stable.
func (pmf *ProbabilityMassFunction[L]) String() string {
	entries := make([]string, 0, len(pmf.masses))
	for label, mass := range pmf.masses {
		entries = append(entries, fmt.Sprintf("%v: %.3f", label, mass))
	}
	sort.Strings(entries)
	return "{" + strings.Join(entries, ", ") + "}"
}
