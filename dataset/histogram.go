package dataset

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Histogram counts examples per label. The sum of the bins always equals the
// number of examples currently represented by the histogram.
type Histogram[L comparable] struct {
	bins  map[L]int
	total int
}

// NewHistogram creates an empty histogram.
func NewHistogram[L comparable]() *Histogram[L] {
	return &Histogram[L]{bins: map[L]int{}}
}

// Add increments the bin for the given label.
func (h *Histogram[L]) Add(label L) {
	h.bins[label]++
	h.total++
}

// Remove decrements the bin for the given label. Removing a label that is not
// in the histogram is a no-op.
func (h *Histogram[L]) Remove(label L) {
	if h.bins[label] == 0 {
		return
	}
	h.bins[label]--
	h.total--
	if h.bins[label] == 0 {
		delete(h.bins, label)
	}
}

// Count returns the bin count for the given label.
func (h *Histogram[L]) Count(label L) int {
	return h.bins[label]
}

// TotalCount returns the sum of all bin counts.
func (h *Histogram[L]) TotalCount() int {
	return h.total
}

// IsEmpty returns whether the histogram has no counts in it.
func (h *Histogram[L]) IsEmpty() bool {
	return h.total == 0
}

// Labels returns the labels that currently have a non-zero bin, in no
// particular order.
func (h *Histogram[L]) Labels() []L {
	labels := make([]L, 0, len(h.bins))
	for label := range h.bins {
		labels = append(labels, label)
	}
	return labels
}

// Entropy returns the Shannon entropy of the histogram's label distribution,
// in bits. An empty histogram has zero entropy.
func (h *Histogram[L]) Entropy() float64 {
	if h.total == 0 {
		return 0
	}
	probs := make([]float64, 0, len(h.bins))
	for _, count := range h.bins {
		probs = append(probs, float64(count))
	}
	floats.Scale(1/floats.Sum(probs), probs)
	return stat.Entropy(probs) / math.Ln2
}
