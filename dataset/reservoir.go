package dataset

import "math/rand"

// Reservoir is a bounded-capacity store of training examples attached to a
// tree node. It keeps a uniform random sample of the examples that have
// reached the node (classic reservoir sampling), together with a histogram of
// every example ever seen there, so class ratios can be estimated correctly
// even after the reservoir fills up and starts evicting.
//
// The random generator is shared with the owning tree and must not be
// re-seeded during the reservoir's lifetime.
type Reservoir[L comparable] struct {
	capacity  int
	samples   []*Example[L]
	histogram *Histogram[L]
	seen      int
	rnd       *rand.Rand
}

// NewReservoir creates an empty reservoir that retains at most capacity
// examples. A capacity of zero degenerates to a histogram-only counter.
func NewReservoir[L comparable](capacity int, rnd *rand.Rand) *Reservoir[L] {
	return &Reservoir[L]{
		capacity:  capacity,
		histogram: NewHistogram[L](),
		rnd:       rnd,
	}
}

// Add inserts an example into the reservoir. The histogram and seen count are
// updated unconditionally; the retained sample set is updated so that each of
// the n examples seen so far has an equal chance of being among the retained
// k. Returns whether the retained set changed, which the owning tree uses to
// mark the node dirty.
func (r *Reservoir[L]) Add(example *Example[L]) bool {
	r.histogram.Add(example.Label())
	r.seen++

	if len(r.samples) < r.capacity {
		r.samples = append(r.samples, example)
		return true
	}
	if r.capacity == 0 {
		return false
	}
	k := r.rnd.Intn(r.seen)
	if k < r.capacity {
		r.samples[k] = example
		return true
	}
	return false
}

// Clear empties the retained samples and the histogram and resets the seen
// count, e.g. when a node transitions from leaf to internal.
func (r *Reservoir[L]) Clear() {
	r.samples = nil
	r.histogram = NewHistogram[L]()
	r.seen = 0
}

// SeenExamples returns the number of examples ever added, including ones no
// longer retained.
func (r *Reservoir[L]) SeenExamples() int {
	return r.seen
}

// Examples returns the currently retained samples. Callers must not mutate
// the returned slice.
func (r *Reservoir[L]) Examples() []*Example[L] {
	return r.samples
}

// Histogram returns the label distribution of all examples ever added.
func (r *Reservoir[L]) Histogram() *Histogram[L] {
	return r.histogram
}

// ClassMultipliers returns, for each label with at least one retained sample,
// the ratio of the all-time count to the retained count. The multipliers are
// used to re-inflate a stratified sample back towards the true class
// proportions when redistributing examples into child reservoirs.
func (r *Reservoir[L]) ClassMultipliers() map[L]float64 {
	retained := map[L]int{}
	for _, example := range r.samples {
		retained[example.Label()]++
	}
	multipliers := make(map[L]float64, len(retained))
	for label, count := range retained {
		multipliers[label] = float64(r.histogram.Count(label)) / float64(count)
	}
	return multipliers
}
