package forest

import (
	"fmt"
	"math/rand"

	"github.com/groveml/grove/dataset"
)

// projectionFunc sends descriptors to the left branch when the difference of
// two feature values falls below a threshold. Pairwise differences are cheap
// and capture oblique structure that axis-aligned thresholds miss.
type projectionFunc struct {
	firstIndex, secondIndex int
	threshold               float32
}

func (f *projectionFunc) project(descriptor dataset.Descriptor) float32 {
	return descriptor[f.firstIndex] - descriptor[f.secondIndex]
}

func (f *projectionFunc) Classify(descriptor dataset.Descriptor) Branch {
	if f.project(descriptor) < f.threshold {
		return Left
	}
	return Right
}

func (f *projectionFunc) String() string {
	return fmt.Sprintf("x[%d] - x[%d] < %v", f.firstIndex, f.secondIndex, f.threshold)
}

// ProjectionGenerator proposes pairwise-difference splits: each candidate
// projects descriptors onto the difference of two randomly chosen features
// and thresholds the projection at the value of a randomly chosen retained
// example.
type ProjectionGenerator[L comparable] struct {
	rnd *rand.Rand
}

// NewProjectionGenerator creates a pairwise-difference projection generator
// drawing its candidates from the given random generator.
func NewProjectionGenerator[L comparable](rnd *rand.Rand) *ProjectionGenerator[L] {
	return &ProjectionGenerator[L]{rnd: rnd}
}

// SplitExamples implements Generator.
func (g *ProjectionGenerator[L]) SplitExamples(
	reservoir *dataset.Reservoir[L],
	candidateCount int,
	gainThreshold float64,
) (*Split[L], bool) {
	examples := reservoir.Examples()
	if len(examples) < 2 {
		return nil, false
	}
	featureCount := len(examples[0].Descriptor())
	if featureCount < 2 {
		return nil, false
	}

	var best *Split[L]
	bestGain := gainThreshold
	for i := 0; i < candidateCount; i++ {
		fn := g.newCandidate(featureCount)
		fn.threshold = fn.project(examples[g.rnd.Intn(len(examples))].Descriptor())

		left, right := partitionExamples(examples, fn)
		if len(left) == 0 || len(right) == 0 {
			continue
		}
		if gain := splitGain(left, right); gain > bestGain {
			best = &Split[L]{DecisionFunc: fn, Left: left, Right: right}
			bestGain = gain
		}
	}
	return best, best != nil
}

// newCandidate draws a projection over two distinct feature indices. A
// colliding draw costs a redraw of the second index rather than the whole
// candidate, so every attempt counts against candidateCount.
func (g *ProjectionGenerator[L]) newCandidate(featureCount int) *projectionFunc {
	fn := &projectionFunc{
		firstIndex:  g.rnd.Intn(featureCount),
		secondIndex: g.rnd.Intn(featureCount),
	}
	for fn.secondIndex == fn.firstIndex {
		fn.secondIndex = g.rnd.Intn(featureCount)
	}
	return fn
}
