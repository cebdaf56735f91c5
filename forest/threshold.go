package forest

import (
	"fmt"
	"math/rand"

	"github.com/groveml/grove/dataset"
)

// thresholdFunc sends descriptors whose value at one feature index is below a
// threshold to the left branch.
type thresholdFunc struct {
	featureIndex int
	threshold    float32
}

func (f *thresholdFunc) Classify(descriptor dataset.Descriptor) Branch {
	if descriptor[f.featureIndex] < f.threshold {
		return Left
	}
	return Right
}

func (f *thresholdFunc) String() string {
	return fmt.Sprintf("x[%d] < %v", f.featureIndex, f.threshold)
}

// ThresholdGenerator proposes axis-aligned splits: each candidate compares a
// randomly chosen feature against a threshold sampled from the value of a
// randomly chosen retained example. The candidate with the highest
// information gain wins.
type ThresholdGenerator[L comparable] struct {
	rnd *rand.Rand
}

// NewThresholdGenerator creates an axis-aligned threshold generator drawing
// its candidates from the given random generator.
func NewThresholdGenerator[L comparable](rnd *rand.Rand) *ThresholdGenerator[L] {
	return &ThresholdGenerator[L]{rnd: rnd}
}

// SplitExamples implements Generator.
func (g *ThresholdGenerator[L]) SplitExamples(
	reservoir *dataset.Reservoir[L],
	candidateCount int,
	gainThreshold float64,
) (*Split[L], bool) {
	examples := reservoir.Examples()
	if len(examples) < 2 {
		return nil, false
	}
	featureCount := len(examples[0].Descriptor())

	var best *Split[L]
	bestGain := gainThreshold
	for i := 0; i < candidateCount; i++ {
		fn := &thresholdFunc{
			featureIndex: g.rnd.Intn(featureCount),
			threshold:    0,
		}
		fn.threshold = examples[g.rnd.Intn(len(examples))].Descriptor()[fn.featureIndex]

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
