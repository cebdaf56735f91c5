// Package forest implements online decision trees that grow incrementally
// from a bounded-memory stream of labelled examples, plus the ensemble that
// groups them. Nodes are scheduled for splitting by an entropy-based
// splittability score; split functions themselves are pluggable.
package forest

import (
	"fmt"

	"github.com/groveml/grove/dataset"
)

// Branch identifies the subtree a descriptor is routed to by a decision
// function.
type Branch int

// The two branches of a binary split.
const (
	Left Branch = iota
	Right
)

// DecisionFunc classifies a descriptor into the left or right branch of a
// split. The tree treats it as opaque beyond this contract; String is used in
// tree dumps.
type DecisionFunc interface {
	fmt.Stringer
	Classify(descriptor dataset.Descriptor) Branch
}

// Split is a successful split proposal: the chosen decision function and the
// partition it induces on a reservoir's retained examples.
type Split[L comparable] struct {
	DecisionFunc DecisionFunc
	Left, Right  []*dataset.Example[L]
}

// Generator proposes split functions for node reservoirs. SplitExamples
// evaluates up to candidateCount candidates against the reservoir's retained
// examples and returns the best one, or false if no candidate achieves an
// information gain above gainThreshold. Returning false is an expected
// outcome, not an error: the node stays a leaf and is retried once more
// examples arrive.
type Generator[L comparable] interface {
	SplitExamples(reservoir *dataset.Reservoir[L], candidateCount int, gainThreshold float64) (*Split[L], bool)
}

func partitionExamples[L comparable](examples []*dataset.Example[L], fn DecisionFunc) (left, right []*dataset.Example[L]) {
	for _, example := range examples {
		if fn.Classify(example.Descriptor()) == Left {
			left = append(left, example)
		} else {
			right = append(right, example)
		}
	}
	return left, right
}

// splitGain is the information gain of a candidate partition: the entropy of
// the combined distribution minus the size-weighted entropies of the two
// sides.
func splitGain[L comparable](left, right []*dataset.Example[L]) float64 {
	total := float64(len(left) + len(right))
	if total == 0 {
		return 0
	}
	leftHist := dataset.NewHistogram[L]()
	for _, example := range left {
		leftHist.Add(example.Label())
	}
	rightHist := dataset.NewHistogram[L]()
	combined := dataset.NewHistogram[L]()
	for _, example := range right {
		rightHist.Add(example.Label())
		combined.Add(example.Label())
	}
	for _, example := range left {
		combined.Add(example.Label())
	}
	gain := combined.Entropy()
	gain -= float64(len(left)) / total * leftHist.Entropy()
	gain -= float64(len(right)) / total * rightHist.Entropy()
	return gain
}
