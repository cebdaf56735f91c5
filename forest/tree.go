package forest

import (
	"fmt"
	"io"
	"math"
	"math/rand"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/groveml/grove/dataset"
)

// noChild marks an unset child index; a node whose left child is unset is a
// leaf.
const noChild = -1

const (
	defaultCandidateCount        = 5
	defaultSeenExamplesThreshold = 50
)

// TreeConfig holds the growth parameters of a tree.
type TreeConfig struct {
	// MaxReservoirSize bounds the number of examples retained at each node.
	MaxReservoirSize int
	// SeenExamplesThreshold is the minimum number of examples a node must
	// have seen before it is considered for splitting.
	SeenExamplesThreshold int
	// CandidateCount is the number of split candidates the generator
	// evaluates per split attempt.
	CandidateCount int
	// GainThreshold is the minimum information gain a candidate must achieve
	// for a split to succeed.
	GainThreshold float64
}

// Validated fills in defaults and returns the config, or an error describing
// every invalid field.
func (cfg TreeConfig) Validated() (TreeConfig, error) {
	if cfg.SeenExamplesThreshold == 0 {
		cfg.SeenExamplesThreshold = defaultSeenExamplesThreshold
	}
	if cfg.CandidateCount == 0 {
		cfg.CandidateCount = defaultCandidateCount
	}
	var err error
	if cfg.MaxReservoirSize < 0 {
		err = multierr.Append(err, errors.New("max reservoir size must be non-negative"))
	}
	if cfg.CandidateCount < 0 {
		err = multierr.Append(err, errors.New("candidate count must be non-negative"))
	}
	if cfg.GainThreshold < 0 {
		err = multierr.Append(err, errors.New("gain threshold must be non-negative"))
	}
	return cfg, err
}

// node is one entry in a tree's node array. A node starts out as a leaf that
// owns a reservoir; a successful split turns it into an internal node that
// owns a splitter and two child indices. The transition is one-way.
type node[L comparable] struct {
	leftChild, rightChild int
	splitter              DecisionFunc
	reservoir             *dataset.Reservoir[L]
}

func (n *node[L]) isLeaf() bool {
	return n.leftChild == noChild
}

// Tree is a decision tree grown online from a stream of labelled examples.
// Nodes live in a flat array and reference their children by index, so the
// structure is acyclic by construction and relocatable as one buffer.
//
// A tree is single-writer: callers must serialise concurrent AddExamples and
// Train calls on the same tree. Lookups may run concurrently with each other
// once no training call is in flight.
type Tree[L comparable] struct {
	cfg       TreeConfig
	generator Generator[L]
	rnd       *rand.Rand
	logger    golog.Logger

	nodes     []*node[L]
	rootIndex int
	dirty     map[int]struct{}
	queue     *splittabilityQueue
}

// NewTree creates a tree consisting of a single root leaf. The random
// generator is shared by the tree and all of its reservoirs and must not be
// re-seeded during the tree's lifetime.
func NewTree[L comparable](
	cfg TreeConfig,
	generator Generator[L],
	rnd *rand.Rand,
	logger golog.Logger,
) (*Tree[L], error) {
	cfg, err := cfg.Validated()
	if err != nil {
		return nil, err
	}
	if generator == nil {
		return nil, errors.New("a tree needs a split function generator")
	}
	if rnd == nil {
		return nil, errors.New("a tree needs a random generator")
	}
	t := &Tree[L]{
		cfg:       cfg,
		generator: generator,
		rnd:       rnd,
		logger:    logger,
		dirty:     map[int]struct{}{},
		queue:     newSplittabilityQueue(),
	}
	t.rootIndex = t.addNode()
	return t, nil
}

// NodeCount returns the number of nodes in the tree, internal and leaf.
func (t *Tree[L]) NodeCount() int {
	return len(t.nodes)
}

// AddExamples routes each example in the batch to its leaf and inserts it
// into that leaf's reservoir. Splittability is recomputed once per changed
// leaf after the whole batch, so the bookkeeping cost is proportional to the
// number of affected nodes rather than the batch size. An empty batch is a
// no-op.
func (t *Tree[L]) AddExamples(examples []*dataset.Example[L]) {
	for _, example := range examples {
		leafIndex := t.FindLeaf(example.Descriptor())
		if t.nodes[leafIndex].reservoir.Add(example) {
			t.dirty[leafIndex] = struct{}{}
		}
	}
	for nodeIndex := range t.dirty {
		t.updateSplittability(nodeIndex)
	}
	clear(t.dirty)
}

// Train splits up to splitBudget nodes, highest splittability first, and
// returns how many splits succeeded. Nodes whose score is below
// splittabilityThreshold are never split. A node that cannot be split right
// now is taken off the queue for the rest of this training step and put back
// unchanged afterwards, so one stubborn node cannot starve the others.
func (t *Tree[L]) Train(splitBudget int, splittabilityThreshold float64) int {
	nodesSplit := 0

	type stashed struct {
		nodeIndex int
		score     float64
	}
	var stash []stashed
	for nodesSplit < splitBudget {
		nodeIndex, score, ok := t.queue.top()
		if !ok || score < splittabilityThreshold {
			break
		}
		t.queue.pop()
		if t.splitNode(nodeIndex) {
			nodesSplit++
		} else {
			stash = append(stash, stashed{nodeIndex, score})
		}
	}
	for _, s := range stash {
		t.queue.insert(s.nodeIndex, s.score)
	}

	return nodesSplit
}

// LookupPMF returns the probability mass function of the leaf the descriptor
// routes to.
func (t *Tree[L]) LookupPMF(descriptor dataset.Descriptor) *dataset.ProbabilityMassFunction[L] {
	return t.pmfForLeaf(t.FindLeaf(descriptor))
}

// FindLeaf routes the descriptor from the root down to a leaf and returns the
// leaf's node index. It never mutates the tree.
func (t *Tree[L]) FindLeaf(descriptor dataset.Descriptor) int {
	cur := t.rootIndex
	for !t.nodes[cur].isLeaf() {
		if t.nodes[cur].splitter.Classify(descriptor) == Left {
			cur = t.nodes[cur].leftChild
		} else {
			cur = t.nodes[cur].rightChild
		}
	}
	return cur
}

// Output writes a human-readable dump of the tree: one line per node with its
// index and either its splitter description or its seen-example count and
// PMF, indented by depth.
func (t *Tree[L]) Output(w io.Writer) error {
	return t.outputSubtree(w, t.rootIndex, "")
}

func (t *Tree[L]) outputSubtree(w io.Writer, subtreeRootIndex int, indent string) error {
	n := t.nodes[subtreeRootIndex]
	var err error
	if n.isLeaf() {
		_, err = fmt.Fprintf(w, "%s%d: %d %v\n",
			indent, subtreeRootIndex, n.reservoir.SeenExamples(), t.pmfForLeaf(subtreeRootIndex))
	} else {
		_, err = fmt.Fprintf(w, "%s%d: %v\n", indent, subtreeRootIndex, n.splitter)
	}
	if err != nil {
		return err
	}
	if n.leftChild != noChild {
		if err := t.outputSubtree(w, n.leftChild, indent+"  "); err != nil {
			return err
		}
	}
	if n.rightChild != noChild {
		if err := t.outputSubtree(w, n.rightChild, indent+"  "); err != nil {
			return err
		}
	}
	return nil
}

// addNode appends a fresh leaf to the node array and registers it with the
// splittability queue at score zero.
func (t *Tree[L]) addNode() int {
	t.nodes = append(t.nodes, &node[L]{
		leftChild:  noChild,
		rightChild: noChild,
		reservoir:  dataset.NewReservoir[L](t.cfg.MaxReservoirSize, t.rnd),
	})
	nodeIndex := len(t.nodes) - 1
	t.queue.insert(nodeIndex, 0)
	return nodeIndex
}

func (t *Tree[L]) pmfForLeaf(leafIndex int) *dataset.ProbabilityMassFunction[L] {
	return dataset.NewProbabilityMassFunction(t.nodes[leafIndex].reservoir.Histogram())
}

// splitNode attempts to split the given node, returning whether it succeeded.
// On success the node adopts the chosen splitter, gains two leaf children
// whose reservoirs are refilled by stratified resampling, and sheds its own
// reservoir; internal nodes do not retain training data.
func (t *Tree[L]) splitNode(nodeIndex int) bool {
	n := t.nodes[nodeIndex]
	split, ok := t.generator.SplitExamples(n.reservoir, t.cfg.CandidateCount, t.cfg.GainThreshold)
	if !ok {
		return false
	}

	n.splitter = split.DecisionFunc
	n.leftChild = t.addNode()
	n.rightChild = t.addNode()

	multipliers := n.reservoir.ClassMultipliers()
	t.fillReservoir(split.Left, multipliers, t.nodes[n.leftChild].reservoir)
	t.fillReservoir(split.Right, multipliers, t.nodes[n.rightChild].reservoir)

	t.updateSplittability(n.leftChild)
	t.updateSplittability(n.rightChild)

	n.reservoir.Clear()

	if t.logger != nil {
		t.logger.Debugf("split node %d into %d/%d (%d nodes total)",
			nodeIndex, n.leftChild, n.rightChild, len(t.nodes))
	}
	return true
}

// fillReservoir populates a child reservoir from one side of a split. The raw
// subset only contains the parent's retained samples, whose class proportions
// are distorted by the parent's earlier reservoir sampling; scaling each
// label group's size by the parent's class multiplier and redrawing with
// replacement restores the proportions of the all-time population.
func (t *Tree[L]) fillReservoir(
	subset []*dataset.Example[L],
	multipliers map[L]float64,
	reservoir *dataset.Reservoir[L],
) {
	byLabel := map[L][]*dataset.Example[L]{}
	for _, example := range subset {
		byLabel[example.Label()] = append(byLabel[example.Label()], example)
	}
	for label, group := range byLabel {
		sampleCount := int(math.Floor(float64(len(group))*multipliers[label] + 0.5))
		for i := 0; i < sampleCount; i++ {
			reservoir.Add(group[t.rnd.Intn(len(group))])
		}
	}
}

// updateSplittability recomputes a node's splittability and pushes it to the
// queue. A node becomes splittable once it has seen enough examples; its
// score is then the entropy of its all-time label histogram.
func (t *Tree[L]) updateSplittability(nodeIndex int) {
	reservoir := t.nodes[nodeIndex].reservoir
	splittability := 0.0
	if reservoir.SeenExamples() >= t.cfg.SeenExamplesThreshold {
		splittability = reservoir.Histogram().Entropy()
	}
	t.queue.updateKey(nodeIndex, splittability)
}
