package forest

import (
	"math/rand"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/groveml/grove/dataset"
)

// Forest is an ensemble of independently grown trees sharing one config.
// Every tree owns its own generator and random source, so trees never share
// mutable state and callers that want parallel training can shard trees
// across goroutines; a single tree remains single-writer.
type Forest[L comparable] struct {
	trees []*Tree[L]
}

// NewForest creates a forest of treeCount empty trees. Each tree gets its own
// random source, seeded from rnd, and its own generator built by
// newGenerator around that source; results stay reproducible for a fixed
// seed while distinct trees can safely train concurrently.
func NewForest[L comparable](
	treeCount int,
	cfg TreeConfig,
	newGenerator func(rnd *rand.Rand) Generator[L],
	rnd *rand.Rand,
	logger golog.Logger,
) (*Forest[L], error) {
	if newGenerator == nil {
		return nil, errors.New("a forest needs a generator constructor")
	}
	if rnd == nil {
		return nil, errors.New("a forest needs a random generator")
	}
	trees := make([]*Tree[L], 0, treeCount)
	for i := 0; i < treeCount; i++ {
		treeRnd := rand.New(rand.NewSource(rnd.Int63()))
		tree, err := NewTree(cfg, newGenerator(treeRnd), treeRnd, logger)
		if err != nil {
			return nil, err
		}
		trees = append(trees, tree)
	}
	return &Forest[L]{trees: trees}, nil
}

// TreeCount returns the number of trees in the forest.
func (f *Forest[L]) TreeCount() int {
	return len(f.trees)
}

// Tree returns the tree at the given index.
func (f *Forest[L]) Tree(i int) *Tree[L] {
	return f.trees[i]
}

// AddExamples feeds the batch to every tree. Each tree routes and stores the
// examples independently; reservoir sampling keeps per-tree memory bounded.
func (f *Forest[L]) AddExamples(examples []*dataset.Example[L]) {
	for _, tree := range f.trees {
		tree.AddExamples(examples)
	}
}

// Train runs one budgeted training step on every tree and returns the total
// number of successful splits.
func (f *Forest[L]) Train(splitBudget int, splittabilityThreshold float64) int {
	nodesSplit := 0
	for _, tree := range f.trees {
		nodesSplit += tree.Train(splitBudget, splittabilityThreshold)
	}
	return nodesSplit
}

// LookupPMF averages the per-tree leaf PMFs for the descriptor.
func (f *Forest[L]) LookupPMF(descriptor dataset.Descriptor) *dataset.ProbabilityMassFunction[L] {
	pmfs := make([]*dataset.ProbabilityMassFunction[L], 0, len(f.trees))
	for _, tree := range f.trees {
		pmfs = append(pmfs, tree.LookupPMF(descriptor))
	}
	return dataset.AverageProbabilityMassFunctions(pmfs...)
}

// FindLeaves returns the per-tree leaf index the descriptor routes to.
func (f *Forest[L]) FindLeaves(descriptor dataset.Descriptor) []int {
	leaves := make([]int, len(f.trees))
	for i, tree := range f.trees {
		leaves[i] = tree.FindLeaf(descriptor)
	}
	return leaves
}

// LeafOffsets returns, per tree, the offset that turns a tree-local node
// index into a row of a forest-global leaf table. Offsets are cumulative node
// counts, so they are only valid until the next training step grows a tree.
func (f *Forest[L]) LeafOffsets() []int {
	offsets := make([]int, len(f.trees))
	next := 0
	for i, tree := range f.trees {
		offsets[i] = next
		next += tree.NodeCount()
	}
	return offsets
}

// LeafRowCount returns the total number of rows a forest-global leaf table
// needs, i.e. the combined node count of all trees.
func (f *Forest[L]) LeafRowCount() int {
	count := 0
	for _, tree := range f.trees {
		count += tree.NodeCount()
	}
	return count
}
