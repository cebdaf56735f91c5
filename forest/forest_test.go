package forest

import (
	"math/rand"
	"sync"
	"testing"

	"go.viam.com/test"

	"github.com/groveml/grove/dataset"
)

func newTestForest(t *testing.T, treeCount int) (*Forest[string], *rand.Rand) {
	t.Helper()
	rnd := rand.New(rand.NewSource(11))
	f, err := NewForest(
		treeCount,
		TreeConfig{MaxReservoirSize: 100, SeenExamplesThreshold: 50},
		func(*rand.Rand) Generator[string] { return meanGenerator{} },
		rnd,
		nil,
	)
	test.That(t, err, test.ShouldBeNil)
	return f, rnd
}

func TestNewForestValidation(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	newGenerator := func(*rand.Rand) Generator[string] { return meanGenerator{} }

	_, err := NewForest[string](2, TreeConfig{}, nil, rnd, nil)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewForest(2, TreeConfig{}, newGenerator, nil, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestForestTraining(t *testing.T) {
	f, rnd := newTestForest(t, 3)
	test.That(t, f.TreeCount(), test.ShouldEqual, 3)

	f.AddExamples(uniformExamples(rnd, 500, 0.5))
	test.That(t, f.Train(1, 0.5), test.ShouldEqual, 3)
	for i := 0; i < f.TreeCount(); i++ {
		test.That(t, f.Tree(i).NodeCount(), test.ShouldEqual, 3)
	}
}

func TestForestLookupPMFAverages(t *testing.T) {
	f, _ := newTestForest(t, 2)
	var examples []*dataset.Example[string]
	for i := 0; i < 60; i++ {
		label := "wall"
		if i%2 == 0 {
			label = "floor"
		}
		examples = append(examples, dataset.NewExample(dataset.Descriptor{0.5}, label))
	}
	f.AddExamples(examples)

	// every tree saw the same stream, so the average matches each tree
	pmf := f.LookupPMF(dataset.Descriptor{0.5})
	test.That(t, pmf.Mass("wall"), test.ShouldAlmostEqual, 0.5, 1e-9)
	test.That(t, pmf.Mass("floor"), test.ShouldAlmostEqual, 0.5, 1e-9)
}

func TestForestTreesShardAcrossGoroutines(t *testing.T) {
	f, rnd := newTestForest(t, 4)
	examples := uniformExamples(rnd, 1000, 0.5)

	// trees share no mutable state, so training them on separate goroutines
	// must be race-free (the race detector guards this)
	var wg sync.WaitGroup
	for i := 0; i < f.TreeCount(); i++ {
		wg.Add(1)
		tree := f.Tree(i)
		go func() {
			defer wg.Done()
			tree.AddExamples(examples)
			tree.Train(5, 0.5)
		}()
	}
	wg.Wait()

	for i := 0; i < f.TreeCount(); i++ {
		test.That(t, f.Tree(i).NodeCount(), test.ShouldBeGreaterThan, 1)
	}
}

func TestForestLeafNumbering(t *testing.T) {
	f, rnd := newTestForest(t, 3)
	f.AddExamples(uniformExamples(rnd, 500, 0.5))
	f.Train(2, 0.5)

	offsets := f.LeafOffsets()
	test.That(t, len(offsets), test.ShouldEqual, 3)
	test.That(t, offsets[0], test.ShouldEqual, 0)
	expected := 0
	for i, offset := range offsets {
		test.That(t, offset, test.ShouldEqual, expected)
		expected += f.Tree(i).NodeCount()
	}
	test.That(t, f.LeafRowCount(), test.ShouldEqual, expected)

	descriptor := dataset.Descriptor{rnd.Float32(), rnd.Float32()}
	leaves := f.FindLeaves(descriptor)
	test.That(t, len(leaves), test.ShouldEqual, 3)
	for i, leaf := range leaves {
		test.That(t, leaf, test.ShouldEqual, f.Tree(i).FindLeaf(descriptor))
		test.That(t, offsets[i]+leaf, test.ShouldBeLessThan, f.LeafRowCount())
	}
}
