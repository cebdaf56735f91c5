package reloc

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
	"go.viam.com/test"
)

func TestEvaluatorConfigValidation(t *testing.T) {
	_, err := EvaluatorConfig{MaxClusterCount: 5}.Validated()
	test.That(t, err, test.ShouldBeNil)

	// the zero value picks up the default bound but keeps rank-only merging
	cfg, err := EvaluatorConfig{}.Validated()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.MaxClusterCount, test.ShouldEqual, DefaultEvaluatorConfig().MaxClusterCount)
	test.That(t, cfg.MergeTolerance, test.ShouldEqual, 0)

	_, err = EvaluatorConfig{MaxClusterCount: -1, MergeTolerance: -1}.Validated()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, len(multierr.Errors(err)), test.ShouldEqual, 2)

	_, err = NewEvaluator(DefaultEvaluatorConfig(), nil, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMergeKeepsSmallCandidateSets(t *testing.T) {
	logger := golog.NewTestLogger(t)
	table := NewTable(3, 3)
	test.That(t, table.SetRow(0, []Mode{{Position: r3.Vector{X: 1}, Weight: 1}}), test.ShouldBeNil)
	test.That(t, table.SetRow(1, []Mode{{Position: r3.Vector{X: 1.001}, Weight: 2}}), test.ShouldBeNil)

	// tolerance would fold these two, but they already fit the bound
	evaluator, err := NewEvaluator(EvaluatorConfig{MaxClusterCount: 5, MergeTolerance: 0.1}, table, logger)
	test.That(t, err, test.ShouldBeNil)

	leaves := NewLeafImage(1, 1, 2)
	copy(leaves.At(0, 0), []int32{0, 1})
	var out PredictionImage
	test.That(t, evaluator.MergePredictions(leaves, &out), test.ShouldBeNil)

	merged := out.At(0, 0)
	test.That(t, len(merged), test.ShouldEqual, 2)
	test.That(t, merged[0].Weight+merged[1].Weight, test.ShouldEqual, 3.0)
}

func TestMergeWeightRankedRetention(t *testing.T) {
	logger := golog.NewTestLogger(t)

	// five trees contributing three well-separated modes each
	table := NewTable(5, 3)
	weight := 1.0
	for row := 0; row < 5; row++ {
		modes := make([]Mode, 3)
		for i := range modes {
			modes[i] = Mode{
				Position: r3.Vector{X: float64(row) * 10, Y: float64(i) * 10},
				Weight:   weight,
			}
			weight++
		}
		test.That(t, table.SetRow(row, modes), test.ShouldBeNil)
	}

	evaluator, err := NewEvaluator(EvaluatorConfig{MaxClusterCount: 5}, table, logger)
	test.That(t, err, test.ShouldBeNil)

	leaves := NewLeafImage(1, 1, 5)
	copy(leaves.At(0, 0), []int32{0, 1, 2, 3, 4})
	var out PredictionImage
	test.That(t, evaluator.MergePredictions(leaves, &out), test.ShouldBeNil)

	// exactly the five highest-weighted of the fifteen candidates survive
	merged := out.At(0, 0)
	test.That(t, len(merged), test.ShouldEqual, 5)
	for i, mode := range merged {
		test.That(t, mode.Weight, test.ShouldEqual, float64(15-i))
	}
}

func TestMergeProximityFolding(t *testing.T) {
	logger := golog.NewTestLogger(t)

	table := NewTable(2, 3)
	test.That(t, table.SetRow(0, []Mode{
		{Position: r3.Vector{X: 0}, Weight: 3},
		{Position: r3.Vector{X: 5}, Weight: 2},
	}), test.ShouldBeNil)
	test.That(t, table.SetRow(1, []Mode{
		{Position: r3.Vector{X: 0.04}, Weight: 1},
	}), test.ShouldBeNil)

	evaluator, err := NewEvaluator(EvaluatorConfig{MaxClusterCount: 2, MergeTolerance: 0.05}, table, logger)
	test.That(t, err, test.ShouldBeNil)

	leaves := NewLeafImage(1, 1, 2)
	copy(leaves.At(0, 0), []int32{0, 1})
	var out PredictionImage
	test.That(t, evaluator.MergePredictions(leaves, &out), test.ShouldBeNil)

	// the two near-duplicates fold into one mode with summed weight and a
	// weight-averaged position
	merged := out.At(0, 0)
	test.That(t, len(merged), test.ShouldEqual, 2)
	test.That(t, merged[0].Weight, test.ShouldEqual, 4.0)
	test.That(t, merged[0].Position.X, test.ShouldAlmostEqual, 0.01, 1e-9)
	test.That(t, merged[1].Weight, test.ShouldEqual, 2.0)
}

func TestMergeEmptyEvidence(t *testing.T) {
	logger := golog.NewTestLogger(t)
	table := NewTable(2, 3)
	test.That(t, table.SetRow(0, []Mode{{Position: r3.Vector{X: 1}, Weight: 1}}), test.ShouldBeNil)

	evaluator, err := NewEvaluator(DefaultEvaluatorConfig(), table, logger)
	test.That(t, err, test.ShouldBeNil)

	leaves := NewLeafImage(2, 1, 2)
	copy(leaves.At(0, 0), []int32{0, 1}) // row 1 is empty but valid
	// pixel (1, 0) keeps its NoLeaf markers

	var out PredictionImage
	test.That(t, evaluator.MergePredictions(leaves, &out), test.ShouldBeNil)

	test.That(t, len(out.At(0, 0)), test.ShouldEqual, 1)
	test.That(t, len(out.At(1, 0)), test.ShouldEqual, 0)
}

func TestMergeResizesOutput(t *testing.T) {
	logger := golog.NewTestLogger(t)
	evaluator, err := NewEvaluator(DefaultEvaluatorConfig(), NewTable(1, 1), logger)
	test.That(t, err, test.ShouldBeNil)

	var out PredictionImage
	test.That(t, evaluator.MergePredictions(NewLeafImage(4, 3, 1), &out), test.ShouldBeNil)
	test.That(t, out.Width, test.ShouldEqual, 4)
	test.That(t, out.Height, test.ShouldEqual, 3)

	// same dimensions keep the backing storage
	before := &out.predictions[0]
	test.That(t, evaluator.MergePredictions(NewLeafImage(4, 3, 1), &out), test.ShouldBeNil)
	test.That(t, &out.predictions[0], test.ShouldEqual, before)

	test.That(t, evaluator.MergePredictions(NewLeafImage(2, 2, 1), &out), test.ShouldBeNil)
	test.That(t, out.Width, test.ShouldEqual, 2)
	test.That(t, out.Height, test.ShouldEqual, 2)

	test.That(t, evaluator.MergePredictions(nil, &out), test.ShouldNotBeNil)
	test.That(t, evaluator.MergePredictions(NewLeafImage(1, 1, 1), nil), test.ShouldNotBeNil)
}
