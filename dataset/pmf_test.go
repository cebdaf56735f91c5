package dataset

import (
	"testing"

	"go.viam.com/test"
)

func TestProbabilityMassFunction(t *testing.T) {
	h := NewHistogram[string]()
	for i := 0; i < 7; i++ {
		h.Add("wall")
	}
	for i := 0; i < 3; i++ {
		h.Add("floor")
	}

	pmf := NewProbabilityMassFunction(h)
	test.That(t, pmf.Mass("wall"), test.ShouldAlmostEqual, 0.7, 1e-9)
	test.That(t, pmf.Mass("floor"), test.ShouldAlmostEqual, 0.3, 1e-9)
	test.That(t, pmf.Mass("ceiling"), test.ShouldEqual, 0)

	best, ok := pmf.BestLabel()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, best, test.ShouldEqual, "wall")

	test.That(t, pmf.String(), test.ShouldEqual, "{floor: 0.300, wall: 0.700}")
}

func TestProbabilityMassFunctionEmpty(t *testing.T) {
	pmf := NewProbabilityMassFunction(NewHistogram[string]())
	_, ok := pmf.BestLabel()
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, pmf.Mass("anything"), test.ShouldEqual, 0)
}

func TestAverageProbabilityMassFunctions(t *testing.T) {
	h1 := NewHistogram[string]()
	h1.Add("a")
	h2 := NewHistogram[string]()
	h2.Add("a")
	h2.Add("b")

	avg := AverageProbabilityMassFunctions(
		NewProbabilityMassFunction(h1),
		NewProbabilityMassFunction(h2),
	)
	test.That(t, avg.Mass("a"), test.ShouldAlmostEqual, 0.75, 1e-9)
	test.That(t, avg.Mass("b"), test.ShouldAlmostEqual, 0.25, 1e-9)

	empty := AverageProbabilityMassFunctions[string]()
	_, ok := empty.BestLabel()
	test.That(t, ok, test.ShouldBeFalse)
}
