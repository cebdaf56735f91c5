package reloc

import (
	"image"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/groveml/grove/utils"
)

const (
	defaultMaxClusterCount = 10
	defaultMergeTolerance  = 0.05
)

// EvaluatorConfig controls how per-leaf cluster modes are merged into one
// bounded prediction per pixel.
type EvaluatorConfig struct {
	// MaxClusterCount bounds the number of modes kept per pixel.
	MaxClusterCount int
	// MergeTolerance is the distance within which two candidate modes are
	// folded into one before ranking, in scene units. Zero disables proximity
	// merging and keeps pure weight-ranked retention.
	MergeTolerance float64
}

// DefaultEvaluatorConfig returns the default merge policy: at most 10 modes
// per pixel, proximity-merging candidates closer than 0.05 scene units.
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		MaxClusterCount: defaultMaxClusterCount,
		MergeTolerance:  defaultMergeTolerance,
	}
}

// Validated fills in defaults and returns the config, or an error describing
// every invalid field. A zero MaxClusterCount gets the default bound; a zero
// MergeTolerance is kept as-is, since it meaningfully selects pure
// weight-ranked retention.
func (cfg EvaluatorConfig) Validated() (EvaluatorConfig, error) {
	if cfg.MaxClusterCount == 0 {
		cfg.MaxClusterCount = defaultMaxClusterCount
	}
	var err error
	if cfg.MaxClusterCount < 0 {
		err = multierr.Append(err, errors.New("max cluster count must be positive"))
	}
	if cfg.MergeTolerance < 0 {
		err = multierr.Append(err, errors.New("merge tolerance must be non-negative"))
	}
	return cfg, err
}

// Evaluator merges the cluster modes stored at a forest's leaves into one
// bounded prediction per pixel. The leaf table is read-only during
// evaluation; merging is independent per pixel, with exactly one writer per
// output slot, so pixels run data-parallel without locks.
type Evaluator struct {
	cfg    EvaluatorConfig
	table  *Table
	logger golog.Logger
}

// NewEvaluator creates an evaluator over the given leaf table.
func NewEvaluator(cfg EvaluatorConfig, table *Table, logger golog.Logger) (*Evaluator, error) {
	cfg, err := cfg.Validated()
	if table == nil {
		err = multierr.Append(err, errors.New("an evaluator needs a leaf table"))
	}
	if err != nil {
		return nil, err
	}
	return &Evaluator{cfg: cfg, table: table, logger: logger}, nil
}

// MergePredictions merges, for every pixel, the modes of the leaves listed in
// the leaf image into out. The output image is resized to the input
// dimensions first, which is a no-op when they are unchanged from the
// previous call. A pixel whose leaves hold no modes gets an empty prediction.
func (e *Evaluator) MergePredictions(leaves *LeafImage, out *PredictionImage) error {
	if leaves == nil {
		return errors.New("leaf image must not be nil")
	}
	if out == nil {
		return errors.New("output image must not be nil")
	}
	if e.logger != nil && (out.Width != leaves.Width || out.Height != leaves.Height) {
		e.logger.Debugf("resizing prediction image from %dx%d to %dx%d",
			out.Width, out.Height, leaves.Width, leaves.Height)
	}
	out.resize(leaves.Width, leaves.Height)

	utils.ParallelForEachPixel(image.Point{leaves.Width, leaves.Height}, func(x, y int) {
		out.predictions[y*out.Width+x] = e.mergePixel(leaves.At(x, y))
	})
	return nil
}

// mergePixel fuses the candidate modes of one pixel's leaves. If the
// candidates already fit the per-pixel bound they are kept exactly as found;
// otherwise near-duplicates are folded together (when proximity merging is
// enabled) and the highest-weighted survivors are retained.
func (e *Evaluator) mergePixel(rows []int32) Prediction {
	var candidates []Mode
	for _, row := range rows {
		if row == NoLeaf {
			continue
		}
		candidates = append(candidates, e.table.Row(int(row))...)
	}
	if len(candidates) == 0 {
		return nil
	}
	if len(candidates) <= e.cfg.MaxClusterCount {
		merged := make(Prediction, len(candidates))
		copy(merged, candidates)
		return merged
	}

	sorted := make([]Mode, len(candidates))
	copy(sorted, candidates)
	sortByWeight(sorted)

	if e.cfg.MergeTolerance == 0 {
		return Prediction(sorted[:e.cfg.MaxClusterCount])
	}

	merged := make(Prediction, 0, e.cfg.MaxClusterCount)
	for _, candidate := range sorted {
		if i := merged.closest(candidate.Position, e.cfg.MergeTolerance); i >= 0 {
			merged[i] = fold(merged[i], candidate)
		} else {
			merged = append(merged, candidate)
		}
	}
	sortByWeight(merged)
	if len(merged) > e.cfg.MaxClusterCount {
		merged = merged[:e.cfg.MaxClusterCount]
	}
	return merged
}

// closest returns the index of the first mode within tolerance of the given
// position, or -1.
func (p Prediction) closest(position r3.Vector, tolerance float64) int {
	for i, mode := range p {
		if mode.Position.Distance(position) <= tolerance {
			return i
		}
	}
	return -1
}

// fold combines two modes into one, summing weights and averaging positions
// weighted by the evidence behind each.
func fold(a, b Mode) Mode {
	weight := a.Weight + b.Weight
	return Mode{
		Position: a.Position.Mul(a.Weight).Add(b.Position.Mul(b.Weight)).Mul(1 / weight),
		Weight:   weight,
	}
}
