// Package main provides forester, a diagnostic CLI that grows a
// relocalisation-style decision forest from a CSV stream of labelled
// descriptors and dumps the resulting tree structures.
package main

import (
	"encoding/csv"
	"io"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/groveml/grove/dataset"
	"github.com/groveml/grove/forest"
)

func main() {
	logger := golog.NewDevelopmentLogger("forester")
	app := &cli.App{
		Name:  "forester",
		Usage: "grow a decision forest online from a CSV example stream",
		Commands: []*cli.Command{
			{
				Name:      "train",
				Usage:     "train a forest from a CSV file of feature columns followed by a label column",
				ArgsUsage: "<examples.csv>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "trees", Value: 5, Usage: "number of trees in the forest"},
					&cli.IntFlag{Name: "reservoir-size", Value: 1000, Usage: "max examples retained per node"},
					&cli.IntFlag{Name: "seen-threshold", Value: 50, Usage: "examples a node must see before it can split"},
					&cli.IntFlag{Name: "candidates", Value: 5, Usage: "split candidates evaluated per attempt"},
					&cli.Float64Flag{Name: "gain-threshold", Value: 0, Usage: "minimum information gain for a split"},
					&cli.IntFlag{Name: "batch-size", Value: 128, Usage: "examples fed per training step"},
					&cli.IntFlag{Name: "split-budget", Value: 10, Usage: "max successful splits per training step per tree"},
					&cli.Float64Flag{Name: "splittability-threshold", Value: 0.5, Usage: "minimum splittability for a node to be split"},
					&cli.Int64Flag{Name: "seed", Value: time.Now().UnixNano(), Usage: "random seed"},
					&cli.StringFlag{Name: "generator", Value: "threshold", Usage: "split generator: threshold or projection"},
					&cli.StringFlag{Name: "out", Usage: "write tree dumps to this file instead of stdout"},
				},
				Action: func(c *cli.Context) error {
					return runTrain(c, logger)
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		logger.Fatal(err)
	}
}

func runTrain(c *cli.Context, logger golog.Logger) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one CSV file argument")
	}

	rnd := rand.New(rand.NewSource(c.Int64("seed")))
	var newGenerator func(*rand.Rand) forest.Generator[string]
	switch name := c.String("generator"); name {
	case "threshold":
		newGenerator = func(treeRnd *rand.Rand) forest.Generator[string] {
			return forest.NewThresholdGenerator[string](treeRnd)
		}
	case "projection":
		newGenerator = func(treeRnd *rand.Rand) forest.Generator[string] {
			return forest.NewProjectionGenerator[string](treeRnd)
		}
	default:
		return errors.Errorf("unknown generator %q", name)
	}

	f, err := forest.NewForest(
		c.Int("trees"),
		forest.TreeConfig{
			MaxReservoirSize:      c.Int("reservoir-size"),
			SeenExamplesThreshold: c.Int("seen-threshold"),
			CandidateCount:        c.Int("candidates"),
			GainThreshold:         c.Float64("gain-threshold"),
		},
		newGenerator,
		rnd,
		logger,
	)
	if err != nil {
		return err
	}

	file, err := os.Open(c.Args().First())
	if err != nil {
		return err
	}
	defer file.Close()

	var (
		batchSize  = c.Int("batch-size")
		budget     = c.Int("split-budget")
		threshold  = c.Float64("splittability-threshold")
		reader     = csv.NewReader(file)
		batch      []*dataset.Example[string]
		total      int
		totalSplit int
	)
	start := time.Now()
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return errors.Wrap(err, "reading examples")
		}
		example, err := parseExample(record)
		if err != nil {
			return errors.Wrapf(err, "line %d", total+1)
		}
		batch = append(batch, example)
		total++
		if len(batch) == batchSize {
			f.AddExamples(batch)
			totalSplit += f.Train(budget, threshold)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		f.AddExamples(batch)
		totalSplit += f.Train(budget, threshold)
	}
	logger.Infow("training finished",
		"examples", total,
		"splits", totalSplit,
		"elapsed", time.Since(start),
	)

	out := io.Writer(os.Stdout)
	if path := c.String("out"); path != "" {
		outFile, err := os.Create(path)
		if err != nil {
			return err
		}
		defer outFile.Close()
		out = outFile
	}
	for i := 0; i < f.TreeCount(); i++ {
		logger.Infof("tree %d: %d nodes", i, f.Tree(i).NodeCount())
		if err := f.Tree(i).Output(out); err != nil {
			return err
		}
	}
	return nil
}

// parseExample turns one CSV record into an example: every column but the
// last is a feature, the last is the label.
func parseExample(record []string) (*dataset.Example[string], error) {
	if len(record) < 2 {
		return nil, errors.New("need at least one feature column and a label column")
	}
	descriptor := make(dataset.Descriptor, len(record)-1)
	for i, field := range record[:len(record)-1] {
		value, err := strconv.ParseFloat(field, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "feature %d", i)
		}
		descriptor[i] = float32(value)
	}
	return dataset.NewExample(descriptor, record[len(record)-1]), nil
}
