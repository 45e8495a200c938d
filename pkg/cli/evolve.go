package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mutscan/mutscan/pkg/data"
	"github.com/mutscan/mutscan/pkg/evolve"
	"github.com/mutscan/mutscan/pkg/seq"
)

var (
	chainsFlag = &cli.IntFlag{
		Name:  "chains",
		Usage: fmt.Sprintf("Number of parallel evolution chains (default: %d)", evolve.ChainsDefault),
		Value: evolve.ChainsDefault,
	}

	stepsFlag = &cli.IntFlag{
		Name:  "steps",
		Usage: fmt.Sprintf("Number of proposal steps per chain (default: %d)", evolve.StepsDefault),
		Value: evolve.StepsDefault,
	}

	maxMutationsFlag = &cli.IntFlag{
		Name:  "max-mutations",
		Usage: fmt.Sprintf("Mutation budget per variant against wild type (default: %d)", evolve.MaxMutationsDefault),
		Value: evolve.MaxMutationsDefault,
	}

	temperatureFlag = &cli.Float64Flag{
		Name:  "temperature",
		Usage: fmt.Sprintf("Acceptance temperature (default: %.2f)", evolve.TemperatureDefault),
		Value: evolve.TemperatureDefault,
	}

	seedFlag = &cli.Int64Flag{
		Name:  "seed",
		Usage: "Random seed for a reproducible walk (default: clock)",
	}

	topFlag = &cli.IntFlag{
		Name:  "top",
		Usage: "Number of best variants to print (all are persisted)",
		Value: 10,
	}

	evolveCmd = &cli.Command{
		Name:    "evolve",
		Aliases: []string{"e"},
		Usage:   "Run directed evolution over single-point mutations",
		UsageText: `mutscan evolve -s MKTAYIAKQR
   mutscan evolve -s MKTAYIAKQR --chains 4 --steps 100 --seed 42`,
		Action: cmdEvolve,
		Flags: []cli.Flag{
			sequenceFlag,
			chainsFlag,
			stepsFlag,
			maxMutationsFlag,
			temperatureFlag,
			seedFlag,
			topFlag,
			checkpointFlag,
			endpointFlag,
			noSaveFlag,
		},
	}
)

// EvolveResult is the command output summary.
type EvolveResult struct {
	Model    string           `json:"model"`
	WildType string           `json:"wild_type"`
	Accepted int              `json:"accepted"`
	Best     []*EvolveVariant `json:"best,omitempty"`
	Duration string           `json:"duration"`
}

// EvolveVariant is one variant in the printed report.
type EvolveVariant struct {
	Score     float64 `json:"score"`
	Mutations string  `json:"mutations"`
	Sequence  string  `json:"sequence"`
}

func cmdEvolve(c *cli.Context) error {
	started := time.Now()
	cfg := getConfig(c)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := seq.Parse(c.String(sequenceFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid sequence: %w", err)
	}

	m, tk, err := getModelHandle(ctx, c, cfg)
	if err != nil {
		return fmt.Errorf("creating model handle: %w", err)
	}

	opts := &evolve.Options{
		Model:        m.Checkpoint(),
		Chains:       c.Int(chainsFlag.Name),
		Steps:        c.Int(stepsFlag.Name),
		MaxMutations: c.Int(maxMutationsFlag.Name),
		Temperature:  c.Float64(temperatureFlag.Name),
		Seed:         c.Int64(seedFlag.Name),
	}

	slog.Info("evolving", "model", m.Checkpoint(), "chains", opts.Chains, "steps", opts.Steps)

	run, err := evolve.Run(ctx, m, tk, s, opts)
	if err != nil {
		return fmt.Errorf("evolution failed: %w", err)
	}

	if !c.Bool(noSaveFlag.Name) {
		if err := data.SaveVariants(cfg.DB, run); err != nil {
			return fmt.Errorf("saving variants: %w", err)
		}
	}

	res := &EvolveResult{
		Model:    m.Checkpoint(),
		WildType: s.String(),
		Accepted: len(run.Variants),
		Duration: time.Since(started).String(),
	}

	top := c.Int(topFlag.Name)
	for i, v := range run.Variants {
		if i >= top {
			break
		}
		res.Best = append(res.Best, &EvolveVariant{
			Score:     v.Score,
			Mutations: data.MutationString(v),
			Sequence:  v.Sequence,
		})
	}

	return encode(res)
}
