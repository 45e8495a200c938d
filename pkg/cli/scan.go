package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mutscan/mutscan/pkg/auth"
	"github.com/mutscan/mutscan/pkg/data"
	"github.com/mutscan/mutscan/pkg/model/esm"
	"github.com/mutscan/mutscan/pkg/score"
	"github.com/mutscan/mutscan/pkg/seq"
)

var (
	sequenceFlag = &cli.StringFlag{
		Name:     "sequence",
		Aliases:  []string{"s"},
		Usage:    "Protein sequence (20-letter amino acid alphabet)",
		Required: true,
	}

	startFlag = &cli.IntFlag{
		Name:  "start",
		Usage: "First position to score (1-indexed, inclusive)",
		Value: 1,
	}

	endFlag = &cli.IntFlag{
		Name:  "end",
		Usage: "Last position to score (inclusive, default: sequence length)",
	}

	checkpointFlag = &cli.StringFlag{
		Name:    "model",
		Aliases: []string{"m"},
		Usage:   fmt.Sprintf("ESM-2 checkpoint [%s]", strings.Join(esm.CheckpointNames(), ", ")),
	}

	endpointFlag = &cli.StringFlag{
		Name:  "endpoint",
		Usage: "Inference service base URL (default: from config)",
	}

	outputFileFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Path of the CSV results file",
	}

	concurrencyFlag = &cli.IntFlag{
		Name:  "concurrency",
		Usage: "Parallel forward passes (default: from config)",
	}

	noSaveFlag = &cli.BoolFlag{
		Name:  "no-save",
		Usage: "Do not persist results in the local database",
	}

	scanCmd = &cli.Command{
		Name:    "scan",
		Aliases: []string{"s"},
		Usage:   "Score every single-point substitution over a position range",
		UsageText: `mutscan scan -s MAPLRKT                          # full-length scan
   mutscan scan -s MAPLRKT --start 2 --end 5 -o out.csv
   mutscan scan -s MAPLRKT -m t33_650M --concurrency 8`,
		Action: cmdScan,
		Flags: []cli.Flag{
			sequenceFlag,
			startFlag,
			endFlag,
			checkpointFlag,
			endpointFlag,
			outputFileFlag,
			concurrencyFlag,
			noSaveFlag,
		},
	}
)

// ScanResult is the command output summary.
type ScanResult struct {
	ID        int64  `json:"id,omitempty"`
	Model     string `json:"model"`
	Sequence  string `json:"sequence"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Positions int    `json:"positions"`
	Output    string `json:"output,omitempty"`
	Duration  string `json:"duration"`
}

func cmdScan(c *cli.Context) error {
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

	concurrency := c.Int(concurrencyFlag.Name)
	if concurrency <= 0 {
		concurrency = cfg.Conf.Concurrency
	}

	start := c.Int(startFlag.Name)
	end := c.Int(endFlag.Name)

	slog.Info("scanning", "model", m.Checkpoint(), "length", s.Len(), "start", start, "end", end)

	table, err := score.Scan(ctx, m, tk, s, start, end, &score.Options{
		Model:       m.Checkpoint(),
		Concurrency: concurrency,
	})
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	res := &ScanResult{
		Model:     table.Model,
		Sequence:  table.Sequence.String(),
		Start:     table.Start,
		End:       table.End,
		Positions: table.Cols(),
		Duration:  time.Since(started).String(),
	}

	if out := c.String(outputFileFlag.Name); out != "" {
		if err := writeCSVFile(out, table); err != nil {
			return err
		}
		res.Output = out
	}

	if !c.Bool(noSaveFlag.Name) {
		id, err := data.SaveScan(cfg.DB, table)
		if err != nil {
			return fmt.Errorf("saving scan: %w", err)
		}
		res.ID = id
	}

	return encode(res)
}

func writeCSVFile(path string, table *score.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file %s: %w", path, err)
	}
	defer f.Close()

	if err := table.WriteCSV(f); err != nil {
		return fmt.Errorf("writing CSV to %s: %w", path, err)
	}
	return nil
}

// getModelHandle builds the inference client and tokenizer once per
// command; flags override the config file.
func getModelHandle(ctx context.Context, c *cli.Context, cfg *appConfig) (*esm.Client, *esm.Tokenizer, error) {
	endpoint := c.String(endpointFlag.Name)
	if endpoint == "" {
		endpoint = cfg.Conf.Endpoint
	}
	checkpoint := c.String(checkpointFlag.Name)
	if checkpoint == "" {
		checkpoint = cfg.Conf.Checkpoint
	}

	m, err := esm.NewClient(ctx, endpoint, checkpoint, auth.GetToken(cfg.HomeDir))
	if err != nil {
		return nil, nil, err
	}
	return m, esm.NewTokenizer(), nil
}
