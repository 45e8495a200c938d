package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mutscan/mutscan/pkg/data"
)

const queryResultLimitDefault = 100

var (
	queryLimitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "Limits number of results returned",
		Value: queryResultLimitDefault,
	}

	sequenceLikeFlag = &cli.StringFlag{
		Name:  "like",
		Usage: "Fuzzy sequence search",
	}

	scanIDFlag = &cli.Int64Flag{
		Name:     "id",
		Usage:    "Scan id",
		Required: true,
	}

	wildTypeFlag = &cli.StringFlag{
		Name:  "wt",
		Usage: "Wild type sequence (exact match)",
	}

	queryCmd = &cli.Command{
		Name:    "query",
		Aliases: []string{"q"},
		Usage:   "List data query operations",
		Subcommands: []*cli.Command{
			{
				Name:    "scan",
				Usage:   "List scan operations",
				Aliases: []string{"s"},
				Subcommands: []*cli.Command{
					{
						Name:    "list",
						Usage:   "List persisted scans",
						Aliases: []string{"l"},
						Action:  cmdQueryScans,
						Flags: []cli.Flag{
							sequenceLikeFlag,
							queryLimitFlag,
						},
					},
					{
						Name:    "detail",
						Usage:   "Get the full LLR table of a scan",
						Aliases: []string{"d"},
						Action:  cmdQueryScan,
						Flags: []cli.Flag{
							scanIDFlag,
							outputFileFlag,
						},
					},
				},
			},
			{
				Name:    "variant",
				Usage:   "List persisted evolution variants",
				Aliases: []string{"v"},
				Action:  cmdQueryVariants,
				Flags: []cli.Flag{
					wildTypeFlag,
					queryLimitFlag,
				},
			},
			{
				Name:   "state",
				Usage:  "Show database row counts",
				Action: cmdQueryState,
			},
		},
	}
)

func cmdQueryScans(c *cli.Context) error {
	cfg := getConfig(c)

	q := &data.ScanSearchCriteria{Limit: c.Int(queryLimitFlag.Name)}
	if like := c.String(sequenceLikeFlag.Name); like != "" {
		q.Sequence = &like
	}

	list, err := data.SearchScans(cfg.DB, q)
	if err != nil {
		return fmt.Errorf("searching scans: %w", err)
	}
	return encode(list)
}

func cmdQueryScan(c *cli.Context) error {
	cfg := getConfig(c)

	table, err := data.GetScan(cfg.DB, c.Int64(scanIDFlag.Name))
	if err != nil {
		return fmt.Errorf("reading scan: %w", err)
	}

	if out := c.String(outputFileFlag.Name); out != "" {
		return writeCSVFile(out, table)
	}
	return encode(table)
}

func cmdQueryVariants(c *cli.Context) error {
	cfg := getConfig(c)

	var wt *string
	if v := c.String(wildTypeFlag.Name); v != "" {
		wt = &v
	}

	list, err := data.GetVariants(cfg.DB, wt, c.Int(queryLimitFlag.Name))
	if err != nil {
		return fmt.Errorf("reading variants: %w", err)
	}
	return encode(list)
}

func cmdQueryState(c *cli.Context) error {
	cfg := getConfig(c)

	state, err := data.GetDataState(cfg.DB)
	if err != nil {
		return fmt.Errorf("reading data state: %w", err)
	}
	return encode(state)
}
