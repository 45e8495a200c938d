package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mutscan/mutscan/pkg/auth"
)

var (
	tokenFlag = &cli.StringFlag{
		Name:     "token",
		Usage:    "Inference API token (e.g. a Hugging Face access token)",
		Required: true,
	}

	authCmd = &cli.Command{
		Name:            "auth",
		HideHelpCommand: true,
		Usage:           "Manage the inference API token",
		Subcommands: []*cli.Command{
			{
				Name:   "set",
				Usage:  "Store the API token in the OS keychain",
				Action: cmdAuthSet,
				Flags: []cli.Flag{
					tokenFlag,
				},
			},
			{
				Name:   "clear",
				Usage:  "Remove the stored API token",
				Action: cmdAuthClear,
			},
		},
	}
)

func cmdAuthSet(c *cli.Context) error {
	cfg := getConfig(c)
	if err := auth.SaveToken(cfg.HomeDir, c.String(tokenFlag.Name)); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	fmt.Println("Token saved")
	return nil
}

func cmdAuthClear(c *cli.Context) error {
	cfg := getConfig(c)
	if err := auth.DeleteToken(cfg.HomeDir); err != nil {
		return fmt.Errorf("clearing token: %w", err)
	}
	fmt.Println("Token cleared")
	return nil
}
