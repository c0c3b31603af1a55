package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/storeops/opsrelay/config"
	"github.com/storeops/opsrelay/logutils"
)

const (
	appName = "opsrelay"

	envPrefix = "OPSRELAY_"
)

var (
	version = "development"
)

func main() {
	cfg := config.New()

	flags := []cli.Flag{
		&cli.StringFlag{
			Destination: &cfg.Log.Level,
			EnvVars:     []string{envPrefix + "LOG_LEVEL"},
			Name:        "log-level",
			Usage:       "logging level",
			Value:       "info",
		},

		&cli.StringFlag{
			Destination: &cfg.Log.Mode,
			EnvVars:     []string{envPrefix + "LOG_MODE"},
			Name:        "log-mode",
			Usage:       "logging mode (dev|prod)",
			Value:       "prod",
		},
	}

	commands := []*cli.Command{
		CommandServe(cfg),
	}

	app := &cli.App{
		Name:           appName,
		Usage:          "Relay read-only dashboard queries to the apps behind the local sidecar",
		Version:        version,
		Flags:          flags,
		Commands:       commands,
		DefaultCommand: commands[0].Name,

		Before: func(_ *cli.Context) error {
			l, err := logutils.NewLogger(cfg.Log,
				zap.String("app", appName),
				zap.String("version", version),
			)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(l)
			return nil
		},

		Action: func(clictx *cli.Context) error {
			return cli.ShowAppHelp(clictx)
		},
	}

	defer func() {
		zap.L().Sync() //nolint:errcheck
	}()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed with error:\n\n%s\n\n", err.Error())
		os.Exit(1)
	}
}
