// Package main provides the duoaudio CLI for bulk lesson audio generation.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"duoaudio/cmd"
)

func main() {
	app := &cli.App{
		Name:  "duoaudio",
		Usage: "Generate word and example audio for Zehnly Duo lessons",
		Description: `Drives the admin API's audio synthesis endpoints for every word of a
lesson, one request at a time, and keeps a history of runs.

Workflow:
  1. Configure the API and lessons in duoaudio.yml (ADMIN_BYPASS_KEY in .env)
  2. Run 'duoaudio run --lesson <name>' for a one-off generation
  3. Run 'duoaudio serve' for the dashboard API and scheduled generation`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			level, err := log.ParseLevel(c.String("log-level"))
			if err != nil {
				return err
			}
			log.SetLevel(level)
			return nil
		},
		Commands: []*cli.Command{
			cmd.RunCommand(),
			cmd.ServeCommand(),
			cmd.StoryCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
