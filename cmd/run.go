package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"duoaudio/audiogen"
	"duoaudio/content"
	"duoaudio/runner"
)

// RunCommand returns the run CLI command.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Generate audio for every word of a lesson",
		Description: `Generates the word audio and the example sentence audio of each word
in a lesson, one request at a time, streaming progress to the terminal.

Press Ctrl-C to stop after the request in flight finishes.

Example:
  duoaudio run --lesson fruits --voice emma --missing-only`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "lesson",
				Aliases:  []string{"l"},
				Usage:    "Lesson name from the config, or a lesson ID",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "voice",
				Usage: "Synthesis voice (amy, brian, emma, russell, sally, Betty)",
			},
			&cli.BoolFlag{
				Name:    "missing-only",
				Aliases: []string{"m"},
				Usage:   "Only process words missing word or example audio",
			},
			&cli.DurationFlag{
				Name:  "delay",
				Usage: "Pause between words (defaults to item_delay from the config)",
			},
			ConfigFlag(),
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}

	lesson, err := cfg.GetLesson(c.String("lesson"))
	if err != nil {
		return err
	}

	voice := cfg.VoiceFor(lesson)
	if c.IsSet("voice") {
		if voice, err = content.ParseVoice(c.String("voice")); err != nil {
			return err
		}
	}

	delay, err := cfg.ItemDelayDuration()
	if err != nil {
		return err
	}
	if c.IsSet("delay") {
		delay = c.Duration("delay")
	}

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	service := audiogen.NewService(client, audiogen.Options{
		ItemDelay: delay,
		Storage:   store,
		Observers: []runner.Observer{runner.NewTerminalObserver(os.Stdout)},
	})

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = service.StartLesson(ctx, audiogen.Request{
		LessonID:    lesson.ID,
		Label:       lesson.Name,
		Voice:       voice,
		MissingOnly: c.Bool("missing-only"),
	})
	if err != nil {
		return fmt.Errorf("failed to start lesson %s: %w", lesson.Name, err)
	}

	finished := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			log.Info("🛑 Interrupt received, stopping after the current request")
			_ = service.Cancel(lesson.ID)
		case <-finished:
		}
	}()

	result, err := service.Wait(context.Background(), lesson.ID)
	close(finished)
	if err != nil {
		return err
	}

	fmt.Printf("\n📊 Run ID: %s | Status: %s | Duration: %s\n", result.RunID, result.Phase, result.Duration().Round(time.Millisecond))

	if result.Tallies != nil && result.Tallies.HasError > 0 {
		return cli.Exit(fmt.Sprintf("%d word(s) with errors", result.Tallies.HasError), 2)
	}
	return nil
}
