package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"duoaudio/content"
)

// StoryCommand returns the story CLI command.
func StoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "story",
		Usage: "Generate audio for a story",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:     "id",
				Usage:    "Story ID",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "voice",
				Usage: "Synthesis voice (amy, brian, emma, russell, sally, Betty)",
			},
			ConfigFlag(),
		},
		Action: storyAction,
	}
}

func storyAction(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}

	voice := cfg.DefaultVoice()
	if c.IsSet("voice") {
		if voice, err = content.ParseVoice(c.String("voice")); err != nil {
			return err
		}
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	storyID := c.Int("id")
	log.Infof("🎙️  Generating audio for story %d", storyID)

	resp, err := client.GenerateStoryAudio(c.Context, storyID, voice)
	if err != nil {
		return fmt.Errorf("failed to generate story audio: %w", err)
	}

	fmt.Printf("✅ %s\n", resp.Message)
	if resp.AudioURL != "" {
		fmt.Printf("🔊 %s\n", content.BuildMediaURL(cfg.API.MediaBaseURL, resp.AudioURL))
	}
	return nil
}
