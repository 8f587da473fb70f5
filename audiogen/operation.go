package audiogen

import (
	"context"
	"fmt"
	"strconv"

	"duoaudio/content"
	"duoaudio/runner"
)

// AudioGenerator synthesizes the two audio files of a word
type AudioGenerator interface {
	GenerateWordAudio(ctx context.Context, wordID int, voice content.Voice) (*content.AudioGenerationResponse, error)
	GenerateExampleAudio(ctx context.Context, wordID int, voice content.Voice) (*content.AudioGenerationResponse, error)
}

// ContentAPI is the part of the admin API the service needs
type ContentAPI interface {
	AudioGenerator
	ListLessonWords(ctx context.Context, lessonID int) ([]content.Word, error)
}

// NewOperation maps the primary stage to word audio and the secondary stage to example audio
func NewOperation(gen AudioGenerator, voice content.Voice) runner.Operation {
	return runner.OperationFunc(func(ctx context.Context, itemID string, stage runner.Stage) (string, error) {
		wordID, err := strconv.Atoi(itemID)
		if err != nil {
			return "", fmt.Errorf("invalid word id %q", itemID)
		}

		var resp *content.AudioGenerationResponse
		if stage == runner.StageSecondary {
			resp, err = gen.GenerateExampleAudio(ctx, wordID, voice)
		} else {
			resp, err = gen.GenerateWordAudio(ctx, wordID, voice)
		}
		if err != nil {
			return "", err
		}
		if resp == nil {
			return "", nil
		}
		return resp.Message, nil
	})
}

// WorkItems turns lesson words into work items, optionally keeping only words missing audio
func WorkItems(words []content.Word, missingOnly bool) []runner.WorkItem {
	items := make([]runner.WorkItem, 0, len(words))
	for _, w := range words {
		if missingOnly && !w.MissingAudio() {
			continue
		}

		secondary := w.ExampleSentence
		if secondary == "" {
			secondary = w.Translation
		}

		items = append(items, runner.WorkItem{
			ID:             strconv.Itoa(w.ID),
			PrimaryLabel:   w.Word,
			SecondaryLabel: secondary,
		})
	}
	return items
}
