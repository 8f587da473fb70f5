package content

import (
	"fmt"
	"strings"
)

// Voice selects the synthesis voice. The empty voice lets the server choose.
type Voice string

const (
	VoiceDefault Voice = ""
	VoiceAmy     Voice = "amy"
	VoiceBrian   Voice = "brian"
	VoiceEmma    Voice = "emma"
	VoiceRussell Voice = "russell"
	VoiceSally   Voice = "sally"
	VoiceBetty   Voice = "Betty"
)

// Voices lists every voice the API accepts
var Voices = []Voice{VoiceAmy, VoiceBrian, VoiceEmma, VoiceRussell, VoiceSally, VoiceBetty}

// ParseVoice returns the canonical voice for name, matched case-insensitively
func ParseVoice(name string) (Voice, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return VoiceDefault, nil
	}
	for _, v := range Voices {
		if strings.EqualFold(string(v), name) {
			return v, nil
		}
	}
	return VoiceDefault, fmt.Errorf("unknown voice %q", name)
}

// Word is a vocabulary entry of a lesson
type Word struct {
	ID              int     `json:"id"`
	LessonID        int     `json:"lesson_id"`
	Word            string  `json:"word"`
	Translation     string  `json:"translation"`
	ExampleSentence string  `json:"example_sentence"`
	AudioURL        *string `json:"audio_url"`
	ImageURL        *string `json:"image_url"`
	ExampleAudio    *string `json:"example_audio"`
}

// MissingAudio reports whether the word lacks its own or its example audio
func (w Word) MissingAudio() bool {
	return w.AudioURL == nil || *w.AudioURL == "" || w.ExampleAudio == nil || *w.ExampleAudio == ""
}

// AudioGenerationResponse is returned by the generate-audio endpoints
type AudioGenerationResponse struct {
	Message  string `json:"message"`
	AudioURL string `json:"audio_url"`
}

// BuildMediaURL resolves a media path against base. Absolute URLs are returned as is.
func BuildMediaURL(base, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
