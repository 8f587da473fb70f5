package config

import (
	"errors"
	"fmt"
	"strconv"

	"duoaudio/content"
)

// ErrLessonNotFound is returned for a lesson reference that is neither configured nor numeric
var ErrLessonNotFound = errors.New("lesson not found")

// Lesson is a lesson whose words get audio generated
type Lesson struct {
	Name        string `yaml:"name" json:"name"`
	ID          int    `yaml:"id" json:"id"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Voice       string `yaml:"voice,omitempty" json:"voice,omitempty"`
}

// Validate checks the lesson ID and voice
func (l Lesson) Validate() error {
	if l.ID <= 0 {
		return fmt.Errorf("invalid lesson id %d", l.ID)
	}
	if _, err := content.ParseVoice(l.Voice); err != nil {
		return err
	}
	return nil
}

// GetLesson finds a lesson by name or ID. A positive numeric reference that is
// not configured yields an ad hoc lesson with that ID.
func (c *Config) GetLesson(ref string) (*Lesson, error) {
	id, idErr := strconv.Atoi(ref)

	for _, lesson := range c.Lessons {
		if lesson.Name == ref || (idErr == nil && lesson.ID == id) {
			found := lesson
			return &found, nil
		}
	}

	if idErr == nil && id > 0 {
		return &Lesson{Name: fmt.Sprintf("Lesson %d", id), ID: id}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrLessonNotFound, ref)
}

// VoiceFor returns the lesson's voice, falling back to the configured default
func (c *Config) VoiceFor(l *Lesson) content.Voice {
	if l != nil && l.Voice != "" {
		if v, err := content.ParseVoice(l.Voice); err == nil {
			return v
		}
	}
	return c.DefaultVoice()
}
