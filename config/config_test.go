package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duoaudio/content"
	"duoaudio/runner"
)

const sampleConfig = `
api:
  base_url: https://api.example.com
  timeout: 15s
  requests_per_second: 2
voice: emma
item_delay: 250ms
lessons:
  - name: fruits
    id: 12
    description: Fruit vocabulary
  - name: animals
    id: 13
    voice: brian
schedules:
  - lessons: [fruits, animals]
    every: 1h30m
  - lessons: ["12"]
    at: "03:00"
    missing_only: false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	assert.Len(t, cfg.Lessons, 2)
	assert.Len(t, cfg.Schedules, 2)

	delay, err := cfg.ItemDelayDuration()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, delay)

	client := cfg.ClientConfig()
	assert.Equal(t, 15*time.Second, client.Timeout)
	assert.Equal(t, 2.0, client.RequestsPerSecond)

	assert.True(t, cfg.Schedules[0].OnlyMissing())
	assert.False(t, cfg.Schedules[1].OnlyMissing())
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadConfig(writeConfig(t, "lessons: [: bad"))
	assert.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Lessons)

	delay, err := cfg.ItemDelayDuration()
	require.NoError(t, err)
	assert.Equal(t, runner.DefaultItemDelay, delay)

	timeout, err := cfg.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, content.DefaultTimeout, timeout)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://override.example.com")
	t.Setenv("ADMIN_BYPASS_KEY", "key")
	t.Setenv("DUOAUDIO_VOICE", "sally")

	cfg := &Config{API: APIConfig{BaseURL: "https://api.example.com"}}
	cfg.ApplyEnv()

	assert.Equal(t, "https://override.example.com", cfg.API.BaseURL)
	assert.Equal(t, "key", cfg.API.AdminKey)
	assert.Equal(t, content.VoiceSally, cfg.DefaultVoice())
	assert.Equal(t, "key", cfg.ClientConfig().AdminKey)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{API: APIConfig{BaseURL: "https://api.example.com"}}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing base url", func(c *Config) { c.API.BaseURL = "" }},
		{"bad timeout", func(c *Config) { c.API.Timeout = "soon" }},
		{"negative delay", func(c *Config) { c.ItemDelay = "-1s" }},
		{"negative rate", func(c *Config) { c.API.RequestsPerSecond = -1 }},
		{"unknown voice", func(c *Config) { c.Voice = "robot" }},
		{"bad lesson id", func(c *Config) { c.Lessons = []Lesson{{Name: "x"}} }},
		{"duplicate lesson", func(c *Config) { c.Lessons = []Lesson{{Name: "a", ID: 1}, {Name: "b", ID: 1}} }},
		{"schedule without trigger", func(c *Config) { c.Schedules = []Schedule{{Lessons: []string{"1"}}} }},
		{"schedule with both triggers", func(c *Config) { c.Schedules = []Schedule{{Lessons: []string{"1"}, At: "01:00", Every: "1h"}} }},
		{"schedule unknown lesson", func(c *Config) { c.Schedules = []Schedule{{Lessons: []string{"nope"}, Every: "1h"}} }},
	}

	require.NoError(t, base().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetLesson(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	lesson, err := cfg.GetLesson("fruits")
	require.NoError(t, err)
	assert.Equal(t, 12, lesson.ID)

	lesson, err = cfg.GetLesson("13")
	require.NoError(t, err)
	assert.Equal(t, "animals", lesson.Name)
	assert.Equal(t, content.VoiceBrian, cfg.VoiceFor(lesson))

	lesson, err = cfg.GetLesson("99")
	require.NoError(t, err)
	assert.Equal(t, "Lesson 99", lesson.Name)
	assert.Equal(t, content.VoiceEmma, cfg.VoiceFor(lesson))

	_, err = cfg.GetLesson("colors")
	assert.ErrorIs(t, err, ErrLessonNotFound)

	_, err = cfg.GetLesson("-3")
	assert.ErrorIs(t, err, ErrLessonNotFound)
}

func TestParseAtTime(t *testing.T) {
	hour, minute, err := ParseAtTime("07:45")
	require.NoError(t, err)
	assert.Equal(t, 7, hour)
	assert.Equal(t, 45, minute)

	for _, bad := range []string{"7", "24:00", "12:60", "ab:10", "1:2:3"} {
		_, _, err := ParseAtTime(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseInterval(t *testing.T) {
	tests := map[string]time.Duration{
		"1h":    time.Hour,
		"30m":   30 * time.Minute,
		"1h30m": 90 * time.Minute,
		"2h5m":  2*time.Hour + 5*time.Minute,
		"45s":   45 * time.Second,
	}
	for in, expected := range tests {
		got, err := ParseInterval(in)
		require.NoError(t, err, in)
		assert.Equal(t, expected, got, in)
	}

	for _, bad := range []string{"", "soon", "0s", "-1h"} {
		_, err := ParseInterval(bad)
		assert.Error(t, err, bad)
	}
}
