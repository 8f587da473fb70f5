package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"duoaudio/content"
	"duoaudio/runner"
)

// DefaultPath is the config file looked up in the working directory
const DefaultPath = "duoaudio.yml"

// Config is the duoaudio.yml file plus environment overrides
type Config struct {
	API       APIConfig  `yaml:"api"`
	Voice     string     `yaml:"voice,omitempty"`
	ItemDelay string     `yaml:"item_delay,omitempty"`
	DataDir   string     `yaml:"data_dir,omitempty"`
	Lessons   []Lesson   `yaml:"lessons,omitempty"`
	Schedules []Schedule `yaml:"schedules,omitempty"`
}

// APIConfig configures the admin API client
type APIConfig struct {
	BaseURL           string  `yaml:"base_url"`
	MediaBaseURL      string  `yaml:"media_base_url,omitempty"`
	Timeout           string  `yaml:"timeout,omitempty"`
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
	AdminKey          string  `yaml:"-"` // only from ADMIN_BYPASS_KEY
}

// LoadConfig reads and parses a config file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault reads path, falling back to an empty config when the file does not exist
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}
	return cfg, err
}

// ApplyEnv overrides settings from the environment
func (c *Config) ApplyEnv() {
	if v := os.Getenv("API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("MEDIA_BASE_URL"); v != "" {
		c.API.MediaBaseURL = v
	}
	if v := os.Getenv("ADMIN_BYPASS_KEY"); v != "" {
		c.API.AdminKey = v
	}
	if v := os.Getenv("DUOAUDIO_VOICE"); v != "" {
		c.Voice = v
	}
}

// Validate checks every setting that is parsed later
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url (or API_BASE_URL) is required")
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.ItemDelayDuration(); err != nil {
		return err
	}
	if c.API.RequestsPerSecond < 0 {
		return errors.New("api.requests_per_second must not be negative")
	}
	if _, err := content.ParseVoice(c.Voice); err != nil {
		return fmt.Errorf("voice: %w", err)
	}

	seen := make(map[int]bool)
	for _, lesson := range c.Lessons {
		if err := lesson.Validate(); err != nil {
			return fmt.Errorf("lesson %q: %w", lesson.Name, err)
		}
		if seen[lesson.ID] {
			return fmt.Errorf("lesson id %d is configured twice", lesson.ID)
		}
		seen[lesson.ID] = true
	}

	for i, schedule := range c.Schedules {
		if err := schedule.Validate(); err != nil {
			return fmt.Errorf("schedule %d: %w", i, err)
		}
		for _, ref := range schedule.Lessons {
			if _, err := c.GetLesson(ref); err != nil {
				return fmt.Errorf("schedule %d: %w", i, err)
			}
		}
	}

	return nil
}

// ItemDelayDuration returns the pause between items (default 500ms)
func (c *Config) ItemDelayDuration() (time.Duration, error) {
	if c.ItemDelay == "" {
		return runner.DefaultItemDelay, nil
	}
	d, err := time.ParseDuration(c.ItemDelay)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid item_delay %q", c.ItemDelay)
	}
	return d, nil
}

// TimeoutDuration returns the per-request timeout (default 10s)
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.API.Timeout == "" {
		return content.DefaultTimeout, nil
	}
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid api.timeout %q", c.API.Timeout)
	}
	return d, nil
}

// DefaultVoice returns the configured voice
func (c *Config) DefaultVoice() content.Voice {
	v, _ := content.ParseVoice(c.Voice)
	return v
}

// ClientConfig returns the admin API client settings
func (c *Config) ClientConfig() content.Config {
	timeout, _ := c.TimeoutDuration()
	return content.Config{
		BaseURL:           c.API.BaseURL,
		AdminKey:          c.API.AdminKey,
		Timeout:           timeout,
		RequestsPerSecond: c.API.RequestsPerSecond,
	}
}
