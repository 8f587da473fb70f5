package config

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Schedule triggers bulk generation for lessons at a time of day or on an interval
type Schedule struct {
	Lessons     []string `yaml:"lessons"`
	At          string   `yaml:"at,omitempty"`    // "HH:MM"
	Every       string   `yaml:"every,omitempty"` // "1h", "30m", "1h30m"
	Voice       string   `yaml:"voice,omitempty"`
	MissingOnly *bool    `yaml:"missing_only,omitempty"`
}

// Validate checks that exactly one trigger is set and parses
func (s Schedule) Validate() error {
	if len(s.Lessons) == 0 {
		return errors.New("no lessons")
	}
	switch {
	case s.At != "" && s.Every != "":
		return errors.New("set either at or every, not both")
	case s.At != "":
		_, _, err := ParseAtTime(s.At)
		return err
	case s.Every != "":
		_, err := ParseInterval(s.Every)
		return err
	default:
		return errors.New("at or every is required")
	}
}

// OnlyMissing reports whether scheduled runs skip words that already have audio (default true)
func (s Schedule) OnlyMissing() bool {
	return s.MissingOnly == nil || *s.MissingOnly
}

// ParseAtTime parses "HH:MM" format
func ParseAtTime(at string) (hour, minute int, err error) {
	parts := strings.Split(at, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time format, expected HH:MM")
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour")
	}

	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute")
	}

	return hour, minute, nil
}

var combinedInterval = regexp.MustCompile(`^(\d+)h(\d+)m$`)

// ParseInterval parses duration strings like "1h", "30m", "1h30m"
func ParseInterval(every string) (time.Duration, error) {
	if matches := combinedInterval.FindStringSubmatch(every); len(matches) == 3 {
		hours, _ := strconv.Atoi(matches[1])
		minutes, _ := strconv.Atoi(matches[2])
		return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute, nil
	}

	duration, err := time.ParseDuration(every)
	if err != nil || duration <= 0 {
		return 0, fmt.Errorf("invalid duration format")
	}

	return duration, nil
}
