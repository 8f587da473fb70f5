package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds every request to the admin API
const DefaultTimeout = 10 * time.Second

// Config configures a Client
type Config struct {
	BaseURL           string
	AdminKey          string        // Sent as X-Admin-Bypass
	Timeout           time.Duration // 0 = DefaultTimeout
	RequestsPerSecond float64       // 0 = unlimited
}

// Client talks to the admin API
type Client struct {
	baseURL    *url.URL
	adminKey   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client for cfg.BaseURL
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("api base url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", cfg.BaseURL)
	}

	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = cfg.Timeout
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = DefaultTimeout
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL:    base,
		adminKey:   cfg.AdminKey,
		httpClient: httpClient,
		limiter:    limiter,
	}, nil
}

// ListLessonWords returns the words of a lesson
func (c *Client) ListLessonWords(ctx context.Context, lessonID int) ([]Word, error) {
	var words []Word
	path := fmt.Sprintf("/admin/lessons/%d/words", lessonID)
	if err := c.do(ctx, http.MethodGet, path, nil, &words); err != nil {
		return nil, fmt.Errorf("failed to list words of lesson %d: %w", lessonID, err)
	}
	return words, nil
}

// GenerateWordAudio synthesizes the audio of a word
func (c *Client) GenerateWordAudio(ctx context.Context, wordID int, voice Voice) (*AudioGenerationResponse, error) {
	return c.generate(ctx, fmt.Sprintf("/admin/words/%d/generate-audio", wordID), voice)
}

// GenerateExampleAudio synthesizes the audio of a word's example sentence
func (c *Client) GenerateExampleAudio(ctx context.Context, wordID int, voice Voice) (*AudioGenerationResponse, error) {
	return c.generate(ctx, fmt.Sprintf("/admin/words/%d/generate-example-audio", wordID), voice)
}

// GenerateStoryAudio synthesizes the audio of a story
func (c *Client) GenerateStoryAudio(ctx context.Context, storyID int, voice Voice) (*AudioGenerationResponse, error) {
	return c.generate(ctx, fmt.Sprintf("/admin/stories/%d/generate-audio", storyID), voice)
}

func (c *Client) generate(ctx context.Context, path string, voice Voice) (*AudioGenerationResponse, error) {
	var query url.Values
	if voice != VoiceDefault {
		query = url.Values{"voice": []string{string(voice)}}
	}

	var resp AudioGenerationResponse
	if err := c.do(ctx, http.MethodPost, path, query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do sends a request and decodes a JSON response into out
func (c *Client) do(ctx context.Context, method, path string, query url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.adminKey != "" {
		req.Header.Set("X-Admin-Bypass", c.adminKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, body)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}
