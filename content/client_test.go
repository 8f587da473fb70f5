package content

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL, AdminKey: "secret"})
	require.NoError(t, err)
	return client
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)

	_, err = NewClient(Config{BaseURL: "not a url"})
	assert.Error(t, err)

	client, err := NewClient(Config{BaseURL: "https://api.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)
}

func TestListLessonWords(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/admin/lessons/4/words", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Admin-Bypass"))
		w.Write([]byte(`[
			{"id": 1, "lesson_id": 4, "word": "olma", "translation": "apple", "audio_url": "a.mp3", "example_audio": "b.mp3"},
			{"id": 2, "lesson_id": 4, "word": "nok", "translation": "pear", "audio_url": null, "example_audio": null}
		]`))
	})

	words, err := client.ListLessonWords(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, words, 2)
	assert.Equal(t, "olma", words[0].Word)
	assert.False(t, words[0].MissingAudio())
	assert.True(t, words[1].MissingAudio())
}

func TestGenerateAudioEndpoints(t *testing.T) {
	var paths, voices []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		paths = append(paths, r.URL.Path)
		voices = append(voices, r.URL.Query().Get("voice"))
		w.Write([]byte(`{"message": "Audio generated", "audio_url": "audio/1.mp3"}`))
	})

	ctx := context.Background()
	resp, err := client.GenerateWordAudio(ctx, 1, VoiceEmma)
	require.NoError(t, err)
	assert.Equal(t, "Audio generated", resp.Message)
	assert.Equal(t, "audio/1.mp3", resp.AudioURL)

	_, err = client.GenerateExampleAudio(ctx, 1, VoiceDefault)
	require.NoError(t, err)
	_, err = client.GenerateStoryAudio(ctx, 9, VoiceBetty)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/admin/words/1/generate-audio",
		"/admin/words/1/generate-example-audio",
		"/admin/stories/9/generate-audio",
	}, paths)
	assert.Equal(t, []string{"emma", "", "Betty"}, voices)
}

func TestAPIErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected string
	}{
		{"detail", http.StatusNotFound, `{"detail": "Word not found"}`, "Word not found"},
		{"message", http.StatusBadRequest, `{"message": "Word has no example sentence"}`, "Word has no example sentence"},
		{"non string detail", http.StatusUnprocessableEntity, `{"detail": [{"msg": "bad"}]}`, "Request failed with status code 422"},
		{"plain body", http.StatusBadGateway, `upstream down`, "Request failed with status code 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.GenerateWordAudio(context.Background(), 1, VoiceDefault)
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.expected, apiErr.Error())
		})
	}
}

func TestRequestsAreThrottled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": "ok"}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, RequestsPerSecond: 20})
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.GenerateWordAudio(context.Background(), i, VoiceDefault)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestParseVoice(t *testing.T) {
	v, err := ParseVoice("betty")
	require.NoError(t, err)
	assert.Equal(t, VoiceBetty, v)

	v, err = ParseVoice("")
	require.NoError(t, err)
	assert.Equal(t, VoiceDefault, v)

	_, err = ParseVoice("robot")
	assert.Error(t, err)
}

func TestBuildMediaURL(t *testing.T) {
	assert.Equal(t, "https://media.example.com/audio/1.mp3", BuildMediaURL("https://media.example.com/", "/audio/1.mp3"))
	assert.Equal(t, "https://cdn.example.com/x.mp3", BuildMediaURL("https://media.example.com", "https://cdn.example.com/x.mp3"))
	assert.Equal(t, "", BuildMediaURL("https://media.example.com", ""))
}
