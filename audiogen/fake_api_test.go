package audiogen

import (
	"context"
	"fmt"
	"sync"

	"duoaudio/content"
)

type fakeAPI struct {
	mu       sync.Mutex
	words    map[int][]content.Word
	failures map[string]error
	calls    []string
	block    chan struct{} // when set, generation waits on it
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		words:    make(map[int][]content.Word),
		failures: make(map[string]error),
	}
}

func (f *fakeAPI) ListLessonWords(_ context.Context, lessonID int) ([]content.Word, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	words, ok := f.words[lessonID]
	if !ok {
		return nil, &content.APIError{StatusCode: 404, Message: "Lesson not found"}
	}
	return words, nil
}

func (f *fakeAPI) GenerateWordAudio(ctx context.Context, wordID int, voice content.Voice) (*content.AudioGenerationResponse, error) {
	return f.generate(fmt.Sprintf("word/%d/%s", wordID, voice))
}

func (f *fakeAPI) GenerateExampleAudio(ctx context.Context, wordID int, voice content.Voice) (*content.AudioGenerationResponse, error) {
	return f.generate(fmt.Sprintf("example/%d/%s", wordID, voice))
}

func (f *fakeAPI) generate(key string) (*content.AudioGenerationResponse, error) {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, key)
	if err := f.failures[key]; err != nil {
		return nil, err
	}
	return &content.AudioGenerationResponse{Message: "Audio generated", AudioURL: key + ".mp3"}, nil
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func strPtr(s string) *string { return &s }

func word(id int, text string, withAudio bool) content.Word {
	w := content.Word{ID: id, Word: text, Translation: text + "-tr", ExampleSentence: text + " example"}
	if withAudio {
		w.AudioURL = strPtr("audio.mp3")
		w.ExampleAudio = strPtr("example.mp3")
	}
	return w
}
