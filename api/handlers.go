package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"duoaudio/audiogen"
	"duoaudio/config"
	"duoaudio/content"
	"duoaudio/runner"
	"duoaudio/runner/storage"
)

// statsLimit is the number of persisted runs returned per lesson
const statsLimit = 5

// GetRuns returns the most recent runs
func GetRuns(store *storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		runs, err := store.GetRuns(100) // Limit to 100 most recent
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get runs: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, runs)
	}
}

// GetRun returns a single run with its item stages
func GetRun(store *storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		// Parse run ID from URL: /api/runs/:id
		pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(pathParts) < 3 || pathParts[2] == "" {
			writeError(w, http.StatusBadRequest, "Invalid path")
			return
		}
		runID := pathParts[2]

		run, err := store.GetRun(runID)
		if errors.Is(err, storage.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Run not found: %s", runID))
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get run: %v", err))
			return
		}

		stages, err := store.GetItemStages(runID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get item stages: %v", err))
			return
		}

		type RunResponse struct {
			Run    *storage.Run         `json:"run"`
			Stages []*storage.ItemStage `json:"stages"`
		}

		writeJSON(w, http.StatusOK, RunResponse{Run: run, Stages: stages})
	}
}

// LessonResponse is a configured lesson with the phase of its live run
type LessonResponse struct {
	config.Lesson
	Phase            runner.Phase `json:"phase"`
	CompletedPercent int          `json:"completed_percent"`
}

// GetLessons returns all configured lessons
func GetLessons(cfg *config.Config, service *audiogen.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		snapshots := service.Snapshots()
		lessons := make([]LessonResponse, 0, len(cfg.Lessons))
		for _, lesson := range cfg.Lessons {
			resp := LessonResponse{Lesson: lesson, Phase: runner.PhaseIdle}
			if snap, ok := snapshots[lesson.ID]; ok {
				resp.Phase = snap.Phase
				resp.CompletedPercent = snap.CompletedPercent
			}
			lessons = append(lessons, resp)
		}

		writeJSON(w, http.StatusOK, lessons)
	}
}

// GetLessonAudio returns the live snapshot of a lesson's bulk generation
func GetLessonAudio(service *audiogen.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		lessonID, ok := lessonIDFromPath(w, r)
		if !ok {
			return
		}

		snap, err := service.Snapshot(lessonID)
		if errors.Is(err, audiogen.ErrNoRun) {
			snap = runner.Snapshot{Phase: runner.PhaseIdle, Items: []runner.ItemProgress{}}
		}

		writeJSON(w, http.StatusOK, snap)
	}
}

// PostLessonRun starts bulk generation for a lesson
func PostLessonRun(cfg *config.Config, service *audiogen.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		lessonID, ok := lessonIDFromPath(w, r)
		if !ok {
			return
		}

		lesson, err := cfg.GetLesson(strconv.Itoa(lessonID))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		query := r.URL.Query()

		voice := cfg.VoiceFor(lesson)
		if v := query.Get("voice"); v != "" {
			voice, err = content.ParseVoice(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}

		missingOnly := false
		if v := query.Get("missing_only"); v != "" {
			missingOnly, err = strconv.ParseBool(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid missing_only: %q", v))
				return
			}
		}

		log.Printf("🚀 Triggering audio generation for lesson %d (voice: %q, missing only: %t)", lessonID, voice, missingOnly)

		snap, err := service.StartLesson(r.Context(), audiogen.Request{
			LessonID:    lessonID,
			Label:       lesson.Name,
			Voice:       voice,
			MissingOnly: missingOnly,
		})

		var apiErr *content.APIError
		switch {
		case errors.Is(err, runner.ErrRunActive):
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"error":    err.Error(),
				"snapshot": snap,
			})
		case errors.As(err, &apiErr):
			writeError(w, http.StatusBadGateway, fmt.Sprintf("Failed to load lesson words: %s", apiErr.Message))
		case err != nil:
			writeError(w, http.StatusInternalServerError, err.Error())
		default:
			writeJSON(w, http.StatusAccepted, snap)
		}
	}
}

// PostLessonCancel requests cancellation of a lesson's run
func PostLessonCancel(service *audiogen.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		lessonID, ok := lessonIDFromPath(w, r)
		if !ok {
			return
		}

		if err := service.Cancel(lessonID); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		log.Printf("🛑 Cancel requested for lesson %d", lessonID)
		snap, _ := service.Snapshot(lessonID)
		writeJSON(w, http.StatusOK, snap)
	}
}

// PostLessonReset clears a lesson's finished run
func PostLessonReset(service *audiogen.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		lessonID, ok := lessonIDFromPath(w, r)
		if !ok {
			return
		}

		err := service.Reset(lessonID)
		switch {
		case errors.Is(err, runner.ErrRunActive):
			writeError(w, http.StatusConflict, err.Error())
			return
		case err != nil:
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		snap, _ := service.Snapshot(lessonID)
		writeJSON(w, http.StatusOK, snap)
	}
}

// GetLessonStats returns the latest persisted runs of a lesson
func GetLessonStats(store *storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		lessonID, ok := lessonIDFromPath(w, r)
		if !ok {
			return
		}

		stats, err := store.GetLatestRunsByLesson(lessonID, statsLimit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get lesson stats: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, stats)
	}
}

// lessonIDFromPath parses the lesson ID from /api/lessons/:id/...
func lessonIDFromPath(w http.ResponseWriter, r *http.Request) (int, bool) {
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) < 3 {
		writeError(w, http.StatusBadRequest, "Invalid path")
		return 0, false
	}

	lessonID, err := strconv.Atoi(pathParts[2])
	if err != nil || lessonID <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid lesson ID")
		return 0, false
	}
	return lessonID, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"error": message})
}
