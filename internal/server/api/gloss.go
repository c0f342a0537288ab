package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ayusman/signbridge/internal/session"
	"github.com/ayusman/signbridge/internal/store"
	"github.com/ayusman/signbridge/internal/video"
)

// Composer builds a video for a gloss sentence. *video.Composer implements it.
type Composer interface {
	Compose(ctx context.Context, sentence string) (*video.Result, error)
}

// GlossConfig configures a GlossHandler.
type GlossConfig struct {
	Composer Composer
	Session  *session.State
	// Jobs records job history when non-nil.
	Jobs *store.JobRepository
	// PublicURL prefixes video_url values.
	PublicURL string
	// OnJob is called with every recorded job.
	OnJob  func(*store.Job)
	Logger *slog.Logger
}

// GlossHandler serves POST /process_gloss_sentence.
type GlossHandler struct {
	config GlossConfig
	logger *slog.Logger
}

// NewGlossHandler creates a new GlossHandler.
func NewGlossHandler(config GlossConfig) *GlossHandler {
	config.PublicURL = strings.TrimSuffix(config.PublicURL, "/")
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &GlossHandler{config: config, logger: logger}
}

type glossRequest struct {
	Sentence string `json:"sentence"`
}

type glossResponse struct {
	Message  string `json:"message"`
	VideoURL string `json:"video_url"`
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
}

// ServeHTTP composes the requested sentence synchronously.
func (h *GlossHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req glossRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Sentence) == "" {
		h.logger.Error("no sentence provided for video generation")
		writeStatus(w, http.StatusBadRequest, "No sentence provided")
		return
	}

	// The gloss sentence is the conversational component's answer
	if h.config.Session != nil {
		h.config.Session.SetAnswer(req.Sentence)
	}

	res, err := h.config.Composer.Compose(r.Context(), req.Sentence)
	h.record(res, err)

	switch {
	case err == nil:
	case errors.Is(err, video.ErrEmptySentence):
		writeStatus(w, http.StatusBadRequest, "No sentence provided")
		return
	case errors.Is(err, video.ErrNoClips):
		writeStatus(w, http.StatusBadRequest, "No videos to merge")
		return
	default:
		h.logger.Error("failed to compose video", "error", err)
		writeStatus(w, http.StatusInternalServerError, "Failed to create video")
		return
	}

	url := h.config.PublicURL + "/static/" + res.Output
	h.logger.Info("video url generated", "video_url", url, "job_id", res.ID)

	writeJSON(w, http.StatusOK, glossResponse{
		Message:  "Merged video created",
		VideoURL: url,
		JobID:    res.ID,
		Status:   statusSuccess,
	})
}

func (h *GlossHandler) record(res *video.Result, err error) {
	if res == nil {
		return
	}

	job := JobFromResult(res, err)
	if h.config.Jobs != nil {
		if err := h.config.Jobs.Create(job); err != nil {
			h.logger.Warn("failed to record job", "job_id", job.ID, "error", err)
		}
	}
	if h.config.OnJob != nil {
		h.config.OnJob(job)
	}
}

// JobFromResult converts a compositing result into a history record.
func JobFromResult(res *video.Result, err error) *store.Job {
	job := &store.Job{
		ID:         res.ID,
		Sentence:   res.Sentence,
		Status:     store.JobSucceeded,
		Output:     res.Output,
		FPS:        res.FPS,
		DurationMs: res.Duration.Milliseconds(),
		CreatedAt:  res.Started,
	}
	if err != nil {
		job.Status = store.JobFailed
		job.Error = err.Error()
	}

	for i, tok := range res.Tokens {
		t := store.JobToken{Position: i, Token: tok, Outcome: store.TokenFailed}
		// Positions past the last entry were not reached before cancellation
		if i < len(res.Positions) {
			t.Outcome = store.TokenOutcome(res.Positions[i].Outcome)
			t.Clip = res.Positions[i].Clip
		}
		job.Tokens = append(job.Tokens, t)
	}

	return job
}
