package api

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ayusman/signbridge/internal/session"
)

// Controller starts and stops recognition. *app.App implements it.
type Controller interface {
	Start() (started bool, err error)
	Stop()
	Session() *session.State
}

// SessionHandler serves the camera control and sentence endpoints.
type SessionHandler struct {
	ctrl      Controller
	answerKey string
	logger    *slog.Logger
}

// NewSessionHandler creates a new SessionHandler. A non-empty answerKey
// must be sent as a bearer token or X-API-Key header to submit answers.
func NewSessionHandler(ctrl Controller, answerKey string, logger *slog.Logger) *SessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{ctrl: ctrl, answerKey: answerKey, logger: logger}
}

type predictResponse struct {
	Sign     string `json:"sign"`
	Sentence string `json:"sentence"`
	Answer   string `json:"chatbot_response"`
	Status   string `json:"status"`
}

type submitAnswerRequest struct {
	Text string `json:"text"`
}

// StartCamera handles GET /start_camera.
func (h *SessionHandler) StartCamera(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	started, err := h.ctrl.Start()
	if err != nil {
		writeStatus(w, http.StatusInternalServerError, "Failed to open camera")
		return
	}
	if !started {
		h.logger.Info("camera is already running")
		writeStatus(w, http.StatusOK, "Camera is already running")
		return
	}
	writeStatus(w, http.StatusOK, "Camera started successfully")
}

// StopCamera handles GET /stop_camera.
func (h *SessionHandler) StopCamera(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.ctrl.Stop()
	writeStatus(w, http.StatusOK, "Camera stopped successfully")
}

// Predict handles GET /predict.
func (h *SessionHandler) Predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := h.ctrl.Session().Snapshot()
	h.logger.Debug("prediction requested", "sign", snap.Sign, "sentence", snap.Sentence)

	writeJSON(w, http.StatusOK, predictResponse{
		Sign:     snap.Sign,
		Sentence: snap.Sentence,
		Answer:   snap.Answer,
		Status:   statusSuccess,
	})
}

// Reset handles GET /reset.
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.ctrl.Session().Reset()
	h.logger.Info("sentence reset")
	writeStatus(w, http.StatusOK, "Sentence reset successful")
}

// SubmitAnswer handles POST /submit_answer with {"text": "..."}.
func (h *SessionHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.answerAuthorized(r) {
		h.logger.Warn("rejected answer without valid key", "remote", r.RemoteAddr)
		writeStatus(w, http.StatusUnauthorized, "Invalid API key")
		return
	}

	var req submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	h.ctrl.Session().SetAnswer(req.Text)
	writeStatus(w, http.StatusOK, "Answer stored")
}

func (h *SessionHandler) answerAuthorized(r *http.Request) bool {
	if h.answerKey == "" {
		return true
	}
	key := r.Header.Get("X-API-Key")
	if key == "" {
		key = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(h.answerKey)) == 1
}
