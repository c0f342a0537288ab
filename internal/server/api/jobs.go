package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/signbridge/internal/store"
)

// DefaultJobLimit caps GET /api/jobs when no limit is given.
const DefaultJobLimit = 50

// JobsHandler handles HTTP requests for compositing job history.
type JobsHandler struct {
	store *store.Store
}

// NewJobsHandler creates a new JobsHandler with the given store.
func NewJobsHandler(s *store.Store) *JobsHandler {
	return &JobsHandler{store: s}
}

type listJobsResponse struct {
	Jobs []*store.Job `json:"jobs"`
}

// ServeHTTP routes /api/jobs and /api/jobs/{id}.
func (h *JobsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/jobs")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// list handles GET /api/jobs?limit=N.
func (h *JobsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := DefaultJobLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	jobs, err := h.store.Jobs().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	if jobs == nil {
		jobs = []*store.Job{}
	}

	writeJSON(w, http.StatusOK, listJobsResponse{Jobs: jobs})
}

// get handles GET /api/jobs/{id}.
func (h *JobsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	job, err := h.store.Jobs().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// delete handles DELETE /api/jobs/{id}.
func (h *JobsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Jobs().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete job")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
