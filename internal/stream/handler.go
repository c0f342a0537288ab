package stream

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ayusman/signbridge/internal/metrics"
)

// DefaultKeepalive is how often an idle stream re-checks the running flag
// and resends the last frame.
const DefaultKeepalive = 2 * time.Second

// Config configures a Handler.
type Config struct {
	// Running reports whether recognition is active. The stream ends
	// when it returns false.
	Running   func() bool
	Keepalive time.Duration
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Handler serves the cell as a multipart/x-mixed-replace JPEG stream.
type Handler struct {
	cell   *Cell
	config Config
	logger *slog.Logger
}

// NewHandler creates a Handler reading from cell.
func NewHandler(cell *Cell, config Config) *Handler {
	if config.Keepalive <= 0 {
		config.Keepalive = DefaultKeepalive
	}
	if config.Running == nil {
		config.Running = func() bool { return true }
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{cell: cell, config: config, logger: logger}
}

// ServeHTTP streams frames until the client disconnects or recognition stops.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if h.config.Metrics != nil {
		defer h.config.Metrics.ClientConnected()()
	}

	ticker := time.NewTicker(h.config.Keepalive)
	defer ticker.Stop()

	frame, seq := h.cell.Latest()
	for h.config.Running() {
		if frame != nil {
			if err := writePart(w, frame); err != nil {
				h.logger.Debug("stream client disconnected", "remote", r.RemoteAddr, "error", err)
				return
			}
			flusher.Flush()
		}

		select {
		case <-r.Context().Done():
			return
		case <-h.cell.Changed(seq):
			frame, seq = h.cell.Latest()
		case <-ticker.C:
			// Resend the last frame so proxies keep the connection open
		}
	}
}

func writePart(w http.ResponseWriter, frame []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(frame)); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}
