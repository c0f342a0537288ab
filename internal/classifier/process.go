package classifier

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Request opcodes understood by the model service.
const (
	opLocate   byte = 'L'
	opClassify byte = 'C'
)

// DefaultTimeout bounds one request to the model service.
const DefaultTimeout = 5 * time.Second

// idleShutdown is how long the service may sit unused before it is stopped.
const idleShutdown = 30 * time.Second

// ProcessModel implements Model using a Python model service subprocess.
//
// Each request is one opcode byte, a 4-byte big-endian length and a JPEG
// image on stdin. The service answers with one JSON line on stdout:
// {"hands":[...]} for locate and {"scores":[...]} for classify.
type ProcessModel struct {
	config    Config
	logger    *slog.Logger
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

// NewProcessModel creates a new model backed by the service script.
// The Python process is started lazily on first use.
func NewProcessModel(config Config, logger *slog.Logger) (*ProcessModel, error) {
	if logger == nil {
		logger = slog.Default()
	}

	script := findScript(config.Script)
	if script == "" {
		return nil, fmt.Errorf("model service script %q not found", config.Script)
	}
	config.Script = script

	if len(config.Labels) == 0 {
		config.Labels = DefaultLabels()
	}
	if config.Python == "" {
		config.Python = "python3"
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	return &ProcessModel{
		config: config,
		logger: logger,
	}, nil
}

// Locate asks the service for hand landmarks and returns the bounding box
// of the first hand.
func (m *ProcessModel) Locate(frame *gocv.Mat) (image.Rectangle, bool, error) {
	var response struct {
		Hands []HandLandmarks `json:"hands"`
	}
	if err := m.roundTrip(opLocate, frame, &response); err != nil {
		return image.Rectangle{}, false, err
	}

	if len(response.Hands) == 0 {
		return image.Rectangle{}, false, nil
	}

	return response.Hands[0].BoundingBox(frame.Cols(), frame.Rows()), true, nil
}

// Classify scores a normalized hand canvas against the label set.
func (m *ProcessModel) Classify(canvas *gocv.Mat) (Prediction, error) {
	var response struct {
		Scores []float64 `json:"scores"`
	}
	if err := m.roundTrip(opClassify, canvas, &response); err != nil {
		return Prediction{}, err
	}

	pred, ok := m.config.Labels.Best(response.Scores)
	if !ok {
		return Prediction{}, fmt.Errorf("model returned %d scores for %d labels", len(response.Scores), len(m.config.Labels))
	}

	return pred, nil
}

// Close shuts down the Python process.
func (m *ProcessModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown()
}

// roundTrip sends one image and decodes the JSON reply into out.
func (m *ProcessModel) roundTrip(op byte, img *gocv.Mat, out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureStarted(); err != nil {
		return err
	}

	buf, err := gocv.IMEncode(".jpg", *img)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	header := make([]byte, 5)
	header[0] = op
	binary.BigEndian.PutUint32(header[1:], uint32(len(data)))

	// Killing the service unblocks the pipe reads and writes below
	proc := m.cmd.Process
	deadline := time.AfterFunc(m.config.Timeout, func() {
		m.logger.Warn("model service timed out, killing", "pid", proc.Pid, "timeout", m.config.Timeout)
		proc.Kill()
	})

	line, err := m.exchange(header, data)
	if !deadline.Stop() {
		m.shutdown()
		return fmt.Errorf("model service did not answer within %v", m.config.Timeout)
	}
	if err != nil {
		m.shutdown()
		return err
	}

	if err := json.Unmarshal([]byte(line), out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	m.resetIdleTimer()
	return nil
}

func (m *ProcessModel) exchange(header, data []byte) (string, error) {
	if _, err := m.stdin.Write(header); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}
	if _, err := m.stdin.Write(data); err != nil {
		return "", fmt.Errorf("write data: %w", err)
	}
	line, err := m.stdout.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return line, nil
}

func (m *ProcessModel) ensureStarted() error {
	if m.started {
		return nil
	}

	args := []string{m.config.Script}
	if m.config.ModelPath != "" {
		args = append(args, "--model", m.config.ModelPath)
	}

	m.cmd = exec.Command(m.config.Python, args...)

	stdin, err := m.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := m.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Capture stderr for debugging
	m.cmd.Stderr = os.Stderr

	if err := m.cmd.Start(); err != nil {
		return fmt.Errorf("start model service: %w", err)
	}

	m.stdin = stdin
	m.stdout = bufio.NewReader(stdout)
	m.started = true

	m.logger.Info("model service started", "script", m.config.Script, "pid", m.cmd.Process.Pid)
	return nil
}

func (m *ProcessModel) shutdown() error {
	if !m.started {
		return nil
	}

	if m.idleTimer != nil {
		m.idleTimer.Stop()
		m.idleTimer = nil
	}

	if m.stdin != nil {
		m.stdin.Close()
	}

	err := m.cmd.Wait()
	m.started = false
	m.cmd = nil
	m.stdin = nil
	m.stdout = nil

	m.logger.Info("model service stopped")
	return err
}

func (m *ProcessModel) resetIdleTimer() {
	if m.idleTimer != nil {
		m.idleTimer.Stop()
	}
	m.idleTimer = time.AfterFunc(idleShutdown, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.shutdown()
	})
}

// findScript resolves the service script relative to the working
// directory, the executable and ~/.signbridge. Returns "" if not found.
func findScript(script string) string {
	if script == "" {
		return ""
	}
	if filepath.IsAbs(script) {
		if _, err := os.Stat(script); err == nil {
			return script
		}
		return ""
	}

	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		script,
		filepath.Join("..", script),
		filepath.Join(execDir, script),
		filepath.Join(os.Getenv("HOME"), ".signbridge", script),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
