package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/signbridge/internal/metrics"
	"github.com/google/uuid"
)

// DefaultClipTimeout bounds the encoding of a single clip.
const DefaultClipTimeout = 2 * time.Minute

var (
	// ErrEmptySentence is returned for a sentence with no tokens.
	ErrEmptySentence = errors.New("no sentence provided")
	// ErrNoClips is returned when no token produced a usable clip.
	ErrNoClips = errors.New("no videos to merge")
)

// ComposerConfig configures a Composer.
type ComposerConfig struct {
	Resolver  *Resolver
	Encoder   Encoder
	OutputDir string
	// Size of every output frame. Zero means 502x857.
	Size image.Point
	// FPS of the output; zero follows the first clip.
	FPS         float64
	ClipTimeout time.Duration
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Outcome is what happened to one token of a sentence.
type Outcome string

const (
	OutcomeResolved Outcome = "resolved"
	OutcomeMissing  Outcome = "missing"
	OutcomeFailed   Outcome = "failed"
)

// TokenResult is the outcome of the token at one sentence position.
type TokenResult struct {
	Token   string
	Outcome Outcome
	// Clip is the intermediate file name when resolved.
	Clip string
}

// Result describes one compositing job.
type Result struct {
	ID       string
	Sentence string
	Tokens   []string
	// Positions has one entry per token reached, indexed like Tokens.
	Positions []TokenResult
	Resolved  []string
	Missing   []string
	Failed    []string
	// Clips holds the intermediate file names in token order.
	Clips []string
	// Output is the final file name inside the output directory.
	Output   string
	FPS      float64
	Started  time.Time
	Duration time.Duration
}

// Composer builds one video per gloss sentence. Compose may be called
// concurrently; every job writes only files carrying its own id.
type Composer struct {
	config ComposerConfig
	logger *slog.Logger
}

// NewComposer creates a Composer.
func NewComposer(config ComposerConfig) *Composer {
	if config.Size == (image.Point{}) {
		config.Size = image.Pt(DefaultWidth, DefaultHeight)
	}
	if config.ClipTimeout <= 0 {
		config.ClipTimeout = DefaultClipTimeout
	}
	if config.Encoder == nil {
		config.Encoder = NewGocvEncoder(DefaultCodec)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{config: config, logger: logger.With("component", "composer")}
}

// OutputDir returns the directory composed videos are written to.
func (c *Composer) OutputDir() string {
	return c.config.OutputDir
}

// Compose resolves every token of sentence, normalizes the clips found
// and concatenates them in token order. Missing or failing tokens are
// skipped. The returned Result is non-nil whenever the sentence had
// tokens, including on error.
func (c *Composer) Compose(ctx context.Context, sentence string) (*Result, error) {
	tokens := Tokens(sentence)
	if len(tokens) == 0 {
		return nil, ErrEmptySentence
	}

	id := uuid.New().String()
	res := &Result{
		ID:       id,
		Sentence: sentence,
		Tokens:   tokens,
		Started:  time.Now(),
	}
	defer func() { res.Duration = time.Since(res.Started) }()

	if c.config.Metrics != nil {
		c.config.Metrics.GlossJobs.Add(1)
		defer func() { c.config.Metrics.ObserveCompose(time.Since(res.Started)) }()
	}

	logger := c.logger.With("job_id", id)
	logger.Info("processing gloss sentence", "sentence", sentence, "width", c.config.Size.X, "height", c.config.Size.Y)

	if err := os.MkdirAll(c.config.OutputDir, 0755); err != nil {
		c.failed()
		return res, fmt.Errorf("create output dir: %w", err)
	}

	stamp := res.Started.Unix()
	suffix := id[:8]
	fps := c.config.FPS

	var paths []string
	for i, token := range tokens {
		src, err := c.config.Resolver.Resolve(token)
		if err != nil {
			logger.Warn("clip not found", "token", token)
			res.Missing = append(res.Missing, token)
			res.Positions = append(res.Positions, TokenResult{Token: token, Outcome: OutcomeMissing})
			if c.config.Metrics != nil {
				c.config.Metrics.ClipMisses.Add(1)
			}
			continue
		}

		name := fmt.Sprintf("cropped_%s_%d_%s_%d.mp4", token, stamp, suffix, i)
		dst := filepath.Join(c.config.OutputDir, name)

		clipCtx, cancel := context.WithTimeout(ctx, c.config.ClipTimeout)
		info, err := c.config.Encoder.Normalize(clipCtx, src, dst, c.config.Size)
		cancel()
		if err != nil {
			logger.Error("failed to normalize clip", "token", token, "error", err)
			os.Remove(dst)
			res.Failed = append(res.Failed, token)
			res.Positions = append(res.Positions, TokenResult{Token: token, Outcome: OutcomeFailed})
			if ctx.Err() != nil {
				c.failed()
				return res, ctx.Err()
			}
			continue
		}

		if fps <= 0 && info.FPS > 0 {
			fps = info.FPS
		}
		res.Resolved = append(res.Resolved, token)
		res.Positions = append(res.Positions, TokenResult{Token: token, Outcome: OutcomeResolved, Clip: name})
		res.Clips = append(res.Clips, name)
		paths = append(paths, dst)
	}

	if len(paths) == 0 {
		logger.Error("no videos to merge")
		c.failed()
		return res, ErrNoClips
	}
	if fps <= 0 {
		fps = DefaultFPS
	}
	res.FPS = fps

	output := fmt.Sprintf("final_output_%d_%s.mp4", stamp, suffix)
	dst := filepath.Join(c.config.OutputDir, output)

	concatCtx, cancel := context.WithTimeout(ctx, c.config.ClipTimeout*time.Duration(len(paths)))
	defer cancel()
	if err := c.config.Encoder.Concat(concatCtx, paths, dst, fps); err != nil {
		os.Remove(dst)
		c.failed()
		return res, fmt.Errorf("merge clips: %w", err)
	}

	res.Output = output
	logger.Info("merged video created", "output", output, "clips", len(paths), "missing", len(res.Missing))
	return res, nil
}

func (c *Composer) failed() {
	if c.config.Metrics != nil {
		c.config.Metrics.GlossFailed.Add(1)
	}
}
