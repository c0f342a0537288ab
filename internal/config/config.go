// Package config loads the signbridge configuration from a YAML file,
// an optional .env file and SIGNBRIDGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete signbridge configuration.
type Config struct {
	Addr         string            `yaml:"addr"`
	PublicURL    string            `yaml:"public_url"` // Base URL used to build video_url values
	CORSOrigin   string            `yaml:"cors_origin"`
	LogLevel     string            `yaml:"log_level"` // debug, info, warn, error
	DatabasePath string            `yaml:"database_path"`
	StaticDir    string            `yaml:"static_dir"` // Optional frontend build directory
	Tray         bool              `yaml:"tray"`
	Camera       CameraConfig      `yaml:"camera"`
	Classifier   ClassifierConfig  `yaml:"classifier"`
	Recognition  RecognitionConfig `yaml:"recognition"`
	Video        VideoConfig       `yaml:"video"`
	MQTT         MQTTConfig        `yaml:"mqtt"`
	AnswerAPIKey string            `yaml:"answer_api_key"` // Never defaulted
}

// CameraConfig contains camera settings.
type CameraConfig struct {
	DeviceID     int           `yaml:"device_id"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	IdleInterval time.Duration `yaml:"idle_interval"` // Sleep while no camera is open
}

// ClassifierConfig points at the external hand locator and sign model.
type ClassifierConfig struct {
	Python     string        `yaml:"python"`
	Script     string        `yaml:"script"`
	ModelPath  string        `yaml:"model_path"`
	LabelsPath string        `yaml:"labels_path"`
	Timeout    time.Duration `yaml:"timeout"` // Per request; the service is restarted on expiry
}

// RecognitionConfig tunes the debounce stage.
type RecognitionConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	WindowSize          int     `yaml:"window_size"`
	DeleteToken         string  `yaml:"delete_token"`
	Margin              int     `yaml:"margin"`
	CanvasSize          int     `yaml:"canvas_size"`
}

// VideoConfig controls the gloss-to-video compositor.
type VideoConfig struct {
	LibraryDir  string        `yaml:"library_dir"`
	OutputDir   string        `yaml:"output_dir"`
	Width       int           `yaml:"width"`
	Height      int           `yaml:"height"`
	FPS         float64       `yaml:"fps"`     // 0 follows the first clip
	Encoder     string        `yaml:"encoder"` // gocv or ffmpeg
	Codec       string        `yaml:"codec"`   // FourCC for the gocv encoder
	FFmpegPath  string        `yaml:"ffmpeg_path"`
	ClipTimeout time.Duration `yaml:"clip_timeout"`
}

// MQTTConfig enables sentence event publishing when Broker is set.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"` // Prefix; events go to <topic>/<kind>
	QoS      byte   `yaml:"qos"`
}

// Default returns a Config with the values signbridge ships with.
func Default() *Config {
	return &Config{
		Addr:         ":5001",
		PublicURL:    "http://localhost:5001",
		CORSOrigin:   "http://localhost:3000",
		LogLevel:     "info",
		DatabasePath: filepath.Join(dataDir(), "signbridge.db"),
		Camera: CameraConfig{
			DeviceID:     0,
			ReadTimeout:  2 * time.Second,
			IdleInterval: time.Second,
		},
		Classifier: ClassifierConfig{
			Python:  "python3",
			Script:  "scripts/sign_service.py",
			Timeout: 5 * time.Second,
		},
		Recognition: RecognitionConfig{
			ConfidenceThreshold: 0.75,
			WindowSize:          10,
			DeleteToken:         "Backspace",
			Margin:              20,
			CanvasSize:          300,
		},
		Video: VideoConfig{
			LibraryDir:  "dataset",
			OutputDir:   "static",
			Width:       502,
			Height:      857,
			Encoder:     "gocv",
			Codec:       "mp4v",
			FFmpegPath:  "ffmpeg",
			ClipTimeout: 2 * time.Minute,
		},
		MQTT: MQTTConfig{
			ClientID: "signbridge",
			Topic:    "signbridge",
		},
	}
}

// Load reads an optional .env file, the YAML file at path (if non-empty)
// and environment overrides, then validates the result.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside development
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnv overrides deployment specific settings from SIGNBRIDGE_* variables.
func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"SIGNBRIDGE_ADDR":           &cfg.Addr,
		"SIGNBRIDGE_PUBLIC_URL":     &cfg.PublicURL,
		"SIGNBRIDGE_CORS_ORIGIN":    &cfg.CORSOrigin,
		"SIGNBRIDGE_LOG_LEVEL":      &cfg.LogLevel,
		"SIGNBRIDGE_DATABASE_PATH":  &cfg.DatabasePath,
		"SIGNBRIDGE_MODEL_PATH":     &cfg.Classifier.ModelPath,
		"SIGNBRIDGE_LABELS_PATH":    &cfg.Classifier.LabelsPath,
		"SIGNBRIDGE_CLASSIFIER":     &cfg.Classifier.Script,
		"SIGNBRIDGE_PYTHON":         &cfg.Classifier.Python,
		"SIGNBRIDGE_LIBRARY_DIR":    &cfg.Video.LibraryDir,
		"SIGNBRIDGE_OUTPUT_DIR":     &cfg.Video.OutputDir,
		"SIGNBRIDGE_ENCODER":        &cfg.Video.Encoder,
		"SIGNBRIDGE_MQTT_BROKER":    &cfg.MQTT.Broker,
		"SIGNBRIDGE_ANSWER_API_KEY": &cfg.AnswerAPIKey,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("SIGNBRIDGE_CAMERA_ID"); ok {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SIGNBRIDGE_CAMERA_ID: %w", err)
		}
		cfg.Camera.DeviceID = id
	}

	return nil
}

// Validate checks the configuration for values the pipelines cannot run with.
func Validate(cfg *Config) error {
	if cfg.Addr == "" {
		return fmt.Errorf("addr is required")
	}

	r := cfg.Recognition
	if r.ConfidenceThreshold <= 0 || r.ConfidenceThreshold > 1 {
		return fmt.Errorf("recognition.confidence_threshold must be in (0, 1]")
	}
	if r.WindowSize <= 0 {
		return fmt.Errorf("recognition.window_size must be > 0")
	}
	if r.CanvasSize <= 0 {
		return fmt.Errorf("recognition.canvas_size must be > 0")
	}
	if r.Margin < 0 {
		return fmt.Errorf("recognition.margin must be >= 0")
	}

	v := cfg.Video
	if v.Width <= 0 || v.Height <= 0 {
		return fmt.Errorf("video.width and video.height must be > 0")
	}
	if v.FPS < 0 {
		return fmt.Errorf("video.fps must be >= 0")
	}
	switch v.Encoder {
	case "gocv", "ffmpeg":
	default:
		return fmt.Errorf("video.encoder must be gocv or ffmpeg, got %q", v.Encoder)
	}
	if v.ClipTimeout <= 0 {
		cfg.Video.ClipTimeout = 2 * time.Minute
	}

	if cfg.Camera.ReadTimeout <= 0 {
		cfg.Camera.ReadTimeout = 2 * time.Second
	}
	if cfg.Camera.IdleInterval <= 0 {
		cfg.Camera.IdleInterval = time.Second
	}
	if cfg.Classifier.Timeout <= 0 {
		cfg.Classifier.Timeout = 5 * time.Second
	}

	if cfg.MQTT.Broker != "" && cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = "signbridge"
	}

	return nil
}

// dataDir returns ~/.signbridge, or the working directory if home is unknown.
func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".signbridge")
}
