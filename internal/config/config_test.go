package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate(Default()) error = %v", err)
	}

	if cfg.Video.Width != 502 || cfg.Video.Height != 857 {
		t.Errorf("target size = %dx%d, want 502x857", cfg.Video.Width, cfg.Video.Height)
	}
	if cfg.Recognition.WindowSize != 10 {
		t.Errorf("WindowSize = %d, want 10", cfg.Recognition.WindowSize)
	}
	if cfg.AnswerAPIKey != "" {
		t.Error("default config must not carry an API key")
	}
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signbridge.yaml")

	content := `
addr: ":9000"
camera:
  device_id: 2
  read_timeout: 500ms
classifier:
  timeout: 2s
video:
  library_dir: /srv/clips
  width: 640
  height: 480
  encoder: ffmpeg
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("SIGNBRIDGE_OUTPUT_DIR", "/srv/out")
	t.Setenv("SIGNBRIDGE_CAMERA_ID", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Addr != ":9000" {
		t.Errorf("Addr = %q, want :9000", cfg.Addr)
	}
	if cfg.Camera.ReadTimeout != 500*time.Millisecond {
		t.Errorf("ReadTimeout = %v, want 500ms", cfg.Camera.ReadTimeout)
	}
	if cfg.Classifier.Timeout != 2*time.Second {
		t.Errorf("Classifier.Timeout = %v, want 2s", cfg.Classifier.Timeout)
	}
	if cfg.Camera.DeviceID != 3 {
		t.Errorf("DeviceID = %d, want 3 (env override)", cfg.Camera.DeviceID)
	}
	if cfg.Video.LibraryDir != "/srv/clips" {
		t.Errorf("LibraryDir = %q", cfg.Video.LibraryDir)
	}
	if cfg.Video.OutputDir != "/srv/out" {
		t.Errorf("OutputDir = %q, want env override", cfg.Video.OutputDir)
	}
	if cfg.Video.Encoder != "ffmpeg" {
		t.Errorf("Encoder = %q, want ffmpeg", cfg.Video.Encoder)
	}
	// Unset keys keep their defaults
	if cfg.Recognition.DeleteToken != "Backspace" {
		t.Errorf("DeleteToken = %q, want Backspace", cfg.Recognition.DeleteToken)
	}
}

func TestLoad_InvalidCameraID(t *testing.T) {
	t.Setenv("SIGNBRIDGE_CAMERA_ID", "front")

	if _, err := Load(""); err == nil {
		t.Error("expected error for non-numeric camera id")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "threshold above one", mutate: func(c *Config) { c.Recognition.ConfidenceThreshold = 1.5 }, wantErr: true},
		{name: "zero threshold", mutate: func(c *Config) { c.Recognition.ConfidenceThreshold = 0 }, wantErr: true},
		{name: "zero window", mutate: func(c *Config) { c.Recognition.WindowSize = 0 }, wantErr: true},
		{name: "negative margin", mutate: func(c *Config) { c.Recognition.Margin = -1 }, wantErr: true},
		{name: "zero width", mutate: func(c *Config) { c.Video.Width = 0 }, wantErr: true},
		{name: "unknown encoder", mutate: func(c *Config) { c.Video.Encoder = "moviepy" }, wantErr: true},
		{name: "negative fps", mutate: func(c *Config) { c.Video.FPS = -1 }, wantErr: true},
		{name: "empty addr", mutate: func(c *Config) { c.Addr = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_FillsZeroDurations(t *testing.T) {
	cfg := Default()
	cfg.Camera.ReadTimeout = 0
	cfg.Video.ClipTimeout = 0
	cfg.Classifier.Timeout = 0

	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Camera.ReadTimeout <= 0 || cfg.Video.ClipTimeout <= 0 || cfg.Classifier.Timeout <= 0 {
		t.Error("zero timeouts should be replaced with defaults")
	}
}
