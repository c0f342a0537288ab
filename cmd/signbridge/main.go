package main

import (
	"context"
	"errors"
	"flag"
	"image"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/ayusman/signbridge/internal/app"
	"github.com/ayusman/signbridge/internal/capture"
	"github.com/ayusman/signbridge/internal/classifier"
	"github.com/ayusman/signbridge/internal/config"
	"github.com/ayusman/signbridge/internal/emitter"
	"github.com/ayusman/signbridge/internal/handcrop"
	"github.com/ayusman/signbridge/internal/metrics"
	"github.com/ayusman/signbridge/internal/server"
	"github.com/ayusman/signbridge/internal/session"
	"github.com/ayusman/signbridge/internal/sign"
	"github.com/ayusman/signbridge/internal/store"
	"github.com/ayusman/signbridge/internal/tray"
	"github.com/ayusman/signbridge/internal/video"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      parseLevel(cfg.LogLevel),
			TimeFormat: "15:04:05",
		}),
	)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("signbridge exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	model := newModel(cfg, logger)

	m := metrics.New()
	state := session.New(sign.Config{
		Threshold:   cfg.Recognition.ConfidenceThreshold,
		WindowSize:  cfg.Recognition.WindowSize,
		DeleteToken: cfg.Recognition.DeleteToken,
	})

	application := app.New(app.Config{
		Camera:       capture.NewCamera(cfg.Camera.DeviceID),
		Model:        model,
		Session:      state,
		Normalizer:   handcrop.New(cfg.Recognition.Margin, cfg.Recognition.CanvasSize),
		Metrics:      m,
		Logger:       logger,
		ReadTimeout:  cfg.Camera.ReadTimeout,
		IdleInterval: cfg.Camera.IdleInterval,
	})
	defer application.Close()

	encoder, err := video.NewEncoder(cfg.Video.Encoder, cfg.Video.Codec, cfg.Video.FFmpegPath)
	if err != nil {
		return err
	}
	composer := video.NewComposer(video.ComposerConfig{
		Resolver:    video.NewResolver(cfg.Video.LibraryDir),
		Encoder:     encoder,
		OutputDir:   cfg.Video.OutputDir,
		Size:        image.Pt(cfg.Video.Width, cfg.Video.Height),
		FPS:         cfg.Video.FPS,
		ClipTimeout: cfg.Video.ClipTimeout,
		Metrics:     m,
		Logger:      logger,
	})

	var onJob func(*store.Job)
	if cfg.MQTT.Broker != "" {
		em := emitter.NewMQTTEmitter(emitter.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			QoS:      cfg.MQTT.QoS,
			Logger:   logger,
		})
		if err := em.Connect(ctx); err != nil {
			logger.Warn("mqtt unavailable, events disabled", "broker", cfg.MQTT.Broker, "error", err)
		} else {
			defer em.Disconnect()
			go em.Run(ctx)
			state.OnChange(em.HandleChange)
			onJob = func(j *store.Job) { em.Enqueue(emitter.KindJob, j) }
		}
	}

	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		logger.Info("serving frontend", "dir", staticDir)
	}

	srv := server.New(server.Config{
		Controller: application,
		Frames:     application.Frames(),
		Composer:   composer,
		Store:      st,
		Metrics:    m,
		OutputDir:  cfg.Video.OutputDir,
		StaticDir:  staticDir,
		PublicURL:  cfg.PublicURL,
		CORSOrigin: cfg.CORSOrigin,
		OnJob:      onJob,
		Logger:     logger,

		AnswerAPIKey: cfg.AnswerAPIKey,
	})
	httpServer := srv.NewHTTPServer(cfg.Addr)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if cfg.Tray {
		t := tray.New()
		t.OnToggle(func(running bool) {
			if !running {
				application.Stop()
				return
			}
			if _, err := application.Start(); err != nil {
				logger.Error("failed to start camera", "error", err)
			}
		})
		t.OnReset(state.Reset)
		t.OnOpen(func() { openBrowser(cfg.PublicURL, logger) })
		t.OnQuit(cancel)
		state.OnChange(t.HandleChange)

		// systray needs the main goroutine
		t.QuitOnDone(ctx, func() { shutdown(httpServer, application, logger) })
		t.Run()
		cancel()
		return <-errCh
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			application.Stop()
			return err
		}
	}

	shutdown(httpServer, application, logger)
	return nil
}

func shutdown(httpServer *http.Server, application *app.App, logger *slog.Logger) {
	logger.Info("shutting down")
	application.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("server shutdown", "error", err)
	}
}

// newModel starts the external model service, or falls back to a mock
// that never finds a hand so the rest of the system stays usable.
func newModel(cfg *config.Config, logger *slog.Logger) classifier.Model {
	labels := classifier.DefaultLabels()
	if cfg.Classifier.LabelsPath != "" {
		loaded, err := classifier.LoadLabels(cfg.Classifier.LabelsPath)
		if err != nil {
			logger.Warn("using default labels", "path", cfg.Classifier.LabelsPath, "error", err)
		} else {
			labels = loaded
		}
	}

	model, err := classifier.NewProcessModel(classifier.Config{
		Python:    cfg.Classifier.Python,
		Script:    cfg.Classifier.Script,
		ModelPath: cfg.Classifier.ModelPath,
		Labels:    labels,
		Timeout:   cfg.Classifier.Timeout,
	}, logger)
	if err != nil {
		logger.Warn("model service unavailable, recognition disabled", "error", err)
		return classifier.NewMockModel()
	}
	return model
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openBrowser(url string, logger *slog.Logger) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		logger.Warn("failed to open browser", "url", url, "error", err)
	}
}

// findWebDir searches for a frontend build in common locations.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".signbridge", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
