package e2e

import (
	"bytes"
	"encoding/json"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/signbridge/internal/app"
	"github.com/ayusman/signbridge/internal/capture"
	"github.com/ayusman/signbridge/internal/classifier"
	"github.com/ayusman/signbridge/internal/fixtures"
	"github.com/ayusman/signbridge/internal/metrics"
	"github.com/ayusman/signbridge/internal/server"
	"github.com/ayusman/signbridge/internal/session"
	"github.com/ayusman/signbridge/internal/sign"
	"github.com/ayusman/signbridge/internal/store"
	"github.com/ayusman/signbridge/internal/video"
	"gocv.io/x/gocv"
)

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	libDir := filepath.Join(tmpDir, "dataset")
	outDir := filepath.Join(tmpDir, "static")
	if err := os.MkdirAll(libDir, 0755); err != nil {
		t.Fatalf("mkdir error = %v", err)
	}

	// Landscape clips exercise the centre crop
	for _, name := range []string{"Hello", "You"} {
		clip := filepath.Join(libDir, name+video.ClipExt)
		if err := fixtures.WriteClip(clip, 320, 240, 12, 24, video.DefaultCodec); err != nil {
			t.Skipf("cannot write fixture clip: %v", err)
		}
	}

	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	box := image.Rect(260, 140, 380, 380)
	frame := fixtures.HandFrame(640, 480, box)
	defer frame.Close()

	camera := capture.NewMockCamera([]*gocv.Mat{&frame}, true)
	model := classifier.NewMockModel()
	model.SetHand(box)

	m := metrics.New()
	application := app.New(app.Config{
		Camera:       camera,
		Model:        model,
		Session:      session.New(sign.DefaultConfig()),
		Metrics:      m,
		ReadTimeout:  200 * time.Millisecond,
		IdleInterval: 10 * time.Millisecond,
	})
	defer application.Close()

	srv := server.New(server.Config{
		Controller: application,
		Frames:     application.Frames(),
		Composer: video.NewComposer(video.ComposerConfig{
			Resolver:  video.NewResolver(libDir),
			OutputDir: outDir,
			Size:      image.Pt(video.DefaultWidth, video.DefaultHeight),
			Metrics:   m,
		}),
		Store:     s,
		Metrics:   m,
		OutputDir: outDir,
		PublicURL: "http://example.test",
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	get := func(t *testing.T, p string, out any) int {
		t.Helper()
		resp, err := client.Get(ts.URL + p)
		if err != nil {
			t.Fatalf("GET %s error = %v", p, err)
		}
		defer resp.Body.Close()
		if out != nil {
			json.NewDecoder(resp.Body).Decode(out)
		}
		return resp.StatusCode
	}

	type prediction struct {
		Sign     string `json:"sign"`
		Sentence string `json:"sentence"`
	}
	waitSentence := func(t *testing.T, want string) {
		t.Helper()
		var p prediction
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			get(t, "/predict", &p)
			if p.Sentence == want {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
		t.Fatalf("sentence = %q, want %q", p.Sentence, want)
	}

	t.Run("BuildSentence", func(t *testing.T) {
		model.SetPredictions(classifier.Prediction{Label: "Hello", Confidence: 0.9})
		if code := get(t, "/start_camera", nil); code != http.StatusOK {
			t.Fatalf("start_camera status = %d", code)
		}
		waitSentence(t, "Hello")

		model.SetPredictions(classifier.Prediction{Label: "You", Confidence: 0.9})
		waitSentence(t, "Hello You")

		model.SetPredictions(classifier.Prediction{Label: sign.DefaultDeleteToken, Confidence: 0.9})
		waitSentence(t, "Hello")

		// Low confidence never reaches the window
		model.SetPredictions(classifier.Prediction{Label: "You", Confidence: 0.5})
		time.Sleep(200 * time.Millisecond)
		waitSentence(t, "Hello")

		get(t, "/stop_camera", nil)
		get(t, "/reset", nil)
		waitSentence(t, "")
	})

	var videoURL string
	t.Run("ComposeGloss", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/process_gloss_sentence", "application/json",
			bytes.NewBufferString(`{"sentence": "Hello Unknownword You"}`))
		if err != nil {
			t.Fatalf("POST error = %v", err)
		}
		defer resp.Body.Close()

		var body struct {
			Message  string `json:"message"`
			VideoURL string `json:"video_url"`
			JobID    string `json:"job_id"`
			Status   string `json:"status"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		if resp.StatusCode != http.StatusOK || body.Status != "success" {
			t.Fatalf("compose = %d %+v", resp.StatusCode, body)
		}
		videoURL = body.VideoURL

		out := filepath.Join(outDir, path.Base(videoURL))
		info, err := video.Probe(out)
		if err != nil {
			t.Fatalf("Probe(output) error = %v", err)
		}
		if info.Width != video.DefaultWidth || info.Height != video.DefaultHeight {
			t.Errorf("output size = %dx%d, want %dx%d", info.Width, info.Height, video.DefaultWidth, video.DefaultHeight)
		}
		if info.Frames < 20 || info.Frames > 28 {
			t.Errorf("output frames = %d, want about 24", info.Frames)
		}

		var job store.Job
		get(t, "/api/jobs/"+body.JobID, &job)
		if job.Status != store.JobSucceeded || len(job.Tokens) != 3 {
			t.Fatalf("job = %+v", job)
		}
		if job.Tokens[1].Token != "Unknownword" || job.Tokens[1].Outcome != store.TokenMissing {
			t.Errorf("job token[1] = %+v, want Unknownword missing", job.Tokens[1])
		}
	})

	t.Run("ServeOutput", func(t *testing.T) {
		if videoURL == "" {
			t.Skip("no composed video")
		}
		resp, err := client.Get(ts.URL + "/static/" + path.Base(videoURL))
		if err != nil {
			t.Fatalf("GET output error = %v", err)
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK || len(data) == 0 {
			t.Errorf("output status = %d, %d bytes", resp.StatusCode, len(data))
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/metrics")
		if err != nil {
			t.Fatalf("GET /metrics error = %v", err)
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		if !bytes.Contains(data, []byte("signbridge_gloss_jobs_total 1")) {
			t.Error("metrics missing gloss job count")
		}
	})
}
