package video

import (
	"context"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/signbridge/internal/fixtures"
)

// fakeFFmpeg writes a shell script standing in for ffmpeg. It records its
// argv one per line into args and copies the file following -i into input.
func fakeFFmpeg(t *testing.T, body string) (bin, args, input string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake ffmpeg needs a POSIX shell")
	}

	dir := t.TempDir()
	bin = filepath.Join(dir, "ffmpeg")
	args = filepath.Join(dir, "args")
	input = filepath.Join(dir, "input")

	script := "#!/bin/sh\n" +
		"printf '%s\\n' \"$@\" > '" + args + "'\n" +
		"prev=\n" +
		"for a in \"$@\"; do\n" +
		"  if [ \"$prev\" = \"-i\" ]; then cp \"$a\" '" + input + "'; fi\n" +
		"  prev=\"$a\"\n" +
		"done\n" +
		body + "\n"
	if err := os.WriteFile(bin, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return bin, args, input
}

func readArgs(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("fake ffmpeg did not run: %v", err)
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

// flagValue returns the argument following flag, or "" when absent.
func flagValue(args []string, flag string) string {
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		return ""
	}
	return args[i+1]
}

func TestNormalizeArgs(t *testing.T) {
	tests := []struct {
		name       string
		info       ClipInfo
		wantFilter string
	}{
		{"wide source", ClipInfo{Width: 1000, Height: 500}, "crop=293:500:353:0,scale=502:857"},
		{"tall source", ClipInfo{Width: 500, Height: 1000}, "crop=500:854:0:73,scale=502:857"},
		{"matching aspect", ClipInfo{Width: 502, Height: 857}, "crop=502:857:0:0,scale=502:857"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := normalizeArgs("in.mp4", "out.mp4", tt.info, image.Pt(DefaultWidth, DefaultHeight))

			if got := flagValue(args, "-vf"); !strings.HasPrefix(got, tt.wantFilter) {
				t.Errorf("filter = %q, want prefix %q", got, tt.wantFilter)
			}
			if got := flagValue(args, "-i"); got != "in.mp4" {
				t.Errorf("input = %q, want in.mp4", got)
			}
			if args[len(args)-1] != "out.mp4" {
				t.Errorf("last arg = %q, want the destination", args[len(args)-1])
			}
			if !slices.Contains(args, "-an") {
				t.Error("audio is not dropped")
			}
		})
	}
}

func TestFFmpegEncoder_Normalize(t *testing.T) {
	bin, argsFile, _ := fakeFFmpeg(t, "exit 0")

	src := filepath.Join(t.TempDir(), "Hello.mp4")
	if err := fixtures.WriteClip(src, 1000, 500, 4, 24, DefaultCodec); err != nil {
		t.Skipf("cannot write test clip: %v", err)
	}

	enc := NewFFmpegEncoder(bin)
	info, err := enc.Normalize(context.Background(), src, "out.mp4", image.Pt(DefaultWidth, DefaultHeight))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if info.Width != 1000 || info.Height != 500 {
		t.Errorf("info = %+v, want the source size", info)
	}

	args := readArgs(t, argsFile)
	if got := flagValue(args, "-vf"); !strings.HasPrefix(got, "crop=293:500:353:0,scale=502:857") {
		t.Errorf("filter = %q", got)
	}
}

func TestFFmpegEncoder_Concat(t *testing.T) {
	bin, argsFile, inputFile := fakeFFmpeg(t, "exit 0")

	dir := filepath.Join(t.TempDir(), "it's here")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	srcs := []string{filepath.Join(dir, "a.mp4"), filepath.Join(dir, "b.mp4")}
	dst := filepath.Join(t.TempDir(), "final.mp4")

	enc := NewFFmpegEncoder(bin)
	if err := enc.Concat(context.Background(), srcs, dst, 23.976); err != nil {
		t.Fatalf("Concat() error = %v", err)
	}

	args := readArgs(t, argsFile)
	if got := flagValue(args, "-r"); got != "23.976" {
		t.Errorf("-r = %q, want 23.976", got)
	}
	if got := flagValue(args, "-f"); got != "concat" {
		t.Errorf("-f = %q, want concat", got)
	}
	if args[len(args)-1] != dst {
		t.Errorf("last arg = %q, want %q", args[len(args)-1], dst)
	}

	list, err := os.ReadFile(inputFile)
	if err != nil {
		t.Fatalf("concat list was not passed with -i: %v", err)
	}
	escaped := strings.ReplaceAll(dir, "'", `'\''`)
	want := "file '" + escaped + "/a.mp4'\nfile '" + escaped + "/b.mp4'\n"
	if string(list) != want {
		t.Errorf("concat list =\n%s\nwant\n%s", list, want)
	}
	if !strings.Contains(string(list), `it'\''s here`) {
		t.Error("single quote in path is not escaped")
	}

	if _, err := os.Stat(dst + ".txt"); !os.IsNotExist(err) {
		t.Error("concat list was not removed")
	}

	t.Run("zero fps follows input", func(t *testing.T) {
		if err := enc.Concat(context.Background(), srcs, dst, 0); err != nil {
			t.Fatalf("Concat() error = %v", err)
		}
		if slices.Contains(readArgs(t, argsFile), "-r") {
			t.Error("-r passed for zero fps")
		}
	})

	t.Run("no sources", func(t *testing.T) {
		if err := enc.Concat(context.Background(), nil, dst, 0); err != ErrNoClips {
			t.Errorf("Concat(nil) error = %v, want ErrNoClips", err)
		}
	})
}

func TestFFmpegEncoder_Errors(t *testing.T) {
	srcs := []string{"a.mp4"}
	dst := filepath.Join(t.TempDir(), "final.mp4")

	t.Run("failure reports stderr", func(t *testing.T) {
		bin, _, _ := fakeFFmpeg(t, "echo 'Invalid data found' >&2\nexit 1")

		err := NewFFmpegEncoder(bin).Concat(context.Background(), srcs, dst, 0)
		if err == nil || !strings.Contains(err.Error(), "Invalid data found") {
			t.Errorf("Concat() error = %v, want stderr in message", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		bin, _, _ := fakeFFmpeg(t, "exec sleep 10")

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		start := time.Now()
		err := NewFFmpegEncoder(bin).Concat(ctx, srcs, dst, 0)
		if err == nil || !strings.Contains(err.Error(), "timed out") {
			t.Errorf("Concat() error = %v, want timed out", err)
		}
		if elapsed := time.Since(start); elapsed > 5*time.Second {
			t.Errorf("Concat() returned after %v", elapsed)
		}
	})

	t.Run("missing binary", func(t *testing.T) {
		enc := NewFFmpegEncoder(filepath.Join(t.TempDir(), "no-ffmpeg"))
		if err := enc.Concat(context.Background(), srcs, dst, 0); err == nil {
			t.Error("Concat() with a missing binary should fail")
		}
	})
}

func TestFFmpegEncoder_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping video encoding test")
	}
	bin, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}

	lib := t.TempDir()
	if err := fixtures.WriteClip(filepath.Join(lib, "Hello.mp4"), 1000, 500, 12, 24, DefaultCodec); err != nil {
		t.Skipf("cannot write test clip: %v", err)
	}
	if err := fixtures.WriteClip(filepath.Join(lib, "You.mp4"), 480, 640, 8, 24, DefaultCodec); err != nil {
		t.Skipf("cannot write test clip: %v", err)
	}

	out := filepath.Join(t.TempDir(), "static")
	c := NewComposer(ComposerConfig{
		Resolver:  NewResolver(lib),
		Encoder:   NewFFmpegEncoder(bin),
		OutputDir: out,
	})

	res, err := c.Compose(context.Background(), "Hello You")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	info, err := Probe(filepath.Join(out, res.Output))
	if err != nil {
		t.Fatalf("Probe(output) error = %v", err)
	}
	if info.Width != DefaultWidth || info.Height != DefaultHeight {
		t.Errorf("output size = %dx%d, want %dx%d", info.Width, info.Height, DefaultWidth, DefaultHeight)
	}
}
