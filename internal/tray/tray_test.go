package tray

import (
	"context"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/ayusman/signbridge/internal/session"
)

func TestTray_HandleChangeBeforeReady(t *testing.T) {
	tr := New()
	if tr.IsRunning() {
		t.Fatal("new tray should start stopped")
	}

	// Menu items do not exist yet; updates must not panic
	tr.HandleChange(session.Change{
		Reason:   session.ReasonRunning,
		Snapshot: session.Snapshot{Running: true, Sign: "Hello", Sentence: "Hello"},
	})

	if !tr.IsRunning() {
		t.Error("IsRunning() = false after running change")
	}
}

func TestTray_ToggleRequestsOppositeState(t *testing.T) {
	tr := New()

	var got []bool
	tr.OnToggle(func(running bool) { got = append(got, running) })

	tr.handleToggle()
	tr.HandleChange(session.Change{Reason: session.ReasonRunning, Snapshot: session.Snapshot{Running: true}})
	tr.handleToggle()

	if len(got) != 2 || got[0] != true || got[1] != false {
		t.Errorf("toggle requests = %v, want [true false]", got)
	}
}

func TestTray_Callbacks(t *testing.T) {
	tr := New()

	var resets, opens int
	tr.OnReset(func() { resets++ })
	tr.OnOpen(func() { opens++ })

	tr.call(func() func() { return tr.onReset })
	tr.call(func() func() { return tr.onOpen })
	tr.call(func() func() { return tr.onQuit }) // unset is a no-op

	if resets != 1 || opens != 1 {
		t.Errorf("resets = %d, opens = %d, want 1 and 1", resets, opens)
	}
}

func TestTray_QuitOnDone(t *testing.T) {
	tr := New()
	quit := make(chan struct{})
	tr.quit = func() { close(quit) }

	var cleaned bool
	ctx, cancel := context.WithCancel(context.Background())
	tr.QuitOnDone(ctx, func() { cleaned = true })

	select {
	case <-quit:
		t.Fatal("tray quit before the context was done")
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	select {
	case <-quit:
	case <-time.After(time.Second):
		t.Fatal("tray did not quit after the context was done")
	}
	if !cleaned {
		t.Error("cleanup did not run before quit")
	}
}

func TestTail(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "Hello You", 40, "Hello You"},
		{"ascii cut", "abcdefghij", 8, "...fghij"},
		{"multibyte cut", "ñandú ñandú ñandú", 8, "...ñandú"},
		{"exact length", "ñandú", 5, "ñandú"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tail(tt.in, tt.n)
			if got != tt.want {
				t.Errorf("tail(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("tail(%q, %d) produced invalid UTF-8", tt.in, tt.n)
			}
			if utf8.RuneCountInString(got) > tt.n {
				t.Errorf("tail(%q, %d) has %d runes", tt.in, tt.n, utf8.RuneCountInString(got))
			}
		})
	}
}
