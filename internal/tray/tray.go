// Package tray provides a system tray menu for controlling recognition.
package tray

import (
	"context"
	"sync"
	"unicode/utf8"

	"github.com/getlantern/systray"

	"github.com/ayusman/signbridge/internal/session"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle func(running bool)
	onReset  func()
	onOpen   func()
	onQuit   func()
	running  bool
	quit     func()
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle   *systray.MenuItem
	menuLastSign *systray.MenuItem
	menuSentence *systray.MenuItem
}

// New creates a new Tray with recognition stopped.
func New() *Tray {
	return &Tray{quit: systray.Quit}
}

// OnToggle sets the callback invoked when the camera item is clicked.
// It receives the requested running state.
func (t *Tray) OnToggle(fn func(running bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnReset sets the callback invoked when the reset item is clicked.
func (t *Tray) OnReset(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReset = fn
}

// OnOpen sets the callback invoked when the browser item is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback invoked when the quit item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit stops the tray so Run returns. It is safe to call from any
// goroutine.
func (t *Tray) Quit() {
	t.quit()
}

// QuitOnDone runs cleanup and then quits the tray once ctx is done, so a
// signal-driven shutdown also ends Run.
func (t *Tray) QuitOnDone(ctx context.Context, cleanup func()) {
	go func() {
		<-ctx.Done()
		if cleanup != nil {
			cleanup()
		}
		t.Quit()
	}()
}

// HandleChange mirrors a session change into the menu. Register it with
// session.State.OnChange.
func (t *Tray) HandleChange(c session.Change) {
	t.mu.Lock()
	t.running = c.Snapshot.Running
	t.mu.Unlock()

	t.SetRunning(c.Snapshot.Running)
	t.SetLastSign(c.Snapshot.Sign)
	t.setSentence(c.Snapshot.Sentence)
}

func (t *Tray) onReady() {
	systray.SetTitle("SignBridge")
	systray.SetTooltip("SignBridge sign recognition")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.running), "Start or stop the camera")
	systray.AddSeparator()

	t.menuLastSign = systray.AddMenuItem("Sign: none", "Last stable sign")
	t.menuLastSign.Disable()
	t.menuSentence = systray.AddMenuItem("Sentence: (empty)", "Current sentence")
	t.menuSentence.Disable()
	t.mu.Unlock()

	menuReset := systray.AddMenuItem("Reset sentence", "Clear the sentence")
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open in browser...", "Open the web interface")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit SignBridge")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuReset.ClickedCh:
				t.call(func() func() { return t.onReset })
			case <-menuOpen.ClickedCh:
				t.call(func() func() { return t.onOpen })
			case <-menuQuit.ClickedCh:
				t.call(func() func() { return t.onQuit })
				t.Quit()
				return
			}
		}
	}()
}

// handleToggle asks for the opposite of the current state. The menu is
// updated when the session reports the change.
func (t *Tray) handleToggle() {
	want := !t.IsRunning()

	t.mu.RLock()
	callback := t.onToggle
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(want)
	}
}

func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	callback := get()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// SetRunning updates the camera item title.
func (t *Tray) SetRunning(running bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(running))
	}
}

// SetLastSign updates the last sign display in the menu.
func (t *Tray) SetLastSign(name string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLastSign != nil {
		if name == "" {
			t.menuLastSign.SetTitle("Sign: none")
		} else {
			t.menuLastSign.SetTitle("Sign: " + name)
		}
	}
}

func (t *Tray) setSentence(s string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuSentence == nil {
		return
	}
	if s == "" {
		s = "(empty)"
	} else {
		s = tail(s, maxSentenceRunes)
	}
	t.menuSentence.SetTitle("Sentence: " + s)
}

// IsRunning returns the last running state the tray saw.
func (t *Tray) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

// maxSentenceRunes bounds the sentence shown in the menu.
const maxSentenceRunes = 40

// tail keeps the last n runes of s, marking a cut with a leading "...".
func tail(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return "..." + string(r[len(r)-(n-3):])
}

func toggleTitle(running bool) string {
	if running {
		return "● Camera on"
	}
	return "○ Camera off"
}
