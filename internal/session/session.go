// Package session holds the process-wide recognition session: the
// sentence being built, the last stable sign, the running flag and the
// last answer text. Every field is guarded by one mutex.
package session

import (
	"sync"

	"github.com/ayusman/signbridge/internal/sign"
)

// Snapshot is a consistent copy of the session taken under the lock.
type Snapshot struct {
	Sign     string   `json:"sign"`
	Sentence string   `json:"sentence"`
	Tokens   []string `json:"tokens"`
	Answer   string   `json:"chatbot_response"`
	Running  bool     `json:"running"`
}

// ChangeReason names what caused a Change.
type ChangeReason string

const (
	ReasonEdit    ChangeReason = "edit"
	ReasonReset   ChangeReason = "reset"
	ReasonAnswer  ChangeReason = "answer"
	ReasonRunning ChangeReason = "running"
)

// Change is delivered to listeners after every mutation.
type Change struct {
	Reason   ChangeReason `json:"reason"`
	Edit     sign.Edit    `json:"-"`
	Snapshot Snapshot     `json:"snapshot"`
}

// State is the shared session. The zero value is not usable; call New.
type State struct {
	mu        sync.Mutex
	debouncer *sign.Debouncer
	running   bool
	answer    string
	listeners []func(Change)
}

// New creates an empty session using the given debounce settings.
func New(config sign.Config) *State {
	return &State{
		debouncer: sign.NewDebouncer(config),
	}
}

// OnChange registers fn to be called after each mutation. Listeners run
// outside the lock on the mutating goroutine and must not block.
func (s *State) OnChange(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Observe feeds one prediction into the debouncer. It returns the edit
// and true when the observation flushed the vote window.
func (s *State) Observe(label string, confidence float64) (sign.Edit, bool) {
	s.mu.Lock()
	edit, flushed := s.debouncer.Observe(label, confidence)
	if !flushed || edit.Kind == sign.EditNone {
		s.mu.Unlock()
		return edit, flushed
	}
	change := Change{Reason: ReasonEdit, Edit: edit, Snapshot: s.snapshotLocked()}
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, change)
	return edit, flushed
}

// Snapshot returns a copy of the current session.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// LastStable returns the most recent stable sign.
func (s *State) LastStable() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debouncer.LastStable()
}

// Reset clears the sentence, stable sign and answer. Running is untouched.
func (s *State) Reset() {
	s.mu.Lock()
	s.debouncer.Reset()
	s.answer = ""
	change := Change{Reason: ReasonReset, Snapshot: s.snapshotLocked()}
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, change)
}

// SetAnswer stores text verbatim as the last answer.
func (s *State) SetAnswer(text string) {
	s.mu.Lock()
	s.answer = text
	change := Change{Reason: ReasonAnswer, Snapshot: s.snapshotLocked()}
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, change)
}

// Running reports whether the classification loop should be running.
func (s *State) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetRunning sets the running flag and reports whether it changed.
func (s *State) SetRunning(running bool) bool {
	s.mu.Lock()
	if s.running == running {
		s.mu.Unlock()
		return false
	}
	s.running = running
	change := Change{Reason: ReasonRunning, Snapshot: s.snapshotLocked()}
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, change)
	return true
}

func (s *State) snapshotLocked() Snapshot {
	return Snapshot{
		Sign:     s.debouncer.LastStable(),
		Sentence: s.debouncer.Sentence(),
		Tokens:   s.debouncer.Tokens(),
		Answer:   s.answer,
		Running:  s.running,
	}
}

func notify(listeners []func(Change), change Change) {
	for _, fn := range listeners {
		fn(change)
	}
}
