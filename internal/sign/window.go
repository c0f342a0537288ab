// Package sign turns noisy per-frame sign predictions into an edited
// sentence: a majority-vote window feeds a debouncer that appends or
// deletes sentence tokens.
package sign

// DefaultWindowSize is the number of accepted labels a window holds
// before the next one triggers a flush.
const DefaultWindowSize = 10

// Window is a bounded majority-vote buffer of accepted labels.
// It is not safe for concurrent use.
type Window struct {
	labels   []string
	capacity int
}

// NewWindow creates a window that flushes once it holds more than
// capacity labels. Values <= 0 use DefaultWindowSize.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &Window{
		labels:   make([]string, 0, capacity+1),
		capacity: capacity,
	}
}

// Add appends label. When the window then holds more than its capacity it
// is flushed: the majority label is returned with flushed=true and the
// window is left empty.
func (w *Window) Add(label string) (majority string, flushed bool) {
	w.labels = append(w.labels, label)
	if len(w.labels) <= w.capacity {
		return "", false
	}

	majority = Majority(w.labels)
	w.labels = w.labels[:0]
	return majority, true
}

// Len returns the number of labels currently buffered.
func (w *Window) Len() int {
	return len(w.labels)
}

// Capacity returns the flush capacity.
func (w *Window) Capacity() int {
	return w.capacity
}

// Clear drops all buffered labels.
func (w *Window) Clear() {
	w.labels = w.labels[:0]
}

// Majority returns the most frequent label. Among labels with equal
// counts the one seen first in labels wins. Returns "" for no labels.
func Majority(labels []string) string {
	counts := make(map[string]int, len(labels))
	order := make([]string, 0, len(labels))

	for _, l := range labels {
		if counts[l] == 0 {
			order = append(order, l)
		}
		counts[l]++
	}

	best := ""
	bestCount := 0
	for _, l := range order {
		if counts[l] > bestCount {
			best = l
			bestCount = counts[l]
		}
	}

	return best
}
