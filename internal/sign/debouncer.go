package sign

// DefaultThreshold is the minimum confidence for a prediction to enter the window.
const DefaultThreshold = 0.75

// DefaultDeleteToken is the label that removes the last token.
const DefaultDeleteToken = "Backspace"

// EditKind names the sentence mutation a flush produced.
type EditKind string

const (
	// EditNone means the flush repeated the last stable label.
	EditNone EditKind = "none"
	// EditAppend means the stable label was appended.
	EditAppend EditKind = "append"
	// EditDelete means the delete token removed the last token (or did
	// nothing on an empty sentence).
	EditDelete EditKind = "delete"
)

// Edit describes the outcome of a window flush.
type Edit struct {
	Kind  EditKind
	Label string // Majority label of the flushed window
}

// Config holds debouncer tuning.
type Config struct {
	Threshold   float64
	WindowSize  int
	DeleteToken string
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		Threshold:   DefaultThreshold,
		WindowSize:  DefaultWindowSize,
		DeleteToken: DefaultDeleteToken,
	}
}

// Debouncer converts per-frame observations into sentence edits.
//
// Accepted observations (confidence >= threshold) are buffered in a
// window. When the window flushes, its majority label m becomes the new
// stable label unless it equals the current one, in which case nothing
// changes. A held sign therefore produces a single token; repeating a
// sign needs a different stable label in between.
//
// Debouncer is not safe for concurrent use; callers serialize access.
type Debouncer struct {
	config     Config
	window     *Window
	lastStable string
	sentence   Sentence
}

// NewDebouncer creates a Debouncer. Zero config fields take defaults.
func NewDebouncer(config Config) *Debouncer {
	if config.Threshold <= 0 {
		config.Threshold = DefaultThreshold
	}
	if config.WindowSize <= 0 {
		config.WindowSize = DefaultWindowSize
	}
	if config.DeleteToken == "" {
		config.DeleteToken = DefaultDeleteToken
	}

	return &Debouncer{
		config: config,
		window: NewWindow(config.WindowSize),
	}
}

// Observe feeds one prediction. It returns the resulting edit and true
// when the observation caused a window flush.
func (d *Debouncer) Observe(label string, confidence float64) (Edit, bool) {
	if confidence < d.config.Threshold {
		return Edit{}, false
	}

	m, flushed := d.window.Add(label)
	if !flushed {
		return Edit{}, false
	}

	if m == d.lastStable {
		return Edit{Kind: EditNone, Label: m}, true
	}

	d.lastStable = m
	if m == d.config.DeleteToken {
		d.sentence.RemoveLast()
		return Edit{Kind: EditDelete, Label: m}, true
	}

	d.sentence.Append(m)
	return Edit{Kind: EditAppend, Label: m}, true
}

// LastStable returns the most recent majority label.
func (d *Debouncer) LastStable() string {
	return d.lastStable
}

// Sentence returns the current sentence joined with spaces.
func (d *Debouncer) Sentence() string {
	return d.sentence.String()
}

// Tokens returns a copy of the sentence tokens.
func (d *Debouncer) Tokens() []string {
	return d.sentence.Tokens()
}

// Pending returns the number of buffered labels awaiting a flush.
func (d *Debouncer) Pending() int {
	return d.window.Len()
}

// Reset clears the sentence and the stable label. Buffered window labels
// are kept so a sign in progress is not lost.
func (d *Debouncer) Reset() {
	d.sentence.Clear()
	d.lastStable = ""
}
