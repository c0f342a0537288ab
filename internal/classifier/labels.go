package classifier

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DeleteLabel is the reserved label that removes the last sentence token.
const DeleteLabel = "Backspace"

// Labels is the ordered label set of the sign model; index i names score i.
type Labels []string

// DefaultLabels returns the label set the bundled model was trained on.
func DefaultLabels() Labels {
	return Labels{
		"Again", DeleteLabel, "Boring", "Boy", "Deaf", "Doubt", "Girl", "Have", "Hello", "How", "I",
		"I Love You", "Sad", "Thanks", "You", "Yes", "No", "Help", "More", "Need",
	}
}

// LoadLabels reads a labels file with one "<index> <label>" entry per line,
// the format Teachable Machine exports alongside keras models.
// Lines without a leading index are taken in file order.
func LoadLabels(path string) (Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()

	var labels Labels
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		idx, rest, ok := strings.Cut(line, " ")
		if n, err := strconv.Atoi(idx); ok && err == nil {
			if n != len(labels) {
				return nil, fmt.Errorf("labels out of order: index %d at line %d", n, len(labels)+1)
			}
			line = strings.TrimSpace(rest)
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}

	return labels, nil
}

// Best returns the prediction for the highest score.
// The first index wins ties. ok is false when scores is empty or its
// length does not match the label set.
func (l Labels) Best(scores []float64) (Prediction, bool) {
	if len(scores) == 0 || len(scores) != len(l) {
		return Prediction{}, false
	}

	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}

	return Prediction{Label: l[best], Confidence: scores[best]}, true
}
