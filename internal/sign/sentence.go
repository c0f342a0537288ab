package sign

import "strings"

// Sentence is the ordered list of recognized tokens.
type Sentence struct {
	tokens []string
}

// Append adds token to the end of the sentence.
func (s *Sentence) Append(token string) {
	s.tokens = append(s.tokens, token)
}

// RemoveLast drops the last token. It is a no-op on an empty sentence and
// reports whether a token was removed.
func (s *Sentence) RemoveLast() bool {
	if len(s.tokens) == 0 {
		return false
	}
	s.tokens = s.tokens[:len(s.tokens)-1]
	return true
}

// Clear empties the sentence.
func (s *Sentence) Clear() {
	s.tokens = nil
}

// Len returns the number of tokens.
func (s *Sentence) Len() int {
	return len(s.tokens)
}

// Tokens returns a copy of the tokens.
func (s *Sentence) Tokens() []string {
	out := make([]string, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// String joins the tokens with single spaces.
func (s *Sentence) String() string {
	return strings.Join(s.tokens, " ")
}
