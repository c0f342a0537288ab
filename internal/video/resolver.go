// Package video turns a gloss sentence into one sign-language video by
// normalizing and concatenating per-word clips from a clip library.
package video

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ClipExt is the file extension of library clips.
const ClipExt = ".mp4"

// ErrClipNotFound is returned when a token has no clip in the library.
var ErrClipNotFound = errors.New("clip not found")

// Resolver maps gloss tokens to clip files in a library directory.
type Resolver struct {
	dir string
}

// NewResolver creates a Resolver over dir.
func NewResolver(dir string) *Resolver {
	return &Resolver{dir: dir}
}

// Dir returns the library directory.
func (r *Resolver) Dir() string {
	return r.dir
}

// Resolve returns the path of <dir>/<token>.mp4. Tokens that could
// escape the library directory never resolve.
func (r *Resolver) Resolve(token string) (string, error) {
	if !ValidToken(token) {
		return "", fmt.Errorf("%w: invalid token %q", ErrClipNotFound, token)
	}

	path := filepath.Join(r.dir, token+ClipExt)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrClipNotFound, token)
	}

	return path, nil
}

// ValidToken reports whether token is safe to use as a file name.
func ValidToken(token string) bool {
	if token == "" || token == "." || strings.Contains(token, "..") {
		return false
	}
	return !strings.ContainsAny(token, "/\\\x00")
}

// Tokens splits a gloss sentence on whitespace.
func Tokens(sentence string) []string {
	return strings.Fields(sentence)
}
