// Package stream delivers the latest annotated frame to any number of
// MJPEG viewers without slowing the producer.
package stream

import (
	"context"
	"sync"
)

// Cell holds the most recent encoded frame. One goroutine publishes;
// any number of readers wait for newer frames independently.
type Cell struct {
	mu     sync.RWMutex
	frame  []byte
	seq    uint64
	notify chan struct{}
}

// NewCell creates an empty cell.
func NewCell() *Cell {
	return &Cell{notify: make(chan struct{})}
}

// Publish replaces the latest frame and wakes every waiting reader.
// The slice must not be modified after it is published.
func (c *Cell) Publish(frame []byte) {
	c.mu.Lock()
	c.frame = frame
	c.seq++
	close(c.notify)
	c.notify = make(chan struct{})
	c.mu.Unlock()
}

// Latest returns the current frame and its sequence number.
// seq is 0 until the first Publish.
func (c *Cell) Latest() ([]byte, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frame, c.seq
}

// Changed returns a channel that is closed once a frame newer than seq
// is available. The channel is already closed if one is.
func (c *Cell) Changed(seq uint64) <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.seq != seq {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.notify
}

// Next blocks until a frame newer than seq is published or ctx is done.
func (c *Cell) Next(ctx context.Context, seq uint64) ([]byte, uint64, error) {
	select {
	case <-c.Changed(seq):
		frame, next := c.Latest()
		return frame, next, nil
	case <-ctx.Done():
		return nil, seq, ctx.Err()
	}
}
