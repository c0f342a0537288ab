package capture

import (
	"time"

	"gocv.io/x/gocv"
)

type readResult struct {
	frame *gocv.Mat
	err   error
}

// Reader reads frames from a Camera with a deadline while keeping at
// most one device read in flight. A read that outlives its deadline stays
// pending and is collected by the next Read instead of starting another.
//
// Reader is not safe for concurrent use; the classification loop owns it.
type Reader struct {
	cam     Camera
	pending chan readResult
}

// NewReader creates a Reader for cam.
func NewReader(cam Camera) *Reader {
	return &Reader{cam: cam}
}

// Pending reports whether a device read is still outstanding.
func (r *Reader) Pending() bool {
	return r.pending != nil
}

// Read returns the next frame or ErrReadTimeout after timeout. The caller
// owns the returned Mat.
func (r *Reader) Read(timeout time.Duration) (*gocv.Mat, error) {
	if r.pending == nil {
		ch := make(chan readResult, 1)
		go func() {
			frame, err := r.cam.ReadFrame()
			ch <- readResult{frame: frame, err: err}
		}()
		r.pending = ch
	}

	if timeout <= 0 {
		res := <-r.pending
		r.pending = nil
		return res.frame, res.err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-r.pending:
		r.pending = nil
		return res.frame, res.err
	case <-timer.C:
		return nil, ErrReadTimeout
	}
}

// Abandon drops an outstanding read. Its frame, if one ever arrives, is
// closed in the background.
func (r *Reader) Abandon() {
	ch := r.pending
	if ch == nil {
		return
	}
	r.pending = nil
	go func() {
		if res := <-ch; res.frame != nil {
			res.frame.Close()
		}
	}()
}
