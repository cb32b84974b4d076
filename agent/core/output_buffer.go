package core

import (
	"fmt"
	"strings"
	"sync"
)

const truncationMarker = "…(truncated)\n"

// OutputBuffer is a line-oriented, size-capped buffer. When the cap is
// exceeded the oldest bytes are dropped and a marker is kept at the front.
type OutputBuffer struct {
	mu        sync.Mutex
	max       int
	b         []byte
	truncated bool
}

func NewOutputBuffer(maxBytes int) *OutputBuffer {
	if maxBytes < 0 {
		maxBytes = 0
	}
	return &OutputBuffer{max: maxBytes}
}

func (o *OutputBuffer) AppendString(s string) {
	if o == nil || s == "" {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.max <= 0 {
		return
	}

	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	o.b = append(o.b, s...)

	if len(o.b) > o.max {
		o.b = append(o.b[:0], o.b[len(o.b)-o.max:]...)
		o.truncated = true
	}
}

func (o *OutputBuffer) Appendf(format string, args ...any) {
	o.AppendString(fmt.Sprintf(format, args...))
}

func (o *OutputBuffer) String() string {
	if o == nil {
		return ""
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.truncated {
		return truncationMarker + string(o.b)
	}
	return string(o.b)
}

func (o *OutputBuffer) Len() int {
	if o == nil {
		return 0
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.b)
}

func (o *OutputBuffer) Reset() {
	if o == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.b = o.b[:0]
	o.truncated = false
}

// Write lets the buffer stand in for an io.Writer.
func (o *OutputBuffer) Write(p []byte) (int, error) {
	o.AppendString(string(p))
	return len(p), nil
}
