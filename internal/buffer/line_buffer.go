package buffer

import (
	"sync"
)

// LineBuffer is a circular buffer of whole output lines. It retains
// the last N lines appended to it, giving a session a tail-biased view
// of its program's stdout with O(1) appends and bounded memory.
//
// When full, the oldest line is overwritten; evicted lines are
// irrecoverable. This is deliberate backpressure: a student watching a
// runaway program needs the recent tail, not the full history, and the
// grader captures full stdout separately at child exit.
//
// Thread-safe: all operations are protected by a RWMutex. Unlike a
// byte-oriented scrollback buffer there is no reader subscription —
// the session supervisor polls, it does not stream.
type LineBuffer struct {
	lines []string // The underlying circular buffer
	size  int      // Capacity in lines
	w     int      // Write position (0 to size-1)
	full  bool     // Whether we've wrapped around at least once
	mu    sync.RWMutex
}

// NewLineBuffer creates a line buffer retaining the last size lines.
func NewLineBuffer(size int) *LineBuffer {
	return &LineBuffer{
		lines: make([]string, size),
		size:  size,
	}
}

// Append adds one line, overwriting the oldest when full.
func (lb *LineBuffer) Append(line string) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines[lb.w] = line
	lb.w++
	if lb.w >= lb.size {
		lb.w = 0
		lb.full = true
	}
}

// Lines returns a copy of the buffered lines in append order, oldest
// first. Safe for concurrent use with Append.
func (lb *LineBuffer) Lines() []string {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	if !lb.full {
		return append([]string{}, lb.lines[:lb.w]...)
	}

	// Wrapped: data from w to end is oldest, start to w is newest.
	out := make([]string, 0, lb.size)
	out = append(out, lb.lines[lb.w:]...)
	out = append(out, lb.lines[:lb.w]...)
	return out
}

// Last returns the most recently appended line. ok is false when the
// buffer is empty.
func (lb *LineBuffer) Last() (line string, ok bool) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	if lb.w == 0 {
		if !lb.full {
			return "", false
		}
		return lb.lines[lb.size-1], true
	}
	return lb.lines[lb.w-1], true
}

// Len returns the number of lines currently stored.
func (lb *LineBuffer) Len() int {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	if !lb.full {
		return lb.w
	}
	return lb.size
}

// Cap returns the buffer's capacity in lines.
func (lb *LineBuffer) Cap() int {
	return lb.size
}

// Clear resets the buffer to its initial empty state.
func (lb *LineBuffer) Clear() {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.w = 0
	lb.full = false
}
