package emu

import "sync"

// AudioBuffer is a lock-protected ring buffer of 16-bit stereo samples.
// The emulation thread pushes each frame's samples; the host's audio
// callback pulls from its own thread. Overflow drops the oldest samples,
// underflow pads with silence, so neither side ever blocks for long.
type AudioBuffer struct {
	mu        sync.Mutex
	buffer    []int16
	writePos  int
	readPos   int
	available int
}

// NewAudioBuffer creates a ring buffer holding the given number of
// stereo sample pairs.
func NewAudioBuffer(pairs int) *AudioBuffer {
	return &AudioBuffer{
		buffer: make([]int16, pairs*2),
	}
}

// Push appends samples, overwriting the oldest ones when full.
func (a *AudioBuffer) Push(samples []int16) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range samples {
		a.buffer[a.writePos] = s
		a.writePos = (a.writePos + 1) % len(a.buffer)
		if a.available < len(a.buffer) {
			a.available++
		} else {
			a.readPos = (a.readPos + 1) % len(a.buffer)
		}
	}
}

// Pull fills out with buffered samples, padding with silence on
// underflow. Returns how many real samples were copied.
func (a *AudioBuffer) Pull(out []int16) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for ; n < len(out) && a.available > 0; n++ {
		out[n] = a.buffer[a.readPos]
		a.readPos = (a.readPos + 1) % len(a.buffer)
		a.available--
	}
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
	return n
}

// Available returns the number of buffered samples.
func (a *AudioBuffer) Available() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.available
}
