// Package miditest provides an in-memory MIDI port for tests.
package miditest

import "sync"

// Loopback is a port whose written bytes become readable, in order.
// Every Write is also recorded so tests can check how output was batched.
// Read never blocks.
type Loopback struct {
	mu     sync.Mutex
	buf    []byte
	writes [][]byte

	// MaxRead, when positive, caps the bytes returned by one Read to
	// simulate a slow transport.
	MaxRead int
}

func NewLoopback() *Loopback {
	return &Loopback{}
}

func (l *Loopback) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.writes = append(l.writes, append([]byte(nil), p...))
	l.buf = append(l.buf, p...)
	return len(p), nil
}

func (l *Loopback) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.MaxRead > 0 && len(p) > l.MaxRead {
		p = p[:l.MaxRead]
	}
	n := copy(p, l.buf)
	l.buf = l.buf[n:]
	return n, nil
}

// Inject makes b readable without recording a write, as if a device sent it.
func (l *Loopback) Inject(b ...byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf = append(l.buf, b...)
}

// Writes returns a copy of every buffer passed to Write.
func (l *Loopback) Writes() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([][]byte, len(l.writes))
	copy(out, l.writes)
	return out
}

// Len is the number of unread bytes.
func (l *Loopback) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.buf)
}
