// Package gomidiport adapts operating system MIDI ports, as exposed by the
// gomidi driver interfaces, to the byte stream ports used by midi.Session.
//
// A driver must be registered by the program, for example by importing
// gitlab.com/gomidi/midi/v2/drivers/rtmididrv.
package gomidiport

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/zap"
)

// DefaultBufSize bounds the bytes queued between driver callbacks and Read.
const DefaultBufSize = 4096

var portLog = zap.NewNop()

func EnableDebugLogging(l *zap.Logger) {
	portLog = l.Named("gomidiport")
}

// In queues bytes delivered by the driver's listener until Read drains them.
// Read never blocks. When the queue is full incoming messages are dropped
// whole so the stream stays aligned on message boundaries.
type In struct {
	port drivers.In
	stop func()

	mu      sync.Mutex
	buf     []byte
	max     int
	dropped int
}

// OpenIn opens port if needed and starts listening. A bufSize of 0 selects DefaultBufSize.
func OpenIn(port drivers.In, bufSize int) (*In, error) {
	if bufSize <= 0 {
		bufSize = DefaultBufSize
	}

	if !port.IsOpen() {
		if err := port.Open(); err != nil {
			return nil, fmt.Errorf("open in port %s: %w", port, err)
		}
	}

	in := &In{
		port: port,
		buf:  make([]byte, 0, bufSize),
		max:  bufSize,
	}

	stop, err := port.Listen(in.onMessage, drivers.ListenConfig{
		SysEx:       true,
		ActiveSense: true,
		TimeCode:    true,
	})
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("listen on %s: %w", port, err)
	}
	in.stop = stop

	portLog.Debug("open in", zap.String("port", port.String()))
	return in, nil
}

// FindIn opens the input port with the given name.
func FindIn(name string, bufSize int) (*In, error) {
	port, err := gomidi.FindInPort(name)
	if err != nil {
		return nil, fmt.Errorf("find in port %q: %w", name, err)
	}
	return OpenIn(port, bufSize)
}

func (in *In) onMessage(msg []byte, _ int32) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if len(in.buf)+len(msg) > in.max {
		in.dropped++
		portLog.Debug("queue full", zap.String("port", in.port.String()), zap.Int("len", len(msg)))
		return
	}
	in.buf = append(in.buf, msg...)
}

func (in *In) Read(p []byte) (int, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	n := copy(p, in.buf)
	in.buf = in.buf[:copy(in.buf, in.buf[n:])]
	return n, nil
}

// Dropped is the number of messages discarded because the queue was full.
func (in *In) Dropped() int {
	in.mu.Lock()
	defer in.mu.Unlock()

	return in.dropped
}

func (in *In) Close() error {
	in.stop()
	return in.port.Close()
}

func (in *In) String() string {
	return in.port.String()
}

// Out hands every Write to the driver as one send.
type Out struct {
	port drivers.Out
}

func OpenOut(port drivers.Out) (*Out, error) {
	if !port.IsOpen() {
		if err := port.Open(); err != nil {
			return nil, fmt.Errorf("open out port %s: %w", port, err)
		}
	}

	portLog.Debug("open out", zap.String("port", port.String()))
	return &Out{port: port}, nil
}

// FindOut opens the output port with the given name.
func FindOut(name string) (*Out, error) {
	port, err := gomidi.FindOutPort(name)
	if err != nil {
		return nil, fmt.Errorf("find out port %q: %w", name, err)
	}
	return OpenOut(port)
}

func (o *Out) Write(p []byte) (int, error) {
	if err := o.port.Send(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (o *Out) Close() error {
	return o.port.Close()
}

func (o *Out) String() string {
	return o.port.String()
}
