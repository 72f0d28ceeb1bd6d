// Package serialport exposes a serial device as a non-blocking MIDI port.
package serialport

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"
	"go.uber.org/zap"
)

const (
	// DefaultBaud suits USB serial bridges. DIN MIDI runs at 31250, which
	// needs a device whose driver maps a standard rate to it.
	DefaultBaud = 115200

	// DefaultBufSize bounds the bytes queued between the device and Read.
	DefaultBufSize = 4096

	// readTimeout is the shortest timeout the terminal driver supports. It
	// only paces the reader goroutine and bounds how long Close waits for it.
	readTimeout = 100 * time.Millisecond

	readChunk = 256
)

// ErrClosed is returned by Read once the port is closed and drained.
var ErrClosed = errors.New("serial port closed")

var portLog = zap.NewNop()

func EnableDebugLogging(l *zap.Logger) {
	portLog = l.Named("serialport")
}

type device interface {
	io.ReadWriteCloser
	Flush() error
}

// Port is a serial MIDI port. A goroutine reads the device into a bounded
// queue, so Read never waits on the line and returns (0, nil) when nothing
// has arrived. When the queue is full whole chunks from the device are
// dropped and counted.
type Port struct {
	name string
	dev  device
	done chan struct{}

	mu      sync.Mutex
	buf     []byte
	max     int
	dropped int
	err     error
	closing bool
}

// Open opens the named serial device, e.g. /dev/ttyUSB0 or COM3.
// A baud of 0 selects DefaultBaud.
func Open(name string, baud int) (*Port, error) {
	if baud == 0 {
		baud = DefaultBaud
	}

	dev, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: readTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}

	portLog.Debug("open", zap.String("name", name), zap.Int("baud", baud))
	return newPort(name, dev, DefaultBufSize)
}

func newPort(name string, dev device, bufSize int) (*Port, error) {
	// stale input from before we opened is not a stream we can resync on
	if err := dev.Flush(); err != nil {
		dev.Close()
		return nil, fmt.Errorf("flush serial port %s: %w", name, err)
	}

	p := &Port{
		name: name,
		dev:  dev,
		done: make(chan struct{}),
		buf:  make([]byte, 0, bufSize),
		max:  bufSize,
	}
	go p.readLoop()
	return p, nil
}

func (p *Port) readLoop() {
	defer close(p.done)

	chunk := make([]byte, readChunk)
	for {
		n, err := p.dev.Read(chunk)
		if n > 0 {
			p.enqueue(chunk[:n])
		}
		if err == nil || err == io.EOF {
			continue
		}

		p.mu.Lock()
		if p.closing {
			p.err = ErrClosed
		} else {
			p.err = fmt.Errorf("read serial port %s: %w", p.name, err)
			portLog.Debug("read", zap.String("name", p.name), zap.Error(err))
		}
		p.mu.Unlock()
		return
	}
}

func (p *Port) enqueue(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.buf)+len(b) > p.max {
		p.dropped++
		portLog.Debug("queue full", zap.String("name", p.name), zap.Int("len", len(b)))
		return
	}
	p.buf = append(p.buf, b...)
}

// Read drains queued bytes. A device error is reported once the bytes read
// before it have been drained.
func (p *Port) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := copy(b, p.buf)
	p.buf = p.buf[:copy(p.buf, p.buf[n:])]
	if n == 0 && p.err != nil {
		return 0, p.err
	}
	return n, nil
}

// Dropped is the number of device reads discarded because the queue was full.
func (p *Port) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.dropped
}

func (p *Port) Write(b []byte) (int, error) {
	n, err := p.dev.Write(b)
	if err != nil {
		portLog.Debug("write", zap.String("name", p.name), zap.Error(err))
	}
	return n, err
}

// Close closes the device and waits for the reader goroutine, which takes at
// most one read timeout.
func (p *Port) Close() error {
	portLog.Debug("close", zap.String("name", p.name))

	p.mu.Lock()
	p.closing = true
	p.mu.Unlock()

	err := p.dev.Close()
	<-p.done
	return err
}

func (p *Port) String() string {
	return p.name
}
