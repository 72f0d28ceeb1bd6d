package midi

import (
	"io"

	"go.uber.org/zap"
)

const (
	// DefaultInBufSize is the most bytes taken from the input port per read.
	DefaultInBufSize = 30
	// DefaultSysExMaxLength bounds the System Exclusive payload kept by the decoder.
	DefaultSysExMaxLength = 128
)

// OverflowPolicy decides what happens to a System Exclusive message whose
// payload is longer than the configured maximum.
type OverflowPolicy int

const (
	// OverflowTruncate keeps the first bytes and delivers the message at 0xF7.
	OverflowTruncate OverflowPolicy = iota
	// OverflowDrop discards the whole message.
	OverflowDrop
)

func (p OverflowPolicy) String() string {
	switch p {
	case OverflowTruncate:
		return "truncate"
	case OverflowDrop:
		return "drop"
	}
	return "unknown"
}

type config struct {
	out        io.Writer
	in         io.Reader
	outChannel int
	inChannels ChannelMask

	inBufSize      int
	sysExMaxLength int
	overflow       OverflowPolicy
	runningStatus  bool

	logger *zap.Logger
	err    error
}

func newConfig(opts []Option) *config {
	c := &config{
		inChannels:     AllChannels,
		inBufSize:      DefaultInBufSize,
		sysExMaxLength: DefaultSysExMaxLength,
		overflow:       OverflowTruncate,
		runningStatus:  true,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Option configures a Session or a Decoder.
type Option func(c *config)

// WithOut sets the output port.
func WithOut(w io.Writer) Option {
	return func(c *config) {
		c.out = w
	}
}

// WithIn sets the input port. Its Read must return immediately when no data
// is pending, with 0 bytes and either a nil error or io.EOF.
func WithIn(r io.Reader) Option {
	return func(c *config) {
		c.in = r
	}
}

// WithOutChannel sets the default channel used by Send.
func WithOutChannel(channel int) Option {
	return func(c *config) {
		if err := checkRange("out channel", channel, numChannels-1); err != nil && c.err == nil {
			c.err = err
		}
		c.outChannel = channel
	}
}

// WithInChannels restricts decoded channel-voice messages to the given channels.
// Without arguments every channel is accepted.
func WithInChannels(channels ...int) Option {
	return func(c *config) {
		m, err := Channels(channels...)
		if err != nil && c.err == nil {
			c.err = err
		}
		c.inChannels = m
	}
}

func WithInBufSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.inBufSize = n
		}
	}
}

func WithSysExMaxLength(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.sysExMaxLength = n
		}
	}
}

func WithOverflowPolicy(p OverflowPolicy) Option {
	return func(c *config) {
		c.overflow = p
	}
}

// WithRunningStatus turns decoding of data bytes under the last
// channel-voice status on or off. It is on by default.
func WithRunningStatus(enabled bool) Option {
	return func(c *config) {
		c.runningStatus = enabled
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}
