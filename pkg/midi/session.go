package midi

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

var (
	// ErrNoOutPort is returned by Send when the session has no output port.
	ErrNoOutPort = errors.New("no output port")
	// ErrNoInPort is returned by ReadInPort when the session has no input port.
	ErrNoInPort = errors.New("no input port")
)

// Session binds an output port, an optional input port and their channel
// configuration. Like the ports it owns, a Session is meant for a single
// goroutine polling it.
type Session struct {
	out        io.Writer
	outChannel int
	dec        *Decoder
	buf        []byte
	log        *zap.Logger
}

func NewSession(opts ...Option) (*Session, error) {
	c := newConfig(opts)
	if c.err != nil {
		return nil, c.err
	}

	log := sessionLog
	if c.logger != nil {
		log = c.logger.Named("session")
	}

	s := &Session{
		out:        c.out,
		outChannel: c.outChannel,
		log:        log,
	}
	if c.in != nil {
		s.dec = newDecoder(c.in, c)
	}
	return s, nil
}

// Send writes msgs on the default output channel. See SendOn.
func (s *Session) Send(msgs ...Message) error {
	return s.SendOn(s.outChannel, msgs...)
}

// SendOn encodes msgs for channel and hands them to the output port in a
// single Write. If any message is invalid nothing is written.
func (s *Session) SendOn(channel int, msgs ...Message) error {
	if s.out == nil {
		return ErrNoOutPort
	}

	buf, err := AppendEncode(s.buf[:0], channel, msgs...)
	if err != nil {
		return err
	}
	s.buf = buf
	if len(buf) == 0 {
		return nil
	}

	n, err := s.out.Write(buf)
	if err != nil {
		return fmt.Errorf("write out port: %w", err)
	}
	if n != len(buf) {
		return io.ErrShortWrite
	}

	s.log.Debug("sent", zap.Int("channel", channel), zap.Int("messages", len(msgs)), zap.Binary("bytes", buf))
	return nil
}

// ReadInPort polls the input port once and returns the next message that
// passes the input channel filter. It never blocks; (nil, NoChannel, nil)
// means nothing is ready yet.
func (s *Session) ReadInPort() (Message, int, error) {
	if s.dec == nil {
		return nil, NoChannel, ErrNoInPort
	}

	msg, channel, err := s.dec.Decode()
	if msg != nil {
		s.log.Debug("received", zap.Stringer("message", msg), zap.Int("channel", channel))
	}
	return msg, channel, err
}

func (s *Session) OutChannel() int {
	return s.outChannel
}

// Stats returns the input decoder counters, zero without an input port.
func (s *Session) Stats() Stats {
	if s.dec == nil {
		return Stats{}
	}
	return s.dec.Stats()
}
