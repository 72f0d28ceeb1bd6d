package midi

import (
	"fmt"
	"io"

	"go.uber.org/zap"
)

// sysExInitCap is the starting capacity of the System Exclusive buffer. It
// grows on demand up to the configured maximum.
const sysExInitCap = 32

type parserState int

const (
	stateIdle parserState = iota + 1
	stateCollecting
	stateSysEx
	stateRecovery
)

func (s parserState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateCollecting:
		return "collecting"
	case stateSysEx:
		return "sysex"
	case stateRecovery:
		return "recovery"
	}
	return "unknown"
}

// Stats counts what a Decoder did with the bytes it consumed.
type Stats struct {
	Decoded    int // messages returned to the caller
	Lost       int // messages cut short by an unexpected status byte
	Filtered   int // channel-voice messages outside the channel mask
	Overflowed int // System Exclusive messages longer than the maximum
	Discarded  int // data bytes with no status to belong to
}

// Decoder reassembles MIDI messages from a non-blocking byte stream.
//
// Bytes are consumed in order and at most one message is produced per call.
// Malformed input never fails the stream: an incomplete message is dropped
// when the next status byte arrives and decoding resumes from there.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	r       io.Reader
	pending []byte

	state         parserState
	status        byte
	runningStatus byte // 0 when no channel-voice status is cached
	data          [2]byte
	have          int
	need          int

	sysEx         []byte
	sysExOverflow bool

	channels       ChannelMask
	sysExMaxLength int
	overflow       OverflowPolicy
	useRunning     bool

	stats Stats
	log   *zap.Logger
}

// NewDecoder returns a Decoder reading from r. r may be nil when bytes are
// pushed with Feed.
func NewDecoder(r io.Reader, opts ...Option) (*Decoder, error) {
	c := newConfig(opts)
	if c.err != nil {
		return nil, c.err
	}
	return newDecoder(r, c), nil
}

func newDecoder(r io.Reader, c *config) *Decoder {
	log := decoderLog
	if c.logger != nil {
		log = c.logger.Named("decoder")
	}

	return &Decoder{
		r:              r,
		pending:        make([]byte, 0, c.inBufSize),
		state:          stateIdle,
		sysEx:          make([]byte, 0, min(sysExInitCap, c.sysExMaxLength)),
		channels:       c.inChannels,
		sysExMaxLength: c.sysExMaxLength,
		overflow:       c.overflow,
		useRunning:     c.runningStatus,
		log:            log,
	}
}

// Decode performs at most one read from the input port and returns the next
// complete message with its channel, or NoChannel for system messages.
// It returns a nil Message when no message is complete yet. The only errors
// are input port failures other than io.EOF.
func (d *Decoder) Decode() (Message, int, error) {
	err := d.fill()

	for i, b := range d.pending {
		if msg, channel, ok := d.Feed(b); ok {
			d.consume(i + 1)
			return msg, channel, nil
		}
	}
	d.pending = d.pending[:0]

	return nil, NoChannel, err
}

// Feed advances the state machine by one byte. ok is true when b completes a
// message that passes the channel mask.
func (d *Decoder) Feed(b byte) (msg Message, channel int, ok bool) {
	switch {
	case isRealTime(b):
		// real-time bytes may interleave with any message and leave it intact
		return d.emit(realTimeMessage(b), NoChannel)
	case b&0x80 != 0:
		return d.statusByte(b)
	default:
		return d.dataByte(b)
	}
}

// Reset drops buffered bytes, any partial message and the running status.
func (d *Decoder) Reset() {
	d.pending = d.pending[:0]
	d.sysEx = d.sysEx[:0]
	d.sysExOverflow = false
	d.state = stateIdle
	d.runningStatus = 0
	d.have, d.need = 0, 0
}

func (d *Decoder) Stats() Stats {
	return d.stats
}

func (d *Decoder) fill() error {
	if d.r == nil {
		return nil
	}

	l := len(d.pending)
	if l == cap(d.pending) {
		return nil
	}

	n, err := d.r.Read(d.pending[l:cap(d.pending)])
	if n > 0 {
		d.pending = d.pending[:l+n]
	}
	if err != nil && err != io.EOF {
		return fmt.Errorf("read in port: %w", err)
	}
	return nil
}

func (d *Decoder) statusByte(b byte) (Message, int, bool) {
	switch d.state {
	case stateCollecting:
		d.lost(b)
	case stateSysEx:
		if b == sysExEnd {
			return d.endSysEx()
		}
		d.lost(b)
	}
	d.state = stateIdle

	switch {
	case b == sysExEnd:
		d.log.Debug("stray end of exclusive")
		return nil, NoChannel, false
	case b == sysExStart:
		d.runningStatus = 0
		d.sysEx = d.sysEx[:0]
		d.sysExOverflow = false
		d.state = stateSysEx
		return nil, NoChannel, false
	case isVoiceMsgType(b >> 4):
		if d.useRunning {
			d.runningStatus = b
		}
	default:
		// system common cancels running status
		d.runningStatus = 0
	}

	return d.begin(b)
}

func (d *Decoder) begin(status byte) (Message, int, bool) {
	d.status = status
	d.need = dataLength(status)
	d.have = 0

	if d.need == 0 {
		d.state = stateIdle
		return d.complete()
	}
	d.state = stateCollecting
	return nil, NoChannel, false
}

func (d *Decoder) dataByte(b byte) (Message, int, bool) {
	switch d.state {
	case stateCollecting:
		d.data[d.have] = b
		d.have++
		if d.have < d.need {
			return nil, NoChannel, false
		}
		d.state = stateIdle
		return d.complete()

	case stateSysEx:
		d.appendSysEx(b)
		return nil, NoChannel, false

	case stateIdle:
		if d.runningStatus != 0 {
			d.begin(d.runningStatus)
			return d.dataByte(b)
		}
	}

	d.stats.Discarded++
	return nil, NoChannel, false
}

func (d *Decoder) complete() (Message, int, bool) {
	if !isVoiceMsgType(d.status >> 4) {
		return d.emit(Unknown{Status: d.status, Data: cloneBytes(d.data[:d.have])}, NoChannel)
	}

	channel := d.status & 0x0F
	if !d.channels.Has(channel) {
		d.stats.Filtered++
		return nil, NoChannel, false
	}
	return d.emit(voiceMessage(d.status, d.data), int(channel))
}

func (d *Decoder) appendSysEx(b byte) {
	if len(d.sysEx) < d.sysExMaxLength {
		d.sysEx = append(d.sysEx, b)
		return
	}

	if !d.sysExOverflow {
		d.sysExOverflow = true
		d.stats.Overflowed++
		d.log.Debug("system exclusive overflow", zap.Int("max", d.sysExMaxLength), zap.Stringer("policy", d.overflow))
	}

	if d.overflow == OverflowDrop {
		d.sysEx = d.sysEx[:0]
		d.state = stateRecovery
	}
}

func (d *Decoder) endSysEx() (Message, int, bool) {
	d.state = stateIdle

	idLen := manufacturerIDLen(d.sysEx)
	if len(d.sysEx) < idLen {
		d.stats.Lost++
		d.log.Debug("system exclusive without manufacturer id", zap.Binary("payload", d.sysEx))
		return nil, NoChannel, false
	}

	msg := SystemExclusive{
		ManufacturerID: cloneBytes(d.sysEx[:idLen]),
		Data:           cloneBytes(d.sysEx[idLen:]),
	}
	d.sysEx = d.sysEx[:0]
	return d.emit(msg, NoChannel)
}

func (d *Decoder) emit(msg Message, channel int) (Message, int, bool) {
	d.stats.Decoded++
	return msg, channel, true
}

func (d *Decoder) lost(next byte) {
	d.stats.Lost++
	d.log.Debug("message lost",
		zap.Stringer("state", d.state),
		zap.Uint8("status", d.status),
		zap.Int("have", d.have),
		zap.Int("need", d.need),
		zap.Uint8("next", next))
}
