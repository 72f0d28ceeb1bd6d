package midi

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

const (
	noteOffStatus         byte = 0x80
	noteOnStatus          byte = 0x90
	polyKeyPressureStatus byte = 0xA0
	controlChangeStatus   byte = 0xB0
	programChangeStatus   byte = 0xC0
	channelPressureStatus byte = 0xD0
	pitchBendStatus       byte = 0xE0

	sysExStart byte = 0xF0
	sysExEnd   byte = 0xF7

	timingClockStatus   byte = 0xF8
	startStatus         byte = 0xFA
	continueStatus      byte = 0xFB
	stopStatus          byte = 0xFC
	activeSensingStatus byte = 0xFE
	systemResetStatus   byte = 0xFF
)

const (
	maxData7  = 0x7F
	maxData14 = 0x3FFF

	// PitchBendCenter is the PitchBendChange value for a centered wheel.
	PitchBendCenter = 8192
)

var (
	// ErrValueOutOfRange is reported when a message field does not fit its bit width.
	ErrValueOutOfRange = errors.New("value out of range")
	// ErrNilMessage is reported when a nil Message is passed for encoding.
	ErrNilMessage = errors.New("nil message")
)

// Message is one MIDI event. The set of implementations is closed:
// callers switch on the concrete type.
type Message interface {
	fmt.Stringer

	// Validate reports every field that does not fit its declared range.
	Validate() error

	appendTo(buf []byte, channel uint8) []byte
}

func checkRange(field string, v int, max int) error {
	if v < 0 || v > max {
		return fmt.Errorf("%w - %s %d not in 0..%d", ErrValueOutOfRange, field, v, max)
	}
	return nil
}

func checkBytes(field string, b []byte) error {
	for i, v := range b {
		if v > maxData7 {
			return fmt.Errorf("%w - %s[%d] %#x is not a data byte", ErrValueOutOfRange, field, i, v)
		}
	}
	return nil
}

// NoteOn starts a note. A velocity of zero is conventionally a note off.
type NoteOn struct {
	Note     uint8
	Velocity uint8
}

func NewNoteOn(note, velocity int) (NoteOn, error) {
	err := multierr.Combine(checkRange("note", note, maxData7), checkRange("velocity", velocity, maxData7))
	if err != nil {
		return NoteOn{}, err
	}
	return NoteOn{Note: uint8(note), Velocity: uint8(velocity)}, nil
}

func (m NoteOn) Validate() error {
	return multierr.Combine(checkRange("note", int(m.Note), maxData7), checkRange("velocity", int(m.Velocity), maxData7))
}

func (m NoteOn) appendTo(buf []byte, channel uint8) []byte {
	return append(buf, noteOnStatus|channel, m.Note, m.Velocity)
}

func (m NoteOn) String() string {
	return fmt.Sprintf("NoteOn(note=%d %s, velocity=%d)", m.Note, NoteName(int(m.Note)), m.Velocity)
}

type NoteOff struct {
	Note     uint8
	Velocity uint8
}

func NewNoteOff(note, velocity int) (NoteOff, error) {
	err := multierr.Combine(checkRange("note", note, maxData7), checkRange("velocity", velocity, maxData7))
	if err != nil {
		return NoteOff{}, err
	}
	return NoteOff{Note: uint8(note), Velocity: uint8(velocity)}, nil
}

func (m NoteOff) Validate() error {
	return multierr.Combine(checkRange("note", int(m.Note), maxData7), checkRange("velocity", int(m.Velocity), maxData7))
}

func (m NoteOff) appendTo(buf []byte, channel uint8) []byte {
	return append(buf, noteOffStatus|channel, m.Note, m.Velocity)
}

func (m NoteOff) String() string {
	return fmt.Sprintf("NoteOff(note=%d %s, velocity=%d)", m.Note, NoteName(int(m.Note)), m.Velocity)
}

// PolyphonicKeyPressure is per-note aftertouch.
type PolyphonicKeyPressure struct {
	Note     uint8
	Pressure uint8
}

func NewPolyphonicKeyPressure(note, pressure int) (PolyphonicKeyPressure, error) {
	err := multierr.Combine(checkRange("note", note, maxData7), checkRange("pressure", pressure, maxData7))
	if err != nil {
		return PolyphonicKeyPressure{}, err
	}
	return PolyphonicKeyPressure{Note: uint8(note), Pressure: uint8(pressure)}, nil
}

func (m PolyphonicKeyPressure) Validate() error {
	return multierr.Combine(checkRange("note", int(m.Note), maxData7), checkRange("pressure", int(m.Pressure), maxData7))
}

func (m PolyphonicKeyPressure) appendTo(buf []byte, channel uint8) []byte {
	return append(buf, polyKeyPressureStatus|channel, m.Note, m.Pressure)
}

func (m PolyphonicKeyPressure) String() string {
	return fmt.Sprintf("PolyphonicKeyPressure(note=%d, pressure=%d)", m.Note, m.Pressure)
}

type ControlChange struct {
	Control uint8
	Value   uint8
}

func NewControlChange(control, value int) (ControlChange, error) {
	err := multierr.Combine(checkRange("control", control, maxData7), checkRange("value", value, maxData7))
	if err != nil {
		return ControlChange{}, err
	}
	return ControlChange{Control: uint8(control), Value: uint8(value)}, nil
}

func (m ControlChange) Validate() error {
	return multierr.Combine(checkRange("control", int(m.Control), maxData7), checkRange("value", int(m.Value), maxData7))
}

func (m ControlChange) appendTo(buf []byte, channel uint8) []byte {
	return append(buf, controlChangeStatus|channel, m.Control, m.Value)
}

func (m ControlChange) String() string {
	return fmt.Sprintf("ControlChange(control=%d, value=%d)", m.Control, m.Value)
}

type ProgramChange struct {
	Patch uint8
}

func NewProgramChange(patch int) (ProgramChange, error) {
	if err := checkRange("patch", patch, maxData7); err != nil {
		return ProgramChange{}, err
	}
	return ProgramChange{Patch: uint8(patch)}, nil
}

func (m ProgramChange) Validate() error {
	return checkRange("patch", int(m.Patch), maxData7)
}

func (m ProgramChange) appendTo(buf []byte, channel uint8) []byte {
	return append(buf, programChangeStatus|channel, m.Patch)
}

func (m ProgramChange) String() string {
	return fmt.Sprintf("ProgramChange(patch=%d)", m.Patch)
}

// ChannelPressure is aftertouch applied to the whole channel.
type ChannelPressure struct {
	Pressure uint8
}

func NewChannelPressure(pressure int) (ChannelPressure, error) {
	if err := checkRange("pressure", pressure, maxData7); err != nil {
		return ChannelPressure{}, err
	}
	return ChannelPressure{Pressure: uint8(pressure)}, nil
}

func (m ChannelPressure) Validate() error {
	return checkRange("pressure", int(m.Pressure), maxData7)
}

func (m ChannelPressure) appendTo(buf []byte, channel uint8) []byte {
	return append(buf, channelPressureStatus|channel, m.Pressure)
}

func (m ChannelPressure) String() string {
	return fmt.Sprintf("ChannelPressure(pressure=%d)", m.Pressure)
}

// PitchBendChange carries a 14-bit wheel position, PitchBendCenter being neutral.
type PitchBendChange struct {
	Value uint16
}

func NewPitchBendChange(value int) (PitchBendChange, error) {
	if err := checkRange("pitch bend", value, maxData14); err != nil {
		return PitchBendChange{}, err
	}
	return PitchBendChange{Value: uint16(value)}, nil
}

func (m PitchBendChange) Validate() error {
	return checkRange("pitch bend", int(m.Value), maxData14)
}

// lsb first
func (m PitchBendChange) appendTo(buf []byte, channel uint8) []byte {
	return append(buf, pitchBendStatus|channel, byte(m.Value&0x7F), byte(m.Value>>7))
}

func (m PitchBendChange) String() string {
	return fmt.Sprintf("PitchBendChange(value=%d)", m.Value)
}

// SystemExclusive is a vendor message framed by 0xF0 ... 0xF7. It never has a channel.
// ManufacturerID is one byte, or three bytes starting with 0x00.
type SystemExclusive struct {
	ManufacturerID []byte
	Data           []byte
}

func NewSystemExclusive(manufacturerID []byte, data []byte) (SystemExclusive, error) {
	m := SystemExclusive{
		ManufacturerID: append([]byte(nil), manufacturerID...),
		Data:           append([]byte(nil), data...),
	}
	if err := m.Validate(); err != nil {
		return SystemExclusive{}, err
	}
	return m, nil
}

func (m SystemExclusive) Validate() error {
	var err error
	switch len(m.ManufacturerID) {
	case 1:
		if m.ManufacturerID[0] == 0 {
			err = fmt.Errorf("%w - one byte manufacturer id must not be 0", ErrValueOutOfRange)
		}
	case 3:
		if m.ManufacturerID[0] != 0 {
			err = fmt.Errorf("%w - three byte manufacturer id must start with 0", ErrValueOutOfRange)
		}
	default:
		err = fmt.Errorf("%w - manufacturer id length %d, want 1 or 3", ErrValueOutOfRange, len(m.ManufacturerID))
	}
	return multierr.Combine(err, checkBytes("manufacturer id", m.ManufacturerID), checkBytes("data", m.Data))
}

func (m SystemExclusive) appendTo(buf []byte, _ uint8) []byte {
	buf = append(buf, sysExStart)
	buf = append(buf, m.ManufacturerID...)
	buf = append(buf, m.Data...)
	return append(buf, sysExEnd)
}

func (m SystemExclusive) String() string {
	return fmt.Sprintf("SystemExclusive(manufacturer=% x, data=%d bytes)", m.ManufacturerID, len(m.Data))
}

type TimingClock struct{}

func (TimingClock) Validate() error                     { return nil }
func (TimingClock) appendTo(buf []byte, _ uint8) []byte { return append(buf, timingClockStatus) }
func (TimingClock) String() string                      { return "TimingClock" }

type Start struct{}

func (Start) Validate() error                     { return nil }
func (Start) appendTo(buf []byte, _ uint8) []byte { return append(buf, startStatus) }
func (Start) String() string                      { return "Start" }

type Continue struct{}

func (Continue) Validate() error                     { return nil }
func (Continue) appendTo(buf []byte, _ uint8) []byte { return append(buf, continueStatus) }
func (Continue) String() string                      { return "Continue" }

type Stop struct{}

func (Stop) Validate() error                     { return nil }
func (Stop) appendTo(buf []byte, _ uint8) []byte { return append(buf, stopStatus) }
func (Stop) String() string                      { return "Stop" }

type ActiveSensing struct{}

func (ActiveSensing) Validate() error                     { return nil }
func (ActiveSensing) appendTo(buf []byte, _ uint8) []byte { return append(buf, activeSensingStatus) }
func (ActiveSensing) String() string                      { return "ActiveSensing" }

type SystemReset struct{}

func (SystemReset) Validate() error                     { return nil }
func (SystemReset) appendTo(buf []byte, _ uint8) []byte { return append(buf, systemResetStatus) }
func (SystemReset) String() string                      { return "SystemReset" }

// Unknown holds a message with no first-class type, such as System Common
// (song position, quarter frame) or an undefined status byte. It is written
// back verbatim and never carries a channel. Statuses that have a typed
// message, and data of the wrong length for the status, are invalid.
type Unknown struct {
	Status byte
	Data   []byte
}

func (m Unknown) Validate() error {
	var err error
	switch {
	case m.Status < 0x80:
		err = fmt.Errorf("%w - status %#x is a data byte", ErrValueOutOfRange, m.Status)
	case isVoiceMsgType(m.Status>>4), m.Status == sysExStart, m.Status == sysExEnd:
		err = fmt.Errorf("%w - status %#x has its own message type", ErrValueOutOfRange, m.Status)
	case isRealTime(m.Status) && !isUnknown(realTimeMessage(m.Status)):
		err = fmt.Errorf("%w - status %#x has its own message type", ErrValueOutOfRange, m.Status)
	case len(m.Data) != dataLength(m.Status):
		err = fmt.Errorf("%w - status %#x takes %d data bytes, got %d",
			ErrValueOutOfRange, m.Status, dataLength(m.Status), len(m.Data))
	}
	return multierr.Combine(err, checkBytes("data", m.Data))
}

func isUnknown(m Message) bool {
	_, ok := m.(Unknown)
	return ok
}

func (m Unknown) appendTo(buf []byte, _ uint8) []byte {
	buf = append(buf, m.Status)
	return append(buf, m.Data...)
}

func (m Unknown) String() string {
	return fmt.Sprintf("Unknown(status=%#x, data=% x)", m.Status, m.Data)
}

// HasChannel reports whether m is a channel-voice message.
func HasChannel(m Message) bool {
	switch m.(type) {
	case NoteOn, NoteOff, PolyphonicKeyPressure, ControlChange, ProgramChange, ChannelPressure, PitchBendChange:
		return true
	}
	return false
}

func realTimeMessage(status byte) Message {
	switch status {
	case timingClockStatus:
		return TimingClock{}
	case startStatus:
		return Start{}
	case continueStatus:
		return Continue{}
	case stopStatus:
		return Stop{}
	case activeSensingStatus:
		return ActiveSensing{}
	case systemResetStatus:
		return SystemReset{}
	}
	return Unknown{Status: status}
}
