package main

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/Garik-/midistream/pkg/midi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage(t *testing.T) {
	for _, tc := range []struct {
		arg      string
		expected midi.Message
	}{
		{"on:C4:127", midi.NoteOn{Note: 60, Velocity: 127}},
		{"on:61:1", midi.NoteOn{Note: 61, Velocity: 1}},
		{"off:A4:0", midi.NoteOff{Note: 69}},
		{"pat:C4:50", midi.PolyphonicKeyPressure{Note: 60, Pressure: 50}},
		{"cc:7:100", midi.ControlChange{Control: 7, Value: 100}},
		{"pc:5", midi.ProgramChange{Patch: 5}},
		{"at:64", midi.ChannelPressure{Pressure: 64}},
		{"pb:8192", midi.PitchBendChange{Value: 8192}},
		{"sysex:7d:0102", midi.SystemExclusive{ManufacturerID: []byte{0x7d}, Data: []byte{1, 2}}},
		{"START", midi.Start{}},
		{"clock", midi.TimingClock{}},
	} {
		m, err := parseMessage(tc.arg)
		require.NoError(t, err, tc.arg)
		assert.Equal(t, tc.expected, m, tc.arg)
	}
}

func TestParseMessageErrors(t *testing.T) {
	_, err := parseMessage("bend:1")
	assert.True(t, errors.Is(err, ErrUnknownCommand))

	_, err = parseMessage("on:C4:128")
	assert.True(t, errors.Is(err, midi.ErrValueOutOfRange))

	// a note name in first position is just a number
	m, err := parseMessage("cc:C4:1")
	require.NoError(t, err)
	assert.Equal(t, midi.ControlChange{Control: 60, Value: 1}, m)

	for _, arg := range []string{"on:C4", "pc", "stop:1", "sysex:7d", "sysex:zz:01", "cc:7:x"} {
		_, err := parseMessage(arg)
		assert.Error(t, err, arg)
	}
}

func TestHumanizer(t *testing.T) {
	h := &humanizer{rnd: rand.New(rand.NewSource(1)), min: 40, max: 50}

	msgs := []midi.Message{
		midi.NoteOn{Note: 60, Velocity: 127},
		midi.NoteOn{Note: 61, Velocity: 0},
		midi.NoteOff{Note: 60, Velocity: 127},
	}
	for i := 0; i < 100; i++ {
		h.apply(msgs)
		v := msgs[0].(midi.NoteOn).Velocity
		assert.True(t, v >= 40 && v <= 50, v)
	}
	assert.Equal(t, midi.NoteOn{Note: 61}, msgs[1])
	assert.Equal(t, midi.NoteOff{Note: 60, Velocity: 127}, msgs[2])
}
