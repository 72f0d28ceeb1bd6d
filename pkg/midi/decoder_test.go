package midi

import (
	"errors"
	"io"
	"testing"

	"github.com/Garik-/midistream/pkg/midi/miditest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decoded struct {
	msg     Message
	channel int
}

func newTestDecoder(t *testing.T, data []byte, opts ...Option) (*Decoder, *miditest.Loopback) {
	t.Helper()

	port := miditest.NewLoopback()
	port.Inject(data...)

	d, err := NewDecoder(port, opts...)
	require.NoError(t, err)
	return d, port
}

// decodeAll polls until a call yields nothing and the port is drained.
func decodeAll(t *testing.T, d *Decoder, port *miditest.Loopback) []decoded {
	t.Helper()

	var out []decoded
	for i := 0; i < 10000; i++ {
		msg, ch, err := d.Decode()
		require.NoError(t, err)
		if msg == nil {
			if port.Len() == 0 {
				return out
			}
			continue
		}
		out = append(out, decoded{msg, ch})
	}
	t.Fatal("decoder did not settle")
	return nil
}

func TestDecoderRoundTrip(t *testing.T) {
	msgs := []Message{
		NoteOn{Note: 60, Velocity: 0x7f},
		NoteOn{Note: 60, Velocity: 0},
		NoteOff{Note: 61, Velocity: 0x28},
		PolyphonicKeyPressure{Note: 62, Pressure: 5},
		ControlChange{Control: 64, Value: 127},
		ProgramChange{Patch: 3},
		ChannelPressure{Pressure: 90},
		PitchBendChange{Value: 0},
		PitchBendChange{Value: PitchBendCenter},
		PitchBendChange{Value: 16383},
		SystemExclusive{ManufacturerID: []byte{0x7d}, Data: []byte{1, 2, 3}},
		SystemExclusive{ManufacturerID: []byte{0x00, 0x20, 0x29}, Data: []byte{0x02, 0x0C}},
		SystemExclusive{ManufacturerID: []byte{0x43}},
		TimingClock{},
		Start{},
		Continue{},
		Stop{},
		ActiveSensing{},
		SystemReset{},
		Unknown{Status: 0xF2, Data: []byte{0x10, 0x20}},
		Unknown{Status: 0xF6},
	}

	for ch := 0; ch < 16; ch += 5 {
		for _, m := range msgs {
			b, err := Encode(ch, m)
			require.NoError(t, err)

			d, port := newTestDecoder(t, b)
			got := decodeAll(t, d, port)
			require.Len(t, got, 1, m.String())

			expected := decoded{m, NoChannel}
			if HasChannel(m) {
				expected.channel = ch
			}
			assert.Equal(t, expected, got[0], m.String())
		}
	}
}

func TestDecoderOneMessagePerCall(t *testing.T) {
	d, port := newTestDecoder(t, []byte{0x90, 0x3c, 0x7f, 0x80, 0x3c, 0x40})

	msg, ch, err := d.Decode()
	require.NoError(t, err)
	assert.Equal(t, NoteOn{Note: 0x3c, Velocity: 0x7f}, msg)
	assert.Equal(t, 0, ch)
	assert.Equal(t, 0, port.Len(), "one read took all pending bytes")

	msg, ch, err = d.Decode()
	require.NoError(t, err)
	assert.Equal(t, NoteOff{Note: 0x3c, Velocity: 0x40}, msg)
	assert.Equal(t, 0, ch)

	msg, ch, err = d.Decode()
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, NoChannel, ch)
}

func TestDecoderFragmentedReads(t *testing.T) {
	d, port := newTestDecoder(t, []byte{0x93, 0x3c, 0x7f, 0xF0, 0x7d, 1, 2, 0xF7})
	port.MaxRead = 1

	var got []decoded
	for i := 0; i < 8; i++ {
		msg, ch, err := d.Decode()
		require.NoError(t, err)
		if msg != nil {
			got = append(got, decoded{msg, ch})
		}
	}

	assert.Equal(t, []decoded{
		{NoteOn{Note: 0x3c, Velocity: 0x7f}, 3},
		{SystemExclusive{ManufacturerID: []byte{0x7d}, Data: []byte{1, 2}}, NoChannel},
	}, got)
}

func TestDecoderInBufSizeBoundsReads(t *testing.T) {
	var data []byte
	for i := 0; i < 20; i++ {
		data = append(data, 0x90, byte(i), 0x7f)
	}
	d, port := newTestDecoder(t, data, WithInBufSize(4))

	_, _, err := d.Decode()
	require.NoError(t, err)
	assert.Equal(t, len(data)-4, port.Len())

	got := decodeAll(t, d, port)
	assert.Len(t, got, 19)
	assert.Equal(t, NoteOn{Note: 19, Velocity: 0x7f}, got[18].msg)
}

func TestDecoderLostBytes(t *testing.T) {
	// note on missing its velocity, then a complete note off
	d, port := newTestDecoder(t, []byte{0x90, 0x3c, 0x80, 0x3c, 0x40})

	got := decodeAll(t, d, port)
	assert.Equal(t, []decoded{{NoteOff{Note: 0x3c, Velocity: 0x40}, 0}}, got)
	assert.Equal(t, 1, d.Stats().Lost)
}

func TestDecoderDiscardsOrphanDataBytes(t *testing.T) {
	d, port := newTestDecoder(t, []byte{0x3c, 0x7f, 0x91, 0x3c, 0x7f})

	got := decodeAll(t, d, port)
	assert.Equal(t, []decoded{{NoteOn{Note: 0x3c, Velocity: 0x7f}, 1}}, got)
	assert.Equal(t, 2, d.Stats().Discarded)
}

func TestDecoderRunningStatus(t *testing.T) {
	data := []byte{0x90, 0x3c, 0x7f, 0x40, 0x7f, 0x43, 0x00}

	d, port := newTestDecoder(t, data)
	assert.Equal(t, []decoded{
		{NoteOn{Note: 0x3c, Velocity: 0x7f}, 0},
		{NoteOn{Note: 0x40, Velocity: 0x7f}, 0},
		{NoteOn{Note: 0x43, Velocity: 0}, 0},
	}, decodeAll(t, d, port))

	d, port = newTestDecoder(t, data, WithRunningStatus(false))
	assert.Equal(t, []decoded{{NoteOn{Note: 0x3c, Velocity: 0x7f}, 0}}, decodeAll(t, d, port))
	assert.Equal(t, 4, d.Stats().Discarded)
}

func TestDecoderRunningStatusSingleDataByte(t *testing.T) {
	d, port := newTestDecoder(t, []byte{0xC4, 0x01, 0x02, 0x03})

	assert.Equal(t, []decoded{
		{ProgramChange{Patch: 1}, 4},
		{ProgramChange{Patch: 2}, 4},
		{ProgramChange{Patch: 3}, 4},
	}, decodeAll(t, d, port))
}

func TestDecoderRunningStatusCancelledBySystemCommon(t *testing.T) {
	d, port := newTestDecoder(t, []byte{0x90, 0x3c, 0x7f, 0xF6, 0x40, 0x7f})

	assert.Equal(t, []decoded{
		{NoteOn{Note: 0x3c, Velocity: 0x7f}, 0},
		{Unknown{Status: 0xF6}, NoChannel},
	}, decodeAll(t, d, port))
	assert.Equal(t, 2, d.Stats().Discarded)
}

// A burst of pitch bends captured from a device that drops status bytes
// under load. Every complete message must come through.
func TestDecoderPitchBendBurst(t *testing.T) {
	d, port := newTestDecoder(t, []byte{
		0xe0, 0x67, 0x40,
		0xe0, 0x72, 0x40,
		0x6d, 0x40, 0xe0,
		0x05, 0x41, 0xe0,
		0x17, 0x41, 0xe0,
		0x35, 0x41, 0xe0,
		0x40, 0x41, 0xe0,
	})

	var values []uint16
	for _, r := range decodeAll(t, d, port) {
		pb, ok := r.msg.(PitchBendChange)
		require.True(t, ok)
		values = append(values, pb.Value)
	}
	assert.Equal(t, []uint16{8295, 8306, 8301, 8325, 8343, 8373, 8384}, values)

	// the trailing status byte is still waiting for its data
	msg, _, ok := d.Feed(0x00)
	assert.False(t, ok)
	assert.Nil(t, msg)
	msg, ch, ok := d.Feed(0x40)
	assert.True(t, ok)
	assert.Equal(t, PitchBendChange{Value: PitchBendCenter}, msg)
	assert.Equal(t, 0, ch)
}

func TestDecoderRealTimeInsideMessage(t *testing.T) {
	d, port := newTestDecoder(t, []byte{0x90, 0x3c, 0xF8, 0x7f, 0xF0, 0x7d, 0xFA, 0x01, 0xF7})

	assert.Equal(t, []decoded{
		{TimingClock{}, NoChannel},
		{NoteOn{Note: 0x3c, Velocity: 0x7f}, 0},
		{Start{}, NoChannel},
		{SystemExclusive{ManufacturerID: []byte{0x7d}, Data: []byte{0x01}}, NoChannel},
	}, decodeAll(t, d, port))
	assert.Equal(t, 0, d.Stats().Lost)
}

func TestDecoderUndefinedStatusBytes(t *testing.T) {
	d, port := newTestDecoder(t, []byte{0xF9, 0xFD, 0xF4})

	assert.Equal(t, []decoded{
		{Unknown{Status: 0xF9}, NoChannel},
		{Unknown{Status: 0xFD}, NoChannel},
		{Unknown{Status: 0xF4}, NoChannel},
	}, decodeAll(t, d, port))
}

func TestDecoderSysExOverflowTruncate(t *testing.T) {
	d, port := newTestDecoder(t,
		[]byte{0xF0, 0x7d, 1, 2, 3, 4, 5, 6, 7, 0xF7, 0x90, 0x3c, 0x7f},
		WithSysExMaxLength(4))

	assert.Equal(t, []decoded{
		{SystemExclusive{ManufacturerID: []byte{0x7d}, Data: []byte{1, 2, 3}}, NoChannel},
		{NoteOn{Note: 0x3c, Velocity: 0x7f}, 0},
	}, decodeAll(t, d, port))
	assert.Equal(t, 1, d.Stats().Overflowed)
}

func TestDecoderSysExOverflowDrop(t *testing.T) {
	d, port := newTestDecoder(t,
		[]byte{0xF0, 0x7d, 1, 2, 3, 4, 5, 6, 7, 0xF7, 0x90, 0x3c, 0x7f},
		WithSysExMaxLength(4), WithOverflowPolicy(OverflowDrop))

	assert.Equal(t, []decoded{{NoteOn{Note: 0x3c, Velocity: 0x7f}, 0}}, decodeAll(t, d, port))
	assert.Equal(t, 1, d.Stats().Overflowed)
}

func TestDecoderSysExLargerThanInBuf(t *testing.T) {
	data := []byte{0xF0, 0x7d}
	for i := 0; i < 100; i++ {
		data = append(data, byte(i))
	}
	data = append(data, 0xF7, 0x85, 0x3c, 0x00)

	d, port := newTestDecoder(t, data)
	got := decodeAll(t, d, port)

	require.Len(t, got, 2)
	sx, ok := got[0].msg.(SystemExclusive)
	require.True(t, ok)
	assert.Len(t, sx.Data, 100)
	assert.Equal(t, decoded{NoteOff{Note: 0x3c}, 5}, got[1])
}

func TestDecoderSysExBufferGrowsOnDemand(t *testing.T) {
	data := []byte{0xF0, 0x7d}
	for i := 0; i < 1000; i++ {
		data = append(data, byte(i%0x80))
	}
	data = append(data, 0xF7)

	d, port := newTestDecoder(t, data, WithSysExMaxLength(1<<20))
	assert.LessOrEqual(t, cap(d.sysEx), sysExInitCap)

	got := decodeAll(t, d, port)
	require.Len(t, got, 1)
	sx, ok := got[0].msg.(SystemExclusive)
	require.True(t, ok)
	assert.Len(t, sx.Data, 1000)
	assert.Zero(t, d.Stats().Overflowed)
}

func TestDecoderSysExInterrupted(t *testing.T) {
	d, port := newTestDecoder(t, []byte{0xF0, 0x7d, 1, 2, 0x92, 0x3c, 0x7f, 0xF0, 0xF7})

	assert.Equal(t, []decoded{{NoteOn{Note: 0x3c, Velocity: 0x7f}, 2}}, decodeAll(t, d, port))
	assert.Equal(t, 2, d.Stats().Lost, "interrupted and empty sysex")
}

func TestDecoderChannelFilter(t *testing.T) {
	d, port := newTestDecoder(t, []byte{
		0x91, 0x3c, 0x7f,
		0x92, 0x3d, 0x7f,
		0x3e, 0x7f, // running status on channel 2
		0xB1, 0x07, 0x64,
		0xF8,
		0x92, 0x3f, 0x00,
	}, WithInChannels(2))

	assert.Equal(t, []decoded{
		{NoteOn{Note: 0x3d, Velocity: 0x7f}, 2},
		{NoteOn{Note: 0x3e, Velocity: 0x7f}, 2},
		{TimingClock{}, NoChannel},
		{NoteOn{Note: 0x3f, Velocity: 0}, 2},
	}, decodeAll(t, d, port))
	assert.Equal(t, 2, d.Stats().Filtered)
}

func TestDecoderReset(t *testing.T) {
	d, err := NewDecoder(nil)
	require.NoError(t, err)

	for _, b := range []byte{0x90, 0x3c} {
		_, _, ok := d.Feed(b)
		require.False(t, ok)
	}
	d.Reset()

	_, _, ok := d.Feed(0x7f)
	assert.False(t, ok, "no status survives a reset")
	assert.Equal(t, 1, d.Stats().Discarded)
}

func TestNewDecoderInvalidChannel(t *testing.T) {
	_, err := NewDecoder(nil, WithInChannels(3, 16))
	assert.True(t, errors.Is(err, ErrValueOutOfRange))
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, r.err
}

func TestDecoderPortErrors(t *testing.T) {
	d, err := NewDecoder(&failingReader{data: []byte{0x90, 0x3c, 0x7f}, err: io.EOF})
	require.NoError(t, err)

	msg, _, err := d.Decode()
	require.NoError(t, err)
	assert.Equal(t, NoteOn{Note: 0x3c, Velocity: 0x7f}, msg)

	msg, _, err = d.Decode()
	assert.NoError(t, err, "EOF means no data")
	assert.Nil(t, msg)

	unplugged := errors.New("device unplugged")
	d, err = NewDecoder(&failingReader{err: unplugged})
	require.NoError(t, err)

	msg, ch, err := d.Decode()
	assert.True(t, errors.Is(err, unplugged))
	assert.Nil(t, msg)
	assert.Equal(t, NoChannel, ch)
}
