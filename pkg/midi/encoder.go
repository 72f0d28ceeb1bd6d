package midi

import (
	"fmt"
)

// Encode returns the wire bytes of msgs in order. Channel-voice messages are
// addressed to channel, everything else ignores it. Nothing is returned unless
// every message is valid.
func Encode(channel int, msgs ...Message) ([]byte, error) {
	return AppendEncode(nil, channel, msgs...)
}

// AppendEncode is like Encode but appends to buf. On error buf is returned unchanged.
func AppendEncode(buf []byte, channel int, msgs ...Message) ([]byte, error) {
	if err := checkRange("channel", channel, numChannels-1); err != nil {
		return buf, err
	}

	for i, m := range msgs {
		if m == nil {
			return buf, fmt.Errorf("%w - message %d", ErrNilMessage, i)
		}
		if err := m.Validate(); err != nil {
			return buf, fmt.Errorf("message %d %s: %w", i, m, err)
		}
	}

	for _, m := range msgs {
		buf = m.appendTo(buf, uint8(channel))
	}
	return buf, nil
}
