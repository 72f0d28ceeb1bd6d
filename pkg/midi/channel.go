package midi

const (
	// NoChannel is reported for messages that are not addressed to a channel.
	NoChannel = -1

	numChannels = 16
)

// ChannelMask selects input channels, bit n standing for channel n.
type ChannelMask uint16

// AllChannels accepts every channel.
const AllChannels ChannelMask = 0xFFFF

// Channels builds a mask from channel numbers in 0..15. No channels means all.
func Channels(channels ...int) (ChannelMask, error) {
	if len(channels) == 0 {
		return AllChannels, nil
	}

	var m ChannelMask
	for _, ch := range channels {
		if err := checkRange("channel", ch, numChannels-1); err != nil {
			return 0, err
		}
		m |= 1 << uint(ch)
	}
	return m, nil
}

func (m ChannelMask) Has(channel uint8) bool {
	return channel < numChannels && m&(1<<channel) != 0
}
