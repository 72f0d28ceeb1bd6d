package midi

func (d *Decoder) consume(n int) {
	d.pending = d.pending[:copy(d.pending, d.pending[n:])]
}

func cloneBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}

// manufacturerIDLen is 3 for the extended 0x00 xx xx form, 1 otherwise.
func manufacturerIDLen(payload []byte) int {
	if len(payload) > 0 && payload[0] == 0 {
		return 3
	}
	return 1
}

func voiceMessage(status byte, data [2]byte) Message {
	switch status & 0xF0 {
	case noteOffStatus:
		return NoteOff{Note: data[0], Velocity: data[1]}
	case noteOnStatus:
		return NoteOn{Note: data[0], Velocity: data[1]}
	case polyKeyPressureStatus:
		return PolyphonicKeyPressure{Note: data[0], Pressure: data[1]}
	case controlChangeStatus:
		return ControlChange{Control: data[0], Value: data[1]}
	case programChangeStatus:
		return ProgramChange{Patch: data[0]}
	case channelPressureStatus:
		return ChannelPressure{Pressure: data[0]}
	case pitchBendStatus:
		return PitchBendChange{Value: uint16(data[0]) | uint16(data[1])<<7}
	}
	return Unknown{Status: status, Data: cloneBytes(data[:])}
}
