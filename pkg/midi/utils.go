package midi

func isVoiceMsgType(b byte) bool {
	return 0x8 <= b && b <= 0xE
}

func isRealTime(b byte) bool {
	return b >= timingClockStatus
}

// dataLength is the number of data bytes following a status byte,
// or -1 for System Exclusive which runs until its terminator.
func dataLength(status byte) int {
	if isVoiceMsgType(status >> 4) {
		switch status & 0xF0 {
		case programChangeStatus, channelPressureStatus:
			return 1
		default:
			return 2
		}
	}

	switch status {
	case sysExStart:
		return -1
	case 0xF1, 0xF3: // quarter frame, song select
		return 1
	case 0xF2: // song position pointer
		return 2
	}
	return 0
}
