//go:build rtmidi

package main

// The OS MIDI driver needs cgo and the platform MIDI headers. It is linked
// only with -tags rtmidi; serial ports work without it.
import _ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
