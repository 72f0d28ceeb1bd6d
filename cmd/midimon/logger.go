package main

import (
	"github.com/Garik-/midistream/pkg/gomidiport"
	"github.com/Garik-/midistream/pkg/midi"
	"github.com/Garik-/midistream/pkg/serialport"
	"go.uber.org/zap"
)

var monitorLog = zap.NewNop()

func enableDebugLogging(l *zap.Logger) {
	monitorLog = l
	midi.EnableDebugLogging(l)
	serialport.EnableDebugLogging(l)
	gomidiport.EnableDebugLogging(l)
}
