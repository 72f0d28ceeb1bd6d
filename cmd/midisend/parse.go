package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Garik-/midistream/pkg/midi"
)

var ErrUnknownCommand = errors.New("unknown command")

var realTime = map[string]midi.Message{
	"start":    midi.Start{},
	"stop":     midi.Stop{},
	"continue": midi.Continue{},
	"clock":    midi.TimingClock{},
	"reset":    midi.SystemReset{},
}

// parseMessage reads one command line argument, e.g. "on:C4:100",
// "cc:7:127" or "sysex:7d:010203".
func parseMessage(arg string) (midi.Message, error) {
	fields := strings.Split(arg, ":")
	name, args := strings.ToLower(fields[0]), fields[1:]

	if m, ok := realTime[name]; ok {
		if err := wantArgs(arg, args, 0); err != nil {
			return nil, err
		}
		return m, nil
	}

	if name == "sysex" {
		if err := wantArgs(arg, args, 2); err != nil {
			return nil, err
		}
		id, err := hex.DecodeString(args[0])
		if err != nil {
			return nil, fmt.Errorf("%s: manufacturer id: %w", arg, err)
		}
		data, err := hex.DecodeString(args[1])
		if err != nil {
			return nil, fmt.Errorf("%s: data: %w", arg, err)
		}
		return midi.NewSystemExclusive(id, data)
	}

	values, err := parseValues(arg, args)
	if err != nil {
		return nil, err
	}

	switch name {
	case "on":
		if err := wantArgs(arg, args, 2); err != nil {
			return nil, err
		}
		return midi.NewNoteOn(values[0], values[1])
	case "off":
		if err := wantArgs(arg, args, 2); err != nil {
			return nil, err
		}
		return midi.NewNoteOff(values[0], values[1])
	case "pat":
		if err := wantArgs(arg, args, 2); err != nil {
			return nil, err
		}
		return midi.NewPolyphonicKeyPressure(values[0], values[1])
	case "cc":
		if err := wantArgs(arg, args, 2); err != nil {
			return nil, err
		}
		return midi.NewControlChange(values[0], values[1])
	case "pc":
		if err := wantArgs(arg, args, 1); err != nil {
			return nil, err
		}
		return midi.NewProgramChange(values[0])
	case "at":
		if err := wantArgs(arg, args, 1); err != nil {
			return nil, err
		}
		return midi.NewChannelPressure(values[0])
	case "pb":
		if err := wantArgs(arg, args, 1); err != nil {
			return nil, err
		}
		return midi.NewPitchBendChange(values[0])
	}

	return nil, fmt.Errorf("%w - %q", ErrUnknownCommand, arg)
}

func wantArgs(arg string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s: want %d values, got %d", arg, n, len(args))
	}
	return nil
}

// parseValues accepts numbers and, in first position, note names.
func parseValues(arg string, args []string) ([]int, error) {
	values := make([]int, len(args))
	for i, s := range args {
		v, err := strconv.Atoi(s)
		if err != nil && i == 0 {
			v, err = midi.ParseNote(s)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: value %d: %w", arg, i+1, err)
		}
		values[i] = v
	}
	return values, nil
}
