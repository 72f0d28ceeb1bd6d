package main

import (
	"math/rand"

	"github.com/Garik-/midistream/pkg/midi"
)

// humanizer replaces note on velocities with random values in [min, max].
type humanizer struct {
	rnd      *rand.Rand
	min, max int
}

func (h *humanizer) velocity() uint8 {
	return uint8(h.min + h.rnd.Intn(h.max-h.min+1))
}

func (h *humanizer) apply(msgs []midi.Message) {
	for i, m := range msgs {
		// zero velocity means note off and stays that way
		if on, ok := m.(midi.NoteOn); ok && on.Velocity > 0 {
			on.Velocity = h.velocity()
			msgs[i] = on
		}
	}
}
