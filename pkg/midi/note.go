package midi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidNoteName is reported by ParseNote for malformed names.
var ErrInvalidNoteName = errors.New("invalid note name")

const (
	minOctave = -1
	maxOctave = 9
)

var (
	noteOffsets = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}
	noteNames   = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
)

// ParseNote converts a scientific pitch name such as "C4", "F#3" or "Bb-1" to
// a note number. C4 is 60.
func ParseNote(name string) (int, error) {
	s := strings.TrimSpace(name)
	if len(s) < 2 {
		return 0, fmt.Errorf("%w - %q", ErrInvalidNoteName, name)
	}

	offset, ok := noteOffsets[strings.ToUpper(s[:1])[0]]
	if !ok {
		return 0, fmt.Errorf("%w - %q", ErrInvalidNoteName, name)
	}
	s = s[1:]

	switch s[0] {
	case '#':
		offset++
		s = s[1:]
	case 'b':
		offset--
		s = s[1:]
	}

	octave, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w - %q", ErrInvalidNoteName, name)
	}

	if octave < minOctave || octave > maxOctave {
		return 0, fmt.Errorf("%w - octave %d of %q is not between %d and %d",
			ErrValueOutOfRange, octave, name, minOctave, maxOctave)
	}

	note := (octave+1)*12 + offset
	if err := checkRange("note", note, maxData7); err != nil {
		return 0, err
	}
	return note, nil
}

// NoteName is the inverse of ParseNote, using sharps.
func NoteName(note int) string {
	if note < 0 || note > maxData7 {
		return "?"
	}
	return noteNames[note%12] + strconv.Itoa(note/12-1)
}
