// Package arpeggiator re-emits held MIDI notes as an arpeggio that is
// aligned sample by sample to a subdivided clock.
//
// The Engine is the block processor: it consumes the note and transport
// events of one block together with the current Controls and produces the
// note-on and note-off messages of that block in frame order. Arp wraps an
// Engine and runs it between a MIDI in and a MIDI out port.
package arpeggiator

import (
	"errors"
	"fmt"
)

const VERSION = "0.3.0"

// ErrUnknownName is returned for pattern and octave mode names that do not exist.
var ErrUnknownName = errors.New("unknown name")

// Voices is the number of held notes and of pending note-offs the engine tracks.
const Voices = 16

// Pattern is the order in which the held notes are played.
type Pattern uint8

const (
	PatternUp Pattern = iota
	PatternDown
	PatternUpDown
	PatternUpDownAlt
	PatternAsPlayed
	PatternRandom
)

var patternNames = [...]string{
	PatternUp:        "up",
	PatternDown:      "down",
	PatternUpDown:    "updown",
	PatternUpDownAlt: "updown-alt",
	PatternAsPlayed:  "played",
	PatternRandom:    "random",
}

func (p Pattern) String() string {
	if int(p) < len(patternNames) {
		return patternNames[p]
	}
	return fmt.Sprintf("Pattern(%d)", uint8(p))
}

// sorted reports whether the pattern plays the held notes in pitch order.
func (p Pattern) sorted() bool {
	return p != PatternAsPlayed
}

// ParsePattern returns the pattern for the given name.
func ParsePattern(name string) (Pattern, error) {
	for i, n := range patternNames {
		if n == name {
			return Pattern(i), nil
		}
	}
	return 0, fmt.Errorf("pattern %q: %w", name, ErrUnknownName)
}

// OctaveMode is the order in which the octaves of the spread are visited.
type OctaveMode uint8

const (
	OctaveUp OctaveMode = iota
	OctaveDown
	OctaveUpDown
	OctaveDownUp
)

var octaveModeNames = [...]string{
	OctaveUp:     "up",
	OctaveDown:   "down",
	OctaveUpDown: "updown",
	OctaveDownUp: "downup",
}

func (m OctaveMode) String() string {
	if int(m) < len(octaveModeNames) {
		return octaveModeNames[m]
	}
	return fmt.Sprintf("OctaveMode(%d)", uint8(m))
}

// ParseOctaveMode returns the octave mode for the given name.
func ParseOctaveMode(name string) (OctaveMode, error) {
	for i, n := range octaveModeNames {
		if n == name {
			return OctaveMode(i), nil
		}
	}
	return 0, fmt.Errorf("octave mode %q: %w", name, ErrUnknownName)
}
