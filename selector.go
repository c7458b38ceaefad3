package arpeggiator

import "math/rand"

// selector walks the registry in the order of a pattern.
type selector struct {
	cursor int
	up     bool
	rnd    *rand.Rand
}

func newSelector(seed int64) selector {
	return selector{up: true, rnd: rand.New(rand.NewSource(seed))}
}

func (s *selector) reset() {
	s.cursor = 0
	s.up = true
}

// wrapCursor clamps a cursor to [0, Voices]. Voices itself is a valid
// probe position that never holds a note.
func wrapCursor(c int) int {
	if c < 0 {
		return 0
	}
	if c > Voices {
		return Voices
	}
	return c
}

// pick probes the registry starting at the cursor until it finds a note,
// for at most Voices probes. Every probe moves the cursor by one pattern step,
// so after a successful pick the cursor already points at the next candidate.
// idx is the slot the note was found in.
func (s *selector) pick(r *registry, p Pattern, active int) (note uint8, idx int, ok bool) {
	for probe := 0; probe < Voices && !ok; probe++ {
		s.cursor = wrapCursor(s.cursor)
		idx = s.cursor
		note, ok = r.at(idx)
		s.advance(p, active)
	}
	return
}

// advance moves the cursor by one step of the pattern. active is the number
// of notes the pattern cycles over.
func (s *selector) advance(p Pattern, active int) {
	if active > Voices {
		active = Voices
	}

	switch {
	case p == PatternUp, p == PatternAsPlayed, p == PatternUpDown && active < 3:
		s.cursor = (s.cursor + 1) % Voices
	case p == PatternDown:
		s.cursor--
		if s.cursor < 0 {
			// wraps to the chord size, not to the end of the registry
			s.cursor = clamp(active, 0, Voices-1)
		}
	case p == PatternRandom:
		n := active
		if n < 1 {
			n = 1
		}
		s.cursor = s.rnd.Intn(n)
	default:
		s.bounce(p == PatternUpDownAlt, active)
	}
}

// bounce moves the cursor back and forth between the first and the last
// active note. Unless alt is set the boundary notes are not repeated.
func (s *selector) bounce(alt bool, active int) {
	if s.up {
		s.cursor++
		if s.cursor >= active {
			s.up = false
			if !alt && active > 1 {
				s.cursor -= 2
			}
		}
		return
	}

	s.cursor--
	if alt {
		s.up = s.cursor < 0
	} else {
		s.up = s.cursor <= 0
	}
}

// shadow shifts the cursor by one when a newly pressed note is lower than
// the note just behind the cursor, i.e. when it was sorted in ahead of the
// notes already played and pushed them one slot up.
func (s *selector) shadow(r *registry, note uint8) {
	if s.cursor <= 0 {
		return
	}
	if behind, ok := r.at(s.cursor - 1); !ok || note < behind {
		s.cursor++
	}
}
