package arpeggiator

// spreader produces the octave offset added to every played note.
type spreader struct {
	index int
	up    bool
	mode  OctaveMode
}

func (o *spreader) reset() {
	*o = spreader{}
}

// offset returns the semitones for the next note and advances the octave.
// cursor is the registry index of the note about to be played; it seeds
// the octave index when the mode changed since the last note.
func (o *spreader) offset(mode OctaveMode, spread, cursor int) uint8 {
	if spread < 1 {
		spread = 1
	}

	if mode != o.mode {
		o.remap(mode, spread, cursor)
	}

	if spread == 1 {
		o.index = 0
		return 0
	}

	if o.index < 0 {
		o.index += spread
	}

	semitones := 12 * (o.index % spread)

	switch mode {
	case OctaveUp:
		o.index = (o.index + 1) % spread
	case OctaveDown:
		o.index--
		if o.index < 0 {
			o.index = spread - 1
		}
	case OctaveUpDown:
		if o.up {
			o.index++
			o.up = o.index < spread-1
		} else {
			o.index--
			o.up = o.index <= 0
		}
	case OctaveDownUp:
		if !o.up {
			o.index--
			o.up = o.index <= 0
		} else {
			o.index = (o.index + 1) % spread
			o.up = o.index < spread-1
		}
	}

	return uint8(semitones)
}

// remap carries the octave index over into a newly selected mode so that a
// live switch continues from where the arpeggio is instead of restarting.
func (o *spreader) remap(mode OctaveMode, spread, cursor int) {
	if cursor < 0 {
		cursor = 0
	}

	switch mode {
	case OctaveUp:
		o.index = cursor % spread
	case OctaveDown:
		o.index = spread
	case OctaveUpDown:
		o.index = cursor % (spread * 2)
		if o.index > spread {
			o.index = abs(spread-(o.index-spread)) % spread
		}
		o.up = true
	case OctaveDownUp:
		o.index = spread
		o.up = false
	}
	o.mode = mode
}

// current returns the octave the next note will be played in.
func (o *spreader) current(spread int) int {
	if spread <= 1 {
		return 0
	}
	i := o.index % spread
	if i < 0 {
		i += spread
	}
	return i
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
