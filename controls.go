package arpeggiator

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// Controls are the values a host sets on the arpeggiator, in the form
// hosts deliver them: plain numbers, switches being 0 or 1.
// They are read at the start of every block.
type Controls struct {
	BPM          float32 `json:"bpm"`           // tempo while Sync is off
	Sync         float32 `json:"sync"`          // 1: follow the host transport
	Pattern      float32 `json:"pattern"`       // see Pattern
	Division     float32 `json:"division"`      // steps per two beats
	NoteLength   float32 `json:"note_length"`   // fraction of a step a note is held
	OctaveSpread float32 `json:"octave_spread"` // number of octaves
	OctaveMode   float32 `json:"octave_mode"`   // see OctaveMode
	Latch        float32 `json:"latch"`
	Velocity     float32 `json:"velocity"`
	Enabled      float32 `json:"enabled"`
	TimeOut      float32 `json:"time_out"` // frames the first note of a synced chord waits for the rest
}

// DefaultControls returns the controls a fresh arpeggiator starts with.
func DefaultControls() Controls {
	return Controls{
		BPM:          120,
		Sync:         0,
		Pattern:      float32(PatternUp),
		Division:     4,
		NoteLength:   0.5,
		OctaveSpread: 1,
		OctaveMode:   float32(OctaveUp),
		Latch:        0,
		Velocity:     100,
		Enabled:      1,
		TimeOut:      0,
	}
}

func (c Controls) String() string {
	p := c.resolve()
	return fmt.Sprintf("bpm %v sync %v pattern %s division %v note length %.2f octaves %d (%s) latch %v velocity %d enabled %v",
		p.bpm, p.sync, p.pattern, p.division, p.noteLength, p.spread, p.octaveMode, p.latch, p.velocity, p.enabled)
}

// params is the validated form of Controls the engine works with.
type params struct {
	bpm        float64
	sync       bool
	pattern    Pattern
	division   float64
	noteLength float64
	spread     int
	octaveMode OctaveMode
	latch      bool
	velocity   uint8
	enabled    bool
	timeOut    int
}

// resolve is the single place where control values are checked.
// Out of range values are clamped, enumerations are rounded to the nearest member.
func (c Controls) resolve() params {
	return params{
		bpm:        float64(positiveOr(c.BPM, 1)),
		sync:       c.Sync >= 0.5,
		pattern:    Pattern(clamp(round(c.Pattern), 0, int(PatternRandom))),
		division:   float64(positiveOr(c.Division, 1)),
		noteLength: float64(clamp(nanTo(c.NoteLength, 0), 0, 1)),
		spread:     clamp(round(c.OctaveSpread), 1, 10),
		octaveMode: OctaveMode(clamp(round(c.OctaveMode), 0, int(OctaveDownUp))),
		latch:      c.Latch >= 0.5,
		velocity:   uint8(clamp(round(c.Velocity), 0, 127)),
		enabled:    c.Enabled >= 0.5,
		timeOut:    clamp(round(c.TimeOut), 0, math.MaxInt32),
	}
}

func clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func nanTo(v, alt float32) float32 {
	if v != v {
		return alt
	}
	return v
}

func positiveOr(v, alt float32) float32 {
	if v <= 0 || v != v {
		return alt
	}
	return v
}

func round(v float32) int {
	v = nanTo(v, 0)
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int(math.Round(float64(v)))
}
