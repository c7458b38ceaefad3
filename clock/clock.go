// Package clock implements the sample counting phase model shared by the
// arpeggiator and the velocity pattern sequencer.
//
// A step of the clock lasts Period frames. The first half of a step is the
// trigger window: the first frame inside it fires, and the window is re-armed
// once the position has passed the half period.
package clock

import "math"

// minPeriod keeps the half period above zero, otherwise no trigger could fire.
const minPeriod = 2

// Period returns the number of frames per step for the given tempo and
// division. Tempo and division that are not positive are treated as 1.
func Period(sampleRate, bpm, division float64) uint32 {
	bpm = atLeastOne(bpm)
	division = atLeastOne(division)

	p := sampleRate * (60.0 / (bpm * (division / 2.0)))
	if p < minPeriod || math.IsNaN(p) {
		return minPeriod
	}
	if p > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(p)
}

// Phase returns the position inside a step that corresponds to the given beat
// within the measure. Calling it twice with the same arguments yields the
// same position.
func Phase(sampleRate, bpm, division, beatInMeasure float64) uint32 {
	bpm = atLeastOne(bpm)
	period := float64(Period(sampleRate, bpm, division))
	pos := math.Mod(sampleRate*(60.0/bpm)*beatInMeasure, period)
	if pos < 0 || math.IsNaN(pos) {
		return 0
	}
	return uint32(pos)
}

func atLeastOne(v float64) float64 {
	if v <= 0 || math.IsNaN(v) {
		return 1
	}
	return v
}

// Clock is the per instance phase state. The zero value is not usable, call New.
type Clock struct {
	sampleRate float64
	bpm        float64
	division   float64
	beat       float64

	pos       uint32
	period    uint32
	half      uint32
	triggered bool
}

// New returns a clock for the given sample rate at 120 bpm and a division of 4.
func New(sampleRate float64) *Clock {
	c := &Clock{
		sampleRate: atLeastOne(sampleRate),
		bpm:        120,
		division:   4,
	}
	c.recalc()
	return c
}

func (c *Clock) recalc() {
	c.period = Period(c.sampleRate, c.bpm, c.division)
	c.half = c.period / 2
}

// SampleRate returns the sample rate the clock was created with.
func (c *Clock) SampleRate() float64 { return c.sampleRate }

// SetTempo sets the tempo and reports whether it differs from the previous one.
func (c *Clock) SetTempo(bpm float64) (changed bool) {
	bpm = atLeastOne(bpm)
	if bpm == c.bpm {
		return false
	}
	c.bpm = bpm
	c.recalc()
	return true
}

// SetDivision sets the number of steps per two beats and reports whether it changed.
func (c *Clock) SetDivision(division float64) (changed bool) {
	division = atLeastOne(division)
	if division == c.division {
		return false
	}
	c.division = division
	c.recalc()
	return true
}

// SetBeat records the beat within the measure as last reported by the host.
func (c *Clock) SetBeat(beatInMeasure float64) {
	c.beat = beatInMeasure
}

func (c *Clock) Tempo() float64 { return c.bpm }
func (c *Clock) Division() float64 { return c.division }
func (c *Clock) Beat() float64 { return c.beat }
func (c *Clock) Period() uint32 { return c.period }
func (c *Clock) HalfPeriod() uint32 { return c.half }
func (c *Clock) Position() uint32 { return c.pos }
func (c *Clock) Triggered() bool { return c.triggered }

// Resync moves the position to the phase of the last reported beat.
func (c *Clock) Resync() {
	c.pos = Phase(c.sampleRate, c.bpm, c.division, c.beat)
}

// Restart moves the position to the start of a step and re-arms the trigger window.
func (c *Clock) Restart() {
	c.pos = 0
	c.triggered = false
}

// Rearm clears the triggered flag without moving the position.
func (c *Clock) Rearm() {
	c.triggered = false
}

// Step evaluates the current frame and advances the position by one.
// It reports true when a trigger fires on this frame. With hold set the
// trigger window is not honoured; force fires regardless of the window.
func (c *Clock) Step(hold, force bool) (fired bool) {
	if c.pos >= c.period {
		c.pos = 0
	}

	switch {
	case (c.pos < c.half && !c.triggered && !hold) || force:
		c.triggered = true
		fired = true
	case c.pos > c.half && c.triggered:
		c.triggered = false
	}

	c.pos++
	return
}
