// Package velpattern rewrites the velocity of note-ons from a short
// pattern of up to eight steps.
//
// Without sync the pattern moves one step per note-on. With sync it moves
// on every step of the clock, so the accents follow the host's beat no
// matter when the notes arrive.
package velpattern

import (
	"gitlab.com/gomidi/midi"
	"gitlab.com/gomidi/midi/midimessage/channel"

	"gitlab.com/gomidi/arpeggiator/clock"
)

// Steps is the maximum pattern length.
const Steps = 8

// Controls are the per block parameters of a Sequencer.
type Controls struct {
	BPM        float32 // tempo while Sync is off
	Sync       float32
	Division   float32
	Length     float32 // number of steps used, 1..Steps
	Velocities [Steps]float32
	Retrigger  float32 // a rising edge restarts the pattern
}

// DefaultControls returns a four step pattern accenting the first step.
func DefaultControls() Controls {
	return Controls{
		BPM:        120,
		Division:   4,
		Length:     4,
		Velocities: [Steps]float32{127, 80, 100, 80, 127, 80, 100, 80},
	}
}

// Event is a MIDI message at a frame of the block.
type Event struct {
	Frame   uint32
	Message midi.Message
}

// Sequencer is not safe for concurrent use.
type Sequencer struct {
	clock *clock.Clock
	index int

	hostBPM   float64
	speed     float64
	prevSpeed float64
	prevSync  bool
	retrigger bool
	primed    bool

	out []Event
}

// New returns a sequencer at the given sample rate.
func New(sampleRate float64) *Sequencer {
	return &Sequencer{
		clock:   clock.New(sampleRate),
		hostBPM: 120,
	}
}

// Position takes over a transport snapshot of the host.
func (s *Sequencer) Position(bpm, speed, beatInMeasure float64) {
	s.hostBPM = bpm
	s.speed = speed
	s.clock.SetBeat(beatInMeasure)
}

// Step returns the current pattern step.
func (s *Sequencer) Step() int { return s.index }

// Process runs one block. Events must be ordered by frame; events behind
// the block are handled on its last frame. The result is valid until the
// next call.
func (s *Sequencer) Process(frames int, events []Event, ctl Controls) []Event {
	s.out = s.out[:0]

	length := int(ctl.Length + 0.5)
	if length < 1 {
		length = 1
	}
	if length > Steps {
		length = Steps
	}
	sync := ctl.Sync >= 0.5

	if !s.primed {
		s.prevSync = sync
		s.clock.SetDivision(float64(ctl.Division))
		s.primed = true
	}

	retrigger := ctl.Retrigger >= 0.5
	if retrigger && !s.retrigger {
		s.index = 0
	}
	s.retrigger = retrigger

	if s.index >= length {
		s.index %= length
	}

	next := 0
	for i := 0; i < frames; i++ {
		for next < len(events) && (events[next].Frame <= uint32(i) || i == frames-1) {
			s.handle(events[next], uint32(i), &ctl, length, sync)
			next++
		}
		s.step(&ctl, length, sync)
	}
	for ; next < len(events); next++ {
		s.handle(events[next], 0, &ctl, length, sync)
	}

	return s.out
}

func (s *Sequencer) handle(ev Event, frame uint32, ctl *Controls, length int, sync bool) {
	on, ok := ev.Message.(channel.NoteOn)
	if !ok || on.Velocity() == 0 {
		s.out = append(s.out, Event{Frame: frame, Message: ev.Message})
		return
	}

	vel := ctl.Velocities[s.index]
	switch {
	case vel < 0 || vel != vel:
		vel = 0
	case vel > 127:
		vel = 127
	}

	// a step velocity of 0 mutes the note
	msg := channel.Channel(on.Channel()).NoteOn(on.Key(), uint8(vel+0.5))
	s.out = append(s.out, Event{Frame: frame, Message: msg})

	if !sync {
		s.index = (s.index + 1) % length
	}
}

func (s *Sequencer) step(ctl *Controls, length int, sync bool) {
	bpm := float64(ctl.BPM)
	if sync {
		bpm = s.hostBPM
	}
	s.clock.SetTempo(bpm)

	if s.speed != s.prevSpeed {
		s.clock.Resync()
		s.prevSpeed = s.speed
	}
	if sync != s.prevSync {
		s.clock.Resync()
		s.prevSync = sync
	}
	if s.clock.SetDivision(float64(ctl.Division)) {
		s.clock.Resync()
	}

	if s.clock.Step(!sync, false) {
		s.index = (s.index + 1) % length
	}
}
