package arpeggiator

import (
	"gitlab.com/gomidi/midi"
	"gitlab.com/gomidi/midi/midimessage/channel"

	"gitlab.com/gomidi/arpeggiator/clock"
)

// ccAllNotesOff is the channel mode message that drops all held notes.
const ccAllNotesOff = 123

// Engine is a sample accurate arpeggiator. It is not safe for concurrent
// use; one goroutine owns it and calls Process once per block.
type Engine struct {
	clock *clock.Clock
	reg   registry
	sel   selector
	oct   spreader
	offs  noteOffs
	ch    channel.Channel

	p      params
	primed bool

	hostBPM    float64
	speed      float64
	prevSpeed  float64
	prevSync   bool
	phaseReset bool

	notesPressed   int
	activeNotes    int
	latchPlaying   bool
	firstNote      bool
	firstNoteTimer int

	bypassed       int
	switchedOn     bool
	noteOnReceived bool
	sweep          bool

	lastNote int

	out     []Output
	through []Output
	gate    []float32
}

// EngineOption configures an Engine.
type EngineOption func(e *Engine)

// OutChannel sets the MIDI channel the arpeggio is written to (0-15).
func OutChannel(ch uint8) EngineOption {
	return func(e *Engine) {
		if ch < 16 {
			e.ch = channel.Channel(ch)
		}
	}
}

// RandomSeed seeds the generator behind PatternRandom.
func RandomSeed(seed int64) EngineOption {
	return func(e *Engine) {
		e.sel = newSelector(seed)
	}
}

// NewEngine returns an engine running at the given sample rate.
func NewEngine(sampleRate float64, opts ...EngineOption) *Engine {
	e := &Engine{
		clock:    clock.New(sampleRate),
		sel:      newSelector(1),
		ch:       channel.Channel0,
		hostBPM:  120,
		lastNote: -1,
		out:      make([]Output, 0, 256),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Process runs the engine for one block of frames. The events must be
// ordered by frame. The returned messages are ordered by frame and are only
// valid until the next call.
func (e *Engine) Process(frames int, events []Event, ctl Controls) []Output {
	if frames < 0 {
		frames = 0
	}

	e.out = e.out[:0]
	e.through = e.through[:0]
	if cap(e.gate) < frames {
		e.gate = make([]float32, frames)
	}
	e.gate = e.gate[:frames]

	e.p = ctl.resolve()
	if !e.primed {
		e.prevSync = e.p.sync
		e.clock.SetDivision(e.p.division)
		e.primed = true
	}

	if !e.p.latch && e.latchPlaying && e.notesPressed <= 0 {
		e.unlatch()
	}

	for _, ev := range events {
		switch {
		case ev.Position != nil:
			e.position(*ev.Position)
		case ev.Message == nil:
		case e.p.enabled:
			e.handle(ev.Message)
		default:
			e.bypass(ev)
		}
	}

	th := 0
	for i := 0; i < frames; i++ {
		frame := uint32(i)
		for th < len(e.through) && e.through[th].Frame <= frame {
			o := e.through[th]
			o.Frame = frame
			e.out = append(e.out, o)
			th++
		}
		e.step(i)
	}

	// pass through events behind the end of the block go out on its last frame
	last := uint32(0)
	if frames > 0 {
		last = uint32(frames - 1)
	}
	for ; th < len(e.through); th++ {
		o := e.through[th]
		o.Frame = last
		e.out = append(e.out, o)
	}

	return e.out
}

// Gate returns the gate signal of the last block: 1 for every frame while
// keys are held, 0 otherwise.
func (e *Engine) Gate() []float32 {
	return e.gate
}

func (e *Engine) position(pos Position) {
	if pos.HasBPM {
		e.hostBPM = pos.BPM
	}
	if pos.HasSpeed {
		e.speed = pos.Speed
	}
	if pos.HasBeat {
		e.clock.SetBeat(pos.BeatInMeasure)
	}
}

func (e *Engine) handle(msg midi.Message) {
	switch m := msg.(type) {
	case channel.NoteOn:
		if m.Velocity() == 0 {
			e.noteOff(m.Key())
			return
		}
		e.noteOn(m.Key())
	case channel.NoteOff:
		e.noteOff(m.Key())
	case channel.NoteOffVelocity:
		e.noteOff(m.Key())
	case channel.ControlChange:
		if m.Controller() == ccAllNotesOff {
			e.activeNotes = 0
			e.reg.clear()
		}
	}
}

// step runs the clock for frame i of the block.
func (e *Engine) step(i int) {
	frame := uint32(i)
	p := &e.p

	bpm := p.bpm
	if p.sync {
		bpm = e.hostBPM
	}
	tempoChanged := e.clock.SetTempo(bpm)

	if p.sync {
		beat := e.clock.Beat()
		switch {
		case beat < 0.5 && !e.phaseReset:
			e.clock.Resync()
			e.phaseReset = true
		case beat >= 1.0 && e.phaseReset:
			e.phaseReset = false
		}
	}

	if tempoChanged && p.sync {
		e.clock.Resync()
	}
	if p.sync != e.prevSync {
		e.clock.Resync()
		e.prevSync = p.sync
	}
	if e.clock.SetDivision(p.division) {
		e.clock.Resync()
	}
	if e.speed != e.prevSpeed {
		e.clock.Resync()
		e.prevSpeed = e.speed
	}

	if e.notesPressed > 0 {
		e.gate[i] = 1
	} else {
		e.gate[i] = 0
	}

	if e.firstNote {
		e.firstNoteTimer++
	}
	force := e.firstNote && e.firstNoteTimer > p.timeOut

	if e.clock.Step(e.firstNote, force) {
		e.trigger(frame)
		e.firstNote = false
		e.firstNoteTimer = 0
	}

	hold := uint32(float64(e.clock.Period()) * p.noteLength)
	e.offs.tick(hold, func(note uint8) {
		e.out = append(e.out, Output{Frame: frame, Message: e.ch.NoteOff(note)})
	})
}

// trigger plays the next note of the arpeggio.
func (e *Engine) trigger(frame uint32) {
	p := &e.p

	if e.sweep && p.enabled {
		e.silence(frame)
		e.sweep = false
		e.switchedOn = false
		e.noteOnReceived = false
	}

	note, idx, ok := e.sel.pick(&e.reg, p.pattern, e.activeNotes)
	if !ok {
		return
	}

	octave := e.oct.offset(p.octaveMode, p.spread, idx)
	// no clamping: notes above 127 wrap around within the 7 bit range
	key := (note + octave) & 0x7F
	e.lastNote = int(key)

	if !p.enabled {
		e.offs.skip()
		return
	}

	e.out = append(e.out, Output{Frame: frame, Message: e.ch.NoteOn(key, p.velocity)})
	e.offs.start(key)
}

// silence writes a note-off for the note numbers 0 to 126.
func (e *Engine) silence(frame uint32) {
	for key := 0; key < 127; key++ {
		e.out = append(e.out, Output{Frame: frame, Message: e.ch.NoteOff(uint8(key))})
	}
}

// Flush returns note-offs for all arpeggio notes that are still sounding,
// stamped with the given frame.
func (e *Engine) Flush(frame uint32) []Output {
	e.out = e.out[:0]
	e.offs.flush(func(note uint8) {
		e.out = append(e.out, Output{Frame: frame, Message: e.ch.NoteOff(note)})
	})
	return e.out
}

// Reset brings the engine back to the state right after NewEngine, keeping
// its options and the sample rate.
func (e *Engine) Reset() {
	sr := e.clock.SampleRate()
	e.clock = clock.New(sr)
	e.reg.clear()
	e.sel.reset()
	e.oct.reset()
	e.offs.reset()
	e.primed = false
	e.hostBPM = 120
	e.speed, e.prevSpeed = 0, 0
	e.phaseReset = false
	e.notesPressed, e.activeNotes = 0, 0
	e.latchPlaying, e.firstNote = false, false
	e.firstNoteTimer = 0
	e.bypassed, e.switchedOn, e.noteOnReceived, e.sweep = 0, false, false, false
	e.lastNote = -1
}

// NotesPressed returns the number of keys currently held down.
func (e *Engine) NotesPressed() int { return e.notesPressed }

// ActiveNotes returns the number of notes the pattern cycles over.
func (e *Engine) ActiveNotes() int { return e.activeNotes }

// Latched reports whether the held notes are kept after their keys were released.
func (e *Engine) Latched() bool { return e.latchPlaying }

// HeldNotes returns the notes of the arpeggio in the order they are stored.
func (e *Engine) HeldNotes() []uint8 { return e.reg.notes(nil) }

// LastNote returns the last note the arpeggio played, or -1.
func (e *Engine) LastNote() int { return e.lastNote }

// Period returns the current step length in frames.
func (e *Engine) Period() uint32 { return e.clock.Period() }

// Sounding returns the number of arpeggio notes waiting for their note-off.
func (e *Engine) Sounding() int { return e.offs.sounding() }
