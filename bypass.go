package arpeggiator

import "gitlab.com/gomidi/midi/midimessage/channel"

// bypass forwards an event unchanged while the arpeggiator is disabled.
// Keys pressed and released meanwhile are only counted; once the
// arpeggiator is enabled again its first step silences every note.
func (e *Engine) bypass(ev Event) {
	if !e.switchedOn {
		e.bypassed = e.activeNotes
		e.switchedOn = true
	}

	if !e.p.latch {
		e.reg.clear()
		e.notesPressed = 0
		e.activeNotes = 0
	}

	switch m := ev.Message.(type) {
	case channel.NoteOn:
		if m.Velocity() > 0 {
			e.noteOnReceived = true
			e.bypassed++
		} else if e.noteOnReceived && e.bypassed > 0 {
			e.bypassed--
		}
	case channel.NoteOff, channel.NoteOffVelocity:
		if e.noteOnReceived && e.bypassed > 0 {
			e.bypassed--
		}
	}

	e.through = append(e.through, Output{Frame: ev.Frame, Message: ev.Message})
	e.sweep = true
}

// BypassedNotes returns the number of keys held while the arpeggiator is disabled.
func (e *Engine) BypassedNotes() int { return e.bypassed }
