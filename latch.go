package arpeggiator

// noteOn adds a pressed key to the arpeggio.
func (e *Engine) noteOn(key uint8) {
	p := &e.p

	if e.notesPressed == 0 {
		if !e.latchPlaying {
			// a fresh chord starts the pattern from its beginning
			if !p.sync {
				e.clock.Restart()
			} else {
				e.clock.Rearm()
			}
			e.oct.index = 0
			e.sel.cursor = 0
		}
		if p.latch {
			e.latchPlaying = true
			e.activeNotes = 0
			e.reg.clear()
		}
		if p.sync && !e.latchPlaying {
			e.firstNote = true
			e.firstNoteTimer = 0
		}
	}

	e.notesPressed++
	e.activeNotes++
	e.reg.press(key, p.pattern.sorted())
	e.sel.shadow(&e.reg, key)
}

// noteOff handles a released key. While latched the notes stay in the
// arpeggio until the latch is released with no keys held.
func (e *Engine) noteOff(key uint8) {
	p := &e.p

	if !e.latchPlaying {
		if e.notesPressed > 0 {
			e.notesPressed--
		}
		e.activeNotes = e.notesPressed
		e.reg.release(key, p.pattern.sorted())
		return
	}

	if e.notesPressed > 0 && e.reg.contains(key) {
		e.notesPressed--
	}

	if !p.latch && e.notesPressed == 0 {
		e.unlatch()
	}
}

// unlatch drops the latched chord and starts over.
func (e *Engine) unlatch() {
	e.reg.clear()
	e.notesPressed = 0
	e.activeNotes = 0
	e.latchPlaying = false
	e.firstNote = false
	e.firstNoteTimer = 0
	e.sel.reset()
	e.oct.reset()
	e.clock.Rearm()
}
