package arpeggiator

type pendingOff struct {
	note    uint8
	elapsed uint32
	used    bool
}

// noteOffs tracks how long every sounding arpeggio note has been held.
// Slots are taken round robin; a slot that is still in use when its turn
// comes again is overwritten and its note is never released.
type noteOffs struct {
	slots [Voices]pendingOff
	next  int
}

// start records a sounding note.
func (n *noteOffs) start(note uint8) {
	n.slots[n.next] = pendingOff{note: note, used: true}
	n.skip()
}

// skip moves the round robin index without recording a note.
func (n *noteOffs) skip() {
	n.next = (n.next + 1) % Voices
}

// tick advances every sounding note by one frame and calls off for the
// notes that have been held longer than hold frames.
func (n *noteOffs) tick(hold uint32, off func(note uint8)) {
	for i := range n.slots {
		s := &n.slots[i]
		if !s.used {
			continue
		}
		s.elapsed++
		if s.elapsed > hold {
			off(s.note)
			*s = pendingOff{}
		}
	}
}

// flush calls off for every sounding note and empties the table.
func (n *noteOffs) flush(off func(note uint8)) {
	for i := range n.slots {
		if n.slots[i].used {
			off(n.slots[i].note)
		}
		n.slots[i] = pendingOff{}
	}
}

func (n *noteOffs) reset() {
	*n = noteOffs{}
}

// sounding returns the number of notes waiting for their note-off.
func (n *noteOffs) sounding() (c int) {
	for _, s := range n.slots {
		if s.used {
			c++
		}
	}
	return
}
