package arpeggiator

import "golang.org/x/exp/slices"

// slot is a place in the registry, either empty or holding a note.
type slot struct {
	note     uint8
	occupied bool
}

// less orders occupied slots by note and puts empty slots last.
func (s slot) less(o slot) bool {
	if !s.occupied {
		return false
	}
	return !o.occupied || s.note < o.note
}

// registry holds the notes the arpeggio is built from.
type registry struct {
	slots [Voices]slot
}

// at returns the note in slot i. Indices outside the registry are empty.
func (r *registry) at(i int) (note uint8, ok bool) {
	if i < 0 || i >= Voices {
		return 0, false
	}
	s := r.slots[i]
	return s.note, s.occupied
}

// press puts the note into the first empty slot. It reports false if all slots are taken.
func (r *registry) press(note uint8, sorted bool) bool {
	for i := range r.slots {
		if !r.slots[i].occupied {
			r.slots[i] = slot{note: note, occupied: true}
			if sorted {
				r.sort()
			}
			return true
		}
	}
	return false
}

// release empties the first slot holding the note.
func (r *registry) release(note uint8, sorted bool) bool {
	for i := range r.slots {
		if r.slots[i].occupied && r.slots[i].note == note {
			r.slots[i] = slot{}
			if sorted {
				r.sort()
			}
			return true
		}
	}
	return false
}

func (r *registry) contains(note uint8) bool {
	for _, s := range r.slots {
		if s.occupied && s.note == note {
			return true
		}
	}
	return false
}

func (r *registry) clear() {
	r.slots = [Voices]slot{}
}

// len returns the number of occupied slots.
func (r *registry) len() (n int) {
	for _, s := range r.slots {
		if s.occupied {
			n++
		}
	}
	return
}

// notes appends the held notes in slot order to dst.
func (r *registry) notes(dst []uint8) []uint8 {
	for _, s := range r.slots {
		if s.occupied {
			dst = append(dst, s.note)
		}
	}
	return dst
}

// sort orders the slots by note; equal notes keep their slots.
func (r *registry) sort() {
	slices.SortStableFunc(r.slots[:], slot.less)
}
