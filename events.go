package arpeggiator

import (
	"fmt"

	"gitlab.com/gomidi/midi"
)

// Position is a transport snapshot sent by the host. Only the fields that
// are flagged as set are taken over.
type Position struct {
	BPM           float64
	Speed         float64 // 0 stopped, 1 playing
	BeatInMeasure float64

	HasBPM, HasSpeed, HasBeat bool
}

// Event is an input event of a block. Exactly one of Message and Position is set.
type Event struct {
	Frame    uint32
	Message  midi.Message
	Position *Position
}

// Output is a message produced by the engine at a frame of the block.
type Output struct {
	Frame   uint32
	Message midi.Message
}

func (o Output) String() string {
	return fmt.Sprintf("[%d] %s", o.Frame, o.Message)
}

// NoteEvent returns the input event for a raw note message.
func NoteEvent(frame uint32, msg midi.Message) Event {
	return Event{Frame: frame, Message: msg}
}

// PositionEvent returns the input event for a transport snapshot.
func PositionEvent(frame uint32, pos Position) Event {
	return Event{Frame: frame, Position: &pos}
}
