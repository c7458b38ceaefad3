package velpattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gitlab.com/gomidi/midi/midimessage/channel"
)

func velocities(out []Event) (res []uint8) {
	for _, ev := range out {
		if on, ok := ev.Message.(channel.NoteOn); ok {
			res = append(res, on.Velocity())
		}
	}
	return
}

func noteAt(frame uint32, key uint8) Event {
	return Event{Frame: frame, Message: channel.Channel2.NoteOn(key, 64)}
}

func TestSequencerPerNote(t *testing.T) {
	s := New(48000)
	ctl := DefaultControls()
	ctl.Length = 3

	out := s.Process(64, []Event{noteAt(0, 60), noteAt(1, 62), noteAt(2, 64), noteAt(3, 65)}, ctl)

	assert.Equal(t, []uint8{127, 80, 100, 127}, velocities(out))
	assert.Equal(t, 1, s.Step())
}

func TestSequencerKeepsNotesAndOtherMessages(t *testing.T) {
	s := New(48000)
	cc := channel.Channel2.ControlChange(7, 100)

	out := s.Process(16, []Event{
		noteAt(2, 60),
		{Frame: 4, Message: cc},
		{Frame: 5, Message: channel.Channel2.NoteOff(60)},
	}, DefaultControls())

	if assert.Len(t, out, 3) {
		assert.Equal(t, channel.Channel2.NoteOn(60, 127), out[0].Message)
		assert.Equal(t, uint32(2), out[0].Frame)
		assert.Equal(t, cc, out[1].Message)
		assert.Equal(t, channel.Channel2.NoteOff(60), out[2].Message)
	}
}

func TestSequencerSynced(t *testing.T) {
	s := New(48000)
	ctl := DefaultControls()
	ctl.Sync = 1
	ctl.Velocities = [Steps]float32{127, 80, 100, 60}

	// 120 bpm, a step lasts 12000 frames and the first one fires at frame 0
	out := s.Process(36000, []Event{noteAt(100, 60), noteAt(200, 60), noteAt(12100, 60), noteAt(24100, 60)}, ctl)

	assert.Equal(t, []uint8{80, 80, 100, 60}, velocities(out))
}

func TestSequencerRetrigger(t *testing.T) {
	s := New(48000)
	ctl := DefaultControls()

	s.Process(8, []Event{noteAt(0, 60), noteAt(1, 60)}, ctl)
	assert.Equal(t, 2, s.Step())

	ctl.Retrigger = 1
	out := s.Process(8, []Event{noteAt(0, 60)}, ctl)
	assert.Equal(t, []uint8{127}, velocities(out))

	// holding the retrigger does not restart again
	out = s.Process(8, []Event{noteAt(0, 60)}, ctl)
	assert.Equal(t, []uint8{80}, velocities(out))
}

func TestSequencerShrinkingLength(t *testing.T) {
	s := New(48000)
	ctl := DefaultControls()
	ctl.Length = 8

	s.Process(8, []Event{noteAt(0, 1), noteAt(0, 2), noteAt(0, 3), noteAt(0, 4), noteAt(0, 5)}, ctl)
	assert.Equal(t, 5, s.Step())

	ctl.Length = 2
	out := s.Process(8, []Event{noteAt(0, 1)}, ctl)
	assert.Equal(t, []uint8{80}, velocities(out))
	assert.Equal(t, 0, s.Step())
}

func TestSequencerMutedStep(t *testing.T) {
	s := New(48000)
	ctl := DefaultControls()
	ctl.Velocities[0] = 0

	out := s.Process(0, []Event{noteAt(0, 60)}, ctl)
	assert.Equal(t, []uint8{0}, velocities(out))
}
