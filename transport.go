package arpeggiator

import (
	"math"
	"time"

	"gitlab.com/gomidi/midi"
	"gitlab.com/gomidi/midi/midimessage/realtime"
)

const (
	clocksPerBeat = 24
	beatsPerBar   = 4
)

// Transport turns the realtime messages of an external MIDI clock into
// host positions for the engine. The tempo is the mean of the last 24
// clock intervals, rounded to a tenth of a bpm.
type Transport struct {
	playing bool
	clocks  int

	last      time.Time
	intervals [clocksPerBeat]time.Duration
	filled    int
	next      int
}

// Feed takes a message received at the given time. It reports false for
// messages that do not concern the transport.
func (t *Transport) Feed(msg midi.Message, at time.Time) (pos Position, ok bool) {
	switch msg {
	case realtime.Start:
		t.playing = true
		t.clocks = 0
		return Position{Speed: 1, HasSpeed: true, HasBeat: true}, true
	case realtime.Continue:
		t.playing = true
		return Position{Speed: 1, HasSpeed: true}, true
	case realtime.Stop:
		t.playing = false
		return Position{Speed: 0, HasSpeed: true}, true
	case realtime.TimingClock:
	default:
		return Position{}, false
	}

	if !t.last.IsZero() {
		t.intervals[t.next] = at.Sub(t.last)
		t.next = (t.next + 1) % clocksPerBeat
		if t.filled < clocksPerBeat {
			t.filled++
		}
	}
	t.last = at

	if bpm, has := t.BPM(); has {
		pos.BPM, pos.HasBPM = bpm, true
	}

	if t.playing {
		pos.BeatInMeasure = float64(t.clocks%(clocksPerBeat*beatsPerBar)) / clocksPerBeat
		pos.HasBeat = true
		t.clocks++
	}

	return pos, true
}

// BPM returns the measured tempo, if at least two clocks have been seen.
func (t *Transport) BPM() (bpm float64, ok bool) {
	if t.filled == 0 {
		return 0, false
	}

	var sum time.Duration
	for _, d := range t.intervals[:t.filled] {
		sum += d
	}
	mean := sum.Seconds() / float64(t.filled)
	if mean <= 0 {
		return 0, false
	}

	bpm = 60 / (mean * clocksPerBeat)
	return math.Round(bpm*10) / 10, true
}

// Playing reports whether the clock source is running.
func (t *Transport) Playing() bool { return t.playing }
