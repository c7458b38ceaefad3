package arpeggiator

import (
	"gitlab.com/gomidi/midi"
	"gitlab.com/gomidi/midi/midimessage/channel"

	"gitlab.com/gomidi/arpeggiator/internal/logging"
)

type Option func(a *Arp)

// controlHandler updates the controls from a message. It reports whether
// the message was consumed.
type controlHandler func(msg midi.Message, c *Controls) (ok bool)

// divisions are the steps per two beats selectable by controller.
var divisions = [...]float32{1, 2, 3, 4, 6, 8, 12, 16}

// scale maps a controller value onto n evenly sized ranges.
func scale(v uint8, n int) int {
	return int(v) * n / 128
}

func onOff(v uint8) float32 {
	if v >= 64 {
		return 1
	}
	return 0
}

// ccControl returns the handler for a controller on the control channel.
func (a *Arp) ccControl(controller uint8, set func(c *Controls, val uint8)) controlHandler {
	return func(msg midi.Message, c *Controls) bool {
		cc, is := msg.(channel.ControlChange)

		if !is || cc.Controller() != controller {
			return false
		}

		ch := a.ControlChannel()
		if ch >= 0 && uint8(ch) != cc.Channel() {
			return false
		}

		set(c, cc.Value())
		return true
	}
}

type namedHandler struct {
	name string
	fn   controlHandler
}

// setHandler replaces the handler registered under name.
func (a *Arp) setHandler(name string, h controlHandler) {
	for i := range a.handlers {
		if a.handlers[i].name == name {
			a.handlers[i].fn = h
			return
		}
	}
	a.handlers = append(a.handlers, namedHandler{name: name, fn: h})
}

// CCPattern sets the controller for the arpeggio pattern
func CCPattern(controller uint8) Option {
	return func(a *Arp) {
		a.setHandler("pattern", a.ccControl(controller, func(c *Controls, val uint8) {
			c.Pattern = float32(scale(val, len(patternNames)))
		}))
	}
}

// CCDivision sets the controller for the number of steps per two beats
func CCDivision(controller uint8) Option {
	return func(a *Arp) {
		a.setHandler("division", a.ccControl(controller, func(c *Controls, val uint8) {
			c.Division = divisions[scale(val, len(divisions))]
		}))
	}
}

// CCOctaveSpread sets the controller for the number of octaves (1-4)
func CCOctaveSpread(controller uint8) Option {
	return func(a *Arp) {
		a.setHandler("octave spread", a.ccControl(controller, func(c *Controls, val uint8) {
			c.OctaveSpread = float32(1 + scale(val, 4))
		}))
	}
}

// CCOctaveMode sets the controller for the octave mode
func CCOctaveMode(controller uint8) Option {
	return func(a *Arp) {
		a.setHandler("octave mode", a.ccControl(controller, func(c *Controls, val uint8) {
			c.OctaveMode = float32(scale(val, len(octaveModeNames)))
		}))
	}
}

// CCNoteLength sets the controller for the note length
func CCNoteLength(controller uint8) Option {
	return func(a *Arp) {
		a.setHandler("note length", a.ccControl(controller, func(c *Controls, val uint8) {
			c.NoteLength = float32(val) / 127
		}))
	}
}

// CCLatch sets the controller for the latch switch
func CCLatch(controller uint8) Option {
	return func(a *Arp) {
		a.setHandler("latch", a.ccControl(controller, func(c *Controls, val uint8) {
			c.Latch = onOff(val)
		}))
	}
}

// CCSync sets the controller that switches between the own tempo and the MIDI clock
func CCSync(controller uint8) Option {
	return func(a *Arp) {
		a.setHandler("sync", a.ccControl(controller, func(c *Controls, val uint8) {
			c.Sync = onOff(val)
		}))
	}
}

// CCEnabled sets the controller that switches the arpeggiator on and off
func CCEnabled(controller uint8) Option {
	return func(a *Arp) {
		a.setHandler("enabled", a.ccControl(controller, func(c *Controls, val uint8) {
			c.Enabled = onOff(val)
		}))
	}
}

// NoteLatch sets a key on the control channel that toggles the latch.
// Pressing it does not add the key to the arpeggio.
func NoteLatch(key uint8) Option {
	return func(a *Arp) {
		a.setHandler("latch", func(msg midi.Message, c *Controls) (ok bool) {
			ch := a.ControlChannel()
			switch v := msg.(type) {
			case channel.NoteOn:
				if ch >= 0 && uint8(ch) != v.Channel() {
					return
				}
				if v.Key() != key {
					return
				}
				ok = true
				switch {
				case v.Velocity() == 0:
				case c.Latch >= 0.5:
					c.Latch = 0
				default:
					c.Latch = 1
				}
			case channel.NoteOff:
				if ch >= 0 && uint8(ch) != v.Channel() {
					return
				}
				ok = v.Key() == key
			case channel.NoteOffVelocity:
				if ch >= 0 && uint8(ch) != v.Channel() {
					return
				}
				ok = v.Key() == key
			}
			return
		})
	}
}

// ControlChannel sets a separate MIDI channel for the control messages
func ControlChannel(ch uint8) Option {
	return func(a *Arp) {
		if ch < 16 {
			a.controlchannelIn = int8(ch)
		}
	}
}

// ChannelIn sets the midi channel to listen to (0-15)
func ChannelIn(ch uint8) Option {
	return func(a *Arp) {
		if ch < 16 {
			a.channelIn = int8(ch)
		}
	}
}

// ChannelOut sets the midi channel the arpeggio is written to
func ChannelOut(ch uint8) Option {
	return func(a *Arp) {
		if ch < 16 {
			a.channelOut = ch
		}
	}
}

// Transpose shifts the incoming notes by the given half notes
func Transpose(halfnotes int8) Option {
	return func(a *Arp) {
		a.transpose = halfnotes
	}
}

// SampleRate sets the rate of the engine clock (default 48000)
func SampleRate(rate float64) Option {
	return func(a *Arp) {
		if rate > 0 {
			a.sampleRate = rate
		}
	}
}

// BlockSize sets the number of frames processed per tick (default 256)
func BlockSize(frames int) Option {
	return func(a *Arp) {
		if frames > 0 {
			a.blockSize = frames
		}
	}
}

// WithControls sets the controls the arpeggiator starts with
func WithControls(c Controls) Option {
	return func(a *Arp) {
		a.controls = c
	}
}

// Seed seeds the random pattern
func Seed(seed int64) Option {
	return func(a *Arp) {
		a.seed = seed
	}
}

// Accents runs the arpeggio through a velocity pattern of up to eight steps.
func Accents(velocities ...uint8) Option {
	return func(a *Arp) {
		a.accents = velocities
	}
}

// Logger sets the logger for control changes and write errors
func Logger(l *logging.Logger) Option {
	return func(a *Arp) {
		if l != nil {
			a.logger = l
		}
	}
}
