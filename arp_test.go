package arpeggiator_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"gitlab.com/gomidi/arpeggiator"
	"gitlab.com/gomidi/arpeggiator/internal/logging"
	"gitlab.com/gomidi/midi"
	"gitlab.com/gomidi/midi/cc"
	"gitlab.com/gomidi/midi/reader"
	"gitlab.com/gomidi/midi/testdrv"
	"gitlab.com/gomidi/midi/writer"
)

type cable struct {
	midi.Driver
	in  midi.In
	out midi.Out
}

func newCable(name string) *cable {
	var c cable
	c.Driver = testdrv.New("fake cable: " + name)
	ins, _ := c.Driver.Ins()
	outs, _ := c.Driver.Outs()
	c.in, c.out = ins[0], outs[0]
	c.in.Open()
	c.out.Open()
	return &c
}

type arpTester struct {
	arp *arpeggiator.Arp
	rd  *reader.Reader
	*writer.Writer
	cable1 *cable
	cable2 *cable

	mx    sync.Mutex
	lines []string
}

func newArpTester(opts ...arpeggiator.Option) *arpTester {
	var at arpTester
	at.cable1 = newCable("write to arp")
	at.cable2 = newCable("read from arp")
	at.rd = reader.New(
		reader.NoLogger(),
		reader.Each(func(p *reader.Position, msg midi.Message) {
			at.mx.Lock()
			at.lines = append(at.lines, msg.String())
			at.mx.Unlock()
		}),
	)

	// fast steps keep the tests short: 240 bpm, 8 steps per beat, 1500 frames
	ctl := arpeggiator.DefaultControls()
	ctl.BPM = 240
	ctl.Division = 16

	opts = append([]arpeggiator.Option{
		arpeggiator.WithControls(ctl),
		arpeggiator.Logger(logging.Discard()),
	}, opts...)

	at.arp = arpeggiator.New(at.cable1.in, at.cable2.out, opts...)
	at.Writer = writer.New(at.cable1.out)
	return &at
}

func (at *arpTester) Run(t *testing.T) {
	if err := at.rd.ListenTo(at.cable2.in); err != nil {
		t.Fatal(err)
	}
	if err := at.arp.Run(); err != nil {
		t.Fatal(err)
	}
}

func (at *arpTester) Close() {
	at.arp.Close()
	at.cable1.Close()
	at.cable2.Close()
}

func (at *arpTester) Lines() []string {
	at.mx.Lock()
	defer at.mx.Unlock()
	return append([]string(nil), at.lines...)
}

// waitFor polls until n lines were received or a second has passed.
func (at *arpTester) waitFor(n int) []string {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if lines := at.Lines(); len(lines) >= n {
			return lines[:n]
		}
		time.Sleep(5 * time.Millisecond)
	}
	return at.Lines()
}

func TestArp(t *testing.T) {
	var a *arpTester

	var tests = []struct {
		opts     []arpeggiator.Option
		fn       func()
		descr    string
		expected string
	}{
		{
			nil,
			func() { writer.Pitchbend(a, 1000) },
			"pitchbend passthrough",
			"channel.Pitchbend channel 0 value 1000 absValue 9192\n",
		},
		{
			nil,
			func() { writer.NoteOn(a, 60, 90) },
			"single note repeated",
			`channel.NoteOn channel 0 key 60 velocity 100
channel.NoteOff channel 0 key 60
channel.NoteOn channel 0 key 60 velocity 100
channel.NoteOff channel 0 key 60
`,
		},
		{
			nil,
			func() {
				writer.NoteOn(a, 60, 90)
				writer.NoteOn(a, 64, 90)
			},
			"2 arp notes upward",
			`channel.NoteOn channel 0 key 60 velocity 100
channel.NoteOff channel 0 key 60
channel.NoteOn channel 0 key 64 velocity 100
channel.NoteOff channel 0 key 64
channel.NoteOn channel 0 key 60 velocity 100
`,
		},
		{
			[]arpeggiator.Option{arpeggiator.Transpose(-12), arpeggiator.ChannelOut(3)},
			func() { writer.NoteOn(a, 60, 90) },
			"transposed to channel 3",
			`channel.NoteOn channel 3 key 48 velocity 100
channel.NoteOff channel 3 key 48
`,
		},
		{
			[]arpeggiator.Option{arpeggiator.ChannelIn(1)},
			func() { writer.NoteOn(a, 60, 90) },
			"other channels pass through",
			"channel.NoteOn channel 0 key 60 velocity 90\n",
		},
		{
			nil,
			func() {
				writer.ControlChange(a, cc.GeneralPurposeSlider1, 30)
				writer.ControlChange(a, 7, 100)
			},
			"mapped controllers are not forwarded",
			"channel.ControlChange channel 0 controller 7 (\"Volume (MSB)\") value 100\n",
		},
		{
			[]arpeggiator.Option{arpeggiator.Accents(127, 40)},
			func() { writer.NoteOn(a, 60, 90) },
			"accents",
			`channel.NoteOn channel 0 key 60 velocity 127
channel.NoteOff channel 0 key 60
channel.NoteOn channel 0 key 60 velocity 40
channel.NoteOff channel 0 key 60
channel.NoteOn channel 0 key 60 velocity 127
`,
		},
	}

	for i, test := range tests {
		a = newArpTester(test.opts...)
		a.Run(t)
		test.fn()

		n := strings.Count(test.expected, "\n")
		got := a.waitFor(n)
		a.Close()

		result := strings.Join(got, "\n") + "\n"

		if result != test.expected {
			t.Errorf("[%v] %s\ngot:\n%s\nexpected:\n%s", i, test.descr, result, test.expected)
		}
	}
}

const spreadController = 19

func TestArpControls(t *testing.T) {
	a := newArpTester(arpeggiator.CCOctaveSpread(spreadController), arpeggiator.NoteLatch(0))
	a.Run(t)
	defer a.Close()

	writer.ControlChange(a, cc.GeneralPurposeSlider1, 30)
	writer.ControlChange(a, spreadController, 127)
	writer.NoteOn(a, 0, 100)
	writer.NoteOff(a, 0)

	var ctl arpeggiator.Controls
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		ctl = a.arp.Controls()
		if ctl.Latch == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if ctl.Pattern != float32(arpeggiator.PatternDown) {
		t.Errorf("pattern = %v; expected down", ctl.Pattern)
	}
	if ctl.OctaveSpread != 4 {
		t.Errorf("octave spread = %v; expected 4", ctl.OctaveSpread)
	}
	if ctl.Latch != 1 {
		t.Errorf("latch key did not switch the latch on")
	}
	if lines := a.Lines(); len(lines) != 0 {
		t.Errorf("control messages were forwarded: %v", lines)
	}
}

func TestArpStatus(t *testing.T) {
	a := newArpTester()
	a.Run(t)
	defer a.Close()

	writer.NoteOn(a, 64, 100)
	writer.NoteOn(a, 60, 100)

	var st arpeggiator.Status
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		st = a.arp.Status()
		if st.NotesPressed == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if st.ID != a.arp.ID() || !st.Running {
		t.Errorf("unexpected status %+v", st)
	}
	if len(st.HeldNotes) != 2 || st.HeldNotes[0] != 60 || st.HeldNotes[1] != 64 {
		t.Errorf("held notes = %v; expected [60 64]", st.HeldNotes)
	}
}

func TestArpRunNeedsOpenPorts(t *testing.T) {
	c := newCable("closed")
	c.in.Close()

	arp := arpeggiator.New(c.in, c.out)
	if err := arp.Run(); err == nil {
		t.Errorf("expected an error for a closed in port")
	}
	c.Close()
}

func TestArpListensRightAfterRun(t *testing.T) {
	a := newArpTester()
	a.Run(t)
	defer a.Close()

	if err := writer.Pitchbend(a, 500); err != nil {
		t.Fatalf("writing right after Run: %v", err)
	}

	got := a.waitFor(1)
	expected := "channel.Pitchbend channel 0 value 500 absValue 8692"
	if len(got) != 1 || got[0] != expected {
		t.Errorf("got %q; expected [%q]", got, expected)
	}
}
