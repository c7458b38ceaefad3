package arpeggiator

import (
	"fmt"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/google/uuid"
	"gitlab.com/gomidi/midi"
	"gitlab.com/gomidi/midi/cc"
	"gitlab.com/gomidi/midi/midimessage/channel"
	"gitlab.com/gomidi/midi/reader"
	"gitlab.com/gomidi/midi/writer"

	"gitlab.com/gomidi/arpeggiator/internal/logging"
	"gitlab.com/gomidi/arpeggiator/velpattern"
)

// Status is a snapshot of the arpeggiator, taken after every block.
type Status struct {
	ID            string  `json:"id"`
	Running       bool    `json:"running"`
	NotesPressed  int     `json:"notes_pressed"`
	ActiveNotes   int     `json:"active_notes"`
	HeldNotes     []int   `json:"held_notes"`
	LastNote      int     `json:"last_note"`
	Latched       bool    `json:"latched"`
	BypassedNotes int     `json:"bypassed_notes"`
	ClockBPM      float64 `json:"clock_bpm,omitempty"`
}

type timedMessage struct {
	msg midi.Message
	at  time.Time
}

// Arp runs an Engine between a MIDI in and a MIDI out port. Blocks are
// processed on a ticker at the pace of the sample rate; messages received
// meanwhile go into the next block at its first frame.
type Arp struct {
	id  uuid.UUID
	in  midi.In
	out midi.Out
	wr  *writer.Writer

	engine    *Engine
	transport Transport
	host      Position
	accents   []uint8
	seq       *velpattern.Sequencer
	accentBuf []velpattern.Event
	events    []Event

	sampleRate       float64
	blockSize        int
	channelIn        int8 // -1 = all channels
	controlchannelIn int8 // -1 = same as channelIn
	channelOut       uint8
	transpose        int8
	seed             int64

	handlers []namedHandler
	logger   *logging.Logger
	announce func(func())

	mu       sync.RWMutex
	controls Controls
	status   Status
	running  bool

	messages          chan timedMessage
	finishScheduler   chan bool
	finishedScheduler chan bool
}

// New returns a new Arp, receiving from the given midi.In port and writing to the given midi.Out port
func New(in midi.In, out midi.Out, opts ...Option) *Arp {
	a := &Arp{
		id:                uuid.New(),
		in:                in,
		out:               out,
		host:              Position{BPM: 120},
		sampleRate:        48000,
		blockSize:         256,
		channelIn:         -1,
		controlchannelIn:  -1,
		seed:              1,
		controls:          DefaultControls(),
		logger:            logging.Default(),
		announce:          debounce.New(250 * time.Millisecond),
		messages:          make(chan timedMessage, 1024),
		finishScheduler:   make(chan bool),
		finishedScheduler: make(chan bool),
	}

	CCPattern(cc.GeneralPurposeSlider1)(a)
	CCDivision(cc.GeneralPurposeSlider2)(a)
	CCNoteLength(cc.GeneralPurposeSlider3)(a)
	CCLatch(cc.GeneralPurposeButton1Switch)(a)

	for _, opt := range opts {
		opt(a)
	}

	a.engine = NewEngine(a.sampleRate, OutChannel(a.channelOut), RandomSeed(a.seed))
	if len(a.accents) > 0 {
		a.seq = velpattern.New(a.sampleRate)
	}
	a.status = Status{ID: a.id.String(), LastNote: -1}
	return a
}

// ID returns the instance id.
func (a *Arp) ID() string { return a.id.String() }

func (a *Arp) ControlChannel() int8 {
	if a.controlchannelIn < 0 {
		return a.channelIn
	}
	return a.controlchannelIn
}

// Controls returns the current controls.
func (a *Arp) Controls() Controls {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.controls
}

// SetControls replaces the controls; they take effect with the next block.
func (a *Arp) SetControls(c Controls) {
	a.mu.Lock()
	a.controls = c
	a.mu.Unlock()
	a.announceControls(c)
}

// Status returns the snapshot of the last processed block.
func (a *Arp) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s := a.status
	s.HeldNotes = append([]int(nil), a.status.HeldNotes...)
	return s
}

func (a *Arp) announceControls(c Controls) {
	a.announce(func() {
		a.logger.Infof("controls: %s", c)
	})
}

func (a *Arp) Run() error {
	if !a.in.IsOpen() {
		return fmt.Errorf("midi in port no %v (%s) is not opened, please open before calling arp.Run", a.in.Number(), a.in.String())
	}

	if !a.out.IsOpen() {
		return fmt.Errorf("midi out port no %v (%s) is not opened, please open before calling arp.Run", a.out.Number(), a.out.String())
	}

	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("arpeggiator %s is already running", a.id)
	}
	a.wr = writer.New(a.out)
	a.wr.SetChannel(a.channelOut)
	a.running = true
	a.status.Running = true
	a.mu.Unlock()

	rd := reader.New(
		reader.NoLogger(),
		reader.Each(func(p *reader.Position, msg midi.Message) {
			a.messages <- timedMessage{msg: msg, at: time.Now()}
		}),
	)

	if err := rd.ListenTo(a.in); err != nil {
		a.mu.Lock()
		a.running = false
		a.status.Running = false
		a.mu.Unlock()
		return fmt.Errorf("listening to %s: %w", a.in, err)
	}

	go a.schedule()

	a.logger.Debugf("arpeggiator %s running: %d frames per block at %v Hz", a.id, a.blockSize, a.sampleRate)
	return nil
}

// Close stops listening, releases the sounding notes and silences the out port.
func (a *Arp) Close() error {
	err := a.in.StopListening()

	a.mu.Lock()
	running := a.running
	a.running = false
	a.status.Running = false
	a.mu.Unlock()

	if !running {
		return err
	}

	a.finishScheduler <- true
	<-a.finishedScheduler

	if serr := a.wr.Silence(-1, true); serr != nil && err == nil {
		err = serr
	}
	return err
}

func (a *Arp) schedule() {
	interval := time.Duration(float64(a.blockSize) / a.sampleRate * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.finishScheduler:
			a.logger.Debugf("releasing %d sounding notes", a.engine.Sounding())
			a.write(a.engine.Flush(0))
			a.engine.Reset()
			if a.seq != nil {
				a.seq = velpattern.New(a.sampleRate)
			}
			a.finishedScheduler <- true
			return
		case <-ticker.C:
			a.block()
		}
	}
}

// block processes the messages received since the last tick.
func (a *Arp) block() {
	a.events = a.events[:0]

loop:
	for {
		select {
		case m := <-a.messages:
			a.handleMessage(m)
		default:
			break loop
		}
	}

	ctl := a.Controls()
	out := a.engine.Process(a.blockSize, a.events, ctl)
	if a.seq != nil {
		out = a.accent(out, ctl)
	}
	a.write(out)

	a.mu.Lock()
	a.status.NotesPressed = a.engine.NotesPressed()
	a.status.ActiveNotes = a.engine.ActiveNotes()
	a.status.LastNote = a.engine.LastNote()
	a.status.Latched = a.engine.Latched()
	a.status.BypassedNotes = a.engine.BypassedNotes()
	a.status.HeldNotes = a.status.HeldNotes[:0]
	for _, n := range a.engine.HeldNotes() {
		a.status.HeldNotes = append(a.status.HeldNotes, int(n))
	}
	if bpm, ok := a.transport.BPM(); ok {
		a.status.ClockBPM = bpm
	}
	a.mu.Unlock()
}

func (a *Arp) handleMessage(m timedMessage) {
	msg := m.msg

	// clock messages are forwarded as well
	if pos, ok := a.transport.Feed(msg, m.at); ok {
		a.events = append(a.events, PositionEvent(0, pos))
		a.follow(pos)
		a.writeMsg(msg)
		return
	}

	chMsg, isCh := msg.(channel.Message)
	if !isCh {
		a.writeMsg(msg)
		return
	}

	a.mu.Lock()
	consumed := false
	for _, h := range a.handlers {
		if h.fn(msg, &a.controls) {
			consumed = true
			break
		}
	}
	ctl := a.controls
	a.mu.Unlock()

	if consumed {
		a.announceControls(ctl)
		return
	}

	if a.channelIn >= 0 && uint8(a.channelIn) != chMsg.Channel() {
		a.writeMsg(msg) // pass through
		return
	}

	switch v := msg.(type) {
	case channel.NoteOn, channel.NoteOff, channel.NoteOffVelocity:
		a.events = append(a.events, NoteEvent(0, a._transpose(msg, a.transpose)))
	case channel.ControlChange:
		if v.Controller() == ccAllNotesOff {
			a.events = append(a.events, NoteEvent(0, msg))
			return
		}
		a.writeMsg(msg)
	default:
		a.writeMsg(msg)
	}
}

// follow keeps the transport state the accent pattern syncs to.
func (a *Arp) follow(pos Position) {
	if pos.HasBPM {
		a.host.BPM = pos.BPM
	}
	if pos.HasSpeed {
		a.host.Speed = pos.Speed
	}
	if pos.HasBeat {
		a.host.BeatInMeasure = pos.BeatInMeasure
	}
	if a.seq != nil {
		a.seq.Position(a.host.BPM, a.host.Speed, a.host.BeatInMeasure)
	}
}

// accent runs the arpeggio through the velocity pattern.
func (a *Arp) accent(out []Output, ctl Controls) []Output {
	vc := velpattern.Controls{
		BPM:      ctl.BPM,
		Sync:     ctl.Sync,
		Division: ctl.Division,
		Length:   float32(len(a.accents)),
	}
	for i, v := range a.accents {
		if i < velpattern.Steps {
			vc.Velocities[i] = float32(v)
		}
	}

	a.accentBuf = a.accentBuf[:0]
	for _, o := range out {
		a.accentBuf = append(a.accentBuf, velpattern.Event(o))
	}

	res := a.seq.Process(a.blockSize, a.accentBuf, vc)
	out = out[:0]
	for _, ev := range res {
		out = append(out, Output(ev))
	}
	return out
}

func (a *Arp) write(out []Output) {
	for _, o := range out {
		a.writeMsg(o.Message)
	}
}

func (a *Arp) writeMsg(msg midi.Message) {
	if err := a.wr.Write(msg); err != nil {
		a.logger.Errorf("writing %s: %v", msg, err)
	}
}

func (a *Arp) _transpose(msg midi.Message, transp int8) midi.Message {
	if transp == 0 {
		return msg
	}

	shift := func(key uint8) uint8 {
		k := int(key) + int(transp)
		return uint8(clamp(k, 0, 127))
	}

	switch v := msg.(type) {
	case channel.NoteOn:
		return channel.Channel(v.Channel()).NoteOn(shift(v.Key()), v.Velocity())
	case channel.NoteOff:
		return channel.Channel(v.Channel()).NoteOff(shift(v.Key()))
	case channel.NoteOffVelocity:
		return channel.Channel(v.Channel()).NoteOffVelocity(shift(v.Key()), v.Velocity())
	default:
		return msg
	}
}
