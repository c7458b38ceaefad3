package arpeggiator

import (
	"fmt"
	"io"
	"math"
	"os"

	"gitlab.com/gomidi/midi/midimessage/channel"
	"gitlab.com/gomidi/midi/smf"
	"gitlab.com/gomidi/midi/smf/smfwriter"
	"gitlab.com/gomidi/midi/writer"

	"gitlab.com/gomidi/arpeggiator/velpattern"
)

// TicksPerQuarter is the resolution of the written MIDI files.
const TicksPerQuarter = 960

type renderConfig struct {
	sampleRate float64
	blockSize  int
	engine     []EngineOption
	accents    []uint8
}

type RenderOption func(r *renderConfig)

// RenderSampleRate sets the sample rate of the rendering (default 48000).
func RenderSampleRate(rate float64) RenderOption {
	return func(r *renderConfig) {
		if rate > 0 {
			r.sampleRate = rate
		}
	}
}

// RenderBlockSize sets the frames per processed block (default 512).
func RenderBlockSize(frames int) RenderOption {
	return func(r *renderConfig) {
		if frames > 0 {
			r.blockSize = frames
		}
	}
}

// RenderEngine passes options to the engine.
func RenderEngine(opts ...EngineOption) RenderOption {
	return func(r *renderConfig) {
		r.engine = append(r.engine, opts...)
	}
}

// RenderAccents runs the arpeggio through a velocity pattern.
func RenderAccents(velocities ...uint8) RenderOption {
	return func(r *renderConfig) {
		r.accents = velocities
	}
}

// Render plays the arpeggio of a chord held for the given number of frames.
// The frames of the returned messages count from the start of the
// rendering. Notes still sounding at the end are released on the last frame.
func Render(ctl Controls, notes []uint8, frames int, opts ...RenderOption) []Output {
	cfg := renderConfig{sampleRate: 48000, blockSize: 512}
	for _, opt := range opts {
		opt(&cfg)
	}

	e := NewEngine(cfg.sampleRate, cfg.engine...)

	var seq *velpattern.Sequencer
	var vc velpattern.Controls
	if len(cfg.accents) > 0 {
		seq = velpattern.New(cfg.sampleRate)
		vc = velpattern.Controls{BPM: ctl.BPM, Division: ctl.Division, Length: float32(len(cfg.accents))}
		for i, v := range cfg.accents {
			if i < velpattern.Steps {
				vc.Velocities[i] = float32(v)
			}
		}
	}

	var events []Event
	for _, n := range notes {
		events = append(events, NoteEvent(0, channel.Channel0.NoteOn(n&0x7F, 100)))
	}

	var res []Output
	var acc []velpattern.Event
	for start := 0; start < frames; start += cfg.blockSize {
		n := cfg.blockSize
		if start+n > frames {
			n = frames - start
		}

		out := e.Process(n, events, ctl)
		events = nil

		if seq != nil {
			acc = acc[:0]
			for _, o := range out {
				acc = append(acc, velpattern.Event(o))
			}
			out = out[:0]
			for _, ev := range seq.Process(n, acc, vc) {
				out = append(out, Output(ev))
			}
		}

		for _, o := range out {
			o.Frame += uint32(start)
			res = append(res, o)
		}
	}

	last := uint32(0)
	if frames > 0 {
		last = uint32(frames - 1)
	}
	res = append(res, e.Flush(last)...)
	return res
}

// FrameToTick converts a frame to a tick of a file with TicksPerQuarter resolution.
func FrameToTick(frame uint32, sampleRate, bpm float64) uint32 {
	if sampleRate <= 0 || bpm <= 0 {
		return 0
	}
	return uint32(math.Round(float64(frame) / sampleRate * bpm / 60 * TicksPerQuarter))
}

// EncodeSMF writes the rendered messages as a single track Standard MIDI File.
func EncodeSMF(dest io.Writer, bpm, sampleRate float64, events []Output) error {
	wr := writer.NewSMF(dest, 1, smfwriter.TimeFormat(smf.MetricTicks(TicksPerQuarter)))

	if err := writer.TempoBPM(wr, bpm); err != nil {
		return err
	}

	var last uint32
	for _, ev := range events {
		tick := FrameToTick(ev.Frame, sampleRate, bpm)
		if tick < last {
			tick = last
		}
		wr.SetDelta(tick - last)
		last = tick
		if err := wr.Write(ev.Message); err != nil {
			return fmt.Errorf("writing %s: %w", ev.Message, err)
		}
	}

	// the writer reports a completed file as smf.ErrFinished
	if err := writer.EndOfTrack(wr); err != nil && err != smf.ErrFinished {
		return err
	}
	return nil
}

// WriteSMF writes the rendered messages to a file.
func WriteSMF(file string, bpm, sampleRate float64, events []Output) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}

	if err := EncodeSMF(f, bpm, sampleRate, events); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", file, err)
	}
	return f.Close()
}
