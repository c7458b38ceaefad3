package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"

	driver "gitlab.com/gomidi/rtmididrv"

	"gitlab.com/gomidi/arpeggiator"
	"gitlab.com/gomidi/arpeggiator/httpctl"
	"gitlab.com/gomidi/arpeggiator/internal/logging"
	"gitlab.com/gomidi/midi"
	config "gitlab.com/metakeule/config"
)

var CONFIG = config.MustNew("arpeggiator", arpeggiator.VERSION, "sample accurate MIDI arpeggiator")

var (
	inArg         = CONFIG.NewInt32("in", "number of the input device", config.Required, config.Shortflag('i'))
	outArg        = CONFIG.NewInt32("out", "number of the output device", config.Required, config.Shortflag('o'))
	transposeArg  = CONFIG.NewInt32("transpose", "transpose (half notes)", config.Default(int32(0)), config.Shortflag('t'))
	channelOutArg = CONFIG.NewInt32("channel", "MIDI channel of the arpeggio (1-16)", config.Default(int32(1)), config.Shortflag('c'))
	presetArg     = CONFIG.NewString("preset", "yaml file with control values", config.Shortflag('p'))
	httpArg       = CONFIG.NewString("http", "address of the HTTP control surface, e.g. localhost:8080")
	bpmArg        = CONFIG.NewFloat32("bpm", "tempo while not synced to the MIDI clock", config.Shortflag('b'))
	patternArg    = CONFIG.NewString("pattern", "up, down, updown, updown-alt, played or random")
	divisionArg   = CONFIG.NewFloat32("division", "steps per two beats", config.Shortflag('d'))
	syncArg       = CONFIG.NewBool("sync", "follow the MIDI clock of the input")
	sampleRateArg = CONFIG.NewInt32("samplerate", "frames per second of the engine clock", config.Default(int32(48000)))
	blockArg      = CONFIG.NewInt32("block", "frames per processed block", config.Default(int32(256)))
	debugArg      = CONFIG.NewBool("debug", "print debug messages")

	listCmd = CONFIG.MustCommand("list", "list devices").Relax("in").Relax("out")

	renderCmd     = CONFIG.MustCommand("render", "render the arpeggio of a chord to a MIDI file").Relax("in").Relax("out")
	renderFileArg = renderCmd.NewString("file", "MIDI file to write", config.Required, config.Shortflag('f'))
	renderNotes   = renderCmd.NewString("notes", "comma separated keys of the chord", config.Default("60,64,67"))
	renderSeconds = renderCmd.NewFloat32("seconds", "length of the rendering", config.Default(float32(4)))
)

func main() {
	err := run()
	if err != nil {

		fmt.Fprintf(os.Stderr, "ERROR: %s\n\n", err.Error())
		os.Exit(1)
		return
	}
	os.Exit(0)
}

func run() error {
	err := CONFIG.Run()

	if err != nil {
		fmt.Fprint(os.Stderr, CONFIG.Usage())
		return err
	}

	logger := logging.New(os.Stderr, debugArg.Get())

	ctl, accents, err := controls()
	if err != nil {
		return err
	}

	if CONFIG.ActiveCommand() == renderCmd {
		return render(ctl, accents)
	}

	drv, err := driver.New()

	if err != nil {
		return err
	}

	// make sure to close all open ports at the end
	defer drv.Close()

	if CONFIG.ActiveCommand() == listCmd {
		listMIDIDevices(drv)
		return nil
	}

	var inPort midi.In = nil
	in := inArg.Get()

	inPort, err = midi.OpenIn(drv, int(in), "")
	if err != nil {
		listMIDIDevices(drv)
		return err
	}

	var outPort midi.Out = nil
	out := outArg.Get()
	outPort, err = midi.OpenOut(drv, int(out), "")
	if err != nil {
		listMIDIDevices(drv)
		return err
	}

	defer inPort.Close()
	defer outPort.Close()

	opts := []arpeggiator.Option{
		arpeggiator.WithControls(ctl),
		arpeggiator.SampleRate(float64(sampleRateArg.Get())),
		arpeggiator.BlockSize(int(blockArg.Get())),
		arpeggiator.Logger(logger),
	}

	if tr := int8(transposeArg.Get()); tr != 0 {
		opts = append(opts, arpeggiator.Transpose(tr))
	}

	if ch := channelOutArg.Get(); ch >= 1 && ch <= 16 {
		opts = append(opts, arpeggiator.ChannelOut(uint8(ch-1)))
	}

	if len(accents) > 0 {
		opts = append(opts, arpeggiator.Accents(accents...))
	}

	arp := arpeggiator.New(inPort, outPort, opts...)

	if err := arp.Run(); err != nil {
		return err
	}
	defer arp.Close()

	logger.Infof("arpeggiator %s: %s", arp.ID(), ctl)

	if addr := httpArg.Get(); addr != "" {
		srv := &http.Server{Addr: addr, Handler: httpctl.NewHandler(arp)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("http: %v", err)
			}
		}()
		defer srv.Close()
		logger.Infof("controls at http://%s/controls", addr)
	}

	sigchan := make(chan os.Signal, 10)

	// listen for ctrl+c
	go signal.Notify(sigchan, os.Interrupt)

	// interrupt has happend
	<-sigchan
	fmt.Println("\n--interrupted!")

	return nil
}

// controls combines the defaults, the preset and the flags, in that order.
func controls() (ctl arpeggiator.Controls, accents []uint8, err error) {
	ctl = arpeggiator.DefaultControls()

	if file := presetArg.Get(); file != "" {
		p, err := arpeggiator.LoadPreset(file)
		if err != nil {
			return ctl, nil, err
		}
		ctl, err = p.Apply(ctl)
		if err != nil {
			return ctl, nil, fmt.Errorf("preset %s: %w", file, err)
		}
		accents = p.Accents
	}

	if bpmArg.IsSet() {
		ctl.BPM = bpmArg.Get()
	}
	if divisionArg.IsSet() {
		ctl.Division = divisionArg.Get()
	}
	if syncArg.IsSet() && syncArg.Get() {
		ctl.Sync = 1
	}
	if name := patternArg.Get(); name != "" {
		p, err := arpeggiator.ParsePattern(name)
		if err != nil {
			return ctl, nil, err
		}
		ctl.Pattern = float32(p)
	}

	return ctl, accents, nil
}

func render(ctl arpeggiator.Controls, accents []uint8) error {
	var notes []uint8
	for _, s := range strings.Split(renderNotes.Get(), ",") {
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 7)
		if err != nil {
			return fmt.Errorf("invalid key %q: %w", s, err)
		}
		notes = append(notes, uint8(n))
	}

	rate := float64(sampleRateArg.Get())
	frames := int(float64(renderSeconds.Get()) * rate)

	events := arpeggiator.Render(ctl, notes, frames,
		arpeggiator.RenderSampleRate(rate),
		arpeggiator.RenderBlockSize(int(blockArg.Get())),
		arpeggiator.RenderAccents(accents...),
	)

	file := renderFileArg.Get()
	if err := arpeggiator.WriteSMF(file, float64(ctl.BPM), rate, events); err != nil {
		return err
	}

	fmt.Printf("%d messages written to %s\n", len(events), file)
	return nil
}

func listMIDIDevices(d midi.Driver) {
	ins, _ := d.Ins()

	fmt.Print("\n--- MIDI input ports ---\n\n")

	for _, port := range ins {
		fmt.Printf("[%d] %#v\n", port.Number(), port.String())
	}

	outs, _ := d.Outs()

	fmt.Print("\n--- MIDI output ports ---\n\n")

	for _, port := range outs {
		fmt.Printf("[%d] %#v\n", port.Number(), port.String())
	}

	fmt.Print("\n\n")
}
