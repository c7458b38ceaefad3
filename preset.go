package arpeggiator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Preset is a yaml document with control values. Keys that are left out
// keep the value of the controls the preset is applied to.
//
//	name: slow chords
//	bpm: 90
//	pattern: updown
//	division: 8
//	octave_spread: 2
//	octave_mode: downup
//	latch: true
//	accents: [127, 70, 90, 70]
type Preset struct {
	Name         string   `yaml:"name"`
	BPM          *float32 `yaml:"bpm"`
	Sync         *bool    `yaml:"sync"`
	Pattern      string   `yaml:"pattern"`
	Division     *float32 `yaml:"division"`
	NoteLength   *float32 `yaml:"note_length"`
	OctaveSpread *int     `yaml:"octave_spread"`
	OctaveMode   string   `yaml:"octave_mode"`
	Latch        *bool    `yaml:"latch"`
	Velocity     *int     `yaml:"velocity"`
	Enabled      *bool    `yaml:"enabled"`
	TimeOut      *int     `yaml:"time_out"`
	Accents      []uint8  `yaml:"accents"`
}

// LoadPreset reads a preset file.
func LoadPreset(file string) (Preset, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Preset{}, fmt.Errorf("reading preset: %w", err)
	}
	p, err := ParsePreset(data)
	if err != nil {
		return Preset{}, fmt.Errorf("preset %s: %w", file, err)
	}
	return p, nil
}

// ParsePreset parses a preset document. Unknown keys are errors.
func ParsePreset(data []byte) (Preset, error) {
	var p Preset
	if err := yaml.UnmarshalStrict(data, &p); err != nil {
		return Preset{}, err
	}
	if len(p.Accents) > 8 {
		return Preset{}, fmt.Errorf("%d accents given, at most 8 are possible", len(p.Accents))
	}
	return p, nil
}

func switchValue(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

// Apply returns c with the values of the preset.
func (p Preset) Apply(c Controls) (Controls, error) {
	if p.Pattern != "" {
		pt, err := ParsePattern(p.Pattern)
		if err != nil {
			return c, err
		}
		c.Pattern = float32(pt)
	}
	if p.OctaveMode != "" {
		m, err := ParseOctaveMode(p.OctaveMode)
		if err != nil {
			return c, err
		}
		c.OctaveMode = float32(m)
	}

	if p.BPM != nil {
		c.BPM = *p.BPM
	}
	if p.Sync != nil {
		c.Sync = switchValue(*p.Sync)
	}
	if p.Division != nil {
		c.Division = *p.Division
	}
	if p.NoteLength != nil {
		c.NoteLength = *p.NoteLength
	}
	if p.OctaveSpread != nil {
		c.OctaveSpread = float32(*p.OctaveSpread)
	}
	if p.Latch != nil {
		c.Latch = switchValue(*p.Latch)
	}
	if p.Velocity != nil {
		c.Velocity = float32(*p.Velocity)
	}
	if p.Enabled != nil {
		c.Enabled = switchValue(*p.Enabled)
	}
	if p.TimeOut != nil {
		c.TimeOut = float32(*p.TimeOut)
	}
	return c, nil
}
