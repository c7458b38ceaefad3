package clock

import "testing"

func TestPeriod(t *testing.T) {
	var tests = []struct {
		sampleRate, bpm, division float64
		expected                  uint32
	}{
		{48000, 120, 4, 12000},
		{48000, 120, 2, 24000},
		{44100, 60, 1, 88200},
		{48000, 120, 0, 48000},  // division 0 treated as 1
		{48000, 0, 4, 1440000}, // bpm 0 treated as 1
		{10, 1000000, 16, minPeriod},
	}

	for i, test := range tests {
		got := Period(test.sampleRate, test.bpm, test.division)
		if got != test.expected {
			t.Errorf("[%v] Period(%v, %v, %v) = %v; expected %v", i, test.sampleRate, test.bpm, test.division, got, test.expected)
		}
	}
}

func TestPhaseIsIdempotent(t *testing.T) {
	for _, beat := range []float64{0, 0.25, 1, 1.5, 2.75, 3.999} {
		a := Phase(48000, 133, 3, beat)
		b := Phase(48000, 133, 3, beat)
		if a != b {
			t.Errorf("Phase for beat %v not stable: %v != %v", beat, a, b)
		}
		if p := Period(48000, 133, 3); a >= p {
			t.Errorf("Phase for beat %v = %v outside period %v", beat, a, p)
		}
	}
}

func TestPhase(t *testing.T) {
	// one beat at 120 bpm is 24000 frames, two steps of 12000
	if got := Phase(48000, 120, 4, 1.25); got != 6000 {
		t.Errorf("Phase(1.25) = %v; expected 6000", got)
	}
}

func TestStepFiresOncePerPeriod(t *testing.T) {
	c := New(48000)
	var fired []int

	for i := 0; i < 36000; i++ {
		if c.Step(false, false) {
			fired = append(fired, i)
		}
	}

	expected := []int{0, 12000, 24000}
	if len(fired) != len(expected) {
		t.Fatalf("fired at %v; expected %v", fired, expected)
	}
	for i := range expected {
		if fired[i] != expected[i] {
			t.Errorf("trigger %d at %v; expected %v", i, fired[i], expected[i])
		}
	}
}

func TestStepHoldAndForce(t *testing.T) {
	c := New(48000)

	for i := 0; i < 10; i++ {
		if c.Step(true, false) {
			t.Fatalf("fired while held at frame %d", i)
		}
	}

	if !c.Step(true, true) {
		t.Fatalf("forced step did not fire")
	}

	if c.Step(false, false) {
		t.Errorf("fired twice in the same window")
	}
}

func TestResyncFollowsBeat(t *testing.T) {
	c := New(48000)
	c.SetBeat(0.5)
	c.Resync()
	if got := c.Position(); got != 0 {
		t.Errorf("position = %v; expected 0", got)
	}

	c.SetBeat(0.75)
	c.Resync()
	if got := c.Position(); got != 6000 {
		t.Errorf("position = %v; expected 6000", got)
	}
}

func TestSetDivisionReportsChange(t *testing.T) {
	c := New(48000)
	if c.SetDivision(4) {
		t.Errorf("unchanged division reported as changed")
	}
	if !c.SetDivision(8) {
		t.Errorf("changed division not reported")
	}
	if got := c.Period(); got != 6000 {
		t.Errorf("period = %v; expected 6000", got)
	}
	if c.SetTempo(-3) != true || c.Tempo() != 1 {
		t.Errorf("negative tempo not replaced by 1, got %v", c.Tempo())
	}
}

func TestTriggerWindow(t *testing.T) {
	c := New(48000)
	if !c.SetDivision(8) || c.Division() != 8 {
		t.Fatalf("division not changed: %v", c.Division())
	}
	if c.Period() != 6000 || c.HalfPeriod() != 3000 {
		t.Fatalf("period %v half %v; expected 6000 and 3000", c.Period(), c.HalfPeriod())
	}

	for i := 0; i < 3001; i++ {
		c.Step(false, false)
	}
	if !c.Triggered() {
		t.Errorf("window closed at position %v", c.Position())
	}

	c.Step(false, false)
	if c.Triggered() {
		t.Errorf("window still open at position %v", c.Position())
	}
}
