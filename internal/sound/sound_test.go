package sound

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

// recordingSink records decoded events in order
type recordingSink struct {
	events []string
}

func (r *recordingSink) Start(effect Effect) { r.events = append(r.events, "+"+effect.String()) }
func (r *recordingSink) Stop(effect Effect) { r.events = append(r.events, "-"+effect.String()) }

func TestDecoder_RisingEdges(t *testing.T) {
	tests := []struct {
		name     string
		port     uint8
		was, now uint8
		expected []string
	}{
		{"UFO start", 3, 0x00, 0x01, []string{"+ufo"}},
		{"UFO held", 3, 0x01, 0x01, nil},
		{"UFO stop", 3, 0x01, 0x00, []string{"-ufo"}},
		{"Shot", 3, 0x00, 0x02, []string{"+shot"}},
		{"Shot release is silent", 3, 0x02, 0x00, nil},
		{"Player and invader die", 3, 0x00, 0x0C, []string{"+playerdie", "+invaderdie"}},
		{"Extended play", 3, 0x00, 0x10, []string{"+extendedplay"}},
		{"Amplifier bit ignored", 3, 0x00, 0x20, nil},
		{"Fleet 1", 5, 0x00, 0x01, []string{"+fleet1"}},
		{"Fleet step", 5, 0x01, 0x02, []string{"+fleet2"}},
		{"Fleet 3 and 4", 5, 0x00, 0x0C, []string{"+fleet3", "+fleet4"}},
		{"UFO hit", 5, 0x00, 0x10, []string{"+ufohit"}},
		{"Other port", 6, 0x00, 0xFF, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			d := NewDecoder(sink)
			d.Observe(tt.port, tt.was, tt.now)

			if strings.Join(sink.events, ",") != strings.Join(tt.expected, ",") {
				t.Errorf("Expected %v, got %v", tt.expected, sink.events)
			}
		})
	}
}

func TestDecoder_CountsAndMute(t *testing.T) {
	sink := &recordingSink{}
	d := NewDecoder(sink)

	d.Observe(3, 0x00, 0x02)
	d.SetMuted(true)
	d.Observe(3, 0x00, 0x02)
	d.Observe(3, 0x01, 0x00)

	if n := d.Count(EffectShot); n != 2 {
		t.Errorf("Expected 2 shots counted, got %d", n)
	}
	if strings.Join(sink.events, ",") != "+shot,-ufo" {
		t.Errorf("Muted decoder should only stop effects, got %v", sink.events)
	}
	if d.Count(Effect(42)) != 0 {
		t.Error("Unknown effect should have no count")
	}

	counting := NewDecoder(nil)
	counting.Observe(5, 0x00, 0x10)
	if counting.Count(EffectUFOHit) != 1 {
		t.Error("Decoder without sink should still count")
	}
}

func TestDecoder_DebugLog(t *testing.T) {
	var buf bytes.Buffer
	d := NewDecoder(nil)
	d.SetLogger(log.New(&buf, "", 0))
	d.EnableDebug(true)

	d.Observe(3, 0x00, 0x08)
	if !strings.Contains(buf.String(), "[SOUND_DEBUG] port 3 bit 3 start invaderdie") {
		t.Errorf("Unexpected debug output %q", buf.String())
	}
}

func TestEffect_String(t *testing.T) {
	if EffectFleet4.String() != "fleet4" {
		t.Errorf("Unexpected name %q", EffectFleet4.String())
	}
	if Effect(-1).String() != "Effect(-1)" {
		t.Errorf("Unexpected name %q", Effect(-1).String())
	}
	if !EffectUFO.Loops() || EffectShot.Loops() {
		t.Error("Only the UFO effect loops")
	}
}

func TestSynth_SilentWhenIdle(t *testing.T) {
	s := NewSynth(8000, 1.0)
	buf := []float32{0.5, 0.5, 0.5}
	s.Fill(buf)
	for i, v := range buf {
		if v != 0 {
			t.Errorf("Sample %d: expected silence, got %f", i, v)
		}
	}
}

func TestSynth_OneShotEnds(t *testing.T) {
	s := NewSynth(8000, 1.0)
	s.Start(EffectShot)
	if !s.Active(EffectShot) {
		t.Fatal("Shot should be active")
	}

	// 0.25 s at 8 kHz is 2000 samples
	buf := make([]float32, 1000)
	s.Fill(buf)
	nonZero := 0
	for _, v := range buf {
		if v < -1 || v > 1 {
			t.Fatalf("Sample out of range: %f", v)
		}
		if v != 0 {
			nonZero++
		}
	}
	if nonZero == 0 {
		t.Error("Expected audible samples")
	}
	if !s.Active(EffectShot) {
		t.Error("Shot ended early")
	}

	s.Fill(make([]float32, 1001))
	if s.Active(EffectShot) {
		t.Error("Shot should end after its duration")
	}
}

func TestSynth_LoopUntilStopped(t *testing.T) {
	s := NewSynth(8000, 0.5)
	s.Start(EffectUFO)

	buf := make([]float32, 8000)
	s.Fill(buf)
	if !s.Active(EffectUFO) {
		t.Fatal("UFO should keep looping")
	}

	s.Stop(EffectUFO)
	s.Fill(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("Sample %d: expected silence after stop, got %f", i, v)
		}
	}
}

func TestSynth_Volume(t *testing.T) {
	loud := NewSynth(8000, 1.0)
	quiet := NewSynth(8000, 0.25)
	loud.Start(EffectExtendedPlay)
	quiet.Start(EffectExtendedPlay)

	a := make([]float32, 16)
	b := make([]float32, 16)
	loud.Fill(a)
	quiet.Fill(b)
	for i := range a {
		if a[i] != 4*b[i] {
			t.Fatalf("Sample %d: expected quiet = loud/4, got %f and %f", i, a[i], b[i])
		}
	}

	quiet.SetVolume(7)
	if quiet.volume != 1 {
		t.Errorf("Volume should clamp to 1, got %f", quiet.volume)
	}
	if NewSynth(0, 1).SampleRate() != DefaultSampleRate {
		t.Error("Expected default sample rate")
	}
}

func TestDecoderDrivesSynth(t *testing.T) {
	s := NewSynth(8000, 1.0)
	d := NewDecoder(s)

	d.Observe(3, 0x00, 0x01)
	if !s.Active(EffectUFO) {
		t.Error("UFO bit should start the siren")
	}
	d.Observe(3, 0x01, 0x00)
	if s.Active(EffectUFO) {
		t.Error("Clearing the UFO bit should stop the siren")
	}
}
