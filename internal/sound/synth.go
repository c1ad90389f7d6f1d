package sound

import (
	"math"
	"sync"
)

// DefaultSampleRate is the output rate used by the player
const DefaultSampleRate = 44100

type waveform int

const (
	waveSquare waveform = iota
	waveNoise
)

// tone describes how an effect is rendered
type tone struct {
	wave    waveform
	startHz float64
	endHz   float64
	seconds float64
	decay   bool
}

var tones = [numEffects]tone{
	EffectUFO:          {waveSquare, 380, 720, 0.20, false},
	EffectShot:         {waveSquare, 1400, 220, 0.25, true},
	EffectPlayerDie:    {waveNoise, 2400, 600, 1.00, true},
	EffectInvaderDie:   {waveNoise, 6000, 3000, 0.30, true},
	EffectExtendedPlay: {waveSquare, 1000, 1000, 0.60, false},
	EffectFleet1:       {waveSquare, 98, 92, 0.09, true},
	EffectFleet2:       {waveSquare, 87, 82, 0.09, true},
	EffectFleet3:       {waveSquare, 78, 73, 0.09, true},
	EffectFleet4:       {waveSquare, 69, 65, 0.09, true},
	EffectUFOHit:       {waveSquare, 1200, 300, 1.00, true},
}

type voice struct {
	active bool
	pos    int
	length int
	phase  float64
	noise  uint16
	level  float32
}

// Synth mixes the active effects into mono float32 samples. Start and Stop
// are called from the execution goroutine, Fill from the audio goroutine.
type Synth struct {
	mu         sync.Mutex
	sampleRate int
	volume     float32
	voices     [numEffects]voice
}

// NewSynth creates a synthesizer for the given sample rate and master volume
// (0.0-1.0)
func NewSynth(sampleRate int, volume float32) *Synth {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Synth{
		sampleRate: sampleRate,
		volume:     clampVolume(volume),
	}
}

func clampVolume(v float32) float32 {
	return float32(math.Max(0, math.Min(1, float64(v))))
}

// SampleRate returns the output rate
func (s *Synth) SampleRate() int {
	return s.sampleRate
}

// SetVolume changes the master volume
func (s *Synth) SetVolume(volume float32) {
	s.mu.Lock()
	s.volume = clampVolume(volume)
	s.mu.Unlock()
}

// Start restarts an effect from its beginning
func (s *Synth) Start(effect Effect) {
	if effect < 0 || effect >= numEffects {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	v := &s.voices[effect]
	v.active = true
	v.pos = 0
	v.length = int(tones[effect].seconds * float64(s.sampleRate))
	v.phase = 0
	v.noise = 0xACE1
}

// Stop silences an effect
func (s *Synth) Stop(effect Effect) {
	if effect < 0 || effect >= numEffects {
		return
	}
	s.mu.Lock()
	s.voices[effect].active = false
	s.mu.Unlock()
}

// Active reports whether an effect is currently sounding
func (s *Synth) Active(effect Effect) bool {
	if effect < 0 || effect >= numEffects {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voices[effect].active
}

// Fill overwrites buf with the next mixed samples in the range [-1, 1]
func (s *Synth) Fill(buf []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(buf)
	for e := range s.voices {
		v := &s.voices[e]
		if !v.active {
			continue
		}
		t := tones[e]
		loops := Effect(e).Loops()
		for i := range buf {
			if v.pos >= v.length {
				if !loops {
					v.active = false
					break
				}
				v.pos = 0
			}
			buf[i] += s.sample(v, t, loops)
			v.pos++
		}
	}

	for i := range buf {
		x := buf[i] * s.volume * 0.3
		if x > 1 {
			x = 1
		} else if x < -1 {
			x = -1
		}
		buf[i] = x
	}
}

// sample advances a voice by one output sample
func (s *Synth) sample(v *voice, t tone, loops bool) float32 {
	progress := float64(v.pos) / float64(v.length)
	if loops {
		// Siren: sweep up for the first half, back down for the second
		progress = 1 - math.Abs(2*progress-1)
	}
	freq := t.startHz + (t.endHz-t.startHz)*progress

	amp := float32(1)
	if t.decay {
		amp = float32(1 - float64(v.pos)/float64(v.length))
	}

	v.phase += freq / float64(s.sampleRate)
	switch t.wave {
	case waveNoise:
		for v.phase >= 1 {
			v.phase--
			bit := (v.noise ^ v.noise>>2 ^ v.noise>>3 ^ v.noise>>5) & 1
			v.noise = v.noise>>1 | bit<<15
			v.level = float32(v.noise&1)*2 - 1
		}
		return v.level * amp
	default:
		v.phase -= math.Floor(v.phase)
		if v.phase < 0.5 {
			return amp
		}
		return -amp
	}
}
