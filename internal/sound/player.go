//go:build !headless

package sound

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// Player streams a Synth to the host audio device
type Player struct {
	ctx     *oto.Context
	player  *oto.Player
	synth   *Synth
	samples []float32
	started bool
	mutex   sync.Mutex
}

// NewPlayer opens the audio device at the synth's sample rate. Only one
// player may exist per process.
func NewPlayer(synth *Synth) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   synth.SampleRate(),
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAudioUnavailable, err)
	}
	<-ready

	p := &Player{
		ctx:   ctx,
		synth: synth,
	}
	p.player = ctx.NewPlayer(p)
	return p, nil
}

// Read implements io.Reader for the oto player
func (p *Player) Read(buf []byte) (int, error) {
	n := len(buf) / 4
	if cap(p.samples) < n {
		p.samples = make([]float32, n)
	}
	samples := p.samples[:n]
	p.synth.Fill(samples)

	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	return n * 4, nil
}

// Start begins playback
func (p *Player) Start() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.started && p.player != nil {
		p.player.Play()
		p.started = true
	}
}

// Close stops playback and releases the player
func (p *Player) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.started = false
	if p.player == nil {
		return nil
	}
	err := p.player.Close()
	p.player = nil
	return err
}

// IsStarted reports whether playback is running
func (p *Player) IsStarted() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.started
}
