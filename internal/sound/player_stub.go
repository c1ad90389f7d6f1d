//go:build headless

package sound

// Player is unavailable in headless builds
type Player struct{}

// NewPlayer always fails in headless builds
func NewPlayer(synth *Synth) (*Player, error) {
	return nil, ErrAudioUnavailable
}

func (p *Player) Read(buf []byte) (int, error) {
	clear(buf)
	return len(buf), nil
}

func (p *Player) Start() {}

func (p *Player) Close() error { return nil }

func (p *Player) IsStarted() bool { return false }
