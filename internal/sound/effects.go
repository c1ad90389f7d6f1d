// Package sound decodes the cabinet's sound-trigger ports and synthesizes the
// discrete sound effects of the original board.
package sound

import (
	"errors"
	"fmt"
)

// ErrAudioUnavailable is returned by NewPlayer when the build or host has no
// audio output
var ErrAudioUnavailable = errors.New("audio output unavailable")

// Effect identifies one of the board's discrete sound circuits
type Effect int

const (
	EffectUFO Effect = iota
	EffectShot
	EffectPlayerDie
	EffectInvaderDie
	EffectExtendedPlay
	EffectFleet1
	EffectFleet2
	EffectFleet3
	EffectFleet4
	EffectUFOHit

	numEffects
)

var effectNames = [numEffects]string{
	"ufo",
	"shot",
	"playerdie",
	"invaderdie",
	"extendedplay",
	"fleet1",
	"fleet2",
	"fleet3",
	"fleet4",
	"ufohit",
}

func (e Effect) String() string {
	if e >= 0 && e < numEffects {
		return effectNames[e]
	}
	return fmt.Sprintf("Effect(%d)", int(e))
}

// Loops reports whether the effect sounds for as long as its trigger bit is
// held high
func (e Effect) Loops() bool {
	return e == EffectUFO
}

// Trigger bits of output ports 3 and 5
var (
	port3Effects = [5]Effect{EffectUFO, EffectShot, EffectPlayerDie, EffectInvaderDie, EffectExtendedPlay}
	port5Effects = [5]Effect{EffectFleet1, EffectFleet2, EffectFleet3, EffectFleet4, EffectUFOHit}
)

// Sound output ports
const (
	Port3 = 3
	Port5 = 5
)
