package sound

import (
	"log"
	"sync/atomic"
)

// Sink receives decoded sound events
type Sink interface {
	Start(effect Effect)
	Stop(effect Effect)
}

// Decoder turns output-port writes into sound events. A rising edge on a
// trigger bit starts its effect; a falling edge stops looping effects.
//
// Observe runs on the execution goroutine. The sink must be safe to use from
// there.
type Decoder struct {
	sink  Sink
	muted atomic.Bool

	counts [numEffects]atomic.Uint64

	logger       *log.Logger
	debugEnabled bool
}

// NewDecoder creates a decoder feeding sink. A nil sink only counts events.
func NewDecoder(sink Sink) *Decoder {
	return &Decoder{sink: sink, logger: log.Default()}
}

// Observe has the shape of ports.OutputWatcher
func (d *Decoder) Observe(port, old, value uint8) {
	var effects *[5]Effect
	switch port {
	case Port3:
		effects = &port3Effects
	case Port5:
		effects = &port5Effects
	default:
		return
	}

	rising := value &^ old
	falling := old &^ value
	for bit, effect := range effects {
		mask := uint8(1) << bit
		switch {
		case rising&mask != 0:
			d.counts[effect].Add(1)
			if d.debugEnabled {
				d.logger.Printf("[SOUND_DEBUG] port %d bit %d start %s", port, bit, effect)
			}
			if d.sink != nil && !d.muted.Load() {
				d.sink.Start(effect)
			}
		case falling&mask != 0 && effect.Loops():
			if d.sink != nil {
				d.sink.Stop(effect)
			}
		}
	}
}

// Count returns how many times an effect has been triggered. It is safe to
// call from any goroutine.
func (d *Decoder) Count(effect Effect) uint64 {
	if effect < 0 || effect >= numEffects {
		return 0
	}
	return d.counts[effect].Load()
}

// SetMuted suppresses new effects while still counting them. It is safe to
// call from any goroutine.
func (d *Decoder) SetMuted(muted bool) {
	d.muted.Store(muted)
}

// SetLogger replaces the debug logger
func (d *Decoder) SetLogger(logger *log.Logger) {
	if logger != nil {
		d.logger = logger
	}
}

// EnableDebug enables logging of every decoded trigger
func (d *Decoder) EnableDebug(enable bool) {
	d.debugEnabled = enable
}
