// Package input implements the Space Invaders cabinet controls and DIP
// switches as seen through input ports 0-2.
package input

import (
	"fmt"
	"log"
	"strings"
)

// Button represents a cabinet control
type Button uint16

const (
	ButtonCoin Button = 1 << iota
	ButtonP2Start
	ButtonP1Start
	ButtonP1Fire
	ButtonP1Left
	ButtonP1Right
	ButtonTilt
	ButtonP2Fire
	ButtonP2Left
	ButtonP2Right
)

// Convenience constants for shorter names used by the graphics layer
const (
	Coin    = ButtonCoin
	P1Start = ButtonP1Start
	P2Start = ButtonP2Start
	Fire    = ButtonP1Fire
	Left    = ButtonP1Left
	Right   = ButtonP1Right
	Tilt    = ButtonTilt
)

var buttonNames = []struct {
	button Button
	name   string
}{
	{ButtonCoin, "coin"},
	{ButtonP2Start, "p2start"},
	{ButtonP1Start, "p1start"},
	{ButtonP1Fire, "p1fire"},
	{ButtonP1Left, "p1left"},
	{ButtonP1Right, "p1right"},
	{ButtonTilt, "tilt"},
	{ButtonP2Fire, "p2fire"},
	{ButtonP2Left, "p2left"},
	{ButtonP2Right, "p2right"},
}

// AllButtons lists every cabinet control
func AllButtons() []Button {
	out := make([]Button, len(buttonNames))
	for i, b := range buttonNames {
		out[i] = b.button
	}
	return out
}

func (b Button) String() string {
	for _, n := range buttonNames {
		if n.button == b {
			return n.name
		}
	}
	return fmt.Sprintf("Button(0x%04X)", uint16(b))
}

// ParseButton resolves a control name as used in the configuration file
func ParseButton(name string) (Button, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, n := range buttonNames {
		if n.name == name {
			return n.button, nil
		}
	}
	return 0, fmt.Errorf("unknown button %q", name)
}

// Port bit positions
const (
	port0Fixed = 0x0E
	port1Fixed = 0x08

	bitCoin    = 0x01
	bitP2Start = 0x02
	bitP1Start = 0x04
	bitTilt    = 0x04
	bitBonus   = 0x08
	bitFire    = 0x10
	bitLeft    = 0x20
	bitRight   = 0x40
	bitNoCoin  = 0x80
)

// DipSwitches holds the operator settings read from port 2
type DipSwitches struct {
	Lives       int  // Ships per game, 3-6
	BonusAt1000 bool // Extra ship at 1000 points instead of 1500
	CoinInfo    bool // Show coin information in the demo
}

// DefaultDipSwitches matches a factory-set cabinet
var DefaultDipSwitches = DipSwitches{
	Lives:       3,
	BonusAt1000: false,
	CoinInfo:    true,
}

// encode returns the port 2 bits contributed by the switches
func (d DipSwitches) encode() uint8 {
	lives := d.Lives
	if lives < 3 {
		lives = 3
	} else if lives > 6 {
		lives = 6
	}
	bits := uint8(lives - 3)
	if d.BonusAt1000 {
		bits |= bitBonus
	}
	if !d.CoinInfo {
		bits |= bitNoCoin
	}
	return bits
}

// PortSetter receives input port values. The CPU satisfies it.
type PortSetter interface {
	SetInput(index int, value uint8) error
}

// Panel is the cabinet control panel. It is owned by the host goroutine.
type Panel struct {
	buttons Button
	dips    DipSwitches

	debugEnabled bool
}

// New creates a panel with no controls pressed
func New(dips DipSwitches) *Panel {
	return &Panel{dips: dips}
}

// SetButton sets the state of a control
func (p *Panel) SetButton(button Button, pressed bool) {
	old := p.buttons
	if pressed {
		p.buttons |= button
	} else {
		p.buttons &^= button
	}

	if p.debugEnabled && old != p.buttons {
		log.Printf("[INPUT_DEBUG] %s pressed=%t buttons=0x%04X", button, pressed, uint16(p.buttons))
	}
}

// IsPressed returns true if the control is currently held
func (p *Panel) IsPressed(button Button) bool {
	return p.buttons&button != 0
}

// SetDipSwitches replaces the operator settings
func (p *Panel) SetDipSwitches(dips DipSwitches) {
	p.dips = dips
}

// DipSwitches returns the operator settings
func (p *Panel) DipSwitches() DipSwitches {
	return p.dips
}

func (p *Panel) bit(button Button, mask uint8) uint8 {
	if p.IsPressed(button) {
		return mask
	}
	return 0
}

// Ports returns the values of input ports 0, 1 and 2
func (p *Panel) Ports() [3]uint8 {
	port0 := uint8(port0Fixed) |
		p.bit(ButtonP1Fire, bitFire) |
		p.bit(ButtonP1Left, bitLeft) |
		p.bit(ButtonP1Right, bitRight)

	port1 := uint8(port1Fixed) |
		p.bit(ButtonCoin, bitCoin) |
		p.bit(ButtonP2Start, bitP2Start) |
		p.bit(ButtonP1Start, bitP1Start) |
		p.bit(ButtonP1Fire, bitFire) |
		p.bit(ButtonP1Left, bitLeft) |
		p.bit(ButtonP1Right, bitRight)

	port2 := p.dips.encode() |
		p.bit(ButtonTilt, bitTilt) |
		p.bit(ButtonP2Fire, bitFire) |
		p.bit(ButtonP2Left, bitLeft) |
		p.bit(ButtonP2Right, bitRight)

	return [3]uint8{port0, port1, port2}
}

// Apply writes the panel state to input ports 0-2
func (p *Panel) Apply(setter PortSetter) error {
	for i, value := range p.Ports() {
		if err := setter.SetInput(i, value); err != nil {
			return fmt.Errorf("input port %d: %w", i, err)
		}
	}
	return nil
}

// Reset releases every control
func (p *Panel) Reset() {
	p.buttons = 0
}

// EnableDebug enables debug logging of control changes
func (p *Panel) EnableDebug(enable bool) {
	p.debugEnabled = enable
}
