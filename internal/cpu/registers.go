package cpu

import "math/bits"

// PSW flag byte bit masks: S Z 0 AC 0 P 1 CY
const (
	sFlagMask  = 0x80
	zFlagMask  = 0x40
	acFlagMask = 0x10
	pFlagMask  = 0x04
	fixedMask  = 0x02
	cyFlagMask = 0x01
)

// Registers is the programmer-visible register file
type Registers struct {
	A, B, C, D, E, H, L uint8
	SP                  uint16
	PC                  uint16
}

// BC returns the BC register pair
func (r *Registers) BC() uint16 { return uint16(r.B)<<8 | uint16(r.C) }

// DE returns the DE register pair
func (r *Registers) DE() uint16 { return uint16(r.D)<<8 | uint16(r.E) }

// HL returns the HL register pair
func (r *Registers) HL() uint16 { return uint16(r.H)<<8 | uint16(r.L) }

// SetBC sets the BC register pair
func (r *Registers) SetBC(v uint16) { r.B, r.C = uint8(v>>8), uint8(v) }

// SetDE sets the DE register pair
func (r *Registers) SetDE(v uint16) { r.D, r.E = uint8(v>>8), uint8(v) }

// SetHL sets the HL register pair
func (r *Registers) SetHL(v uint16) { r.H, r.L = uint8(v>>8), uint8(v) }

// ConditionCodes holds the five 8080 condition flags
type ConditionCodes struct {
	Z  bool // Zero
	S  bool // Sign
	P  bool // Parity (even)
	CY bool // Carry
	AC bool // Auxiliary carry
}

// Pack returns the flag byte pushed by PUSH PSW
func (f ConditionCodes) Pack() uint8 {
	status := uint8(fixedMask)
	if f.S {
		status |= sFlagMask
	}
	if f.Z {
		status |= zFlagMask
	}
	if f.AC {
		status |= acFlagMask
	}
	if f.P {
		status |= pFlagMask
	}
	if f.CY {
		status |= cyFlagMask
	}
	return status
}

// Unpack loads flags from a byte popped by POP PSW. Fixed bits are ignored.
func (f *ConditionCodes) Unpack(status uint8) {
	f.S = status&sFlagMask != 0
	f.Z = status&zFlagMask != 0
	f.AC = status&acFlagMask != 0
	f.P = status&pFlagMask != 0
	f.CY = status&cyFlagMask != 0
}

// String renders the flags as in a debugger status line
func (f ConditionCodes) String() string {
	out := []byte("-----")
	for i, flag := range []struct {
		set  bool
		name byte
	}{{f.S, 'S'}, {f.Z, 'Z'}, {f.AC, 'A'}, {f.P, 'P'}, {f.CY, 'C'}} {
		if flag.set {
			out[i] = flag.name
		}
	}
	return string(out)
}

// Parity reports whether v has an even number of set bits
func Parity(v uint8) bool {
	return bits.OnesCount8(v)%2 == 0
}
