package cpu

// Flag computation shared by the instruction handlers

func b2u(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// setZSP sets Zero, Sign and Parity from a result byte
func (cpu *CPU) setZSP(result uint8) {
	cpu.Flags.Z = result == 0
	cpu.Flags.S = result&0x80 != 0
	cpu.Flags.P = Parity(result)
}

// add performs a + b + carryIn and sets every flag
func (cpu *CPU) add(a, b, carryIn uint8) uint8 {
	sum := uint16(a) + uint16(b) + uint16(carryIn)
	cpu.Flags.CY = sum > 0xFF
	cpu.Flags.AC = (a&0x0F)+(b&0x0F)+carryIn > 0x0F
	result := uint8(sum)
	cpu.setZSP(result)
	return result
}

// sub performs a - b - borrowIn and sets every flag. CY and AC mean a
// borrow out of bit 8 and bit 4 respectively.
func (cpu *CPU) sub(a, b, borrowIn uint8) uint8 {
	subtrahend := uint16(b) + uint16(borrowIn)
	cpu.Flags.CY = uint16(a) < subtrahend
	cpu.Flags.AC = uint16(a&0x0F) < uint16(b&0x0F)+uint16(borrowIn)
	result := uint8(uint16(a) - subtrahend)
	cpu.setZSP(result)
	return result
}

// alu executes one of the eight accumulator operations selected by bits 3-5
// of ALU opcodes: ADD ADC SUB SBB ANA XRA ORA CMP
func (cpu *CPU) alu(kind uint8, value uint8) {
	a := cpu.A
	switch kind {
	case 0:
		cpu.A = cpu.add(a, value, 0)
	case 1:
		cpu.A = cpu.add(a, value, b2u(cpu.Flags.CY))
	case 2:
		cpu.A = cpu.sub(a, value, 0)
	case 3:
		cpu.A = cpu.sub(a, value, b2u(cpu.Flags.CY))
	case 4:
		cpu.A = a & value
		cpu.Flags.CY = false
		cpu.Flags.AC = (a|value)&0x08 != 0
		cpu.setZSP(cpu.A)
	case 5:
		cpu.A = a ^ value
		cpu.Flags.CY = false
		cpu.Flags.AC = false
		cpu.setZSP(cpu.A)
	case 6:
		cpu.A = a | value
		cpu.Flags.CY = false
		cpu.Flags.AC = false
		cpu.setZSP(cpu.A)
	case 7:
		cpu.sub(a, value, 0)
	}
}

// inr increments a byte. Carry is not affected.
func (cpu *CPU) inr(value uint8) uint8 {
	result := value + 1
	cpu.Flags.AC = value&0x0F == 0x0F
	cpu.setZSP(result)
	return result
}

// dcr decrements a byte. Carry is not affected.
func (cpu *CPU) dcr(value uint8) uint8 {
	result := value - 1
	cpu.Flags.AC = value&0x0F == 0
	cpu.setZSP(result)
	return result
}

// dad adds a register pair to HL, affecting only carry
func (cpu *CPU) dad(value uint16) {
	sum := uint32(cpu.HL()) + uint32(value)
	cpu.Flags.CY = sum > 0xFFFF
	cpu.SetHL(uint16(sum))
}

// daa adjusts the accumulator to packed BCD after an addition
func (cpu *CPU) daa() {
	var correction uint8
	carry := cpu.Flags.CY
	low := cpu.A & 0x0F
	high := cpu.A >> 4

	if low > 9 || cpu.Flags.AC {
		correction |= 0x06
	}
	if high > 9 || carry || (high >= 9 && low > 9) {
		correction |= 0x60
		carry = true
	}

	cpu.A = cpu.add(cpu.A, correction, 0)
	cpu.Flags.CY = carry
}

// Rotates only affect carry

func (cpu *CPU) rlc() {
	cpu.Flags.CY = cpu.A&0x80 != 0
	cpu.A = cpu.A<<1 | cpu.A>>7
}

func (cpu *CPU) rrc() {
	cpu.Flags.CY = cpu.A&0x01 != 0
	cpu.A = cpu.A>>1 | cpu.A<<7
}

func (cpu *CPU) ral() {
	carry := b2u(cpu.Flags.CY)
	cpu.Flags.CY = cpu.A&0x80 != 0
	cpu.A = cpu.A<<1 | carry
}

func (cpu *CPU) rar() {
	carry := b2u(cpu.Flags.CY)
	cpu.Flags.CY = cpu.A&0x01 != 0
	cpu.A = cpu.A>>1 | carry<<7
}
