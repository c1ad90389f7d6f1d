package cpu

import "goinvaders/internal/disasm"

// Instruction represents one entry of the 8080 opcode table
type Instruction struct {
	Name   string
	Opcode uint8
	Bytes  uint8
	exec   func(cpu *CPU, opcode uint8, data uint16)
}

// instructions is indexed by opcode. Entries with a nil exec are not
// executable.
var instructions [256]Instruction

// Lookup returns the table entry for opcode
func Lookup(opcode uint8) Instruction {
	return instructions[opcode]
}

// Implemented reports whether Step can execute opcode
func (i Instruction) Implemented() bool {
	return i.exec != nil
}

func init() {
	for op := 0; op < 256; op++ {
		opcode := uint8(op)
		instructions[op] = Instruction{
			Name:   disasm.Mnemonic(opcode),
			Opcode: opcode,
			Bytes:  uint8(disasm.Size(opcode)),
			exec:   handlerFor(opcode),
		}
	}
}

// Register operand fields: ddd is bits 3-5, sss bits 0-2, rp bits 4-5
func ddd(op uint8) uint8 { return (op >> 3) & 7 }
func sss(op uint8) uint8 { return op & 7 }
func rp(op uint8) uint8  { return (op >> 4) & 3 }

// reg reads register index r where 6 is the memory byte at HL
func (cpu *CPU) reg(r uint8) uint8 {
	switch r {
	case 0:
		return cpu.B
	case 1:
		return cpu.C
	case 2:
		return cpu.D
	case 3:
		return cpu.E
	case 4:
		return cpu.H
	case 5:
		return cpu.L
	case 6:
		return cpu.memory.Read(cpu.HL())
	default:
		return cpu.A
	}
}

func (cpu *CPU) setReg(r uint8, value uint8) {
	switch r {
	case 0:
		cpu.B = value
	case 1:
		cpu.C = value
	case 2:
		cpu.D = value
	case 3:
		cpu.E = value
	case 4:
		cpu.H = value
	case 5:
		cpu.L = value
	case 6:
		cpu.memory.Write(cpu.HL(), value)
	default:
		cpu.A = value
	}
}

// pair reads register pair p where 3 is SP
func (cpu *CPU) pair(p uint8) uint16 {
	switch p {
	case 0:
		return cpu.BC()
	case 1:
		return cpu.DE()
	case 2:
		return cpu.HL()
	default:
		return cpu.SP
	}
}

func (cpu *CPU) setPair(p uint8, value uint16) {
	switch p {
	case 0:
		cpu.SetBC(value)
	case 1:
		cpu.SetDE(value)
	case 2:
		cpu.SetHL(value)
	default:
		cpu.SP = value
	}
}

// condition evaluates NZ Z NC C PO PE P M
func (cpu *CPU) condition(c uint8) bool {
	switch c {
	case 0:
		return !cpu.Flags.Z
	case 1:
		return cpu.Flags.Z
	case 2:
		return !cpu.Flags.CY
	case 3:
		return cpu.Flags.CY
	case 4:
		return !cpu.Flags.P
	case 5:
		return cpu.Flags.P
	case 6:
		return !cpu.Flags.S
	default:
		return cpu.Flags.S
	}
}

// handlerFor returns the handler shape for an opcode, or nil for the
// undocumented jump/call/return aliases
func handlerFor(op uint8) func(*CPU, uint8, uint16) {
	switch {
	case op == 0x76:
		return hlt
	case op >= 0x40 && op < 0x80:
		return mov
	case op >= 0x80 && op < 0xC0:
		return aluReg
	case op < 0x40:
		return lowQuadrant(op)
	default:
		return highQuadrant(op)
	}
}

func lowQuadrant(op uint8) func(*CPU, uint8, uint16) {
	switch sss(op) {
	case 0:
		return nop
	case 1:
		if op&0x08 == 0 {
			return lxi
		}
		return dad
	case 2:
		switch op {
		case 0x02, 0x12:
			return stax
		case 0x0A, 0x1A:
			return ldax
		case 0x22:
			return shld
		case 0x2A:
			return lhld
		case 0x32:
			return sta
		default:
			return lda
		}
	case 3:
		if op&0x08 == 0 {
			return inx
		}
		return dcx
	case 4:
		return inr
	case 5:
		return dcr
	case 6:
		return mvi
	default:
		return [8]func(*CPU, uint8, uint16){rlc, rrc, ral, rar, daa, cma, stc, cmc}[ddd(op)]
	}
}

func highQuadrant(op uint8) func(*CPU, uint8, uint16) {
	switch op {
	case 0xCB, 0xD9, 0xDD, 0xED, 0xFD:
		return nil
	case 0xC3:
		return jmp
	case 0xC9:
		return ret
	case 0xCD:
		return call
	case 0xD3:
		return out
	case 0xDB:
		return in
	case 0xE3:
		return xthl
	case 0xE9:
		return pchl
	case 0xEB:
		return xchg
	case 0xF3:
		return di
	case 0xF9:
		return sphl
	case 0xFB:
		return ei
	}

	switch sss(op) {
	case 0:
		return retCond
	case 1:
		return pop
	case 2:
		return jmpCond
	case 4:
		return callCond
	case 5:
		return push
	case 6:
		return aluImm
	default:
		return rst
	}
}

// Data transfer

func nop(cpu *CPU, op uint8, data uint16) {}

func hlt(cpu *CPU, op uint8, data uint16) {
	cpu.halted = true
}

func mov(cpu *CPU, op uint8, data uint16) {
	cpu.setReg(ddd(op), cpu.reg(sss(op)))
}

func mvi(cpu *CPU, op uint8, data uint16) {
	cpu.setReg(ddd(op), uint8(data))
}

func lxi(cpu *CPU, op uint8, data uint16) {
	cpu.setPair(rp(op), data)
}

func stax(cpu *CPU, op uint8, data uint16) {
	cpu.memory.Write(cpu.pair(rp(op)), cpu.A)
}

func ldax(cpu *CPU, op uint8, data uint16) {
	cpu.A = cpu.memory.Read(cpu.pair(rp(op)))
}

func shld(cpu *CPU, op uint8, data uint16) {
	cpu.memory.WriteWord(data, cpu.HL())
}

func lhld(cpu *CPU, op uint8, data uint16) {
	cpu.SetHL(cpu.memory.ReadWord(data))
}

func sta(cpu *CPU, op uint8, data uint16) {
	cpu.memory.Write(data, cpu.A)
}

func lda(cpu *CPU, op uint8, data uint16) {
	cpu.A = cpu.memory.Read(data)
}

func xchg(cpu *CPU, op uint8, data uint16) {
	de := cpu.DE()
	cpu.SetDE(cpu.HL())
	cpu.SetHL(de)
}

func xthl(cpu *CPU, op uint8, data uint16) {
	top := cpu.memory.ReadWord(cpu.SP)
	cpu.memory.WriteWord(cpu.SP, cpu.HL())
	cpu.SetHL(top)
}

func sphl(cpu *CPU, op uint8, data uint16) {
	cpu.SP = cpu.HL()
}

// Arithmetic and logic

func aluReg(cpu *CPU, op uint8, data uint16) {
	cpu.alu(ddd(op), cpu.reg(sss(op)))
}

func aluImm(cpu *CPU, op uint8, data uint16) {
	cpu.alu(ddd(op), uint8(data))
}

func inr(cpu *CPU, op uint8, data uint16) {
	r := ddd(op)
	cpu.setReg(r, cpu.inr(cpu.reg(r)))
}

func dcr(cpu *CPU, op uint8, data uint16) {
	r := ddd(op)
	cpu.setReg(r, cpu.dcr(cpu.reg(r)))
}

func inx(cpu *CPU, op uint8, data uint16) {
	p := rp(op)
	cpu.setPair(p, cpu.pair(p)+1)
}

func dcx(cpu *CPU, op uint8, data uint16) {
	p := rp(op)
	cpu.setPair(p, cpu.pair(p)-1)
}

func dad(cpu *CPU, op uint8, data uint16) {
	cpu.dad(cpu.pair(rp(op)))
}

func rlc(cpu *CPU, op uint8, data uint16) { cpu.rlc() }
func rrc(cpu *CPU, op uint8, data uint16) { cpu.rrc() }
func ral(cpu *CPU, op uint8, data uint16) { cpu.ral() }
func rar(cpu *CPU, op uint8, data uint16) { cpu.rar() }
func daa(cpu *CPU, op uint8, data uint16) { cpu.daa() }

func cma(cpu *CPU, op uint8, data uint16) {
	cpu.A = ^cpu.A
}

func stc(cpu *CPU, op uint8, data uint16) {
	cpu.Flags.CY = true
}

func cmc(cpu *CPU, op uint8, data uint16) {
	cpu.Flags.CY = !cpu.Flags.CY
}

// Branches. PC already points past the instruction when these run.

func jmp(cpu *CPU, op uint8, data uint16) {
	cpu.PC = data
}

func jmpCond(cpu *CPU, op uint8, data uint16) {
	if cpu.condition(ddd(op)) {
		cpu.PC = data
	}
}

func call(cpu *CPU, op uint8, data uint16) {
	cpu.call(data)
}

func callCond(cpu *CPU, op uint8, data uint16) {
	if cpu.condition(ddd(op)) {
		cpu.call(data)
	}
}

func ret(cpu *CPU, op uint8, data uint16) {
	cpu.PC = cpu.pop()
}

func retCond(cpu *CPU, op uint8, data uint16) {
	if cpu.condition(ddd(op)) {
		cpu.PC = cpu.pop()
	}
}

func rst(cpu *CPU, op uint8, data uint16) {
	cpu.call(uint16(ddd(op)) * 8)
}

func pchl(cpu *CPU, op uint8, data uint16) {
	cpu.PC = cpu.HL()
}

// Stack

func push(cpu *CPU, op uint8, data uint16) {
	p := rp(op)
	if p == 3 {
		cpu.push(uint16(cpu.A)<<8 | uint16(cpu.Flags.Pack()))
		return
	}
	cpu.push(cpu.pair(p))
}

func pop(cpu *CPU, op uint8, data uint16) {
	value := cpu.pop()
	p := rp(op)
	if p == 3 {
		cpu.A = uint8(value >> 8)
		cpu.Flags.Unpack(uint8(value))
		return
	}
	cpu.setPair(p, value)
}

// Machine control and I/O

func ei(cpu *CPU, op uint8, data uint16) {
	cpu.interruptEnable.Store(true)
	cpu.eiDelay = true
}

func di(cpu *CPU, op uint8, data uint16) {
	cpu.interruptEnable.Store(false)
}

func in(cpu *CPU, op uint8, data uint16) {
	cpu.A = cpu.io.ReadInput(uint8(data))
}

func out(cpu *CPU, op uint8, data uint16) {
	cpu.io.WriteOutput(uint8(data), cpu.A)
}
