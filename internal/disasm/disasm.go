// Package disasm renders 8080 machine code as assembler mnemonics.
package disasm

import (
	"fmt"
	"io"
	"strings"
)

// Operand kinds following the opcode byte
type operand uint8

const (
	none operand = iota
	imm8
	imm16
	addr16
	port8
)

type entry struct {
	mnemonic string
	args     string // static operand text, e.g. "B,C"
	operand  operand
}

var (
	regNames  = [8]string{"B", "C", "D", "E", "H", "L", "M", "A"}
	pairNames = [4]string{"B", "D", "H", "SP"}
	pushNames = [4]string{"B", "D", "H", "PSW"}
	condNames = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}
	aluNames  = [8]string{"ADD", "ADC", "SUB", "SBB", "ANA", "XRA", "ORA", "CMP"}
	aluImm    = [8]string{"ADI", "ACI", "SUI", "SBI", "ANI", "XRI", "ORI", "CPI"}
)

var table [256]entry

func init() {
	for op := 0; op < 256; op++ {
		table[op] = decode(uint8(op))
	}
}

// decode builds the table entry for one opcode from its bit fields
func decode(op uint8) entry {
	ddd := (op >> 3) & 7
	sss := op & 7
	rp := (op >> 4) & 3

	switch {
	case op == 0x76:
		return entry{mnemonic: "HLT"}
	case op >= 0x40 && op < 0x80:
		return entry{mnemonic: "MOV", args: regNames[ddd] + "," + regNames[sss]}
	case op >= 0x80 && op < 0xC0:
		return entry{mnemonic: aluNames[ddd], args: regNames[sss]}
	}

	if op < 0x40 {
		switch sss {
		case 0:
			if op == 0x00 {
				return entry{mnemonic: "NOP"}
			}
			return entry{mnemonic: "-NOP"}
		case 1:
			if op&0x08 == 0 {
				return entry{mnemonic: "LXI", args: pairNames[rp] + ",", operand: imm16}
			}
			return entry{mnemonic: "DAD", args: pairNames[rp]}
		case 2:
			switch op {
			case 0x02, 0x12:
				return entry{mnemonic: "STAX", args: pairNames[rp]}
			case 0x0A, 0x1A:
				return entry{mnemonic: "LDAX", args: pairNames[rp]}
			case 0x22:
				return entry{mnemonic: "SHLD", operand: addr16}
			case 0x2A:
				return entry{mnemonic: "LHLD", operand: addr16}
			case 0x32:
				return entry{mnemonic: "STA", operand: addr16}
			default:
				return entry{mnemonic: "LDA", operand: addr16}
			}
		case 3:
			if op&0x08 == 0 {
				return entry{mnemonic: "INX", args: pairNames[rp]}
			}
			return entry{mnemonic: "DCX", args: pairNames[rp]}
		case 4:
			return entry{mnemonic: "INR", args: regNames[ddd]}
		case 5:
			return entry{mnemonic: "DCR", args: regNames[ddd]}
		case 6:
			return entry{mnemonic: "MVI", args: regNames[ddd] + ",", operand: imm8}
		default:
			return entry{mnemonic: [8]string{"RLC", "RRC", "RAL", "RAR", "DAA", "CMA", "STC", "CMC"}[ddd]}
		}
	}

	switch sss {
	case 0:
		return entry{mnemonic: "R" + condNames[ddd]}
	case 1:
		switch op {
		case 0xC9:
			return entry{mnemonic: "RET"}
		case 0xD9:
			return entry{mnemonic: "-RET"}
		case 0xE9:
			return entry{mnemonic: "PCHL"}
		case 0xF9:
			return entry{mnemonic: "SPHL"}
		}
		return entry{mnemonic: "POP", args: pushNames[rp]}
	case 2:
		return entry{mnemonic: "J" + condNames[ddd], operand: addr16}
	case 3:
		switch op {
		case 0xC3:
			return entry{mnemonic: "JMP", operand: addr16}
		case 0xCB:
			return entry{mnemonic: "-JMP", operand: addr16}
		case 0xD3:
			return entry{mnemonic: "OUT", operand: port8}
		case 0xDB:
			return entry{mnemonic: "IN", operand: port8}
		case 0xE3:
			return entry{mnemonic: "XTHL"}
		case 0xEB:
			return entry{mnemonic: "XCHG"}
		case 0xF3:
			return entry{mnemonic: "DI"}
		default:
			return entry{mnemonic: "EI"}
		}
	case 4:
		return entry{mnemonic: "C" + condNames[ddd], operand: addr16}
	case 5:
		if op&0x08 == 0 {
			return entry{mnemonic: "PUSH", args: pushNames[rp]}
		}
		if op == 0xCD {
			return entry{mnemonic: "CALL", operand: addr16}
		}
		return entry{mnemonic: "-CALL", operand: addr16}
	case 6:
		return entry{mnemonic: aluImm[ddd], operand: imm8}
	default:
		return entry{mnemonic: "RST", args: fmt.Sprintf("%d", ddd)}
	}
}

// Size returns the length in bytes of the instruction starting with opcode
func Size(opcode uint8) int {
	switch table[opcode].operand {
	case imm8, port8:
		return 2
	case imm16, addr16:
		return 3
	default:
		return 1
	}
}

// Mnemonic returns the bare mnemonic of an opcode. Undocumented opcodes are
// prefixed with '-'.
func Mnemonic(opcode uint8) string {
	return table[opcode].mnemonic
}

// Disassemble renders the instruction at the start of code and returns its
// text and size. Operand bytes missing from code are shown as "??".
func Disassemble(code []byte) (string, int) {
	if len(code) == 0 {
		return "", 0
	}
	e := table[code[0]]
	size := Size(code[0])

	byteAt := func(i int) string {
		if i < len(code) {
			return fmt.Sprintf("%02X", code[i])
		}
		return "??"
	}

	var operandText string
	switch e.operand {
	case imm8:
		operandText = "#$" + byteAt(1)
	case port8:
		operandText = "#$" + byteAt(1)
	case imm16:
		operandText = "#$" + byteAt(2) + byteAt(1)
	case addr16:
		operandText = "$" + byteAt(2) + byteAt(1)
	}

	text := e.args + operandText
	if text == "" {
		return e.mnemonic, size
	}
	return fmt.Sprintf("%-6s %s", e.mnemonic, text), size
}

// Listing writes a full disassembly of code, one instruction per line,
// addresses starting at origin
func Listing(w io.Writer, code []byte, origin uint16) error {
	for pc := 0; pc < len(code); {
		text, size := Disassemble(code[pc:])

		end := pc + size
		if end > len(code) {
			end = len(code)
		}
		raw := make([]string, 0, 3)
		for _, b := range code[pc:end] {
			raw = append(raw, fmt.Sprintf("%02X", b))
		}

		if _, err := fmt.Fprintf(w, "%04X  %-9s %s\n", origin+uint16(pc), strings.Join(raw, " "), text); err != nil {
			return err
		}
		pc += size
	}
	return nil
}
