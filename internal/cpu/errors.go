package cpu

import (
	"fmt"
	"strings"
)

// UnrecognizedInstructionError is returned by Step for opcodes the CPU does
// not execute. PC is the address of the opcode byte.
type UnrecognizedInstructionError struct {
	PC     uint16
	Opcode uint8
	Bytes  []byte
	Text   string
}

func (e *UnrecognizedInstructionError) Error() string {
	raw := make([]string, len(e.Bytes))
	for i, b := range e.Bytes {
		raw[i] = fmt.Sprintf("%02X", b)
	}
	return fmt.Sprintf("unrecognized instruction 0x%02X at $%04X [%s] %s",
		e.Opcode, e.PC, strings.Join(raw, " "), e.Text)
}
