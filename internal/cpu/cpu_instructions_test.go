package cpu

import (
	"testing"
)

// TestDataTransfer tests loads, stores and register moves
func TestDataTransfer(t *testing.T) {
	tests := []struct {
		name    string
		program []uint8
		setup   func(h *CPUTestHelper)
		check   func(t *testing.T, h *CPUTestHelper)
	}{
		{
			name:    "MOV B,C",
			program: []uint8{0x41},
			setup:   func(h *CPUTestHelper) { h.CPU.C = 0x99 },
			check: func(t *testing.T, h *CPUTestHelper) {
				h.AssertRegisters(t, "MOV B,C", Registers{B: 0x99, C: 0x99, PC: 1})
			},
		},
		{
			name:    "MOV M,A",
			program: []uint8{0x77},
			setup:   func(h *CPUTestHelper) { h.CPU.A = 0x42; h.CPU.SetHL(0x2000) },
			check: func(t *testing.T, h *CPUTestHelper) {
				h.AssertMemory(t, "MOV M,A", 0x2000, 0x42)
			},
		},
		{
			name:    "MOV E,M",
			program: []uint8{0x5E},
			setup:   func(h *CPUTestHelper) { h.CPU.SetHL(0x2000); h.Memory.Write(0x2000, 0x17) },
			check: func(t *testing.T, h *CPUTestHelper) {
				h.AssertRegisters(t, "MOV E,M", Registers{E: 0x17, H: 0x20, PC: 1})
			},
		},
		{
			name:    "MVI M",
			program: []uint8{0x36, 0x99},
			setup:   func(h *CPUTestHelper) { h.CPU.SetHL(0x2001) },
			check: func(t *testing.T, h *CPUTestHelper) {
				h.AssertMemory(t, "MVI M", 0x2001, 0x99)
			},
		},
		{
			name:    "LXI H",
			program: []uint8{0x21, 0x00, 0x24},
			setup:   func(h *CPUTestHelper) {},
			check: func(t *testing.T, h *CPUTestHelper) {
				h.AssertRegisters(t, "LXI H", Registers{H: 0x24, L: 0x00, PC: 3})
			},
		},
		{
			name:    "LXI SP",
			program: []uint8{0x31, 0x00, 0x24},
			setup:   func(h *CPUTestHelper) {},
			check: func(t *testing.T, h *CPUTestHelper) {
				h.AssertRegisters(t, "LXI SP", Registers{SP: 0x2400, PC: 3})
			},
		},
		{
			name:    "STA",
			program: []uint8{0x32, 0x10, 0x20},
			setup:   func(h *CPUTestHelper) { h.CPU.A = 0x5A },
			check: func(t *testing.T, h *CPUTestHelper) {
				h.AssertMemory(t, "STA", 0x2010, 0x5A)
			},
		},
		{
			name:    "LDA",
			program: []uint8{0x3A, 0x10, 0x20},
			setup:   func(h *CPUTestHelper) { h.Memory.Write(0x2010, 0xA5) },
			check: func(t *testing.T, h *CPUTestHelper) {
				h.AssertRegisters(t, "LDA", Registers{A: 0xA5, PC: 3})
			},
		},
		{
			name:    "SHLD",
			program: []uint8{0x22, 0x20, 0x20},
			setup:   func(h *CPUTestHelper) { h.CPU.SetHL(0xBEEF) },
			check: func(t *testing.T, h *CPUTestHelper) {
				h.AssertMemory(t, "SHLD low", 0x2020, 0xEF)
				h.AssertMemory(t, "SHLD high", 0x2021, 0xBE)
			},
		},
		{
			name:    "LHLD",
			program: []uint8{0x2A, 0x20, 0x20},
			setup:   func(h *CPUTestHelper) { h.Memory.WriteWord(0x2020, 0x1234) },
			check: func(t *testing.T, h *CPUTestHelper) {
				h.AssertRegisters(t, "LHLD", Registers{H: 0x12, L: 0x34, PC: 3})
			},
		},
		{
			name:    "STAX D",
			program: []uint8{0x12},
			setup:   func(h *CPUTestHelper) { h.CPU.A = 0x3C; h.CPU.SetDE(0x2222) },
			check: func(t *testing.T, h *CPUTestHelper) {
				h.AssertMemory(t, "STAX D", 0x2222, 0x3C)
			},
		},
		{
			name:    "LDAX B",
			program: []uint8{0x0A},
			setup:   func(h *CPUTestHelper) { h.CPU.SetBC(0x2100); h.Memory.Write(0x2100, 0xC3) },
			check: func(t *testing.T, h *CPUTestHelper) {
				h.AssertRegisters(t, "LDAX B", Registers{A: 0xC3, B: 0x21, PC: 1})
			},
		},
		{
			name:    "XCHG",
			program: []uint8{0xEB},
			setup:   func(h *CPUTestHelper) { h.CPU.SetDE(0x1122); h.CPU.SetHL(0x3344) },
			check: func(t *testing.T, h *CPUTestHelper) {
				h.AssertRegisters(t, "XCHG", Registers{D: 0x33, E: 0x44, H: 0x11, L: 0x22, PC: 1})
			},
		},
		{
			name:    "XTHL",
			program: []uint8{0xE3},
			setup: func(h *CPUTestHelper) {
				h.CPU.SP = 0x3000
				h.CPU.SetHL(0xABCD)
				h.Memory.WriteWord(0x3000, 0x1234)
			},
			check: func(t *testing.T, h *CPUTestHelper) {
				h.AssertRegisters(t, "XTHL", Registers{H: 0x12, L: 0x34, SP: 0x3000, PC: 1})
				h.AssertMemory(t, "XTHL low", 0x3000, 0xCD)
				h.AssertMemory(t, "XTHL high", 0x3001, 0xAB)
			},
		},
		{
			name:    "SPHL",
			program: []uint8{0xF9},
			setup:   func(h *CPUTestHelper) { h.CPU.SetHL(0x2345) },
			check: func(t *testing.T, h *CPUTestHelper) {
				h.AssertRegisters(t, "SPHL", Registers{H: 0x23, L: 0x45, SP: 0x2345, PC: 1})
			},
		},
		{
			name:    "INX wraps",
			program: []uint8{0x33},
			setup:   func(h *CPUTestHelper) { h.CPU.SP = 0xFFFF },
			check: func(t *testing.T, h *CPUTestHelper) {
				h.AssertRegisters(t, "INX SP", Registers{SP: 0x0000, PC: 1})
			},
		},
		{
			name:    "DCX wraps",
			program: []uint8{0x0B},
			setup:   func(h *CPUTestHelper) {},
			check: func(t *testing.T, h *CPUTestHelper) {
				h.AssertRegisters(t, "DCX B", Registers{B: 0xFF, C: 0xFF, PC: 1})
			},
		},
		{
			name:    "INR M",
			program: []uint8{0x34},
			setup:   func(h *CPUTestHelper) { h.CPU.SetHL(0x2000); h.Memory.Write(0x2000, 0x41) },
			check: func(t *testing.T, h *CPUTestHelper) {
				h.AssertMemory(t, "INR M", 0x2000, 0x42)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCPUTestHelper()
			h.LoadProgram(0x0000, tt.program...)
			tt.setup(h)
			h.Run(t, 1)
			tt.check(t, h)
		})
	}
}

// TestCallReturn tests CALL and RET through the stack
func TestCallReturn(t *testing.T) {
	h := NewCPUTestHelper()
	h.CPU.SP = 0x3000
	h.LoadProgram(0x0000, 0xCD, 0x00, 0x01)
	h.LoadProgram(0x0100, 0xC9)

	h.Run(t, 1)
	h.AssertRegisters(t, "CALL", Registers{SP: 0x2FFE, PC: 0x0100})
	h.AssertMemory(t, "Return address low", 0x2FFE, 0x03)
	h.AssertMemory(t, "Return address high", 0x2FFF, 0x00)

	h.Run(t, 1)
	h.AssertRegisters(t, "RET", Registers{SP: 0x3000, PC: 0x0003})
}

// TestConditionalBranches tests Jcc, Ccc and Rcc for every condition
func TestConditionalBranches(t *testing.T) {
	// Flag states that make each condition NZ Z NC C PO PE P M true
	taken := []ConditionCodes{
		{},
		{Z: true},
		{},
		{CY: true},
		{},
		{P: true},
		{},
		{S: true},
	}
	notTaken := []ConditionCodes{
		{Z: true},
		{},
		{CY: true},
		{},
		{P: true},
		{},
		{S: true},
		{},
	}

	for cond := uint8(0); cond < 8; cond++ {
		jump := 0xC2 | cond<<3
		callOp := 0xC4 | cond<<3
		retOp := 0xC0 | cond<<3

		for _, tc := range []struct {
			flags ConditionCodes
			taken bool
		}{{taken[cond], true}, {notTaken[cond], false}} {
			h := NewCPUTestHelper()
			h.LoadProgram(0x0000, jump, 0x00, 0x20)
			h.CPU.Flags = tc.flags
			h.Run(t, 1)
			expectedPC := uint16(0x0003)
			if tc.taken {
				expectedPC = 0x2000
			}
			if h.CPU.PC != expectedPC {
				t.Errorf("J%02X taken=%v: expected PC=0x%04X, got 0x%04X", jump, tc.taken, expectedPC, h.CPU.PC)
			}

			h = NewCPUTestHelper()
			h.CPU.SP = 0x3000
			h.LoadProgram(0x0000, callOp, 0x00, 0x20)
			h.CPU.Flags = tc.flags
			h.Run(t, 1)
			expectedSP := uint16(0x3000)
			if tc.taken {
				expectedSP = 0x2FFE
			}
			if h.CPU.PC != expectedPC || h.CPU.SP != expectedSP {
				t.Errorf("C%02X taken=%v: expected PC=0x%04X SP=0x%04X, got PC=0x%04X SP=0x%04X",
					callOp, tc.taken, expectedPC, expectedSP, h.CPU.PC, h.CPU.SP)
			}

			h = NewCPUTestHelper()
			h.CPU.SP = 0x2FFE
			h.Memory.WriteWord(0x2FFE, 0x1234)
			h.LoadProgram(0x0000, retOp)
			h.CPU.Flags = tc.flags
			h.Run(t, 1)
			expectedPC, expectedSP = 0x0001, 0x2FFE
			if tc.taken {
				expectedPC, expectedSP = 0x1234, 0x3000
			}
			if h.CPU.PC != expectedPC || h.CPU.SP != expectedSP {
				t.Errorf("R%02X taken=%v: expected PC=0x%04X SP=0x%04X, got PC=0x%04X SP=0x%04X",
					retOp, tc.taken, expectedPC, expectedSP, h.CPU.PC, h.CPU.SP)
			}
		}
	}
}

// TestRST tests the restart instructions
func TestRST(t *testing.T) {
	for n := uint8(0); n < 8; n++ {
		h := NewCPUTestHelper()
		h.CPU.SP = 0x3000
		h.CPU.PC = 0x0100
		h.LoadProgram(0x0100, 0xC7|n<<3)
		h.Run(t, 1)

		if h.CPU.PC != uint16(n)*8 {
			t.Errorf("RST %d: expected PC=0x%04X, got 0x%04X", n, uint16(n)*8, h.CPU.PC)
		}
		if ret := h.Memory.ReadWord(h.CPU.SP); ret != 0x0101 {
			t.Errorf("RST %d: expected return address 0x0101, got 0x%04X", n, ret)
		}
	}
}

// TestPCHL tests jump through HL
func TestPCHL(t *testing.T) {
	h := NewCPUTestHelper()
	h.CPU.SetHL(0x1ABC)
	h.LoadProgram(0x0000, 0xE9)
	h.Run(t, 1)
	if h.CPU.PC != 0x1ABC {
		t.Errorf("Expected PC=0x1ABC, got 0x%04X", h.CPU.PC)
	}
}

// TestStackWraparound tests pushes below address zero
func TestStackWraparound(t *testing.T) {
	h := NewCPUTestHelper()
	h.CPU.SP = 0x0000
	h.CPU.SetBC(0x1234)
	h.LoadProgram(0x0000, 0xC5, 0xE1)

	h.Run(t, 1)
	if h.CPU.SP != 0xFFFE {
		t.Errorf("Expected SP=0xFFFE, got 0x%04X", h.CPU.SP)
	}

	h.Run(t, 1)
	if h.CPU.SP != 0x0000 || h.CPU.HL() != 0x1234 {
		t.Errorf("Expected SP=0x0000 HL=0x1234, got SP=0x%04X HL=0x%04X", h.CPU.SP, h.CPU.HL())
	}
}

// TestShiftRegisterProgram drives the shift hardware through OUT/IN
func TestShiftRegisterProgram(t *testing.T) {
	h := NewCPUTestHelper()
	h.LoadProgram(0x0000,
		0x3E, 0x34, // MVI A,$34
		0xD3, 0x04, // OUT 4
		0x3E, 0x12, // MVI A,$12
		0xD3, 0x04, // OUT 4
		0x3E, 0x04, // MVI A,4
		0xD3, 0x02, // OUT 2
		0xDB, 0x03, // IN 3
	)
	h.Run(t, 7)

	if h.CPU.A != 0x23 {
		t.Errorf("Expected A=0x23, got 0x%02X", h.CPU.A)
	}
	if h.CPU.InstructionCount() != 7 {
		t.Errorf("Expected count 7, got %d", h.CPU.InstructionCount())
	}
}

// TestCountingLoop runs a small program to completion
func TestCountingLoop(t *testing.T) {
	h := NewCPUTestHelper()
	h.LoadProgram(0x0000,
		0x06, 0x0A, //       MVI B,10
		0xAF,       //       XRA A
		0x80,       // loop: ADD B
		0x05,       //       DCR B
		0xC2, 0x03, 0x00, // JNZ loop
		0x32, 0x00, 0x20, // STA $2000
		0x76, //             HLT
	)

	for !h.CPU.Halted() {
		if err := h.CPU.Step(); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if h.CPU.InstructionCount() > 100 {
			t.Fatal("Program did not halt")
		}
	}

	h.AssertMemory(t, "Sum 1..10", 0x2000, 55)
}
