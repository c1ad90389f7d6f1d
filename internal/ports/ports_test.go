package ports

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"
)

// TestShiftRegisterWindow tests the barrel-shifted read of port 3
func TestShiftRegisterWindow(t *testing.T) {
	for n := uint8(0); n < 8; n++ {
		p := New()
		p.WriteOutput(ShiftDataPort, 0x34)
		p.WriteOutput(ShiftDataPort, 0x12)
		p.WriteOutput(ShiftAmountPort, n)

		// After feeding 0x34 then 0x12 the register holds 0x1234
		if p.ShiftRegister() != 0x1234 {
			t.Fatalf("Expected register 0x1234, got 0x%04X", p.ShiftRegister())
		}

		expected := uint8((uint16(0x1234) >> (8 - n)) & 0xFF)
		if got := p.ReadInput(ShiftResultPort); got != expected {
			t.Errorf("Offset %d: expected 0x%02X, got 0x%02X", n, expected, got)
		}
	}
}

// TestShiftSequence tests writing bytes in the order [0x12, 0x34]
func TestShiftSequence(t *testing.T) {
	p := New()
	p.WriteOutput(ShiftDataPort, 0x12)
	p.WriteOutput(ShiftDataPort, 0x34)
	p.WriteOutput(ShiftAmountPort, 3)

	// The newest byte is the high byte
	if p.ShiftRegister() != 0x3412 {
		t.Fatalf("Expected 0x3412, got 0x%04X", p.ShiftRegister())
	}
	expected := uint8((0x3412 >> 5) & 0xFF)
	if got := p.ReadInput(ShiftResultPort); got != expected {
		t.Errorf("Expected 0x%02X, got 0x%02X", expected, got)
	}
}

// TestShiftAmountUsesLowBits tests that only the low 3 bits select the offset
func TestShiftAmountUsesLowBits(t *testing.T) {
	p := New()
	p.WriteOutput(ShiftDataPort, 0xFF)
	p.WriteOutput(ShiftDataPort, 0x00)
	p.WriteOutput(ShiftAmountPort, 0xF9) // offset 1

	if got := p.ReadInput(ShiftResultPort); got != 0x01 {
		t.Errorf("Expected 0x01, got 0x%02X", got)
	}
}

// TestInputPort3IgnoresLatch tests the port-3 invariant
func TestInputPort3IgnoresLatch(t *testing.T) {
	p := New()
	if err := p.SetInput(3, 0xAA); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := p.ReadInput(3); got != 0 {
		t.Errorf("Port 3 must derive from the shift register, got 0x%02X", got)
	}
}

// TestInputLatches tests host-facing input latches
func TestInputLatches(t *testing.T) {
	p := New()
	for i := 0; i < 3; i++ {
		if err := p.SetInput(i, uint8(0x10+i)); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	for i := uint8(0); i < 3; i++ {
		if got := p.ReadInput(i); got != 0x10+i {
			t.Errorf("Port %d: expected 0x%02X, got 0x%02X", i, 0x10+i, got)
		}
	}
	if got := p.ReadInput(0x80); got != 0 {
		t.Errorf("Unmapped port should read 0, got 0x%02X", got)
	}

	var portErr *PortError
	if err := p.SetInput(4, 0); !errors.As(err, &portErr) {
		t.Errorf("Expected PortError for index 4, got %v", err)
	}
	if err := p.SetInput(-1, 0); !errors.As(err, &portErr) {
		t.Errorf("Expected PortError for index -1, got %v", err)
	}
}

// TestOutputLatches tests OUT latching and read-back
func TestOutputLatches(t *testing.T) {
	p := New()
	p.WriteOutput(3, 0x0F)
	p.WriteOutput(5, 0x1F)
	p.WriteOutput(6, 0x42)
	p.WriteOutput(9, 0x99) // ignored

	for _, tc := range []struct {
		port  int
		value uint8
	}{{3, 0x0F}, {5, 0x1F}, {6, 0x42}} {
		got, err := p.GetOutput(tc.port)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got != tc.value {
			t.Errorf("Port %d: expected 0x%02X, got 0x%02X", tc.port, tc.value, got)
		}
	}

	if _, err := p.GetOutput(7); err == nil {
		t.Error("Expected error for output index 7")
	}

	// Port 4 feeds the shift register and does not latch
	p.WriteOutput(ShiftDataPort, 0x77)
	if got, _ := p.GetOutput(ShiftDataPort); got != 0 {
		t.Errorf("Port 4 should not latch, got 0x%02X", got)
	}
}

// TestOutputWatcher tests the write hook
func TestOutputWatcher(t *testing.T) {
	p := New()
	type write struct{ port, old, value uint8 }
	var writes []write
	p.SetWatcher(func(port, old, value uint8) {
		writes = append(writes, write{port, old, value})
	})

	p.WriteOutput(3, 0x01)
	p.WriteOutput(3, 0x03)
	p.WriteOutput(ShiftDataPort, 0xFF)

	if len(writes) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(writes))
	}
	if writes[1] != (write{3, 0x01, 0x03}) {
		t.Errorf("Unexpected notification: %+v", writes[1])
	}
}

// TestReset tests clearing the bank
func TestReset(t *testing.T) {
	p := New()
	p.SetInput(1, 0xFF)
	p.WriteOutput(2, 0x07)
	p.WriteOutput(ShiftDataPort, 0xFF)
	p.Reset()

	if p.ReadInput(1) != 0 || p.ShiftRegister() != 0 {
		t.Error("Reset did not clear the bank")
	}
	if got, _ := p.GetOutput(2); got != 0 {
		t.Error("Reset did not clear output latches")
	}
}

// TestUnmappedInputLoggedOnce tests the debug message for unknown ports
func TestUnmappedInputLoggedOnce(t *testing.T) {
	var buf bytes.Buffer
	p := New()
	p.SetLogger(log.New(&buf, "", 0))

	p.ReadInput(7)
	p.ReadInput(7)
	p.ReadInput(9)
	p.ReadInput(1)

	out := buf.String()
	if n := strings.Count(out, "[PORTS]"); n != 2 {
		t.Errorf("Expected 2 messages, got %d:\n%s", n, out)
	}
	if !strings.Contains(out, "port 7") || !strings.Contains(out, "port 9") {
		t.Errorf("Unexpected log output %q", out)
	}
}
