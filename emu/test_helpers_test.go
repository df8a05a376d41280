package emu

// createTestROM builds a minimal ROM: a vector table pointing the stack
// at the top of work RAM and the entry point at 0x000200, followed by
// NOPs and a branch-to-self so the CPU idles harmlessly.
func createTestROM(size int) []byte {
	if size < 0x300 {
		size = 0x300
	}
	rom := make([]byte, size)

	// Initial SSP = 0x00FFFE00, initial PC = 0x00000200
	copy(rom[0:4], []byte{0x00, 0xFF, 0xFE, 0x00})
	copy(rom[4:8], []byte{0x00, 0x00, 0x02, 0x00})

	// NOP sled into BRA.S *
	for i := 0x200; i+1 < 0x2FE; i += 2 {
		rom[i] = 0x4E
		rom[i+1] = 0x71
	}
	rom[0x2FE] = 0x60
	rom[0x2FF] = 0xFE

	return rom
}

// newTestBus builds a bus with a test ROM loaded and no PSG attached.
func newTestBus() *Bus {
	b := NewBus(nil)
	b.LoadROM(createTestROM(0x1000))
	return b
}

// writeCommand pushes a full two-word command through the control port.
func writeCommand(v *VDP, first, second uint16) {
	v.WriteControl(first)
	v.WriteControl(second)
}
