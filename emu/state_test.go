package emu

import "testing"

// TestState_RoundTrip tests that a save state restores bus, VDP, I/O,
// and FM state into a fresh machine.
func TestState_RoundTrip(t *testing.T) {
	rom := createTestROM(0x1000)
	e := NewEmulator(rom, RegionNTSC)

	// Touch state across every serialized component
	e.Bus().WriteByte(0xFF0010, 0xAA)
	e.Bus().WriteByte(0xA11100, 0x01) // Grant bus
	e.Bus().WriteByte(0xA00005, 0xBB) // Z80 RAM
	e.Bus().WriteByte(0xA11200, 0x01) // Release Z80 reset
	e.Bus().WriteByte(0xA06000, 0x01) // One bank bit
	e.Bus().WriteLong(0xA14000, 0x53454741)

	v := e.Bus().VDP()
	v.WriteControl(0x8F02)
	writeCommand(v, 0xC000, 0x0000)
	v.WriteData(0x0EEE)
	writeCommand(v, 0x4100, 0x0000)
	v.WriteData(0x1234)
	v.WriteControl(0x4000) // Dangling first command word

	e.Bus().IO().Port1.State.Start = true
	e.Bus().FM().WriteAddress(0, 0x30)
	e.Bus().FM().WriteData(0, 0x77)

	data, err := e.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	restored := NewEmulator(rom, RegionNTSC)
	if err := restored.Deserialize(data); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	b := restored.Bus()
	if b.ReadByte(0xFF0010) != 0xAA {
		t.Error("Work RAM not restored")
	}
	if b.Z80RAM()[5] != 0xBB {
		t.Error("Z80 RAM not restored")
	}
	if !b.Z80BusRequested() {
		t.Error("Bus request flag not restored")
	}
	if b.Z80InReset() {
		t.Error("Z80 reset flag not restored")
	}
	if b.Z80BankAddr() != 0x008000 {
		t.Errorf("Bank register not restored: got 0x%06X", b.Z80BankAddr())
	}
	if !b.TMSSUnlocked() {
		t.Error("TMSS latch not restored")
	}

	rv := b.VDP()
	if rv.Register(15) != 0x02 {
		t.Error("VDP register not restored")
	}
	if rv.VRAM()[0x100] != 0x12 {
		t.Error("VRAM not restored")
	}
	if !rv.IsControlPending() {
		t.Error("Command pending flag not restored")
	}
	if rv.CRAMCache()[0] != 0xFFFF {
		t.Error("CRAM cache not rebuilt after restore")
	}

	if !b.IO().Port1.State.Start {
		t.Error("Controller state not restored")
	}
	if b.FM().Register(0, 0x30) != 0x77 {
		t.Error("FM register not restored")
	}
}

// TestState_VerifyRejectsWrongROM tests the ROM identity check.
func TestState_VerifyRejectsWrongROM(t *testing.T) {
	e := NewEmulator(createTestROM(0x1000), RegionNTSC)
	data, err := e.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	other := createTestROM(0x1000)
	other[0x280] = 0x4E
	other[0x281] = 0x71
	other[0x290] = 0xFF // Different content, same size
	o := NewEmulator(other, RegionNTSC)
	if err := o.Deserialize(data); err == nil {
		t.Error("Deserialize should reject a state from a different ROM")
	}
}

// TestState_VerifyRejectsCorruption tests the data CRC check.
func TestState_VerifyRejectsCorruption(t *testing.T) {
	e := NewEmulator(createTestROM(0x1000), RegionNTSC)
	data, err := e.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	data[stateHeaderSize+100] ^= 0xFF
	if err := e.VerifyState(data); err == nil {
		t.Error("VerifyState should detect corruption")
	}
}

// TestState_VerifyRejectsBadMagic tests the magic check.
func TestState_VerifyRejectsBadMagic(t *testing.T) {
	e := NewEmulator(createTestROM(0x1000), RegionNTSC)
	data, err := e.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	data[0] = 'X'
	if err := e.VerifyState(data); err == nil {
		t.Error("VerifyState should reject a bad magic")
	}

	if err := e.VerifyState(data[:10]); err == nil {
		t.Error("VerifyState should reject a truncated state")
	}
}

// TestState_SizeMatchesLayout tests that Serialize fills exactly the
// declared size.
func TestState_SizeMatchesLayout(t *testing.T) {
	e := NewEmulator(createTestROM(0x1000), RegionNTSC)

	data, err := e.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if len(data) != e.SerializeSize() {
		t.Errorf("State size: expected %d, got %d", e.SerializeSize(), len(data))
	}

	// The serializers must end exactly at the declared size
	end := e.serializeBus(data, stateHeaderSize)
	end = e.serializeVDP(data, end)
	end = e.serializeIO(data, end)
	end = e.serializeFM(data, end)
	if end != e.SerializeSize() {
		t.Errorf("Serialized layout: expected to end at %d, got %d", e.SerializeSize(), end)
	}
}
