package emu

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// Save state format constants
const (
	stateVersion    = 1
	stateMagic      = "eMkVSState"
	stateHeaderSize = 20 // magic(10) + version(2) + romCRC(4) + dataCRC(4)
)

// ROMCRC32 returns the CRC32 of the loaded ROM, used to key save states
// to the cartridge they were taken from.
func (b *Bus) ROMCRC32() uint32 {
	return crc32.ChecksumIEEE(b.rom)
}

// SerializeSize returns the total size in bytes needed for a save state.
// It depends on the loaded ROM only through the SRAM window size, which
// the ROM CRC in the header already pins down.
func (e *Emulator) SerializeSize() int {
	return stateHeaderSize +
		8 + // bus flags: busreq, reset, bank addr+bit, TMSS latch
		4 + // TMSS register shadow
		1 + // SRAM enable
		4 + // sample rate
		0x10000 + // work RAM
		0x2000 + // Z80 RAM
		4 + len(e.bus.sram) + // SRAM length + data
		0x10000 + // VRAM
		128 + // CRAM
		80 + // VSRAM
		NumRegisters + // VDP registers
		11 + // VDP status, command state, last data write
		6 + // VDP counters
		1 + // HINT pending
		3*10 + // I/O ports
		512 + // FM register banks
		2 + // FM address latches
		1 + // FM status
		12 + // FM timer counters + busy window
		2 // FM DAC value + enable
}

// Serialize creates a save state. Derived state (CRAM cache, framebuffer)
// and the opaque PSG are not included.
func (e *Emulator) Serialize() ([]byte, error) {
	data := make([]byte, e.SerializeSize())

	copy(data[0:10], stateMagic)
	binary.LittleEndian.PutUint16(data[10:12], stateVersion)
	binary.LittleEndian.PutUint32(data[12:16], e.bus.ROMCRC32())
	// Data CRC is written last

	offset := stateHeaderSize
	offset = e.serializeBus(data, offset)
	offset = e.serializeVDP(data, offset)
	offset = e.serializeIO(data, offset)
	e.serializeFM(data, offset)

	dataCRC := crc32.ChecksumIEEE(data[stateHeaderSize:])
	binary.LittleEndian.PutUint32(data[16:20], dataCRC)

	return data, nil
}

// Deserialize restores emulator state from a save state byte slice and
// rebuilds the derived CRAM cache.
func (e *Emulator) Deserialize(data []byte) error {
	if err := e.VerifyState(data); err != nil {
		return err
	}

	offset := stateHeaderSize
	offset = e.deserializeBus(data, offset)
	offset = e.deserializeVDP(data, offset)
	offset = e.deserializeIO(data, offset)
	e.deserializeFM(data, offset)

	e.bus.vdp.RebuildCRAMCache()

	return nil
}

// VerifyState checks whether a save state is valid for the loaded ROM
// without applying it.
func (e *Emulator) VerifyState(data []byte) error {
	if len(data) < e.SerializeSize() {
		return errors.New("save state too short")
	}
	if string(data[0:10]) != stateMagic {
		return errors.New("invalid save state magic")
	}
	if version := binary.LittleEndian.Uint16(data[10:12]); version > stateVersion {
		return errors.New("unsupported save state version")
	}
	if romCRC := binary.LittleEndian.Uint32(data[12:16]); romCRC != e.bus.ROMCRC32() {
		return errors.New("save state is for a different ROM")
	}
	expectedCRC := binary.LittleEndian.Uint32(data[16:20])
	if actualCRC := crc32.ChecksumIEEE(data[stateHeaderSize:]); actualCRC != expectedCRC {
		return errors.New("save state data is corrupted")
	}
	return nil
}

func putBool(data []byte, offset int, v bool) int {
	if v {
		data[offset] = 1
	} else {
		data[offset] = 0
	}
	return offset + 1
}

func getBool(data []byte, offset int) (bool, int) {
	return data[offset] != 0, offset + 1
}

func (e *Emulator) serializeBus(data []byte, offset int) int {
	b := e.bus

	offset = putBool(data, offset, b.z80BusRequest)
	offset = putBool(data, offset, b.z80Reset)
	binary.LittleEndian.PutUint32(data[offset:], b.z80BankAddr)
	offset += 4
	data[offset] = b.z80BankBit
	offset++
	offset = putBool(data, offset, b.tmssUnlocked)
	copy(data[offset:], b.tmssRegister[:])
	offset += 4
	offset = putBool(data, offset, b.sramEnabled)
	binary.LittleEndian.PutUint32(data[offset:], uint32(b.sampleRate))
	offset += 4

	copy(data[offset:], b.workRAM[:])
	offset += len(b.workRAM)
	copy(data[offset:], b.z80RAM[:])
	offset += len(b.z80RAM)

	binary.LittleEndian.PutUint32(data[offset:], uint32(len(b.sram)))
	offset += 4
	copy(data[offset:], b.sram)
	offset += len(b.sram)

	return offset
}

func (e *Emulator) deserializeBus(data []byte, offset int) int {
	b := e.bus

	b.z80BusRequest, offset = getBool(data, offset)
	b.z80Reset, offset = getBool(data, offset)
	b.z80BankAddr = binary.LittleEndian.Uint32(data[offset:])
	offset += 4
	b.z80BankBit = data[offset]
	offset++
	b.tmssUnlocked, offset = getBool(data, offset)
	copy(b.tmssRegister[:], data[offset:offset+4])
	offset += 4
	b.sramEnabled, offset = getBool(data, offset)
	b.sampleRate = int(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4

	copy(b.workRAM[:], data[offset:offset+len(b.workRAM)])
	offset += len(b.workRAM)
	copy(b.z80RAM[:], data[offset:offset+len(b.z80RAM)])
	offset += len(b.z80RAM)

	sramLen := int(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4
	if sramLen == len(b.sram) {
		copy(b.sram, data[offset:offset+sramLen])
	}
	offset += sramLen

	return offset
}

func (e *Emulator) serializeVDP(data []byte, offset int) int {
	v := e.bus.vdp

	copy(data[offset:], v.vram[:])
	offset += len(v.vram)
	copy(data[offset:], v.cram[:])
	offset += len(v.cram)
	copy(data[offset:], v.vsram[:])
	offset += len(v.vsram)
	copy(data[offset:], v.registers[:])
	offset += len(v.registers)

	binary.LittleEndian.PutUint16(data[offset:], v.status)
	offset += 2
	offset = putBool(data, offset, v.controlPending)
	data[offset] = v.controlCode
	offset++
	binary.LittleEndian.PutUint16(data[offset:], v.controlAddress)
	offset += 2
	offset = putBool(data, offset, v.dmaPending)
	// 2 bytes reserved to keep the command block word aligned
	offset += 2
	binary.LittleEndian.PutUint16(data[offset:], v.lastDataWrite)
	offset += 2

	binary.LittleEndian.PutUint16(data[offset:], v.hCounter)
	offset += 2
	binary.LittleEndian.PutUint16(data[offset:], v.vCounter)
	offset += 2
	binary.LittleEndian.PutUint16(data[offset:], v.lineCounter)
	offset += 2
	offset = putBool(data, offset, v.hintPending)

	return offset
}

func (e *Emulator) deserializeVDP(data []byte, offset int) int {
	v := e.bus.vdp

	copy(v.vram[:], data[offset:offset+len(v.vram)])
	offset += len(v.vram)
	copy(v.cram[:], data[offset:offset+len(v.cram)])
	offset += len(v.cram)
	copy(v.vsram[:], data[offset:offset+len(v.vsram)])
	offset += len(v.vsram)
	copy(v.registers[:], data[offset:offset+len(v.registers)])
	offset += len(v.registers)

	v.status = binary.LittleEndian.Uint16(data[offset:])
	offset += 2
	v.controlPending, offset = getBool(data, offset)
	v.controlCode = data[offset]
	offset++
	v.controlAddress = binary.LittleEndian.Uint16(data[offset:])
	offset += 2
	v.dmaPending, offset = getBool(data, offset)
	offset += 2
	v.lastDataWrite = binary.LittleEndian.Uint16(data[offset:])
	offset += 2

	v.hCounter = binary.LittleEndian.Uint16(data[offset:])
	offset += 2
	v.vCounter = binary.LittleEndian.Uint16(data[offset:])
	offset += 2
	v.lineCounter = binary.LittleEndian.Uint16(data[offset:])
	offset += 2
	v.hintPending, offset = getBool(data, offset)

	return offset
}

// packButtons packs a controller's button state into a bitmask.
func packButtons(s *ControllerState) uint16 {
	var v uint16
	bools := []bool{s.Up, s.Down, s.Left, s.Right, s.A, s.B, s.C, s.Start,
		s.X, s.Y, s.Z, s.Mode}
	for i, b := range bools {
		if b {
			v |= 1 << i
		}
	}
	return v
}

func unpackButtons(v uint16) ControllerState {
	return ControllerState{
		Up: v&0x001 != 0, Down: v&0x002 != 0, Left: v&0x004 != 0, Right: v&0x008 != 0,
		A: v&0x010 != 0, B: v&0x020 != 0, C: v&0x040 != 0, Start: v&0x080 != 0,
		X: v&0x100 != 0, Y: v&0x200 != 0, Z: v&0x400 != 0, Mode: v&0x800 != 0,
	}
}

func serializePort(data []byte, offset int, p *ControllerPort) int {
	data[offset] = uint8(p.Type)
	offset++
	binary.LittleEndian.PutUint16(data[offset:], packButtons(&p.State))
	offset += 2
	data[offset] = p.Control
	offset++
	offset = putBool(data, offset, p.thState)
	data[offset] = p.thCounter
	offset++
	binary.LittleEndian.PutUint32(data[offset:], p.thTimer)
	offset += 4
	return offset
}

func deserializePort(data []byte, offset int, p *ControllerPort) int {
	p.Type = ControllerType(data[offset])
	offset++
	p.State = unpackButtons(binary.LittleEndian.Uint16(data[offset:]))
	offset += 2
	p.Control = data[offset]
	offset++
	p.thState, offset = getBool(data, offset)
	p.thCounter = data[offset]
	offset++
	p.thTimer = binary.LittleEndian.Uint32(data[offset:])
	offset += 4
	return offset
}

func (e *Emulator) serializeIO(data []byte, offset int) int {
	offset = serializePort(data, offset, e.bus.io.Port1)
	offset = serializePort(data, offset, e.bus.io.Port2)
	offset = serializePort(data, offset, e.bus.io.Expansion)
	return offset
}

func (e *Emulator) deserializeIO(data []byte, offset int) int {
	offset = deserializePort(data, offset, e.bus.io.Port1)
	offset = deserializePort(data, offset, e.bus.io.Port2)
	offset = deserializePort(data, offset, e.bus.io.Expansion)
	return offset
}

func (e *Emulator) serializeFM(data []byte, offset int) int {
	y := e.bus.fm

	copy(data[offset:], y.registers[0][:])
	offset += 256
	copy(data[offset:], y.registers[1][:])
	offset += 256
	data[offset] = y.address[0]
	offset++
	data[offset] = y.address[1]
	offset++
	data[offset] = y.status
	offset++
	binary.LittleEndian.PutUint32(data[offset:], uint32(y.timerACount))
	offset += 4
	binary.LittleEndian.PutUint32(data[offset:], uint32(y.timerBCount))
	offset += 4
	binary.LittleEndian.PutUint32(data[offset:], uint32(y.busyCycles))
	offset += 4
	data[offset] = y.dacValue
	offset++
	offset = putBool(data, offset, y.dacEnabled)

	return offset
}

func (e *Emulator) deserializeFM(data []byte, offset int) int {
	y := e.bus.fm

	copy(y.registers[0][:], data[offset:offset+256])
	offset += 256
	copy(y.registers[1][:], data[offset:offset+256])
	offset += 256
	y.address[0] = data[offset]
	offset++
	y.address[1] = data[offset]
	offset++
	y.status = data[offset]
	offset++
	y.timerACount = int32(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4
	y.timerBCount = int32(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4
	y.busyCycles = int32(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4
	y.dacValue = data[offset]
	offset++
	y.dacEnabled, offset = getBool(data, offset)

	return offset
}
