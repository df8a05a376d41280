package emu

// dmaSource returns the raw source address composed from registers 21-23.
func (v *VDP) dmaSource() uint32 {
	return (uint32(v.registers[RegDMASrcHi]) << 17) |
		(uint32(v.registers[RegDMASrcMid]) << 9) |
		(uint32(v.registers[RegDMASrcLo]) << 1)
}

// dmaLength returns the transfer length in words from registers 19/20.
func (v *VDP) dmaLength() uint32 {
	return (uint32(v.registers[RegDMALenHi]) << 8) | uint32(v.registers[RegDMALenLo])
}

// dmaSourceTransfer composes the memory source address for transfer mode.
// Register 23 bit 6 forces the source into the work RAM region.
func (v *VDP) dmaSourceTransfer() uint32 {
	hi := uint32(v.registers[RegDMASrcHi])
	mid := uint32(v.registers[RegDMASrcMid])
	lo := uint32(v.registers[RegDMASrcLo])

	if hi&0x40 != 0 {
		// RAM transfer: address bits 23-16 forced to 1
		return 0xFF0000 | (mid << 9) | (lo << 1)
	}
	// ROM transfer: bits 7-6 not used, bits 5-0 are address bits 22-17
	return ((hi & 0x3F) << 17) | (mid << 9) | (lo << 1)
}

// isDMATransfer reports memory-to-VDP transfer mode (register 23 bit 7
// clear).
func (v *VDP) isDMATransfer() bool {
	return (v.registers[RegDMASrcHi] & 0x80) == 0
}

// executeDMATransfer copies words from main memory into the currently
// selected destination space. Source words come through readWord, the
// ROM/work-RAM path supplied by the bus.
func (v *VDP) executeDMATransfer(readWord func(addr uint32) uint16) {
	length := v.dmaLength()
	if length == 0 {
		length = 0x10000
	}

	src := v.dmaSourceTransfer()
	for i := uint32(0); i < length; i++ {
		v.writeDataPort(readWord(src))
		src += 2
	}

	v.dmaPending = false
}

// performDMAFill writes length copies of the fill byte (the high byte of
// the most recent data port write) into VRAM starting at the destination
// address, stepping by the auto-increment value. With an auto-increment
// of 0 only a single byte is written.
func (v *VDP) performDMAFill(length uint32) {
	fillByte := uint8(v.lastDataWrite >> 8)
	addr := v.controlAddress
	inc := uint16(v.registers[RegAutoInc])

	switch inc {
	case 1:
		// Contiguous fill, wrapping at 64KB
		start := int(addr)
		count := int(length)
		if start+count <= len(v.vram) {
			for i := start; i < start+count; i++ {
				v.vram[i] = fillByte
			}
		} else {
			for i := start; i < len(v.vram); i++ {
				v.vram[i] = fillByte
			}
			for i := 0; i < count-(len(v.vram)-start); i++ {
				v.vram[i] = fillByte
			}
		}
		v.controlAddress = addr + uint16(length)
	case 0:
		if length > 0 {
			v.vram[addr] = fillByte
		}
	default:
		for i := uint32(0); i < length; i++ {
			v.vram[addr] = fillByte
			addr += inc
		}
		v.controlAddress = addr
	}
}

// executeDMA runs the armed fill or VRAM copy operation and clears the
// pending flag. Length 0 means 0x10000.
func (v *VDP) executeDMA() uint32 {
	length := v.dmaLength()
	if length == 0 {
		length = 0x10000
	}

	switch v.registers[RegDMASrcHi] & DMAModeMask {
	case DMAModeFill:
		v.performDMAFill(length)
	case DMAModeCopy:
		// VRAM to VRAM: source is a 16-bit byte address from registers
		// 22:21, incrementing by one; destination steps by auto-increment.
		src := uint16(v.dmaSource() & 0xFFFF)
		dest := v.controlAddress
		inc := uint16(v.registers[RegAutoInc])

		for i := uint32(0); i < length; i++ {
			v.vram[dest] = v.vram[src]
			src++
			dest += inc
		}
		v.controlAddress = dest
	}

	v.dmaPending = false
	return length
}
