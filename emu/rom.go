package emu

// Maximum addressable ROM size (the cartridge window)
const maxROMSize = 0x400000

// LoadROM installs cartridge bytes on the bus. The ROM is padded to at
// least 512 bytes so the 68000 vector table always exists, truncated to
// the 4MB cartridge window, and scanned for the SRAM header.
func (b *Bus) LoadROM(data []byte) {
	size := len(data)
	if size > maxROMSize {
		size = maxROMSize
	}
	b.rom = make([]uint8, size)
	copy(b.rom, data[:size])
	if len(b.rom) < 512 {
		b.rom = append(b.rom, make([]uint8, 512-len(b.rom))...)
	}

	b.parseSRAMHeader()
}

// parseSRAMHeader reads the cartridge SRAM descriptor: "RA" at 0x1B0
// followed by big-endian start (masked to even) and end addresses at
// 0x1B4/0x1B8. Without a descriptor a default window is kept disabled
// until software enables it through 0xA130F1.
func (b *Bus) parseSRAMHeader() {
	if len(b.rom) >= 0x1C0 && b.rom[0x1B0] == 'R' && b.rom[0x1B1] == 'A' {
		b.sramStart = joinLong(b.rom[0x1B4], b.rom[0x1B5], b.rom[0x1B6], b.rom[0x1B7]) & 0xFFFFFE
		b.sramEnd = joinLong(b.rom[0x1B8], b.rom[0x1B9], b.rom[0x1BA], b.rom[0x1BB])

		if b.sramEnd > b.sramStart {
			b.sram = make([]uint8, b.sramEnd-b.sramStart+1)
			b.sramEnabled = true
		}
		return
	}

	b.sramStart = 0x200000
	b.sramEnd = 0x20FFFF
	b.sramEnabled = false
}
