package emu

// Region represents the console region (NTSC or PAL)
type Region int

const (
	RegionNTSC Region = iota
	RegionPAL
)

func (r Region) String() string {
	switch r {
	case RegionNTSC:
		return "NTSC"
	case RegionPAL:
		return "PAL"
	default:
		return "Unknown"
	}
}

// RegionTiming holds timing constants for a specific region
type RegionTiming struct {
	M68KClockHz int // Main CPU clock frequency
	Z80ClockHz  int // Sound CPU clock frequency
	Scanlines   int // Total scanlines per frame
	FPS         int // Frames per second
}

// NTSC timing: 7.670453 MHz 68000, 3.579545 MHz Z80, 262 scanlines, 60 Hz
var NTSCTiming = RegionTiming{
	M68KClockHz: 7670453,
	Z80ClockHz:  3579545,
	Scanlines:   262,
	FPS:         60,
}

// PAL timing: 7.600489 MHz 68000, 3.546893 MHz Z80, 313 scanlines, 50 Hz
var PALTiming = RegionTiming{
	M68KClockHz: 7600489,
	Z80ClockHz:  3546893,
	Scanlines:   313,
	FPS:         50,
}

// GetTimingForRegion returns the appropriate timing constants
func GetTimingForRegion(r Region) RegionTiming {
	if r == RegionPAL {
		return PALTiming
	}
	return NTSCTiming
}

// DefaultRegion returns the default region (NTSC).
func DefaultRegion() Region {
	return RegionNTSC
}

// DetectRegionFromROM returns the region for a ROM based on the header
// region field. The Mega Drive header stores up to three region codes as
// ASCII at offset 0x1F0: 'J' (Japan NTSC), 'U' (overseas NTSC),
// 'E' (overseas PAL). Returns (detected region, true) when the header
// carries a known code, (NTSC, false) otherwise. NTSC wins for
// multi-region ROMs.
func DetectRegionFromROM(rom []byte) (Region, bool) {
	if len(rom) < 0x1F3 {
		return RegionNTSC, false
	}

	pal := false
	for _, c := range rom[0x1F0:0x1F3] {
		switch c {
		case 'J', 'U':
			return RegionNTSC, true
		case 'E':
			pal = true
		}
	}
	if pal {
		return RegionPAL, true
	}
	return RegionNTSC, false
}
