package emu

import (
	"github.com/user-none/go-chip-m68k"
	"github.com/user-none/go-chip-sn76489"
	"github.com/user-none/go-chip-z80"
)

const sampleRate = 48000

// Interrupt levels the VDP drives on the 68000
const (
	vintLevel = 6
	hintLevel = 4
)

// Emulator ties the two CPUs, the bus, and the VDP into a frame-stepped
// machine. All execution is synchronous: RunFrame returns after one full
// frame of emulated time.
type Emulator struct {
	cpu *m68k.CPU
	z80 *z80.CPU
	bus *Bus

	region Region
	timing RegionTiming

	cyclesPerFrame int

	// Z80 clock ratio with a 16-bit fractional accumulator, so the two
	// CPUs stay in ratio without per-step rounding drift.
	z80RatioFP int
	z80Accum   int64
}

// NewEmulator builds a machine around the given ROM.
func NewEmulator(rom []byte, region Region) *Emulator {
	timing := GetTimingForRegion(region)

	samplesPerFrame := sampleRate / timing.FPS
	psg := sn76489.New(timing.Z80ClockHz, sampleRate, samplesPerFrame*2, sn76489.Sega)

	bus := NewBus(psg)
	bus.LoadROM(rom)

	cyclesPerFrame := timing.M68KClockHz / timing.FPS
	bus.vdp.SetRegion(region == RegionPAL)
	bus.vdp.SetCyclesPerLine(cyclesPerFrame / timing.Scanlines)

	return &Emulator{
		cpu:            m68k.New(NewM68KBus(bus)),
		z80:            z80.New(NewZ80Bus(bus)),
		bus:            bus,
		region:         region,
		timing:         timing,
		cyclesPerFrame: cyclesPerFrame,
		z80RatioFP:     (timing.Z80ClockHz << 16) / timing.M68KClockHz,
	}
}

// Reset performs a hardware reset: devices return to power-on state and
// the 68000 reloads its stack pointer and program counter from the ROM
// vector table.
func (e *Emulator) Reset() {
	e.bus.Reset()
	e.cpu.Reset()
	e.z80 = z80.New(NewZ80Bus(e.bus))
	e.z80Accum = 0
}

// RunFrame executes one frame: the 68000 steps one instruction at a time,
// the Z80 follows in clock ratio when it is neither reset nor bus
// requested, the sound timers and VDP advance by the same cycles, and the
// frame is rasterized at the end.
func (e *Emulator) RunFrame() []int16 {
	frameCycles := 0
	z80Cycles := 0

	for frameCycles < e.cyclesPerFrame {
		cycles := e.cpu.Step()
		if cycles <= 0 {
			// Halted CPU still consumes bus time
			cycles = 4
		}
		frameCycles += cycles

		if !e.bus.z80Reset && !e.bus.z80BusRequest {
			e.z80Accum += int64(cycles) * int64(e.z80RatioFP)
			budget := int(e.z80Accum >> 16)
			consumed := 0
			for consumed < budget {
				n := e.z80.Step()
				if n <= 0 {
					break
				}
				consumed += n
			}
			e.z80Accum -= int64(consumed) << 16
			z80Cycles += consumed
		}

		e.bus.fm.Step(cycles)
		e.bus.io.Update(uint32(cycles))
		e.bus.Tick(cycles)
		e.updateInterrupts()
	}

	e.bus.vdp.RenderFrame()

	return e.generateAudio(z80Cycles)
}

// updateInterrupts re-evaluates the VDP interrupt lines after each
// instruction. VINT outranks HINT; the status port read acknowledges
// VINT (clearing the pending bit stops the request), while HINT pending
// is consumed when its request is issued. The Z80 sees a level-triggered
// interrupt for the duration of VBLANK.
func (e *Emulator) updateInterrupts() {
	if e.bus.vdp.VBlankPending() {
		e.cpu.RequestInterrupt(vintLevel, nil)
	} else if e.bus.vdp.HBlankPending() {
		e.cpu.RequestInterrupt(hintLevel, nil)
		e.bus.vdp.AckHInt()
	}

	if e.bus.vdp.Status()&StatusVBlank != 0 {
		e.z80.SetInterrupt(z80.IM1Interrupt())
	} else {
		e.z80.ClearInterrupt()
	}
}

// generateAudio clocks the PSG by the Z80 cycles the frame consumed and
// converts the output to 16-bit stereo.
func (e *Emulator) generateAudio(z80Cycles int) []int16 {
	if e.bus.psg == nil || z80Cycles == 0 {
		return nil
	}
	e.bus.psg.GenerateSamples(z80Cycles)
	buf, count := e.bus.psg.GetBuffer()
	if count == 0 {
		return nil
	}
	return ConvertAudioSamples(buf[:count])
}

// ConvertAudioSamples converts float32 mono samples to int16 stereo.
func ConvertAudioSamples(samples []float32) []int16 {
	result := make([]int16, len(samples)*2)
	for i, sample := range samples {
		intSample := int16(sample * 32767)
		result[i*2] = intSample
		result[i*2+1] = intSample
	}
	return result
}

// SetInput replaces the button state for a controller port (1-3).
func (e *Emulator) SetInput(port int, state ControllerState) {
	if ctrl := e.bus.io.Controller(port); ctrl != nil {
		*ctrl = state
	}
}

// SetControllerType configures what is plugged into a port.
func (e *Emulator) SetControllerType(port int, t ControllerType) {
	e.bus.io.SetControllerType(port, t)
}

// Framebuffer returns the 320x240 RGB565 framebuffer.
func (e *Emulator) Framebuffer() []uint16 {
	return e.bus.vdp.Framebuffer()
}

// ScreenWidth returns the active display width (256 or 320).
func (e *Emulator) ScreenWidth() int {
	return e.bus.vdp.ScreenWidth()
}

// ScreenHeight returns the active display height (224 or 240).
func (e *Emulator) ScreenHeight() int {
	return e.bus.vdp.ScreenHeight()
}

// Bus returns the main bus.
func (e *Emulator) Bus() *Bus {
	return e.bus
}

// Region returns the emulator's region setting.
func (e *Emulator) Region() Region {
	return e.region
}

// Timing returns the region timing configuration.
func (e *Emulator) Timing() RegionTiming {
	return e.timing
}

// CyclesPerFrame returns the main CPU cycle budget for one frame.
func (e *Emulator) CyclesPerFrame() int {
	return e.cyclesPerFrame
}
