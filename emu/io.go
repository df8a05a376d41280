package emu

// ControllerState holds the full button state for one controller.
type ControllerState struct {
	Up    bool
	Down  bool
	Left  bool
	Right bool
	A     bool
	B     bool
	C     bool
	Start bool

	// 6-button extension
	X    bool
	Y    bool
	Z    bool
	Mode bool
}

// ControllerType identifies what is plugged into a port.
type ControllerType int

const (
	ControllerNone ControllerType = iota
	Controller3Button
	Controller6Button
)

// thResetCycles is the quiescence window after which the 6-button phase
// counter snaps back to 0 when TH stops toggling.
const thResetCycles = 1500

// ControllerPort is one of the three I/O ports: controller type, button
// state, control byte, the TH line latch, and the 6-button phase counter
// with its quiescence timer.
type ControllerPort struct {
	Type    ControllerType
	State   ControllerState
	Control uint8

	thState   bool
	thCounter uint8
	thTimer   uint32
}

func NewControllerPort(t ControllerType) *ControllerPort {
	return &ControllerPort{
		Type:    t,
		thState: true,
	}
}

// Reset returns the port to its power-on state. Button state is host
// supplied and survives.
func (p *ControllerPort) Reset() {
	p.Control = 0
	p.thState = true
	p.thCounter = 0
	p.thTimer = 0
}

// ReadData synthesizes the data port value for the current TH state and
// 6-button phase.
func (p *ControllerPort) ReadData() uint8 {
	switch p.Type {
	case ControllerNone:
		return 0x7F
	case Controller6Button:
		return p.read6Button()
	default:
		return p.read3Button()
	}
}

// read3Button: TH=1 presents {U,D,L,R,B,C} active low; TH=0 presents
// {U,D,-,-,A,S} with bits 2-3 forced low so software can detect a
// controller.
func (p *ControllerPort) read3Button() uint8 {
	if p.thState {
		data := uint8(0x7F)
		if p.State.Up {
			data &^= 0x01
		}
		if p.State.Down {
			data &^= 0x02
		}
		if p.State.Left {
			data &^= 0x04
		}
		if p.State.Right {
			data &^= 0x08
		}
		if p.State.B {
			data &^= 0x10
		}
		if p.State.C {
			data &^= 0x20
		}
		return data
	}

	data := uint8(0x33)
	if p.State.Up {
		data &^= 0x01
	}
	if p.State.Down {
		data &^= 0x02
	}
	if p.State.A {
		data &^= 0x10
	}
	if p.State.Start {
		data &^= 0x20
	}
	return data
}

// read6Button: phases 0, 1, 2 and 4 behave as 3-button; phase 3 returns
// the ID nibble, phase 5 the extra buttons. Any TH=1 read is standard.
func (p *ControllerPort) read6Button() uint8 {
	switch p.thCounter {
	case 3:
		return p.readIDNibble()
	case 5:
		return p.readExtraButtons()
	default:
		return p.read3Button()
	}
}

// readIDNibble: phase 3 with TH=0 returns bits 2-3 set with Up/Down
// active high in bits 0-1.
func (p *ControllerPort) readIDNibble() uint8 {
	if p.thState {
		return p.read3Button()
	}

	data := uint8(0x0C)
	if p.State.Up {
		data |= 0x01
	}
	if p.State.Down {
		data |= 0x02
	}
	return data
}

// readExtraButtons: phase 5 with TH=0 returns Z/Y/X/Mode active high in
// bits 0-3 with bits 4-6 set.
func (p *ControllerPort) readExtraButtons() uint8 {
	if p.thState {
		return p.read3Button()
	}

	data := uint8(0x70)
	if p.State.Z {
		data |= 0x01
	}
	if p.State.Y {
		data |= 0x02
	}
	if p.State.X {
		data |= 0x04
	}
	if p.State.Mode {
		data |= 0x08
	}
	return data
}

// WriteData latches the TH line (bit 6). A TH 1->0 transition advances
// the 6-button phase counter modulo 8 and restarts the quiescence timer.
func (p *ControllerPort) WriteData(value uint8) {
	newTH := (value & 0x40) != 0

	if p.thState && !newTH && p.Type == Controller6Button {
		p.thCounter = (p.thCounter + 1) % 8
		p.thTimer = 0
	}

	p.thState = newTH
}

// Update advances the quiescence timer. The phase counter resets once TH
// has been idle for the reset window.
func (p *ControllerPort) Update(cycles uint32) {
	if p.Type != Controller6Button {
		return
	}
	p.thTimer += cycles
	if p.thTimer > thResetCycles {
		p.thCounter = 0
	}
}

// IO is the I/O controller block: two controller ports, the expansion
// port, and the version register.
type IO struct {
	Port1     *ControllerPort
	Port2     *ControllerPort
	Expansion *ControllerPort
	Version   uint8
}

func NewIO() *IO {
	return &IO{
		Port1:     NewControllerPort(Controller3Button),
		Port2:     NewControllerPort(Controller3Button),
		Expansion: NewControllerPort(ControllerNone),
		Version:   0xA0, // Overseas, no expansion unit
	}
}

// Reset resets all ports.
func (io *IO) Reset() {
	io.Port1.Reset()
	io.Port2.Reset()
	io.Expansion.Reset()
}

// Read decodes an I/O area register read (low 5 address bits).
func (io *IO) Read(addr uint32) uint8 {
	switch addr & 0x1F {
	case 0x01:
		return io.Version
	case 0x03:
		return io.Port1.ReadData()
	case 0x05:
		return io.Port2.ReadData()
	case 0x07:
		return io.Expansion.ReadData()
	case 0x09:
		return io.Port1.Control
	case 0x0B:
		return io.Port2.Control
	case 0x0D:
		return io.Expansion.Control
	default:
		return 0xFF
	}
}

// Write decodes an I/O area register write.
func (io *IO) Write(addr uint32, value uint8) {
	switch addr & 0x1F {
	case 0x03:
		io.Port1.WriteData(value)
	case 0x05:
		io.Port2.WriteData(value)
	case 0x07:
		io.Expansion.WriteData(value)
	case 0x09:
		io.Port1.Control = value
	case 0x0B:
		io.Port2.Control = value
	case 0x0D:
		io.Expansion.Control = value
	}
}

// Controller returns the button state for port 1-3 so the host can
// deliver input each frame.
func (io *IO) Controller(port int) *ControllerState {
	switch port {
	case 1:
		return &io.Port1.State
	case 2:
		return &io.Port2.State
	case 3:
		return &io.Expansion.State
	default:
		return nil
	}
}

// SetControllerType configures what is plugged into a port.
func (io *IO) SetControllerType(port int, t ControllerType) {
	switch port {
	case 1:
		io.Port1.Type = t
	case 2:
		io.Port2.Type = t
	case 3:
		io.Expansion.Type = t
	}
}

// Update advances the per-port quiescence timers.
func (io *IO) Update(cycles uint32) {
	io.Port1.Update(cycles)
	io.Port2.Update(cycles)
}
