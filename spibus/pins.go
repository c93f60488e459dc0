package spibus

import (
	"errors"

	"tinygo.org/x/drivers"
)

// OutputPin is an active-low chip-select line. machine.Pin satisfies it.
type OutputPin interface {
	High()
	Low()
}

var (
	errInhibited = errors.New("spibus: transfer inhibited")
	errNoSlave   = errors.New("spibus: no slave selected")
)

// PinTransport drives a drivers.SPI master with one GPIO chip select per
// slave. Slave n in a mask is pins[n].
//
// MCU SPI blocks like the RP2040's have no software-visible FIFO reset, so
// Reset re-runs the optional Reconfigure hook (typically SPI.Configure) to
// drain the engine.
type PinTransport struct {
	bus  drivers.SPI
	pins []OutputPin

	Reconfigure func() error

	selected uint32
	opts     uint32
	ctrl     uint32
	// reconfErr is the last Reconfigure failure, reported by the next
	// SetOptions since Reset cannot return it.
	reconfErr error
}

// NewPinTransport deasserts every pin and returns the transport.
func NewPinTransport(bus drivers.SPI, pins ...OutputPin) *PinTransport {
	t := &PinTransport{bus: bus, pins: pins}
	for _, p := range pins {
		p.High()
	}
	return t
}

func (t *PinTransport) SelectSlave(mask uint32) error {
	if mask>>uint(len(t.pins)) != 0 {
		return errors.New("spibus: select mask names a missing pin")
	}
	// Release before asserting so two lines are never low together.
	for i, p := range t.pins {
		if mask&(1<<uint(i)) == 0 {
			p.High()
		}
	}
	for i, p := range t.pins {
		if mask&(1<<uint(i)) != 0 {
			p.Low()
		}
	}
	t.selected = mask
	return nil
}

func (t *PinTransport) Transfer(tx, rx []byte) error {
	if !ControlFrom(t.ctrl).Ready() {
		return errInhibited
	}
	if t.selected == 0 && OptionsFrom(t.opts).ManualSlaveSelect {
		return errNoSlave
	}
	return t.bus.Tx(tx, rx)
}

func (t *PinTransport) Reset() {
	_ = t.SelectSlave(0)
	t.opts = 0
	t.ctrl = 0
	t.reconfErr = nil
	if t.Reconfigure != nil {
		t.reconfErr = t.Reconfigure()
	}
}

// SetOptions fails if the reconfigure run by the preceding Reset did; the
// options are not applied to an unconfigured master.
func (t *PinTransport) SetOptions(bits uint32) error {
	if err := t.reconfErr; err != nil {
		t.reconfErr = nil
		return err
	}
	t.opts = bits
	return nil
}

func (t *PinTransport) ControlReg() uint32     { return t.ctrl }
func (t *PinTransport) SetControlReg(v uint32) { t.ctrl = v }
