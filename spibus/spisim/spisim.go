// Package spisim is an in-memory SPI master with an XPT2046-style touch
// controller and a display sink behind it. It records every select and reset
// so tests can check bus discipline, and it can inject transfer failures.
package spisim

import (
	"errors"
	"math/bits"
	"strconv"
)

// ErrInjected is returned by Transfer when a failure was scripted.
var ErrInjected = errors.New("spisim: injected transfer failure")

// Register bits mirrored from the AXI Quad SPI control register.
const (
	crEnable       = 0x002
	crMaster       = 0x004
	crTransInhibit = 0x100
)

// Panel is what the touch controller currently converts. Values are 12-bit.
type Panel struct {
	X, Y, Z1, Z2 uint16
}

// OpKind tags a trace entry.
type OpKind uint8

const (
	OpSelect OpKind = iota
	OpReset
	OpTransfer
)

// Op is one recorded bus action. Mask is the select mask for OpSelect and
// the selected mask for OpTransfer.
type Op struct {
	Kind OpKind
	Mask uint32
	Cmd  byte
}

// Transport implements spibus.Transport.
type Transport struct {
	// Panel returns the controller's reading for the current transfer.
	// Scripted tests swap it between iterations.
	Panel func() Panel

	// Fail, when set, is consulted before every transfer; returning true
	// makes the transfer fail with ErrInjected.
	Fail func(op Op) bool

	DisplayMask uint32
	TouchMask   uint32

	// Strict makes Transfer fail when the FIFO still holds the other
	// peripheral's bytes, as real hardware would corrupt them.
	Strict bool

	selected uint32
	opts     uint32
	ctrl     uint32
	dirty    uint32 // mask whose bytes are still in the FIFO

	Trace      []Op
	Violations []string
	Resets     int
	DisplayTx  int // bytes clocked to the display
}

// New returns a transport with the default wiring (display 0x01, touch 0x02)
// and a static panel reading.
func New(p Panel) *Transport {
	return &Transport{
		Panel:       func() Panel { return p },
		DisplayMask: 0x01,
		TouchMask:   0x02,
	}
}

// SetPanel replaces the panel reading with a fixed value.
func (t *Transport) SetPanel(p Panel) { t.Panel = func() Panel { return p } }

func (t *Transport) violate(msg string) { t.Violations = append(t.Violations, msg) }

func (t *Transport) SelectSlave(mask uint32) error {
	if bits.OnesCount32(mask) > 1 {
		t.violate("two select lines asserted: mask=" + strconv.FormatUint(uint64(mask), 16))
	}
	if mask != 0 && t.selected != 0 && mask != t.selected {
		t.violate("select without deselect")
	}
	t.selected = mask
	t.Trace = append(t.Trace, Op{Kind: OpSelect, Mask: mask})
	return nil
}

func (t *Transport) Transfer(tx, rx []byte) error {
	op := Op{Kind: OpTransfer, Mask: t.selected}
	if len(tx) > 0 {
		op.Cmd = tx[0]
	}
	t.Trace = append(t.Trace, op)

	if t.ctrl&(crEnable|crMaster) != crEnable|crMaster || t.ctrl&crTransInhibit != 0 {
		return errors.New("spisim: controller not configured")
	}
	if t.selected == 0 {
		return errors.New("spisim: no slave selected")
	}
	if t.dirty != 0 && t.dirty != t.selected {
		t.violate("stale FIFO from another peripheral")
		if t.Strict {
			return errors.New("spisim: stale FIFO")
		}
	}
	if t.Fail != nil && t.Fail(op) {
		return ErrInjected
	}
	t.dirty = t.selected

	switch t.selected {
	case t.TouchMask:
		t.answer(tx, rx)
	case t.DisplayMask:
		t.DisplayTx += len(tx)
	}
	return nil
}

// answer models the controller: the command byte clocks out first, then the
// 12-bit conversion arrives MSB-first left-aligned in the next two bytes.
func (t *Transport) answer(tx, rx []byte) {
	if len(tx) < 3 || len(rx) < 3 {
		return
	}
	p := t.Panel()
	var v uint16
	switch tx[0] & 0xF0 {
	case 0xD0:
		v = p.X
	case 0x90:
		v = p.Y
	case 0xB0:
		v = p.Z1
	case 0xC0:
		v = p.Z2
	}
	v &= 0x0FFF
	rx[0] = 0
	rx[1] = byte(v >> 4)
	rx[2] = byte(v << 4)
}

func (t *Transport) Reset() {
	t.Resets++
	t.selected = 0
	t.opts = 0
	t.ctrl = 0
	t.dirty = 0
	t.Trace = append(t.Trace, Op{Kind: OpReset})
}

func (t *Transport) SetOptions(bits uint32) error {
	t.opts = bits
	return nil
}

func (t *Transport) ControlReg() uint32     { return t.ctrl }
func (t *Transport) SetControlReg(v uint32) { t.ctrl = v }

// Selected returns the currently asserted mask.
func (t *Transport) Selected() uint32 { return t.selected }

// CheckHandoffs walks the trace and reports every select of one peripheral
// that was not preceded by a deselect and a reset since the last select of
// a different peripheral.
func (t *Transport) CheckHandoffs() []string {
	var out []string
	var last uint32
	released, reset := true, true
	for i, op := range t.Trace {
		switch op.Kind {
		case OpReset:
			reset = released
		case OpSelect:
			if op.Mask == 0 {
				released = true
				reset = false
				continue
			}
			if last != 0 && op.Mask != last && !(released && reset) {
				out = append(out, "handoff without deselect+reset at op "+strconv.Itoa(i))
			}
			last = op.Mask
			released, reset = false, false
		}
	}
	return out
}
