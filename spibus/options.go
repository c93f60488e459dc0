package spibus

// Bit layouts follow the AXI Quad SPI register map. They are only used at the
// Transport boundary; the arbiter works with the typed structs below.
const (
	optMaster       = 0x01
	optClkActiveLow = 0x02
	optClkPhase1    = 0x04
	optLoopback     = 0x08
	optManualSelect = 0x10

	crEnable       = 0x002
	crMaster       = 0x004
	crTxFIFOReset  = 0x020
	crRxFIFOReset  = 0x040
	crManualSelect = 0x080
	crTransInhibit = 0x100
	crFIFOResets   = crTxFIFOReset | crRxFIFOReset
)

// Options are the driver-level operating options.
type Options struct {
	Master            bool
	ManualSlaveSelect bool
	ClockActiveLow    bool
	ClockPhase1       bool
	Loopback          bool
}

// Bits encodes o for Transport.SetOptions.
func (o Options) Bits() uint32 {
	var b uint32
	if o.Master {
		b |= optMaster
	}
	if o.ClockActiveLow {
		b |= optClkActiveLow
	}
	if o.ClockPhase1 {
		b |= optClkPhase1
	}
	if o.Loopback {
		b |= optLoopback
	}
	if o.ManualSlaveSelect {
		b |= optManualSelect
	}
	return b
}

// OptionsFrom decodes option bits.
func OptionsFrom(b uint32) Options {
	return Options{
		Master:            b&optMaster != 0,
		ClockActiveLow:    b&optClkActiveLow != 0,
		ClockPhase1:       b&optClkPhase1 != 0,
		Loopback:          b&optLoopback != 0,
		ManualSlaveSelect: b&optManualSelect != 0,
	}
}

// Control is the subset of the control register the arbiter owns.
type Control struct {
	Enable            bool
	Master            bool
	ManualSlaveSelect bool
	TransferInhibit   bool
}

// Apply returns reg with the fields of c written into it. Bits c does not
// model are preserved, except the self-clearing FIFO reset strobes.
func (c Control) Apply(reg uint32) uint32 {
	reg &^= crEnable | crMaster | crManualSelect | crTransInhibit | crFIFOResets
	if c.Enable {
		reg |= crEnable
	}
	if c.Master {
		reg |= crMaster
	}
	if c.ManualSlaveSelect {
		reg |= crManualSelect
	}
	if c.TransferInhibit {
		reg |= crTransInhibit
	}
	return reg
}

// ControlFrom decodes the arbiter-owned fields of a control register value.
func ControlFrom(reg uint32) Control {
	return Control{
		Enable:            reg&crEnable != 0,
		Master:            reg&crMaster != 0,
		ManualSlaveSelect: reg&crManualSelect != 0,
		TransferInhibit:   reg&crTransInhibit != 0,
	}
}

// Ready reports whether a transfer can be started under c.
func (c Control) Ready() bool { return c.Enable && c.Master && !c.TransferInhibit }

// DefaultOptions is master mode with manual slave select.
func DefaultOptions() Options { return Options{Master: true, ManualSlaveSelect: true} }

// DefaultControl is enabled, master, transfers allowed.
func DefaultControl() Control {
	return Control{Enable: true, Master: true, ManualSlaveSelect: true}
}
