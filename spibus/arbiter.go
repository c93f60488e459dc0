package spibus

import (
	"time"

	"touchpanel-go/errcode"
	"touchpanel-go/x/logx"
	"touchpanel-go/x/timex"
)

// Default chip-select wiring and touch controller settling time.
const (
	DefaultDisplayMask uint32 = 0x01
	DefaultTouchMask   uint32 = 0x02
	DefaultTouchSettle        = 3 * time.Millisecond
)

// Config controls the arbiter. Zero fields take the defaults above.
type Config struct {
	DisplayMask uint32
	TouchMask   uint32

	// Settle times waited after asserting and after releasing each
	// peripheral's select line. Display needs none; the touch controller's
	// analog front end does.
	DisplaySettle time.Duration
	TouchSettle   time.Duration

	Options *Options
	Control *Control

	Sleep timex.Sleeper
	Log   *logx.Logger
}

// Arbiter owns the slave-select state of a shared Transport.
// It is not safe for concurrent use; the polling loop is its only caller.
type Arbiter struct {
	t     Transport
	cfg   Config
	opts  Options
	ctrl  Control
	sleep timex.Sleeper
	log   *logx.Logger

	owner Peripheral
}

// New wraps t. It does not touch the hardware; call Init before use.
func New(t Transport, cfg Config) *Arbiter {
	if cfg.DisplayMask == 0 {
		cfg.DisplayMask = DefaultDisplayMask
	}
	if cfg.TouchMask == 0 {
		cfg.TouchMask = DefaultTouchMask
	}
	if cfg.TouchSettle == 0 {
		cfg.TouchSettle = DefaultTouchSettle
	}
	a := &Arbiter{
		t:     t,
		cfg:   cfg,
		opts:  DefaultOptions(),
		ctrl:  DefaultControl(),
		sleep: cfg.Sleep.Or(),
		log:   cfg.Log,
	}
	if cfg.Options != nil {
		a.opts = *cfg.Options
	}
	if cfg.Control != nil {
		a.ctrl = *cfg.Control
	}
	if a.log == nil {
		a.log = logx.Nop()
	}
	return a
}

// Init deselects every slave, runs a reset-and-reconfigure cycle and checks
// that the engine came up as an enabled master.
func (a *Arbiter) Init() error {
	if a.cfg.DisplayMask&a.cfg.TouchMask != 0 {
		return &errcode.E{C: errcode.InvalidConfig, Op: "spibus.init", Msg: "display and touch share a select line"}
	}
	if err := a.t.SelectSlave(0); err != nil {
		return &errcode.E{C: errcode.InitFailed, Op: "spibus.init", Err: err}
	}
	a.owner = None
	if err := a.ResetAndReconfigure(); err != nil {
		return err
	}
	cr := a.t.ControlReg()
	if !ControlFrom(cr).Ready() {
		return &errcode.E{C: errcode.InitFailed, Op: "spibus.init", Msg: "controller not ready after reconfigure"}
	}
	a.log.Info("spi ready", "control", logx.Hex(cr), "options", logx.Hex(a.opts.Bits()))
	return nil
}

// Owner returns the peripheral currently holding the bus.
func (a *Arbiter) Owner() Peripheral { return a.owner }

func (a *Arbiter) mask(p Peripheral) uint32 {
	switch p {
	case Display:
		return a.cfg.DisplayMask
	case Touch:
		return a.cfg.TouchMask
	default:
		return 0
	}
}

func (a *Arbiter) settle(p Peripheral) {
	var d time.Duration
	switch p {
	case Display:
		d = a.cfg.DisplaySettle
	case Touch:
		d = a.cfg.TouchSettle
	}
	if d > 0 {
		a.sleep(d)
	}
}

// Select asserts p's select line. The bus must be free: a previous owner has
// to be released with Deselect first.
func (a *Arbiter) Select(p Peripheral) error {
	if p == None {
		return &errcode.E{C: errcode.InvalidParams, Op: "spibus.select", Msg: "no peripheral"}
	}
	if a.owner != None {
		return &errcode.E{C: errcode.BusInUse, Op: "spibus.select", Msg: a.owner.String() + " holds the bus"}
	}
	if err := a.t.SelectSlave(a.mask(p)); err != nil {
		return &errcode.E{C: errcode.TransferFailed, Op: "spibus.select", Err: err}
	}
	a.owner = p
	a.settle(p)
	return nil
}

// Deselect releases every select line and waits out the previous owner's
// settle time. It is a no-op on a free bus.
func (a *Arbiter) Deselect() error {
	if a.owner == None {
		return nil
	}
	prev := a.owner
	err := a.t.SelectSlave(0)
	// The line state is unknown after a failed write; treat the bus as
	// released so the following reset can recover it.
	a.owner = None
	a.settle(prev)
	if err != nil {
		return &errcode.E{C: errcode.TransferFailed, Op: "spibus.deselect", Err: err}
	}
	return nil
}

// Transfer performs one blocking full-duplex exchange with the current owner.
// Failures are returned as-is to the caller; there is no retry.
func (a *Arbiter) Transfer(tx, rx []byte) error {
	if a.owner == None {
		return &errcode.E{C: errcode.NotSelected, Op: "spibus.transfer"}
	}
	if rx != nil && len(rx) != len(tx) {
		return &errcode.E{C: errcode.InvalidParams, Op: "spibus.transfer", Msg: "tx/rx length mismatch"}
	}
	if err := a.t.Transfer(tx, rx); err != nil {
		return &errcode.E{C: errcode.TransferFailed, Op: "spibus.transfer", Msg: a.owner.String(), Err: err}
	}
	return nil
}

// ResetAndReconfigure flushes the transfer engine and reapplies the operating
// options and control bits. The bus must be released first.
func (a *Arbiter) ResetAndReconfigure() error {
	if a.owner != None {
		return &errcode.E{C: errcode.BusInUse, Op: "spibus.reset", Msg: a.owner.String() + " holds the bus"}
	}
	a.t.Reset()
	if err := a.t.SetOptions(a.opts.Bits()); err != nil {
		return &errcode.E{C: errcode.InitFailed, Op: "spibus.reset", Msg: "set options", Err: err}
	}
	a.t.SetControlReg(a.ctrl.Apply(a.t.ControlReg()))
	return nil
}

// Do runs fn while p owns the bus, then deselects and runs a
// reset-and-reconfigure cycle. The release always happens, even when fn or
// the select fails; the first error wins.
func (a *Arbiter) Do(p Peripheral, fn func() error) error {
	err := a.Select(p)
	if err == nil {
		err = fn()
	}
	if a.owner == p {
		if derr := a.Deselect(); err == nil {
			err = derr
		}
	}
	if a.owner == None {
		if rerr := a.ResetAndReconfigure(); err == nil {
			err = rerr
		}
	}
	return err
}
