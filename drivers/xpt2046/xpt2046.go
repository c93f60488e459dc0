// Package xpt2046 reads an XPT2046/ADS7843-style resistive touch controller
// that shares its SPI bus with other peripherals.
//
// Every channel read is one complete bus operation: the controller is
// selected through the arbiter, a 3-byte command frame is exchanged, and the
// bus is released and reset before the call returns.
//
//	d := xpt2046.New(arb, xpt2046.Config{})
//	if ok, z1, z2 := d.IsTouched(); ok {
//		x, y := d.ReadXY()
//		...
//	}
//
// Transfer failures never escape the driver: the affected channel reads as 0,
// the failure is logged and counted in Stats.
package xpt2046

import (
	"touchpanel-go/spibus"
	"touchpanel-go/x/logx"

	"tinygo.org/x/drivers/touch"
)

// Channel commands: start bit, channel select, 12-bit differential mode,
// power-down between conversions.
const (
	CmdReadX  = 0xD0
	CmdReadY  = 0x90
	CmdReadZ1 = 0xB0
	CmdReadZ2 = 0xC0
)

// Default pressure decision boundaries. They are empirical and panel
// specific.
const (
	DefaultZ1Min = 10
	DefaultZ2Max = 2000
)

// Bus is the part of the arbiter the driver needs.
type Bus interface {
	Do(p spibus.Peripheral, fn func() error) error
	Transfer(tx, rx []byte) error
}

// Thresholds decide whether pressure readings mean a finger is down:
// touched iff Z1 > Z1Min and Z2 < Z2Max.
type Thresholds struct {
	Z1Min uint16
	Z2Max uint16
}

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Thresholds default to Z1Min=10, Z2Max=2000 when both are zero.
	Thresholds Thresholds
	Log        *logx.Logger
}

// Stats counts channel reads since New.
type Stats struct {
	Reads               uint32
	Failures            uint32
	ConsecutiveFailures uint32
}

// Device is a touch controller on a shared bus.
type Device struct {
	bus Bus
	th  Thresholds
	log *logx.Logger

	stats Stats
	tx    [3]byte
	rx    [3]byte
}

var _ touch.Pointer = (*Device)(nil)

// New returns a driver using bus. It does not touch the hardware.
func New(bus Bus, cfg Config) *Device {
	th := cfg.Thresholds
	if th == (Thresholds{}) {
		th = Thresholds{Z1Min: DefaultZ1Min, Z2Max: DefaultZ2Max}
	}
	log := cfg.Log
	if log == nil {
		log = logx.Nop()
	}
	return &Device{bus: bus, th: th, log: log}
}

// Thresholds returns the active pressure thresholds.
func (d *Device) Thresholds() Thresholds { return d.th }

// Stats returns read and failure counters.
func (d *Device) Stats() Stats { return d.stats }

// ReadChannel runs one command/response exchange and returns the 12-bit
// conversion. On a bus failure it logs, counts and returns 0.
func (d *Device) ReadChannel(cmd byte) uint16 {
	v, err := d.readChannel(cmd)
	d.stats.Reads++
	if err != nil {
		d.stats.Failures++
		d.stats.ConsecutiveFailures++
		d.log.Error("read failed", "cmd", logx.Hex(cmd), "err", err)
		return 0
	}
	d.stats.ConsecutiveFailures = 0
	return v
}

func (d *Device) readChannel(cmd byte) (uint16, error) {
	d.tx = [3]byte{cmd, 0, 0}
	d.rx = [3]byte{}
	err := d.bus.Do(spibus.Touch, func() error {
		return d.bus.Transfer(d.tx[:], d.rx[:])
	})
	if err != nil {
		return 0, err
	}
	// The conversion arrives MSB first, left-aligned across bytes 1 and 2.
	return (uint16(d.rx[1])<<8 | uint16(d.rx[2])) >> 4, nil
}

// ReadXY reads the X then Y position channels.
func (d *Device) ReadXY() (x, y uint16) {
	x = d.ReadChannel(CmdReadX)
	y = d.ReadChannel(CmdReadY)
	return x, y
}

// ReadPressure reads both pressure channels.
func (d *Device) ReadPressure() (z1, z2 uint16) {
	z1 = d.ReadChannel(CmdReadZ1)
	z2 = d.ReadChannel(CmdReadZ2)
	return z1, z2
}

// Sample reads all four channels: position first, then pressure.
func (d *Device) Sample() (x, y, z1, z2 uint16) {
	x, y = d.ReadXY()
	z1, z2 = d.ReadPressure()
	return x, y, z1, z2
}

// Touched applies the pressure thresholds to a pair of readings.
func (th Thresholds) Touched(z1, z2 uint16) bool {
	return z1 > th.Z1Min && z2 < th.Z2Max
}

// IsTouched samples pressure and reports whether the panel is pressed.
func (d *Device) IsTouched() (touched bool, z1, z2 uint16) {
	z1, z2 = d.ReadPressure()
	return d.th.Touched(z1, z2), z1, z2
}

// ReadTouchPoint implements touch.Pointer. It returns raw panel coordinates
// with Z set to the Z1 pressure reading, or the zero Point when the panel is
// not pressed.
func (d *Device) ReadTouchPoint() touch.Point {
	ok, z1, _ := d.IsTouched()
	if !ok {
		return touch.Point{}
	}
	x, y := d.ReadXY()
	return touch.Point{X: int(x), Y: int(y), Z: int(z1)}
}
