// Package spibus arbitrates one SPI master between the display and the touch
// controller that share it.
//
// Ownership is explicit: a peripheral is selected, used, deselected, and the
// transfer engine is reset and reconfigured before anyone else may select.
// Stale FIFO contents from one peripheral's framing would otherwise corrupt
// the next peripheral's exchange.
package spibus

// Transport is the SPI master hardware as seen by the arbiter.
//
// SelectSlave takes an active-high mask: bit n set asserts slave n, zero
// deasserts everything. Implementations driving active-low chip selects
// invert at the pin.
type Transport interface {
	SelectSlave(mask uint32) error
	// Transfer clocks len(tx) bytes out and the same number into rx. It
	// blocks until the exchange completes or the hardware reports failure.
	Transfer(tx, rx []byte) error
	// Reset returns the engine to its power-on state, flushing both FIFOs.
	// Options and control must be reapplied afterwards.
	Reset()
	SetOptions(bits uint32) error
	ControlReg() uint32
	SetControlReg(v uint32)
}

// Peripheral identifies a slave on the shared bus.
type Peripheral uint8

const (
	None Peripheral = iota
	Display
	Touch
)

func (p Peripheral) String() string {
	switch p {
	case Display:
		return "display"
	case Touch:
		return "touch"
	default:
		return "none"
	}
}
