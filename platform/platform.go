// Package platform opens the hardware, or its host stand-in, that the touch
// firmware runs on.
package platform

import (
	"io"
	"math/bits"

	"touchpanel-go/display"
	"touchpanel-go/spibus"
)

// Devices are the collaborators the firmware needs from the board.
type Devices struct {
	Transport spibus.Transport
	Surface   display.Surface
	// DisplaySetup configures the display controller. It runs once under
	// display bus ownership before the first clear; nil on host builds.
	DisplaySetup func() error
	Console      io.Writer
}

// selectLine returns the chip-select index named by a single-bit mask.
func selectLine(mask uint32) int { return bits.TrailingZeros32(mask) }
