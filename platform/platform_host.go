//go:build !rp2040 && !rp2350

package platform

import (
	"os"

	"touchpanel-go/config"
	"touchpanel-go/display"
	"touchpanel-go/errcode"
	"touchpanel-go/spibus/spisim"
)

// DefaultBoard is the board whose config is loaded when none is named.
const DefaultBoard = config.DefaultBoard

// Open returns a simulated bus with an idle panel and an in-memory display
// sized to the configured screen.
func Open(c config.Config) (*Devices, error) {
	if c.Screen.Width > 0x7FFF || c.Screen.Height > 0x7FFF {
		return nil, errcode.Init(errcode.SubsysDisplay, &errcode.E{C: errcode.InvalidParams, Op: "platform.open", Msg: "screen too large"})
	}
	sim := spisim.New(spisim.Panel{})
	sim.DisplayMask = c.Bus.DisplayMask
	sim.TouchMask = c.Bus.TouchMask
	return &Devices{
		Transport: sim,
		Surface:   display.NewMemSurface(int16(c.Screen.Width), int16(c.Screen.Height)),
		Console:   os.Stdout,
	}, nil
}
