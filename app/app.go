// Package app assembles the touch firmware from a board config and the
// platform's devices.
package app

import (
	"context"

	"touchpanel-go/config"
	"touchpanel-go/display"
	"touchpanel-go/drivers/xpt2046"
	"touchpanel-go/errcode"
	"touchpanel-go/platform"
	"touchpanel-go/spibus"
	"touchpanel-go/touchloop"
	"touchpanel-go/x/logx"
)

type App struct {
	Config    config.Config
	Devices   *platform.Devices
	Bus       *spibus.Arbiter
	Touch     *xpt2046.Device
	Presenter *display.Presenter
	Loop      *touchloop.Loop
	Log       *logx.Logger
}

// Options adjust assembly without touching the board config.
type Options struct {
	Spi  func(*spibus.Config)
	Loop func(*touchloop.Config)
}

// New brings the bus up, then the display, and returns an App whose loop is
// Idle. Startup failures are tagged with their subsystem so ExitCode can
// tell them apart.
func New(c config.Config, dev *platform.Devices, opt Options) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, errcode.Init(errcode.SubsysConfig, err)
	}
	log := logx.New("main", dev.Console)
	a := &App{Config: c, Devices: dev, Log: log}

	sc := c.SpiConfig()
	sc.Log = log.With("spi")
	if opt.Spi != nil {
		opt.Spi(&sc)
	}
	a.Bus = spibus.New(dev.Transport, sc)
	if err := a.Bus.Init(); err != nil {
		return nil, errcode.Init(errcode.SubsysSPI, err)
	}

	a.Touch = xpt2046.New(a.Bus, xpt2046.Config{Thresholds: c.Thresholds(), Log: log.With("touch")})

	a.Presenter = display.New(a.Bus, dev.Surface, display.Config{Setup: dev.DisplaySetup, Log: log.With("display")})
	if err := a.Presenter.Init(); err != nil {
		return nil, errcode.Init(errcode.SubsysDisplay, err)
	}

	lc := touchloop.Config{Interval: c.Interval(), FailureThreshold: c.Loop.FailureThreshold}
	if opt.Loop != nil {
		opt.Loop(&lc)
	}
	l, err := touchloop.New(touchloop.Context{
		Touch:   a.Touch,
		Display: a.Presenter,
		Bus:     a.Bus,
		Bounds:  c.Calibration,
		Screen:  c.Screen,
		Log:     log,
	}, lc)
	if err != nil {
		return nil, errcode.Init(errcode.SubsysConfig, err)
	}
	a.Loop = l
	log.Info("ready", "board", c.Board, "width", c.Screen.Width, "height", c.Screen.Height)
	return a, nil
}

// Run polls until ctx is done.
func (a *App) Run(ctx context.Context) error { return a.Loop.Run(ctx) }

// Start loads the board config, opens the platform and assembles the App.
func Start(board string, opt Options) (*App, error) {
	c, err := config.Load(board)
	if err != nil {
		return nil, errcode.Init(errcode.SubsysConfig, err)
	}
	dev, err := platform.Open(c)
	if err != nil {
		return nil, err
	}
	return New(c, dev, opt)
}
