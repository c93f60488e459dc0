package display

import (
	"image/color"

	"touchpanel-go/errcode"
	"touchpanel-go/spibus"
	"touchpanel-go/x/conv"
	"touchpanel-go/x/logx"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// Bus is the part of the arbiter the presenter needs.
type Bus interface {
	Do(p spibus.Peripheral, fn func() error) error
}

// Point is a text anchor; Y is the font baseline.
type Point struct{ X, Y int16 }

// Rect has inclusive corners, like the controller's fill command.
type Rect struct{ X0, Y0, X1, Y1 int16 }

func (r Rect) fill(s Surface, c color.RGBA) error {
	return s.FillRectangle(r.X0, r.Y0, r.X1-r.X0+1, r.Y1-r.Y0+1, c)
}

// Layout places the coordinate readout.
type Layout struct {
	Clear      Rect
	XAt, YAt   Point
	Foreground color.RGBA
	Background color.RGBA
	Font       tinyfont.Fonter
}

// DefaultLayout is green text on black in the top-left corner.
func DefaultLayout() Layout {
	return Layout{
		Clear:      Rect{X0: 10, Y0: 10, X1: 150, Y1: 60},
		XAt:        Point{X: 20, Y: 20},
		YAt:        Point{X: 20, Y: 40},
		Foreground: color.RGBA{R: 0, G: 255, B: 0, A: 255},
		Background: color.RGBA{R: 0, G: 0, B: 0, A: 255},
		Font:       &proggy.TinySZ8pt7b,
	}
}

// Config controls the presenter. All fields are optional.
type Config struct {
	Layout *Layout
	// Setup runs once under display ownership from Init, before the first
	// clear; hardware builds configure the controller here.
	Setup func() error
	Log   *logx.Logger
}

// Presenter draws "X: <n>" / "Y: <n>" lines, holding the display's bus
// ownership for the whole update.
type Presenter struct {
	bus    Bus
	s      Surface
	layout Layout
	setup  func() error
	log    *logx.Logger

	line [16]byte
}

func New(bus Bus, s Surface, cfg Config) *Presenter {
	p := &Presenter{bus: bus, s: s, layout: DefaultLayout(), setup: cfg.Setup, log: cfg.Log}
	if cfg.Layout != nil {
		p.layout = *cfg.Layout
	}
	if p.layout.Font == nil {
		p.layout.Font = &proggy.TinySZ8pt7b
	}
	if p.log == nil {
		p.log = logx.Nop()
	}
	return p
}

// Init prepares the controller and clears the whole screen.
func (p *Presenter) Init() error {
	err := p.bus.Do(spibus.Display, func() error {
		if p.setup != nil {
			if err := p.setup(); err != nil {
				return err
			}
		}
		w, h := p.s.Size()
		if err := p.s.FillRectangle(0, 0, w, h, p.layout.Background); err != nil {
			return err
		}
		return p.s.Display()
	})
	if err != nil {
		return &errcode.E{C: errcode.InitFailed, Op: "display.init", Err: err}
	}
	p.log.Info("display ready")
	return nil
}

// Present replaces the readout with the given screen coordinates.
func (p *Presenter) Present(x, y uint16) error {
	return p.bus.Do(spibus.Display, func() error {
		l := &p.layout
		if err := l.Clear.fill(p.s, l.Background); err != nil {
			return err
		}
		p.text("X: ", x, l.XAt)
		p.text("Y: ", y, l.YAt)
		return p.s.Display()
	})
}

func (p *Presenter) text(label string, v uint16, at Point) {
	b := append(p.line[:0], label...)
	b = conv.AppendUint(b, uint64(v))
	tinyfont.WriteLine(p.s, p.layout.Font, at.X, at.Y, string(b), p.layout.Foreground)
}
