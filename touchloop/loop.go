// Package touchloop is the top-level polling loop: sample the touch
// controller, map a press to screen coordinates and present them.
package touchloop

import (
	"context"
	"time"

	"touchpanel-go/calib"
	"touchpanel-go/drivers/xpt2046"
	"touchpanel-go/x/logx"
	"touchpanel-go/x/timex"
)

// State of the loop within one iteration.
type State uint8

const (
	Idle State = iota
	Sampling
	Presenting
)

func (s State) String() string {
	switch s {
	case Sampling:
		return "sampling"
	case Presenting:
		return "presenting"
	default:
		return "idle"
	}
}

// Sampler reads the touch controller.
type Sampler interface {
	IsTouched() (touched bool, z1, z2 uint16)
	ReadXY() (x, y uint16)
	Stats() xpt2046.Stats
}

// Presenter shows mapped coordinates.
type Presenter interface {
	Present(x, y uint16) error
}

// Recoverer resets the shared bus outside of any peripheral session.
type Recoverer interface {
	ResetAndReconfigure() error
}

// Event is the outcome of one iteration.
type Event struct {
	Valid            bool
	ScreenX, ScreenY uint16
	Z1, Z2           uint16
	RawX, RawY       uint16
	// Failures is the number of channel reads that failed this iteration.
	Failures uint32
	TS       int64 // Unix ms
}

// Context is everything the loop touches. The loop owns it; nothing else
// holds the bus or display handles.
type Context struct {
	Touch   Sampler
	Display Presenter
	Bus     Recoverer
	Bounds  calib.Bounds
	Screen  calib.Screen
	Log     *logx.Logger
}

// Config tunes the loop. All fields are optional.
type Config struct {
	// Interval is slept between iterations. Zero polls back to back.
	Interval time.Duration
	// FailureThreshold trips the bus recovery after this many consecutive
	// failed channel reads. Zero disables it.
	FailureThreshold uint32
	// OnEvent observes every iteration's Event.
	OnEvent func(Event)
	Sleep   timex.Sleeper
}

// Loop is the polling state machine.
type Loop struct {
	c     Context
	cfg   Config
	sleep timex.Sleeper
	log   *logx.Logger

	state   State
	tripped bool
	iter    uint64
}

// New validates the calibration and returns a loop in the Idle state.
func New(c Context, cfg Config) (*Loop, error) {
	if err := c.Bounds.Validate(); err != nil {
		return nil, err
	}
	if err := c.Screen.Validate(); err != nil {
		return nil, err
	}
	log := c.Log
	if log == nil {
		log = logx.Nop()
	}
	return &Loop{c: c, cfg: cfg, sleep: cfg.Sleep.Or(), log: log}, nil
}

// State returns the current state; between iterations it is always Idle.
func (l *Loop) State() State { return l.state }

// Iterations returns the number of completed Steps.
func (l *Loop) Iterations() uint64 { return l.iter }

// Step runs one full iteration: Idle → Sampling → (Presenting) → Idle.
func (l *Loop) Step() Event {
	before := l.c.Touch.Stats().Failures

	l.state = Sampling
	touched, z1, z2 := l.c.Touch.IsTouched()
	ev := Event{Z1: z1, Z2: z2, TS: timex.NowMs()}

	if touched {
		rx, ry := l.c.Touch.ReadXY()
		ev.RawX, ev.RawY = rx, ry
		ev.ScreenX, ev.ScreenY = l.c.Bounds.MapPoint(rx, ry, l.c.Screen)
		ev.Valid = true

		l.state = Presenting
		l.log.Info("touch", "x", ev.ScreenX, "y", ev.ScreenY, "z1", z1, "z2", z2)
		if err := l.c.Display.Present(ev.ScreenX, ev.ScreenY); err != nil {
			l.log.Error("present failed", "err", err)
		}
	} else {
		l.log.Info("no touch", "z1", z1, "z2", z2)
	}

	ev.Failures = l.c.Touch.Stats().Failures - before
	l.checkBreaker()

	l.state = Idle
	l.iter++
	if l.cfg.OnEvent != nil {
		l.cfg.OnEvent(ev)
	}
	return ev
}

// checkBreaker resets the bus once per run of consecutive read failures
// that reaches the threshold.
func (l *Loop) checkBreaker() {
	if l.cfg.FailureThreshold == 0 {
		return
	}
	n := l.c.Touch.Stats().ConsecutiveFailures
	switch {
	case n == 0:
		if l.tripped {
			l.log.Info("touch reads recovered")
		}
		l.tripped = false
	case n >= l.cfg.FailureThreshold && !l.tripped:
		l.tripped = true
		l.log.Warn("repeated read failures, resetting bus", "consecutive", n)
		if l.c.Bus != nil {
			if err := l.c.Bus.ResetAndReconfigure(); err != nil {
				l.log.Error("bus reset failed", "err", err)
			}
		}
	}
}

// Run steps until ctx is done, checking it once per iteration.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("polling", "interval_ms", l.cfg.Interval.Milliseconds())
	for {
		select {
		case <-ctx.Done():
			l.log.Info("polling stopped", "iterations", l.iter)
			return ctx.Err()
		default:
		}
		l.Step()
		if l.cfg.Interval > 0 {
			l.sleep(l.cfg.Interval)
		}
	}
}
