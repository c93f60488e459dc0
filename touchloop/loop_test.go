package touchloop_test

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"touchpanel-go/calib"
	"touchpanel-go/display"
	"touchpanel-go/drivers/xpt2046"
	"touchpanel-go/errcode"
	"touchpanel-go/spibus"
	"touchpanel-go/spibus/spisim"
	"touchpanel-go/touchloop"
	"touchpanel-go/x/logx"
)

type rig struct {
	sim     *spisim.Transport
	arb     *spibus.Arbiter
	touch   *xpt2046.Device
	surface *display.MemSurface
	loop    *touchloop.Loop
	logs    *bytes.Buffer
}

func newRig(t *testing.T, p spisim.Panel, cfg touchloop.Config) *rig {
	t.Helper()
	r := &rig{logs: &bytes.Buffer{}}
	log := logx.New("main", r.logs)
	r.sim = spisim.New(p)
	r.arb = spibus.New(r.sim, spibus.Config{Sleep: func(time.Duration) {}, Log: log.With("spi")})
	if err := r.arb.Init(); err != nil {
		t.Fatal(err)
	}
	r.touch = xpt2046.New(r.arb, xpt2046.Config{Log: log.With("touch")})
	r.surface = display.NewMemSurface(240, 320)
	r.surface.Guard = func() bool { return r.arb.Owner() == spibus.Display }
	pres := display.New(r.arb, r.surface, display.Config{Log: log.With("display")})
	if err := pres.Init(); err != nil {
		t.Fatal(err)
	}
	l, err := touchloop.New(touchloop.Context{
		Touch:   r.touch,
		Display: pres,
		Bus:     r.arb,
		Bounds:  calib.DefaultBounds(),
		Screen:  calib.DefaultScreen(),
		Log:     log,
	}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	r.loop = l
	return r
}

func TestEndToEndTouch(t *testing.T) {
	r := newRig(t, spisim.Panel{X: 980, Y: 1050, Z1: 50, Z2: 100}, touchloop.Config{})
	framesBefore := r.surface.Frames

	ev := r.loop.Step()
	if !ev.Valid {
		t.Fatal("expected a touch")
	}
	if ev.ScreenX != 118 || ev.ScreenY != 160 {
		t.Fatalf("screen = (%d,%d), want (118,160)", ev.ScreenX, ev.ScreenY)
	}
	if ev.Z1 != 50 || ev.Z2 != 100 || ev.RawX != 980 || ev.RawY != 1050 {
		t.Fatalf("event = %+v", ev)
	}
	if r.surface.Frames != framesBefore+1 {
		t.Fatal("touch should be presented")
	}
	if r.loop.State() != touchloop.Idle {
		t.Fatalf("state after step = %v", r.loop.State())
	}
	if !strings.Contains(r.logs.String(), "[main] info touch x=118 y=160 z1=50 z2=100") {
		t.Fatalf("touch not logged: %q", r.logs.String())
	}
}

func TestNoTouchSkipsPresentation(t *testing.T) {
	r := newRig(t, spisim.Panel{X: 980, Y: 1050, Z1: 5, Z2: 3000}, touchloop.Config{})
	frames := r.surface.Frames
	r.sim.Trace = nil

	ev := r.loop.Step()
	if ev.Valid {
		t.Fatal("no touch expected")
	}
	if r.surface.Frames != frames {
		t.Fatal("display touched without a press")
	}
	for _, op := range r.sim.Trace {
		if op.Kind == spisim.OpSelect && op.Mask == spibus.DefaultDisplayMask {
			t.Fatal("display selected without a press")
		}
		if op.Kind == spisim.OpTransfer && (op.Cmd == xpt2046.CmdReadX || op.Cmd == xpt2046.CmdReadY) {
			t.Fatal("position read without a press")
		}
	}
	if !strings.Contains(r.logs.String(), "no touch") {
		t.Fatal("no-touch not reported")
	}
}

func TestTransferFailureIsContained(t *testing.T) {
	r := newRig(t, spisim.Panel{X: 980, Y: 1050, Z1: 50, Z2: 100}, touchloop.Config{})
	r.sim.Fail = func(op spisim.Op) bool { return op.Cmd == xpt2046.CmdReadX }

	ev := r.loop.Step()
	if !ev.Valid {
		t.Fatal("pressure reads succeeded; iteration should still count as touched")
	}
	if ev.RawX != 0 || ev.ScreenX != 0 {
		t.Fatalf("failed X should read as sentinel 0, got raw=%d screen=%d", ev.RawX, ev.ScreenX)
	}
	if ev.ScreenY != 160 || ev.Failures != 1 {
		t.Fatalf("event = %+v", ev)
	}

	r.sim.Fail = nil
	if ev := r.loop.Step(); ev.ScreenX != 118 || ev.Failures != 0 {
		t.Fatalf("next iteration = %+v", ev)
	}
}

func TestBreakerResetsBusOncePerTrip(t *testing.T) {
	r := newRig(t, spisim.Panel{Z1: 50, Z2: 100}, touchloop.Config{FailureThreshold: 4})
	r.sim.Fail = func(spisim.Op) bool { return true }
	resets := r.sim.Resets

	ev := r.loop.Step() // 2 pressure reads fail, not touched
	if ev.Valid || ev.Failures != 2 {
		t.Fatalf("event = %+v", ev)
	}
	r.loop.Step() // consecutive = 4: trip
	r.loop.Step() // still tripped: no extra reset
	// Each failed read still runs its own reset-and-reconfigure cycle.
	perRead := 6
	if got := r.sim.Resets - resets; got != perRead+1 {
		t.Fatalf("resets = %d, want %d", got, perRead+1)
	}
	if n := strings.Count(r.logs.String(), "repeated read failures"); n != 1 {
		t.Fatalf("breaker logged %d times", n)
	}

	r.sim.Fail = nil
	r.loop.Step()
	if !strings.Contains(r.logs.String(), "touch reads recovered") {
		t.Fatal("recovery not logged")
	}
}

func TestBusDisciplineUnderRandomInput(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := newRig(t, spisim.Panel{}, touchloop.Config{FailureThreshold: 3})
	r.sim.Panel = func() spisim.Panel {
		return spisim.Panel{
			X:  uint16(rng.Intn(4096)),
			Y:  uint16(rng.Intn(4096)),
			Z1: uint16(rng.Intn(40)),
			Z2: uint16(rng.Intn(2600)),
		}
	}
	r.sim.Fail = func(spisim.Op) bool { return rng.Intn(10) == 0 }

	touched := 0
	for i := 0; i < 500; i++ {
		ev := r.loop.Step()
		if ev.Valid {
			touched++
			if ev.ScreenX >= 240 || ev.ScreenY >= 320 {
				t.Fatalf("off-screen coordinate %+v", ev)
			}
		}
	}
	if touched == 0 {
		t.Fatal("random input never produced a touch; test is not exercising presentation")
	}
	if len(r.sim.Violations) != 0 {
		t.Fatalf("transport violations: %v", r.sim.Violations[:1])
	}
	if v := r.sim.CheckHandoffs(); len(v) != 0 {
		t.Fatalf("handoff violations: %v", v[:1])
	}
	if r.surface.Violations != 0 {
		t.Fatalf("%d display calls without ownership", r.surface.Violations)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var events []touchloop.Event
	var slept time.Duration
	r := newRig(t, spisim.Panel{X: 980, Y: 1050, Z1: 50, Z2: 100}, touchloop.Config{
		Interval: 10 * time.Millisecond,
		Sleep:    func(d time.Duration) { slept += d },
		OnEvent: func(ev touchloop.Event) {
			events = append(events, ev)
			if len(events) == 3 {
				cancel()
			}
		},
	})

	err := r.loop.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v", err)
	}
	if len(events) != 3 || r.loop.Iterations() != 3 {
		t.Fatalf("ran %d iterations", len(events))
	}
	if slept != 30*time.Millisecond {
		t.Fatalf("slept %v between iterations", slept)
	}
}

func TestNewRejectsBadCalibration(t *testing.T) {
	_, err := touchloop.New(touchloop.Context{
		Bounds: calib.Bounds{XMin: 1800, XMax: 180, YMin: 200, YMax: 1900},
		Screen: calib.DefaultScreen(),
	}, touchloop.Config{})
	if errcode.Of(err) != errcode.InvalidCalibration {
		t.Fatalf("got %v", err)
	}
}
