//go:build !rp2040 && !rp2350

// Command touchsim runs the touch firmware against a simulated panel and an
// in-memory display. The panel reading, iteration count and fault rate come
// from flags, TOUCHSIM_* environment variables or a JSON config file.
//
//	touchsim --x=980 --y=1050 --z1=50 --z2=100 --iterations=1 --png=out.png
//	TOUCHSIM_SEED=7 touchsim --iterations=500 --faults=13
package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math/rand"
	"os"
	"time"

	"touchpanel-go/app"
	"touchpanel-go/display"
	"touchpanel-go/errcode"
	"touchpanel-go/spibus/spisim"
	"touchpanel-go/touchloop"

	"github.com/warthog618/config"
	"github.com/warthog618/config/blob"
	"github.com/warthog618/config/blob/decoder/json"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/env"
	"github.com/warthog618/config/pflag"
	xdraw "golang.org/x/image/draw"
)

func main() {
	cfg := loadConfig()
	s := settings{
		board:      cfg.MustGet("board").String(),
		iterations: cfg.MustGet("iterations").Int(),
		interval:   cfg.MustGet("interval").Duration(),
		panel: spisim.Panel{
			X:  uint16(cfg.MustGet("x").Int()),
			Y:  uint16(cfg.MustGet("y").Int()),
			Z1: uint16(cfg.MustGet("z1").Int()),
			Z2: uint16(cfg.MustGet("z2").Int()),
		},
		seed:   int64(cfg.MustGet("seed").Int()),
		faults: cfg.MustGet("faults").Int(),
		png:    cfg.MustGet("png").String(),
		scale:  cfg.MustGet("scale").Int(),
	}
	os.Exit(run(s))
}

func loadConfig() *config.Config {
	defaultConfig := map[string]interface{}{
		"board":      "lab2b",
		"iterations": 1,
		"interval":   "0s",
		"x":          980,
		"y":          1050,
		"z1":         50,
		"z2":         100,
		"seed":       0,
		"faults":     0,
		"png":        "",
		"scale":      1,
	}
	def := dict.New(dict.WithMap(defaultConfig))
	flags := []pflag.Flag{
		{Short: 'c', Name: "config-file"},
		{Short: 'b', Name: "board"},
		{Short: 'n', Name: "iterations"},
	}
	cfg := config.New(
		pflag.New(pflag.WithFlags(flags)),
		env.New(env.WithEnvPrefix("TOUCHSIM_")),
		config.WithDefault(def))
	cfg.Append(
		blob.NewConfigFile(cfg, "config.file", "touchsim.json", json.NewDecoder()))
	cfg = cfg.GetConfig("", config.WithMust)
	return cfg
}

// settings for one run. A non-zero seed replaces the fixed panel with random
// readings, faults fails every Nth transfer, and scale enlarges the PNG
// snapshot so single pixels stay visible.
type settings struct {
	board      string
	iterations int
	interval   time.Duration
	panel      spisim.Panel
	seed       int64
	faults     int
	png        string
	scale      int
}

type tally struct {
	steps, touches int
	failures       uint32
}

func run(s settings) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var t tally
	a, err := app.Start(s.board, app.Options{
		Loop: func(lc *touchloop.Config) {
			lc.Interval = s.interval
			lc.OnEvent = func(ev touchloop.Event) {
				t.steps++
				if ev.Valid {
					t.touches++
				}
				t.failures += ev.Failures
				if t.steps >= s.iterations {
					cancel()
				}
			}
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "touchsim: %s\n", err)
		return errcode.ExitCode(err)
	}

	sim, ok := a.Devices.Transport.(*spisim.Transport)
	if !ok {
		fmt.Fprintln(os.Stderr, "touchsim: platform is not simulated")
		return 1
	}
	script(sim, s)

	if s.iterations > 0 {
		if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.Log.Error("run failed", "err", err)
			return errcode.ExitCode(err)
		}
	}

	handoffs := sim.CheckHandoffs()
	a.Log.Info("done",
		"iterations", t.steps,
		"touches", t.touches,
		"failures", t.failures,
		"violations", len(sim.Violations),
		"handoff_violations", len(handoffs))
	for _, v := range append(sim.Violations, handoffs...) {
		a.Log.Warn(v)
	}

	if s.png != "" {
		if err := writePNG(s.png, a.Devices.Surface, s.scale); err != nil {
			a.Log.Error("png", "err", err)
			return 1
		}
	}
	if len(sim.Violations)+len(handoffs) > 0 {
		return 1
	}
	return 0
}

func script(sim *spisim.Transport, s settings) {
	if s.seed != 0 {
		rng := rand.New(rand.NewSource(s.seed))
		sim.Panel = func() spisim.Panel {
			return spisim.Panel{
				X:  uint16(rng.Intn(4096)),
				Y:  uint16(rng.Intn(4096)),
				Z1: uint16(rng.Intn(64)),
				Z2: uint16(rng.Intn(4096)),
			}
		}
	} else {
		sim.SetPanel(s.panel)
	}
	if s.faults > 0 {
		n := 0
		sim.Fail = func(spisim.Op) bool {
			n++
			return n%s.faults == 0
		}
	}
}

func writePNG(path string, s display.Surface, scale int) error {
	mem, ok := s.(*display.MemSurface)
	if !ok {
		return errors.New("display is not in memory")
	}
	var img image.Image = mem.Image()
	if scale > 1 {
		b := img.Bounds()
		dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
		xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
		img = dst
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
