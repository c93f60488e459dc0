// Package config holds the per-board settings: calibration, screen size,
// touch thresholds, bus wiring and loop timing.
package config

import (
	"encoding/json"
	"math/bits"
	"time"

	"touchpanel-go/calib"
	"touchpanel-go/drivers/xpt2046"
	"touchpanel-go/errcode"
	"touchpanel-go/spibus"
	"touchpanel-go/x/timex"
)

// DefaultBoard is used when no board is named.
const DefaultBoard = "lab2b"

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(board string) ([]byte, bool) {
	b, ok := embeddedConfigs[board]
	return b, ok
}

type Touch struct {
	Z1Min    uint16 `json:"z1_min"`
	Z2Max    uint16 `json:"z2_max"`
	SettleUs uint32 `json:"settle_us"`
}

type Bus struct {
	DisplayMask uint32 `json:"display_mask"`
	TouchMask   uint32 `json:"touch_mask"`
	FrequencyHz uint32 `json:"frequency_hz"`
}

type Loop struct {
	IntervalMs       uint32 `json:"interval_ms"`
	FailureThreshold uint32 `json:"failure_threshold"`
}

type Config struct {
	Board       string       `json:"board"`
	Calibration calib.Bounds `json:"calibration"`
	Screen      calib.Screen `json:"screen"`
	Touch       Touch        `json:"touch"`
	Bus         Bus          `json:"bus"`
	Loop        Loop         `json:"loop"`
}

// Default is the lab board wiring with the factory calibration.
func Default() Config {
	return Config{
		Board:       DefaultBoard,
		Calibration: calib.DefaultBounds(),
		Screen:      calib.DefaultScreen(),
		Touch: Touch{
			Z1Min:    xpt2046.DefaultZ1Min,
			Z2Max:    xpt2046.DefaultZ2Max,
			SettleUs: uint32(spibus.DefaultTouchSettle / time.Microsecond),
		},
		Bus: Bus{
			DisplayMask: spibus.DefaultDisplayMask,
			TouchMask:   spibus.DefaultTouchMask,
			FrequencyHz: 4_000_000,
		},
		Loop: Loop{FailureThreshold: 8},
	}
}

func DecodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}

// Load resolves the embedded config for board and decodes it over Default.
// Fields the JSON leaves out keep their default values.
func Load(board string) (Config, error) {
	if board == "" {
		board = DefaultBoard
	}
	raw, ok := EmbeddedConfigLookup(board)
	if !ok || len(raw) == 0 {
		return Config{}, &errcode.E{C: errcode.InvalidConfig, Op: "config.load", Msg: "no embedded config for board: " + board}
	}
	c := Default()
	c.Board = board
	if err := DecodeJSON(raw, &c); err != nil {
		return Config{}, &errcode.E{C: errcode.InvalidConfig, Op: "config.load", Msg: board, Err: err}
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks everything the drivers would otherwise trip over at run
// time.
func (c Config) Validate() error {
	if err := c.Calibration.Validate(); err != nil {
		return err
	}
	if err := c.Screen.Validate(); err != nil {
		return err
	}
	if c.Calibration.XMax > calib.MaxRaw || c.Calibration.YMax > calib.MaxRaw {
		return invalid("calibration exceeds the 12-bit range")
	}
	if c.Touch.Z1Min >= calib.MaxRaw || c.Touch.Z2Max == 0 {
		return invalid("touch thresholds can never be met")
	}
	if bits.OnesCount32(c.Bus.DisplayMask) != 1 || bits.OnesCount32(c.Bus.TouchMask) != 1 {
		return invalid("each select mask must name exactly one line")
	}
	if c.Bus.DisplayMask&c.Bus.TouchMask != 0 {
		return invalid("display and touch share a select line")
	}
	return nil
}

func invalid(msg string) error {
	return &errcode.E{C: errcode.InvalidConfig, Op: "config.validate", Msg: msg}
}

// Thresholds returns the touch decision boundaries.
func (c Config) Thresholds() xpt2046.Thresholds {
	return xpt2046.Thresholds{Z1Min: c.Touch.Z1Min, Z2Max: c.Touch.Z2Max}
}

// SpiConfig returns the arbiter settings. Sleep and Log are left to the
// caller.
func (c Config) SpiConfig() spibus.Config {
	return spibus.Config{
		DisplayMask: c.Bus.DisplayMask,
		TouchMask:   c.Bus.TouchMask,
		TouchSettle: timex.Us(c.Touch.SettleUs),
	}
}

func (c Config) Interval() time.Duration { return timex.Ms(c.Loop.IntervalMs) }
