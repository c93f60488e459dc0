// Package calib maps raw 12-bit touch-panel samples into display pixel space.
package calib

import (
	"touchpanel-go/errcode"
	"touchpanel-go/x/mathx"
)

// MaxRaw is the largest value a 12-bit ADC channel can report.
const MaxRaw = 0x0FFF

// Bounds holds the raw ADC readings at the panel's usable extremes.
type Bounds struct {
	XMin uint16 `json:"x_min"`
	XMax uint16 `json:"x_max"`
	YMin uint16 `json:"y_min"`
	YMax uint16 `json:"y_max"`
}

// Screen is the display resolution in pixels.
type Screen struct {
	Width  uint16 `json:"width"`
	Height uint16 `json:"height"`
}

// DefaultBounds matches the resistive panel on the reference board.
func DefaultBounds() Bounds { return Bounds{XMin: 180, XMax: 1800, YMin: 200, YMax: 1900} }

// DefaultScreen is a portrait 240x320 panel.
func DefaultScreen() Screen { return Screen{Width: 240, Height: 320} }

// Validate reports a calibration that would make Map divide by zero or run
// backwards.
func (b Bounds) Validate() error {
	if b.XMax <= b.XMin {
		return &errcode.E{C: errcode.InvalidCalibration, Op: "calib", Msg: "x_max must exceed x_min"}
	}
	if b.YMax <= b.YMin {
		return &errcode.E{C: errcode.InvalidCalibration, Op: "calib", Msg: "y_max must exceed y_min"}
	}
	return nil
}

func (s Screen) Validate() error {
	if s.Width == 0 || s.Height == 0 {
		return &errcode.E{C: errcode.InvalidCalibration, Op: "calib", Msg: "screen size must be non-zero"}
	}
	return nil
}

// Map clamps raw into [rawMin, rawMax] and rescales it onto [0, size).
//
// A rawMax not above rawMin, or a zero size, is a configuration bug; Map
// panics with an *errcode.E carrying InvalidCalibration instead of returning
// a meaningless pixel. Validate the bounds at load time to rule it out.
func Map(raw, rawMin, rawMax, size uint16) uint16 {
	if rawMax <= rawMin || size == 0 {
		panic(&errcode.E{C: errcode.InvalidCalibration, Op: "calib.Map", Msg: "empty raw range or screen"})
	}
	px := mathx.ScaleClamped(raw, rawMin, rawMax, size)
	// raw == rawMax scales to size itself; keep it on the last pixel.
	return mathx.Clamp(px, 0, size-1)
}

// MapPoint maps a raw (x, y) pair onto s.
func (b Bounds) MapPoint(rawX, rawY uint16, s Screen) (x, y uint16) {
	return Map(rawX, b.XMin, b.XMax, s.Width), Map(rawY, b.YMin, b.YMax, s.Height)
}
