// Package display renders touch coordinates on a display that shares the SPI
// bus with the touch controller.
package display

import (
	"errors"
	"image"
	"image/color"

	"tinygo.org/x/drivers"
)

// Surface is the display controller's drawing API. ili9341.Device satisfies
// it, as does MemSurface.
type Surface interface {
	drivers.Displayer
	FillRectangle(x, y, width, height int16, c color.RGBA) error
}

var errOutOfBounds = errors.New("display: rectangle out of bounds")

// MemSurface is an in-memory RGBA framebuffer. Host builds and tests render
// into it instead of a panel.
type MemSurface struct {
	img  *image.RGBA
	w, h int16

	// Guard, when set, is consulted on every drawing call; calls made while
	// it reports false are counted in Violations.
	Guard      func() bool
	Violations int

	Frames int // Display calls
	Fills  int // FillRectangle calls
}

// NewMemSurface returns a black w×h framebuffer.
func NewMemSurface(w, h int16) *MemSurface {
	return &MemSurface{img: image.NewRGBA(image.Rect(0, 0, int(w), int(h))), w: w, h: h}
}

func (m *MemSurface) guard() {
	if m.Guard != nil && !m.Guard() {
		m.Violations++
	}
}

func (m *MemSurface) Size() (x, y int16) { return m.w, m.h }

func (m *MemSurface) SetPixel(x, y int16, c color.RGBA) {
	m.guard()
	if x < 0 || y < 0 || x >= m.w || y >= m.h {
		return
	}
	m.img.SetRGBA(int(x), int(y), c)
}

func (m *MemSurface) Display() error {
	m.guard()
	m.Frames++
	return nil
}

func (m *MemSurface) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	m.guard()
	if x < 0 || y < 0 || width <= 0 || height <= 0 || x+width > m.w || y+height > m.h {
		return errOutOfBounds
	}
	m.Fills++
	for j := y; j < y+height; j++ {
		for i := x; i < x+width; i++ {
			m.img.SetRGBA(int(i), int(j), c)
		}
	}
	return nil
}

// At returns the pixel at (x, y).
func (m *MemSurface) At(x, y int16) color.RGBA { return m.img.RGBAAt(int(x), int(y)) }

// Count returns how many pixels inside r have colour c.
func (m *MemSurface) Count(r Rect, c color.RGBA) int {
	n := 0
	for j := r.Y0; j <= r.Y1; j++ {
		for i := r.X0; i <= r.X1; i++ {
			if m.At(i, j) == c {
				n++
			}
		}
	}
	return n
}

// Image exposes the framebuffer, e.g. for PNG snapshots.
func (m *MemSurface) Image() *image.RGBA { return m.img }
