//go:build rp2040 || rp2350

package platform

import (
	"machine"

	"touchpanel-go/config"
	"touchpanel-go/errcode"
	"touchpanel-go/spibus"

	"github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/ili9341"
)

// DefaultBoard is the board whose config is loaded when none is named.
const DefaultBoard = "pico-ili9341"

// Pico wiring for an ILI9341 breakout with an XPT2046 on the same SPI0.
const (
	pinSCK = machine.GP2
	pinSDO = machine.GP3
	pinSDI = machine.GP4

	pinLcdCS  = machine.GP5
	pinLcdDC  = machine.GP6
	pinLcdRST = machine.GP7
	pinLcdBL  = machine.GP8

	pinTouchCS = machine.GP9

	pinConsoleTX = machine.GP0
	pinConsoleRX = machine.GP1
)

const consoleBaud = 115200

// idlePin stands in for select indices no peripheral is wired to.
type idlePin struct{}

func (idlePin) High() {}
func (idlePin) Low()  {}

func Open(c config.Config) (*Devices, error) {
	console := uartx.UART0
	if err := console.Configure(uartx.UARTConfig{
		BaudRate: consoleBaud,
		TX:       pinConsoleTX,
		RX:       pinConsoleRX,
	}); err != nil {
		return nil, errcode.Init(errcode.SubsysGPIO, err)
	}

	// Chip selects and D/C are plain outputs; the SPI block drives the rest.
	for _, p := range []machine.Pin{pinLcdCS, pinTouchCS, pinLcdDC, pinLcdBL} {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	}
	pinLcdBL.Low()

	lcdLine, touchLine := selectLine(c.Bus.DisplayMask), selectLine(c.Bus.TouchMask)
	if lcdLine > 7 || touchLine > 7 {
		return nil, errcode.Init(errcode.SubsysGPIO, &errcode.E{C: errcode.DeviceNotFound, Op: "platform.open", Msg: "no chip-select pin for mask"})
	}
	n := lcdLine
	if touchLine > n {
		n = touchLine
	}
	pins := make([]spibus.OutputPin, n+1)
	for i := range pins {
		pins[i] = idlePin{}
	}
	pins[lcdLine] = pinLcdCS
	pins[touchLine] = pinTouchCS

	hz := c.Bus.FrequencyHz
	if hz == 0 {
		hz = 4 * machine.MHz
	}
	spiCfg := machine.SPIConfig{
		Frequency: hz,
		SCK:       pinSCK,
		SDO:       pinSDO,
		SDI:       pinSDI,
	}
	spi := machine.SPI0
	if err := spi.Configure(spiCfg); err != nil {
		return nil, errcode.Init(errcode.SubsysSPI, err)
	}

	t := spibus.NewPinTransport(spi, pins...)
	t.Reconfigure = func() error { return spi.Configure(spiCfg) }

	// The arbiter owns the LCD chip select, so the driver gets none.
	lcd := ili9341.NewSPI(spi, pinLcdDC, machine.NoPin, pinLcdRST)

	return &Devices{
		Transport: t,
		Surface:   lcd,
		DisplaySetup: func() error {
			lcd.Configure(ili9341.Config{Rotation: ili9341.Rotation0})
			pinLcdBL.High()
			return nil
		},
		Console: console,
	}, nil
}
