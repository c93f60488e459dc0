package config

// Key: board name. Val: raw JSON; omitted fields fall back to Default().

// Lab board: display and touch controller on the programmable-logic SPI
// master, select lines 0 and 1.
const cfgLab2b = `{
  "board": "lab2b",
  "calibration": {"x_min": 180, "x_max": 1800, "y_min": 200, "y_max": 1900},
  "screen": {"width": 240, "height": 320},
  "touch": {"z1_min": 10, "z2_max": 2000, "settle_us": 3000},
  "bus": {"display_mask": 1, "touch_mask": 2},
  "loop": {"interval_ms": 0, "failure_threshold": 8}
}`

// Pico with an ILI9341 breakout: SPI0 on GP2..GP4, LCD CS on GP5, touch CS
// on GP9.
const cfgPicoILI9341 = `{
  "board": "pico-ili9341",
  "calibration": {"x_min": 300, "x_max": 3800, "y_min": 200, "y_max": 3700},
  "screen": {"width": 240, "height": 320},
  "touch": {"z1_min": 10, "z2_max": 2000, "settle_us": 3000},
  "bus": {"display_mask": 1, "touch_mask": 2, "frequency_hz": 24000000},
  "loop": {"interval_ms": 20, "failure_threshold": 8}
}`

var embeddedConfigs = map[string][]byte{
	"lab2b":        []byte(cfgLab2b),
	"pico-ili9341": []byte(cfgPicoILI9341),
}

// Boards lists the names with an embedded config.
func Boards() []string {
	return []string{"lab2b", "pico-ili9341"}
}
