package errcode

import "errors"

// Code is a stable, log-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	InvalidParams Code = "invalid_params"

	BusInUse       Code = "bus_in_use"
	NotSelected    Code = "not_selected"
	TransferFailed Code = "transfer_failed"

	InvalidCalibration Code = "invalid_calibration"
	InvalidConfig      Code = "invalid_config"
	DeviceNotFound     Code = "device_not_found"
	InitFailed         Code = "init_failed"

	Error Code = "error" // generic fallback
)

// E wraps a Code with the operation that failed and an optional cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	// Wrapped by something else: the outermost *E wins over any bare Code
	// further down the chain.
	var e *E
	if errors.As(err, &e) {
		return e.C
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return Error
}

// Subsystem names a startup stage with its own process exit status.
type Subsystem string

const (
	SubsysConfig  Subsystem = "config"
	SubsysGPIO    Subsystem = "gpio"
	SubsysSPI     Subsystem = "spi"
	SubsysDisplay Subsystem = "display"
)

var exitCodes = map[Subsystem]int{
	SubsysConfig:  2,
	SubsysGPIO:    3,
	SubsysSPI:     4,
	SubsysDisplay: 5,
}

// Init marks err as a startup failure of the given subsystem.
// A nil err stays nil.
func Init(sub Subsystem, err error) error {
	if err == nil {
		return nil
	}
	c := InitFailed
	if ec := Of(err); ec == DeviceNotFound {
		c = ec
	}
	return &E{C: c, Op: string(sub), Err: err}
}

// ExitCode returns the process exit status for err: 0 for nil, the
// subsystem's code for startup failures and 1 for anything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *E
	for errors.As(err, &e) {
		if n, ok := exitCodes[Subsystem(e.Op)]; ok {
			return n
		}
		if e.Err == nil {
			break
		}
		err = e.Err
	}
	return 1
}
