// Package logx is a small tagged line logger for firmware and host builds.
//
// Lines look like "[tag] level msg key=value ...". Values are rendered without
// fmt so the hot path does not allocate through reflection on the MCU.
package logx

import (
	"io"
	"os"
	"sync"

	"touchpanel-go/x/conv"
)

type Level uint8

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Logger writes tagged lines to an io.Writer. The zero value is not usable;
// use New or Nop.
type Logger struct {
	mu  *sync.Mutex
	out io.Writer
	tag string
	min Level
	buf []byte
}

// New returns a logger for tag writing to out (os.Stdout when nil).
func New(tag string, out io.Writer) *Logger {
	if out == nil {
		out = os.Stdout
	}
	return &Logger{mu: &sync.Mutex{}, out: out, tag: tag, buf: make([]byte, 0, 96)}
}

// Nop returns a logger that discards everything.
func Nop() *Logger { return New("", io.Discard) }

// With returns a logger sharing the same output under a different tag.
func (l *Logger) With(tag string) *Logger {
	return &Logger{mu: l.mu, out: l.out, tag: tag, min: l.min, buf: make([]byte, 0, 96)}
}

// SetLevel drops lines below min.
func (l *Logger) SetLevel(min Level) { l.min = min }

func (l *Logger) Info(msg string, kv ...any)  { l.log(LevelInfo, msg, kv) }
func (l *Logger) Warn(msg string, kv ...any)  { l.log(LevelWarn, msg, kv) }
func (l *Logger) Error(msg string, kv ...any) { l.log(LevelError, msg, kv) }

func (l *Logger) log(lv Level, msg string, kv []any) {
	if l == nil || lv < l.min {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.buf[:0]
	if l.tag != "" {
		b = append(b, '[')
		b = append(b, l.tag...)
		b = append(b, "] "...)
	}
	b = append(b, lv.String()...)
	b = append(b, ' ')
	b = append(b, msg...)
	for i := 0; i+1 < len(kv); i += 2 {
		b = append(b, ' ')
		if k, ok := kv[i].(string); ok {
			b = append(b, k...)
		} else {
			b = append(b, '?')
		}
		b = append(b, '=')
		b = appendValue(b, kv[i+1])
	}
	b = append(b, '\n')
	_, _ = l.out.Write(b)
	l.buf = b
}

// Hex marks a register or mask value to be printed in hex.
type Hex uint32

func appendValue(b []byte, v any) []byte {
	switch x := v.(type) {
	case string:
		return append(b, x...)
	case error:
		if x == nil {
			return append(b, "<nil>"...)
		}
		return append(b, x.Error()...)
	case bool:
		if x {
			return append(b, "true"...)
		}
		return append(b, "false"...)
	case int:
		return conv.AppendInt(b, int64(x))
	case int8:
		return conv.AppendInt(b, int64(x))
	case int16:
		return conv.AppendInt(b, int64(x))
	case int32:
		return conv.AppendInt(b, int64(x))
	case int64:
		return conv.AppendInt(b, x)
	case uint:
		return conv.AppendUint(b, uint64(x))
	case uint8:
		return conv.AppendUint(b, uint64(x))
	case uint16:
		return conv.AppendUint(b, uint64(x))
	case uint32:
		return conv.AppendUint(b, uint64(x))
	case uint64:
		return conv.AppendUint(b, x)
	case Hex:
		return conv.AppendHex32(b, uint32(x))
	case interface{ String() string }:
		return append(b, x.String()...)
	case nil:
		return append(b, "<nil>"...)
	default:
		return append(b, "<unk>"...)
	}
}
