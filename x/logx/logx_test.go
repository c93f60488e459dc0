package logx

import (
	"bytes"
	"errors"
	"testing"
)

func TestLineFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New("touch", &buf)
	l.Info("sample", "x", uint16(980), "ok", true, "mask", Hex(2))
	want := "[touch] info sample x=980 ok=true mask=0x00000002\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestWithSharesOutput(t *testing.T) {
	var buf bytes.Buffer
	root := New("main", &buf)
	root.With("spi").Error("transfer failed", "err", errors.New("nack"))
	if got := buf.String(); got != "[spi] error transfer failed err=nack\n" {
		t.Fatalf("got %q", got)
	}
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New("", &buf)
	l.SetLevel(LevelWarn)
	l.Info("dropped")
	l.Warn("kept", "n", -1)
	if got := buf.String(); got != "warn kept n=-1\n" {
		t.Fatalf("got %q", got)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Info("nothing")
}
