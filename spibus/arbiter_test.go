package spibus_test

import (
	"errors"
	"testing"
	"time"

	"touchpanel-go/errcode"
	"touchpanel-go/spibus"
	"touchpanel-go/spibus/spisim"
)

type sleepLog []time.Duration

func (s *sleepLog) sleep(d time.Duration) { *s = append(*s, d) }

func newArb(t *testing.T, sim *spisim.Transport, sl *sleepLog) *spibus.Arbiter {
	t.Helper()
	a := spibus.New(sim, spibus.Config{Sleep: sl.sleep})
	if err := a.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	return a
}

func TestInitConfiguresMasterEnabled(t *testing.T) {
	sim := spisim.New(spisim.Panel{})
	var sl sleepLog
	a := newArb(t, sim, &sl)

	c := spibus.ControlFrom(sim.ControlReg())
	if !c.Enable || !c.Master || c.TransferInhibit || !c.ManualSlaveSelect {
		t.Fatalf("unexpected control after init: %+v", c)
	}
	if a.Owner() != spibus.None {
		t.Fatalf("owner after init = %v", a.Owner())
	}
	if sim.Resets != 1 {
		t.Fatalf("resets = %d, want 1", sim.Resets)
	}
}

func TestInitRejectsSharedMask(t *testing.T) {
	sim := spisim.New(spisim.Panel{})
	a := spibus.New(sim, spibus.Config{DisplayMask: 0x01, TouchMask: 0x03})
	if errcode.Of(a.Init()) != errcode.InvalidConfig {
		t.Fatal("overlapping masks should be rejected")
	}
}

func TestSelectRequiresFreeBus(t *testing.T) {
	sim := spisim.New(spisim.Panel{})
	var sl sleepLog
	a := newArb(t, sim, &sl)

	if err := a.Select(spibus.Display); err != nil {
		t.Fatalf("select display: %v", err)
	}
	err := a.Select(spibus.Touch)
	if errcode.Of(err) != errcode.BusInUse {
		t.Fatalf("select while owned: got %v, want bus_in_use", err)
	}
	if sim.Selected() != 0x01 {
		t.Fatalf("display select disturbed: mask=%#x", sim.Selected())
	}
	if errcode.Of(a.ResetAndReconfigure()) != errcode.BusInUse {
		t.Fatal("reset while owned should be refused")
	}
	if err := a.Deselect(); err != nil {
		t.Fatalf("deselect: %v", err)
	}
	if err := a.Select(spibus.Touch); err != nil {
		t.Fatalf("select touch after release: %v", err)
	}
}

func TestTouchSettleWaits(t *testing.T) {
	sim := spisim.New(spisim.Panel{})
	var sl sleepLog
	a := newArb(t, sim, &sl)

	if err := a.Do(spibus.Touch, func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	if len(sl) != 2 || sl[0] != 3*time.Millisecond || sl[1] != 3*time.Millisecond {
		t.Fatalf("settle waits = %v, want [3ms 3ms]", sl)
	}

	sl = sl[:0]
	if err := a.Do(spibus.Display, func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	if len(sl) != 0 {
		t.Fatalf("display should not wait: %v", sl)
	}
}

func TestTransferNeedsOwner(t *testing.T) {
	sim := spisim.New(spisim.Panel{})
	var sl sleepLog
	a := newArb(t, sim, &sl)

	rx := make([]byte, 3)
	if errcode.Of(a.Transfer([]byte{0xD0, 0, 0}, rx)) != errcode.NotSelected {
		t.Fatal("transfer on free bus should fail with not_selected")
	}
	_ = a.Select(spibus.Touch)
	if errcode.Of(a.Transfer([]byte{0xD0, 0, 0}, rx[:2])) != errcode.InvalidParams {
		t.Fatal("length mismatch should be rejected")
	}
}

func TestTransferFailureIsWrapped(t *testing.T) {
	sim := spisim.New(spisim.Panel{})
	sim.Fail = func(spisim.Op) bool { return true }
	var sl sleepLog
	a := newArb(t, sim, &sl)

	err := a.Do(spibus.Touch, func() error {
		return a.Transfer([]byte{0xB0, 0, 0}, make([]byte, 3))
	})
	if errcode.Of(err) != errcode.TransferFailed {
		t.Fatalf("got %v, want transfer_failed", err)
	}
	if !errors.Is(err, spisim.ErrInjected) {
		t.Fatal("cause should be preserved")
	}
	if a.Owner() != spibus.None || sim.Selected() != 0 {
		t.Fatal("bus must be released after a failed operation")
	}
	if sim.Resets != 2 {
		t.Fatalf("resets = %d, want init + one cycle", sim.Resets)
	}
}

func TestDoReleasesOnCallbackError(t *testing.T) {
	sim := spisim.New(spisim.Panel{})
	var sl sleepLog
	a := newArb(t, sim, &sl)

	boom := errors.New("boom")
	if err := a.Do(spibus.Display, func() error { return boom }); err != boom {
		t.Fatalf("got %v, want callback error", err)
	}
	if a.Owner() != spibus.None {
		t.Fatal("owner not released")
	}
	if v := sim.CheckHandoffs(); len(v) != 0 {
		t.Fatalf("handoff violations: %v", v)
	}
}

func TestDoSequence(t *testing.T) {
	sim := spisim.New(spisim.Panel{X: 980})
	var sl sleepLog
	a := newArb(t, sim, &sl)
	sim.Trace = nil

	rx := make([]byte, 3)
	err := a.Do(spibus.Touch, func() error { return a.Transfer([]byte{0xD0, 0, 0}, rx) })
	if err != nil {
		t.Fatal(err)
	}
	want := []spisim.OpKind{spisim.OpSelect, spisim.OpTransfer, spisim.OpSelect, spisim.OpReset}
	if len(sim.Trace) != len(want) {
		t.Fatalf("trace = %+v", sim.Trace)
	}
	for i, k := range want {
		if sim.Trace[i].Kind != k {
			t.Fatalf("op %d kind = %d, want %d (trace %+v)", i, sim.Trace[i].Kind, k, sim.Trace)
		}
	}
	if sim.Trace[0].Mask != 0x02 || sim.Trace[2].Mask != 0 {
		t.Fatalf("unexpected masks: %+v", sim.Trace)
	}
	if got := (uint16(rx[1])<<8 | uint16(rx[2])) >> 4; got != 980 {
		t.Fatalf("decoded %d, want 980", got)
	}
}

func TestCustomMasks(t *testing.T) {
	sim := spisim.New(spisim.Panel{})
	sim.DisplayMask, sim.TouchMask = 0x04, 0x01
	a := spibus.New(sim, spibus.Config{DisplayMask: 0x04, TouchMask: 0x01, Sleep: func(time.Duration) {}})
	if err := a.Init(); err != nil {
		t.Fatal(err)
	}
	_ = a.Select(spibus.Display)
	if sim.Selected() != 0x04 {
		t.Fatalf("display mask = %#x", sim.Selected())
	}
}
