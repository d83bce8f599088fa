package controller

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestWatchdog_NeverTriggersWithoutTarget(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 10; i++ {
		h.clock.Advance(time.Hour)
		h.ctrl.checkStaleness()
	}

	if got := h.rebooter.snapshot(); len(got) != 0 {
		t.Errorf("watchdog triggered recovery without a target: %v", got)
	}
	if ops := h.store.opsSnapshot(); len(ops) != 0 {
		t.Errorf("watchdog published before first target: %v", ops)
	}
}

func TestWatchdog_PublishesElapsed(t *testing.T) {
	h := newHarness(t)
	h.ctrl.handle(targetValue(`"https://a.example"`))

	h.clock.Advance(42*time.Second + 700*time.Millisecond)
	h.ctrl.checkStaleness()

	if v, _ := h.store.value("clients/pi1/timeSinceChange"); v != int64(42) {
		t.Errorf("timeSinceChange = %v (%T), want 42", v, v)
	}
	if len(h.metrics.staleness) != 1 || h.metrics.staleness[0] != 42*time.Second+700*time.Millisecond {
		t.Errorf("staleness metrics = %v", h.metrics.staleness)
	}
}

func TestWatchdog_NewTargetResetsElapsed(t *testing.T) {
	h := newHarness(t)
	h.ctrl.handle(targetValue(`"https://a.example"`))

	h.clock.Advance(100 * time.Second)
	h.ctrl.handle(targetValue(`"https://b.example"`))
	h.ctrl.checkStaleness()

	if v, _ := h.store.value("clients/pi1/timeSinceChange"); v != int64(0) {
		t.Errorf("timeSinceChange = %v right after a new target, want 0", v)
	}

	h.clock.Advance(100 * time.Second)
	h.ctrl.checkStaleness()
	if got := h.rebooter.snapshot(); len(got) != 0 {
		t.Errorf("recovery triggered %v after 100s of a fresh target", got)
	}
}

func TestWatchdog_ThresholdIsExclusive(t *testing.T) {
	h := newHarness(t)
	h.ctrl.handle(targetValue(`"https://a.example"`))

	h.clock.Advance(120 * time.Second)
	h.ctrl.checkStaleness()
	if got := h.rebooter.snapshot(); len(got) != 0 {
		t.Fatalf("recovery at exactly the threshold: %v", got)
	}

	h.clock.Advance(time.Millisecond)
	h.ctrl.checkStaleness()
	if got := h.rebooter.snapshot(); len(got) != 1 {
		t.Errorf("reboots = %v, want one past the threshold", got)
	}
}

func TestWatchdog_TimeoutFiresOnce(t *testing.T) {
	h := newHarness(t)
	h.ctrl.handle(targetValue(`"https://a.example"`))

	h.clock.Advance(130 * time.Second)
	h.ctrl.checkStaleness()
	h.clock.Advance(3 * time.Second)
	h.ctrl.checkStaleness()

	got := h.rebooter.snapshot()
	if len(got) != 1 {
		t.Fatalf("reboots = %v, want exactly one", got)
	}
	if got[0] != "target update timeout: 130.0s" {
		t.Errorf("reason = %q, want elapsed duration", got[0])
	}
	if !strings.Contains(got[0], "130") {
		t.Errorf("reason %q does not mention the elapsed time", got[0])
	}
	if n := len(h.store.pushed("clients/pi1/rebootLog")); n != 1 {
		t.Errorf("rebootLog entries = %d, want 1", n)
	}
}

func TestHeartbeat(t *testing.T) {
	h := newHarness(t)

	h.ctrl.beat()
	h.clock.Advance(30 * time.Second)
	h.ctrl.beat()

	if v, _ := h.store.value("clients/pi1/heartBeat"); v != h.clock.Now().UnixMilli() {
		t.Errorf("heartBeat = %v, want %d", v, h.clock.Now().UnixMilli())
	}
	if h.metrics.beats != 2 {
		t.Errorf("heartbeat metrics = %d, want 2", h.metrics.beats)
	}
}

func TestHeartbeat_FailureNotEscalated(t *testing.T) {
	h := newHarness(t)
	h.store.setErr = errBoom

	h.ctrl.beat()

	if got := h.rebooter.snapshot(); len(got) != 0 {
		t.Errorf("heartbeat failure triggered recovery: %v", got)
	}
	if h.metrics.beats != 0 {
		t.Errorf("failed heartbeat recorded as sent")
	}
}

func TestReboot_Funnel(t *testing.T) {
	h := newHarness(t)

	h.ctrl.reboot("remote reboot requested")

	ops := h.store.opsSnapshot()
	if len(ops) != 2 || ops[0].kind != "push" || ops[1].kind != "set" {
		t.Fatalf("ops = %v, want push then set", ops)
	}

	now := h.clock.Now()
	wantEntry := RebootEntry{
		Date:   now.UnixMilli(),
		DT:     "2026-03-14T09:00:00Z",
		Reason: "remote reboot requested",
	}
	if ops[0].path != "clients/pi1/rebootLog" || !reflect.DeepEqual(ops[0].value, wantEntry) {
		t.Errorf("rebootLog push = %+v, want %+v", ops[0], wantEntry)
	}
	if ops[1].path != "clients/pi1/rebooting" || ops[1].value != "remote reboot requested" {
		t.Errorf("rebooting set = %+v", ops[1])
	}
	if got := h.rebooter.snapshot(); !reflect.DeepEqual(got, []string{"remote reboot requested"}) {
		t.Errorf("rebooter = %v", got)
	}
	if !reflect.DeepEqual(h.metrics.reboots, []string{"remote reboot requested"}) {
		t.Errorf("reboot metrics = %v", h.metrics.reboots)
	}
}

func TestReboot_SecondTriggerIsNoop(t *testing.T) {
	h := newHarness(t)

	h.ctrl.reboot("connection lost")
	h.ctrl.reboot("remote reboot requested")
	h.ctrl.reboot("device monitor error")

	if got := h.rebooter.snapshot(); !reflect.DeepEqual(got, []string{"connection lost"}) {
		t.Errorf("reboots = %v, want only the first", got)
	}
}

func TestReboot_PrimitiveFailureLogged(t *testing.T) {
	h := newHarness(t)
	h.rebooter.err = errBoom
	h.store.setErr = errBoom

	// Neither the failed publishes nor the failed primitive may panic or
	// clear the in-progress guard.
	h.ctrl.reboot("connection lost")
	h.ctrl.reboot("connection lost")

	if got := h.rebooter.snapshot(); len(got) != 1 {
		t.Errorf("reboots = %v, want 1", got)
	}
}
