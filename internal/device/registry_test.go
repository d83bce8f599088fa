package device

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

func TestRegistry_AddRemove(t *testing.T) {
	reg := NewRegistry()

	if !reg.Add("D1") {
		t.Error("Add(D1) = false on empty registry, want true")
	}
	if reg.Add("D1") {
		t.Error("Add(D1) = true for present id, want false")
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}

	if reg.Remove("D2") {
		t.Error("Remove(D2) = true for absent id, want false")
	}
	if !reg.Remove("D1") {
		t.Error("Remove(D1) = false for present id, want true")
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d after Remove, want 0", reg.Len())
	}
}

func TestRegistry_Apply(t *testing.T) {
	tests := []struct {
		name         string
		initial      []string
		event        Event
		wantAttached bool
		wantOK       bool
		wantIDs      []string
	}{
		{"add", nil, Add("D1"), true, true, []string{"D1"}},
		{"add present is harmless", []string{"D1"}, Add("D1"), true, true, []string{"D1"}},
		{"remove", []string{"D1", "D2"}, Remove("D1"), false, true, []string{"D2"}},
		{"remove absent", nil, Remove("D1"), false, true, []string{}},
		{"change to present", nil, Change("D1", StatusPresent), true, true, []string{"D1"}},
		{"change to offline", []string{"D1"}, Change("D1", StatusOffline), false, true, []string{}},
		{"change to other", []string{"D1"}, Change("D1", StatusOther), false, false, []string{"D1"}},
		{"change to unknown", nil, Change("D1", Status("unauthorized")), false, false, []string{}},
		{"empty id", []string{"D1"}, Remove(""), false, false, []string{"D1"}},
		{"bad kind", nil, Event{Kind: Kind(9), ID: "D1"}, false, false, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			for _, id := range tt.initial {
				reg.Add(id)
			}

			attached, ok := reg.Apply(tt.event)
			if attached != tt.wantAttached || ok != tt.wantOK {
				t.Errorf("Apply(%+v) = (%v, %v), want (%v, %v)", tt.event, attached, ok, tt.wantAttached, tt.wantOK)
			}
			if got := reg.IDs(); !reflect.DeepEqual(got, tt.wantIDs) {
				t.Errorf("IDs() = %v, want %v", got, tt.wantIDs)
			}
		})
	}
}

// TestRegistry_ReplayMatchesLastEvent checks that after any event sequence
// the registry holds exactly the ids whose last presence-affecting event
// was attach-equivalent.
func TestRegistry_ReplayMatchesLastEvent(t *testing.T) {
	ids := []string{"D1", "D2", "D3", "D4"}
	statuses := []Status{StatusPresent, StatusOffline, StatusOther}
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		reg := NewRegistry()
		last := make(map[string]bool)

		for i := 0; i < 30; i++ {
			id := ids[rng.Intn(len(ids))]
			var ev Event
			switch rng.Intn(3) {
			case 0:
				ev = Add(id)
			case 1:
				ev = Remove(id)
			default:
				ev = Change(id, statuses[rng.Intn(len(statuses))])
			}

			if attached, ok := ev.Attached(); ok {
				last[id] = attached
			}
			reg.Apply(ev)
		}

		want := make(map[string]bool)
		for id, attached := range last {
			if attached {
				want[id] = true
			}
		}
		if got := reg.Snapshot(); !reflect.DeepEqual(got, want) {
			t.Fatalf("run %d: Snapshot() = %v, want %v", run, got, want)
		}
	}
}

func TestRegistry_IDsSorted(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []string{"emulator-5556", "R58M123", "0123456789ABCDEF"} {
		reg.Add(id)
	}

	want := []string{"0123456789ABCDEF", "R58M123", "emulator-5556"}
	if got := reg.IDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
}

func TestRegistry_SnapshotIsCopy(t *testing.T) {
	reg := NewRegistry()
	reg.Add("D1")

	snap := reg.Snapshot()
	snap["D2"] = true

	if reg.Len() != 1 {
		t.Error("mutating Snapshot() changed the registry")
	}
}

func TestEvent_Validate(t *testing.T) {
	if err := Add("D1").Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
	if err := Add("").Validate(); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Validate() error = %v, want ErrInvalidID", err)
	}
	if err := (Event{ID: "D1"}).Validate(); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("Validate() error = %v, want ErrInvalidKind", err)
	}
}

func TestKind_String(t *testing.T) {
	tests := map[Kind]string{
		KindAdd:    "add",
		KindRemove: "remove",
		KindChange: "change",
		Kind(0):    "kind(0)",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(k), got, want)
		}
	}
}
