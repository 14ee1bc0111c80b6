package engine

import (
	"context"
	"testing"
)

type stubSubsystem struct {
	id       string
	priority int
}

func (s stubSubsystem) SystemID() string { return s.id }
func (s stubSubsystem) Priority() int    { return s.priority }
func (s stubSubsystem) Contribute(context.Context, *Actor) ([]Contribution, []CapContribution, []Flag, error) {
	return nil, nil, nil, nil
}

func TestRegistryRegisterAndGetByID(t *testing.T) {
	r := NewRegistry()
	s := stubSubsystem{id: "leveling", priority: 10}
	if err := r.Register(s); err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, ok := r.GetByID("leveling")
	if !ok {
		t.Fatal("expected subsystem to be found")
	}
	if got.SystemID() != "leveling" {
		t.Errorf("unexpected subsystem: %s", got.SystemID())
	}
	if r.Count() != 1 {
		t.Errorf("expected count 1, got %d", r.Count())
	}
	if !r.IsRegistered("leveling") {
		t.Error("expected IsRegistered true")
	}
}

func TestRegistryRegisterRejectsNil(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(nil); err == nil {
		t.Fatal("expected error for nil subsystem")
	}
}

func TestRegistryRegisterRejectsEmptyID(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(stubSubsystem{id: "", priority: 1}); err == nil {
		t.Fatal("expected error for empty system id")
	}
}

func TestRegistryRegisterRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(stubSubsystem{id: "a", priority: 1}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := r.Register(stubSubsystem{id: "a", priority: 2})
	if err == nil {
		t.Fatal("expected duplicate id error")
	}
	ee, ok := err.(*EngineError)
	if !ok || ee.Code != CodeDuplicateID {
		t.Errorf("expected CodeDuplicateID, got %v", err)
	}
}

func TestRegistryUnregisterIsTolerantOfAbsent(t *testing.T) {
	r := NewRegistry()
	r.Unregister("ghost") // must not panic
	if r.Count() != 0 {
		t.Errorf("expected count 0, got %d", r.Count())
	}
}

func TestRegistryUnregisterRemoves(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(stubSubsystem{id: "a", priority: 1}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	r.Unregister("a")
	if r.IsRegistered("a") {
		t.Error("expected subsystem to be unregistered")
	}
	if r.Count() != 0 {
		t.Errorf("expected count 0, got %d", r.Count())
	}
}

func TestRegistryVersionBumpsOnRegisterAndUnregister(t *testing.T) {
	r := NewRegistry()
	v0 := r.Version()
	if err := r.Register(stubSubsystem{id: "a", priority: 1}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	v1 := r.Version()
	if v1 == v0 {
		t.Error("expected version to change after Register")
	}
	r.Unregister("a")
	if r.Version() == v1 {
		t.Error("expected version to change after Unregister")
	}
}

func TestRegistryGetByPriorityOrdering(t *testing.T) {
	r := NewRegistry()
	subs := []stubSubsystem{
		{id: "zeta", priority: 5},
		{id: "alpha", priority: 5},
		{id: "high", priority: 10},
	}
	for _, s := range subs {
		if err := r.Register(s); err != nil {
			t.Fatalf("Register(%s): %v", s.id, err)
		}
	}
	ordered := r.GetByPriority()
	if len(ordered) != 3 {
		t.Fatalf("expected 3 subsystems, got %d", len(ordered))
	}
	want := []string{"high", "alpha", "zeta"}
	for i, id := range want {
		if ordered[i].SystemID() != id {
			t.Errorf("position %d: expected %s, got %s", i, id, ordered[i].SystemID())
		}
	}
}

func TestRegistryGetByPriorityRange(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(stubSubsystem{id: "low", priority: 1})
	_ = r.Register(stubSubsystem{id: "mid", priority: 5})
	_ = r.Register(stubSubsystem{id: "high", priority: 10})

	got := r.GetByPriorityRange(4, 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 subsystems in range, got %d", len(got))
	}
	if got[0].SystemID() != "high" || got[1].SystemID() != "mid" {
		t.Errorf("unexpected ordering: %v, %v", got[0].SystemID(), got[1].SystemID())
	}
}

func TestRegistryGetByIDsSkipsUnknownAndSortsByPriority(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(stubSubsystem{id: "a", priority: 1})
	_ = r.Register(stubSubsystem{id: "b", priority: 2})

	got := r.GetByIDs([]string{"a", "ghost", "b"})
	if len(got) != 2 {
		t.Fatalf("expected 2 subsystems, got %d", len(got))
	}
	if got[0].SystemID() != "b" || got[1].SystemID() != "a" {
		t.Errorf("expected priority-ordered result, got %v, %v", got[0].SystemID(), got[1].SystemID())
	}
}

func TestRegistryGetByIDsNilReturnsAll(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(stubSubsystem{id: "a", priority: 1})
	_ = r.Register(stubSubsystem{id: "b", priority: 2})

	got := r.GetByIDs(nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 subsystems, got %d", len(got))
	}
}
