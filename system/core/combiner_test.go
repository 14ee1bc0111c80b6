package engine

import "testing"

func TestDefaultCombinerRule(t *testing.T) {
	rule := DefaultCombinerRule(Dimension("attack_power"))
	if rule.Dimension != Dimension("attack_power") {
		t.Fatalf("unexpected dimension: %s", rule.Dimension)
	}
	want := []Bucket{BucketFlat, BucketMult, BucketPostAdd, BucketOverride}
	if len(rule.BucketOrder) != len(want) {
		t.Fatalf("unexpected bucket order: %v", rule.BucketOrder)
	}
	for i, b := range want {
		if rule.BucketOrder[i] != b {
			t.Errorf("bucket order[%d] = %s, want %s", i, rule.BucketOrder[i], b)
		}
	}
	if rule.Operator != OpSum {
		t.Errorf("expected default operator SUM, got %s", rule.Operator)
	}
	if rule.ClampPerBucket {
		t.Error("expected ClampPerBucket false by default")
	}
	if rule.TieBreak != TieBreakPriorityThenID {
		t.Errorf("expected default tie break, got %s", rule.TieBreak)
	}
}

func TestCombinerRegistrySetAndRule(t *testing.T) {
	reg := NewCombinerRegistry()

	rule := CombinerRule{
		Dimension:  "speed",
		BucketOrder: []Bucket{BucketFlat, BucketMult},
		Operator:   OpSum,
		TieBreak:   TieBreakPriorityThenID,
	}
	if err := reg.Set(rule); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok := reg.Rule("speed")
	if !ok {
		t.Fatal("expected rule to be found")
	}
	if len(got.BucketOrder) != 2 {
		t.Errorf("unexpected bucket order: %v", got.BucketOrder)
	}

	// Unconfigured dimension falls back to the default rule.
	def, ok := reg.Rule("unconfigured")
	if !ok {
		t.Fatal("expected default rule fallback")
	}
	if len(def.BucketOrder) != 4 {
		t.Errorf("expected default bucket order, got %v", def.BucketOrder)
	}
}

func TestCombinerRegistrySetRejectsInvalidRule(t *testing.T) {
	reg := NewCombinerRegistry()
	err := reg.Set(CombinerRule{Dimension: "speed"})
	if err == nil {
		t.Fatal("expected error for rule with no bucket order")
	}
}

func TestCombinerRegistryDisableDefault(t *testing.T) {
	reg := NewCombinerRegistry()
	reg.DisableDefault()

	if _, ok := reg.Rule("unconfigured"); ok {
		t.Fatal("expected no fallback rule once default is disabled")
	}
}

func TestCombinerRegistryVersionBumpsOnSet(t *testing.T) {
	reg := NewCombinerRegistry()
	before := reg.Version()
	if err := reg.Set(CombinerRule{
		Dimension:   "speed",
		BucketOrder: []Bucket{BucketFlat},
		Operator:    OpSum,
		TieBreak:    TieBreakPriorityThenID,
	}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if reg.Version() == before {
		t.Error("expected version to change after Set")
	}
}

func TestCombinerRegistryLoadRulesAtomic(t *testing.T) {
	reg := NewCombinerRegistry()
	// Without the default rule, Rule reports only explicitly loaded rules.
	reg.DisableDefault()

	valid := []CombinerRule{
		{Dimension: "speed", BucketOrder: []Bucket{BucketFlat}, Operator: OpSum, TieBreak: TieBreakPriorityThenID},
	}
	if err := reg.LoadRules(valid); err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if _, ok := reg.Rule("speed"); !ok {
		t.Fatal("expected speed rule to be loaded")
	}

	// A batch with a duplicate dimension must not partially apply.
	dup := []CombinerRule{
		{Dimension: "agility", BucketOrder: []Bucket{BucketFlat}, Operator: OpSum, TieBreak: TieBreakPriorityThenID},
		{Dimension: "agility", BucketOrder: []Bucket{BucketFlat}, Operator: OpSum, TieBreak: TieBreakPriorityThenID},
	}
	if err := reg.LoadRules(dup); err == nil {
		t.Fatal("expected error for duplicate dimension in batch")
	}
	if _, ok := reg.Rule("agility"); ok {
		t.Fatal("partially-applied batch leaked a rule despite the error")
	}
	// The prior valid load must remain intact.
	if _, ok := reg.Rule("speed"); !ok {
		t.Fatal("expected earlier successful load to survive a later failed one")
	}
}

func TestCombinerRegistryLoadRulesDetectsCycle(t *testing.T) {
	reg := NewCombinerRegistry()
	cyclic := []CombinerRule{
		{Dimension: "a", BucketOrder: []Bucket{BucketFlat}, Operator: OpSum, TieBreak: TieBreakPriorityThenID, DependsOn: []Dimension{"b"}},
		{Dimension: "b", BucketOrder: []Bucket{BucketFlat}, Operator: OpSum, TieBreak: TieBreakPriorityThenID, DependsOn: []Dimension{"a"}},
	}
	err := reg.LoadRules(cyclic)
	if err == nil {
		t.Fatal("expected cycle detection error")
	}
	ee, ok := err.(*EngineError)
	if !ok {
		t.Fatalf("expected *EngineError, got %T", err)
	}
	if ee.Code != CodeRuleCycle {
		t.Errorf("expected CodeRuleCycle, got %s", ee.Code)
	}
}

func TestCombinerRegistryLoadRulesAcyclicWithDependencies(t *testing.T) {
	reg := NewCombinerRegistry()
	rules := []CombinerRule{
		{Dimension: "attack_power", BucketOrder: []Bucket{BucketFlat}, Operator: OpSum, TieBreak: TieBreakPriorityThenID},
		{Dimension: "max_health", BucketOrder: []Bucket{BucketFlat}, Operator: OpSum, TieBreak: TieBreakPriorityThenID, DependsOn: []Dimension{"attack_power"}},
		{Dimension: "dps", BucketOrder: []Bucket{BucketFlat}, Operator: OpSum, TieBreak: TieBreakPriorityThenID, DependsOn: []Dimension{"attack_power", "max_health"}},
	}
	if err := reg.LoadRules(rules); err != nil {
		t.Fatalf("expected acyclic dependency chain to load cleanly: %v", err)
	}
}

func TestCombinerRegistryLoadRulesIgnoresDependencyOnUndeclaredDimension(t *testing.T) {
	reg := NewCombinerRegistry()
	// "strength" has no rule of its own in this batch; findCycle must not
	// treat a dependency on it as part of the cycle graph.
	rules := []CombinerRule{
		{Dimension: "attack_power", BucketOrder: []Bucket{BucketFlat}, Operator: OpSum, TieBreak: TieBreakPriorityThenID, DependsOn: []Dimension{"strength"}},
	}
	if err := reg.LoadRules(rules); err != nil {
		t.Fatalf("expected dependency on an undeclared dimension to be harmless: %v", err)
	}
}
