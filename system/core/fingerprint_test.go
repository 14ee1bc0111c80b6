package engine

import "testing"

func baseFingerprintInputs() fingerprintInputs {
	return fingerprintInputs{
		actorID:      "hero-1",
		actorKind:    "player",
		actorVersion: 1,
		subsystemIDs: []string{"leveling"},
		buffs:        []string{"haste"},
		data:         []DataEntry{{Key: "level", Value: 10}},
	}
}

func TestComputeFingerprintDeterministic(t *testing.T) {
	in := baseFingerprintInputs()
	fp1 := computeFingerprint(in)
	fp2 := computeFingerprint(in)
	if fp1 != fp2 {
		t.Error("expected identical inputs to produce identical fingerprints")
	}
}

func TestComputeFingerprintOrderIndependentForSetLikeFields(t *testing.T) {
	in1 := baseFingerprintInputs()
	in1.subsystemIDs = []string{"a", "b"}
	in1.buffs = []string{"x", "y"}

	in2 := baseFingerprintInputs()
	in2.subsystemIDs = []string{"b", "a"}
	in2.buffs = []string{"y", "x"}

	if computeFingerprint(in1) != computeFingerprint(in2) {
		t.Error("expected subsystem/buff ordering not to affect the fingerprint")
	}
}

func TestComputeFingerprintDataOrderMatters(t *testing.T) {
	in1 := baseFingerprintInputs()
	in1.data = []DataEntry{{Key: "a", Value: 1}, {Key: "b", Value: 2}}

	in2 := baseFingerprintInputs()
	in2.data = []DataEntry{{Key: "b", Value: 2}, {Key: "a", Value: 1}}

	if computeFingerprint(in1) == computeFingerprint(in2) {
		t.Error("expected data insertion order to affect the fingerprint")
	}
}

func TestComputeFingerprintSensitiveToEachInput(t *testing.T) {
	base := computeFingerprint(baseFingerprintInputs())

	variants := []func(*fingerprintInputs){
		func(in *fingerprintInputs) { in.actorID = "other" },
		func(in *fingerprintInputs) { in.actorKind = "npc" },
		func(in *fingerprintInputs) { in.actorVersion++ },
		func(in *fingerprintInputs) { in.registryVersion++ },
		func(in *fingerprintInputs) { in.combinerVersion++ },
		func(in *fingerprintInputs) { in.capLayerVersion++ },
		func(in *fingerprintInputs) { in.epoch++ },
		func(in *fingerprintInputs) { in.subsystemIDs = append(append([]string{}, in.subsystemIDs...), "extra") },
		func(in *fingerprintInputs) { in.buffs = append(append([]string{}, in.buffs...), "extra") },
		func(in *fingerprintInputs) { in.data = append(append([]DataEntry{}, in.data...), DataEntry{Key: "extra", Value: 1}) },
	}
	for i, mutate := range variants {
		in := baseFingerprintInputs()
		mutate(&in)
		if computeFingerprint(in) == base {
			t.Errorf("variant %d: expected fingerprint to change", i)
		}
	}
}

func TestFingerprintString(t *testing.T) {
	fp := computeFingerprint(baseFingerprintInputs())
	s := fp.String()
	if len(s) != 32 {
		t.Errorf("expected 32 hex characters, got %d (%q)", len(s), s)
	}
}
