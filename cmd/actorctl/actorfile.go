package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	engine "github.com/R3E-Network/actorcore/system/core"
)

// actorFile is the on-disk JSON shape accepted by --actor. Data values
// decode through encoding/json, so numeric fields arrive as float64; the
// leveling example subsystem accounts for that.
type actorFile struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	Data       map[string]any `json:"data"`
	Buffs      []string       `json:"buffs"`
	Subsystems []string       `json:"subsystems"`
}

func loadActor(path string) (*engine.Actor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading actor file: %w", err)
	}

	var af actorFile
	if err := json.Unmarshal(raw, &af); err != nil {
		return nil, fmt.Errorf("parsing actor file: %w", err)
	}
	if af.ID == "" {
		return nil, fmt.Errorf("actor file %s missing required \"id\" field", path)
	}

	actor := engine.NewActor(af.ID, af.Kind)
	for _, key := range sortedKeys(af.Data) {
		actor.SetData(key, af.Data[key])
	}
	for _, b := range af.Buffs {
		actor.AddBuff(b)
	}
	actor.Subsystems = af.Subsystems
	return actor, nil
}

// sortedKeys orders data keys so SetData's insertion order (and therefore
// fingerprinting) is stable across runs for the same JSON object, since
// Go's map iteration order is randomized and JSON objects carry no
// inherent ordering of their own.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
