package cache

import (
	"encoding/hex"
	"encoding/json"
	"time"

	engine "github.com/R3E-Network/actorcore/system/core"
)

// wireSnapshot is the JSON-serializable mirror of engine.Snapshot used by
// the L2 and L3 layers, which cannot store Go types directly. Fingerprint
// is carried as its hex string rather than recomputed, since the caller
// already knows it (it's the lookup key) and round-tripping it guards
// against silent corruption.
type wireSnapshot struct {
	ActorID      string             `json:"actor_id"`
	ActorVersion uint64             `json:"actor_version"`
	Fingerprint  string             `json:"fingerprint"`
	Values       map[string]float64 `json:"values"`
	Caps         map[string]wireCaps `json:"caps"`
	Flags        []string           `json:"flags"`
	CreatedAt    time.Time          `json:"created_at"`
}

type wireCaps struct {
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	SoftMin *float64 `json:"soft_min,omitempty"`
	SoftMax *float64 `json:"soft_max,omitempty"`
}

func encodeSnapshot(snap *engine.Snapshot) ([]byte, error) {
	w := wireSnapshot{
		ActorID:      snap.ActorID,
		ActorVersion: snap.ActorVersion,
		Fingerprint:  snap.Fingerprint.String(),
		Values:       make(map[string]float64, len(snap.Values)),
		Caps:         make(map[string]wireCaps, len(snap.Caps)),
		Flags:        make([]string, len(snap.Flags)),
		CreatedAt:    snap.CreatedAt,
	}
	for dim, v := range snap.Values {
		w.Values[string(dim)] = v
	}
	for dim, c := range snap.Caps {
		w.Caps[string(dim)] = wireCaps{Min: c.Min, Max: c.Max, SoftMin: c.SoftMin, SoftMax: c.SoftMax}
	}
	for i, f := range snap.Flags {
		w.Flags[i] = string(f)
	}
	return json.Marshal(w)
}

func decodeSnapshot(data []byte) (*engine.Snapshot, error) {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	snap := &engine.Snapshot{
		ActorID:      w.ActorID,
		ActorVersion: w.ActorVersion,
		Values:       make(map[engine.Dimension]float64, len(w.Values)),
		Caps:         make(engine.EffectiveCaps, len(w.Caps)),
		Flags:        make([]engine.Flag, len(w.Flags)),
		CreatedAt:    w.CreatedAt,
	}
	fp, err := parseFingerprint(w.Fingerprint)
	if err != nil {
		return nil, err
	}
	snap.Fingerprint = fp
	for dim, v := range w.Values {
		snap.Values[engine.Dimension(dim)] = v
	}
	for dim, c := range w.Caps {
		snap.Caps[engine.Dimension(dim)] = engine.Caps{Min: c.Min, Max: c.Max, SoftMin: c.SoftMin, SoftMax: c.SoftMax}
	}
	for i, f := range w.Flags {
		snap.Flags[i] = engine.Flag(f)
	}
	return snap, nil
}

func parseFingerprint(hexStr string) (engine.Fingerprint, error) {
	var fp engine.Fingerprint
	_, err := hex.Decode(fp[:], []byte(hexStr))
	return fp, err
}
