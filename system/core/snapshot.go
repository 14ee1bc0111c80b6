package engine

import (
	"sort"
	"time"
)

// Snapshot is the deterministic output of one resolve: the final value of
// every dimension touched, the EffectiveCaps that bounded them, the set of
// flags raised along the way, and the Fingerprint identifying the exact
// inputs that produced it.
type Snapshot struct {
	ActorID      string
	ActorVersion uint64
	Fingerprint  Fingerprint
	Values       map[Dimension]float64
	Caps         EffectiveCaps
	Flags        []Flag
	CreatedAt    time.Time
}

// Dimensions returns the snapshot's dimension names sorted lexicographically,
// for stable iteration in CLI output and tests.
func (s *Snapshot) Dimensions() []Dimension {
	out := make([]Dimension, 0, len(s.Values))
	for d := range s.Values {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Value returns the resolved value for dim and whether it was present.
func (s *Snapshot) Value(dim Dimension) (float64, bool) {
	v, ok := s.Values[dim]
	return v, ok
}

// HasFlag reports whether f was raised during this resolve.
func (s *Snapshot) HasFlag(f Flag) bool {
	for _, existing := range s.Flags {
		if existing == f {
			return true
		}
	}
	return false
}

// dump renders the snapshot as a sorted, stable key-value table, used by
// tests asserting exact output.
type dumpRow struct {
	Dimension Dimension
	Value     float64
	Min       float64
	Max       float64
}

func (s *Snapshot) dump() []dumpRow {
	rows := make([]dumpRow, 0, len(s.Values))
	for _, dim := range s.Dimensions() {
		caps, ok := s.Caps[dim]
		row := dumpRow{Dimension: dim, Value: s.Values[dim]}
		if ok {
			row.Min, row.Max = caps.Min, caps.Max
		}
		rows = append(rows, row)
	}
	return rows
}
