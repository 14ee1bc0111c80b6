// Package engine implements the Actor Core stat aggregation engine.
//
// The engine computes, for a given actor, a deterministic snapshot of its
// effective stats by collecting Contributions from a dynamic set of
// pluggable Subsystems, combining them per dimension under a CombinerRule,
// and clamping the result against a layered cap policy composed by the
// CapsProvider.
//
// # Components
//
//   - Registry: subsystem registration and priority-ordered lookup
//   - CombinerRegistry: per-dimension bucket-order / reduce rules
//   - CapLayerRegistry: ordered cap layers and the across-layer policy
//   - CapsProvider: composes EffectiveCaps for one actor + actor version
//   - Aggregator: orchestrates a resolve end to end (the bucket pipeline)
//
// None of these are process-wide singletons. A Builder wires one Engine
// explicitly; a process may run several isolated engines side by side, which
// is how the test suite exercises them.
//
// # Usage
//
//	b := engine.NewBuilder()
//	b.Registry().Register(mySubsystem)
//	eng, err := b.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	snap, err := eng.Resolve(ctx, actor)
package engine
