package engine

import (
	"context"
	"math"
	"time"
)

// resolveState names the phase of one in-flight resolve, surfaced to the
// logger for diagnostics. It is not part of the public API.
type resolveState string

const (
	stateCollecting resolveState = "COLLECTING"
	stateReducing   resolveState = "REDUCING"
	stateClamping   resolveState = "CLAMPING"
	stateStored     resolveState = "STORED"
	stateFailed     resolveState = "FAILED"
)

// logarithmicEpsilon floors the accumulator before taking its log in the
// LOGARITHMIC bucket, so a zero or negative accumulator never produces
// -Inf/NaN.
const logarithmicEpsilon = 1e-9

func (e *Engine) resolve(ctx context.Context, actor *Actor) (*Snapshot, error) {
	start := time.Now()
	defer func() { e.metrics.ObserveResolveDuration(time.Since(start)) }()

	registryVersion := e.registry.Version()
	combinerVersion := e.combiners.Version()
	capLayerVersion := e.capLayers.Version()
	epoch := e.epochFor(actor.ID)

	subsystems := e.registry.GetByIDs(actor.Subsystems)
	ids := make([]string, len(subsystems))
	for i, s := range subsystems {
		ids[i] = s.SystemID()
	}

	fp := computeFingerprint(fingerprintInputs{
		actorID:         actor.ID,
		actorKind:       actor.Kind,
		actorVersion:    actor.Version(),
		registryVersion: registryVersion,
		combinerVersion: combinerVersion,
		capLayerVersion: capLayerVersion,
		subsystemIDs:    ids,
		buffs:           actor.Buffs,
		data:            actor.DataOrdered(),
		epoch:           epoch,
	})

	if snap, hit, err := e.cache.Get(ctx, fp); err != nil {
		return nil, wrapErr(KindCache, CodeCacheIO, "cache get failed", err)
	} else if hit {
		e.metrics.IncCacheHit()
		return snap, nil
	}
	e.metrics.IncCacheMiss()

	v, err, _ := e.sf.Do(fp.String(), func() (interface{}, error) {
		return e.collectAndReduce(ctx, actor, subsystems, fp)
	})
	if err != nil {
		e.logger.Error("resolve failed", map[string]any{"actor_id": actor.ID, "error": err.Error()})
		return nil, err
	}
	snap := v.(*Snapshot)

	if err := e.cache.Set(ctx, fp, snap, e.defaultTTL); err != nil {
		e.logger.Warn("cache set failed", map[string]any{"actor_id": actor.ID, "error": err.Error()})
	}
	return snap, nil
}

// collectAndReduce runs one resolve's work: subsystem collection, per-
// dimension reduction, and cap composition. It is the body wrapped by the
// single-flight group, so exactly one caller per Fingerprint executes it
// concurrently.
func (e *Engine) collectAndReduce(ctx context.Context, actor *Actor, subsystems []Subsystem, fp Fingerprint) (*Snapshot, error) {
	e.logger.Debug("resolve collecting", map[string]any{"actor_id": actor.ID, "state": stateCollecting})

	var contributions []Contribution
	var capContributions []CapContribution
	var flags []Flag

	for _, s := range subsystems {
		if err := ctx.Err(); err != nil {
			return nil, wrapErr(KindCancellation, CodeCancelled, "resolve cancelled during collection", err)
		}
		cs, caps, fs, err := func() (cs []Contribution, caps []CapContribution, fs []Flag, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = newErr(KindSubsystem, CodeSubsystemContributionReject, "subsystem panicked").
						WithContext("panic", r)
				}
			}()
			return s.Contribute(ctx, actor)
		}()
		if err != nil {
			e.metrics.IncSubsystemError(s.SystemID())
			return nil, wrapErr(KindSubsystem, CodeSubsystemContributionReject, "subsystem contribution rejected", err).
				WithContext("subsystem", s.SystemID())
		}
		for _, c := range cs {
			c.index = len(contributions)
			if err := validateContribution(c, e.extendedBuckets); err != nil {
				return nil, err
			}
			contributions = append(contributions, c)
		}
		for _, c := range caps {
			c.index = len(capContributions)
			if err := validateCapContribution(c); err != nil {
				return nil, err
			}
			capContributions = append(capContributions, c)
		}
		flags = append(flags, fs...)
	}

	if err := ctx.Err(); err != nil {
		return nil, wrapErr(KindCancellation, CodeCancelled, "resolve cancelled before reduction", err)
	}

	e.logger.Debug("resolve reducing", map[string]any{"actor_id": actor.ID, "state": stateReducing})

	byDim := make(map[Dimension][]Contribution)
	for _, c := range contributions {
		byDim[c.Dimension] = append(byDim[c.Dimension], c)
	}

	e.logger.Debug("resolve composing caps", map[string]any{"actor_id": actor.ID, "state": stateClamping})
	caps, err := e.capsProvider.Compose(capContributions, ComposeOptions{
		Strict:    e.strictCaps,
		Direction: e.clampDirection,
	})
	if err != nil {
		return nil, err
	}

	values := make(map[Dimension]float64, len(byDim))
	for dim, cs := range byDim {
		rule, ok := e.combiners.Rule(dim)
		if !ok {
			return nil, newErr(KindValidation, CodeDimensionUnknown, "no combiner rule for dimension and default is disabled").
				WithContext("dimension", string(dim))
		}
		dimCaps, hasCaps := caps[dim]
		v, err := reduceDimension(rule, cs, actor, dimCaps, hasCaps)
		if err != nil {
			return nil, err
		}
		values[dim] = v
	}

	// Dimensions with a fallback but zero contributions still resolve, to
	// the fallback value, clamped like any other result.
	for dim, rule := range e.allRuleDimensions(byDim) {
		if _, has := values[dim]; has || rule.Fallback == nil {
			continue
		}
		v := *rule.Fallback
		if c, ok := caps[dim]; ok {
			v = c.Clamp(v)
		}
		values[dim] = v
	}

	for dim, v := range values {
		if c, ok := caps[dim]; ok && c.ExceedsSoft(v) {
			flags = append(flags, Flag(string(dim)+"_SOFT_EXCEEDED"))
		}
	}

	snap := &Snapshot{
		ActorID:      actor.ID,
		ActorVersion: actor.Version(),
		Fingerprint:  fp,
		Values:       values,
		Caps:         caps,
		Flags:        dedupeFlags(flags),
		CreatedAt:    time.Now().UTC(),
	}
	e.logger.Debug("resolve stored", map[string]any{"actor_id": actor.ID, "state": stateStored})
	return snap, nil
}

// allRuleDimensions is a hook point for iterating every dimension that has
// an explicit combiner rule with a Fallback, even if no subsystem
// contributed to it this resolve. The engine only tracks explicit rules
// here (not the open-ended default), since a dimension nobody configured a
// fallback for and nobody contributed to simply does not appear in the
// Snapshot.
func (e *Engine) allRuleDimensions(seen map[Dimension][]Contribution) map[Dimension]CombinerRule {
	out := make(map[Dimension]CombinerRule)
	e.combiners.mu.RLock()
	for dim, r := range e.combiners.rules {
		out[dim] = r
	}
	e.combiners.mu.RUnlock()
	for dim := range seen {
		if r, ok := e.combiners.Rule(dim); ok {
			out[dim] = r
		}
	}
	return out
}

func dedupeFlags(flags []Flag) []Flag {
	seen := make(map[Flag]bool, len(flags))
	out := make([]Flag, 0, len(flags))
	for _, f := range flags {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// reduceDimension runs one dimension's bucket pipeline: contributions are
// grouped by bucket, each bucket's group is reduced to a single number by
// the rule's Operator, and the buckets are then folded into an
// accumulator in rule.BucketOrder using each bucket's fixed combination
// semantics (FLAT adds, MULT multiplies the accumulator by the reduced
// bucket value, POST_ADD adds after MULT, OVERRIDE replaces). ClampPerBucket clamps the
// accumulator after every bucket instead of only at the end.
func reduceDimension(rule CombinerRule, contribs []Contribution, actor *Actor, caps Caps, hasCaps bool) (float64, error) {
	sortContributions(contribs)

	byBucket := make(map[Bucket][]Contribution)
	for _, c := range contribs {
		byBucket[c.Bucket] = append(byBucket[c.Bucket], c)
	}

	clamp := func(v float64) float64 {
		if rule.ClampPerBucket && hasCaps {
			return caps.Clamp(v)
		}
		return v
	}

	acc := 0.0
	for _, bucket := range rule.BucketOrder {
		group := byBucket[bucket]
		if len(group) == 0 {
			continue
		}

		switch bucket {
		case BucketOverride:
			// OVERRIDE always replaces with a single authoritative value:
			// the contributions are already sorted by (priority desc,
			// source asc, index asc), so the first entry wins regardless
			// of the rule's Operator.
			acc = group[0].Value

		case BucketFlat:
			v, err := reduceValues(rule.Operator, valuesOf(group))
			if err != nil {
				return 0, err
			}
			acc += v

		case BucketPostAdd:
			v, err := reduceValues(rule.Operator, valuesOf(group))
			if err != nil {
				return 0, err
			}
			acc += v

		case BucketMult:
			v, err := reduceValues(rule.Operator, valuesOf(group))
			if err != nil {
				return 0, err
			}
			acc *= v

		case BucketExponential:
			v, err := reduceValues(rule.Operator, valuesOf(group))
			if err != nil {
				return 0, err
			}
			acc *= math.Exp(v)

		case BucketLogarithmic:
			v, err := reduceValues(rule.Operator, valuesOf(group))
			if err != nil {
				return 0, err
			}
			acc = math.Log(math.Max(acc, logarithmicEpsilon)) + v

		case BucketConditional:
			var active []Contribution
			for _, c := range group {
				if c.Tags["when_buff"] == "" || actor.hasBuff(c.Tags["when_buff"]) {
					active = append(active, c)
				}
			}
			if len(active) == 0 {
				continue
			}
			v, err := reduceValues(rule.Operator, valuesOf(active))
			if err != nil {
				return 0, err
			}
			acc += v

		default:
			return 0, newErr(KindInternal, CodeInvariant, "unreachable bucket in pipeline").
				WithContext("bucket", string(bucket))
		}

		acc = clamp(acc)
	}

	if !rule.ClampPerBucket && hasCaps {
		acc = caps.Clamp(acc)
	}
	return acc, nil
}

func valuesOf(cs []Contribution) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Value
	}
	return out
}

func reduceValues(op Operator, values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	switch op {
	case OpSum:
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum, nil
	case OpMax:
		m := values[0]
		for _, v := range values[1:] {
			if v > m {
				m = v
			}
		}
		return m, nil
	case OpMin:
		m := values[0]
		for _, v := range values[1:] {
			if v < m {
				m = v
			}
		}
		return m, nil
	case OpMul:
		p := 1.0
		for _, v := range values {
			p *= v
		}
		return p, nil
	case OpAverage:
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values)), nil
	default:
		return 0, newErr(KindInternal, CodeInvariant, "unreachable operator").
			WithContext("operator", string(op))
	}
}

func (a *Actor) hasBuff(id string) bool {
	for _, b := range a.Buffs {
		if b == id {
			return true
		}
	}
	return false
}
