package engine

import (
	"fmt"
	"sort"
)

// Dimension is a lowercase snake_case identifier naming a stat, e.g.
// "attack_power". The catalog is open: the engine treats dimension names as
// opaque keys and never hardcodes a domain-specific list.
type Dimension string

// Bucket is the processing phase of a Contribution.
type Bucket string

// Core buckets are always available. Extended buckets in a Contribution
// require the WithExtendedBuckets option.
const (
	BucketFlat     Bucket = "FLAT"
	BucketMult     Bucket = "MULT"
	BucketPostAdd  Bucket = "POST_ADD"
	BucketOverride Bucket = "OVERRIDE"

	BucketExponential Bucket = "EXPONENTIAL"
	BucketLogarithmic Bucket = "LOGARITHMIC"
	BucketConditional Bucket = "CONDITIONAL"
)

// coreBuckets is the default bucket order used when a dimension has no
// explicit CombinerRule.
var coreBuckets = []Bucket{BucketFlat, BucketMult, BucketPostAdd, BucketOverride}

// extendedBuckets lists the buckets gated behind the extended-buckets
// feature flag.
var extendedBuckets = map[Bucket]bool{
	BucketExponential: true,
	BucketLogarithmic: true,
	BucketConditional: true,
}

// IsCore reports whether b is one of the four always-available buckets.
func (b Bucket) IsCore() bool {
	switch b {
	case BucketFlat, BucketMult, BucketPostAdd, BucketOverride:
		return true
	default:
		return false
	}
}

// IsExtended reports whether b requires the extended-buckets feature flag.
func (b Bucket) IsExtended() bool {
	return extendedBuckets[b]
}

// Operator is the reduction applied to the contributions selected for one
// bucket before the bucket's semantics are applied to the accumulator.
type Operator string

const (
	OpSum     Operator = "SUM"
	OpMax     Operator = "MAX"
	OpMin     Operator = "MIN"
	OpMul     Operator = "MUL"
	OpAverage Operator = "AVERAGE"
)

// CapMode describes how a CapContribution combines with the running
// [min, max] accumulator of a cap layer.
type CapMode string

const (
	CapModeBaseline CapMode = "BASELINE"
	CapModeAdditive CapMode = "ADDITIVE"
	CapModeHardMax  CapMode = "HARD_MAX"
	CapModeHardMin  CapMode = "HARD_MIN"
	CapModeSoftMax  CapMode = "SOFT_MAX"
	CapModeSoftMin  CapMode = "SOFT_MIN"
	CapModeOverride CapMode = "OVERRIDE"
)

// AcrossLayerPolicy describes how per-layer caps combine into EffectiveCaps.
type AcrossLayerPolicy string

const (
	PolicyStrict             AcrossLayerPolicy = "STRICT"
	PolicyIntersect          AcrossLayerPolicy = "INTERSECT"
	PolicyUnion              AcrossLayerPolicy = "UNION"
	PolicyPrioritizedOverride AcrossLayerPolicy = "PRIORITIZED_OVERRIDE"
)

// TieBreak names the deterministic tie-break policy for a CombinerRule.
// PRIORITY_THEN_ID is currently the only supported value; the field exists
// so config files are forward-compatible with additional policies.
type TieBreak string

const (
	TieBreakPriorityThenID TieBreak = "PRIORITY_THEN_ID"
)

// Flag is an active flag name surfaced by a subsystem or raised during
// cap composition (e.g. a soft-bound excess).
type Flag string

// Contribution is one input to a dimension.
type Contribution struct {
	Dimension Dimension
	Bucket    Bucket
	Value     float64
	SourceID  string
	Priority  int
	Tags      map[string]string

	// index is the stable insertion order used as the final tiebreak; it is
	// assigned by the aggregator when a subsystem's output is collected, not
	// by the caller.
	index int
}

// CapContribution is one input to the caps provider.
type CapContribution struct {
	Dimension Dimension
	Layer     string
	Mode      CapMode
	Value     float64
	SourceID  string
	Priority  int

	index int
}

// Caps is a closed interval plus optional soft bounds.
type Caps struct {
	Min     float64
	Max     float64
	SoftMin *float64
	SoftMax *float64
}

// Clamp restricts v to [c.Min, c.Max]. Clamp is idempotent:
// Clamp(Clamp(v)) == Clamp(v) for any finite c.Min <= c.Max.
func (c Caps) Clamp(v float64) float64 {
	if v < c.Min {
		return c.Min
	}
	if v > c.Max {
		return c.Max
	}
	return v
}

// ExceedsSoft reports whether v falls outside the soft bounds, if any are
// set. Soft bounds are advisory: they never change the clamped value.
func (c Caps) ExceedsSoft(v float64) bool {
	if c.SoftMin != nil && v < *c.SoftMin {
		return true
	}
	if c.SoftMax != nil && v > *c.SoftMax {
		return true
	}
	return false
}

// EffectiveCaps is the composed per-dimension cap map produced by the
// CapsProvider for one actor + actor version.
type EffectiveCaps map[Dimension]Caps

// sortContributions orders a slice of Contribution by (descending priority,
// lexicographic source id, stable insertion index). This is the only
// ordering that affects the reduction, which is what makes the pipeline's
// output independent of arrival order.
func sortContributions(cs []Contribution) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Priority != cs[j].Priority {
			return cs[i].Priority > cs[j].Priority
		}
		if cs[i].SourceID != cs[j].SourceID {
			return cs[i].SourceID < cs[j].SourceID
		}
		return cs[i].index < cs[j].index
	})
}

// sortCapContributions orders CapContributions the same way, for the
// deterministic layer-composition algorithm.
func sortCapContributions(cs []CapContribution) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Priority != cs[j].Priority {
			return cs[i].Priority > cs[j].Priority
		}
		if cs[i].SourceID != cs[j].SourceID {
			return cs[i].SourceID < cs[j].SourceID
		}
		return cs[i].index < cs[j].index
	})
}

// String implements fmt.Stringer for readable log fields.
func (d Dimension) String() string { return string(d) }

// String implements fmt.Stringer for readable log fields.
func (b Bucket) String() string { return string(b) }

func validBucketName(s string) (Bucket, bool) {
	b := Bucket(s)
	switch b {
	case BucketFlat, BucketMult, BucketPostAdd, BucketOverride,
		BucketExponential, BucketLogarithmic, BucketConditional:
		return b, true
	default:
		return "", false
	}
}

func validOperator(s string) (Operator, bool) {
	op := Operator(s)
	switch op {
	case OpSum, OpMax, OpMin, OpMul, OpAverage:
		return op, true
	default:
		return "", false
	}
}

func validCapMode(s string) (CapMode, bool) {
	m := CapMode(s)
	switch m {
	case CapModeBaseline, CapModeAdditive, CapModeHardMax, CapModeHardMin,
		CapModeSoftMax, CapModeSoftMin, CapModeOverride:
		return m, true
	default:
		return "", false
	}
}

func validAcrossLayerPolicy(s string) (AcrossLayerPolicy, bool) {
	p := AcrossLayerPolicy(s)
	switch p {
	case PolicyStrict, PolicyIntersect, PolicyUnion, PolicyPrioritizedOverride:
		return p, true
	default:
		return "", false
	}
}

func fmtDim(d Dimension) string { return fmt.Sprintf("%q", string(d)) }
