package engine

import (
	"fmt"
	"sync"
)

// CombinerRule specifies, for one dimension, the bucket order to apply, the
// reduction operator inside each bucket, whether to clamp after every
// bucket or only at the end, the tie-break policy, and an optional fallback
// value when no contribution exists for the dimension at all.
type CombinerRule struct {
	Dimension      Dimension
	BucketOrder    []Bucket
	ClampPerBucket bool
	Operator       Operator
	TieBreak       TieBreak
	Fallback       *float64

	// DependsOn names other dimensions this (derived) rule's contributions
	// may reference, e.g. via a CONDITIONAL predicate or an external
	// computation outside the core pipeline. It is used only for the cycle
	// check at load time; the pipeline itself does not traverse it.
	DependsOn []Dimension
}

// DefaultCombinerRule is used for any dimension with no explicit rule: bucket
// order FLAT → MULT → POST_ADD → OVERRIDE, reduce SUM, clamp at end only.
func DefaultCombinerRule(dim Dimension) CombinerRule {
	return CombinerRule{
		Dimension:      dim,
		BucketOrder:    append([]Bucket{}, coreBuckets...),
		ClampPerBucket: false,
		Operator:       OpSum,
		TieBreak:       TieBreakPriorityThenID,
	}
}

// CombinerRegistry maps Dimension to CombinerRule.
type CombinerRegistry struct {
	mu              sync.RWMutex
	rules           map[Dimension]CombinerRule
	defaultDisabled bool
	version         uint64
}

// NewCombinerRegistry creates an empty combiner registry; dimensions with no
// explicit rule fall back to DefaultCombinerRule unless DisableDefault is
// called.
func NewCombinerRegistry() *CombinerRegistry {
	return &CombinerRegistry{rules: make(map[Dimension]CombinerRule)}
}

// DisableDefault turns off the implicit default rule: dimensions with no
// explicit rule then fail resolve with DimensionUnknown.
func (c *CombinerRegistry) DisableDefault() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultDisabled = true
	c.version++
}

// Set installs or replaces the rule for rule.Dimension after validating it.
func (c *CombinerRegistry) Set(rule CombinerRule) error {
	if err := validateRule(rule, false); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules[rule.Dimension] = rule
	c.version++
	return nil
}

// Rule returns the rule for dim, or the default rule if none is set and the
// default has not been disabled. ok is false only when no rule applies.
func (c *CombinerRegistry) Rule(dim Dimension) (rule CombinerRule, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r, found := c.rules[dim]; found {
		return r, true
	}
	if c.defaultDisabled {
		return CombinerRule{}, false
	}
	return DefaultCombinerRule(dim), true
}

// Version returns the registry's version counter.
func (c *CombinerRegistry) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// LoadRules replaces the full rule set atomically after validating each
// rule and checking the DependsOn graph for cycles. On any failure the
// existing rule set is left untouched.
func (c *CombinerRegistry) LoadRules(rules []CombinerRule) error {
	seen := make(map[Dimension]CombinerRule, len(rules))
	for _, r := range rules {
		if _, dup := seen[r.Dimension]; dup {
			return newErr(KindConfiguration, CodeDuplicateName, "duplicate combiner rule").
				WithContext("dimension", string(r.Dimension))
		}
		if err := validateRule(r, false); err != nil {
			return err
		}
		seen[r.Dimension] = r
	}
	if cycle := findCycle(seen); cycle != nil {
		return newErr(KindConfiguration, CodeRuleCycle, fmt.Sprintf("cyclic dimension dependency: %v", cycle)).
			WithContext("cycle", cycle)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = seen
	c.version++
	return nil
}

// findCycle runs Kahn's algorithm over the DependsOn edges and returns a
// representative cycle (as dimension names) if the graph is not a DAG, or
// nil if it is acyclic.
func findCycle(rules map[Dimension]CombinerRule) []string {
	indegree := make(map[Dimension]int, len(rules))
	edges := make(map[Dimension][]Dimension, len(rules))
	for dim := range rules {
		indegree[dim] = 0
	}
	for dim, rule := range rules {
		for _, dep := range rule.DependsOn {
			if _, known := rules[dep]; !known {
				// Dependency on a dimension with no derived rule (e.g. a
				// primary dimension) is not part of the cycle check.
				continue
			}
			edges[dep] = append(edges[dep], dim)
			indegree[dim]++
		}
	}

	var queue []Dimension
	for dim, deg := range indegree {
		if deg == 0 {
			queue = append(queue, dim)
		}
	}
	visited := 0
	for len(queue) > 0 {
		dim := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range edges[dim] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	if visited == len(rules) {
		return nil
	}
	remaining := make([]string, 0, len(rules)-visited)
	for dim, deg := range indegree {
		if deg > 0 {
			remaining = append(remaining, string(dim))
		}
	}
	return remaining
}
