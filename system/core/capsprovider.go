package engine

import "math"

// CapsProvider composes EffectiveCaps for one actor + actor version from the
// CapContributions gathered during a resolve.
//
// A CapContribution carries a single scalar Value, while BASELINE and
// OVERRIDE conceptually set a whole [min,max] pair. This provider resolves
// that by treating both as seeding a degenerate point interval [v, v], the
// only reading consistent with a single scalar input, after which
// HARD_MAX/SOFT_MAX and HARD_MIN/SOFT_MIN narrow or raise their respective
// side only, and ADDITIVE shifts both sides by the same delta (a window
// translation, the natural generalization of "additive" when no side is
// named). This decision is recorded in DESIGN.md.
type CapsProvider struct {
	layers *CapLayerRegistry
}

// NewCapsProvider builds a CapsProvider bound to a CapLayerRegistry.
func NewCapsProvider(layers *CapLayerRegistry) *CapsProvider {
	return &CapsProvider{layers: layers}
}

// ClampDirection names which side of an empty cap range to collapse onto
// when normalization fails.
type ClampDirection string

const (
	ClampToMin ClampDirection = "min"
	ClampToMax ClampDirection = "max"
)

// ComposeOptions configures one Compose call.
type ComposeOptions struct {
	// Strict makes an empty cap range (min > max) that reaches normalize a
	// hard CapRangeEmpty failure instead of collapsing to a point range. An
	// empty range inside one layer, or from the INTERSECT policy, fails with
	// CapRangeEmpty whatever Strict says, and the other policies never hand
	// normalize an empty range, so the collapse does not occur.
	Strict bool
	// Direction selects which side to collapse to per dimension when not
	// Strict and a dimension's range comes out empty. Dimensions absent
	// from the map collapse to ClampToMin.
	Direction map[Dimension]ClampDirection
}

// Compose groups contributions by dimension and produces EffectiveCaps.
// Determinism: identical contributions (by value) always yield a
// byte-identical EffectiveCaps map.
func (p *CapsProvider) Compose(contributions []CapContribution, opts ComposeOptions) (EffectiveCaps, error) {
	byDim := make(map[Dimension][]CapContribution)
	for i, c := range contributions {
		c.index = i
		if !p.layers.KnownLayer(c.Layer) {
			return nil, newErr(KindValidation, CodeUnknownLayer, "cap contribution references unknown layer").
				WithContext("dimension", string(c.Dimension)).
				WithContext("layer", c.Layer)
		}
		byDim[c.Dimension] = append(byDim[c.Dimension], c)
	}

	layers := p.layers.Ordered()
	policy := p.layers.Policy()
	p.layers.mu.RLock()
	shrink := p.layers.shrink
	p.layers.mu.RUnlock()

	result := make(EffectiveCaps, len(byDim))
	for dim, contribs := range byDim {
		perLayer, err := p.composeLayersForDimension(dim, contribs, layers)
		if err != nil {
			return nil, err
		}
		combined, err := combineAcrossLayers(dim, perLayer, policy)
		if err != nil && policy == PolicyStrict && shrink {
			combined, err = combineAcrossLayers(dim, perLayer, PolicyIntersect)
		}
		if err != nil {
			return nil, err
		}
		combined = normalize(dim, combined, opts)
		if combined == nil {
			return nil, newErr(KindCapComposition, CodeCapRangeEmpty, "cap range empty").
				WithContext("dimension", string(dim))
		}
		result[dim] = *combined
	}
	return result, nil
}

// composeLayersForDimension runs the per-layer composition pass for one
// dimension, returning each layer's finalized Caps in layer-priority order.
func (p *CapsProvider) composeLayersForDimension(dim Dimension, contribs []CapContribution, layers []CapLayer) ([]Caps, error) {
	byLayer := make(map[string][]CapContribution)
	for _, c := range contribs {
		byLayer[c.Layer] = append(byLayer[c.Layer], c)
	}

	running := Caps{Min: math.Inf(-1), Max: math.Inf(1)}
	out := make([]Caps, 0, len(layers))

	for _, layer := range layers {
		lc := append([]CapContribution{}, byLayer[layer.Name]...)
		sortCapContributions(lc)

		if baseline := firstOfMode(lc, CapModeBaseline); baseline != nil {
			running = Caps{Min: baseline.Value, Max: baseline.Value}
		}

		for _, c := range lc {
			if c.Mode == CapModeAdditive {
				running.Min += c.Value
				running.Max += c.Value
			}
		}

		for _, c := range lc {
			if c.Mode == CapModeHardMax {
				running.Max = math.Min(running.Max, c.Value)
			}
		}
		for _, c := range lc {
			if c.Mode == CapModeHardMin {
				running.Min = math.Max(running.Min, c.Value)
			}
		}

		for _, c := range lc {
			if c.Mode == CapModeSoftMax {
				v := c.Value
				if running.SoftMax == nil || v < *running.SoftMax {
					running.SoftMax = &v
				}
			}
			if c.Mode == CapModeSoftMin {
				v := c.Value
				if running.SoftMin == nil || v > *running.SoftMin {
					running.SoftMin = &v
				}
			}
		}

		if override := firstOfMode(lc, CapModeOverride); override != nil {
			soft := Caps{Min: override.Value, Max: override.Value}
			running = soft
		}

		if running.Min > running.Max {
			return nil, newErr(KindCapComposition, CodeCapRangeEmpty, "cap layer produced an empty range").
				WithContext("dimension", string(dim)).
				WithContext("layer", layer.Name)
		}

		out = append(out, running)
	}
	return out, nil
}

func firstOfMode(cs []CapContribution, mode CapMode) *CapContribution {
	for i := range cs {
		if cs[i].Mode == mode {
			return &cs[i]
		}
	}
	return nil
}

func combineAcrossLayers(dim Dimension, perLayer []Caps, policy AcrossLayerPolicy) (*Caps, error) {
	if len(perLayer) == 0 {
		unbounded := Caps{Min: math.Inf(-1), Max: math.Inf(1)}
		return &unbounded, nil
	}

	switch policy {
	case PolicyUnion:
		out := perLayer[0]
		for _, c := range perLayer[1:] {
			if c.Min < out.Min {
				out.Min = c.Min
			}
			if c.Max > out.Max {
				out.Max = c.Max
			}
		}
		return &out, nil

	case PolicyIntersect:
		out := perLayer[0]
		for _, c := range perLayer[1:] {
			if c.Min > out.Min {
				out.Min = c.Min
			}
			if c.Max < out.Max {
				out.Max = c.Max
			}
		}
		if out.Min > out.Max {
			return nil, newErr(KindCapComposition, CodeCapRangeEmpty, "intersected cap range is empty").
				WithContext("dimension", string(dim))
		}
		return &out, nil

	case PolicyPrioritizedOverride:
		// perLayer is already in descending-priority order.
		out := perLayer[0]
		return &out, nil

	case PolicyStrict:
		// Layers are in descending-priority order; each inner (later,
		// lower-priority) layer's bounds must fit inside the outer
		// (earlier, higher-priority) layer's bounds.
		outer := perLayer[0]
		for _, inner := range perLayer[1:] {
			if inner.Min < outer.Min || inner.Max > outer.Max {
				return nil, newErr(KindCapComposition, CodeCapLayerViolation, "inner cap layer escapes outer layer bounds").
					WithContext("dimension", string(dim))
			}
		}
		return &outer, nil

	default:
		return nil, newErr(KindInternal, CodeInvariant, "unreachable across-layer policy").
			WithContext("policy", string(policy))
	}
}

func normalize(dim Dimension, c *Caps, opts ComposeOptions) *Caps {
	if c == nil || c.Min <= c.Max {
		return c
	}
	if opts.Strict {
		return nil
	}
	dir := opts.Direction[dim]
	if dir == "" {
		dir = ClampToMin
	}
	if dir == ClampToMax {
		return &Caps{Min: c.Max, Max: c.Max, SoftMin: c.SoftMin, SoftMax: c.SoftMax}
	}
	return &Caps{Min: c.Min, Max: c.Min, SoftMin: c.SoftMin, SoftMax: c.SoftMax}
}
