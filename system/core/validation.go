package engine

import "math"

// validateRule checks a CombinerRule for structural well-formedness:
// non-empty dimension, a non-empty bucket order drawn from known buckets
// (extended buckets rejected unless extendedEnabled), a known operator, and
// a known tie-break.
func validateRule(rule CombinerRule, extendedEnabled bool) error {
	if rule.Dimension == "" {
		return newErr(KindValidation, CodeDimensionUnknown, "combiner rule requires a dimension")
	}
	if len(rule.BucketOrder) == 0 {
		return newErr(KindValidation, CodeUnknownBucket, "combiner rule requires a non-empty bucket order").
			WithContext("dimension", string(rule.Dimension))
	}
	seen := make(map[Bucket]bool, len(rule.BucketOrder))
	for _, b := range rule.BucketOrder {
		if _, ok := validBucketName(string(b)); !ok {
			return newErr(KindValidation, CodeUnknownBucket, "unknown bucket in combiner rule").
				WithContext("dimension", string(rule.Dimension)).
				WithContext("bucket", string(b))
		}
		if b.IsExtended() && !extendedEnabled {
			return newErr(KindValidation, CodeUnknownBucket, "extended bucket used without extended buckets enabled").
				WithContext("dimension", string(rule.Dimension)).
				WithContext("bucket", string(b))
		}
		if seen[b] {
			return newErr(KindValidation, CodeUnknownBucket, "bucket listed more than once in bucket order").
				WithContext("dimension", string(rule.Dimension)).
				WithContext("bucket", string(b))
		}
		seen[b] = true
	}
	if _, ok := validOperator(string(rule.Operator)); !ok {
		return newErr(KindValidation, CodeUnknownBucket, "unknown operator in combiner rule").
			WithContext("dimension", string(rule.Dimension)).
			WithContext("operator", string(rule.Operator))
	}
	if rule.TieBreak != TieBreakPriorityThenID {
		return newErr(KindValidation, CodeUnknownBucket, "unknown tie-break policy").
			WithContext("dimension", string(rule.Dimension)).
			WithContext("tie_break", string(rule.TieBreak))
	}
	if rule.Fallback != nil && math.IsNaN(*rule.Fallback) {
		return newErr(KindValidation, CodeContributionInvalid, "combiner rule fallback must not be NaN").
			WithContext("dimension", string(rule.Dimension))
	}
	return nil
}

// validateContribution rejects a Contribution with structurally invalid
// fields: non-finite value, missing dimension/bucket/source, or an
// extended bucket used without the feature enabled.
func validateContribution(c Contribution, extendedEnabled bool) error {
	if c.Dimension == "" {
		return newErr(KindValidation, CodeContributionInvalid, "contribution requires a dimension")
	}
	if c.SourceID == "" {
		return newErr(KindValidation, CodeContributionInvalid, "contribution requires a source id").
			WithContext("dimension", string(c.Dimension))
	}
	if _, ok := validBucketName(string(c.Bucket)); !ok {
		return newErr(KindValidation, CodeUnknownBucket, "contribution references unknown bucket").
			WithContext("dimension", string(c.Dimension)).
			WithContext("source", c.SourceID)
	}
	if c.Bucket.IsExtended() && !extendedEnabled {
		return newErr(KindValidation, CodeUnknownBucket, "contribution uses an extended bucket without the feature enabled").
			WithContext("dimension", string(c.Dimension)).
			WithContext("bucket", string(c.Bucket)).
			WithContext("source", c.SourceID)
	}
	if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
		return newErr(KindValidation, CodeContributionInvalid, "contribution value must be finite").
			WithContext("dimension", string(c.Dimension)).
			WithContext("source", c.SourceID)
	}
	return nil
}

// validateContributions validates each contribution and returns the first
// error encountered, if any.
func validateContributions(cs []Contribution, extendedEnabled bool) error {
	for _, c := range cs {
		if err := validateContribution(c, extendedEnabled); err != nil {
			return err
		}
	}
	return nil
}

// validateCapContribution rejects a CapContribution with structurally
// invalid fields.
func validateCapContribution(c CapContribution) error {
	if c.Dimension == "" {
		return newErr(KindValidation, CodeCapContributionInvalid, "cap contribution requires a dimension")
	}
	if c.Layer == "" {
		return newErr(KindValidation, CodeCapContributionInvalid, "cap contribution requires a layer").
			WithContext("dimension", string(c.Dimension))
	}
	if c.SourceID == "" {
		return newErr(KindValidation, CodeCapContributionInvalid, "cap contribution requires a source id").
			WithContext("dimension", string(c.Dimension))
	}
	if _, ok := validCapMode(string(c.Mode)); !ok {
		return newErr(KindValidation, CodeCapContributionInvalid, "cap contribution references unknown mode").
			WithContext("dimension", string(c.Dimension)).
			WithContext("mode", string(c.Mode))
	}
	if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
		return newErr(KindValidation, CodeCapContributionInvalid, "cap contribution value must be finite").
			WithContext("dimension", string(c.Dimension)).
			WithContext("source", c.SourceID)
	}
	return nil
}

// validateCapContributions validates each cap contribution and returns the
// first error encountered, if any.
func validateCapContributions(cs []CapContribution) error {
	for _, c := range cs {
		if err := validateCapContribution(c); err != nil {
			return err
		}
	}
	return nil
}
