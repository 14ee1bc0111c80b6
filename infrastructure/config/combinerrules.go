package config

import (
	"os"

	engine "github.com/R3E-Network/actorcore/system/core"
	infraerrors "github.com/R3E-Network/actorcore/infrastructure/errors"
)

// CombinerRuleEntry is one combiner rule as it appears in
// combiner_rules.yaml/.json.
type CombinerRuleEntry struct {
	Dimension      string   `yaml:"dimension" json:"dimension"`
	BucketOrder    []string `yaml:"bucket_order" json:"bucket_order"`
	ClampPerBucket bool     `yaml:"clamp_per_bucket" json:"clamp_per_bucket"`
	Operator       string   `yaml:"operator" json:"operator"`
	TieBreak       string   `yaml:"tie_break" json:"tie_break"`
	Fallback       *float64 `yaml:"fallback,omitempty" json:"fallback,omitempty"`
	DependsOn      []string `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
}

// CombinerRulesFile is the on-disk shape of the combiner rule configuration
// file.
type CombinerRulesFile struct {
	Rules           []CombinerRuleEntry `yaml:"rules" json:"rules"`
	DisableDefault  bool                `yaml:"disable_default" json:"disable_default"`
}

// LoadCombinerRules reads combiner_rules.yaml (or .yml/.json) from dir and
// converts it into engine.CombinerRule values ready for
// CombinerRegistry.LoadRules.
func LoadCombinerRules(dir string) ([]engine.CombinerRule, bool, error) {
	path, err := findConfigFile(dir, "combiner_rules")
	if err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, infraerrors.ConfigMissing(path)
	}

	var file CombinerRulesFile
	if err := unmarshalByExtension(path, data, &file); err != nil {
		return nil, false, infraerrors.ConfigMalformed(path, err)
	}

	rules := make([]engine.CombinerRule, 0, len(file.Rules))
	for _, r := range file.Rules {
		bucketOrder := make([]engine.Bucket, len(r.BucketOrder))
		for i, b := range r.BucketOrder {
			bucketOrder[i] = engine.Bucket(b)
		}
		dependsOn := make([]engine.Dimension, len(r.DependsOn))
		for i, d := range r.DependsOn {
			dependsOn[i] = engine.Dimension(d)
		}
		operator := engine.Operator(r.Operator)
		if operator == "" {
			operator = engine.OpSum
		}
		tieBreak := engine.TieBreak(r.TieBreak)
		if tieBreak == "" {
			tieBreak = engine.TieBreakPriorityThenID
		}
		rules = append(rules, engine.CombinerRule{
			Dimension:      engine.Dimension(r.Dimension),
			BucketOrder:    bucketOrder,
			ClampPerBucket: r.ClampPerBucket,
			Operator:       operator,
			TieBreak:       tieBreak,
			Fallback:       r.Fallback,
			DependsOn:      dependsOn,
		})
	}
	return rules, file.DisableDefault, nil
}
