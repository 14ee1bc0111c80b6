package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/R3E-Network/actorcore/infrastructure/config"
	engine "github.com/R3E-Network/actorcore/system/core"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestLoadCapLayersYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cap_layers.yaml", `
layers:
  - name: baseline
    priority: 0
  - name: equipment
    priority: 10
across_layer_policy: INTERSECT
shrink_on_violation: true
`)

	layers, policy, shrink, err := config.LoadCapLayers(dir)
	if err != nil {
		t.Fatalf("LoadCapLayers: %v", err)
	}
	if len(layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(layers))
	}
	if policy != engine.PolicyIntersect {
		t.Errorf("expected INTERSECT policy, got %s", policy)
	}
	if !shrink {
		t.Error("expected shrink_on_violation true")
	}
}

func TestLoadCapLayersJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cap_layers.json", `{
		"layers": [{"name": "baseline", "priority": 0}],
		"across_layer_policy": "STRICT"
	}`)

	layers, policy, _, err := config.LoadCapLayers(dir)
	if err != nil {
		t.Fatalf("LoadCapLayers: %v", err)
	}
	if len(layers) != 1 || layers[0].Name != "baseline" {
		t.Errorf("unexpected layers: %+v", layers)
	}
	if policy != engine.PolicyStrict {
		t.Errorf("expected STRICT policy, got %s", policy)
	}
}

func TestLoadCapLayersMissingFile(t *testing.T) {
	dir := t.TempDir()
	if _, _, _, err := config.LoadCapLayers(dir); err == nil {
		t.Fatal("expected error for missing cap_layers file")
	}
}

func TestLoadCapLayersMalformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cap_layers.yaml", "not: [valid: yaml")

	if _, _, _, err := config.LoadCapLayers(dir); err == nil {
		t.Fatal("expected error for malformed cap_layers file")
	}
}
