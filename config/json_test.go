package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadJSONAppliesOverridesOntoDefault(t *testing.T) {
	path := writeTempConfig(t, `{
		"width": 200e-9,
		"source_width_x": 100e-9,
		"temperature": 250,
		"sampling": "sweep",
		"num_sweep": 100
	}`)

	cfg, err := LoadJSON(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 200e-9 {
		t.Fatalf("width override not applied: got %g", cfg.Width)
	}
	if cfg.Temperature != 250 {
		t.Fatalf("temperature override not applied: got %g", cfg.Temperature)
	}
	if cfg.SamplingMode != SweepMode {
		t.Fatalf("expected sweep mode")
	}
	if cfg.NumSweep != 100 {
		t.Fatalf("num_sweep override not applied: got %d", cfg.NumSweep)
	}
	// Untouched fields should retain NewDefault's values.
	def := NewDefault()
	if cfg.Length != def.Length {
		t.Fatalf("length should be unchanged from default")
	}
}

func TestLoadJSONRejectsMissingFile(t *testing.T) {
	if _, err := LoadJSON(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadJSONRejectsInvalidJSON(t *testing.T) {
	path := writeTempConfig(t, `{not valid json`)
	if _, err := LoadJSON(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoadJSONRejectsNonPositiveWidth(t *testing.T) {
	path := writeTempConfig(t, `{"width": -1}`)
	if _, err := LoadJSON(path); err == nil {
		t.Fatal("expected error for non-positive width")
	}
}

func TestLoadJSONRejectsUnknownMaterial(t *testing.T) {
	path := writeTempConfig(t, `{"material": "diamond"}`)
	if _, err := LoadJSON(path); err == nil {
		t.Fatal("expected error for unknown material")
	}
}

func TestLoadJSONSiliconMaterialResetsCoefficients(t *testing.T) {
	path := writeTempConfig(t, `{"material": "silicon"}`)
	cfg, err := LoadJSON(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Dispersion != SiliconDispersion() {
		t.Fatal("expected silicon dispersion coefficients")
	}
}

func TestLoadJSONParsesObstaclesAndAngularDistribution(t *testing.T) {
	path := writeTempConfig(t, `{
		"angular_distribution": "lambert",
		"holes_enabled": true,
		"obstacles": [
			{"shape": "circle_hole", "center_x": 0, "center_y": 1e-7, "radius": 5e-8}
		]
	}`)
	cfg, err := LoadJSON(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AngularDistribution != Lambert {
		t.Fatal("expected lambert angular distribution")
	}
	if len(cfg.Obstacles) != 1 || cfg.Obstacles[0].Kind != CircleHole {
		t.Fatalf("expected one circle_hole obstacle, got %+v", cfg.Obstacles)
	}
}

func TestLoadJSONRejectsConflictingSideRoles(t *testing.T) {
	path := writeTempConfig(t, `{
		"sidewall_top": true,
		"hot_side": {"top": true}
	}`)
	if _, err := LoadJSON(path); err == nil {
		t.Fatal("expected error for a side assigned both wall and hot roles")
	}
}

func TestLoadJSONRejectsNoColdSide(t *testing.T) {
	path := writeTempConfig(t, `{
		"cold_side": {"top": false, "bottom": false, "left": false, "right": false}
	}`)
	if _, err := LoadJSON(path); err == nil {
		t.Fatal("expected error when no cold side is assigned")
	}
}

func TestValidateRejectsSourceOutsideSlab(t *testing.T) {
	cfg := NewDefault()
	cfg.Source.Y = cfg.Length * 2
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for source_y exceeding length")
	}
}
