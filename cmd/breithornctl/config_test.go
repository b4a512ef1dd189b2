package main

import (
	"os"
	"path/filepath"
	"testing"

	api "breithorn/pkg/breithorn"
)

func writeConfig(t *testing.T, payload string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "train.json")
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadTrainRequestFromConfig(t *testing.T) {
	path := writeConfig(t, `{
		"run_id": "run-a",
		"encoder": "temporal",
		"time_steps": 32,
		"input_size": 8,
		"output_size": 2,
		"samples": 6,
		"epochs": 3,
		"seed": 99,
		"workers": 2,
		"a_pos": 0.2,
		"tau_pos": 4,
		"a_neg": -0.3,
		"tau_neg": 6,
		"policy": "graded",
		"tau_m": 3,
		"u_threshold": 0.5,
		"u_rest": -0.1
	}`)

	req, err := loadTrainRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if req.RunID != "run-a" || req.Encoder != "temporal" {
		t.Fatalf("string fields wrong: %+v", req)
	}
	if req.TimeSteps != 32 || req.InputSize != 8 || req.OutputSize != 2 ||
		req.Samples != 6 || req.Epochs != 3 || req.Workers != 2 {
		t.Fatalf("int fields wrong: %+v", req)
	}
	if req.Seed != 99 {
		t.Fatalf("seed wrong: %d", req.Seed)
	}
	if req.APos != 0.2 || req.TauPos != 4 || req.ANeg != -0.3 || req.TauNeg != 6 {
		t.Fatalf("plasticity fields wrong: %+v", req)
	}
	if req.Policy != "graded" || req.TauM != 3 || req.UThreshold != 0.5 || req.URest != -0.1 {
		t.Fatalf("soma fields wrong: %+v", req)
	}
}

func TestLoadTrainRequestPartialConfig(t *testing.T) {
	path := writeConfig(t, `{"time_steps": 16}`)
	req, err := loadTrainRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if req.TimeSteps != 16 {
		t.Fatalf("time steps wrong: %d", req.TimeSteps)
	}
	// Untouched fields stay zero for Train to default.
	if req.RunID != "" || req.APos != 0 {
		t.Fatalf("unexpected non-zero fields: %+v", req)
	}
}

func TestLoadTrainRequestErrors(t *testing.T) {
	if _, err := loadTrainRequestFromConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := loadTrainRequestFromConfig(writeConfig(t, "not json")); err == nil {
		t.Fatal("expected error for malformed json")
	}
}

func TestLoadOrDefaultTrainRequest(t *testing.T) {
	req, err := loadOrDefaultTrainRequest("")
	if err != nil {
		t.Fatalf("empty path: %v", err)
	}
	if req != (api.TrainRequest{}) {
		t.Fatalf("empty path must yield the zero request: %+v", req)
	}
}

func TestOverrideTrainFlags(t *testing.T) {
	req := api.TrainRequest{RunID: "from-config", TimeSteps: 32, APos: 0.2}

	overrideTrainFlags(&req,
		map[string]bool{"run-id": true, "a-pos": true, "seed": true},
		map[string]any{
			"run-id":     "from-flag",
			"a-pos":      0.5,
			"seed":       int64(3),
			"time-steps": 64,
		})

	if req.RunID != "from-flag" || req.APos != 0.5 || req.Seed != 3 {
		t.Fatalf("set flags must override: %+v", req)
	}
	// time-steps was not in the set map, so the config value survives.
	if req.TimeSteps != 32 {
		t.Fatalf("unset flag overrode config: %d", req.TimeSteps)
	}
}

func TestCoercers(t *testing.T) {
	if v, ok := asInt(float64(5)); !ok || v != 5 {
		t.Fatalf("asInt from json number: %v %v", v, ok)
	}
	if _, ok := asInt("5"); ok {
		t.Fatal("asInt must reject strings")
	}
	if v, ok := asInt64(float64(7)); !ok || v != 7 {
		t.Fatalf("asInt64 from json number: %v %v", v, ok)
	}
	if v, ok := asFloat64(2); !ok || v != 2 {
		t.Fatalf("asFloat64 from int: %v %v", v, ok)
	}
	if v, ok := asString("x"); !ok || v != "x" {
		t.Fatalf("asString: %v %v", v, ok)
	}
}
