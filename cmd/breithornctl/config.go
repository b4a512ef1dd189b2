package main

import (
	"encoding/json"
	"fmt"
	"os"

	api "breithorn/pkg/breithorn"
)

func loadTrainRequestFromConfig(path string) (api.TrainRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return api.TrainRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return api.TrainRequest{}, err
	}

	var req api.TrainRequest
	if v, ok := asString(raw["run_id"]); ok {
		req.RunID = v
	}
	if v, ok := asString(raw["layer_id"]); ok {
		req.LayerID = v
	}
	if v, ok := asString(raw["encoder"]); ok {
		req.Encoder = v
	}
	if v, ok := asInt(raw["time_steps"]); ok {
		req.TimeSteps = v
	}
	if v, ok := asInt(raw["input_size"]); ok {
		req.InputSize = v
	}
	if v, ok := asInt(raw["output_size"]); ok {
		req.OutputSize = v
	}
	if v, ok := asInt(raw["samples"]); ok {
		req.Samples = v
	}
	if v, ok := asInt(raw["epochs"]); ok {
		req.Epochs = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asInt(raw["workers"]); ok {
		req.Workers = v
	}
	if v, ok := asFloat64(raw["a_pos"]); ok {
		req.APos = v
	}
	if v, ok := asFloat64(raw["tau_pos"]); ok {
		req.TauPos = v
	}
	if v, ok := asFloat64(raw["a_neg"]); ok {
		req.ANeg = v
	}
	if v, ok := asFloat64(raw["tau_neg"]); ok {
		req.TauNeg = v
	}
	if v, ok := asString(raw["policy"]); ok {
		req.Policy = v
	}
	if v, ok := asFloat64(raw["tau_m"]); ok {
		req.TauM = v
	}
	if v, ok := asFloat64(raw["u_threshold"]); ok {
		req.UThreshold = v
	}
	if v, ok := asFloat64(raw["u_rest"]); ok {
		req.URest = v
	}
	return req, nil
}

func loadOrDefaultTrainRequest(configPath string) (api.TrainRequest, error) {
	if configPath == "" {
		return api.TrainRequest{}, nil
	}
	req, err := loadTrainRequestFromConfig(configPath)
	if err != nil {
		return api.TrainRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}

func overrideTrainFlags(req *api.TrainRequest, set map[string]bool, flagValue map[string]any) {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "run-id":
			req.RunID = v.(string)
		case "layer-id":
			req.LayerID = v.(string)
		case "encoder":
			req.Encoder = v.(string)
		case "time-steps":
			req.TimeSteps = v.(int)
		case "input":
			req.InputSize = v.(int)
		case "output":
			req.OutputSize = v.(int)
		case "samples":
			req.Samples = v.(int)
		case "epochs":
			req.Epochs = v.(int)
		case "seed":
			req.Seed = v.(int64)
		case "workers":
			req.Workers = v.(int)
		case "a-pos":
			req.APos = v.(float64)
		case "tau-pos":
			req.TauPos = v.(float64)
		case "a-neg":
			req.ANeg = v.(float64)
		case "tau-neg":
			req.TauNeg = v.(float64)
		case "policy":
			req.Policy = v.(string)
		case "tau-m":
			req.TauM = v.(float64)
		case "u-threshold":
			req.UThreshold = v.(float64)
		case "u-rest":
			req.URest = v.(float64)
		}
	}
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
