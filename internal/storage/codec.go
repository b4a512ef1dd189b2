package storage

import (
	"encoding/json"
	"errors"

	"breithorn/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeLayer(layer model.LayerSnapshot) ([]byte, error) {
	return json.Marshal(layer)
}

func DecodeLayer(data []byte) (model.LayerSnapshot, error) {
	var layer model.LayerSnapshot
	if err := json.Unmarshal(data, &layer); err != nil {
		return model.LayerSnapshot{}, err
	}
	if err := checkVersion(layer.VersionedRecord); err != nil {
		return model.LayerSnapshot{}, err
	}
	return layer, nil
}

func EncodeRun(run model.TrainRun) ([]byte, error) {
	return json.Marshal(run)
}

func DecodeRun(data []byte) (model.TrainRun, error) {
	var run model.TrainRun
	if err := json.Unmarshal(data, &run); err != nil {
		return model.TrainRun{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.TrainRun{}, err
	}
	return run, nil
}

func EncodeRateHistory(history []float64) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeRateHistory(data []byte) ([]float64, error) {
	var history []float64
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
