// Package stats writes per-run artifact files: the run record as JSON, the
// firing-rate series and trained weights as CSV, and a spike raster.
package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"breithorn/internal/model"
	"breithorn/internal/tensor"
)

// RunArtifacts is everything one training run leaves on disk.
type RunArtifacts struct {
	Run         model.TrainRun
	RateByEpoch []float64
	Weights     [][]float64
	// Rasters from the last presented sample; either may be nil.
	InputTrain  *tensor.Matrix
	OutputTrain *tensor.Matrix
}

// WriteRunArtifacts writes all artifact files under baseDir/<runID> and
// returns the run directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	runID := strings.TrimSpace(artifacts.Run.ID)
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}
	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "run.json"), artifacts.Run); err != nil {
		return "", err
	}
	if err := writeRateSeries(filepath.Join(runDir, "rates.csv"), artifacts.RateByEpoch); err != nil {
		return "", err
	}
	if err := writeWeights(filepath.Join(runDir, "weights.csv"), artifacts.Weights); err != nil {
		return "", err
	}
	if artifacts.InputTrain != nil || artifacts.OutputTrain != nil {
		if err := writeRaster(filepath.Join(runDir, "raster.csv"), artifacts.InputTrain, artifacts.OutputTrain); err != nil {
			return "", err
		}
	}
	return runDir, nil
}

// ReadRun loads the run record back from an artifacts directory.
func ReadRun(baseDir, runID string) (model.TrainRun, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runID, "run.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return model.TrainRun{}, false, nil
		}
		return model.TrainRun{}, false, err
	}
	var run model.TrainRun
	if err := json.Unmarshal(data, &run); err != nil {
		return model.TrainRun{}, false, err
	}
	return run, true, nil
}

func writeRateSeries(path string, rates []float64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"epoch", "mean_rate"}); err != nil {
		return err
	}
	for i, rate := range rates {
		if err := writer.Write([]string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(rate, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeWeights(path string, weights [][]float64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"output_unit", "input_unit", "weight"}); err != nil {
		return err
	}
	for k, row := range weights {
		for j, weight := range row {
			if err := writer.Write([]string{
				strconv.Itoa(k),
				strconv.Itoa(j),
				strconv.FormatFloat(weight, 'f', -1, 64),
			}); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

// writeRaster emits one row per spike: step, unit and whether the spike
// belongs to the input or the output train.
func writeRaster(path string, input, output *tensor.Matrix) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"train", "step", "unit"}); err != nil {
		return err
	}
	trains := []struct {
		name  string
		train *tensor.Matrix
	}{{"input", input}, {"output", output}}
	for _, entry := range trains {
		name, train := entry.name, entry.train
		if train == nil {
			continue
		}
		for t := 0; t < train.Rows(); t++ {
			row := train.Row(t)
			for unit, v := range row {
				if v <= 0 {
					continue
				}
				if err := writer.Write([]string{
					name,
					strconv.Itoa(t),
					strconv.Itoa(unit),
				}); err != nil {
					return err
				}
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeJSON(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
