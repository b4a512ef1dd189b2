package stats

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"breithorn/internal/model"
	"breithorn/internal/tensor"
)

func testArtifacts(t *testing.T) RunArtifacts {
	t.Helper()
	input, err := tensor.New(4, 2)
	if err != nil {
		t.Fatalf("new input train: %v", err)
	}
	input.Set(1, 0, 1)
	input.Set(3, 1, 1)
	output, err := tensor.New(4, 1)
	if err != nil {
		t.Fatalf("new output train: %v", err)
	}
	output.Set(2, 0, 1)

	return RunArtifacts{
		Run: model.TrainRun{
			ID:           "run-a",
			CreatedAtUTC: "2026-08-27T10:00:00Z",
			LayerID:      "run-a-layer",
			Encoder:      "poisson",
			TimeSteps:    4,
			InputSize:    2,
			OutputSize:   1,
			FinalRate:    0.25,
		},
		RateByEpoch: []float64{0.125, 0.25},
		Weights:     [][]float64{{0.1, -0.2}},
		InputTrain:  input,
		OutputTrain: output,
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return records
}

func TestWriteRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	runDir, err := WriteRunArtifacts(baseDir, testArtifacts(t))
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	if runDir != filepath.Join(baseDir, "run-a") {
		t.Fatalf("unexpected run dir: %s", runDir)
	}

	rates := readCSV(t, filepath.Join(runDir, "rates.csv"))
	want := [][]string{{"epoch", "mean_rate"}, {"1", "0.125"}, {"2", "0.25"}}
	if len(rates) != len(want) {
		t.Fatalf("rates.csv has %d records, want %d", len(rates), len(want))
	}
	for i := range want {
		for j := range want[i] {
			if rates[i][j] != want[i][j] {
				t.Fatalf("rates.csv[%d][%d]: got %q want %q", i, j, rates[i][j], want[i][j])
			}
		}
	}

	weights := readCSV(t, filepath.Join(runDir, "weights.csv"))
	// header plus one record per synapse
	if len(weights) != 3 {
		t.Fatalf("weights.csv has %d records, want 3", len(weights))
	}
	if weights[2][0] != "0" || weights[2][1] != "1" || weights[2][2] != "-0.2" {
		t.Fatalf("unexpected weights record: %v", weights[2])
	}

	raster := readCSV(t, filepath.Join(runDir, "raster.csv"))
	// header + 2 input spikes + 1 output spike, input block first
	if len(raster) != 4 {
		t.Fatalf("raster.csv has %d records, want 4", len(raster))
	}
	if raster[1][0] != "input" || raster[1][1] != "1" || raster[1][2] != "0" {
		t.Fatalf("unexpected first raster record: %v", raster[1])
	}
	if raster[3][0] != "output" || raster[3][1] != "2" || raster[3][2] != "0" {
		t.Fatalf("unexpected output raster record: %v", raster[3])
	}
}

func TestWriteRunArtifactsWithoutRasters(t *testing.T) {
	baseDir := t.TempDir()
	artifacts := testArtifacts(t)
	artifacts.InputTrain = nil
	artifacts.OutputTrain = nil

	runDir, err := WriteRunArtifacts(baseDir, artifacts)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	if _, err := os.Stat(filepath.Join(runDir, "raster.csv")); !os.IsNotExist(err) {
		t.Fatal("raster.csv must not be written without spike trains")
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	artifacts := testArtifacts(t)
	artifacts.Run.ID = "  "
	if _, err := WriteRunArtifacts(t.TempDir(), artifacts); err == nil {
		t.Fatal("expected error for blank run id")
	}
}

func TestReadRun(t *testing.T) {
	baseDir := t.TempDir()
	if _, err := WriteRunArtifacts(baseDir, testArtifacts(t)); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	run, ok, err := ReadRun(baseDir, "run-a")
	if err != nil || !ok {
		t.Fatalf("read run: ok=%v err=%v", ok, err)
	}
	if run.Encoder != "poisson" || run.FinalRate != 0.25 {
		t.Fatalf("round trip diverged: %+v", run)
	}

	if _, ok, err := ReadRun(baseDir, "missing"); err != nil || ok {
		t.Fatalf("missing run: ok=%v err=%v", ok, err)
	}
}
