package storage

import (
	"context"
	"testing"

	"breithorn/internal/model"
)

func testLayer(id string) model.LayerSnapshot {
	return model.LayerSnapshot{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ID:              id,
		InputSize:       2,
		OutputSize:      1,
		Soma:            model.SomaConfig{TauM: 2, UThreshold: 1},
		Weights:         [][]float64{{0.1, -0.2}},
	}
}

func testRun(id, createdAt string) model.TrainRun {
	return model.TrainRun{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ID:              id,
		CreatedAtUTC:    createdAt,
		LayerID:         id + "-layer",
		Encoder:         "poisson",
		TimeSteps:       16,
		InputSize:       2,
		OutputSize:      1,
		Samples:         4,
		Epochs:          2,
		STDP:            model.STDPConfig{APos: 0.1, TauPos: 5, ANeg: -0.1, TauNeg: 5},
		FinalRate:       0.25,
	}
}

func TestMemoryStoreLayerRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	if _, ok, err := store.GetLayer(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing layer: ok=%v err=%v", ok, err)
	}

	layer := testLayer("layer-a")
	if err := store.SaveLayer(ctx, layer); err != nil {
		t.Fatalf("save layer: %v", err)
	}

	// The store must hold its own copy.
	layer.Weights[0][0] = 99

	got, ok, err := store.GetLayer(ctx, "layer-a")
	if err != nil || !ok {
		t.Fatalf("get layer: ok=%v err=%v", ok, err)
	}
	if got.Weights[0][0] != 0.1 {
		t.Fatalf("store leaked caller's buffer: %v", got.Weights[0][0])
	}

	// Mutating the returned copy must not touch the stored record either.
	got.Weights[0][1] = 77
	again, _, _ := store.GetLayer(ctx, "layer-a")
	if again.Weights[0][1] != -0.2 {
		t.Fatalf("store leaked returned buffer: %v", again.Weights[0][1])
	}
}

func TestMemoryStoreListRunsOrdered(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	if err := store.SaveRun(ctx, testRun("run-b", "2026-08-27T10:00:00Z")); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := store.SaveRun(ctx, testRun("run-a", "2026-08-27T10:00:00Z")); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := store.SaveRun(ctx, testRun("run-c", "2026-08-27T09:00:00Z")); err != nil {
		t.Fatalf("save run: %v", err)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	want := []string{"run-c", "run-a", "run-b"}
	if len(runs) != len(want) {
		t.Fatalf("got %d runs, want %d", len(runs), len(want))
	}
	for i, id := range want {
		if runs[i].ID != id {
			t.Fatalf("position %d: got %s want %s", i, runs[i].ID, id)
		}
	}

	run, ok, err := store.GetRun(ctx, "run-a")
	if err != nil || !ok || run.Encoder != "poisson" {
		t.Fatalf("get run: %+v ok=%v err=%v", run, ok, err)
	}
}

func TestMemoryStoreRateHistoryCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	if _, ok, err := store.GetRateHistory(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing history: ok=%v err=%v", ok, err)
	}

	history := []float64{0.1, 0.2}
	if err := store.SaveRateHistory(ctx, "run-a", history); err != nil {
		t.Fatalf("save history: %v", err)
	}
	history[0] = 9

	got, ok, err := store.GetRateHistory(ctx, "run-a")
	if err != nil || !ok {
		t.Fatalf("get history: ok=%v err=%v", ok, err)
	}
	if got[0] != 0.1 || got[1] != 0.2 {
		t.Fatalf("history not copied on save: %v", got)
	}
}
