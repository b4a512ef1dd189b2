package storage

import (
	"context"
	"sort"
	"sync"

	"breithorn/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	layers      map[string]model.LayerSnapshot
	runs        map[string]model.TrainRun
	rates       map[string][]float64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.layers = make(map[string]model.LayerSnapshot)
	s.runs = make(map[string]model.TrainRun)
	s.rates = make(map[string][]float64)
	return nil
}

func (s *MemoryStore) SaveLayer(_ context.Context, layer model.LayerSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.layers[layer.ID] = copyLayer(layer)
	return nil
}

func (s *MemoryStore) GetLayer(_ context.Context, id string) (model.LayerSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	layer, ok := s.layers[id]
	if !ok {
		return model.LayerSnapshot{}, false, nil
	}
	return copyLayer(layer), true, nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.TrainRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.TrainRun, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.TrainRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.TrainRun, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAtUTC != runs[j].CreatedAtUTC {
			return runs[i].CreatedAtUTC < runs[j].CreatedAtUTC
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}

func (s *MemoryStore) SaveRateHistory(_ context.Context, runID string, history []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rates[runID] = append([]float64(nil), history...)
	return nil
}

func (s *MemoryStore) GetRateHistory(_ context.Context, runID string) ([]float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.rates[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]float64(nil), history...), true, nil
}

func copyLayer(layer model.LayerSnapshot) model.LayerSnapshot {
	weights := make([][]float64, len(layer.Weights))
	for i, row := range layer.Weights {
		weights[i] = append([]float64(nil), row...)
	}
	layer.Weights = weights
	return layer
}
