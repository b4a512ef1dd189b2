package storage

import (
	"context"

	"breithorn/internal/model"
)

// Store defines persistence operations for trained layers and training runs.
type Store interface {
	Init(ctx context.Context) error
	SaveLayer(ctx context.Context, layer model.LayerSnapshot) error
	GetLayer(ctx context.Context, id string) (model.LayerSnapshot, bool, error)
	SaveRun(ctx context.Context, run model.TrainRun) error
	GetRun(ctx context.Context, id string) (model.TrainRun, bool, error)
	ListRuns(ctx context.Context) ([]model.TrainRun, error)
	SaveRateHistory(ctx context.Context, runID string, history []float64) error
	GetRateHistory(ctx context.Context, runID string) ([]float64, bool, error)
}
