// Package breithorn is the public facade over the STDP training engine: it
// wires encoders, the SRM0 layer and the plasticity kernel into a training
// pipeline, and persists the results through a storage backend.
package breithorn

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"breithorn/internal/encoder"
	"breithorn/internal/model"
	"breithorn/internal/nn"
	"breithorn/internal/stats"
	"breithorn/internal/storage"
	"breithorn/internal/tensor"
)

const (
	defaultArtifactsDir = "artifacts"
	defaultDBPath       = "breithorn.db"

	defaultTimeSteps  = 64
	defaultInputSize  = 16
	defaultOutputSize = 4
	defaultSamples    = 16
	defaultEpochs     = 1
	defaultAPos       = 0.1
	defaultTauPos     = 5.0
	defaultANeg       = -0.1
	defaultTauNeg     = 5.0
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
}

type Client struct {
	store        storage.Store
	artifactsDir string
}

func New(opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	return &Client{store: store, artifactsDir: artifactsDir}, nil
}

// NewWithStore builds a client over an already constructed store, mainly for
// tests and embedders that manage their own backend.
func NewWithStore(store storage.Store, artifactsDir string) *Client {
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	return &Client{store: store, artifactsDir: artifactsDir}
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// TrainRequest configures one STDP training run. Zero values fall back to
// the documented defaults.
type TrainRequest struct {
	RunID   string
	LayerID string

	Encoder    string
	TimeSteps  int
	InputSize  int
	OutputSize int
	Samples    int
	Epochs     int
	Seed       int64
	Workers    int

	APos   float64
	TauPos float64
	ANeg   float64
	TauNeg float64
	Policy string

	TauM       float64
	UThreshold float64
	URest      float64
}

type TrainSummary struct {
	RunID        string
	LayerID      string
	ArtifactsDir string
	RateByEpoch  []float64
	FinalRate    float64
}

// Train encodes random sample vectors into spike trains, presents each one
// to an SRM0 layer, applies one STDP update per presentation, and persists
// the trained layer, the run record and the per-epoch firing rates.
func (c *Client) Train(ctx context.Context, req TrainRequest) (TrainSummary, error) {
	req = normalizeTrainRequest(req)

	rng := rand.New(rand.NewSource(req.Seed))
	enc, err := encoder.New(req.Encoder, req.TimeSteps, 1, 0, rng)
	if err != nil {
		return TrainSummary{}, err
	}

	somaCfg := model.SomaConfig{TauM: req.TauM, UThreshold: req.UThreshold, URest: req.URest}
	layer, err := nn.NewSRM0Layer(req.InputSize, req.OutputSize, somaCfg, rng)
	if err != nil {
		return TrainSummary{}, err
	}

	stdpCfg := model.STDPConfig{
		APos:    req.APos,
		TauPos:  req.TauPos,
		ANeg:    req.ANeg,
		TauNeg:  req.TauNeg,
		Policy:  model.SpikePolicy(req.Policy),
		Workers: req.Workers,
	}

	samples := make([][]float64, req.Samples)
	for i := range samples {
		sample := make([]float64, req.InputSize)
		for j := range sample {
			sample[j] = rng.Float64()
		}
		samples[i] = sample
	}

	rates := make([]float64, 0, req.Epochs)
	var lastInput, lastOutput *tensor.Matrix
	for epoch := 0; epoch < req.Epochs; epoch++ {
		epochRates := make([]float64, 0, len(samples))
		for _, sample := range samples {
			if err := ctx.Err(); err != nil {
				return TrainSummary{}, err
			}
			input, err := enc.Encode(sample)
			if err != nil {
				return TrainSummary{}, fmt.Errorf("encode sample: %w", err)
			}
			output, err := layer.Forward(input)
			if err != nil {
				return TrainSummary{}, fmt.Errorf("forward pass: %w", err)
			}
			if err := nn.ApplySTDP(layer.Weights(), input, output, stdpCfg); err != nil {
				return TrainSummary{}, fmt.Errorf("apply stdp: %w", err)
			}
			epochRates = append(epochRates, nn.MeanRate(output))
			lastInput, lastOutput = input, output
		}
		mean, err := nn.Avg(epochRates)
		if err != nil {
			return TrainSummary{}, err
		}
		rates = append(rates, mean)
	}

	snapshot := layer.Snapshot(req.LayerID)
	snapshot.VersionedRecord = currentVersion()
	if err := c.store.SaveLayer(ctx, snapshot); err != nil {
		return TrainSummary{}, fmt.Errorf("save layer: %w", err)
	}

	run := model.TrainRun{
		VersionedRecord: currentVersion(),
		ID:              req.RunID,
		CreatedAtUTC:    time.Now().UTC().Format(time.RFC3339),
		LayerID:         req.LayerID,
		Encoder:         enc.Name(),
		TimeSteps:       req.TimeSteps,
		InputSize:       req.InputSize,
		OutputSize:      req.OutputSize,
		Samples:         req.Samples,
		Epochs:          req.Epochs,
		Seed:            req.Seed,
		STDP:            stdpCfg,
		FinalRate:       rates[len(rates)-1],
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return TrainSummary{}, fmt.Errorf("save run: %w", err)
	}
	if err := c.store.SaveRateHistory(ctx, run.ID, rates); err != nil {
		return TrainSummary{}, fmt.Errorf("save rate history: %w", err)
	}

	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Run:         run,
		RateByEpoch: rates,
		Weights:     snapshot.Weights,
		InputTrain:  lastInput,
		OutputTrain: lastOutput,
	})
	if err != nil {
		return TrainSummary{}, fmt.Errorf("write artifacts: %w", err)
	}

	return TrainSummary{
		RunID:        run.ID,
		LayerID:      req.LayerID,
		ArtifactsDir: runDir,
		RateByEpoch:  rates,
		FinalRate:    run.FinalRate,
	}, nil
}

// Runs lists all persisted training runs, oldest first.
func (c *Client) Runs(ctx context.Context) ([]model.TrainRun, error) {
	return c.store.ListRuns(ctx)
}

// Layer fetches a persisted layer snapshot by id.
func (c *Client) Layer(ctx context.Context, id string) (model.LayerSnapshot, bool, error) {
	return c.store.GetLayer(ctx, id)
}

// RateHistory fetches the per-epoch mean firing rates of a run.
func (c *Client) RateHistory(ctx context.Context, runID string) ([]float64, bool, error) {
	return c.store.GetRateHistory(ctx, runID)
}

type ExportRequest struct {
	RunID  string
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

// Export rebuilds the artifact files of a stored run into OutDir.
func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if strings.TrimSpace(req.RunID) == "" {
		return ExportSummary{}, fmt.Errorf("run id is required")
	}
	run, ok, err := c.store.GetRun(ctx, req.RunID)
	if err != nil {
		return ExportSummary{}, err
	}
	if !ok {
		return ExportSummary{}, fmt.Errorf("run not found: %s", req.RunID)
	}
	rates, _, err := c.store.GetRateHistory(ctx, req.RunID)
	if err != nil {
		return ExportSummary{}, err
	}
	layer, hasLayer, err := c.store.GetLayer(ctx, run.LayerID)
	if err != nil {
		return ExportSummary{}, err
	}
	var weights [][]float64
	if hasLayer {
		weights = layer.Weights
	}

	outDir := req.OutDir
	if outDir == "" {
		outDir = c.artifactsDir
	}
	runDir, err := stats.WriteRunArtifacts(outDir, stats.RunArtifacts{
		Run:         run,
		RateByEpoch: rates,
		Weights:     weights,
	})
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: run.ID, Directory: runDir}, nil
}

// SimRequest configures a storage-free soma simulation: encode one random
// sample and step it through a layer of independent somas.
type SimRequest struct {
	Soma      string
	Encoder   string
	TimeSteps int
	Units     int
	Seed      int64

	TauM       float64
	UThreshold float64
	URest      float64
}

type SimSummary struct {
	Soma        string
	Encoder     string
	MeanRate    float64
	RateStd     float64
	RatePerUnit []float64
}

// Simulate drives a soma population with an encoded spike train and reports
// firing rates. Useful for probing soma and encoder parameters before a
// training run.
func (c *Client) Simulate(_ context.Context, req SimRequest) (SimSummary, error) {
	if req.Soma == "" {
		req.Soma = nn.SomaLIF
	}
	if req.TimeSteps <= 0 {
		req.TimeSteps = defaultTimeSteps
	}
	if req.Units <= 0 {
		req.Units = defaultInputSize
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UTC().UnixNano()
	}

	rng := rand.New(rand.NewSource(req.Seed))
	enc, err := encoder.New(req.Encoder, req.TimeSteps, 1, 0, rng)
	if err != nil {
		return SimSummary{}, err
	}
	soma, err := nn.NewSoma(req.Soma, req.Units, model.SomaConfig{
		TauM:       req.TauM,
		UThreshold: req.UThreshold,
		URest:      req.URest,
	})
	if err != nil {
		return SimSummary{}, err
	}

	sample := make([]float64, req.Units)
	for i := range sample {
		sample[i] = rng.Float64()
	}
	train, err := enc.Encode(sample)
	if err != nil {
		return SimSummary{}, err
	}

	spikeCounts := make([]float64, req.Units)
	for t := 0; t < train.Rows(); t++ {
		spikes, err := soma.Step(train.Row(t))
		if err != nil {
			return SimSummary{}, err
		}
		for i, o := range spikes {
			spikeCounts[i] += o
		}
	}

	rates := make([]float64, req.Units)
	for i, count := range spikeCounts {
		rates[i] = count / float64(req.TimeSteps)
	}
	mean, err := nn.Avg(rates)
	if err != nil {
		return SimSummary{}, err
	}
	std, err := nn.Std(rates)
	if err != nil {
		return SimSummary{}, err
	}
	return SimSummary{
		Soma:        soma.Kind(),
		Encoder:     enc.Name(),
		MeanRate:    mean,
		RateStd:     std,
		RatePerUnit: rates,
	}, nil
}

func normalizeTrainRequest(req TrainRequest) TrainRequest {
	if req.Seed == 0 {
		req.Seed = time.Now().UTC().UnixNano()
	}
	if req.RunID == "" {
		req.RunID = fmt.Sprintf("run-%d", time.Now().UTC().UnixNano())
	}
	if req.LayerID == "" {
		req.LayerID = req.RunID + "-layer"
	}
	if req.TimeSteps <= 0 {
		req.TimeSteps = defaultTimeSteps
	}
	if req.InputSize <= 0 {
		req.InputSize = defaultInputSize
	}
	if req.OutputSize <= 0 {
		req.OutputSize = defaultOutputSize
	}
	if req.Samples <= 0 {
		req.Samples = defaultSamples
	}
	if req.Epochs <= 0 {
		req.Epochs = defaultEpochs
	}
	if req.APos == 0 {
		req.APos = defaultAPos
	}
	if req.TauPos == 0 {
		req.TauPos = defaultTauPos
	}
	if req.ANeg == 0 {
		req.ANeg = defaultANeg
	}
	if req.TauNeg == 0 {
		req.TauNeg = defaultTauNeg
	}
	return req
}

func currentVersion() model.VersionedRecord {
	return model.VersionedRecord{
		SchemaVersion: storage.CurrentSchemaVersion,
		CodecVersion:  storage.CurrentCodecVersion,
	}
}
