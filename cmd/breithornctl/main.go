package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"breithorn/internal/storage"
	api "breithorn/pkg/breithorn"
)

const artifactsDir = "artifacts"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "train":
		return runTrain(ctx, args[1:])
	case "simulate":
		return runSimulate(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "rates":
		return runRates(ctx, args[1:])
	case "weights":
		return runWeights(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "breithorn.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := api.New(api.Options{StoreKind: *storeKind, DBPath: *dbPath, ArtifactsDir: artifactsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runTrain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional JSON config file")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "breithorn.db", "sqlite database path")
	outDir := fs.String("artifacts-dir", artifactsDir, "artifacts output directory")

	runID := fs.String("run-id", "", "run identifier")
	layerID := fs.String("layer-id", "", "layer identifier")
	encoderKind := fs.String("encoder", "", "spike encoder: poisson|temporal")
	timeSteps := fs.Int("time-steps", 0, "time steps per presentation")
	inputSize := fs.Int("input", 0, "input units")
	outputSize := fs.Int("output", 0, "output units")
	samples := fs.Int("samples", 0, "sample vectors per epoch")
	epochs := fs.Int("epochs", 0, "training epochs")
	seed := fs.Int64("seed", 0, "rng seed (0 = time based)")
	workers := fs.Int("workers", 0, "plasticity workers (0 = num cpu)")

	aPos := fs.Float64("a-pos", 0, "potentiation amplitude")
	tauPos := fs.Float64("tau-pos", 0, "potentiation time constant")
	aNeg := fs.Float64("a-neg", 0, "depression amplitude")
	tauNeg := fs.Float64("tau-neg", 0, "depression time constant")
	policy := fs.String("policy", "", "spike policy: binary|graded")

	tauM := fs.Float64("tau-m", 0, "membrane time constant")
	uThreshold := fs.Float64("u-threshold", 0, "firing threshold")
	uRest := fs.Float64("u-rest", 0, "resting potential")

	if err := fs.Parse(args); err != nil {
		return err
	}

	req, err := loadOrDefaultTrainRequest(*configPath)
	if err != nil {
		return err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	overrideTrainFlags(&req, set, map[string]any{
		"run-id":      *runID,
		"layer-id":    *layerID,
		"encoder":     *encoderKind,
		"time-steps":  *timeSteps,
		"input":       *inputSize,
		"output":      *outputSize,
		"samples":     *samples,
		"epochs":      *epochs,
		"seed":        *seed,
		"workers":     *workers,
		"a-pos":       *aPos,
		"tau-pos":     *tauPos,
		"a-neg":       *aNeg,
		"tau-neg":     *tauNeg,
		"policy":      *policy,
		"tau-m":       *tauM,
		"u-threshold": *uThreshold,
		"u-rest":      *uRest,
	})

	client, err := api.New(api.Options{StoreKind: *storeKind, DBPath: *dbPath, ArtifactsDir: *outDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	summary, err := client.Train(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("run=%s layer=%s artifacts=%s\n", summary.RunID, summary.LayerID, summary.ArtifactsDir)
	for i, rate := range summary.RateByEpoch {
		fmt.Printf("epoch %d: mean output rate %.4f\n", i+1, rate)
	}
	return nil
}

func runSimulate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	somaKind := fs.String("soma", "lif", "soma model: if|lif|qif|eif")
	encoderKind := fs.String("encoder", "", "spike encoder: poisson|temporal")
	timeSteps := fs.Int("time-steps", 0, "time steps")
	units := fs.Int("units", 0, "soma units")
	seed := fs.Int64("seed", 0, "rng seed (0 = time based)")
	tauM := fs.Float64("tau-m", 0, "membrane time constant")
	uThreshold := fs.Float64("u-threshold", 0, "firing threshold")
	uRest := fs.Float64("u-rest", 0, "resting potential")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client := api.NewWithStore(storage.NewMemoryStore(), artifactsDir)
	summary, err := client.Simulate(ctx, api.SimRequest{
		Soma:       *somaKind,
		Encoder:    *encoderKind,
		TimeSteps:  *timeSteps,
		Units:      *units,
		Seed:       *seed,
		TauM:       *tauM,
		UThreshold: *uThreshold,
		URest:      *uRest,
	})
	if err != nil {
		return err
	}

	fmt.Printf("soma=%s encoder=%s mean rate %.4f (std %.4f)\n",
		summary.Soma, summary.Encoder, summary.MeanRate, summary.RateStd)
	for i, rate := range summary.RatePerUnit {
		fmt.Printf("unit %d: %.4f\n", i, rate)
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "breithorn.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := api.New(api.Options{StoreKind: *storeKind, DBPath: *dbPath, ArtifactsDir: artifactsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	runs, err := client.Runs(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}
	for _, run := range runs {
		fmt.Printf("%s\t%s\tencoder=%s\t%dx%d\tsteps=%d\tfinal rate %.4f\n",
			run.ID, run.CreatedAtUTC, run.Encoder, run.OutputSize, run.InputSize, run.TimeSteps, run.FinalRate)
	}
	return nil
}

func runRates(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rates", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "breithorn.db", "sqlite database path")
	runID := fs.String("run-id", "", "run identifier")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return usageError("rates requires -run-id")
	}

	client, err := api.New(api.Options{StoreKind: *storeKind, DBPath: *dbPath, ArtifactsDir: artifactsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	rates, ok, err := client.RateHistory(ctx, *runID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("run not found: %s", *runID)
	}
	for i, rate := range rates {
		fmt.Printf("epoch %d: %.6f\n", i+1, rate)
	}
	return nil
}

func runWeights(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("weights", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "breithorn.db", "sqlite database path")
	layerID := fs.String("layer-id", "", "layer identifier")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *layerID == "" {
		return usageError("weights requires -layer-id")
	}

	client, err := api.New(api.Options{StoreKind: *storeKind, DBPath: *dbPath, ArtifactsDir: artifactsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	layer, ok, err := client.Layer(ctx, *layerID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("layer not found: %s", *layerID)
	}

	fmt.Printf("layer=%s %dx%d tau_m=%.3f u_th=%.3f u_rest=%.3f\n",
		layer.ID, layer.OutputSize, layer.InputSize, layer.Soma.TauM, layer.Soma.UThreshold, layer.Soma.URest)
	for k, row := range layer.Weights {
		cells := make([]string, len(row))
		for j, w := range row {
			cells[j] = strconv.FormatFloat(w, 'f', 6, 64)
		}
		fmt.Printf("out %d: %s\n", k, strings.Join(cells, " "))
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "breithorn.db", "sqlite database path")
	runID := fs.String("run-id", "", "run identifier")
	outDir := fs.String("out", "exports", "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return usageError("export requires -run-id")
	}

	client, err := api.New(api.Options{StoreKind: *storeKind, DBPath: *dbPath, ArtifactsDir: artifactsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	summary, err := client.Export(ctx, api.ExportRequest{RunID: *runID, OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Printf("exported run=%s to %s\n", summary.RunID, summary.Directory)
	return nil
}

func usageError(msg string) error {
	return errors.New(msg + `
usage: breithornctl <command> [flags]

commands:
  init      initialize the store
  train     run STDP training over encoded samples
  simulate  probe soma and encoder parameters without storage
  runs      list stored training runs
  rates     print per-epoch firing rates of a run
  weights   print a stored layer's weight matrix
  export    rebuild artifact files for a stored run`)
}
