// Package encoder converts analog value vectors into discrete spike trains.
package encoder

import (
	"fmt"
	"math/rand"
	"strings"

	"breithorn/internal/nn"
	"breithorn/internal/tensor"
)

const (
	KindPoisson  = "poisson"
	KindTemporal = "temporal"

	// defaultTemporalProb is the per-step firing probability once the
	// latency window of the temporal code has opened.
	defaultTemporalProb = 0.75
)

// Encoder turns one analog vector into a [timeSteps x len(values)] binary
// spike train.
type Encoder interface {
	Name() string
	TimeSteps() int
	Encode(values []float64) (*tensor.Matrix, error)
}

// New builds an encoder by kind name over values normalized to [min, max].
func New(kind string, timeSteps int, max, min float64, rng *rand.Rand) (Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindPoisson:
		return NewPoisson(timeSteps, max, min, rng)
	case KindTemporal:
		return NewTemporal(timeSteps, max, min, defaultTemporalProb, rng)
	default:
		return nil, fmt.Errorf("unsupported encoder kind: %s", kind)
	}
}

// Poisson is a rate code: a value near max fires on nearly every step, a
// value near min almost never.
type Poisson struct {
	timeSteps int
	max, min  float64
	rng       *rand.Rand
}

func NewPoisson(timeSteps int, max, min float64, rng *rand.Rand) (*Poisson, error) {
	if err := checkEncoderArgs(timeSteps, max, min, rng); err != nil {
		return nil, err
	}
	return &Poisson{timeSteps: timeSteps, max: max, min: min, rng: rng}, nil
}

func (e *Poisson) Name() string { return KindPoisson }

func (e *Poisson) TimeSteps() int { return e.timeSteps }

func (e *Poisson) Encode(values []float64) (*tensor.Matrix, error) {
	train, err := tensor.New(e.timeSteps, len(values))
	if err != nil {
		return nil, fmt.Errorf("encode %d values: %w", len(values), err)
	}
	for t := 0; t < e.timeSteps; t++ {
		row := train.Row(t)
		for i, v := range values {
			// Values outside [min, max] saturate instead of producing
			// probabilities outside [0, 1].
			p := nn.Sat((v-e.min)/(e.max-e.min), 1, 0)
			if e.rng.Float64() <= p {
				row[i] = 1
			}
		}
	}
	return train, nil
}

// Temporal is a latency code: no spikes before a value-dependent onset step,
// random spikes with a fixed probability after it. Larger values fire later.
type Temporal struct {
	timeSteps int
	max, min  float64
	prob      float64
	rng       *rand.Rand
}

func NewTemporal(timeSteps int, max, min, prob float64, rng *rand.Rand) (*Temporal, error) {
	if err := checkEncoderArgs(timeSteps, max, min, rng); err != nil {
		return nil, err
	}
	if prob <= 0 || prob > 1 {
		return nil, fmt.Errorf("spike probability must be in (0, 1], got %v", prob)
	}
	return &Temporal{timeSteps: timeSteps, max: max, min: min, prob: prob, rng: rng}, nil
}

func (e *Temporal) Name() string { return KindTemporal }

func (e *Temporal) TimeSteps() int { return e.timeSteps }

func (e *Temporal) Encode(values []float64) (*tensor.Matrix, error) {
	train, err := tensor.New(e.timeSteps, len(values))
	if err != nil {
		return nil, fmt.Errorf("encode %d values: %w", len(values), err)
	}
	for t := 0; t < e.timeSteps; t++ {
		row := train.Row(t)
		for i, v := range values {
			onset := nn.Sat((v-e.min)/(e.max-e.min), 1, 0) * float64(e.timeSteps)
			if float64(t) >= onset && e.rng.Float64() <= e.prob {
				row[i] = 1
			}
		}
	}
	return train, nil
}

// Binarize thresholds an analog train in place at 0.5, restoring a binary
// spike train after averaging or pooling.
func Binarize(train *tensor.Matrix) {
	data := train.Data()
	for i, v := range data {
		if v >= 0.5 {
			data[i] = 1
		} else {
			data[i] = 0
		}
	}
}

func checkEncoderArgs(timeSteps int, max, min float64, rng *rand.Rand) error {
	if timeSteps <= 0 {
		return fmt.Errorf("time steps must be positive, got %d", timeSteps)
	}
	if max <= min {
		return fmt.Errorf("max value %v must exceed min value %v", max, min)
	}
	if rng == nil {
		return fmt.Errorf("rng is required")
	}
	return nil
}
