package nn

import (
	"fmt"
	"math"
	"math/rand"

	"breithorn/internal/model"
	"breithorn/internal/tensor"
)

// SRM0Layer is a fully connected spiking layer with SRM0 response dynamics.
// Each input unit carries a synaptic response trace
//
//	s_j(t) = s_j(t-1)/tau_m + o_j(t)
//
// the membrane potential is u_k(t) = u_rest + (W s)_k * r_k(t) with the
// refractory gate r_k(t) = 1 - o_k(t-1), and a unit fires when u crosses
// u_threshold. The layer owns the weight matrix the plasticity kernel
// updates between presentations.
type SRM0Layer struct {
	inputSize  int
	outputSize int
	cfg        model.SomaConfig

	weights *tensor.Matrix
	s       []float64
	r       []float64
}

// NewSRM0Layer builds a layer with weights drawn uniformly from
// [-1/sqrt(inputSize), 1/sqrt(inputSize)].
func NewSRM0Layer(inputSize, outputSize int, cfg model.SomaConfig, rng *rand.Rand) (*SRM0Layer, error) {
	if inputSize <= 0 || outputSize <= 0 {
		return nil, fmt.Errorf("layer dimensions must be positive: %dx%d", outputSize, inputSize)
	}
	if rng == nil {
		return nil, fmt.Errorf("rng is required")
	}
	weights, err := tensor.New(outputSize, inputSize)
	if err != nil {
		return nil, err
	}
	bound := 1.0 / math.Sqrt(float64(inputSize))
	data := weights.Data()
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * bound
	}
	return newSRM0(inputSize, outputSize, cfg, weights), nil
}

// NewSRM0LayerFromSnapshot restores a layer from a persisted snapshot.
func NewSRM0LayerFromSnapshot(snap model.LayerSnapshot) (*SRM0Layer, error) {
	weights, err := tensor.FromRows(snap.Weights)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", snap.ID, err)
	}
	if weights.Rows() != snap.OutputSize || weights.Cols() != snap.InputSize {
		return nil, fmt.Errorf("snapshot %s: weights are %dx%d, want %dx%d",
			snap.ID, weights.Rows(), weights.Cols(), snap.OutputSize, snap.InputSize)
	}
	return newSRM0(snap.InputSize, snap.OutputSize, snap.Soma, weights), nil
}

func newSRM0(inputSize, outputSize int, cfg model.SomaConfig, weights *tensor.Matrix) *SRM0Layer {
	layer := &SRM0Layer{
		inputSize:  inputSize,
		outputSize: outputSize,
		cfg:        normalizeSomaConfig(cfg),
		weights:    weights,
		s:          make([]float64, inputSize),
		r:          make([]float64, outputSize),
	}
	layer.Reset()
	return layer
}

func (l *SRM0Layer) InputSize() int { return l.inputSize }

func (l *SRM0Layer) OutputSize() int { return l.outputSize }

// Weights exposes the live weight matrix; plasticity updates write through
// it.
func (l *SRM0Layer) Weights() *tensor.Matrix { return l.weights }

// Reset clears the response traces and refractory gates between
// presentations.
func (l *SRM0Layer) Reset() {
	for j := range l.s {
		l.s[j] = 0
	}
	for k := range l.r {
		l.r[k] = 0
	}
}

// Step advances the layer one time step on an input spike vector and returns
// the output spike vector.
func (l *SRM0Layer) Step(input []float64) ([]float64, error) {
	if len(input) != l.inputSize {
		return nil, fmt.Errorf("input length %d does not match layer input size %d", len(input), l.inputSize)
	}

	for j := range l.s {
		l.s[j] = l.s[j]/l.cfg.TauM + input[j]
	}

	output := make([]float64, l.outputSize)
	for k := 0; k < l.outputSize; k++ {
		row := l.weights.Row(k)
		x := 0.0
		for j, w := range row {
			x += w * l.s[j]
		}
		u := l.cfg.URest + x*l.r[k]
		o := Heaviside(u - l.cfg.UThreshold)
		output[k] = o
		l.r[k] = 1 - o
	}
	return output, nil
}

// Forward runs a whole [timeSteps x inputSize] spike train through the layer
// and returns the [timeSteps x outputSize] output train. State is reset
// before the presentation so trains are independent.
func (l *SRM0Layer) Forward(input *tensor.Matrix) (*tensor.Matrix, error) {
	if input == nil {
		return nil, fmt.Errorf("input spike train is required")
	}
	if input.Cols() != l.inputSize {
		return nil, fmt.Errorf("input train has %d units, layer expects %d", input.Cols(), l.inputSize)
	}
	l.Reset()

	output, err := tensor.New(input.Rows(), l.outputSize)
	if err != nil {
		return nil, err
	}
	for t := 0; t < input.Rows(); t++ {
		spikes, err := l.Step(input.Row(t))
		if err != nil {
			return nil, err
		}
		copy(output.Row(t), spikes)
	}
	return output, nil
}

// Snapshot captures the layer for persistence.
func (l *SRM0Layer) Snapshot(id string) model.LayerSnapshot {
	return model.LayerSnapshot{
		ID:         id,
		InputSize:  l.inputSize,
		OutputSize: l.outputSize,
		Soma:       l.cfg,
		Weights:    l.weights.ToRows(),
	}
}
