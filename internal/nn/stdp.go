package nn

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"
	"sync"

	"breithorn/internal/model"
	"breithorn/internal/tensor"
)

var (
	// ErrShapeMismatch reports buffers whose shapes disagree with the
	// declared layer dimensions.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrInvalidParameter reports unusable plasticity parameters, such as a
	// non-positive decay time constant.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrNonFiniteInput reports NaN or Inf samples in any input buffer.
	ErrNonFiniteInput = errors.New("non-finite input")
)

// spikeEvent is one thresholded sample of a spike train: the step index it
// occurred at and its contribution magnitude (1 under the binary policy, the
// raw sample value under the graded policy).
type spikeEvent struct {
	step int
	mag  float64
}

// NormalizeSpikePolicy maps user-facing policy spellings onto the canonical
// constants, defaulting to binary.
func NormalizeSpikePolicy(policy model.SpikePolicy) model.SpikePolicy {
	switch model.SpikePolicy(strings.ToLower(strings.TrimSpace(string(policy)))) {
	case "", model.SpikeBinary:
		return model.SpikeBinary
	case model.SpikeGraded:
		return model.SpikeGraded
	default:
		return model.SpikePolicy(strings.ToLower(strings.TrimSpace(string(policy))))
	}
}

// ApplySTDP applies one spike-timing-dependent plasticity update to weights,
// in place. weights is [outputSize x inputSize], inputSpikes is
// [timeSteps x inputSize] and outputSpikes is [timeSteps x outputSize]; the
// three shapes must agree.
//
// For every synapse (input j, output k), each causal spike pair
// t_pre < t_post contributes APos*exp(-(t_post-t_pre)/TauPos) and each
// anti-causal pair t_pre > t_post contributes ANeg*exp(-(t_pre-t_post)/TauNeg)
// to the weight. Simultaneous spikes contribute to neither case.
//
// All preconditions are checked before the first write, so on error the
// weight matrix is untouched. The engine keeps no state between calls;
// concurrent calls against the same weight matrix must be serialized by the
// caller.
func ApplySTDP(weights, inputSpikes, outputSpikes *tensor.Matrix, cfg model.STDPConfig) error {
	if weights == nil || inputSpikes == nil || outputSpikes == nil {
		return fmt.Errorf("%w: all matrices are required", ErrShapeMismatch)
	}
	if err := validateSTDP(weights, inputSpikes, outputSpikes, cfg); err != nil {
		return err
	}

	policy := NormalizeSpikePolicy(cfg.Policy)
	preEvents := collectEvents(inputSpikes, policy)
	postEvents := collectEvents(outputSpikes, policy)

	outputSize := weights.Rows()
	inputSize := weights.Cols()

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > outputSize {
		workers = outputSize
	}

	// Each worker owns a disjoint band of output rows, so weight writes
	// need no locking.
	chunk := (outputSize + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < outputSize; start += chunk {
		end := start + chunk
		if end > outputSize {
			end = outputSize
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for k := start; k < end; k++ {
				row := weights.Row(k)
				post := postEvents[k]
				for j := 0; j < inputSize; j++ {
					pre := preEvents[j]
					delta := pairContribution(pre, post, cfg.APos, cfg.TauPos) +
						pairContribution(post, pre, cfg.ANeg, cfg.TauNeg)
					row[j] += delta
				}
			}
		}(start, end)
	}
	wg.Wait()
	return nil
}

// ApplySTDPBuffers is the raw-buffer entry point matching the shape contract
// of the layer binding: weights is row-major [outputSize x inputSize],
// inputSpikes is [timeSteps x inputSize], outputSpikes is
// [timeSteps x outputSize]. weights is mutated in place.
func ApplySTDPBuffers(weights, inputSpikes, outputSpikes []float64, timeSteps, inputSize, outputSize int, cfg model.STDPConfig) error {
	if timeSteps <= 0 || inputSize <= 0 || outputSize <= 0 {
		return fmt.Errorf("%w: dimensions must be positive, got time_steps=%d input=%d output=%d",
			ErrShapeMismatch, timeSteps, inputSize, outputSize)
	}
	w, err := tensor.FromSlice(outputSize, inputSize, weights)
	if err != nil {
		return fmt.Errorf("%w: weights: %v", ErrShapeMismatch, err)
	}
	in, err := tensor.FromSlice(timeSteps, inputSize, inputSpikes)
	if err != nil {
		return fmt.Errorf("%w: input spike train: %v", ErrShapeMismatch, err)
	}
	out, err := tensor.FromSlice(timeSteps, outputSize, outputSpikes)
	if err != nil {
		return fmt.Errorf("%w: output spike train: %v", ErrShapeMismatch, err)
	}
	return ApplySTDP(w, in, out, cfg)
}

func validateSTDP(weights, inputSpikes, outputSpikes *tensor.Matrix, cfg model.STDPConfig) error {
	if inputSpikes.Rows() != outputSpikes.Rows() {
		return fmt.Errorf("%w: input train has %d steps, output train has %d",
			ErrShapeMismatch, inputSpikes.Rows(), outputSpikes.Rows())
	}
	if weights.Rows() != outputSpikes.Cols() || weights.Cols() != inputSpikes.Cols() {
		return fmt.Errorf("%w: weights are %dx%d, spike trains imply %dx%d",
			ErrShapeMismatch, weights.Rows(), weights.Cols(), outputSpikes.Cols(), inputSpikes.Cols())
	}
	if cfg.TauPos <= 0 || math.IsNaN(cfg.TauPos) {
		return fmt.Errorf("%w: tau_pos must be positive, got %v", ErrInvalidParameter, cfg.TauPos)
	}
	if cfg.TauNeg <= 0 || math.IsNaN(cfg.TauNeg) {
		return fmt.Errorf("%w: tau_neg must be positive, got %v", ErrInvalidParameter, cfg.TauNeg)
	}
	if !isFinite(cfg.APos) || !isFinite(cfg.ANeg) {
		return fmt.Errorf("%w: amplitudes must be finite, got a_pos=%v a_neg=%v",
			ErrInvalidParameter, cfg.APos, cfg.ANeg)
	}
	switch NormalizeSpikePolicy(cfg.Policy) {
	case model.SpikeBinary, model.SpikeGraded:
	default:
		return fmt.Errorf("%w: unsupported spike policy: %s", ErrInvalidParameter, cfg.Policy)
	}
	buffers := []struct {
		name string
		m    *tensor.Matrix
	}{
		{"weights", weights},
		{"input spike train", inputSpikes},
		{"output spike train", outputSpikes},
	}
	for _, b := range buffers {
		name, m := b.name, b.m
		for _, v := range m.Data() {
			if !isFinite(v) {
				return fmt.Errorf("%w: %s contains %v", ErrNonFiniteInput, name, v)
			}
		}
	}
	return nil
}

// collectEvents gathers, per unit (column), the ordered spike times of a
// [timeSteps x units] train. A sample spikes iff it is strictly greater than
// zero; under the graded policy the sample value becomes the event magnitude.
func collectEvents(train *tensor.Matrix, policy model.SpikePolicy) [][]spikeEvent {
	units := train.Cols()
	events := make([][]spikeEvent, units)
	for t := 0; t < train.Rows(); t++ {
		row := train.Row(t)
		for j, v := range row {
			if v <= 0 {
				continue
			}
			mag := 1.0
			if policy == model.SpikeGraded {
				mag = v
			}
			events[j] = append(events[j], spikeEvent{step: t, mag: mag})
		}
	}
	return events
}

// pairContribution sums amplitude * m_a * m_b * exp(-(t_b-t_a)/tau) over all
// event pairs with a strictly before b. Instead of enumerating the P*Q pairs
// it walks both ordered lists once, folding earlier events into a running
// trace that is decayed by the elapsed gap before each use, so the cost per
// synapse is O(P+Q).
func pairContribution(before, after []spikeEvent, amplitude, tau float64) float64 {
	if amplitude == 0 || len(before) == 0 || len(after) == 0 {
		return 0
	}
	trace := 0.0
	last := 0
	i := 0
	total := 0.0
	for _, b := range after {
		for i < len(before) && before[i].step < b.step {
			trace = trace*math.Exp(-float64(before[i].step-last)/tau) + before[i].mag
			last = before[i].step
			i++
		}
		if trace != 0 {
			total += b.mag * trace * math.Exp(-float64(b.step-last)/tau)
		}
	}
	return amplitude * total
}

// applySTDPAllPairs is the direct O(P*Q) per-synapse enumeration of the same
// rule. It exists as the reference the event-trace formulation is verified
// against and shares validation with ApplySTDP.
func applySTDPAllPairs(weights, inputSpikes, outputSpikes *tensor.Matrix, cfg model.STDPConfig) error {
	if weights == nil || inputSpikes == nil || outputSpikes == nil {
		return fmt.Errorf("%w: all matrices are required", ErrShapeMismatch)
	}
	if err := validateSTDP(weights, inputSpikes, outputSpikes, cfg); err != nil {
		return err
	}

	policy := NormalizeSpikePolicy(cfg.Policy)
	preEvents := collectEvents(inputSpikes, policy)
	postEvents := collectEvents(outputSpikes, policy)

	for k := 0; k < weights.Rows(); k++ {
		row := weights.Row(k)
		for j := 0; j < weights.Cols(); j++ {
			delta := 0.0
			for _, pre := range preEvents[j] {
				for _, post := range postEvents[k] {
					switch {
					case pre.step < post.step:
						delta += cfg.APos * pre.mag * post.mag *
							math.Exp(-float64(post.step-pre.step)/cfg.TauPos)
					case pre.step > post.step:
						delta += cfg.ANeg * pre.mag * post.mag *
							math.Exp(-float64(pre.step-post.step)/cfg.TauNeg)
					}
				}
			}
			row[j] += delta
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
