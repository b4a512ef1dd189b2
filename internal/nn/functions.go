package nn

import (
	"fmt"
	"math"

	"breithorn/internal/tensor"
)

// Heaviside is the firing step function: 1 for non-negative arguments.
func Heaviside(value float64) float64 {
	if value >= 0 {
		return 1
	}
	return 0
}

// Sat clamps value to [min, max].
func Sat(value, max, min float64) float64 {
	if value > max {
		return max
	}
	if value < min {
		return min
	}
	return value
}

// Avg returns the arithmetic mean of values.
func Avg(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("values must not be empty")
	}
	sum := 0.0
	for _, value := range values {
		sum += value
	}
	return sum / float64(len(values)), nil
}

// Std returns population standard deviation.
func Std(values []float64) (float64, error) {
	mean, err := Avg(values)
	if err != nil {
		return 0, err
	}
	sum := 0.0
	for _, value := range values {
		diff := mean - value
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(values))), nil
}

// expClamped is exp with the argument clamped to [-30, 30] so a runaway
// membrane potential cannot overflow the exponential response term.
func expClamped(value float64) float64 {
	if value > 30 {
		value = 30
	} else if value < -30 {
		value = -30
	}
	return math.Exp(value)
}

// MeanRate returns the fraction of samples in a [timeSteps x units] spike
// train that are spikes (strictly positive).
func MeanRate(train *tensor.Matrix) float64 {
	data := train.Data()
	if len(data) == 0 {
		return 0
	}
	spikes := 0
	for _, v := range data {
		if v > 0 {
			spikes++
		}
	}
	return float64(spikes) / float64(len(data))
}
