package nn

import (
	"fmt"
	"strings"

	"breithorn/internal/model"
)

const (
	SomaIF  = "if"
	SomaLIF = "lif"
	SomaQIF = "qif"
	SomaEIF = "eif"
)

const (
	defaultTauM       = 2.0
	defaultUThreshold = 1.0

	// Secondary constants of the QIF and EIF response functions.
	qifUC     = 0.8
	qifA0     = 1.0
	eifUT     = 8.0
	eifDeltaT = 1.0
)

// Soma steps a vector of membrane potentials through a
// response-firing-reset cycle: integrate the input potential, fire where the
// membrane crosses threshold, reset fired units back to rest.
type Soma struct {
	kind string
	cfg  model.SomaConfig
	u    []float64
}

// NewSoma builds a soma of the given kind ("if", "lif", "qif" or "eif") over
// size units. Zero-valued TauM and UThreshold fall back to 2 and 1.
func NewSoma(kind string, size int, cfg model.SomaConfig) (*Soma, error) {
	if size <= 0 {
		return nil, fmt.Errorf("soma size must be positive, got %d", size)
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	switch kind {
	case SomaIF, SomaLIF, SomaQIF, SomaEIF:
	default:
		return nil, fmt.Errorf("unsupported soma kind: %s", kind)
	}
	cfg = normalizeSomaConfig(cfg)
	s := &Soma{kind: kind, cfg: cfg, u: make([]float64, size)}
	s.Reset()
	return s, nil
}

func normalizeSomaConfig(cfg model.SomaConfig) model.SomaConfig {
	if cfg.TauM == 0 {
		cfg.TauM = defaultTauM
	}
	if cfg.UThreshold == 0 {
		cfg.UThreshold = defaultUThreshold
	}
	return cfg
}

func (s *Soma) Kind() string { return s.kind }

func (s *Soma) Size() int { return len(s.u) }

// Reset returns every unit to the resting potential.
func (s *Soma) Reset() {
	for i := range s.u {
		s.u[i] = s.cfg.URest
	}
}

// Potentials exposes the current membrane potentials, one per unit.
func (s *Soma) Potentials() []float64 {
	out := make([]float64, len(s.u))
	copy(out, s.u)
	return out
}

// Step integrates one time step of input potentials and returns the spike
// vector (0 or 1 per unit). Fired units are reset to the resting potential.
func (s *Soma) Step(x []float64) ([]float64, error) {
	if len(x) != len(s.u) {
		return nil, fmt.Errorf("input length %d does not match soma size %d", len(x), len(s.u))
	}
	spikes := make([]float64, len(s.u))
	for i := range s.u {
		u := s.respond(s.u[i], x[i])
		o := Heaviside(u - s.cfg.UThreshold)
		spikes[i] = o
		s.u[i] = u*(1-o) + s.cfg.URest*o
	}
	return spikes, nil
}

// respond computes the membrane potential after one step of input x, from
// the previous potential h.
func (s *Soma) respond(h, x float64) float64 {
	switch s.kind {
	case SomaIF:
		return h + x
	case SomaLIF:
		// tau * du/dt = -(u - u_rest) + x
		return h + (1.0/s.cfg.TauM)*(-(h-s.cfg.URest)+x)
	case SomaQIF:
		// tau * du/dt = a0 * (u - u_rest) * (u - u_c) + x
		return h + (1.0/s.cfg.TauM)*(-qifA0*(h-s.cfg.URest)*(h-qifUC)+x)
	case SomaEIF:
		// tau * du/dt = -(u - u_rest) + delta_t * exp((u - u_t)/delta_t) + x
		return h + (1.0/s.cfg.TauM)*(-(h-s.cfg.URest)+eifDeltaT*expClamped((h-eifUT)/eifDeltaT)+x)
	default:
		return h + x
	}
}
