package nn

import (
	"testing"

	"breithorn/internal/model"
)

func TestNewSomaValidation(t *testing.T) {
	if _, err := NewSoma(SomaLIF, 0, model.SomaConfig{}); err == nil {
		t.Fatal("expected error for non-positive size")
	}
	if _, err := NewSoma("hodgkin", 3, model.SomaConfig{}); err == nil {
		t.Fatal("expected error for unknown soma kind")
	}
	soma, err := NewSoma(" LIF ", 3, model.SomaConfig{})
	if err != nil {
		t.Fatalf("kind must be case and space insensitive: %v", err)
	}
	if soma.Kind() != SomaLIF {
		t.Fatalf("unexpected kind: %s", soma.Kind())
	}
	if soma.Size() != 3 {
		t.Fatalf("unexpected size: %d", soma.Size())
	}
}

func TestSomaStepLengthMismatch(t *testing.T) {
	soma, err := NewSoma(SomaIF, 2, model.SomaConfig{})
	if err != nil {
		t.Fatalf("new soma: %v", err)
	}
	if _, err := soma.Step([]float64{1}); err == nil {
		t.Fatal("expected error for input length mismatch")
	}
}

func TestIFSomaIntegratesAndResets(t *testing.T) {
	soma, err := NewSoma(SomaIF, 1, model.SomaConfig{UThreshold: 1})
	if err != nil {
		t.Fatalf("new soma: %v", err)
	}

	// u accumulates 0.4 per step: 0.4, 0.8, 1.2 -> fire and reset, repeat.
	want := []float64{0, 0, 1, 0, 0, 1}
	for i, expected := range want {
		spikes, err := soma.Step([]float64{0.4})
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if spikes[0] != expected {
			t.Fatalf("step %d: got spike %v want %v", i, spikes[0], expected)
		}
	}
}

func TestLIFSomaFiresOnStrongInput(t *testing.T) {
	soma, err := NewSoma(SomaLIF, 1, model.SomaConfig{TauM: 2, UThreshold: 1})
	if err != nil {
		t.Fatalf("new soma: %v", err)
	}

	// u = 0 + (1/2)*(-(0-0) + 3) = 1.5 >= 1, so the unit fires every step.
	for i := 0; i < 4; i++ {
		spikes, err := soma.Step([]float64{3})
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if spikes[0] != 1 {
			t.Fatalf("step %d: expected spike", i)
		}
		if soma.Potentials()[0] != 0 {
			t.Fatalf("step %d: fired unit must reset to rest, got %v", i, soma.Potentials()[0])
		}
	}
}

func TestQIFAndEIFSomaQuietAtRest(t *testing.T) {
	for _, kind := range []string{SomaQIF, SomaEIF} {
		soma, err := NewSoma(kind, 2, model.SomaConfig{})
		if err != nil {
			t.Fatalf("new %s soma: %v", kind, err)
		}
		for i := 0; i < 5; i++ {
			spikes, err := soma.Step([]float64{0, 0})
			if err != nil {
				t.Fatalf("%s step %d: %v", kind, i, err)
			}
			if spikes[0] != 0 || spikes[1] != 0 {
				t.Fatalf("%s must stay silent without input at step %d", kind, i)
			}
		}
	}
}

func TestSomaReset(t *testing.T) {
	soma, err := NewSoma(SomaIF, 1, model.SomaConfig{UThreshold: 10, URest: 0.5})
	if err != nil {
		t.Fatalf("new soma: %v", err)
	}
	if _, err := soma.Step([]float64{2}); err != nil {
		t.Fatalf("step: %v", err)
	}
	soma.Reset()
	if soma.Potentials()[0] != 0.5 {
		t.Fatalf("reset must restore the resting potential, got %v", soma.Potentials()[0])
	}
}
