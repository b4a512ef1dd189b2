package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// SpikePolicy selects how raw spike-train samples are interpreted by the
// plasticity kernel.
type SpikePolicy string

const (
	// SpikeBinary treats any sample strictly greater than zero as a unit
	// spike. This is the default.
	SpikeBinary SpikePolicy = "binary"
	// SpikeGraded weights each pair contribution by the product of the pre
	// and post sample magnitudes.
	SpikeGraded SpikePolicy = "graded"
)

// STDPConfig holds the parameters of one plasticity update call. Taus are
// decay time constants in units of one time step and must be positive.
type STDPConfig struct {
	APos   float64     `json:"a_pos"`
	TauPos float64     `json:"tau_pos"`
	ANeg   float64     `json:"a_neg"`
	TauNeg float64     `json:"tau_neg"`
	Policy SpikePolicy `json:"policy,omitempty"`
	// Workers bounds the number of goroutines used for the weight-delta
	// accumulation. Zero or negative means one per CPU.
	Workers int `json:"workers,omitempty"`
}

// SomaConfig holds the membrane parameters shared by the soma models.
type SomaConfig struct {
	TauM       float64 `json:"tau_m"`
	UThreshold float64 `json:"u_threshold"`
	URest      float64 `json:"u_rest"`
}

// LayerSnapshot is a persisted trained layer: its shape, membrane parameters
// and full weight matrix.
type LayerSnapshot struct {
	VersionedRecord
	ID         string      `json:"id"`
	InputSize  int         `json:"input_size"`
	OutputSize int         `json:"output_size"`
	Soma       SomaConfig  `json:"soma"`
	Weights    [][]float64 `json:"weights"`
}

// TrainRun records one STDP training run over encoded samples.
type TrainRun struct {
	VersionedRecord
	ID           string     `json:"id"`
	CreatedAtUTC string     `json:"created_at_utc"`
	LayerID      string     `json:"layer_id"`
	Encoder      string     `json:"encoder"`
	TimeSteps    int        `json:"time_steps"`
	InputSize    int        `json:"input_size"`
	OutputSize   int        `json:"output_size"`
	Samples      int        `json:"samples"`
	Epochs       int        `json:"epochs"`
	Seed         int64      `json:"seed"`
	STDP         STDPConfig `json:"stdp"`
	FinalRate    float64    `json:"final_rate"`
}
