package train

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/ascent/internal/dist"
)

// Config wires one training run's update policy - all the knobs the driver
// and its components need. Zero values select the documented defaults where
// a default exists; TotalSteps and BaseLearningRate must be set.
type Config struct {
	BaseLearningRate float64
	TotalSteps       int64

	WeightDecayRate float64 // 0 disables decay entirely

	WarmupSteps      int64
	WarmupProportion float64 // the larger of the two wins
	DecayPower       float64 // default 1.0 (linear)

	LayerwiseDecayPower float64 // <= 0 disables layer-wise rates
	NumLayers           int     // required when layer-wise rates are on

	Beta1   float64 // default 0.9
	Beta2   float64 // default 0.999
	Epsilon float64 // default 1e-6

	// ExcludeFromWeightDecay overrides the default exclusion patterns
	// (LayerNorm, layer_norm, bias). nil keeps the default.
	ExcludeFromWeightDecay []string

	MixedPrecision    bool
	AccumulationSteps int // default 1: every micro-step is a full cycle

	// Reducer, when set, is invoked for gradient agreement across workers.
	// ReduceAfterAccumulation moves the collective from every micro-step to
	// once per completed cycle.
	Reducer                 dist.Reducer
	ReduceAfterAccumulation bool
	Compression             dist.Compression

	// LossScaler, when set, is assumed to have scaled the loss whose
	// gradients arrive at Step; the driver unscales them first.
	LossScaler *LossScaler
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.DecayPower == 0 {
		c.DecayPower = 1.0
	}
	if c.AccumulationSteps == 0 {
		c.AccumulationSteps = 1
	}
	return c
}

// Validate reports configuration errors that must stop the run before any
// optimizer state exists.
func (c Config) Validate() error {
	if c.TotalSteps <= 0 {
		return fmt.Errorf("total steps must be > 0, got %d", c.TotalSteps)
	}
	if c.BaseLearningRate <= 0 {
		return fmt.Errorf("base learning rate must be > 0, got %g", c.BaseLearningRate)
	}
	if c.AccumulationSteps < 1 {
		return fmt.Errorf("accumulation steps must be >= 1, got %d", c.AccumulationSteps)
	}
	if c.LayerwiseDecayPower > 0 && c.NumLayers <= 0 {
		return fmt.Errorf("layer-wise decay needs the layer count, got %d", c.NumLayers)
	}
	if c.WarmupProportion < 0 || c.WarmupProportion > 1 {
		return fmt.Errorf("warmup proportion must be in [0, 1], got %g", c.WarmupProportion)
	}
	return nil
}

// RunConfig is the YAML shape of a run configuration file.
type RunConfig struct {
	LearningRate        float64  `yaml:"learning_rate"`
	TotalSteps          int64    `yaml:"total_steps"`
	WeightDecayRate     float64  `yaml:"weight_decay_rate"`
	WarmupSteps         int64    `yaml:"warmup_steps"`
	WarmupProportion    float64  `yaml:"warmup_proportion"`
	DecayPower          float64  `yaml:"decay_power"`
	LayerwiseDecayPower float64  `yaml:"layerwise_decay_power"`
	NumLayers           int      `yaml:"num_layers"`
	Beta1               float64  `yaml:"beta_1"`
	Beta2               float64  `yaml:"beta_2"`
	Epsilon             float64  `yaml:"epsilon"`
	ExcludeFromDecay    []string `yaml:"exclude_from_weight_decay"`
	MixedPrecision      bool     `yaml:"mixed_precision"`
	AccumulationSteps   int      `yaml:"accumulation_steps"`
	ReduceAfterAccum    bool     `yaml:"reduce_after_accumulation"`
	Compression         string   `yaml:"compression"` // "none" or "fp16"
}

// LoadRunConfig reads and decodes a YAML run configuration.
func LoadRunConfig(path string) (RunConfig, error) {
	var rc RunConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return rc, fmt.Errorf("read run config: %w", err)
	}
	if err := yaml.Unmarshal(data, &rc); err != nil {
		return rc, fmt.Errorf("parse run config: %w", err)
	}
	return rc, nil
}

// TrainerConfig maps the file onto a driver Config. The result still goes
// through Config.Validate at driver construction.
func (rc RunConfig) TrainerConfig() (Config, error) {
	cfg := Config{
		BaseLearningRate:       rc.LearningRate,
		TotalSteps:             rc.TotalSteps,
		WeightDecayRate:        rc.WeightDecayRate,
		WarmupSteps:            rc.WarmupSteps,
		WarmupProportion:       rc.WarmupProportion,
		DecayPower:             rc.DecayPower,
		LayerwiseDecayPower:    rc.LayerwiseDecayPower,
		NumLayers:              rc.NumLayers,
		Beta1:                  rc.Beta1,
		Beta2:                  rc.Beta2,
		Epsilon:                rc.Epsilon,
		ExcludeFromWeightDecay: rc.ExcludeFromDecay,
		MixedPrecision:         rc.MixedPrecision,
		AccumulationSteps:      rc.AccumulationSteps,
	}
	cfg.ReduceAfterAccumulation = rc.ReduceAfterAccum
	switch rc.Compression {
	case "", "none":
		cfg.Compression = dist.NoCompression
	case "fp16":
		cfg.Compression = dist.Float16Compression
	default:
		return cfg, fmt.Errorf("unknown compression %q", rc.Compression)
	}
	if rc.MixedPrecision {
		cfg.LossScaler = NewLossScaler()
	}
	return cfg, nil
}
