package params

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid visual config")

// VisualConfig is the fixed configuration of the bar renderer. It is built
// once and never mutated while a scheduler is running.
type VisualConfig struct {
	BarCount          int     `yaml:"barCount" json:"barCount"`
	BarMinHeight      float64 `yaml:"barMinHeight" json:"barMinHeight"`
	NoiseAmount       float64 `yaml:"noiseAmount" json:"noiseAmount"`
	GlitchProbability float64 `yaml:"glitchProbability" json:"glitchProbability"`
	GlitchAmount      int     `yaml:"glitchAmount" json:"glitchAmount"`
	ShowGrid          bool    `yaml:"showGrid" json:"showGrid"`
	GridSize          int     `yaml:"gridSize" json:"gridSize"`
	GridOpacity       float64 `yaml:"gridOpacity" json:"gridOpacity"`
	GridColor         string  `yaml:"gridColor" json:"gridColor"`
	AnimationSpeed    float64 `yaml:"animationSpeed" json:"animationSpeed"`
	BackgroundColor   string  `yaml:"backgroundColor" json:"backgroundColor"`
}

// Defaults returns the landing-page backdrop settings.
func Defaults() VisualConfig {
	return VisualConfig{
		BarCount:          64,
		BarMinHeight:      2,
		NoiseAmount:       0.3,
		GlitchProbability: 0.1,
		GlitchAmount:      1,
		ShowGrid:          true,
		GridSize:          30,
		GridOpacity:       0.15,
		GridColor:         "#888888",
		AnimationSpeed:    0.0001,
		BackgroundColor:   "#ffffff",
	}
}

// Validate reports the first malformed field.
func (c VisualConfig) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"barMinHeight", c.BarMinHeight},
		{"noiseAmount", c.NoiseAmount},
		{"glitchProbability", c.GlitchProbability},
		{"gridOpacity", c.GridOpacity},
		{"animationSpeed", c.AnimationSpeed},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s must be finite (got %v)", ErrInvalidConfig, f.name, f.v)
		}
	}
	switch {
	case c.BarCount <= 0:
		return fmt.Errorf("%w: barCount must be positive (got %d)", ErrInvalidConfig, c.BarCount)
	case c.BarMinHeight < 0:
		return fmt.Errorf("%w: barMinHeight must not be negative (got %.2f)", ErrInvalidConfig, c.BarMinHeight)
	case c.GlitchAmount < 0:
		return fmt.Errorf("%w: glitchAmount must not be negative (got %d)", ErrInvalidConfig, c.GlitchAmount)
	case !inUnit(c.GlitchProbability):
		return fmt.Errorf("%w: glitchProbability must be within [0,1] (got %.3f)", ErrInvalidConfig, c.GlitchProbability)
	case !inUnit(c.GridOpacity):
		return fmt.Errorf("%w: gridOpacity must be within [0,1] (got %.3f)", ErrInvalidConfig, c.GridOpacity)
	case c.ShowGrid && c.GridSize <= 0:
		return fmt.Errorf("%w: gridSize must be positive when the grid is shown (got %d)", ErrInvalidConfig, c.GridSize)
	case c.NoiseAmount < 0:
		return fmt.Errorf("%w: noiseAmount must not be negative (got %.3f)", ErrInvalidConfig, c.NoiseAmount)
	case c.AnimationSpeed < 0:
		return fmt.Errorf("%w: animationSpeed must not be negative (got %f)", ErrInvalidConfig, c.AnimationSpeed)
	}
	if _, err := colorful.Hex(c.BackgroundColor); err != nil {
		return fmt.Errorf("%w: backgroundColor %q: %v", ErrInvalidConfig, c.BackgroundColor, err)
	}
	if _, err := colorful.Hex(c.GridColor); err != nil {
		return fmt.Errorf("%w: gridColor %q: %v", ErrInvalidConfig, c.GridColor, err)
	}
	return nil
}

// Load reads a YAML file on top of Defaults and validates the result.
// Fields missing from the file keep their default value.
func Load(path string) (VisualConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Marshal renders the config as YAML.
func (c VisualConfig) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
