package params

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults rejected: %v", err)
	}
}

func TestValidateRejectsMalformed(t *testing.T) {
	cases := map[string]func(*VisualConfig){
		"zero bars":          func(c *VisualConfig) { c.BarCount = 0 },
		"negative bars":      func(c *VisualConfig) { c.BarCount = -3 },
		"negative glitch":    func(c *VisualConfig) { c.GlitchAmount = -1 },
		"probability high":   func(c *VisualConfig) { c.GlitchProbability = 1.5 },
		"probability low":    func(c *VisualConfig) { c.GlitchProbability = -0.1 },
		"grid opacity":       func(c *VisualConfig) { c.GridOpacity = 2 },
		"grid size":          func(c *VisualConfig) { c.GridSize = 0 },
		"min height":         func(c *VisualConfig) { c.BarMinHeight = -1 },
		"background":         func(c *VisualConfig) { c.BackgroundColor = "white" },
		"grid color":         func(c *VisualConfig) { c.GridColor = "#12" },
		"negative animation": func(c *VisualConfig) { c.AnimationSpeed = -1 },
		"nan min height":     func(c *VisualConfig) { c.BarMinHeight = math.NaN() },
		"inf min height":     func(c *VisualConfig) { c.BarMinHeight = math.Inf(1) },
		"inf noise":          func(c *VisualConfig) { c.NoiseAmount = math.Inf(1) },
		"nan noise":          func(c *VisualConfig) { c.NoiseAmount = math.NaN() },
		"inf animation":      func(c *VisualConfig) { c.AnimationSpeed = math.Inf(1) },
		"nan animation":      func(c *VisualConfig) { c.AnimationSpeed = math.NaN() },
		"nan probability":    func(c *VisualConfig) { c.GlitchProbability = math.NaN() },
		"nan grid opacity":   func(c *VisualConfig) { c.GridOpacity = math.NaN() },
	}
	for name, mutate := range cases {
		cfg := Defaults()
		mutate(&cfg)
		err := cfg.Validate()
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestGridSizeIgnoredWithoutGrid(t *testing.T) {
	cfg := Defaults()
	cfg.ShowGrid = false
	cfg.GridSize = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("hidden grid should not need a size: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retrobars.yaml")
	if err := os.WriteFile(path, []byte("barCount: 16\nglitchAmount: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BarCount != 16 || cfg.GlitchAmount != 4 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.GridSize != Defaults().GridSize {
		t.Fatalf("gridSize=%d want default %d", cfg.GridSize, Defaults().GridSize)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("barCount: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadRejectsNonFiniteValues(t *testing.T) {
	for _, body := range []string{
		"barMinHeight: .nan\n",
		"barMinHeight: .inf\n",
		"noiseAmount: .inf\n",
		"animationSpeed: -.inf\n",
	} {
		path := filepath.Join(t.TempDir(), "nonfinite.yaml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%q: expected ErrInvalidConfig, got %v", body, err)
		}
	}
}

func TestWatcherDeliversReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "retrobars.yaml")
	if err := os.WriteFile(path, []byte("barCount: 8\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("watcher: %v", err)
	}
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan VisualConfig, 1)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(cfg VisualConfig) {
			select {
			case got <- cfg:
			default:
			}
		})
	}()

	if err := os.WriteFile(path, []byte("barCount: 12\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case cfg := <-got:
		if cfg.BarCount != 12 {
			t.Fatalf("barCount=%d want 12", cfg.BarCount)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reload not delivered")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}
