package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/phanxgames/cinder"
	"github.com/tanema/gween/ease"
	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML configuration accepted by --config.
type fileConfig struct {
	Duration   string  `yaml:"duration"`   // e.g. "2200ms"
	Linger     string  `yaml:"linger"`     // e.g. "400ms"
	Scale      float64 `yaml:"scale"`      // capture supersampling
	Background string  `yaml:"background"` // "#RRGGBB"
	FPS        int     `yaml:"fps"`        // offline frame rate
	Easing     string  `yaml:"easing"`     // see easings
}

var easings = map[string]ease.TweenFunc{
	"linear":     ease.Linear,
	"inQuad":     ease.InQuad,
	"outQuad":    ease.OutQuad,
	"inOutQuad":  ease.InOutQuad,
	"inCubic":    ease.InCubic,
	"outCubic":   ease.OutCubic,
	"inOutCubic": ease.InOutCubic,
	"inSine":     ease.InSine,
	"outSine":    ease.OutSine,
	"inOutSine":  ease.InOutSine,
}

func easingNames() string {
	names := make([]string, 0, len(easings))
	for n := range easings {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// defaultFileConfig mirrors cinder.DefaultConfig at 60 fps.
func defaultFileConfig() *fileConfig {
	return &fileConfig{
		Duration:   cinder.DefaultDuration.String(),
		Linger:     cinder.DefaultLinger.String(),
		Scale:      cinder.DefaultCaptureScale,
		Background: "#1D1616",
		FPS:        60,
		Easing:     "linear",
	}
}

// loadConfig reads path over the defaults. An empty path yields the defaults.
func loadConfig(path string) (*fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// effectConfig converts the file form into a cinder.Config.
func (c *fileConfig) effectConfig() (cinder.Config, error) {
	cfg := cinder.DefaultConfig()
	var err error
	if c.Duration != "" {
		if cfg.Duration, err = time.ParseDuration(c.Duration); err != nil {
			return cfg, fmt.Errorf("duration: %w", err)
		}
	}
	if c.Linger != "" {
		if cfg.Linger, err = time.ParseDuration(c.Linger); err != nil {
			return cfg, fmt.Errorf("linger: %w", err)
		}
	}
	if c.Scale > 0 {
		cfg.CaptureScale = c.Scale
	}
	if c.Background != "" {
		if cfg.Background, err = cinder.ParseHexColor(c.Background); err != nil {
			return cfg, fmt.Errorf("background: %w", err)
		}
	}
	if c.Easing != "" {
		fn, ok := easings[c.Easing]
		if !ok {
			return cfg, fmt.Errorf("easing %q: want one of %s", c.Easing, easingNames())
		}
		cfg.Easing = fn
	}
	if cfg.Duration <= 0 || cfg.Linger < 0 {
		return cfg, fmt.Errorf("duration must be positive and linger non-negative")
	}
	return cfg, nil
}

// frameInterval is the offline frame step.
func (c *fileConfig) frameInterval() time.Duration {
	fps := c.FPS
	if fps <= 0 {
		fps = 60
	}
	return time.Second / time.Duration(fps)
}
