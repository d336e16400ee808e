package config

import (
	"fmt"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	d := &c.Docking

	if d.Exhaustiveness <= 0 {
		return fmt.Errorf("docking.exhaustiveness must be positive, got %d", d.Exhaustiveness)
	}
	if d.NumModes < 0 {
		return fmt.Errorf("docking.num_modes must not be negative, got %d", d.NumModes)
	}
	if len(d.BoxSize) != 3 {
		return fmt.Errorf("docking.box_size must have 3 values, got %d", len(d.BoxSize))
	}
	for i, v := range d.BoxSize {
		if v <= 0 {
			return fmt.Errorf("docking.box_size[%d] must be positive, got %g", i, v)
		}
	}
	if d.BoxPadding < 0 {
		return fmt.Errorf("docking.box_padding must not be negative, got %g", d.BoxPadding)
	}
	if d.RefinePercent <= 0 || d.RefinePercent > 100 {
		return fmt.Errorf("docking.refine_percent must be in (0, 100], got %d", d.RefinePercent)
	}
	if len(d.AdaptiveValues) != len(d.AdaptiveThresholds)+1 {
		return fmt.Errorf("docking.adaptive_values needs %d entries for %d thresholds, got %d",
			len(d.AdaptiveThresholds)+1, len(d.AdaptiveThresholds), len(d.AdaptiveValues))
	}
	if d.Workers < 0 {
		return fmt.Errorf("docking.workers must not be negative, got %d", d.Workers)
	}

	if c.Network.TimeoutSeconds <= 0 {
		return fmt.Errorf("network.timeout_seconds must be positive, got %d", c.Network.TimeoutSeconds)
	}

	switch c.OutputFormat {
	case "", "auto", "text", "markdown", "json":
	default:
		return fmt.Errorf("output must be one of auto, text, markdown, json; got %q", c.OutputFormat)
	}

	return nil
}
