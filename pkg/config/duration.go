package config

import (
	"fmt"
	"time"

	"content-fetch-api/pkg/utils/parse"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML accepts "1.5s" as well as bare seconds
type Duration struct {
	time.Duration
}

// DurationFrom creates a Duration from a standard time.Duration.
func DurationFrom(d time.Duration) Duration {
	return Duration{Duration: d}
}

// MarshalYAML emits the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// UnmarshalYAML accepts "2s", "1500ms", 2 or 2.5 (seconds).
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if node.Value == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := parse.Duration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	d.Duration = parsed
	return nil
}
