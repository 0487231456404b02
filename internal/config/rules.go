package config

import (
	"fmt"
	"os"

	"github.com/longsangsabo2025/sabo-arena/internal/rating"
	"gopkg.in/yaml.v3"
)

// LoadRules reads the rating and reward rules file. An empty path gives the
// built-in rules; anything the file leaves out keeps its default.
func LoadRules(path string) (*rating.Rules, error) {
	if path == "" {
		return rating.DefaultRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var rules rating.Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rules: %w", err)
	}
	rules.Fill()

	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules file %s: %w", path, err)
	}
	return &rules, nil
}
