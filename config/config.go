// Package config loads convey.yaml pipeline configurations.
package config

import (
	"fmt"
	"os"

	"github.com/conveyci/convey/types"
)

// LoadPipelineConfig reads and parses a convey.yaml file from the given path.
func LoadPipelineConfig(path string) (*types.PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline config %s: %w", path, err)
	}
	return types.ParsePipelineConfig(data)
}
