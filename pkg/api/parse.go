package api

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadEnvConfig reads a .cloud.env.yaml file and validates it. A missing file
// yields an empty configuration so that defaults apply.
func LoadEnvConfig(filename string) (*EnvConfig, error) {
	var c EnvConfig

	data, err := os.ReadFile(filename)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading env config file: %w", err)
		}
		data = nil
	}

	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing env config file: %w", err)
	}

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}
	c.FilePath = absPath

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validating env config %s: %w", filename, err)
	}

	return &c, nil
}
