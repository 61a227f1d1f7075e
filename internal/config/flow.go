package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spachava753/pottery/internal/models"
)

// LoadFlow loads and parses a flow YAML file.
func LoadFlow(path string) (models.Flow, error) {
	var flow models.Flow

	data, err := os.ReadFile(path)
	if err != nil {
		return flow, fmt.Errorf("reading flow: %w", err)
	}

	if err := yaml.Unmarshal(data, &flow); err != nil {
		return flow, fmt.Errorf("parsing flow: %w", err)
	}

	if len(flow.Steps) == 0 {
		return flow, fmt.Errorf("flow has no steps")
	}

	// Validate steps
	for i, step := range flow.Steps {
		hasTrigger := step.Trigger != ""
		hasParallel := len(step.Parallel) > 0
		if !hasTrigger && !hasParallel {
			return flow, fmt.Errorf("step[%d]: must specify either 'trigger' or 'parallel'", i)
		}
		if hasTrigger && hasParallel {
			return flow, fmt.Errorf("step[%d]: cannot specify both 'trigger' and 'parallel'", i)
		}
		if hasParallel && len(step.Fields) > 0 {
			return flow, fmt.Errorf("step[%d]: 'fields' belongs on each parallel entry", i)
		}
		for j, inv := range step.Parallel {
			if inv.Trigger == "" {
				return flow, fmt.Errorf("step[%d].parallel[%d]: missing 'trigger'", i, j)
			}
		}
	}

	if flow.Fields == nil {
		flow.Fields = models.Fields{}
	}

	return flow, nil
}
