package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TrackedLeagues lists the api-football league ids the sync should keep active.
// An empty list means every league returned by the API is tracked.
type TrackedLeagues struct {
	Leagues []TrackedLeague `yaml:"leagues"`
}

// TrackedLeague is one entry of the tracked-leagues file
type TrackedLeague struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
}

// LoadTrackedLeagues reads the tracked-leagues YAML file.
// A blank path yields an empty list.
func LoadTrackedLeagues(path string) (*TrackedLeagues, error) {
	if path == "" {
		return &TrackedLeagues{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tracked leagues file: %w", err)
	}

	var tl TrackedLeagues
	if err := yaml.Unmarshal(data, &tl); err != nil {
		return nil, fmt.Errorf("failed to parse tracked leagues file: %w", err)
	}

	for i, l := range tl.Leagues {
		if l.ID <= 0 {
			return nil, fmt.Errorf("tracked league %d has invalid id %d", i, l.ID)
		}
	}

	return &tl, nil
}

// IsTracked reports whether the given api-football league id is tracked
func (t *TrackedLeagues) IsTracked(apiID int) bool {
	if t == nil || len(t.Leagues) == 0 {
		return true
	}
	for _, l := range t.Leagues {
		if l.ID == apiID {
			return true
		}
	}
	return false
}
