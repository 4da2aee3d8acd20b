package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GroupSeed is a group definition as written in the seed file.
type GroupSeed struct {
	Name        string   `yaml:"name"`
	Color       string   `yaml:"color"`
	Description string   `yaml:"description"`
	EventTypes  []string `yaml:"event_types"`
}

type seedFile struct {
	Groups []GroupSeed `yaml:"groups"`
}

// LoadGroupSeed reads group definitions from a YAML file. The seed is applied
// when a calendar is created; operators manage groups through the API
// afterwards.
func LoadGroupSeed(path string) ([]GroupSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read group seed: %w", err)
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse group seed: %w", err)
	}

	for i, g := range f.Groups {
		if g.Name == "" {
			return nil, fmt.Errorf("group seed entry %d: name is required", i)
		}
	}
	return f.Groups, nil
}
