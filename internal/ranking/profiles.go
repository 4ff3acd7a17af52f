package ranking

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultProfile is the profile used when a request names none
const DefaultProfile = "default"

// Profiles maps a profile name (e.g. "trending") to composite weights
type Profiles map[string]Weights

type profilesFile struct {
	Profiles map[string]Weights `yaml:"profiles"`
}

// ParseProfiles reads a YAML document of the form
//
//	profiles:
//	  trending:
//	    rating: 0.3
//	    recency: 0.7
//
// The default profile is always present; def is used unless the document overrides it.
func ParseProfiles(data []byte, def Weights) (Profiles, error) {
	var doc profilesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse ranking profiles: %w", err)
	}

	profiles := Profiles{DefaultProfile: def}
	for name, w := range doc.Profiles {
		if name == "" {
			return nil, fmt.Errorf("ranking profile with empty name")
		}
		if w.Rating < 0 || w.Recency < 0 {
			return nil, fmt.Errorf("ranking profile %q has negative weights", name)
		}
		profiles[name] = w
	}
	return profiles, nil
}

// LoadProfiles reads profiles from path. An empty path yields only the default profile.
func LoadProfiles(path string, def Weights) (Profiles, error) {
	if path == "" {
		return Profiles{DefaultProfile: def}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ranking profiles: %w", err)
	}
	return ParseProfiles(data, def)
}

// Lookup returns the weights for name; an empty name selects the default profile.
func (p Profiles) Lookup(name string) (Weights, bool) {
	if name == "" {
		name = DefaultProfile
	}
	w, ok := p[name]
	return w, ok
}
