package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// ManifestApp declares one micro app in the boot manifest.
type ManifestApp struct {
	Name      string `yaml:"name"`
	URL       string `yaml:"url"`
	Library   string `yaml:"library,omitempty"`
	BaseRoute string `yaml:"base_route,omitempty"`
	KeepAlive bool   `yaml:"keep_alive,omitempty"`
	Prefetch  bool   `yaml:"prefetch,omitempty"`
}

// Manifest is the apps.yaml document: micro apps registered or prefetched
// at boot.
type Manifest struct {
	Apps []ManifestApp `yaml:"apps"`
}

// LoadManifest reads and validates an apps manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	seen := make(map[string]bool, len(m.Apps))
	for i, app := range m.Apps {
		if app.Name == "" || app.URL == "" {
			return nil, fmt.Errorf("manifest app %d: name and url are required", i)
		}
		if seen[app.Name] {
			return nil, fmt.Errorf("manifest: duplicate app name %q", app.Name)
		}
		seen[app.Name] = true
	}
	return &m, nil
}
