package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"toolroute/internal/domain"
)

// File is the on-disk catalog document.
//
//	capabilities:
//	  - serverId: playwright
//	    displayName: Playwright
//	    category: live_extraction
//	    tools:
//	      - name: browser_navigate
//	    metadata:
//	      domains: [ticketmaster.com]
type File struct {
	Capabilities []domain.CapabilityDescriptor `yaml:"capabilities"`
}

// LoadFile reads a YAML catalog. Descriptors are returned as written;
// validation happens on registration.
func LoadFile(path string) ([]domain.CapabilityDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog file %s: %w", path, err)
	}
	return f.Capabilities, nil
}

// SaveFile writes descs as a YAML catalog.
func SaveFile(path string, descs []domain.CapabilityDescriptor) error {
	data, err := yaml.Marshal(File{Capabilities: descs})
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write catalog file: %w", err)
	}
	return nil
}
