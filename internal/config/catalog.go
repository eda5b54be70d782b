package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/deskops/helpdesk-admin/internal/domain"
)

type catalogFile struct {
	Resources []domain.Resource `yaml:"resources"`
}

// LoadCatalog returns the default resource catalog, with entries from the YAML
// file at path overriding defaults by name and appending new resources.
func LoadCatalog(path string) ([]domain.Resource, error) {
	catalog := domain.DefaultCatalog()
	if path == "" {
		return catalog, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resource catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse resource catalog: %w", err)
	}

	index := make(map[string]int, len(catalog))
	for i, res := range catalog {
		index[res.Name] = i
	}
	for _, res := range file.Resources {
		res = res.Normalize()
		if res.Name == "" {
			return nil, fmt.Errorf("resource catalog: entry without name")
		}
		if i, ok := index[res.Name]; ok {
			catalog[i] = res
			continue
		}
		index[res.Name] = len(catalog)
		catalog = append(catalog, res)
	}
	return catalog, nil
}
