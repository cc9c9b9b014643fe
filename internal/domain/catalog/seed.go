package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadSeedFile reads catalog rows from a JSON array, or YAML for .yaml/.yml files.
func LoadSeedFile(path string) ([]SeedRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed catalog: %w", err)
	}
	return ParseSeed(data, filepath.Ext(path))
}

func ParseSeed(data []byte, ext string) ([]SeedRow, error) {
	var rows []SeedRow
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("parse seed catalog: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("parse seed catalog: %w", err)
		}
	}
	for i := range rows {
		rows[i].Title = strings.TrimSpace(rows[i].Title)
		rows[i].Category = strings.TrimSpace(rows[i].Category)
	}
	return rows, nil
}

// SeedCategories returns the distinct categories of rows in first-seen order.
func SeedCategories(rows []SeedRow) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range rows {
		if r.Category == "" || seen[r.Category] {
			continue
		}
		seen[r.Category] = true
		out = append(out, r.Category)
	}
	return out
}
