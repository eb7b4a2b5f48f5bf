package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ClassificationOverride forces a specific H4 entry (matched by
// anchor_id or h4_title) to classify as an option or a setting,
// overriding the table-cell heuristic in spec.md §4.2. CanonicalName
// is optional and only meaningful when ClassifyAs is "option" — it
// replaces the canonical_name (and therefore option_id) the heuristic
// would otherwise have derived.
type ClassificationOverride struct {
	AnchorID      string `yaml:"anchor_id"`
	H4Title       string `yaml:"h4_title"`
	ClassifyAs    string `yaml:"classify_as"`
	CanonicalName string `yaml:"canonical_name"`
}

// overridesFile is the top-level shape of classification_overrides.yaml.
type overridesFile struct {
	Overrides []ClassificationOverride `yaml:"overrides"`
}

// OverrideSet indexes ClassificationOverride entries by anchor_id and
// by h4_title so the classifier can look either up in O(1).
type OverrideSet struct {
	byAnchor map[string]ClassificationOverride
	byTitle  map[string]ClassificationOverride
}

// LoadOverrides reads path (e.g. config/classification_overrides.yaml)
// and indexes its entries. A missing file yields an empty, harmless
// OverrideSet rather than an error — the overrides list is optional.
func LoadOverrides(path string) (*OverrideSet, error) {
	set := &OverrideSet{byAnchor: map[string]ClassificationOverride{}, byTitle: map[string]ClassificationOverride{}}

	if path == "" {
		return set, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return nil, fmt.Errorf("reading classification overrides %s: %w", path, err)
	}

	var f overridesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing classification overrides %s: %w", path, err)
	}

	for _, o := range f.Overrides {
		if o.AnchorID != "" {
			set.byAnchor[o.AnchorID] = o
		}
		if o.H4Title != "" {
			set.byTitle[o.H4Title] = o
		}
	}
	return set, nil
}

// Lookup returns the override matching anchorID or h4Title, anchor_id
// taking priority, and whether one was found.
func (s *OverrideSet) Lookup(anchorID, h4Title string) (ClassificationOverride, bool) {
	if s == nil {
		return ClassificationOverride{}, false
	}
	if o, ok := s.byAnchor[anchorID]; ok {
		return o, true
	}
	if o, ok := s.byTitle[h4Title]; ok {
		return o, true
	}
	return ClassificationOverride{}, false
}
