package classify

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ownermine/ownermine/internal/ownererr"
)

// yamlRuleFile is the shape accepted by a YAML sensitivity config: a
// top-level "rules" list of {pattern, tag, weight} objects.
type yamlRuleFile struct {
	Rules []struct {
		Pattern string  `yaml:"pattern"`
		Tag     string  `yaml:"tag"`
		Weight  float64 `yaml:"weight"`
	} `yaml:"rules"`
}

// LoadRules loads a sensitivity-config override file (CSV with columns
// pattern,tag,weight, or YAML with a top-level "rules" list, selected by
// extension), entirely replacing the built-in defaults — matching the
// pre-distillation tool's "explicit config replaces defaults" behavior
// (§3A). An empty path means: use DefaultRules().
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return DefaultRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ownererr.Wrapf(err, ownererr.Config, "reading sensitive-config %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAMLRules(data)
	default:
		return parseCSVRules(data)
	}
}

func parseCSVRules(data []byte) ([]Rule, error) {
	r := csv.NewReader(strings.NewReader(string(data)))
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, ownererr.Wrap(err, ownererr.Parse, "parsing sensitive-config csv")
	}

	var rules []Rule
	for i, row := range records {
		if i == 0 && looksLikeHeader(row) {
			continue
		}
		if len(row) < 3 {
			return nil, ownererr.Newf(ownererr.Parse, "sensitive-config row %d: expected 3 columns, got %d", i, len(row))
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil {
			return nil, ownererr.Wrapf(err, ownererr.Parse, "sensitive-config row %d: invalid weight", i)
		}
		rules = append(rules, Rule{
			Pattern: strings.TrimSpace(row[0]),
			Tag:     strings.TrimSpace(row[1]),
			Weight:  weight,
		})
	}
	return rules, nil
}

func looksLikeHeader(row []string) bool {
	if len(row) < 3 {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	return err != nil
}

func parseYAMLRules(data []byte) ([]Rule, error) {
	var doc yamlRuleFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, ownererr.Wrap(err, ownererr.Parse, "parsing sensitive-config yaml")
	}
	rules := make([]Rule, 0, len(doc.Rules))
	for _, r := range doc.Rules {
		rules = append(rules, Rule{Pattern: r.Pattern, Tag: r.Tag, Weight: r.Weight})
	}
	return rules, nil
}
