package merchant

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var tablesYAML []byte

// Brand is a known merchant brand with its display name and budget category.
type Brand struct {
	Keys     []string `yaml:"keys"`
	Name     string   `yaml:"name"`
	Category string   `yaml:"category"`
}

// FeeLabel maps a phrase inside a fee description onto a readable label.
type FeeLabel struct {
	Contains string `yaml:"contains"`
	Label    string `yaml:"label"`
}

// Network is a mobile network recognized in airtime purchases.
type Network struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

// Tables holds the static lookup tables used by the resolver.
type Tables struct {
	Aliases   [][]string        `yaml:"aliases"`
	Brands    []Brand           `yaml:"brands"`
	Fees      []FeeLabel        `yaml:"fees"`
	Networks  []Network         `yaml:"networks"`
	Gateways  []string          `yaml:"gateways"`
	Noise     []string          `yaml:"noise"`
	Locations map[string]string `yaml:"locations"`

	aliasGroup map[string]int
	noiseSet   map[string]bool
}

// LoadTables parses lookup tables from YAML.
func LoadTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("LoadTables: parsing yaml: %w", err)
	}

	t.aliasGroup = make(map[string]int)
	for i, group := range t.Aliases {
		for _, core := range group {
			key := strings.ToUpper(strings.TrimSpace(core))
			if prev, ok := t.aliasGroup[key]; ok && prev != i {
				return nil, fmt.Errorf("LoadTables: alias %q appears in groups %d and %d", key, prev, i)
			}
			t.aliasGroup[key] = i
		}
	}

	t.noiseSet = make(map[string]bool, len(t.Noise))
	for _, w := range t.Noise {
		t.noiseSet[strings.ToUpper(w)] = true
	}

	return &t, nil
}

// IsAlias reports whether two distinct cores belong to the same alias group.
// The relation is symmetric.
func (t *Tables) IsAlias(a, b string) bool {
	if a == b {
		return false
	}
	ga, okA := t.aliasGroup[a]
	gb, okB := t.aliasGroup[b]
	return okA && okB && ga == gb
}

// LookupBrand returns the first brand whose key starts a word sequence in
// the uppercased text and is not followed by a letter or digit.
func (t *Tables) LookupBrand(text string) (*Brand, bool) {
	for i := range t.Brands {
		for _, key := range t.Brands[i].Keys {
			if containsWord(text, strings.ToUpper(key)) {
				return &t.Brands[i], true
			}
		}
	}
	return nil, false
}

func containsWord(text, word string) bool {
	for start := 0; start < len(text); {
		idx := strings.Index(text[start:], word)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(word)
		if (idx == 0 || text[idx-1] == ' ') && (end == len(text) || !isAlnum(text[end])) {
			return true
		}
		start = idx + 1
	}
	return false
}

func isAlnum(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

var defaultTables = mustLoadTables()

func mustLoadTables() *Tables {
	t, err := LoadTables(tablesYAML)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultTables returns the embedded tables shared by the package functions.
func DefaultTables() *Tables {
	return defaultTables
}
