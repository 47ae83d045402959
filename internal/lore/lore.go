// Package lore serves short background notes about the constellations the
// detector knows.
package lore

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/skyscope/skyscope/internal/models"
)

//go:embed data/lore.yaml
var embedded []byte

// Entry is the lore for one constellation or asterism
type Entry struct {
	Token         models.ClassToken `yaml:"token" json:"token"`
	Name          string            `yaml:"name" json:"name"`
	Abbreviation  string            `yaml:"abbreviation" json:"abbreviation"`
	BrightestStar string            `yaml:"brightest_star" json:"brightest_star"`
	BestMonth     string            `yaml:"best_month" json:"best_month"`
	Story         string            `yaml:"story" json:"story"`
}

// Catalog is an immutable token-indexed collection of entries
type Catalog struct {
	entries map[models.ClassToken]Entry
}

// Load reads lore from path, or the embedded asset when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(embedded)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lore file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML list of entries
func Parse(data []byte) (*Catalog, error) {
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse lore: %w", err)
	}

	c := &Catalog{entries: make(map[models.ClassToken]Entry, len(entries))}
	for i, e := range entries {
		if e.Token == "" || e.Name == "" {
			return nil, fmt.Errorf("lore entry %d: token and name are required", i)
		}
		if _, dup := c.entries[e.Token]; dup {
			return nil, fmt.Errorf("lore entry %d: duplicate token %s", i, e.Token)
		}
		c.entries[e.Token] = e
	}
	return c, nil
}

// Get returns the entry for token
func (c *Catalog) Get(token models.ClassToken) (Entry, bool) {
	e, ok := c.entries[token]
	return e, ok
}

// Tokens lists every token with lore, sorted
func (c *Catalog) Tokens() []models.ClassToken {
	tokens := make([]models.ClassToken, 0, len(c.entries))
	for t := range c.entries {
		tokens = append(tokens, t)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })
	return tokens
}
