package data

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CategoryInfo holds the defaults of one temporal category.
type CategoryInfo struct {
	Name            string
	DefaultDuration time.Duration // used when a caller passes no duration
	RetryDelay      int64         // ticks; 0 = server default
}

// CategoryTable holds temporal categories indexed by name.
type CategoryTable struct {
	categories map[string]*CategoryInfo
}

// Get returns a category by name, or nil if not found.
func (t *CategoryTable) Get(name string) *CategoryInfo {
	if t == nil {
		return nil
	}
	return t.categories[name]
}

// Count returns total loaded categories.
func (t *CategoryTable) Count() int {
	if t == nil {
		return 0
	}
	return len(t.categories)
}

// --- YAML loading ---

type categoryEntry struct {
	Name       string `yaml:"name"`
	DefaultMs  int64  `yaml:"default_ms"`
	RetryDelay int64  `yaml:"retry_delay"`
}

type categoryListFile struct {
	Categories []categoryEntry `yaml:"categories"`
}

func LoadCategoryTable(path string) (*CategoryTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read temporal categories: %w", err)
	}
	t, err := ParseCategoryTable(raw)
	if err != nil {
		return nil, fmt.Errorf("parse temporal categories: %w", err)
	}
	return t, nil
}

func ParseCategoryTable(raw []byte) (*CategoryTable, error) {
	var f categoryListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	t := &CategoryTable{
		categories: make(map[string]*CategoryInfo, len(f.Categories)),
	}
	for i := range f.Categories {
		e := &f.Categories[i]
		if e.Name == "" {
			return nil, fmt.Errorf("category %d has no name", i)
		}
		if _, dup := t.categories[e.Name]; dup {
			return nil, fmt.Errorf("duplicate category %q", e.Name)
		}
		if e.DefaultMs < 0 || e.RetryDelay < 0 {
			return nil, fmt.Errorf("category %q: negative duration", e.Name)
		}
		t.categories[e.Name] = &CategoryInfo{
			Name:            e.Name,
			DefaultDuration: time.Duration(e.DefaultMs) * time.Millisecond,
			RetryDelay:      e.RetryDelay,
		}
	}
	return t, nil
}
