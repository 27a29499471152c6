// Package library holds the built-in loop templates.
package library

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/ports"
)

//go:embed templates.yaml
var builtin []byte

// Categories lists the template categories in display order
var Categories = []string{"personal", "work", "shared", "family"}

// Catalog is an immutable, indexed set of loop templates
type Catalog struct {
	templates []ports.LoopTemplate
	byID      map[string]ports.LoopTemplate
}

type catalogFile struct {
	Templates []ports.LoopTemplate `yaml:"templates"`
}

// Builtin parses the embedded template file
func Builtin() (*Catalog, error) {
	return Parse(builtin)
}

// Parse reads a template catalog from YAML and checks every template
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	c := &Catalog{byID: make(map[string]ports.LoopTemplate, len(file.Templates))}
	for i, t := range file.Templates {
		if err := check(t); err != nil {
			return nil, fmt.Errorf("template %d (%s): %w", i, t.ID, err)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate template id %q", t.ID)
		}
		c.byID[t.ID] = t
		c.templates = append(c.templates, t)
	}

	rank := make(map[string]int, len(Categories))
	for i, cat := range Categories {
		rank[cat] = i
	}
	sort.SliceStable(c.templates, func(i, j int) bool {
		return rank[c.templates[i].Category] < rank[c.templates[j].Category]
	})

	return c, nil
}

func check(t ports.LoopTemplate) error {
	if strings.TrimSpace(t.ID) == "" || strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("id and name are required")
	}
	if !IsCategory(t.Category) {
		return fmt.Errorf("unknown category %q", t.Category)
	}
	if !entities.ResetRule(t.ResetRule).IsValid() {
		return fmt.Errorf("invalid reset rule %q", t.ResetRule)
	}
	for _, task := range t.Tasks {
		if !entities.TaskType(task.Type).IsValid() {
			return fmt.Errorf("invalid task type %q", task.Type)
		}
	}
	return nil
}

// IsCategory reports whether name is a known category
func IsCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// List returns the templates, optionally limited to one category
func (c *Catalog) List(category string) []ports.LoopTemplate {
	out := make([]ports.LoopTemplate, 0, len(c.templates))
	for _, t := range c.templates {
		if category == "" || t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// Get returns the template with the given id
func (c *Catalog) Get(id string) (ports.LoopTemplate, bool) {
	t, ok := c.byID[id]
	return t, ok
}
