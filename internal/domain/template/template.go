// Package template provides the built-in starter bundles.
//
// The catalog is embedded YAML so the templates stay readable as source
// files rather than escaped Go strings.
package template

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

//go:embed catalog.yaml
var catalogYAML []byte

// DefaultID names the template the workspace starts from
const DefaultID = "default"

var ErrTemplateNotFound = errors.New("template not found")

// Template is one starter bundle
type Template struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Markup      string `yaml:"markup" json:"markup"`
	Style       string `yaml:"style" json:"style"`
	Script      string `yaml:"script" json:"script"`
}

// Bundle returns the template's fragments
func (t Template) Bundle() types.SourceBundle {
	return types.SourceBundle{Markup: t.Markup, Style: t.Style, Script: t.Script}
}

// Summary is a template without its fragments, for listings
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Catalog is an ordered, read-only set of templates
type Catalog struct {
	templates []Template
	byID      map[string]int
}

// Parse decodes a YAML catalog
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Templates []Template `yaml:"templates"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode template catalog: %w", err)
	}

	c := &Catalog{byID: make(map[string]int, len(doc.Templates))}
	for _, t := range doc.Templates {
		if t.ID == "" {
			return nil, fmt.Errorf("template %q has no id", t.Name)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate template id %q", t.ID)
		}
		c.byID[t.ID] = len(c.templates)
		c.templates = append(c.templates, t)
	}
	return c, nil
}

var (
	builtinOnce sync.Once
	builtin     *Catalog
)

// Builtin returns the embedded catalog. It panics if the embedded file is
// invalid, which the package tests rule out.
func Builtin() *Catalog {
	builtinOnce.Do(func() {
		c, err := Parse(catalogYAML)
		if err != nil {
			panic(err)
		}
		builtin = c
	})
	return builtin
}

// Default returns the bundle a fresh workspace starts with
func Default() types.SourceBundle {
	t, err := Builtin().Get(DefaultID)
	if err != nil {
		return types.SourceBundle{}
	}
	return t.Bundle()
}

// Get returns a template by id
func (c *Catalog) Get(id string) (Template, error) {
	i, ok := c.byID[id]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return c.templates[i], nil
}

// List returns template summaries in catalog order
func (c *Catalog) List() []Summary {
	out := make([]Summary, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, Summary{ID: t.ID, Name: t.Name, Description: t.Description})
	}
	return out
}

// Len returns the number of templates
func (c *Catalog) Len() int {
	return len(c.templates)
}
