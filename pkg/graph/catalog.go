package graph

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Template maps a node type tag to its port layout.
type Template struct {
	Type    string `yaml:"type" validate:"required"`
	Inputs  int    `yaml:"inputs" validate:"gte=0,lte=64"`
	Outputs int    `yaml:"outputs" validate:"gte=0,lte=64"`
}

type catalogFile struct {
	Types []Template `yaml:"types"`
}

// Catalog resolves node type tags to port templates. Registered templates
// shadow the built-in set; unregistering an override lets the built-in
// show through again.
type Catalog struct {
	builtin    map[string]Template
	registered map[string]Template
}

// NewCatalog returns a catalog preloaded with the built-in node types.
func NewCatalog() *Catalog {
	return &Catalog{
		builtin: map[string]Template{
			"SOURCE":    {Type: "SOURCE", Inputs: 0, Outputs: 1},
			"SINK":      {Type: "SINK", Inputs: 1, Outputs: 0},
			"TRANSFORM": {Type: "TRANSFORM", Inputs: 1, Outputs: 1},
			"MERGE":     {Type: "MERGE", Inputs: 2, Outputs: 1},
			"SPLIT":     {Type: "SPLIT", Inputs: 1, Outputs: 2},
		},
		registered: make(map[string]Template),
	}
}

// Register adds or overrides a template.
func (c *Catalog) Register(t Template) error {
	if err := validate.Struct(t); err != nil {
		return NewError("register").Context("catalog template").Cause(err).Err()
	}
	c.registered[t.Type] = t
	return nil
}

// Unregister removes a registered template. Returns false when no
// override with that tag exists; built-ins cannot be removed.
func (c *Catalog) Unregister(tag string) bool {
	if _, ok := c.registered[tag]; !ok {
		return false
	}
	delete(c.registered, tag)
	return true
}

// Has reports whether the tag resolves to a known template.
func (c *Catalog) Has(tag string) bool {
	if _, ok := c.registered[tag]; ok {
		return true
	}
	_, ok := c.builtin[tag]
	return ok
}

// Lookup resolves a tag to its template. Unknown tags fall back to a
// single-input, single-output template carrying the requested tag; the
// second return reports whether the tag was known.
func (c *Catalog) Lookup(tag string) (Template, bool) {
	if t, ok := c.registered[tag]; ok {
		return t, true
	}
	if t, ok := c.builtin[tag]; ok {
		return t, true
	}
	return Template{Type: tag, Inputs: 1, Outputs: 1}, false
}

// Types returns every known tag, sorted.
func (c *Catalog) Types() []string {
	seen := make(map[string]struct{}, len(c.builtin)+len(c.registered))
	for tag := range c.builtin {
		seen[tag] = struct{}{}
	}
	for tag := range c.registered {
		seen[tag] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for tag := range seen {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// LoadFile merges templates from a YAML catalog file. The file must parse
// and every entry must validate; nothing is merged otherwise.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewError("load").Context("catalog " + path).Cause(err).Err()
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return NewError("parse").Context("catalog " + path).Cause(err).Err()
	}

	for i, t := range file.Types {
		if err := validate.Struct(t); err != nil {
			return NewError("validate").
				Context(fmt.Sprintf("catalog %s entry %d", path, i)).
				Cause(err).Err()
		}
	}

	for _, t := range file.Types {
		c.registered[t.Type] = t
	}
	return nil
}
