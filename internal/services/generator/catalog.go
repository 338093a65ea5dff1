package generator

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
)

//go:embed catalog.yaml
var catalogYAML []byte

const (
	minTokenBudget = 1500
	maxTokenBudget = 4000
)

// Template is the prompt definition of one document kind
type Template struct {
	MaxTokens int      `yaml:"max_tokens"`
	Framing   string   `yaml:"framing"`
	Sections  []string `yaml:"sections"`
	Guidance  []string `yaml:"guidance"`
}

// Catalog holds the shared system prompt and one template per kind
type Catalog struct {
	System string                           `yaml:"system"`
	Kinds  map[models.DocumentKind]Template `yaml:"kinds"`
}

// LoadCatalog parses the embedded catalog
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog parses and checks a catalog document. Every document kind
// must have a template with sections and a budget within 1500-4000 tokens.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse prompt catalog: %w", err)
	}
	c.System = strings.TrimSpace(c.System)
	if c.System == "" {
		return nil, fmt.Errorf("prompt catalog has no system prompt")
	}
	for _, kind := range models.AllDocumentKinds() {
		tpl, ok := c.Kinds[kind]
		if !ok {
			return nil, fmt.Errorf("prompt catalog has no template for %s", kind)
		}
		if len(tpl.Sections) == 0 {
			return nil, fmt.Errorf("template %s has no sections", kind)
		}
		if tpl.MaxTokens < minTokenBudget || tpl.MaxTokens > maxTokenBudget {
			return nil, fmt.Errorf("template %s max_tokens %d outside %d-%d", kind, tpl.MaxTokens, minTokenBudget, maxTokenBudget)
		}
	}
	for kind := range c.Kinds {
		if !kind.Valid() {
			return nil, fmt.Errorf("prompt catalog has unknown kind %s", kind)
		}
	}
	return &c, nil
}

// Template returns the template for kind
func (c *Catalog) Template(kind models.DocumentKind) (Template, bool) {
	tpl, ok := c.Kinds[kind]
	return tpl, ok
}
