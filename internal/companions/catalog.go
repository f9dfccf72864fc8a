package companions

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed companions.yaml
var defaultCatalogYAML []byte

// ErrInvalidCatalog indicates a companions document that cannot be served.
var ErrInvalidCatalog = errors.New("companions: invalid catalog")

var nonSlugRunes = regexp.MustCompile(`[^a-z0-9]+`)

// Companion is a canned chat persona.
type Companion struct {
	Slug     string `yaml:"-" json:"slug"`
	Name     string `yaml:"name" json:"name"`
	Subtitle string `yaml:"subtitle" json:"subtitle,omitempty"`
	Greeting string `yaml:"greeting" json:"greeting"`
	Avatar   string `yaml:"avatar" json:"avatar"`
	Gradient string `yaml:"gradient" json:"gradient"`
}

type catalogDocument struct {
	Companions []Companion `yaml:"companions"`
	Fallback   Companion   `yaml:"fallback"`
}

// Catalog holds the personas in declaration order, addressable by slug.
type Catalog struct {
	companions []Companion
	fallback   Companion
}

// Slugify lowercases name and collapses every run of characters outside
// [a-z0-9] into a single dash, trimming a leading and trailing dash.
func Slugify(name string) string {
	slug := nonSlugRunes.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.TrimPrefix(slug, "-")
	return strings.TrimSuffix(slug, "-")
}

// DefaultCatalog parses the embedded personas.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// ParseCatalog decodes and validates a YAML companions document. Slugs are
// derived from names and must be unique.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var document catalogDocument
	if err := yaml.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	seen := make(map[string]struct{}, len(document.Companions))
	for index := range document.Companions {
		companion := &document.Companions[index]
		companion.Slug = Slugify(companion.Name)
		if companion.Slug == "" || strings.TrimSpace(companion.Greeting) == "" {
			return nil, fmt.Errorf("%w: companion %d needs a name and a greeting", ErrInvalidCatalog, index)
		}
		if _, dup := seen[companion.Slug]; dup {
			return nil, fmt.Errorf("%w: duplicate companion %q", ErrInvalidCatalog, companion.Slug)
		}
		seen[companion.Slug] = struct{}{}
	}
	if strings.TrimSpace(document.Fallback.Name) == "" || strings.TrimSpace(document.Fallback.Greeting) == "" {
		return nil, fmt.Errorf("%w: fallback needs a name and a greeting", ErrInvalidCatalog)
	}
	return &Catalog{companions: document.Companions, fallback: document.Fallback}, nil
}

// Companions lists every persona.
func (c *Catalog) Companions() []Companion {
	return slices.Clone(c.companions)
}

// Lookup finds the persona whose slug matches exactly.
func (c *Catalog) Lookup(slug string) (Companion, bool) {
	for _, companion := range c.companions {
		if companion.Slug == slug {
			return companion, true
		}
	}
	return Companion{}, false
}

// Resolve returns the persona for slug, or the generic fallback persona when
// the slug is unknown. The fallback keeps an empty slug.
func (c *Catalog) Resolve(slug string) (Companion, bool) {
	if companion, ok := c.Lookup(slug); ok {
		return companion, true
	}
	return c.fallback, false
}
