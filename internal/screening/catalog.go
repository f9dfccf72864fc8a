package screening

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

var (
	// ErrUnknownInstrument indicates the questionnaire id is not in the catalog.
	ErrUnknownInstrument = errors.New("screening: unknown instrument")
	// ErrInvalidCatalog indicates a catalog document that cannot be scored.
	ErrInvalidCatalog = errors.New("screening: invalid catalog")
)

// Option is one answer choice and the points it carries.
type Option struct {
	Label string `yaml:"label" json:"label"`
	Value int    `yaml:"value" json:"value"`
}

// Band maps totals up to Max (inclusive) to a severity. The last band has no
// Max and catches every higher total.
type Band struct {
	Max      *int   `yaml:"max" json:"max,omitempty"`
	Severity string `yaml:"severity" json:"severity"`
	Label    string `yaml:"label" json:"label"`
}

// Instrument is a questionnaire definition.
type Instrument struct {
	ID            string   `yaml:"id" json:"id"`
	Title         string   `yaml:"title" json:"title"`
	Prompt        string   `yaml:"prompt" json:"prompt"`
	Options       []Option `yaml:"options" json:"options"`
	Questions     []string `yaml:"questions" json:"questions"`
	ReverseScored []int    `yaml:"reverse_scored" json:"reverse_scored,omitempty"`
	Bands         []Band   `yaml:"bands" json:"bands"`
}

// MaxOptionValue is the highest points a single answer can carry.
func (i Instrument) MaxOptionValue() int {
	highest := 0
	for _, option := range i.Options {
		highest = max(highest, option.Value)
	}
	return highest
}

// Catalog is the set of available instruments, in declaration order.
type Catalog struct {
	instruments []Instrument
}

type catalogDocument struct {
	Instruments []Instrument `yaml:"instruments"`
}

// DefaultCatalog parses the embedded PHQ-9, GAD-7 and PSS-10 definitions.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// ParseCatalog decodes and validates a YAML catalog document.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var document catalogDocument
	if err := yaml.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	seen := make(map[string]struct{}, len(document.Instruments))
	for index := range document.Instruments {
		instrument := &document.Instruments[index]
		instrument.ID = strings.ToLower(strings.TrimSpace(instrument.ID))
		if err := validateInstrument(*instrument); err != nil {
			return nil, err
		}
		if _, dup := seen[instrument.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate instrument %q", ErrInvalidCatalog, instrument.ID)
		}
		seen[instrument.ID] = struct{}{}
	}
	return &Catalog{instruments: document.Instruments}, nil
}

func validateInstrument(instrument Instrument) error {
	if instrument.ID == "" {
		return fmt.Errorf("%w: instrument without id", ErrInvalidCatalog)
	}
	if len(instrument.Questions) == 0 || len(instrument.Options) == 0 {
		return fmt.Errorf("%w: %s has no questions or options", ErrInvalidCatalog, instrument.ID)
	}
	if len(instrument.Bands) == 0 || instrument.Bands[len(instrument.Bands)-1].Max != nil {
		return fmt.Errorf("%w: %s needs an open-ended last band", ErrInvalidCatalog, instrument.ID)
	}
	previous := -1
	for _, band := range instrument.Bands[:len(instrument.Bands)-1] {
		if band.Max == nil || *band.Max <= previous {
			return fmt.Errorf("%w: %s bands must have increasing cutoffs", ErrInvalidCatalog, instrument.ID)
		}
		previous = *band.Max
	}
	for _, index := range instrument.ReverseScored {
		if index < 0 || index >= len(instrument.Questions) {
			return fmt.Errorf("%w: %s reverse item %d out of range", ErrInvalidCatalog, instrument.ID, index)
		}
	}
	return nil
}

// Instruments lists every instrument.
func (c *Catalog) Instruments() []Instrument {
	return slices.Clone(c.instruments)
}

// Instrument looks up an instrument by id, case-insensitively.
func (c *Catalog) Instrument(id string) (Instrument, error) {
	key := strings.ToLower(strings.TrimSpace(id))
	for _, instrument := range c.instruments {
		if instrument.ID == key {
			return instrument, nil
		}
	}
	return Instrument{}, fmt.Errorf("%w: %q", ErrUnknownInstrument, id)
}
