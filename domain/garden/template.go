package garden

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCatalog    = errors.New("template catalog is empty")
	ErrDuplicateSlot   = errors.New("duplicate slot id")
	ErrUnknownCategory = errors.New("unknown category")
)

// Point is a normalised render coordinate in [-1, 1].
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// SizeClass is the visual size bucket of a slot.
type SizeClass string

const (
	SizeSmall  SizeClass = "sm"
	SizeMedium SizeClass = "md"
	SizeLarge  SizeClass = "lg"
)

// Scale returns the numeric size for the class. Unknown classes render small.
func (s SizeClass) Scale() float64 {
	switch s {
	case SizeMedium:
		return 2
	case SizeLarge:
		return 3
	default:
		return 1
	}
}

// Slot is a fixed placement position in a garden template.
type Slot struct {
	ID        int       `json:"id" yaml:"id" validate:"min=1"`
	Category  Category  `json:"category" yaml:"category" validate:"required"`
	Size      SizeClass `json:"size" yaml:"size" validate:"omitempty,oneof=sm md lg"`
	Items     []Point   `json:"items" yaml:"items" validate:"required,min=1"`
	GnomePos  Point     `json:"gnomePos" yaml:"gnomePos"`
	BadgePos  Point     `json:"badgePos" yaml:"badgePos"`
	Removable bool      `json:"removable" yaml:"removable"`
}

// Spot returns the (category, id) pair addressing this slot.
func (s Slot) Spot() Spot {
	return Spot{Category: s.Category, ID: s.ID}
}

// Template is an immutable garden layout.
type Template struct {
	Index int    `json:"index" yaml:"index"`
	Name  string `json:"name" yaml:"name" validate:"required"`
	Slots []Slot `json:"slots" yaml:"slots" validate:"required,min=1,dive"`
}

// Slot looks up a slot by category and id.
func (t Template) Slot(spot Spot) (Slot, bool) {
	for _, s := range t.Slots {
		if s.Category == spot.Category && s.ID == spot.ID {
			return s, true
		}
	}
	return Slot{}, false
}

// SlotsOf returns the slots of one category in template order.
func (t Template) SlotsOf(c Category) []Slot {
	var out []Slot
	for _, s := range t.Slots {
		if s.Category == c {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks category names and slot id uniqueness within a category.
func (t Template) Validate() error {
	seen := make(map[Spot]struct{}, len(t.Slots))
	for _, s := range t.Slots {
		if !s.Category.Valid() {
			return fmt.Errorf("template %q slot %d: %w %q", t.Name, s.ID, ErrUnknownCategory, s.Category)
		}
		if _, dup := seen[s.Spot()]; dup {
			return fmt.Errorf("template %q: %w %s/%d", t.Name, ErrDuplicateSlot, s.Category, s.ID)
		}
		seen[s.Spot()] = struct{}{}
	}
	return nil
}

// TemplateCatalog is the static list of garden templates.
type TemplateCatalog struct {
	templates []Template
}

// NewTemplateCatalog validates and indexes templates. Indexes are assigned
// 1..n in the given order.
func NewTemplateCatalog(templates []Template) (*TemplateCatalog, error) {
	if len(templates) == 0 {
		return nil, ErrEmptyCatalog
	}
	out := make([]Template, len(templates))
	for i, t := range templates {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		t.Index = i + 1
		out[i] = t
	}
	return &TemplateCatalog{templates: out}, nil
}

// Len returns the number of templates.
func (c *TemplateCatalog) Len() int {
	return len(c.templates)
}

// Get returns the template for a 1-based index. Unknown indexes fall back to
// the first template so a stored choice never strands a player.
func (c *TemplateCatalog) Get(index int) Template {
	if index < 1 || index > len(c.templates) {
		return c.templates[0]
	}
	return c.templates[index-1]
}

// Pick chooses a template index uniformly from [1, n].
func (c *TemplateCatalog) Pick(rng Random) int {
	return rng.IntN(len(c.templates)) + 1
}

// All returns a copy of the templates in catalog order.
func (c *TemplateCatalog) All() []Template {
	out := make([]Template, len(c.templates))
	copy(out, c.templates)
	return out
}
