// Package garden holds the garden-progress engine: templates, slot
// allocation, next-slot selection, planted-item life-cycle and removal.
// Everything here is pure and deterministic given its inputs.
package garden

import (
	"fmt"
	"strings"
)

// Category is an asset category. Each template slot belongs to exactly one.
type Category string

const (
	Flowers    Category = "flowers"
	Background Category = "background"
	Path       Category = "path"
	Seat       Category = "seat"
	Secondary  Category = "secondary"
	Hero       Category = "hero"
)

// Categories lists every category in canonical order. Available spots are
// enumerated in this order.
var Categories = []Category{Flowers, Background, Path, Seat, Secondary, Hero}

// ParseCategory converts a raw string to a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case Flowers, Background, Path, Seat, Secondary, Hero:
		return true
	}
	return false
}

// Removable reports whether end users may remove items of this category.
func (c Category) Removable() bool {
	return c == Flowers
}

// Weedable reports whether items of this category run the weed cycle.
func (c Category) Weedable() bool {
	return c == Flowers
}

func (c Category) String() string {
	return string(c)
}
