package garden

import (
	"errors"
	"fmt"
)

var ErrSlotTaken = errors.New("slot already planted")

// Spot addresses one slot of the active template.
type Spot struct {
	Category Category `json:"category" validate:"required"`
	ID       int      `json:"id" validate:"min=1"`
}

func (s Spot) String() string {
	return fmt.Sprintf("%s/%d", s.Category, s.ID)
}

// UserProgress holds the per-category question index.
type UserProgress struct {
	Flowers    int `json:"flowers" validate:"min=0"`
	Background int `json:"background" validate:"min=0"`
	Path       int `json:"path" validate:"min=0"`
	Seat       int `json:"seat" validate:"min=0"`
	Secondary  int `json:"secondary" validate:"min=0"`
	Hero       int `json:"hero" validate:"min=0"`
}

// Get returns the question index for c.
func (p UserProgress) Get(c Category) int {
	switch c {
	case Flowers:
		return p.Flowers
	case Background:
		return p.Background
	case Path:
		return p.Path
	case Seat:
		return p.Seat
	case Secondary:
		return p.Secondary
	case Hero:
		return p.Hero
	}
	return 0
}

// With returns a copy of p with the index for c replaced.
func (p UserProgress) With(c Category, v int) UserProgress {
	switch c {
	case Flowers:
		p.Flowers = v
	case Background:
		p.Background = v
	case Path:
		p.Path = v
	case Seat:
		p.Seat = v
	case Secondary:
		p.Secondary = v
	case Hero:
		p.Hero = v
	}
	return p
}

// PlantedItem records an asset placed into a slot.
type PlantedItem struct {
	Category  Category `json:"category" validate:"required"`
	Slot      int      `json:"slot" validate:"min=1"`
	AssetID   string   `json:"assetId" validate:"required"`
	Label     string   `json:"label"`
	Timestamp int64    `json:"timestamp"`
}

// Spot returns the slot address of the item.
func (i PlantedItem) Spot() Spot {
	return Spot{Category: i.Category, ID: i.Slot}
}

// GardenProgress is the ordered list of planted items. Order matters: it
// drives removal display numbering and the first-weed reference item.
type GardenProgress []PlantedItem

// Find returns the item planted in spot.
func (g GardenProgress) Find(spot Spot) (PlantedItem, bool) {
	for _, it := range g {
		if it.Spot() == spot {
			return it, true
		}
	}
	return PlantedItem{}, false
}

// Plant appends item, refusing a second item in the same slot.
func (g GardenProgress) Plant(item PlantedItem) (GardenProgress, error) {
	if _, ok := g.Find(item.Spot()); ok {
		return g, fmt.Errorf("%w: %s", ErrSlotTaken, item.Spot())
	}
	out := make(GardenProgress, len(g), len(g)+1)
	copy(out, g)
	return append(out, item), nil
}

// Without returns a copy of g minus the item in spot.
func (g GardenProgress) Without(spot Spot) GardenProgress {
	out := make(GardenProgress, 0, len(g))
	for _, it := range g {
		if it.Spot() != spot {
			out = append(out, it)
		}
	}
	return out
}

// Count returns how many items of category c are planted.
func (g GardenProgress) Count(c Category) int {
	n := 0
	for _, it := range g {
		if it.Category == c {
			n++
		}
	}
	return n
}
