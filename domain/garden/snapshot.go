package garden

import "time"

// RenderedItem is one planted item as the canvas draws it.
type RenderedItem struct {
	Category  Category  `json:"category"`
	Slot      int       `json:"slot"`
	AssetID   string    `json:"assetId"`
	Label     string    `json:"label,omitempty"`
	Timestamp int64     `json:"timestamp"`
	RemoveID  int       `json:"removeId,omitempty"`
	Stage     Stage     `json:"stage"`
	Weeds     int       `json:"weeds"`
	Size      float64   `json:"size"`
	Points    []Point   `json:"points"`
	Growth    []float64 `json:"growth"`
	BadgePos  Point     `json:"badgePos"`
}

// Snapshot renders every planted item that still has a slot in t. Items are
// emitted in progress order.
func Snapshot(t Template, progress GardenProgress, lc LifeCycle, now time.Time) []RenderedItem {
	index := NumberRemovable(t, progress)
	out := make([]RenderedItem, 0, len(progress))
	for _, it := range progress {
		slot, ok := t.Slot(it.Spot())
		if !ok {
			continue
		}
		r := RenderedItem{
			Category:  it.Category,
			Slot:      it.Slot,
			AssetID:   it.AssetID,
			Label:     it.Label,
			Timestamp: it.Timestamp,
			Stage:     lc.Stage(it, now),
			Weeds:     lc.WeedCount(it, len(slot.Items), now),
			Size:      slot.Size.Scale(),
			Points:    slot.Items,
			BadgePos:  slot.BadgePos,
			Growth:    make([]float64, len(slot.Items)),
		}
		if id, ok := index.IDOf(it.Spot()); ok {
			r.RemoveID = id
		}
		for i := range slot.Items {
			r.Growth[i] = lc.Growth(it, i, now)
		}
		out = append(out, r)
	}
	return out
}
