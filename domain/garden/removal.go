package garden

import "strings"

// DisplayIndex maps the transient removal badge numbers shown to the user to
// the slots they label.
type DisplayIndex map[int]Spot

// NumberRemovable assigns display ids 1..N to the removable items of progress
// in list order. Items whose slot is missing from t get no id.
func NumberRemovable(t Template, progress GardenProgress) DisplayIndex {
	idx := DisplayIndex{}
	next := 1
	for _, it := range progress {
		slot, ok := t.Slot(it.Spot())
		if !ok || !slot.Removable || !it.Category.Removable() {
			continue
		}
		idx[next] = it.Spot()
		next++
	}
	return idx
}

// IDOf returns the display id of spot.
func (d DisplayIndex) IDOf(spot Spot) (int, bool) {
	for id, s := range d {
		if s == spot {
			return id, true
		}
	}
	return 0, false
}

// Removal is the result of RemoveByDisplayID.
type Removal struct {
	Items  GardenProgress
	Labels []string
	Freed  []Spot
}

// Removed returns how many items were removed.
func (r Removal) Removed() int {
	return len(r.Freed)
}

// RemoveByDisplayID removes the items the user named by badge number. Every
// id resolves against index as it was before any removal. Unknown ids, ids
// naming already removed items and non-removable categories are ignored.
func RemoveByDisplayID(progress GardenProgress, index DisplayIndex, ids []int) Removal {
	out := Removal{Items: progress}
	for _, id := range ids {
		spot, ok := index[id]
		if !ok || !spot.Category.Removable() {
			continue
		}
		item, ok := out.Items.Find(spot)
		if !ok {
			continue
		}
		out.Items = out.Items.Without(spot)
		out.Labels = append(out.Labels, item.Label)
		out.Freed = append(out.Freed, spot)
	}
	return out
}

// JoinLabels renders labels for speech as "a, b and c".
func JoinLabels(labels []string) string {
	switch len(labels) {
	case 0:
		return ""
	case 1:
		return labels[0]
	}
	return strings.Join(labels[:len(labels)-1], ", ") + " and " + labels[len(labels)-1]
}
