package garden

// AvailableSpots is the ordered set of unfilled slots. Order follows
// Categories and then template slot order.
type AvailableSpots []Spot

// ComputeAvailable returns every slot of t not present in progress. Progress
// entries pointing at slots the template does not have are ignored.
func ComputeAvailable(t Template, progress GardenProgress) AvailableSpots {
	taken := make(map[Spot]struct{}, len(progress))
	for _, it := range progress {
		taken[it.Spot()] = struct{}{}
	}

	out := AvailableSpots{}
	for _, c := range Categories {
		for _, s := range t.SlotsOf(c) {
			if _, ok := taken[s.Spot()]; ok {
				continue
			}
			out = append(out, s.Spot())
		}
	}
	return out
}

// Len returns the number of available spots.
func (a AvailableSpots) Len() int {
	return len(a)
}

// Contains reports whether spot is available.
func (a AvailableSpots) Contains(spot Spot) bool {
	for _, s := range a {
		if s == spot {
			return true
		}
	}
	return false
}

// Remove drops spot after a fill. It reports false when spot was not available.
func (a AvailableSpots) Remove(spot Spot) (AvailableSpots, bool) {
	for i, s := range a {
		if s == spot {
			out := make(AvailableSpots, 0, len(a)-1)
			out = append(out, a[:i]...)
			return append(out, a[i+1:]...), true
		}
	}
	return a, false
}

// Add returns spot to the pool after a removal. Adding a spot twice is a no-op.
func (a AvailableSpots) Add(spot Spot) AvailableSpots {
	if a.Contains(spot) {
		return a
	}
	out := make(AvailableSpots, len(a), len(a)+1)
	copy(out, a)
	return append(out, spot)
}

// First returns the first available spot of category c.
func (a AvailableSpots) First(c Category) (Spot, bool) {
	for _, s := range a {
		if s.Category == c {
			return s, true
		}
	}
	return Spot{}, false
}

// SameSet reports whether a and b hold the same spots regardless of order.
func (a AvailableSpots) SameSet(b AvailableSpots) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[Spot]int, len(a))
	for _, s := range a {
		set[s]++
	}
	for _, s := range b {
		if set[s] == 0 {
			return false
		}
		set[s]--
	}
	return true
}
