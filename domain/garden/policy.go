package garden

// Random is the injected randomness source. *math/rand/v2.Rand satisfies it.
type Random interface {
	IntN(n int) int
}

// SelectNext picks the slot the next question will fill. The first flower
// comes first, then the background, then the path; after that any open slot
// is chosen uniformly. It reports false when the garden is full.
func SelectNext(available AvailableSpots, progress UserProgress, rng Random) (Spot, bool) {
	if len(available) == 0 {
		return Spot{}, false
	}
	if progress.Get(Flowers) == 0 {
		if s, ok := available.First(Flowers); ok {
			return s, true
		}
	}
	if s, ok := available.First(Background); ok {
		return s, true
	}
	if s, ok := available.First(Path); ok {
		return s, true
	}
	return available[rng.IntN(len(available))], true
}
