package garden

import (
	"math"
	"time"
)

// Stage is the life-cycle stage of a planted item.
type Stage string

const (
	StageUnplanted Stage = "unplanted"
	StageGrowing   Stage = "growing"
	StageWeed      Stage = "weed"
)

// LifeCycle carries every time constant used by the life-cycle arithmetic.
type LifeCycle struct {
	UpdateInterval  time.Duration // length of one tick
	LifeCycleLength int           // ticks an item stays GROWING
	WeedInterval    int           // ticks per additional weed
	RoundTo         time.Duration // timestamp granularity
	PlantDelay      time.Duration // offset applied to new plantings
	RegrowJitter    time.Duration // upper bound of the post-weeding offset
	GrowthSteps     int           // visual growth steps per sub-position
}

// DefaultLifeCycle returns the production constants.
func DefaultLifeCycle() LifeCycle {
	return LifeCycle{
		UpdateInterval:  2 * time.Second,
		LifeCycleLength: 240,
		WeedInterval:    80,
		RoundTo:         5 * time.Second,
		PlantDelay:      10 * time.Second,
		RegrowJitter:    10 * time.Second,
		GrowthSteps:     3,
	}
}

// Lifetime is how long an item stays GROWING.
func (lc LifeCycle) Lifetime() time.Duration {
	return lc.UpdateInterval * time.Duration(lc.LifeCycleLength)
}

// Round truncates t to the configured granularity, in unix milliseconds.
func (lc LifeCycle) Round(t time.Time) int64 {
	step := lc.RoundTo.Milliseconds()
	ms := t.UnixMilli()
	if step <= 0 {
		return ms
	}
	return int64(math.Floor(float64(ms)/float64(step))) * step
}

// ElapsedTicks returns floor((now - ts) / interval) + 1.
func (lc LifeCycle) ElapsedTicks(item PlantedItem, now time.Time) int {
	interval := float64(lc.UpdateInterval.Milliseconds())
	return int(math.Floor(float64(now.UnixMilli()-item.Timestamp)/interval)) + 1
}

// Stage derives the item's stage from elapsed time.
func (lc LifeCycle) Stage(item PlantedItem, now time.Time) Stage {
	if item.Timestamp <= 0 {
		return StageUnplanted
	}
	if lc.ElapsedTicks(item, now) <= lc.LifeCycleLength {
		return StageGrowing
	}
	return StageWeed
}

// WeedCount returns how many weeds an item shows. It never exceeds the
// item's number of sub-positions and is 0 outside the weed cycle.
func (lc LifeCycle) WeedCount(item PlantedItem, subPositions int, now time.Time) int {
	if !item.Category.Weedable() || lc.Stage(item, now) != StageWeed {
		return 0
	}
	dif := float64(lc.ElapsedTicks(item, now)-lc.LifeCycleLength) / float64(lc.WeedInterval)
	dif = math.Max(0, math.Min(dif, float64(subPositions)))
	return int(math.Ceil(dif))
}

// Growth returns the visual growth fraction in [0, 1] of one sub-position.
// Sub-positions sprout one tick after another.
func (lc LifeCycle) Growth(item PlantedItem, subIndex int, now time.Time) float64 {
	if item.Timestamp <= 0 || lc.GrowthSteps <= 0 {
		return 0
	}
	steps := lc.ElapsedTicks(item, now) - subIndex
	steps = max(0, min(steps, lc.GrowthSteps))
	return float64(steps) / float64(lc.GrowthSteps)
}

// PlantTimestamp is the timestamp stored for an item planted at now.
func (lc LifeCycle) PlantTimestamp(now time.Time) int64 {
	return lc.Round(now.Add(lc.PlantDelay))
}

// WeedResult is the outcome of a weeding pass.
type WeedResult struct {
	Items  GardenProgress
	Weeded int
}

// Changed reports whether any item was weeded.
func (r WeedResult) Changed() bool {
	return r.Weeded > 0
}

// Weed resets every overgrown weed-cycle item to a fresh timestamp a few
// seconds in the future. The input slice is not modified.
func (lc LifeCycle) Weed(items GardenProgress, now time.Time, rng Random) WeedResult {
	rounded := lc.Round(now)
	threshold := rounded - lc.Lifetime().Milliseconds()
	jitterSteps := int(lc.RegrowJitter / time.Second)

	out := make(GardenProgress, len(items))
	copy(out, items)
	weeded := 0
	for i, it := range out {
		if !it.Category.Weedable() || it.Timestamp <= 0 || it.Timestamp > threshold {
			continue
		}
		offset := int64(1)
		if jitterSteps > 1 {
			offset += int64(rng.IntN(jitterSteps))
		}
		out[i].Timestamp = rounded + offset*time.Second.Milliseconds()
		weeded++
	}
	return WeedResult{Items: out, Weeded: weeded}
}

// FirstWeedAt returns when the first flower planted in t goes to weed, in
// unix milliseconds. It reports false when no such flower exists.
func (lc LifeCycle) FirstWeedAt(t Template, progress GardenProgress) (int64, bool) {
	for _, it := range progress {
		if it.Category != Flowers || it.Timestamp <= 0 {
			continue
		}
		if _, ok := t.Slot(it.Spot()); !ok {
			continue
		}
		return it.Timestamp + lc.Lifetime().Milliseconds(), true
	}
	return 0, false
}
