package input

import (
	"math"

	"bilancio/internal/core"
)

// SlotBounds is the horizontal extent of one month column, in whatever
// coordinate space the pointer is reported in.
type SlotBounds struct {
	Start float64
	End   float64
}

func (b SlotBounds) center() float64 {
	return (b.Start + b.End) / 2
}

// ResolveTargetSlot projects a pointer coordinate onto the nearest slot and
// returns its 0-based index, or -1 when there are no slots. A pointer inside
// a slot resolves to it; otherwise the closest centre wins, ties going to
// the lower index.
func ResolveTargetSlot(pointer float64, slots []SlotBounds) int {
	best := -1
	bestDist := math.Inf(1)
	for i, s := range slots {
		if pointer >= s.Start && pointer <= s.End {
			return i
		}
		if d := math.Abs(pointer - s.center()); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// FillRange orders source and target into an inclusive range.
func FillRange(source, target int) (from, to int) {
	if source <= target {
		return source, target
	}
	return target, source
}

// ApplyFill copies the value at source (1-based month) onto every month in
// the inclusive range up to target, overwriting what was there. It reports
// false and leaves m untouched when source equals target or either month is
// out of range.
func ApplyFill(m *core.Months, source, target int) bool {
	if source == target || !core.ValidMonth(source) || !core.ValidMonth(target) {
		return false
	}
	v := m.At(source)
	from, to := FillRange(source, target)
	for month := from; month <= to; month++ {
		_ = m.Set(month, v)
	}
	return true
}
