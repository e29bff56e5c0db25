package dtr

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Punch is one raw attendance log entering classification. Direction is
// DirectionNone until the matcher assigns one.
type Punch struct {
	ID        uuid.UUID
	At        time.Time
	Direction Direction
}

// MatchResult is the outcome of classifying a punch set. DroppedCount is
// kept for auditing; the matcher itself never discards a punch, because a
// silently dropped punch corrupts the hours-worked computation.
type MatchResult struct {
	Punches      []Punch
	DroppedCount int
}

// Pair is one worked interval. Out is nil while the shift is still open.
type Pair struct {
	In  *Punch
	Out *Punch
}

// ProcessResult is the paired view of a classified punch set. FirstIn and
// LastOut anchor total elapsed time regardless of intermediate pairs.
type ProcessResult struct {
	Pairs   []Pair
	FirstIn *Punch
	LastOut *Punch
}

// MatchToSchedule assigns a direction to every punch in the set.
//
// Punches that already carry a direction are left untouched. Undirected
// punches take the direction of nearby schedule events when every event
// within the tolerance agrees; when the neighborhood is ambiguous (or
// empty) and the whole set arrived undirected, the boundary policy
// applies: the earliest punch is in, the latest is out (a lone punch
// counts as in), and punches between them alternate. No input punch is
// ever dropped.
//
// The result is deterministic for identical input ordering.
func MatchToSchedule(punches []Punch, events []ScheduleEvent, tolerance time.Duration) MatchResult {
	out := make([]Punch, len(punches))
	copy(out, punches)
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })

	allUndirected := true
	for _, p := range out {
		if p.Direction != DirectionNone {
			allUndirected = false
			break
		}
	}

	// Proximity pass: adopt the schedule direction only when it is
	// unambiguous for the punch.
	resolved := make([]bool, len(out))
	for i := range out {
		if out[i].Direction != DirectionNone {
			resolved[i] = true
			continue
		}
		if dir, ok := nearestDirection(out[i].At, events, tolerance); ok {
			out[i].Direction = dir
			resolved[i] = true
		}
	}

	allResolved := true
	for _, r := range resolved {
		if !r {
			allResolved = false
			break
		}
	}

	if len(out) > 0 && allUndirected && !allResolved {
		// Boundary policy: the first punch of a shift is a clock-in and
		// the last is a clock-out, whatever the schedule says. A lone
		// punch is the shift's start, so in wins over out there.
		out[0].Direction = DirectionIn
		resolved[0] = true
		if len(out) > 1 {
			out[len(out)-1].Direction = DirectionOut
			resolved[len(out)-1] = true
		}
	}

	// Whatever neither rule classified alternates from the earliest
	// punch rather than being discarded.
	for i := range out {
		if !resolved[i] {
			if i%2 == 0 {
				out[i].Direction = DirectionIn
			} else {
				out[i].Direction = DirectionOut
			}
		}
	}

	return MatchResult{Punches: out, DroppedCount: 0}
}

// nearestDirection reports the agreed direction of the schedule events
// within tolerance of the punch. ok=false when no event is near enough or
// the nearby events disagree.
func nearestDirection(at time.Time, events []ScheduleEvent, tolerance time.Duration) (Direction, bool) {
	var dir Direction
	found := false
	for _, e := range events {
		d := at.Sub(e.At)
		if d < 0 {
			d = -d
		}
		if d > tolerance {
			continue
		}
		if !found {
			dir = e.Direction
			found = true
			continue
		}
		if e.Direction != dir {
			return DirectionNone, false
		}
	}
	return dir, found
}

// Process sorts a classified punch set chronologically and pairs each in
// with the next unconsumed out. A trailing in without an out yields an
// open pair. Leading outs join no pair but still count toward LastOut.
func Process(punches []Punch) ProcessResult {
	sorted := make([]Punch, len(punches))
	copy(sorted, punches)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At.Before(sorted[j].At) })

	var result ProcessResult
	consumed := make([]bool, len(sorted))

	for i := range sorted {
		p := &sorted[i]
		switch p.Direction {
		case DirectionIn:
			if result.FirstIn == nil {
				result.FirstIn = p
			}
			if consumed[i] {
				continue
			}
			pair := Pair{In: p}
			for j := i + 1; j < len(sorted); j++ {
				if sorted[j].Direction == DirectionOut && !consumed[j] {
					pair.Out = &sorted[j]
					consumed[j] = true
					break
				}
			}
			consumed[i] = true
			result.Pairs = append(result.Pairs, pair)
		case DirectionOut:
			result.LastOut = &sorted[i]
		}
	}

	return result
}

// TotalWorkMinutes sums the duration of complete pairs only; an open
// shift contributes nothing until it closes.
func TotalWorkMinutes(pairs []Pair) int {
	total := 0
	for _, p := range pairs {
		if p.In == nil || p.Out == nil {
			continue
		}
		total += int(p.Out.At.Sub(p.In.At) / time.Minute)
	}
	return total
}
