package dtr

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var matchTolerance = 90 * time.Minute

func at(hour, min int) time.Time {
	return time.Date(2025, 2, 13, hour, min, 0, 0, time.UTC)
}

func punch(t time.Time, dir Direction) Punch {
	return Punch{ID: uuid.New(), At: t, Direction: dir}
}

// eveningEvents mirrors a 17:00-00:00 split shift: in, break out, break
// in, out past midnight.
func eveningEvents() []ScheduleEvent {
	return []ScheduleEvent{
		{At: at(17, 0), Direction: DirectionIn},
		{At: at(20, 0), Direction: DirectionOut},
		{At: at(21, 0), Direction: DirectionIn},
		{At: at(0, 0).AddDate(0, 0, 1), Direction: DirectionOut},
	}
}

func TestMatchToSchedule_BoundaryScenario(t *testing.T) {
	punches := []Punch{
		punch(at(19, 35), DirectionNone),
		punch(at(20, 37), DirectionNone),
		punch(at(23, 38), DirectionNone),
	}

	result := MatchToSchedule(punches, eveningEvents(), matchTolerance)

	require.Len(t, result.Punches, 3)
	assert.Equal(t, 0, result.DroppedCount)
	assert.Equal(t, DirectionIn, result.Punches[0].Direction)
	assert.Equal(t, DirectionOut, result.Punches[1].Direction)
	assert.Equal(t, DirectionOut, result.Punches[2].Direction)

	processed := Process(result.Punches)
	require.NotNil(t, processed.FirstIn)
	require.NotNil(t, processed.LastOut)
	assert.Equal(t, at(19, 35), processed.FirstIn.At)
	assert.Equal(t, at(23, 38), processed.LastOut.At)
}

func TestMatchToSchedule_FourPunchPairing(t *testing.T) {
	punches := []Punch{
		punch(at(19, 35), DirectionNone),
		punch(at(20, 37), DirectionNone),
		punch(at(21, 5), DirectionNone),
		punch(at(23, 38), DirectionNone),
	}

	result := MatchToSchedule(punches, eveningEvents(), matchTolerance)
	processed := Process(result.Punches)

	complete := 0
	for _, p := range processed.Pairs {
		if p.In != nil && p.Out != nil {
			complete++
		}
	}
	assert.Equal(t, 2, complete)
	assert.Greater(t, TotalWorkMinutes(processed.Pairs), 0)
}

func TestMatchToSchedule_ExplicitDirectionsUntouched(t *testing.T) {
	punches := []Punch{
		punch(at(8, 1), DirectionIn),
		punch(at(12, 2), DirectionOut),
		punch(at(13, 0), DirectionIn),
		punch(at(17, 4), DirectionOut),
	}

	result := MatchToSchedule(punches, eveningEvents(), matchTolerance)
	require.Len(t, result.Punches, 4)
	for i, p := range result.Punches {
		assert.Equal(t, punches[i].Direction, p.Direction, "punch %d direction changed", i)
	}

	// Re-running on the already-classified set changes nothing either
	again := MatchToSchedule(result.Punches, eveningEvents(), matchTolerance)
	assert.Equal(t, result.Punches, again.Punches)
}

func TestMatchToSchedule_NeverDropsPunches(t *testing.T) {
	// Punches nowhere near any schedule event
	punches := []Punch{
		punch(at(3, 11), DirectionNone),
		punch(at(3, 12), DirectionNone),
		punch(at(9, 45), DirectionNone),
		punch(at(11, 7), DirectionNone),
		punch(at(14, 59), DirectionNone),
	}

	result := MatchToSchedule(punches, eveningEvents(), matchTolerance)

	assert.Equal(t, 0, result.DroppedCount)
	assert.Len(t, result.Punches, len(punches))
	for i, p := range result.Punches {
		assert.NotEqual(t, DirectionNone, p.Direction, "punch %d left unclassified", i)
	}
	assert.Equal(t, DirectionIn, result.Punches[0].Direction)
	assert.Equal(t, DirectionOut, result.Punches[len(punches)-1].Direction)
}

func TestMatchToSchedule_LonePunchIsClockIn(t *testing.T) {
	// An employee who forgot to clock out leaves one punch far from any
	// schedule event; it must land as the shift's start, not its end.
	punches := []Punch{punch(at(9, 45), DirectionNone)}

	result := MatchToSchedule(punches, eveningEvents(), matchTolerance)

	require.Len(t, result.Punches, 1)
	assert.Equal(t, DirectionIn, result.Punches[0].Direction)

	processed := Process(result.Punches)
	require.NotNil(t, processed.FirstIn)
	assert.Nil(t, processed.LastOut)
	require.Len(t, processed.Pairs, 1)
	assert.Nil(t, processed.Pairs[0].Out, "lone punch must open a shift")
}

func TestMatchToSchedule_LonePunchNearOutEventKeepsOut(t *testing.T) {
	// Proximity still wins for a single punch when the neighborhood is
	// unambiguous: one punch right at the shift end is a clock-out.
	punches := []Punch{punch(at(23, 50), DirectionNone)}

	result := MatchToSchedule(punches, eveningEvents(), matchTolerance)

	require.Len(t, result.Punches, 1)
	assert.Equal(t, DirectionOut, result.Punches[0].Direction)
}

func TestMatchToSchedule_NoEvents(t *testing.T) {
	punches := []Punch{
		punch(at(8, 0), DirectionNone),
		punch(at(17, 0), DirectionNone),
	}

	result := MatchToSchedule(punches, nil, matchTolerance)

	require.Len(t, result.Punches, 2)
	assert.Equal(t, DirectionIn, result.Punches[0].Direction)
	assert.Equal(t, DirectionOut, result.Punches[1].Direction)
}

func TestProcess_OpenShift(t *testing.T) {
	punches := []Punch{
		punch(at(8, 0), DirectionIn),
		punch(at(12, 0), DirectionOut),
		punch(at(13, 0), DirectionIn),
	}

	result := Process(punches)

	require.Len(t, result.Pairs, 2)
	assert.NotNil(t, result.Pairs[0].Out)
	assert.Nil(t, result.Pairs[1].Out, "trailing in must yield an open pair")
	assert.Equal(t, 240, TotalWorkMinutes(result.Pairs), "open pair must not contribute minutes")
}

func TestProcess_LeadingOutAnchorsLastOut(t *testing.T) {
	// A missed clock-in from yesterday's shift shows up as a lone out
	punches := []Punch{
		punch(at(6, 0), DirectionOut),
		punch(at(8, 0), DirectionIn),
		punch(at(17, 0), DirectionOut),
	}

	result := Process(punches)

	require.Len(t, result.Pairs, 1)
	assert.Equal(t, at(8, 0), result.Pairs[0].In.At)
	assert.Equal(t, at(17, 0), result.Pairs[0].Out.At)
	assert.Equal(t, at(17, 0), result.LastOut.At)
	assert.Equal(t, at(8, 0), result.FirstIn.At)
}

func TestProcess_Deterministic(t *testing.T) {
	punches := []Punch{
		punch(at(8, 0), DirectionIn),
		punch(at(12, 0), DirectionOut),
		punch(at(13, 0), DirectionIn),
		punch(at(17, 0), DirectionOut),
	}

	first := Process(punches)
	second := Process(punches)
	assert.Equal(t, first.Pairs, second.Pairs)
}
