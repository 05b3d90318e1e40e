package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignETCsWorstCaseWithPlaceholder(t *testing.T) {
	anchor := at(10, 30)
	visits := []*Visit{
		morningVisit("tok1", 1),
		morningVisit("tok2", 2),
		morningVisit("tok4", 4),
	}
	ps := make(PatchSet)

	AssignETCs(BuildQueues(visits), anchor, 5*time.Minute, ps)

	require.Contains(t, ps, "tok4")
	assert.True(t, ps["tok4"].WorstCaseETC.Equal(anchor.Add(15*time.Minute)))
	// nobody is checked in, so best case mirrors worst case
	assert.True(t, ps["tok4"].BestCaseETC.Equal(*ps["tok4"].WorstCaseETC))
	assert.True(t, ps["tok1"].WorstCaseETC.Equal(anchor))
	assert.True(t, ps["tok2"].WorstCaseETC.Equal(anchor.Add(5*time.Minute)))
}

func TestAssignETCsBestAndWorst(t *testing.T) {
	anchor := at(11, 0)
	in := at(10, 0)
	visits := []*Visit{
		morningVisit("a", 1),
		morningVisit("b", 2, checkedIn(in), withStatus(StatusWaiting)),
		morningVisit("c", 3, checkedIn(in), withStatus(StatusWaiting)),
	}
	ps := make(PatchSet)

	AssignETCs(BuildQueues(visits), anchor, 5*time.Minute, ps)

	assert.True(t, ps["b"].BestCaseETC.Equal(anchor))
	assert.True(t, ps["b"].WorstCaseETC.Equal(anchor.Add(5*time.Minute)))
	assert.True(t, ps["c"].BestCaseETC.Equal(anchor.Add(5*time.Minute)))
	assert.True(t, ps["c"].WorstCaseETC.Equal(anchor.Add(10*time.Minute)))
	assert.Nil(t, ps["a"].Status)
}

func TestAssignETCsClampsWorstToBest(t *testing.T) {
	anchor := at(11, 0)
	in := at(10, 0)
	// late X jumps behind A in the best queue but holds token 1
	visits := []*Visit{
		morningVisit("X", 1, checkedIn(in), lateLocked("B")),
		morningVisit("A", 2, checkedIn(in), withStatus(StatusWaiting)),
		morningVisit("B", 3, checkedIn(in), withStatus(StatusWaiting)),
	}
	ps := make(PatchSet)

	q := BuildQueues(visits)
	require.Equal(t, []string{"A", "B", "X"}, ids(q.Best))

	AssignETCs(q, anchor, 5*time.Minute, ps)

	best := anchor.Add(10 * time.Minute)
	assert.True(t, ps["X"].BestCaseETC.Equal(best))
	assert.True(t, ps["X"].WorstCaseETC.Equal(best), "worst clamped up to best")
}

func TestAssignETCsBestOnlyVisit(t *testing.T) {
	anchor := at(11, 0)
	visits := []*Visit{
		morningVisit("tok1", 1),
		morningVisit("untokened", 0, checkedIn(at(10, 0)), withStatus(StatusWaiting)),
	}
	ps := make(PatchSet)

	AssignETCs(BuildQueues(visits), anchor, 5*time.Minute, ps)

	require.Contains(t, ps, "untokened")
	assert.True(t, ps["untokened"].BestCaseETC.Equal(anchor))
	assert.True(t, ps["untokened"].WorstCaseETC.Equal(anchor))
}

func TestAssignETCsWorstNeverBeforeBest(t *testing.T) {
	in := at(10, 0)
	visits := []*Visit{
		morningVisit("a", 1, checkedIn(in), withStatus(StatusWaiting)),
		morningVisit("b", 2),
		morningVisit("c", 4, checkedIn(in), withStatus(StatusPriority)),
		morningVisit("d", 5, checkedIn(in), lateLocked("c")),
		morningVisit("e", 5, checkedIn(in), withStatus(StatusWaiting)),
		morningVisit("f", 7, checkedIn(in), lateLocked()),
		morningVisit("g", 0, checkedIn(in), withStatus(StatusWaiting)),
	}
	ps := make(PatchSet)

	AssignETCs(BuildQueues(visits), at(10, 30), 7*time.Minute, ps)

	for id, p := range ps {
		require.NotNil(t, p.BestCaseETC, id)
		require.NotNil(t, p.WorstCaseETC, id)
		assert.False(t, p.WorstCaseETC.Before(*p.BestCaseETC), id)
	}
}
