package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func worstIDs(slots []Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if s.Placeholder() {
			out = append(out, "_")
			continue
		}
		out = append(out, s.Visit.ID)
	}
	return out
}

func TestBuildQueuesWorstCaseWithGap(t *testing.T) {
	visits := []*Visit{
		morningVisit("tok4", 4),
		morningVisit("tok1", 1),
		morningVisit("tok2", 2),
	}

	q := BuildQueues(visits)

	assert.Equal(t, 4, q.MaxToken)
	assert.Equal(t, []string{"tok1", "tok2", "_", "tok4"}, worstIDs(q.Worst))
	assert.Equal(t, 3, q.Worst[2].Token)
}

func TestBuildQueuesTokenCollision(t *testing.T) {
	visits := []*Visit{
		morningVisit("zed", 2),
		morningVisit("amy", 2),
		morningVisit("bob", 1),
		morningVisit("untokened", 0),
	}

	q := BuildQueues(visits)

	assert.Equal(t, 2, q.MaxToken)
	assert.Equal(t, []string{"bob", "amy", "zed"}, worstIDs(q.Worst))
}

func TestBuildQueuesNoTokens(t *testing.T) {
	q := BuildQueues([]*Visit{
		morningVisit("a", 0, checkedIn(at(10, 0))),
	})

	assert.Zero(t, q.MaxToken)
	assert.Empty(t, q.Best)
	assert.Empty(t, q.Worst)
}

func TestBuildQueuesBestCaseFiltersAndOrders(t *testing.T) {
	in := at(10, 0)
	visits := []*Visit{
		morningVisit("not-here", 1),
		morningVisit("w3", 3, checkedIn(in), withStatus(StatusWaiting)),
		morningVisit("done", 2, checkedIn(in), withStatus(StatusCompleted)),
		morningVisit("gone", 4, checkedIn(in), withStatus(StatusCancelled)),
		morningVisit("w5", 5, checkedIn(in), withStatus(StatusUpNext)),
		morningVisit("p6", 6, checkedIn(in), withStatus(StatusPriority)),
		morningVisit("reports", 7, checkedIn(in), withStatus(StatusWaitingForReports)),
		morningVisit("walk", 8, checkedIn(in), withStatus(StatusWalkInBooked), walkIn()),
		morningVisit("p9", 9, checkedIn(in), withStatus(StatusPriority)),
	}

	q := BuildQueues(visits)

	assert.Equal(t, []string{"p6", "p9", "w3", "w5", "walk"}, ids(q.Best))
}

func TestBuildQueuesLateInsertAfterAnchor(t *testing.T) {
	in := at(10, 0)
	visits := []*Visit{
		morningVisit("A", 1, checkedIn(in), withStatus(StatusWaiting)),
		morningVisit("B", 2, checkedIn(in), withStatus(StatusCompleted)),
		morningVisit("C", 3, checkedIn(in), withStatus(StatusWaiting)),
		morningVisit("D", 4, checkedIn(in), withStatus(StatusWaiting)),
		morningVisit("X", 5, checkedIn(in), withStatus(StatusWaiting), lateLocked("A", "B")),
	}

	q := BuildQueues(visits)

	// B is no longer queued, so A is the furthest-back anchor still present
	assert.Equal(t, []string{"A", "X", "C", "D"}, ids(q.Best))
}

func TestBuildQueuesLateInsertUsesHighestAnchor(t *testing.T) {
	in := at(10, 0)
	visits := []*Visit{
		morningVisit("A", 1, checkedIn(in), withStatus(StatusWaiting)),
		morningVisit("C", 3, checkedIn(in), withStatus(StatusWaiting)),
		morningVisit("D", 4, checkedIn(in), withStatus(StatusWaiting)),
		morningVisit("X", 5, checkedIn(in), lateLocked("C", "A")),
	}

	q := BuildQueues(visits)

	assert.Equal(t, []string{"A", "C", "X", "D"}, ids(q.Best))
}

func TestBuildQueuesLateWithoutAnchorsGoesFirst(t *testing.T) {
	in := at(10, 0)
	visits := []*Visit{
		morningVisit("A", 1, checkedIn(in), withStatus(StatusWaiting)),
		morningVisit("X", 2, checkedIn(in), lateLocked("gone")),
		morningVisit("Y", 3, checkedIn(in), lateLocked()),
	}

	q := BuildQueues(visits)

	// each anchorless late visit lands at the head in turn
	assert.Equal(t, []string{"Y", "X", "A"}, ids(q.Best))
}

func TestBuildQueuesLateChainsOnEarlierLate(t *testing.T) {
	in := at(10, 0)
	visits := []*Visit{
		morningVisit("A", 1, checkedIn(in), withStatus(StatusWaiting)),
		morningVisit("B", 2, checkedIn(in), withStatus(StatusWaiting)),
		morningVisit("X", 3, checkedIn(in), lateLocked("A")),
		morningVisit("Y", 4, checkedIn(in), lateLocked("X")),
	}

	q := BuildQueues(visits)

	assert.Equal(t, []string{"A", "X", "Y", "B"}, ids(q.Best))
}

func TestBuildQueuesPriorityBeatsLateLock(t *testing.T) {
	in := at(10, 0)
	visits := []*Visit{
		morningVisit("A", 1, checkedIn(in), withStatus(StatusWaiting)),
		morningVisit("P", 2, checkedIn(in), withStatus(StatusPriority), lateLocked("A")),
	}

	q := BuildQueues(visits)

	assert.Equal(t, []string{"P", "A"}, ids(q.Best))
}

func TestInsertLateSkipsDuplicates(t *testing.T) {
	a := morningVisit("A", 1)
	x := morningVisit("X", 2, lateLocked("A"))

	q := insertLate([]*Visit{a, x}, x)

	require.Len(t, q, 2)
	assert.Equal(t, []string{"A", "X"}, ids(q))
}

func TestBuildQueuesDoesNotMutateAnchors(t *testing.T) {
	in := at(10, 0)
	x := morningVisit("X", 3, checkedIn(in), lateLocked("A", "B"))
	visits := []*Visit{
		morningVisit("A", 1, checkedIn(in), withStatus(StatusWaiting)),
		x,
	}

	BuildQueues(visits)

	assert.Equal(t, []string{"A", "B"}, x.LateAnchors)
}
