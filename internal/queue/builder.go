package queue

import (
	"slices"
	"sort"
)

// Slot is one position of the worst-case walk. A nil Visit is a placeholder
// for a token nobody holds; it still consumes a slot of doctor time.
type Slot struct {
	Token int
	Visit *Visit
}

func (s Slot) Placeholder() bool {
	return s.Visit == nil
}

type Queues struct {
	Best     []*Visit
	Worst    []Slot
	MaxToken int
}

// BuildQueues derives the best-case and worst-case orderings for the visits
// of one session.
func BuildQueues(visits []*Visit) Queues {
	maxToken := maxTokenUsed(visits)
	if maxToken == 0 {
		return Queues{}
	}
	return Queues{
		Best:     bestQueue(visits),
		Worst:    worstQueue(visits, maxToken),
		MaxToken: maxToken,
	}
}

func maxTokenUsed(visits []*Visit) int {
	top := 0
	for _, v := range visits {
		if v.TokenNo > top {
			top = v.TokenNo
		}
	}
	return top
}

func worstQueue(visits []*Visit, maxToken int) []Slot {
	byToken := make(map[int][]*Visit)
	for _, v := range visits {
		if v.TokenNo > 0 {
			byToken[v.TokenNo] = append(byToken[v.TokenNo], v)
		}
	}

	out := make([]Slot, 0, maxToken)
	for t := 1; t <= maxToken; t++ {
		holders := byToken[t]
		if len(holders) == 0 {
			out = append(out, Slot{Token: t})
			continue
		}
		sort.Slice(holders, func(i, j int) bool { return holders[i].ID < holders[j].ID })
		for _, v := range holders {
			out = append(out, Slot{Token: t, Visit: v})
		}
	}
	return out
}

func bestQueue(visits []*Visit) []*Visit {
	active := make([]*Visit, 0, len(visits))
	for _, v := range visits {
		if v.CheckedIn() && !v.Status.Terminal() {
			active = append(active, v)
		}
	}
	sortByToken(active)

	var priority, late, normal []*Visit
	for _, v := range active {
		switch {
		case v.Status == StatusPriority:
			priority = append(priority, v)
		case v.LateLocked:
			late = append(late, v)
		case inNormalLane(v.Status):
			normal = append(normal, v)
		}
	}

	out := append(priority, normal...)
	for _, v := range late {
		out = insertLate(out, v)
	}
	return out
}

func inNormalLane(s Status) bool {
	switch s {
	case StatusWaiting, StatusUpNext, StatusBooked, StatusWalkInBooked:
		return true
	}
	return false
}

// insertLate places v directly behind the furthest-back of its late anchors
// still present in q, or at the head when none are.
func insertLate(q []*Visit, v *Visit) []*Visit {
	pos := make(map[string]int, len(q))
	for i, e := range q {
		pos[e.ID] = i
	}
	if _, dup := pos[v.ID]; dup {
		return q
	}

	at := 0
	highest := -1
	for _, id := range v.LateAnchors {
		if i, ok := pos[id]; ok && i > highest {
			highest = i
		}
	}
	if highest >= 0 {
		at = highest + 1
	}
	return slices.Insert(q, at, v)
}

func sortByToken(vs []*Visit) {
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].TokenNo != vs[j].TokenNo {
			return vs[i].TokenNo < vs[j].TokenNo
		}
		return vs[i].ID < vs[j].ID
	})
}
