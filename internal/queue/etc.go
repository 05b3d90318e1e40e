package queue

import "time"

// AssignETCs walks both orderings from anchor and records the resulting
// bounds in ps. A visit with a single bound gets it copied to the other, and
// a worst case earlier than the best case is clamped up to it.
func AssignETCs(q Queues, anchor time.Time, slot time.Duration, ps PatchSet) {
	best := make(map[string]time.Time, len(q.Best))
	worst := make(map[string]time.Time, len(q.Worst))

	for i, v := range q.Best {
		best[v.ID] = anchor.Add(time.Duration(i) * slot)
	}
	for i, s := range q.Worst {
		if s.Placeholder() {
			continue
		}
		worst[s.Visit.ID] = anchor.Add(time.Duration(i) * slot)
	}

	for id, b := range best {
		w, ok := worst[id]
		switch {
		case !ok:
			w = b
		case w.Before(b):
			w = b
		}
		ps.SetBestCase(id, b)
		ps.SetWorstCase(id, w)
	}
	for id, w := range worst {
		if _, ok := best[id]; ok {
			continue
		}
		ps.SetBestCase(id, w)
		ps.SetWorstCase(id, w)
	}
}
