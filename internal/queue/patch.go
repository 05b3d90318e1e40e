package queue

import (
	"sort"
	"time"
)

// Patch is a partial update of one visit. Nil fields are not written.
type Patch struct {
	Status       *Status
	BestCaseETC  *time.Time
	WorstCaseETC *time.Time
}

func (p *Patch) Empty() bool {
	return p.Status == nil && p.BestCaseETC == nil && p.WorstCaseETC == nil
}

// PatchSet accumulates the writes of one run keyed by visit id. Each setter
// overwrites the previous value of that field only.
type PatchSet map[string]*Patch

func (ps PatchSet) entry(id string) *Patch {
	p, ok := ps[id]
	if !ok {
		p = &Patch{}
		ps[id] = p
	}
	return p
}

func (ps PatchSet) SetStatus(id string, s Status) {
	ps.entry(id).Status = &s
}

func (ps PatchSet) SetBestCase(id string, t time.Time) {
	ps.entry(id).BestCaseETC = &t
}

func (ps PatchSet) SetWorstCase(id string, t time.Time) {
	ps.entry(id).WorstCaseETC = &t
}

// IDs returns the patched visit ids in lexical order.
func (ps PatchSet) IDs() []string {
	ids := make([]string, 0, len(ps))
	for id := range ps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
