package queue

import (
	"context"
	"sync"
	"time"
)

var testDay = time.Date(2026, time.March, 2, 0, 0, 0, 0, ClinicZone)

// at returns a clinic-local wall clock time on testDay.
func at(h, m int) time.Time {
	return testDay.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func ptr[T any](v T) *T {
	return &v
}

type visitOpt func(*Visit)

func checkedIn(t time.Time) visitOpt {
	return func(v *Visit) { v.CheckInTime = &t }
}

func withStatus(s Status) visitOpt {
	return func(v *Visit) { v.Status = s }
}

func walkIn() visitOpt {
	return func(v *Visit) { v.Type = VisitWalkIn }
}

func lateLocked(anchors ...string) visitOpt {
	return func(v *Visit) {
		v.LateLocked = true
		v.LateAnchors = anchors
	}
}

func consulting(start time.Time, minutes *int) visitOpt {
	return func(v *Visit) {
		v.Status = StatusInConsultation
		v.ConsultationStartTime = &start
		v.ConsultationMinutes = minutes
	}
}

// morningVisit books token into the morning session, one slot per token.
func morningVisit(id string, token int, opts ...visitOpt) *Visit {
	slot := at(10, 30).Add(time.Duration(max(token-1, 0)) * 5 * time.Minute)
	v := &Visit{
		ID:       id,
		SlotTime: &slot,
		TokenNo:  token,
		Status:   StatusBooked,
		Type:     VisitAppointment,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func ids(vs []*Visit) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.ID)
	}
	return out
}

type fakeVisitStore struct {
	mu        sync.Mutex
	visits    map[string]*Visit
	getErr    error
	listErr   error
	commitErr error
	listCalls int
	commits   []PatchSet
}

func newFakeVisitStore(visits ...*Visit) *fakeVisitStore {
	s := &fakeVisitStore{visits: make(map[string]*Visit)}
	for _, v := range visits {
		s.visits[v.ID] = v
	}
	return s
}

func (s *fakeVisitStore) GetVisit(_ context.Context, id string) (*Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	v, ok := s.visits[id]
	if !ok {
		return nil, ErrVisitNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *fakeVisitStore) ListVisitsBetween(_ context.Context, from, to time.Time) ([]*Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []*Visit
	for _, v := range s.visits {
		if v.SlotTime == nil || v.SlotTime.Before(from) || !v.SlotTime.Before(to) {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeVisitStore) CommitPatches(_ context.Context, ps PatchSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		return s.commitErr
	}
	s.commits = append(s.commits, ps)
	for id, p := range ps {
		v, ok := s.visits[id]
		if !ok {
			continue
		}
		if p.Status != nil {
			v.Status = *p.Status
		}
		if p.BestCaseETC != nil {
			v.BestCaseETC = p.BestCaseETC
		}
		if p.WorstCaseETC != nil {
			v.WorstCaseETC = p.WorstCaseETC
		}
	}
	return nil
}

type fakeSettingsStore struct {
	settings ClinicSettings
	getErr   error
	patchErr error
	patches  []DoctorStatusPatch
}

func (s *fakeSettingsStore) GetSettings(context.Context) (ClinicSettings, error) {
	if s.getErr != nil {
		return ClinicSettings{}, s.getErr
	}
	return s.settings, nil
}

func (s *fakeSettingsStore) PatchDoctorStatus(_ context.Context, p DoctorStatusPatch) error {
	s.patches = append(s.patches, p)
	return s.patchErr
}
