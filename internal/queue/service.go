package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-queue-etc/internal/metrics"
	redisclient "github.com/hackgods/clinic-queue-etc/internal/redis"
)

type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"
	OutcomeClosed    Outcome = "closed"
	OutcomeNoTokens  Outcome = "no_tokens"
	OutcomeNoChanges Outcome = "no_changes"
	OutcomeCommitted Outcome = "committed"
)

// Result describes what one run computed and wrote.
type Result struct {
	Date    time.Time
	Session Session
	Outcome Outcome
	Anchor  time.Time
	Queues  Queues
	Patches PatchSet
	Effects []SettingsEffect
}

type Service struct {
	visits   VisitStore
	settings SettingsStore
	locker   redisclient.Locker
	metrics  *metrics.RecalcMetrics
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithLocker(l redisclient.Locker) Option {
	return func(s *Service) { s.locker = l }
}

func WithMetrics(m *metrics.RecalcMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(visits VisitStore, settings SettingsStore, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		visits:   visits,
		settings: settings,
		locker:   redisclient.NopLocker(),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// RecalcForVisit recalculates the session the visit is booked into. Unknown
// visits and visits without a session slot are skipped without error.
func (s *Service) RecalcForVisit(ctx context.Context, id string) (*Result, error) {
	v, err := s.visits.GetVisit(ctx, id)
	if err != nil {
		if errors.Is(err, ErrVisitNotFound) {
			return s.skipped(ctx, "visit not found", zap.String("visit_id", id)), nil
		}
		return nil, fmt.Errorf("load visit: %w", err)
	}
	if v.SlotTime == nil {
		return s.skipped(ctx, "visit has no slot time", zap.String("visit_id", id)), nil
	}

	session := DeriveSession(*v.SlotTime)
	if session == SessionNone {
		return s.skipped(ctx, "slot time outside sessions",
			zap.String("visit_id", id), zap.Time("slot_time", *v.SlotTime)), nil
	}

	return s.RecalcForDateSession(ctx, ClinicDate(*v.SlotTime), session)
}

// RecalcForDateSession rebuilds both ETC bounds and queue statuses for
// every visit of one session and commits them in a single batch.
func (s *Service) RecalcForDateSession(ctx context.Context, date time.Time, session Session) (*Result, error) {
	if session != SessionMorning && session != SessionEvening {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSession, session)
	}
	date = ClinicDate(date)
	started := time.Now()

	var res *Result
	key := FormatDate(date) + ":" + string(session)
	err := s.locker.WithSessionLock(ctx, key, func(lockCtx context.Context) error {
		r, err := s.recalc(lockCtx, date, session)
		res = r
		return err
	})

	outcome := "error"
	if err == nil {
		outcome = string(res.Outcome)
	}
	s.metrics.ObserveRun(TriggerFrom(ctx), outcome, time.Since(started).Seconds())

	if err != nil {
		s.logger.Error("queue recalculation failed",
			zap.String("date", FormatDate(date)),
			zap.String("session", string(session)),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("queue recalculated",
		zap.String("date", FormatDate(date)),
		zap.String("session", string(session)),
		zap.String("outcome", outcome),
		zap.Int("patches", len(res.Patches)),
		zap.String("trigger", TriggerFrom(ctx)),
	)
	return res, nil
}

// RecalcToday recalculates both sessions of the current clinic day. A
// failing session does not stop the other one.
func (s *Service) RecalcToday(ctx context.Context) ([]*Result, error) {
	today := ClinicDate(s.now())

	var results []*Result
	var errs []error
	for _, session := range Sessions {
		res, err := s.RecalcForDateSession(ctx, today, session)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", FormatDate(today), session, err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

func (s *Service) recalc(ctx context.Context, date time.Time, session Session) (*Result, error) {
	res := &Result{Date: date, Session: session}

	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	sched, warnings := ResolveSchedule(settings, date, session)
	for _, w := range warnings {
		s.logger.Warn("ignoring malformed session window", zap.String("detail", w))
	}
	if sched.Closed {
		res.Outcome = OutcomeClosed
		return res, nil
	}

	all, err := s.visits.ListVisitsBetween(ctx, date, date.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}

	visits := make([]*Visit, 0, len(all))
	for _, v := range all {
		if v.SlotTime != nil && DeriveSession(*v.SlotTime) == session {
			visits = append(visits, v)
		}
	}
	sortByToken(visits)

	res.Queues = BuildQueues(visits)
	if res.Queues.MaxToken == 0 {
		res.Outcome = OutcomeNoTokens
		return res, nil
	}

	anchor := ComputeAnchor(AnchorInput{
		Now:      s.now(),
		Date:     date,
		Schedule: sched,
		Doctor:   settings.DoctorStatus,
		Visits:   visits,
	})
	res.Anchor = anchor.Anchor
	res.Effects = anchor.Effects
	s.applyEffects(ctx, anchor.Effects)

	ps := make(PatchSet)
	AssignETCs(res.Queues, anchor.Anchor, sched.SlotDuration, ps)
	NormalizeStatuses(visits, res.Queues.Best, ps)
	res.Patches = ps

	if len(ps) == 0 {
		res.Outcome = OutcomeNoChanges
		return res, nil
	}
	if err := s.visits.CommitPatches(ctx, ps); err != nil {
		return nil, fmt.Errorf("commit patches: %w", err)
	}
	s.metrics.AddPatches(len(ps))

	res.Outcome = OutcomeCommitted
	return res, nil
}

// applyEffects writes settings side effects. Failures are logged and
// swallowed; the run keeps the anchor it already computed.
func (s *Service) applyEffects(ctx context.Context, effects []SettingsEffect) {
	for _, e := range effects {
		err := s.settings.PatchDoctorStatus(ctx, e.Patch)
		s.metrics.ObserveEffect(string(e.Kind), err == nil)
		if err != nil {
			s.logger.Warn("doctor status side effect failed",
				zap.String("effect", string(e.Kind)),
				zap.Error(err),
			)
		}
	}
}

func (s *Service) skipped(ctx context.Context, reason string, fields ...zap.Field) *Result {
	s.metrics.ObserveRun(TriggerFrom(ctx), string(OutcomeSkipped), 0)
	s.logger.Debug("recalculation skipped", append(fields, zap.String("reason", reason))...)
	return &Result{Outcome: OutcomeSkipped}
}

type triggerKey struct{}

// WithTrigger labels ctx with what caused a run, for metrics and logs.
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

func TriggerFrom(ctx context.Context) string {
	if t, ok := ctx.Value(triggerKey{}).(string); ok {
		return t
	}
	return "direct"
}

// SessionQueue returns the visits of one session ordered by token, as last
// written by a recalculation.
func (s *Service) SessionQueue(ctx context.Context, date time.Time, session Session) ([]*Visit, error) {
	if session != SessionMorning && session != SessionEvening {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSession, session)
	}
	date = ClinicDate(date)

	all, err := s.visits.ListVisitsBetween(ctx, date, date.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}

	out := make([]*Visit, 0, len(all))
	for _, v := range all {
		if v.SlotTime != nil && DeriveSession(*v.SlotTime) == session {
			out = append(out, v)
		}
	}
	sortByToken(out)
	return out, nil
}
