package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-queue-etc/internal/db"
	"github.com/hackgods/clinic-queue-etc/internal/logging"
	"github.com/hackgods/clinic-queue-etc/internal/queue"
)

func main() {
	logger, err := logging.New("info", "console")
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal("ensure schema", zap.Error(err))
	}

	if err := seedSettings(ctx, pool); err != nil {
		logger.Fatal("seed settings", zap.Error(err))
	}

	today := queue.ClinicDate(time.Now())
	for _, session := range queue.Sessions {
		n, err := seedSession(ctx, pool, today, session, gofakeit.Number(12, 24))
		if err != nil {
			logger.Fatal("seed visits", zap.String("session", string(session)), zap.Error(err))
		}
		logger.Info("visits seeded",
			zap.String("date", queue.FormatDate(today)),
			zap.String("session", string(session)),
			zap.Int("count", n),
		)
	}

	logger.Info("seed complete")
}

func seedSettings(ctx context.Context, pool *pgxpool.Pool) error {
	doc, err := json.Marshal(queue.DefaultSettings())
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `
		INSERT INTO clinic_settings (id, doc, updated_at)
		VALUES (1, $1::jsonb, now())
		ON CONFLICT (id) DO NOTHING
	`, string(doc))
	return err
}

// seedSession books count tokens into one session, leaving the odd token
// unused and checking in roughly the first half of the queue.
func seedSession(ctx context.Context, pool *pgxpool.Pool, date time.Time, session queue.Session, count int) (int, error) {
	sched, _ := queue.ResolveSchedule(queue.DefaultSettings(), date, session)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for token := 1; token <= count; token++ {
		if gofakeit.Number(1, 10) == 1 {
			continue // unused token
		}

		slot := sched.Start.Add(time.Duration(token-1) * sched.SlotDuration)
		if !slot.Before(sched.End) {
			break
		}

		visitType := queue.VisitAppointment
		status := queue.StatusBooked
		if gofakeit.Bool() {
			visitType = queue.VisitWalkIn
			status = queue.StatusWalkInBooked
		}

		var checkIn *time.Time
		if token <= count/2 {
			t := slot.Add(-time.Duration(gofakeit.Number(5, 30)) * time.Minute)
			checkIn = &t
			status = queue.StatusWaiting
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO visits (id, slot_time, token_no, status, visit_type, check_in_time, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		`, uuid.NewString(), slot, token, string(status), string(visitType), checkIn)
		if err != nil {
			return 0, err
		}
		inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return inserted, nil
}
