package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-queue-etc/internal/queue"
)

// Channels raised by the schema's row triggers.
const (
	ChannelVisitChanged    = "visit_changed"
	ChannelSettingsChanged = "settings_changed"
)

const reconnectDelay = 2 * time.Second

// Recalculator is the part of queue.Service the listener drives.
type Recalculator interface {
	RecalcForVisit(ctx context.Context, id string) (*queue.Result, error)
	RecalcToday(ctx context.Context) ([]*queue.Result, error)
}

// Listener turns Postgres change notifications into recalculation runs.
type Listener struct {
	pool    *pgxpool.Pool
	svc     Recalculator
	logger  *zap.Logger
	timeout time.Duration
}

func NewListener(pool *pgxpool.Pool, svc Recalculator, logger *zap.Logger, timeout time.Duration) *Listener {
	return &Listener{
		pool:    pool,
		svc:     svc,
		logger:  logger,
		timeout: timeout,
	}
}

// Run listens until ctx is done, reconnecting after connection failures.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		l.logger.Warn("notification listener dropped, reconnecting", zap.Error(err))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen conn: %w", err)
	}
	defer conn.Release()

	for _, ch := range []string{ChannelVisitChanged, ChannelSettingsChanged} {
		if _, err := conn.Exec(ctx, "LISTEN "+ch); err != nil {
			return fmt.Errorf("listen %s: %w", ch, err)
		}
	}
	l.logger.Info("listening for queue changes")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		l.Dispatch(ctx, n.Channel, n.Payload)
	}
}

// Dispatch runs the recalculation a single notification asks for. Errors
// are logged; the next change or sweep runs the pipeline again from scratch.
func (l *Listener) Dispatch(ctx context.Context, channel, payload string) {
	runCtx, cancel := context.WithTimeout(queue.WithTrigger(ctx, "notify"), l.timeout)
	defer cancel()

	var err error
	switch channel {
	case ChannelVisitChanged:
		if payload == "" {
			err = errors.New("visit notification without id")
			break
		}
		_, err = l.svc.RecalcForVisit(runCtx, payload)
	case ChannelSettingsChanged:
		_, err = l.svc.RecalcToday(runCtx)
	default:
		l.logger.Debug("ignoring notification", zap.String("channel", channel))
		return
	}

	if err != nil {
		l.logger.Error("triggered recalculation failed",
			zap.String("channel", channel),
			zap.String("payload", payload),
			zap.Error(err),
		)
	}
}
