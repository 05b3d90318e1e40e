package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-queue-etc/internal/db"
)

const visitColumns = `
	id, slot_time, token_no, status, visit_type,
	check_in_time, consultation_start_time, consultation_end_time, consultation_minutes,
	late_locked, late_anchors, best_case_etc, worst_case_etc`

type PgVisitStore struct {
	conn db.DBTX
}

func NewPgVisitStore(conn db.DBTX) *PgVisitStore {
	return &PgVisitStore{conn: conn}
}

// Helpers

func scanVisit(row pgx.Row) (*Visit, error) {
	var (
		v           Visit
		status      string
		visitType   string
		lateAnchors []string
	)

	err := row.Scan(
		&v.ID,
		&v.SlotTime,
		&v.TokenNo,
		&status,
		&visitType,
		&v.CheckInTime,
		&v.ConsultationStartTime,
		&v.ConsultationEndTime,
		&v.ConsultationMinutes,
		&v.LateLocked,
		&lateAnchors,
		&v.BestCaseETC,
		&v.WorstCaseETC,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVisitNotFound
		}
		return nil, err
	}

	v.Status = ParseStatus(status)
	v.Type = ParseVisitType(visitType)
	v.LateAnchors = lateAnchors
	return &v, nil
}

// Interface methods

func (r *PgVisitStore) GetVisit(ctx context.Context, id string) (*Visit, error) {
	row := r.conn.QueryRow(ctx, `SELECT`+visitColumns+`
		FROM visits
		WHERE id = $1
	`, id)
	return scanVisit(row)
}

func (r *PgVisitStore) ListVisitsBetween(ctx context.Context, from, to time.Time) ([]*Visit, error) {
	rows, err := r.conn.Query(ctx, `SELECT`+visitColumns+`
		FROM visits
		WHERE slot_time >= $1
		  AND slot_time < $2
		ORDER BY token_no, id
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// CommitPatches writes every patch in one transaction. Unset fields keep
// their stored value.
func (r *PgVisitStore) CommitPatches(ctx context.Context, ps PatchSet) error {
	if len(ps) == 0 {
		return nil
	}

	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin patch tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, id := range ps.IDs() {
		p := ps[id]
		var status *string
		if p.Status != nil {
			s := string(*p.Status)
			status = &s
		}

		_, err := tx.Exec(ctx, `
			UPDATE visits
			SET status = COALESCE($2, status),
			    best_case_etc = COALESCE($3, best_case_etc),
			    worst_case_etc = COALESCE($4, worst_case_etc),
			    updated_at = now()
			WHERE id = $1
		`, id, status, p.BestCaseETC, p.WorstCaseETC)
		if err != nil {
			return fmt.Errorf("patch visit %s: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit patch tx: %w", err)
	}
	return nil
}

type PgSettingsStore struct {
	conn db.DBTX
}

func NewPgSettingsStore(conn db.DBTX) *PgSettingsStore {
	return &PgSettingsStore{conn: conn}
}

func (r *PgSettingsStore) GetSettings(ctx context.Context) (ClinicSettings, error) {
	var doc []byte
	err := r.conn.QueryRow(ctx, `
		SELECT doc
		FROM clinic_settings
		WHERE id = 1
	`).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DefaultSettings(), nil
		}
		return ClinicSettings{}, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(doc, &settings); err != nil {
		return ClinicSettings{}, fmt.Errorf("decode clinic settings: %w", err)
	}
	if settings.SlotDuration <= 0 {
		settings.SlotDuration = DefaultSlotMinutes
	}
	return settings, nil
}

// PatchDoctorStatus merges patch into the stored doctorStatus object,
// creating the settings row if needed.
func (r *PgSettingsStore) PatchDoctorStatus(ctx context.Context, patch DoctorStatusPatch) error {
	fields, err := json.Marshal(patch.Fields())
	if err != nil {
		return fmt.Errorf("encode doctor status patch: %w", err)
	}

	_, err = r.conn.Exec(ctx, `
		INSERT INTO clinic_settings (id, doc, updated_at)
		VALUES (1, jsonb_build_object('doctorStatus', $1::jsonb), now())
		ON CONFLICT (id) DO UPDATE
		SET doc = jsonb_set(
		        clinic_settings.doc,
		        '{doctorStatus}',
		        COALESCE(clinic_settings.doc->'doctorStatus', '{}'::jsonb) || $1::jsonb
		    ),
		    updated_at = now()
	`, string(fields))
	if err != nil {
		return fmt.Errorf("patch doctor status: %w", err)
	}
	return nil
}
