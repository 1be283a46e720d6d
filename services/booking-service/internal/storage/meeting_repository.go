package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/portfolio-site/meetbook/libs/db"
	"github.com/portfolio-site/meetbook/services/booking-service/internal/model"
	"github.com/portfolio-site/meetbook/services/booking-service/internal/outbox"
)

var (
	ErrNotFound = errors.New("meeting not found")
	// ErrConflict means the interval collides with another active meeting.
	ErrConflict = errors.New("meeting overlaps an existing booking")
	// ErrAlreadyDecided means the meeting is no longer awaiting a decision.
	ErrAlreadyDecided = errors.New("meeting already decided")
)

type MeetingRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
	now    func() time.Time
}

func NewMeetingRepository(pool *db.Pool, outboxRepo *outbox.Repository) *MeetingRepository {
	return &MeetingRepository{pool: pool, outbox: outboxRepo, now: time.Now}
}

const meetingColumns = `id::text, category, subcategory, name, email, notes, start_time, end_time,
	status, decided_at, COALESCE(decision_note, ''), created_at`

func scanMeeting(row pgx.Row) (model.Meeting, error) {
	var m model.Meeting
	err := row.Scan(
		&m.ID,
		&m.Category,
		&m.Subcategory,
		&m.Name,
		&m.Email,
		&m.Notes,
		&m.StartTime,
		&m.EndTime,
		&m.Status,
		&m.DecidedAt,
		&m.DecisionNote,
		&m.CreatedAt,
	)
	return m, err
}

// Create inserts a requested meeting and its outbox event in one transaction.
func (r *MeetingRepository) Create(ctx context.Context, m *model.Meeting) (string, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.Status = model.MeetingRequested

	err := r.pool.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO meetings (id, category, subcategory, name, email, notes, start_time, end_time, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING created_at
		`, m.ID, m.Category, m.Subcategory, m.Name, m.Email, m.Notes, m.StartTime, m.EndTime, m.Status).Scan(&m.CreatedAt)
		if err != nil {
			return err
		}
		evt, err := outbox.MeetingEvent(*m)
		if err != nil {
			return err
		}
		return r.outbox.Insert(ctx, tx, evt)
	})
	if IsConflict(err) {
		return "", ErrConflict
	}
	if err != nil {
		return "", fmt.Errorf("create meeting: %w", err)
	}
	return m.ID, nil
}

// ListBusy returns requested and confirmed meetings overlapping [start, end).
func (r *MeetingRepository) ListBusy(ctx context.Context, start, end time.Time) ([]model.Meeting, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+meetingColumns+`
		FROM meetings
		WHERE status IN ('requested', 'confirmed')
			AND start_time < $2
			AND end_time > $1
		ORDER BY start_time ASC
	`, start, end)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Meeting, error) {
		return scanMeeting(row)
	})
}

// List returns the newest meetings first, optionally filtered by status.
func (r *MeetingRepository) List(ctx context.Context, status string, limit int) ([]model.Meeting, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+meetingColumns+`
		FROM meetings
		WHERE ($1 = '' OR status = $1)
		ORDER BY start_time DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Meeting, error) {
		return scanMeeting(row)
	})
}

func (r *MeetingRepository) Get(ctx context.Context, id string) (model.Meeting, error) {
	m, err := scanMeeting(r.pool.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id))
	if IsNotFound(err) {
		return model.Meeting{}, ErrNotFound
	}
	return m, err
}

// Decide moves a requested meeting to confirmed or declined and records the event.
func (r *MeetingRepository) Decide(ctx context.Context, id, status, note string) (model.Meeting, error) {
	if !model.ValidDecision(status) {
		return model.Meeting{}, fmt.Errorf("invalid decision %q", status)
	}
	if _, err := uuid.Parse(id); err != nil {
		return model.Meeting{}, ErrNotFound
	}

	var out model.Meeting
	err := r.pool.WithTx(ctx, func(tx pgx.Tx) error {
		m, err := scanMeeting(tx.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if m.Status != model.MeetingRequested {
			return ErrAlreadyDecided
		}
		decidedAt := r.now().UTC()
		if _, err := tx.Exec(ctx, `
			UPDATE meetings
			SET status = $2, decided_at = $3, decision_note = $4
			WHERE id = $1
		`, id, status, decidedAt, note); err != nil {
			return err
		}
		m.Status = status
		m.DecidedAt = &decidedAt
		m.DecisionNote = note

		evt, err := outbox.MeetingEvent(m)
		if err != nil {
			return err
		}
		if err := r.outbox.Insert(ctx, tx, evt); err != nil {
			return err
		}
		out = m
		return nil
	})
	switch {
	case IsNotFound(err):
		return model.Meeting{}, ErrNotFound
	case errors.Is(err, ErrAlreadyDecided):
		return model.Meeting{}, err
	case err != nil:
		return model.Meeting{}, fmt.Errorf("decide meeting: %w", err)
	}
	return out, nil
}

func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
