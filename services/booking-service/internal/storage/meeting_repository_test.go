package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/portfolio-site/meetbook/services/booking-service/internal/model"
)

func TestErrorClassification(t *testing.T) {
	overlap := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23P01"})
	if !IsConflict(overlap) {
		t.Fatalf("exclusion violation should be a conflict")
	}
	if IsConflict(&pgconn.PgError{Code: "23505"}) {
		t.Fatalf("unique violation is not an overlap")
	}
	if !IsNotFound(fmt.Errorf("wrap: %w", pgx.ErrNoRows)) {
		t.Fatalf("wrapped ErrNoRows should be not found")
	}
}

func TestDecideValidatesInput(t *testing.T) {
	r := NewMeetingRepository(nil, nil)
	if _, err := r.Decide(context.Background(), "4f1a3b84-3d8e-4c1e-9d7a-2b1c7f5e9a10", model.MeetingRequested, ""); err == nil {
		t.Fatalf("requested is not a decision")
	}
	if _, err := r.Decide(context.Background(), "not-a-uuid", model.MeetingConfirmed, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("malformed id should be not found, got %v", err)
	}
}

func TestSchemaDeclaresOverlapGuard(t *testing.T) {
	if !strings.Contains(schemaSQL, "meetings_no_overlap") || !strings.Contains(schemaSQL, "outbox_events") {
		t.Fatalf("embedded schema is missing expected objects")
	}
}
