package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/okian/ballotboard/internal/adapters/repository"
	"github.com/okian/ballotboard/internal/adapters/repository/storetest"
	"github.com/okian/ballotboard/internal/domain/model"
	"github.com/okian/ballotboard/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatal("expected empty dsn error")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	if !isUniqueViolation(unique) {
		t.Fatal("23505 should be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("23503 is a foreign key violation")
	}
	if isUniqueViolation(errors.New("boom")) {
		t.Fatal("plain errors are not unique violations")
	}
}

func TestModelConversions(t *testing.T) {
	p := playerModelFromEntity(model.Player{ID: "p1", Name: "Ann"})
	if p.VoterID != nil {
		t.Fatalf("empty voter should map to NULL, got %q", *p.VoterID)
	}
	if got := playerModelFromEntity(model.Player{ID: "p2", Name: "Bo", VoterID: "v2"}).toEntity(); got.VoterID != "v2" {
		t.Fatalf("voter round trip = %+v", got)
	}

	row, err := ballotModelFromEntity(model.Ballot{VoterID: "v", WeekID: "w"}, time.Unix(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if row.RankOrder != "[]" {
		t.Fatalf("nil order encoded as %q", row.RankOrder)
	}

	row, _ = ballotModelFromEntity(model.Ballot{VoterID: "v", WeekID: "w", RankOrder: []string{"b", "a"}}, time.Unix(0, 0))
	b, err := row.toEntity()
	if err != nil || len(b.RankOrder) != 2 || b.RankOrder[0] != "b" {
		t.Fatalf("ballot round trip = %+v, %v", b, err)
	}

	w := weekModel{ID: "w", WeekDate: time.Date(2024, 3, 4, 0, 0, 0, 0, time.Local)}.toEntity()
	if w.Label() != "2024-03-04" || w.Date.Location() != time.UTC {
		t.Fatalf("week = %+v", w)
	}
}

// TestStore_Contract runs against a live database when BALLOTBOARD_TEST_POSTGRES_DSN is set.
func TestStore_Contract(t *testing.T) {
	dsn := os.Getenv("BALLOTBOARD_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("BALLOTBOARD_TEST_POSTGRES_DSN not set")
	}
	storetest.Run(t, func(t *testing.T) repository.Store {
		s, err := Open(context.Background(), dsn)
		if err != nil {
			t.Fatalf("open postgres: %v", err)
		}
		if err := s.db.Exec("TRUNCATE ballots, weeks, seasons, players").Error; err != nil {
			t.Fatalf("truncate: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
