package matchrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/park285/gungi-arena/internal/domain"
)

func TestMemoryRepositoryUpsert(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	end := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	rec := &domain.MatchRecord{MatchID: "m1", Kind: domain.KindMatch, Result: "PLAYER1_WIN", EndedAt: end}
	if err := repo.RecordMatch(ctx, rec); err != nil {
		t.Fatalf("RecordMatch: %v", err)
	}
	if rec.ID != 1 {
		t.Fatalf("id = %d", rec.ID)
	}

	again := &domain.MatchRecord{MatchID: "m1", Kind: domain.KindMatch, Result: "PLAYER2_WIN", EndedAt: end}
	if err := repo.RecordMatch(ctx, again); err != nil {
		t.Fatalf("RecordMatch: %v", err)
	}
	if again.ID != 1 {
		t.Fatalf("upsert assigned new id %d", again.ID)
	}
	got, err := repo.GetMatch(ctx, "m1")
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if got.Result != "PLAYER2_WIN" {
		t.Fatalf("result = %s", got.Result)
	}

	if _, err := repo.GetMatch(ctx, "missing"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("missing: %v", err)
	}
}

func TestMemoryRepositoryRecentOrder(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		rec := &domain.MatchRecord{MatchID: id, Kind: domain.KindSession, EndedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.RecordMatch(ctx, rec); err != nil {
			t.Fatalf("RecordMatch: %v", err)
		}
	}
	got, err := repo.RecentMatches(ctx, 2)
	if err != nil {
		t.Fatalf("RecentMatches: %v", err)
	}
	if len(got) != 2 || got[0].MatchID != "c" || got[1].MatchID != "b" {
		t.Fatalf("order = %v", ids(got))
	}
}

func TestOpenRequiresURL(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatalf("expected error")
	}
}

func ids(recs []*domain.MatchRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.MatchID
	}
	return out
}
