package eventrepo

import (
	"context"
	"testing"
	"time"

	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/eventrepo"
)

func TestRepo_ListSortsDatedNewestFirstThenUndated(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	d1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	_ = r.Create(context.Background(), domain.ExternalEvent{ID: 1, Name: "Cachoeira", Date: &d1})
	_ = r.Create(context.Background(), domain.ExternalEvent{ID: 2, Name: "Praia"})
	_ = r.Create(context.Background(), domain.ExternalEvent{ID: 3, Name: "Mata", Date: &d2})

	got, err := r.List(context.Background())
	if err != nil {
		t.Fatalf("List() err=%v", err)
	}
	if len(got) != 3 || got[0].ID != 3 || got[1].ID != 1 || got[2].ID != 2 {
		t.Fatalf("order=%v", got)
	}
}

func TestRepo_SaveRequiresExistingAndClones(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	e := domain.ExternalEvent{
		ID:           1,
		Name:         "Cachoeira",
		Participants: map[domain.MemberID]domain.Participation{5: {Participating: true, Mode: domain.TransportDriver}},
		Vehicles:     domain.SeatMap{5: {}},
	}
	if err := r.Save(context.Background(), e); err != eventrepo.ErrNotFound {
		t.Fatalf("Save(nonexistent) err=%v", err)
	}
	if err := r.Create(context.Background(), e); err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	e.Participants[6] = domain.Participation{Participating: true}
	got, _ := r.GetByID(context.Background(), 1)
	if len(got.Participants) != 1 {
		t.Fatalf("repository state aliased caller map")
	}
	if id, _ := r.NextID(context.Background()); id != 2 {
		t.Fatalf("NextID=%d", id)
	}
	if err := r.Delete(context.Background(), 1); err != nil {
		t.Fatalf("Delete() err=%v", err)
	}
	if _, err := r.GetByID(context.Background(), 1); err != eventrepo.ErrNotFound {
		t.Fatalf("GetByID() after delete err=%v", err)
	}
}
