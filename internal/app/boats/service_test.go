package boats

import (
	"context"
	"errors"
	"testing"

	memmemberrepo "github.com/Overland-East-Bay/terreiro-api/internal/adapters/memory/memberrepo"
	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

type fakeClearer struct {
	cleared []domain.BoatID
}

func (f *fakeClearer) ClearBoat(_ context.Context, id domain.BoatID) (int, error) {
	f.cleared = append(f.cleared, id)
	return 1, nil
}

type countingSyncer struct {
	calls int
	last  []tablestore.Record
}

func (c *countingSyncer) Submit(table tablestore.Table, records []tablestore.Record) {
	if table == tablestore.TableBoats {
		c.calls++
		c.last = records
	}
}

func newTestService(t *testing.T) (*Service, *fakeClearer, *countingSyncer) {
	t.Helper()
	members := memmemberrepo.NewRepo()
	err := members.ReplaceAll(context.Background(), []domain.Member{
		{ID: 1, Name: "Dora", Status: domain.StatusActive, SponsorEntities: []domain.EntityKey{domain.EntityCaboclo, domain.EntityExu}},
		{ID: 2, Name: "Rui", Status: domain.StatusActive},
	})
	if err != nil {
		t.Fatalf("ReplaceAll err=%v", err)
	}
	clr := &fakeClearer{}
	syncer := &countingSyncer{}
	return NewService(members, clr, syncer), clr, syncer
}

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	ae := (*Error)(nil)
	if !errors.As(err, &ae) || ae.Status != status {
		t.Fatalf("err=%v, want status %d", err, status)
	}
}

func TestService_CreateValidatesSponsors(t *testing.T) {
	t.Parallel()

	svc, _, syncer := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{Name: " "})
	wantStatus(t, err, 422)
	_, err = svc.Create(ctx, Input{Name: "Barco 1", Sponsors: []domain.SponsorRef{{MemberID: 9, EntityKey: domain.EntityExu}}})
	wantStatus(t, err, 422)
	_, err = svc.Create(ctx, Input{Name: "Barco 1", Sponsors: []domain.SponsorRef{{MemberID: 2, EntityKey: domain.EntityExu}}})
	wantStatus(t, err, 422)
	if syncer.calls != 0 {
		t.Fatalf("rejected creates synced")
	}

	sp := domain.SponsorRef{MemberID: 1, EntityKey: domain.EntityCaboclo}
	b, err := svc.Create(ctx, Input{Name: "  Barco   das Águas ", Sponsors: []domain.SponsorRef{sp, sp}})
	if err != nil {
		t.Fatalf("Create err=%v", err)
	}
	if b.ID != 1 || b.Name != "Barco das Águas" || len(b.Sponsors) != 1 {
		t.Fatalf("boat=%+v", b)
	}
	if !svc.Exists(ctx, b.ID) || svc.Exists(ctx, 5) {
		t.Fatalf("Exists mismatch")
	}
	if syncer.calls != 1 || len(syncer.last) != 1 {
		t.Fatalf("sync calls=%d records=%d", syncer.calls, len(syncer.last))
	}
}

func TestService_ListOrdersByName(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()
	for _, n := range []string{"Oxóssi", "águas", "Mata"} {
		if _, err := svc.Create(ctx, Input{Name: n}); err != nil {
			t.Fatalf("Create err=%v", err)
		}
	}
	got := svc.List(ctx)
	if len(got) != 3 || got[0].Name != "águas" || got[1].Name != "Mata" || got[2].Name != "Oxóssi" {
		t.Fatalf("order=%v", got)
	}
}

func TestService_DeleteClearsMemberReferences(t *testing.T) {
	t.Parallel()

	svc, clr, _ := newTestService(t)
	ctx := context.Background()
	b, _ := svc.Create(ctx, Input{Name: "Barco"})

	if err := svc.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Delete err=%v", err)
	}
	if len(clr.cleared) != 1 || clr.cleared[0] != b.ID {
		t.Fatalf("cleared=%v", clr.cleared)
	}
	wantStatus(t, svc.Delete(ctx, b.ID), 404)
	_, err := svc.Update(ctx, b.ID, Input{Name: "x"})
	wantStatus(t, err, 404)
}

func TestService_MemberDeletedDropsSponsorRefs(t *testing.T) {
	t.Parallel()

	svc, _, syncer := newTestService(t)
	ctx := context.Background()
	b, err := svc.Create(ctx, Input{Name: "Barco", Sponsors: []domain.SponsorRef{
		{MemberID: 1, EntityKey: domain.EntityCaboclo},
		{MemberID: 1, EntityKey: domain.EntityExu},
	}})
	if err != nil {
		t.Fatalf("Create err=%v", err)
	}
	before := syncer.calls

	if err := svc.MemberDeleted(ctx, 2); err != nil {
		t.Fatalf("MemberDeleted err=%v", err)
	}
	if syncer.calls != before {
		t.Fatalf("unrelated member deletion synced")
	}
	if err := svc.MemberDeleted(ctx, 1); err != nil {
		t.Fatalf("MemberDeleted err=%v", err)
	}
	got, _ := svc.Get(ctx, b.ID)
	if len(got.Sponsors) != 0 || syncer.calls != before+1 {
		t.Fatalf("sponsors=%v calls=%d", got.Sponsors, syncer.calls)
	}
}
