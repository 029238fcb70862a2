package celebrations

import (
	"context"
	"errors"
	"testing"
	"time"

	memmemberrepo "github.com/Overland-East-Bay/terreiro-api/internal/adapters/memory/memberrepo"
	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

type countingSyncer struct{ calls int }

func (c *countingSyncer) Submit(table tablestore.Table, _ []tablestore.Record) {
	if table == tablestore.TableCelebrations {
		c.calls++
	}
}

func newTestService(t *testing.T) (*Service, *countingSyncer) {
	t.Helper()
	members := memmemberrepo.NewRepo()
	if err := members.ReplaceAll(context.Background(), []domain.Member{
		{ID: 1, Name: "Ana", Status: domain.StatusActive},
		{ID: 2, Name: "Bia", Status: domain.StatusActive},
		{ID: 3, Name: "Caio", Status: domain.StatusOnLeave},
	}); err != nil {
		t.Fatalf("ReplaceAll err=%v", err)
	}
	syncer := &countingSyncer{}
	return NewService(members, syncer), syncer
}

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	ae := (*Error)(nil)
	if !errors.As(err, &ae) || ae.Status != status {
		t.Fatalf("err=%v, want status %d", err, status)
	}
}

func TestService_CreateRequiresName(t *testing.T) {
	t.Parallel()

	svc, syncer := newTestService(t)
	_, err := svc.Create(context.Background(), Input{Name: "  "})
	wantStatus(t, err, 422)
	if syncer.calls != 0 {
		t.Fatalf("rejected create synced")
	}
}

func TestService_PaymentsAndSummary(t *testing.T) {
	t.Parallel()

	svc, syncer := newTestService(t)
	ctx := context.Background()
	c, err := svc.Create(ctx, Input{
		Name: "Festa de Iemanjá",
		Payments: map[domain.MemberID]domain.Payment{
			1: {Paid: true, AmountCents: 5000},
			2: {Paid: false, AmountCents: 3000},
		},
	})
	if err != nil {
		t.Fatalf("Create err=%v", err)
	}
	if c.Payments[2].AmountCents != 0 {
		t.Fatalf("unpaid amount kept: %+v", c.Payments[2])
	}
	if got := c.Summary(); got.Payers != 1 || got.CollectedCents != 5000 {
		t.Fatalf("summary=%+v", got)
	}

	c, err = svc.SetPayment(ctx, c.ID, 3, domain.Payment{Paid: true, AmountCents: 2550})
	if err != nil {
		t.Fatalf("SetPayment err=%v", err)
	}
	if got := c.Summary(); got.Payers != 2 || got.CollectedCents != 7550 {
		t.Fatalf("summary=%+v", got)
	}
	c, err = svc.SetPayment(ctx, c.ID, 1, domain.Payment{Paid: false, AmountCents: 5000})
	if err != nil {
		t.Fatalf("SetPayment err=%v", err)
	}
	if got := c.Summary(); got.Payers != 1 || got.CollectedCents != 2550 {
		t.Fatalf("summary after unpaying=%+v", got)
	}

	_, err = svc.SetPayment(ctx, c.ID, 99, domain.Payment{Paid: true})
	wantStatus(t, err, 422)
	_, err = svc.SetPayment(ctx, c.ID, 1, domain.Payment{Paid: true, AmountCents: -1})
	wantStatus(t, err, 422)
	_, err = svc.SetPayment(ctx, 42, 1, domain.Payment{Paid: true})
	wantStatus(t, err, 404)

	if syncer.calls != 3 {
		t.Fatalf("sync calls=%d, want 3", syncer.calls)
	}
}

func TestService_ListOrderUpdateDelete(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	jan := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	dec := time.Date(2026, 12, 8, 0, 0, 0, 0, time.UTC)

	a, _ := svc.Create(ctx, Input{Name: "Iemanjá", Date: &jan})
	b, _ := svc.Create(ctx, Input{Name: "Sem data"})
	c, _ := svc.Create(ctx, Input{Name: "Oxum", Date: &dec})

	got := svc.List(ctx)
	if len(got) != 3 || got[0].ID != c.ID || got[1].ID != a.ID || got[2].ID != b.ID {
		t.Fatalf("order=%v", got)
	}

	upd, err := svc.Update(ctx, b.ID, Input{Name: "Cosme e Damião", Date: &dec})
	if err != nil {
		t.Fatalf("Update err=%v", err)
	}
	if upd.Name != "Cosme e Damião" || upd.Date == nil {
		t.Fatalf("updated=%+v", upd)
	}

	if err := svc.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete err=%v", err)
	}
	wantStatus(t, svc.Delete(ctx, a.ID), 404)
	_, err = svc.Get(ctx, a.ID)
	wantStatus(t, err, 404)
}

func TestService_MemberDeletedDropsPayments(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	c, _ := svc.Create(ctx, Input{Name: "Festa", Payments: map[domain.MemberID]domain.Payment{1: {Paid: true, AmountCents: 100}}})

	if err := svc.MemberDeleted(ctx, 1); err != nil {
		t.Fatalf("MemberDeleted err=%v", err)
	}
	got, _ := svc.Get(ctx, c.ID)
	if len(got.Payments) != 0 {
		t.Fatalf("payments=%v", got.Payments)
	}
}
