package gira

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	memclock "github.com/Overland-East-Bay/terreiro-api/internal/adapters/memory/clock"
	memmemberrepo "github.com/Overland-East-Bay/terreiro-api/internal/adapters/memory/memberrepo"
	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

type recordingSyncer struct {
	mu   sync.Mutex
	last map[tablestore.Table][]tablestore.Record
}

func (r *recordingSyncer) Submit(table tablestore.Table, records []tablestore.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		r.last = make(map[tablestore.Table][]tablestore.Record)
	}
	r.last[table] = records
}

func (r *recordingSyncer) get(table tablestore.Table) ([]tablestore.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	recs, ok := r.last[table]
	return recs, ok
}

func newTestService(t *testing.T, ms ...domain.Member) (*Service, *recordingSyncer, *memclock.ManualClock) {
	t.Helper()
	repo := memmemberrepo.NewRepo()
	if err := repo.ReplaceAll(context.Background(), ms); err != nil {
		t.Fatalf("ReplaceAll err=%v", err)
	}
	clk := memclock.NewManualClock(time.Date(2026, 5, 1, 22, 0, 0, 0, time.UTC))
	syncer := &recordingSyncer{}
	return NewService(repo, clk, syncer), syncer, clk
}

func TestService_RejectsMarkingInactiveMember(t *testing.T) {
	t.Parallel()

	away := member(2, "Away")
	away.Status = domain.StatusOnLeave
	svc, _, _ := newTestService(t, member(1, "A"), away)

	_, err := svc.Apply(context.Background(), SetPresence{Member: 2, Mark: domain.PresencePresent})
	ae := (*Error)(nil)
	if !errors.As(err, &ae) || ae.Status != 422 {
		t.Fatalf("err=%v, want 422", err)
	}
	if _, err := svc.Apply(context.Background(), SetPresence{Member: 1, Mark: domain.PresencePresent}); err != nil {
		t.Fatalf("Apply err=%v", err)
	}
}

func TestService_PairingValidatedAgainstCandidates(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t,
		member(1, "A", medium),
		member(2, "B", medium),
		member(3, "C"),
		member(4, "D", withFunction(domain.FunctionEkedi)),
	)
	ctx := context.Background()
	if _, err := svc.MarkAllActivePresent(ctx); err != nil {
		t.Fatalf("MarkAllActivePresent err=%v", err)
	}

	if _, err := svc.Apply(ctx, SetPairing{Medium: 3, Assistant: id(4)}); err == nil {
		t.Fatalf("expected error pairing with a non-medium key")
	}
	if _, err := svc.Apply(ctx, SetPairing{Medium: 1, Assistant: id(4)}); err == nil {
		t.Fatalf("expected error pairing a fixed-function member")
	}
	if _, err := svc.Apply(ctx, SetPairing{Medium: 1, Assistant: id(3)}); err != nil {
		t.Fatalf("Apply(pair A-C) err=%v", err)
	}
	sess, err := svc.Apply(ctx, SetPairing{Medium: 2, Assistant: id(3)})
	if err != nil {
		t.Fatalf("Apply(move C to B) err=%v", err)
	}
	if sess.State.Pairings[1] != nil || *sess.State.Pairings[2] != 3 {
		t.Fatalf("pairings=%v", sess.State.Pairings)
	}
}

func TestService_FinalizePrependsHistoryAndSyncs(t *testing.T) {
	t.Parallel()

	svc, syncer, clk := newTestService(t, member(1, "A", medium), member(2, "B"))
	ctx := context.Background()

	if _, err := svc.Finalize(ctx); err == nil {
		t.Fatalf("expected validation error on empty session")
	}
	if _, ok := syncer.get(tablestore.TableCeremonyHistory); ok {
		t.Fatalf("rejected finalize must not sync")
	}

	for i, label := range []string{"Gira de Caboclos", "Gira de Baianos"} {
		if _, err := svc.Apply(ctx, SetLabel{Label: label}); err != nil {
			t.Fatalf("SetLabel err=%v", err)
		}
		if _, err := svc.Apply(ctx, SetPresence{Member: 1, Mark: domain.PresencePresent}); err != nil {
			t.Fatalf("SetPresence err=%v", err)
		}
		if _, err := svc.Finalize(ctx); err != nil {
			t.Fatalf("Finalize #%d err=%v", i, err)
		}
		clk.Advance(time.Hour)
	}

	h := svc.History(ctx)
	if len(h) != 2 || h[0].Label != "Gira de Baianos" || h[1].Label != "Gira de Caboclos" {
		t.Fatalf("history=%+v", h)
	}
	sess, _ := svc.Session(ctx)
	if sess.State.Label != "" || len(sess.Present) != 0 {
		t.Fatalf("session not reset: %+v", sess.State)
	}
	recs, ok := syncer.get(tablestore.TableCeremonyHistory)
	if !ok || len(recs) != 2 {
		t.Fatalf("synced=%d ok=%v", len(recs), ok)
	}

	detail, err := svc.HistoryRecord(ctx, h[1].ID)
	if err != nil {
		t.Fatalf("HistoryRecord err=%v", err)
	}
	if detail.Names[1] != "A" {
		t.Fatalf("names=%v", detail.Names)
	}

	svc.DeleteHistory(ctx)
	if len(svc.History(ctx)) != 0 {
		t.Fatalf("history not cleared")
	}
	if recs, _ := syncer.get(tablestore.TableCeremonyHistory); len(recs) != 0 {
		t.Fatalf("cleared history synced %d records", len(recs))
	}
}

func TestService_HistoryRecordNotFound(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	_, err := svc.HistoryRecord(context.Background(), 123)
	ae := (*Error)(nil)
	if !errors.As(err, &ae) || ae.Status != 404 {
		t.Fatalf("err=%v, want 404", err)
	}
}

func TestService_MemberDeletedLeavesSession(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t, member(1, "A", medium), member(2, "B"))
	ctx := context.Background()
	_, _ = svc.MarkAllActivePresent(ctx)
	_, _ = svc.Apply(ctx, SetPairing{Medium: 1, Assistant: id(2)})

	svc.MemberDeleted(ctx, 2)
	sess, _ := svc.Session(ctx)
	if sess.State.Pairings[1] != nil {
		t.Fatalf("deleted assistant still paired")
	}
	if _, ok := sess.State.Presence[2]; ok {
		t.Fatalf("deleted member still marked")
	}
}
