package carpool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	memclock "github.com/Overland-East-Bay/terreiro-api/internal/adapters/memory/clock"
	memeventrepo "github.com/Overland-East-Bay/terreiro-api/internal/adapters/memory/eventrepo"
	memmemberrepo "github.com/Overland-East-Bay/terreiro-api/internal/adapters/memory/memberrepo"
	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

type countingSyncer struct {
	mu    sync.Mutex
	calls int
	last  []tablestore.Record
}

func (c *countingSyncer) Submit(table tablestore.Table, records []tablestore.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if table == tablestore.TableExternalEvents {
		c.calls++
		c.last = records
	}
}

func testMember(mid domain.MemberID, name string) domain.Member {
	return domain.Member{ID: mid, Name: name, Status: domain.StatusActive, Department: domain.DepartmentNone, Function: domain.FunctionNone}
}

func newTestService(t *testing.T) (*Service, *countingSyncer) {
	t.Helper()
	members := memmemberrepo.NewRepo()
	away := testMember(9, "Away")
	away.Status = domain.StatusDischarged
	if err := members.ReplaceAll(context.Background(), []domain.Member{
		testMember(1, "Dora"),
		testMember(2, "Rui"),
		testMember(3, "Ines"),
		testMember(4, "Ana"),
		away,
	}); err != nil {
		t.Fatalf("ReplaceAll err=%v", err)
	}
	syncer := &countingSyncer{}
	clk := memclock.NewManualClock(time.Date(2026, 8, 15, 13, 30, 0, 0, time.UTC))
	return NewService(members, memeventrepo.NewRepo(), clk, syncer), syncer
}

func mustApply(t *testing.T, svc *Service, actions ...Action) Draft {
	t.Helper()
	var (
		d   Draft
		err error
	)
	for _, a := range actions {
		d, err = svc.Apply(context.Background(), a)
		if err != nil {
			t.Fatalf("Apply(%T) err=%v", a, err)
		}
	}
	return d
}

func TestService_ViewsAndSummary(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	d := mustApply(t, svc,
		ToggleParticipation{Member: 1}, SetTransportMode{Member: 1, Mode: domain.TransportDriver},
		ToggleParticipation{Member: 2}, SetTransportMode{Member: 2, Mode: domain.TransportNeedsRide},
		ToggleParticipation{Member: 3}, SetTransportMode{Member: 3, Mode: domain.TransportNeedsRide},
		ToggleParticipation{Member: 4}, SetTransportMode{Member: 4, Mode: domain.TransportIndependent},
		AssignSeat{Driver: 1, Seat: 0, Rider: id(2)},
	)

	want := Summary{Participants: 4, Drivers: 1, Independents: 1, NeedRide: 2, Unseated: 1}
	if d.Views.Summary != want {
		t.Fatalf("summary=%+v, want %+v", d.Views.Summary, want)
	}
	if len(d.Views.UnseatedRiders) != 1 || d.Views.UnseatedRiders[0].ID != 3 {
		t.Fatalf("unseated=%v", d.Views.UnseatedRiders)
	}
	if d.Views.Vehicles[0].Seats[0] == nil || d.Views.Vehicles[0].Seats[0].Name != "Rui" {
		t.Fatalf("vehicle=%+v", d.Views.Vehicles[0])
	}
	if d.State.Date == nil || !d.State.Date.Equal(time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("draft date=%v", d.State.Date)
	}
}

func TestService_ValidationErrors(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	cases := []struct {
		name   string
		action Action
		status int
	}{
		{"unknown member", ToggleParticipation{Member: 77}, 404},
		{"inactive member", ToggleParticipation{Member: 9}, 422},
		{"mode for non participant", SetTransportMode{Member: 1, Mode: domain.TransportDriver}, 422},
		{"seat without vehicle", AssignSeat{Driver: 1, Seat: 0}, 422},
	}
	for _, tc := range cases {
		_, err := svc.Apply(ctx, tc.action)
		ae := (*Error)(nil)
		if !errors.As(err, &ae) || ae.Status != tc.status {
			t.Fatalf("%s: err=%v, want %d", tc.name, err, tc.status)
		}
	}

	mustApply(t, svc,
		ToggleParticipation{Member: 1}, SetTransportMode{Member: 1, Mode: domain.TransportDriver},
		ToggleParticipation{Member: 4}, SetTransportMode{Member: 4, Mode: domain.TransportIndependent},
	)
	if _, err := svc.Apply(ctx, AssignSeat{Driver: 1, Seat: 4, Rider: nil}); err == nil {
		t.Fatalf("expected error for seat out of range")
	}
	if _, err := svc.Apply(ctx, AssignSeat{Driver: 1, Seat: 0, Rider: id(4)}); err == nil {
		t.Fatalf("expected error seating an independent participant")
	}
}

func TestService_SaveRequiresNameThenCreatesAndUpdates(t *testing.T) {
	t.Parallel()

	svc, syncer := newTestService(t)
	ctx := context.Background()
	mustApply(t, svc, ToggleParticipation{Member: 1})

	_, err := svc.Save(ctx)
	ae := (*Error)(nil)
	if !errors.As(err, &ae) || ae.Status != 422 {
		t.Fatalf("Save without name err=%v", err)
	}
	if syncer.calls != 0 {
		t.Fatalf("rejected save synced")
	}

	mustApply(t, svc, SetName{Name: "  Gira na   Praia "})
	ev, err := svc.Save(ctx)
	if err != nil {
		t.Fatalf("Save err=%v", err)
	}
	if ev.ID != 1 || ev.Name != "Gira na Praia" {
		t.Fatalf("saved=%+v", ev)
	}

	mustApply(t, svc, ToggleParticipation{Member: 2})
	ev2, err := svc.Save(ctx)
	if err != nil {
		t.Fatalf("Save (update) err=%v", err)
	}
	if ev2.ID != 1 || len(ev2.Participants) != 2 {
		t.Fatalf("updated=%+v", ev2)
	}
	evs, _ := svc.Events(ctx)
	if len(evs) != 1 {
		t.Fatalf("events=%d, want 1", len(evs))
	}

	if _, err := svc.New(ctx); err != nil {
		t.Fatalf("New err=%v", err)
	}
	mustApply(t, svc, SetName{Name: "Mata"})
	ev3, _ := svc.Save(ctx)
	if ev3.ID != 2 {
		t.Fatalf("second event id=%d", ev3.ID)
	}
	if syncer.calls != 3 || len(syncer.last) != 2 {
		t.Fatalf("sync calls=%d last=%d", syncer.calls, len(syncer.last))
	}
}

func TestService_LoadDeleteAndMemberCleanup(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	mustApply(t, svc,
		SetName{Name: "Cachoeira"},
		ToggleParticipation{Member: 1}, SetTransportMode{Member: 1, Mode: domain.TransportDriver},
		ToggleParticipation{Member: 2}, SetTransportMode{Member: 2, Mode: domain.TransportNeedsRide},
		AssignSeat{Driver: 1, Seat: 2, Rider: id(2)},
	)
	ev, err := svc.Save(ctx)
	if err != nil {
		t.Fatalf("Save err=%v", err)
	}
	_, _ = svc.New(ctx)

	d, err := svc.Load(ctx, ev.ID)
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	if d.State.EditingID == nil || *d.State.EditingID != ev.ID || d.State.Vehicles[1].IndexOf(2) != 2 {
		t.Fatalf("loaded=%+v", d.State)
	}

	if err := svc.MemberDeleted(ctx, 2); err != nil {
		t.Fatalf("MemberDeleted err=%v", err)
	}
	saved, _ := svc.Event(ctx, ev.ID)
	if saved.Vehicles[1].IndexOf(2) != -1 {
		t.Fatalf("deleted member still seated in saved event")
	}
	d, _ = svc.Draft(ctx)
	if _, ok := d.State.Participants[2]; ok {
		t.Fatalf("deleted member still in draft")
	}

	if err := svc.Delete(ctx, ev.ID); err != nil {
		t.Fatalf("Delete err=%v", err)
	}
	if err := svc.Delete(ctx, ev.ID); err == nil {
		t.Fatalf("expected not found on second delete")
	}
	if _, err := svc.Load(ctx, ev.ID); err == nil {
		t.Fatalf("expected not found on load")
	}
}
