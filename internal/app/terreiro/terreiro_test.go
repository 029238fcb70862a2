package terreiro

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	memclock "github.com/Overland-East-Bay/terreiro-api/internal/adapters/memory/clock"
	memeventrepo "github.com/Overland-East-Bay/terreiro-api/internal/adapters/memory/eventrepo"
	memmemberrepo "github.com/Overland-East-Bay/terreiro-api/internal/adapters/memory/memberrepo"
	memtablestore "github.com/Overland-East-Bay/terreiro-api/internal/adapters/memory/tablestore"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/boats"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/carpool"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/celebrations"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/gira"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/members"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/syncer"
	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newApp(t *testing.T, store tablestore.Store, clk *memclock.ManualClock) (*App, *syncer.Syncer) {
	t.Helper()
	s := syncer.New(syncer.Config{Store: store, Clock: clk})
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	app := New(Deps{
		Members: memmemberrepo.NewRepo(),
		Events:  memeventrepo.NewRepo(),
		Clock:   clk,
		Syncer:  s,
	})
	return app, s
}

func TestRestore_RoundTripsEveryTable(t *testing.T) {
	ctx := context.Background()
	clk := memclock.NewManualClock(time.Date(2026, 5, 13, 19, 0, 0, 0, time.UTC))
	store := memtablestore.NewStore()

	first, sync := newApp(t, store, clk)

	boat, err := first.Boats.Create(ctx, boats.Input{Name: "Barco das Águas"})
	require.NoError(t, err)
	ana, err := first.Members.Create(ctx, members.CreateMemberInput{Name: "Ana", CanLead: true, Jurema: domain.Jurema{Done: true, BoatID: &boat.ID}})
	require.NoError(t, err)
	bia, err := first.Members.Create(ctx, members.CreateMemberInput{Name: "Bia"})
	require.NoError(t, err)

	_, err = first.Gira.Apply(ctx, gira.SetLabel{Label: "Gira de Preto Velho"})
	require.NoError(t, err)
	_, err = first.Gira.Apply(ctx, gira.SetPresence{Member: ana.ID, Mark: domain.PresencePresent})
	require.NoError(t, err)
	rec, err := first.Gira.Finalize(ctx)
	require.NoError(t, err)

	_, err = first.Carpool.Apply(ctx, carpool.SetName{Name: "Cachoeira"})
	require.NoError(t, err)
	_, err = first.Carpool.Apply(ctx, carpool.ToggleParticipation{Member: bia.ID})
	require.NoError(t, err)
	ev, err := first.Carpool.Save(ctx)
	require.NoError(t, err)

	fest, err := first.Celebrations.Create(ctx, celebrations.Input{
		Name:     "Festa de Ogum",
		Payments: map[domain.MemberID]domain.Payment{bia.ID: {Paid: true, AmountCents: 2000}},
	})
	require.NoError(t, err)

	flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, sync.Flush(flushCtx))

	second, _ := newApp(t, store, clk)
	require.NoError(t, second.Restore(ctx, store))

	gotAna, err := second.Members.Get(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", gotAna.Name)
	require.NotNil(t, gotAna.Jurema.BoatID)
	assert.Equal(t, boat.ID, *gotAna.Jurema.BoatID)
	assert.True(t, second.Boats.Exists(ctx, boat.ID))

	hist := second.Gira.History(ctx)
	require.Len(t, hist, 1)
	assert.Equal(t, rec.ID, hist[0].ID)
	assert.Equal(t, []domain.MemberID{ana.ID}, hist[0].Present)
	assert.Equal(t, []domain.MemberID{bia.ID}, hist[0].Absent)

	gotEv, err := second.Carpool.Event(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cachoeira", gotEv.Name)
	assert.Contains(t, gotEv.Participants, bia.ID)

	gotFest, err := second.Celebrations.Get(ctx, fest.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Payment{Paid: true, AmountCents: 2000}, gotFest.Payments[bia.ID])
}

func TestMemberDelete_CascadesAcrossServices(t *testing.T) {
	ctx := context.Background()
	clk := memclock.NewManualClock(time.Date(2026, 5, 13, 19, 0, 0, 0, time.UTC))
	app, _ := newApp(t, memtablestore.NewStore(), clk)

	m, err := app.Members.Create(ctx, members.CreateMemberInput{Name: "Caio"})
	require.NoError(t, err)
	_, err = app.Members.SetSponsorEntities(ctx, m.ID, []domain.EntityKey{domain.EntityCaboclo})
	require.NoError(t, err)
	boat, err := app.Boats.Create(ctx, boats.Input{Name: "Barco", Sponsors: []domain.SponsorRef{{MemberID: m.ID, EntityKey: domain.EntityCaboclo}}})
	require.NoError(t, err)
	fest, err := app.Celebrations.Create(ctx, celebrations.Input{
		Name:     "Festa",
		Payments: map[domain.MemberID]domain.Payment{m.ID: {Paid: true}},
	})
	require.NoError(t, err)
	_, err = app.Gira.Apply(ctx, gira.SetPresence{Member: m.ID, Mark: domain.PresencePresent})
	require.NoError(t, err)
	_, err = app.Carpool.Apply(ctx, carpool.ToggleParticipation{Member: m.ID})
	require.NoError(t, err)

	require.NoError(t, app.Members.Delete(ctx, m.ID))

	sess, err := app.Gira.Session(ctx)
	require.NoError(t, err)
	assert.NotContains(t, sess.State.Presence, m.ID)

	d, err := app.Carpool.Draft(ctx)
	require.NoError(t, err)
	assert.NotContains(t, d.State.Participants, m.ID)

	gotBoat, err := app.Boats.Get(ctx, boat.ID)
	require.NoError(t, err)
	assert.Empty(t, gotBoat.Sponsors)

	gotFest, err := app.Celebrations.Get(ctx, fest.ID)
	require.NoError(t, err)
	assert.NotContains(t, gotFest.Payments, m.ID)
}
