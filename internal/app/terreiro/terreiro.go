// Package terreiro assembles the application services and links them together.
//
// Member deletion cascades into every other service, and boat deletion clears
// the jurema references held by members. Restore rebuilds the in-memory state
// from a table store at startup.
package terreiro

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Overland-East-Bay/terreiro-api/internal/app/boats"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/carpool"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/celebrations"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/gira"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/members"
	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
	"github.com/Overland-East-Bay/terreiro-api/internal/platform/metrics"
	clockport "github.com/Overland-East-Bay/terreiro-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/eventrepo"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/memberrepo"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

type Deps struct {
	Members memberrepo.Repository
	Events  eventrepo.Repository
	Clock   clockport.Clock
	// Syncer receives table snapshots; nil disables persistence.
	Syncer  tablestore.Syncer
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	HouseLeader *domain.MemberID
}

type App struct {
	Members      *members.Service
	Gira         *gira.Service
	Carpool      *carpool.Service
	Boats        *boats.Service
	Celebrations *celebrations.Service

	logger *slog.Logger
}

func New(d Deps) *App {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{logger: logger}
	a.Members = members.NewService(d.Members, d.Clock, d.Syncer)
	a.Members.Logger = logger.With("component", "members")
	a.Members.Metrics = d.Metrics

	a.Boats = boats.NewService(d.Members, a.Members, d.Syncer)
	a.Boats.Logger = logger.With("component", "boats")
	a.Members.BoatExists = a.Boats.Exists

	a.Gira = gira.NewService(d.Members, d.Clock, d.Syncer)
	a.Gira.Options = gira.Options{HouseLeader: d.HouseLeader}
	a.Gira.Logger = logger.With("component", "gira")
	a.Gira.Metrics = d.Metrics

	a.Carpool = carpool.NewService(d.Members, d.Events, d.Clock, d.Syncer)
	a.Carpool.Logger = logger.With("component", "carpool")
	a.Carpool.Metrics = d.Metrics

	a.Celebrations = celebrations.NewService(d.Members, d.Syncer)
	a.Celebrations.Logger = logger.With("component", "celebrations")

	a.Members.OnDelete(func(ctx context.Context, id domain.MemberID) error {
		a.Gira.MemberDeleted(ctx, id)
		return nil
	})
	a.Members.OnDelete(a.Carpool.MemberDeleted)
	a.Members.OnDelete(a.Boats.MemberDeleted)
	a.Members.OnDelete(a.Celebrations.MemberDeleted)
	return a
}

// Restore loads every table from store into the services.
// Boats are loaded before members so jurema references resolve.
func (a *App) Restore(ctx context.Context, store tablestore.Store) error {
	bs, err := load[domain.Boat](ctx, store, tablestore.TableBoats)
	if err != nil {
		return err
	}
	a.Boats.Restore(bs)

	ms, err := load[domain.Member](ctx, store, tablestore.TableMembers)
	if err != nil {
		return err
	}
	if err := a.Members.Restore(ctx, ms); err != nil {
		return fmt.Errorf("restore members: %w", err)
	}

	hist, err := load[domain.CeremonyRecord](ctx, store, tablestore.TableCeremonyHistory)
	if err != nil {
		return err
	}
	a.Gira.Restore(hist)

	evs, err := load[domain.ExternalEvent](ctx, store, tablestore.TableExternalEvents)
	if err != nil {
		return err
	}
	if err := a.Carpool.Restore(ctx, evs); err != nil {
		return fmt.Errorf("restore external events: %w", err)
	}

	cs, err := load[domain.Celebration](ctx, store, tablestore.TableCelebrations)
	if err != nil {
		return err
	}
	a.Celebrations.Restore(cs)

	a.logger.Info("state restored",
		slog.Int("boats", len(bs)),
		slog.Int("members", len(ms)),
		slog.Int("ceremonies", len(hist)),
		slog.Int("external_events", len(evs)),
		slog.Int("celebrations", len(cs)),
	)
	return nil
}

func load[T any](ctx context.Context, store tablestore.Store, table tablestore.Table) ([]T, error) {
	recs, err := store.LoadAll(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}
	out, err := tablestore.Decode[T](recs)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}
	return out, nil
}
