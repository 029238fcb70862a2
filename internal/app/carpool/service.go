package carpool

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
	"github.com/Overland-East-Bay/terreiro-api/internal/platform/metrics"
	clockport "github.com/Overland-East-Bay/terreiro-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/eventrepo"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/memberrepo"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

// Draft is the carpool draft as presented to callers.
type Draft struct {
	State State
	Views Views
}

// Service owns the carpool draft and the saved external events.
type Service struct {
	members memberrepo.Repository
	events  eventrepo.Repository
	clk     clockport.Clock
	sync    tablestore.Syncer

	mu    sync.Mutex
	draft State

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func NewService(members memberrepo.Repository, events eventrepo.Repository, clk clockport.Clock, syncer tablestore.Syncer) *Service {
	s := &Service{
		members: members,
		events:  events,
		clk:     clk,
		sync:    syncer,
		Logger:  slog.Default(),
	}
	s.draft = NewState(s.today())
	return s
}

func (s *Service) Draft(ctx context.Context) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftLocked(ctx)
}

// Apply validates a and reduces it into the draft. Load and New are handled by
// their own methods.
func (s *Service) Apply(ctx context.Context, a Action) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validate(ctx, a); err != nil {
		return Draft{}, err
	}
	s.draft = Reduce(s.draft, a)
	return s.draftLocked(ctx)
}

// Save stores the draft. A draft loaded from a saved event overwrites it;
// otherwise a new event is created. The name is required.
func (s *Service) Save(ctx context.Context) (domain.ExternalEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if domain.NormalizeHumanName(s.draft.Name) == "" {
		return domain.ExternalEvent{}, &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "event name is required",
			Details: map[string]any{"name": "must be non-empty"},
		}
	}

	var ev domain.ExternalEvent
	if s.draft.EditingID != nil {
		ev = s.draft.Event(*s.draft.EditingID)
		err := s.events.Save(ctx, ev)
		if errors.Is(err, eventrepo.ErrNotFound) {
			// The edited event was deleted meanwhile; save as a new one.
			s.draft.EditingID = nil
		} else if err != nil {
			return domain.ExternalEvent{}, err
		}
	}
	if s.draft.EditingID == nil {
		id, err := s.events.NextID(ctx)
		if err != nil {
			return domain.ExternalEvent{}, err
		}
		ev = s.draft.Event(id)
		if err := s.events.Create(ctx, ev); err != nil {
			return domain.ExternalEvent{}, err
		}
		s.draft.EditingID = &id
	}
	s.draft.Name = ev.Name

	s.Metrics.OutingSaved()
	s.Logger.Info("external event saved",
		slog.Int64("id", int64(ev.ID)),
		slog.String("name", ev.Name),
		slog.Int("participants", len(ev.Participants)),
	)
	s.submitLocked(ctx)
	return ev, nil
}

func (s *Service) Events(ctx context.Context) ([]domain.ExternalEvent, error) {
	return s.events.List(ctx)
}

func (s *Service) Event(ctx context.Context, id domain.EventID) (domain.ExternalEvent, error) {
	ev, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, eventrepo.ErrNotFound) {
			return domain.ExternalEvent{}, notFound()
		}
		return domain.ExternalEvent{}, err
	}
	return ev, nil
}

// Load makes a saved event the draft.
func (s *Service) Load(ctx context.Context, id domain.EventID) (Draft, error) {
	ev, err := s.Event(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = Reduce(s.draft, Load{Event: ev})
	return s.draftLocked(ctx)
}

// New discards the draft and starts an empty one dated today.
func (s *Service) New(ctx context.Context) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = Reduce(s.draft, New{Date: s.today()})
	return s.draftLocked(ctx)
}

func (s *Service) Delete(ctx context.Context, id domain.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.events.Delete(ctx, id); err != nil {
		if errors.Is(err, eventrepo.ErrNotFound) {
			return notFound()
		}
		return err
	}
	if s.draft.EditingID != nil && *s.draft.EditingID == id {
		s.draft.EditingID = nil
	}
	s.submitLocked(ctx)
	return nil
}

// Restore replaces the saved events, e.g. with records loaded from storage.
func (s *Service) Restore(ctx context.Context, events []domain.ExternalEvent) error {
	return s.events.ReplaceAll(ctx, events)
}

// MemberDeleted removes a deleted member from the draft and from saved events' seats and participants.
func (s *Service) MemberDeleted(ctx context.Context, id domain.MemberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft = removeMember(s.draft, id)

	evs, err := s.events.List(ctx)
	if err != nil {
		return err
	}
	changed := false
	for _, ev := range evs {
		if _, ok := ev.Participants[id]; !ok {
			if _, seated := ev.Vehicles.SeatedRiders()[id]; !seated {
				continue
			}
		}
		st := removeMember(FromEvent(ev), id)
		if err := s.events.Save(ctx, st.Event(ev.ID)); err != nil {
			return err
		}
		changed = true
	}
	if changed {
		s.submitLocked(ctx)
	}
	return nil
}

func removeMember(st State, id domain.MemberID) State {
	if p, ok := st.Participants[id]; ok && p.Participating {
		return Reduce(st, ToggleParticipation{Member: id})
	}
	out := st.Clone()
	delete(out.Participants, id)
	delete(out.Vehicles, id)
	unseat(out.Vehicles, id)
	return out
}

func (s *Service) validate(ctx context.Context, a Action) error {
	switch a := a.(type) {
	case ToggleParticipation:
		if p, ok := s.draft.Participants[a.Member]; ok && p.Participating {
			return nil
		}
		m, err := s.members.GetByID(ctx, a.Member)
		if errors.Is(err, memberrepo.ErrNotFound) {
			return &Error{Status: 404, Code: "MEMBER_NOT_FOUND", Message: "member not found"}
		} else if err != nil {
			return err
		}
		if !m.IsActive() {
			return validationError("only active members can participate", map[string]any{"memberId": "must reference an active member"})
		}
	case SetTransportMode:
		if p, ok := s.draft.Participants[a.Member]; !ok || !p.Participating {
			return validationError("member is not participating", map[string]any{"memberId": "must be a participant"})
		}
		switch a.Mode {
		case domain.TransportNone, domain.TransportDriver, domain.TransportNeedsRide, domain.TransportIndependent:
		default:
			return validationError("invalid transport mode", map[string]any{"mode": "must be driver, needs-ride or independent"})
		}
	case AssignSeat:
		if _, ok := s.draft.Vehicles[a.Driver]; !ok {
			return validationError("driver has no vehicle", map[string]any{"driverId": "must be a participant in driver mode"})
		}
		if a.Seat < 0 || a.Seat >= domain.SeatsPerVehicle {
			return validationError("invalid seat", map[string]any{"seat": "must be between 0 and 3"})
		}
		if a.Rider != nil {
			p, ok := s.draft.Participants[*a.Rider]
			if !ok || !p.Participating || p.Mode != domain.TransportNeedsRide {
				return validationError("rider must be a participant needing a ride", map[string]any{"riderId": "must be a participant in needs-ride mode"})
			}
		}
	case Load, New:
		return validationError("use the dedicated operation", nil)
	}
	return nil
}

func (s *Service) draftLocked(ctx context.Context) (Draft, error) {
	ms, err := s.members.List(ctx, memberrepo.Filter{})
	if err != nil {
		return Draft{}, err
	}
	return Draft{State: s.draft.Clone(), Views: ComputeViews(ms, s.draft)}, nil
}

func (s *Service) submitLocked(ctx context.Context) {
	if s.sync == nil {
		return
	}
	evs, err := s.events.List(ctx)
	if err != nil {
		s.Logger.Error("list external events for sync", slog.Any("err", err))
		return
	}
	recs, err := tablestore.Encode(evs, func(e domain.ExternalEvent) int64 { return int64(e.ID) })
	if err != nil {
		s.Logger.Error("encode external events", slog.Any("err", err))
		return
	}
	s.sync.Submit(tablestore.TableExternalEvents, recs)
}

func (s *Service) today() *time.Time {
	d := clockport.Today(s.clk)
	return &d
}

func notFound() *Error {
	return &Error{Status: 404, Code: "EVENT_NOT_FOUND", Message: "external event not found"}
}
