package carpool

import (
	"time"

	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
)

// State is the carpool draft for one external event.
type State struct {
	// EditingID is set while the draft is a loaded, already saved event.
	EditingID    *domain.EventID
	Name         string
	Date         *time.Time
	Participants map[domain.MemberID]domain.Participation
	Vehicles     domain.SeatMap
}

// NewState returns an empty draft dated date (may be nil).
func NewState(date *time.Time) State {
	return State{
		Date:         cloneTime(date),
		Participants: make(map[domain.MemberID]domain.Participation),
		Vehicles:     make(domain.SeatMap),
	}
}

// Clone deep-copies s.
func (s State) Clone() State {
	out := State{
		Name:         s.Name,
		Date:         cloneTime(s.Date),
		Participants: make(map[domain.MemberID]domain.Participation, len(s.Participants)),
		Vehicles:     s.Vehicles.Clone(),
	}
	if s.EditingID != nil {
		v := *s.EditingID
		out.EditingID = &v
	}
	for k, v := range s.Participants {
		out.Participants[k] = v
	}
	return out
}

// FromEvent builds a draft editing e.
func FromEvent(e domain.ExternalEvent) State {
	c := domain.CloneExternalEvent(e)
	id := c.ID
	s := State{
		EditingID:    &id,
		Name:         c.Name,
		Date:         c.Date,
		Participants: c.Participants,
		Vehicles:     c.Vehicles,
	}
	if s.Participants == nil {
		s.Participants = make(map[domain.MemberID]domain.Participation)
	}
	if s.Vehicles == nil {
		s.Vehicles = make(domain.SeatMap)
	}
	return s
}

// Event converts the draft into a saved event with id.
func (s State) Event(id domain.EventID) domain.ExternalEvent {
	c := s.Clone()
	return domain.ExternalEvent{
		ID:           id,
		Name:         domain.NormalizeHumanName(c.Name),
		Date:         c.Date,
		Participants: c.Participants,
		Vehicles:     c.Vehicles,
	}
}

// Action is a draft edit. Every action is total: inapplicable edits leave the state unchanged.
type Action interface {
	apply(s *State)
}

// Reduce applies a to a copy of s and returns the copy. s is never modified.
func Reduce(s State, a Action) State {
	out := s.Clone()
	if a != nil {
		a.apply(&out)
	}
	return out
}

type SetName struct{ Name string }

func (a SetName) apply(s *State) { s.Name = a.Name }

type SetDate struct{ Date *time.Time }

func (a SetDate) apply(s *State) { s.Date = cloneTime(a.Date) }

// ToggleParticipation flips a member's participation. Leaving clears their
// transport mode, their vehicle and any seat they hold.
type ToggleParticipation struct {
	Member domain.MemberID
}

func (a ToggleParticipation) apply(s *State) {
	if p, ok := s.Participants[a.Member]; ok && p.Participating {
		delete(s.Participants, a.Member)
		delete(s.Vehicles, a.Member)
		unseat(s.Vehicles, a.Member)
		return
	}
	s.Participants[a.Member] = domain.Participation{Participating: true}
}

// SetTransportMode declares how a participant travels. Becoming a driver
// creates an empty vehicle; leaving driver mode deletes it; leaving
// needs-ride mode gives up any seat.
type SetTransportMode struct {
	Member domain.MemberID
	Mode   domain.TransportMode
}

func (a SetTransportMode) apply(s *State) {
	p, ok := s.Participants[a.Member]
	if !ok || !p.Participating {
		return
	}
	prev := p.Mode
	if prev == domain.TransportDriver && a.Mode != domain.TransportDriver {
		delete(s.Vehicles, a.Member)
	}
	if a.Mode == domain.TransportDriver && prev != domain.TransportDriver {
		s.Vehicles[a.Member] = domain.Seats{}
	}
	if prev == domain.TransportNeedsRide && a.Mode != domain.TransportNeedsRide {
		unseat(s.Vehicles, a.Member)
	}
	p.Mode = a.Mode
	s.Participants[a.Member] = p
}

// AssignSeat puts Rider (nil empties the seat) in a driver's seat. A rider
// seated elsewhere, in any vehicle, is moved rather than duplicated.
type AssignSeat struct {
	Driver domain.MemberID
	Seat   int
	Rider  *domain.MemberID
}

func (a AssignSeat) apply(s *State) {
	seats, ok := s.Vehicles[a.Driver]
	if !ok || a.Seat < 0 || a.Seat >= domain.SeatsPerVehicle {
		return
	}
	if a.Rider != nil {
		unseat(s.Vehicles, *a.Rider)
		seats = s.Vehicles[a.Driver]
	}
	seats[a.Seat] = domain.CloneMemberIDPtr(a.Rider)
	s.Vehicles[a.Driver] = seats
}

// Load replaces the draft with a saved event.
type Load struct{ Event domain.ExternalEvent }

func (a Load) apply(s *State) { *s = FromEvent(a.Event) }

// New starts an empty draft.
type New struct{ Date *time.Time }

func (a New) apply(s *State) { *s = NewState(a.Date) }

func unseat(vehicles domain.SeatMap, rider domain.MemberID) {
	for driver, seats := range vehicles {
		changed := false
		for i, r := range seats {
			if r != nil && *r == rider {
				seats[i] = nil
				changed = true
			}
		}
		if changed {
			vehicles[driver] = seats
		}
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
