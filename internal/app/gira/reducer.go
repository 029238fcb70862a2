package gira

import "github.com/Overland-East-Bay/terreiro-api/internal/domain"

// Action is a session edit. Implementations are the exported action types of this package.
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

// SetLabel names the ceremony.
type SetLabel struct {
	Label string
}

func (a SetLabel) apply(s *State) { s.Label = a.Label }

// SetPresence sets one member's attendance mark. A member no longer present is
// dropped from the pairings and department slots.
type SetPresence struct {
	Member domain.MemberID
	Mark   domain.PresenceMark
}

func (a SetPresence) apply(s *State) {
	if a.Mark == domain.PresenceUnset {
		delete(s.Presence, a.Member)
	} else {
		s.Presence[a.Member] = a.Mark
	}
	if a.Mark != domain.PresencePresent {
		dropMember(s, a.Member)
	}
}

// MarkAllPresent marks every listed member present.
type MarkAllPresent struct {
	Members []domain.MemberID
}

func (a MarkAllPresent) apply(s *State) {
	for _, id := range a.Members {
		s.Presence[id] = domain.PresencePresent
	}
}

// ClearPresence unmarks everyone, which also empties both assignment maps.
type ClearPresence struct{}

func (ClearPresence) apply(s *State) {
	s.Presence = make(map[domain.MemberID]domain.PresenceMark)
	s.Pairings = make(domain.Pairings)
	s.Departments = domain.DepartmentAssignments{}
}

// SetPairing pairs Medium with Assistant (nil unpairs). An assistant paired to
// another medium is released from that medium first.
type SetPairing struct {
	Medium    domain.MemberID
	Assistant *domain.MemberID
}

func (a SetPairing) apply(s *State) {
	if a.Assistant != nil {
		for m, v := range s.Pairings {
			if m != a.Medium && v != nil && *v == *a.Assistant {
				s.Pairings[m] = nil
			}
		}
	}
	s.Pairings[a.Medium] = domain.CloneMemberIDPtr(a.Assistant)
}

// SetDepartmentSlot staffs Slot with Member (nil empties it). A member holding
// the other slot is moved, not duplicated.
type SetDepartmentSlot struct {
	Slot   domain.DepartmentSlot
	Member *domain.MemberID
}

func (a SetDepartmentSlot) apply(s *State) {
	d := s.Departments
	if a.Member != nil {
		other := a.Slot.Other()
		if h := d.Get(other); h != nil && *h == *a.Member {
			d = d.With(other, nil)
		}
	}
	s.Departments = d.With(a.Slot, a.Member)
}

// Reset abandons the session.
type Reset struct{}

func (Reset) apply(s *State) { *s = NewState() }

func dropMember(s *State, id domain.MemberID) {
	delete(s.Pairings, id)
	for m, v := range s.Pairings {
		if v != nil && *v == id {
			s.Pairings[m] = nil
		}
	}
	if slot, ok := s.Departments.SlotOf(id); ok {
		s.Departments = s.Departments.With(slot, nil)
	}
}
