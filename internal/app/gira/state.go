package gira

import (
	"sort"

	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
)

// State is the open ceremony session: label, attendance and the two assignment maps.
type State struct {
	Label       string
	Presence    map[domain.MemberID]domain.PresenceMark
	Pairings    domain.Pairings
	Departments domain.DepartmentAssignments
}

// NewState returns an empty session.
func NewState() State {
	return State{
		Presence: make(map[domain.MemberID]domain.PresenceMark),
		Pairings: make(domain.Pairings),
	}
}

// Clone deep-copies s. A zero State clones into a usable empty one.
func (s State) Clone() State {
	out := State{
		Label:       s.Label,
		Presence:    make(map[domain.MemberID]domain.PresenceMark, len(s.Presence)),
		Pairings:    s.Pairings.Clone(),
		Departments: s.Departments.Clone(),
	}
	for k, v := range s.Presence {
		out.Presence[k] = v
	}
	return out
}

// IsPresent reports whether id is marked present.
func (s State) IsPresent(id domain.MemberID) bool {
	return s.Presence[id] == domain.PresencePresent
}

// PresentIDs returns the ids marked present, ascending.
func (s State) PresentIDs() []domain.MemberID {
	out := make([]domain.MemberID, 0, len(s.Presence))
	for id, mark := range s.Presence {
		if mark == domain.PresencePresent {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
