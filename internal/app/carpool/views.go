package carpool

import "github.com/Overland-East-Bay/terreiro-api/internal/domain"

// Vehicle is a driver with their seats resolved to members.
type Vehicle struct {
	Driver domain.Member
	Seats  [domain.SeatsPerVehicle]*domain.Member
}

// Summary counts the draft's participants by situation.
type Summary struct {
	Participants int
	Drivers      int
	Independents int
	NeedRide     int
	Unseated     int
}

// Views are the read-only lists derived from a draft. Lists are ordered by name.
type Views struct {
	Participants      []domain.Member
	Vehicles          []Vehicle
	RidersNeedingSeat []domain.Member
	UnseatedRiders    []domain.Member
	Independents      []domain.Member
	// Undeclared participants have not chosen a transport mode yet.
	Undeclared []domain.Member
	// Available are the members who are not participating.
	Available []domain.Member
	Summary   Summary
}

// ComputeViews derives the carpool views. members is the registry; participants
// missing from it are skipped.
func ComputeViews(members []domain.Member, s State) Views {
	sorted := make([]domain.Member, len(members))
	copy(sorted, members)
	domain.SortMembersByName(sorted, nil)

	byID := make(map[domain.MemberID]domain.Member, len(sorted))
	for _, m := range sorted {
		byID[m.ID] = m
	}
	seated := s.Vehicles.SeatedRiders()

	v := Views{
		Participants:      []domain.Member{},
		Vehicles:          []Vehicle{},
		RidersNeedingSeat: []domain.Member{},
		UnseatedRiders:    []domain.Member{},
		Independents:      []domain.Member{},
		Undeclared:        []domain.Member{},
		Available:         []domain.Member{},
	}
	for _, m := range sorted {
		p, ok := s.Participants[m.ID]
		if !ok || !p.Participating {
			if m.IsActive() {
				v.Available = append(v.Available, m)
			}
			continue
		}
		v.Participants = append(v.Participants, m)
		switch p.Mode {
		case domain.TransportDriver:
			veh := Vehicle{Driver: m}
			for i, r := range s.Vehicles[m.ID] {
				if r == nil {
					continue
				}
				if rm, ok := byID[*r]; ok {
					rider := rm
					veh.Seats[i] = &rider
				}
			}
			v.Vehicles = append(v.Vehicles, veh)
		case domain.TransportNeedsRide:
			v.RidersNeedingSeat = append(v.RidersNeedingSeat, m)
			if _, ok := seated[m.ID]; !ok {
				v.UnseatedRiders = append(v.UnseatedRiders, m)
			}
		case domain.TransportIndependent:
			v.Independents = append(v.Independents, m)
		default:
			v.Undeclared = append(v.Undeclared, m)
		}
	}
	v.Summary = Summary{
		Participants: len(v.Participants),
		Drivers:      len(v.Vehicles),
		Independents: len(v.Independents),
		NeedRide:     len(v.RidersNeedingSeat),
		Unseated:     len(v.UnseatedRiders),
	}
	return v
}
