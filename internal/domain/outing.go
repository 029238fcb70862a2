package domain

import "time"

// SeatsPerVehicle is the fixed number of rider seats in a driver's vehicle.
const SeatsPerVehicle = 4

// Seats are the rider seats of one vehicle; nil means empty.
type Seats [SeatsPerVehicle]*MemberID

// Clone deep-copies the seats.
func (s Seats) Clone() Seats {
	var out Seats
	for i, v := range s {
		out[i] = CloneMemberIDPtr(v)
	}
	return out
}

// IndexOf returns the seat holding rider, or -1.
func (s Seats) IndexOf(rider MemberID) int {
	for i, v := range s {
		if v != nil && *v == rider {
			return i
		}
	}
	return -1
}

// SeatMap maps a driver to their vehicle seats.
type SeatMap map[MemberID]Seats

func (m SeatMap) Clone() SeatMap {
	out := make(SeatMap, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}

// SeatedRiders returns every rider occupying a seat in any vehicle.
func (m SeatMap) SeatedRiders() map[MemberID]struct{} {
	out := make(map[MemberID]struct{})
	for _, seats := range m {
		for _, r := range seats {
			if r != nil {
				out[*r] = struct{}{}
			}
		}
	}
	return out
}

// Participation is a member's participation in an external event.
type Participation struct {
	Participating bool          `json:"participating"`
	Mode          TransportMode `json:"mode,omitempty"`
}

// ExternalEvent is a saved carpool plan for an event held outside the house ("gira externa").
type ExternalEvent struct {
	ID           EventID                    `json:"id"`
	Name         string                     `json:"name"`
	Date         *time.Time                 `json:"date,omitempty"`
	Participants map[MemberID]Participation `json:"participants"`
	Vehicles     SeatMap                    `json:"vehicles"`
}

// CloneExternalEvent deep-copies e.
func CloneExternalEvent(e ExternalEvent) ExternalEvent {
	out := e
	out.Date = cloneTimePtr(e.Date)
	out.Participants = make(map[MemberID]Participation, len(e.Participants))
	for k, v := range e.Participants {
		out.Participants[k] = v
	}
	out.Vehicles = e.Vehicles.Clone()
	return out
}
