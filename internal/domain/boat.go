package domain

// SponsorRef names a member and the entity line they sponsor a boat with.
type SponsorRef struct {
	MemberID  MemberID  `json:"memberId"`
	EntityKey EntityKey `json:"entityKey"`
}

// Boat is a juremação group ("barco") and its spiritual sponsors.
type Boat struct {
	ID       BoatID       `json:"id"`
	Name     string       `json:"name"`
	Sponsors []SponsorRef `json:"sponsors"`
}

func CloneBoat(b Boat) Boat {
	out := b
	out.Sponsors = append([]SponsorRef(nil), b.Sponsors...)
	return out
}
