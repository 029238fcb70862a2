package domain

import "time"

// EntityKey names one of the spiritual entity lines a member works with.
type EntityKey string

const (
	EntityExu        EntityKey = "exu"
	EntityPombaGira  EntityKey = "pombaGira"
	EntityCaboclo    EntityKey = "caboclo"
	EntityBaiano     EntityKey = "baiano"
	EntityMarinheiro EntityKey = "marinheiro"
	EntityCigano     EntityKey = "cigano"
	EntityPretoVelho EntityKey = "pretoVelho"
	EntityEre        EntityKey = "ere"
	EntityBoiadeiro  EntityKey = "boiadeiro"
	EntityExuMirim   EntityKey = "exuMirim"
)

// EntityKeys lists every entity line in display order.
var EntityKeys = []EntityKey{
	EntityExu,
	EntityPombaGira,
	EntityCaboclo,
	EntityBaiano,
	EntityMarinheiro,
	EntityCigano,
	EntityPretoVelho,
	EntityEre,
	EntityBoiadeiro,
	EntityExuMirim,
}

// Valid reports whether k is a known entity line.
func (k EntityKey) Valid() bool {
	for _, v := range EntityKeys {
		if v == k {
			return true
		}
	}
	return false
}

// Entities holds the free-text name of the entity a member works with, per line.
type Entities map[EntityKey]string

// Orixas are the ruling orixás of a member.
type Orixas struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// Milestone is a yes/no ritual milestone with an optional date.
type Milestone struct {
	Done bool       `json:"done"`
	Date *time.Time `json:"date,omitempty"`
}

// Jurema is the juremação milestone; BoatID points at the boat the member went through.
type Jurema struct {
	Done   bool       `json:"done"`
	Date   *time.Time `json:"date,omitempty"`
	BoatID *BoatID    `json:"boatId,omitempty"`
}

// Member is the domain representation of a member ("filho") record.
//
// JSON tags define the stored record shape used by the table mirror.
type Member struct {
	ID MemberID `json:"id"`

	Name       string       `json:"name"`
	Status     MemberStatus `json:"status"`
	Department Department   `json:"department"`
	Function   Function     `json:"function"`
	// CanLead marks a medium able to give passes (lead a session).
	CanLead bool `json:"canLead"`

	EntryDate *time.Time `json:"entryDate,omitempty"`
	BirthDate *time.Time `json:"birthDate,omitempty"`

	Orixas    Orixas   `json:"orixas"`
	Entities  Entities `json:"entities,omitempty"`
	SymbolURL string   `json:"symbolUrl,omitempty"`

	Jurema       Jurema    `json:"jurema"`
	SupportOrder Milestone `json:"supportOrder"`
	PasseOrder   Milestone `json:"passeOrder"`

	// SponsorEntities are the entity lines this member sponsors in boats.
	SponsorEntities []EntityKey `json:"sponsorEntities,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsActive reports whether the member may be marked present.
func (m Member) IsActive() bool { return m.Status == StatusActive }

// CloneMember deep-copies maps, slices and pointers.
func CloneMember(m Member) Member {
	out := m
	out.EntryDate = cloneTimePtr(m.EntryDate)
	out.BirthDate = cloneTimePtr(m.BirthDate)
	if m.Entities != nil {
		out.Entities = make(Entities, len(m.Entities))
		for k, v := range m.Entities {
			out.Entities[k] = v
		}
	}
	out.Jurema.Date = cloneTimePtr(m.Jurema.Date)
	if m.Jurema.BoatID != nil {
		v := *m.Jurema.BoatID
		out.Jurema.BoatID = &v
	}
	out.SupportOrder.Date = cloneTimePtr(m.SupportOrder.Date)
	out.PasseOrder.Date = cloneTimePtr(m.PasseOrder.Date)
	if m.SponsorEntities != nil {
		out.SponsorEntities = append([]EntityKey(nil), m.SponsorEntities...)
	}
	return out
}

func cloneTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
