package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// PresenceMark is the attendance mark of a member for the open ceremony session.
type PresenceMark string

const (
	PresenceUnset   PresenceMark = ""
	PresencePresent PresenceMark = "present"
	PresenceAbsent  PresenceMark = "absent"
)

func ParsePresenceMark(s string) (PresenceMark, error) {
	switch enumKey(s) {
	case "", "unset":
		return PresenceUnset, nil
	case "present", "presente":
		return PresencePresent, nil
	case "absent", "ausente":
		return PresenceAbsent, nil
	default:
		return "", fmt.Errorf("invalid presence mark %q", s)
	}
}

// UnmarshalJSON accepts the tri-state string form and the older boolean form
// (true = present, false = unset).
func (p *PresenceMark) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch string(b) {
	case "true":
		*p = PresencePresent
		return nil
	case "false", "null":
		*p = PresenceUnset
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("invalid presence mark: %w", err)
	}
	v, err := ParsePresenceMark(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Pairings maps a medium to the assistant ("cambono") paired with them, or nil.
type Pairings map[MemberID]*MemberID

// Clone deep-copies the pairings.
func (p Pairings) Clone() Pairings {
	out := make(Pairings, len(p))
	for k, v := range p {
		out[k] = CloneMemberIDPtr(v)
	}
	return out
}

// MediumOf returns the medium a is paired with.
func (p Pairings) MediumOf(a MemberID) (MemberID, bool) {
	for m, v := range p {
		if v != nil && *v == a {
			return m, true
		}
	}
	return 0, false
}

// Assistants returns the set of assistants currently paired to any medium.
func (p Pairings) Assistants() map[MemberID]struct{} {
	out := make(map[MemberID]struct{}, len(p))
	for _, v := range p {
		if v != nil {
			out[*v] = struct{}{}
		}
	}
	return out
}

// Mediums returns the pairing keys in ascending order.
func (p Pairings) Mediums() []MemberID {
	out := make([]MemberID, 0, len(p))
	for m := range p {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DepartmentAssignments holds at most one member per department slot.
type DepartmentAssignments struct {
	Reception *MemberID `json:"reception"`
	Canteen   *MemberID `json:"canteen"`
}

// Get returns the holder of slot.
func (d DepartmentAssignments) Get(slot DepartmentSlot) *MemberID {
	if slot == SlotCanteen {
		return d.Canteen
	}
	return d.Reception
}

// With returns a copy of d with slot set to id.
func (d DepartmentAssignments) With(slot DepartmentSlot, id *MemberID) DepartmentAssignments {
	out := d.Clone()
	if slot == SlotCanteen {
		out.Canteen = CloneMemberIDPtr(id)
	} else {
		out.Reception = CloneMemberIDPtr(id)
	}
	return out
}

// SlotOf returns the slot held by id.
func (d DepartmentAssignments) SlotOf(id MemberID) (DepartmentSlot, bool) {
	for _, s := range DepartmentSlots {
		if h := d.Get(s); h != nil && *h == id {
			return s, true
		}
	}
	return "", false
}

func (d DepartmentAssignments) Clone() DepartmentAssignments {
	return DepartmentAssignments{
		Reception: CloneMemberIDPtr(d.Reception),
		Canteen:   CloneMemberIDPtr(d.Canteen),
	}
}

// CeremonySnapshot is the organization frozen into a ceremony record.
type CeremonySnapshot struct {
	Pairings    Pairings              `json:"pairings"`
	Departments DepartmentAssignments `json:"departments"`
}

// CeremonyRecord is an immutable record of a finalized ceremony ("gira").
type CeremonyRecord struct {
	ID           HistoryID        `json:"id"`
	Label        string           `json:"label"`
	FinalizedAt  time.Time        `json:"finalizedAt"`
	Present      []MemberID       `json:"present"`
	Absent       []MemberID       `json:"absent"`
	Organization CeremonySnapshot `json:"organization"`
}

// CloneCeremonyRecord deep-copies r.
func CloneCeremonyRecord(r CeremonyRecord) CeremonyRecord {
	out := r
	out.Present = cloneIDs(r.Present)
	out.Absent = cloneIDs(r.Absent)
	out.Organization = CeremonySnapshot{
		Pairings:    r.Organization.Pairings.Clone(),
		Departments: r.Organization.Departments.Clone(),
	}
	return out
}

// cloneIDs keeps an empty list empty, so it still encodes as [].
func cloneIDs(ids []MemberID) []MemberID {
	if ids == nil {
		return nil
	}
	out := make([]MemberID, len(ids))
	copy(out, ids)
	return out
}
