package gira

import (
	"time"

	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
)

// Finalize freezes the session into a ceremony record and returns the reset session.
//
// Present are the active members marked present; Absent are the remaining active
// members. Every present medium gets an explicit pairing entry, nil when unpaired.
// An assistant or slot holder who is no longer present and active is left out,
// so the organization only names members in Present.
// Nothing is produced when the label is blank or nobody is present.
func Finalize(members []domain.Member, s State, id domain.HistoryID, now time.Time) (domain.CeremonyRecord, State, error) {
	label := domain.NormalizeHumanName(s.Label)
	if label == "" {
		return domain.CeremonyRecord{}, s, validationError("ceremony label is required", map[string]any{"label": "must be non-empty"})
	}

	active := make([]domain.Member, 0, len(members))
	for _, m := range members {
		if m.IsActive() {
			active = append(active, m)
		}
	}
	domain.SortMembersByName(active, nil)

	var present, absent []domain.MemberID
	here := make(map[domain.MemberID]bool)
	for _, m := range active {
		if !s.IsPresent(m.ID) {
			absent = append(absent, m.ID)
			continue
		}
		present = append(present, m.ID)
		here[m.ID] = true
	}
	onlyPresent := func(p *domain.MemberID) *domain.MemberID {
		if p == nil || !here[*p] {
			return nil
		}
		return domain.CloneMemberIDPtr(p)
	}
	pairings := make(domain.Pairings)
	for _, m := range active {
		if m.CanLead && here[m.ID] {
			pairings[m.ID] = onlyPresent(s.Pairings[m.ID])
		}
	}
	if len(present) == 0 {
		return domain.CeremonyRecord{}, s, validationError("at least one member must be present", map[string]any{"present": "must be non-empty"})
	}
	if absent == nil {
		absent = []domain.MemberID{}
	}

	rec := domain.CeremonyRecord{
		ID:          id,
		Label:       label,
		FinalizedAt: now.UTC(),
		Present:     present,
		Absent:      absent,
		Organization: domain.CeremonySnapshot{
			Pairings:    pairings,
			Departments: domain.DepartmentAssignments{
				Reception: onlyPresent(s.Departments.Reception),
				Canteen:   onlyPresent(s.Departments.Canteen),
			},
		},
	}
	return rec, NewState(), nil
}
