package gira

import "github.com/Overland-East-Bay/terreiro-api/internal/domain"

// Options tune pool derivation.
type Options struct {
	// HouseLeader, when set, is listed first among the mediums.
	HouseLeader *domain.MemberID
}

// Pools is the role allocation derived from the present members and the session's assignments.
//
// Mediums, Assistants, Department, FixedFunction and Unallocated partition the present set.
type Pools struct {
	Mediums       []domain.Member
	Assistants    []domain.Member
	Department    []domain.Member
	FixedFunction []domain.Member
	Unallocated   []domain.Member

	// AssistantCandidates are the members free to be paired with a medium.
	AssistantCandidates []domain.Member
	// AssistantOptions are the choices offered per medium: the candidates plus
	// the assistant already paired with that medium.
	AssistantOptions map[domain.MemberID][]domain.Member
	// DepartmentCandidates are the choices offered per slot, including its current holder.
	DepartmentCandidates map[domain.DepartmentSlot][]domain.Member
	// ByFunction lists present members per non-none fixed function.
	ByFunction map[domain.Function][]domain.Member
}

// ComputePools derives the role pools. It is a pure function of its inputs.
//
// members is the registry; only those marked present in s take part.
func ComputePools(members []domain.Member, s State, opts Options) Pools {
	present := make([]domain.Member, 0, len(members))
	for _, m := range members {
		if s.IsPresent(m.ID) {
			present = append(present, domain.CloneMember(m))
		}
	}
	domain.SortMembersByName(present, opts.HouseLeader)

	mediums := make(map[domain.MemberID]struct{})
	for _, m := range present {
		if m.CanLead {
			mediums[m.ID] = struct{}{}
		}
	}
	// Only pairings keyed by a present medium count; stale keys are ignored.
	paired := make(map[domain.MemberID]domain.MemberID)
	for medium, a := range s.Pairings {
		if _, ok := mediums[medium]; ok && a != nil {
			paired[*a] = medium
		}
	}
	slotOf := func(id domain.MemberID) (domain.DepartmentSlot, bool) {
		return s.Departments.SlotOf(id)
	}

	p := Pools{
		Mediums:              []domain.Member{},
		Assistants:           []domain.Member{},
		Department:           []domain.Member{},
		FixedFunction:        []domain.Member{},
		Unallocated:          []domain.Member{},
		AssistantCandidates:  []domain.Member{},
		AssistantOptions:     make(map[domain.MemberID][]domain.Member),
		DepartmentCandidates: make(map[domain.DepartmentSlot][]domain.Member, len(domain.DepartmentSlots)),
		ByFunction:           make(map[domain.Function][]domain.Member),
	}

	for _, m := range present {
		_, isPaired := paired[m.ID]
		_, holdsSlot := slotOf(m.ID)
		switch {
		case m.CanLead:
			p.Mediums = append(p.Mediums, m)
		case isPaired:
			p.Assistants = append(p.Assistants, m)
		case holdsSlot:
			p.Department = append(p.Department, m)
		case m.Function.Exclusive():
			p.FixedFunction = append(p.FixedFunction, m)
		default:
			p.Unallocated = append(p.Unallocated, m)
		}

		if !m.CanLead && !isPaired && !holdsSlot && !m.Function.Exclusive() {
			p.AssistantCandidates = append(p.AssistantCandidates, m)
		}
		if m.Function != domain.FunctionNone && m.Function != "" {
			p.ByFunction[m.Function] = append(p.ByFunction[m.Function], m)
		}
	}

	for _, medium := range p.Mediums {
		choices := append([]domain.Member(nil), p.AssistantCandidates...)
		if a := s.Pairings[medium.ID]; a != nil {
			for _, m := range present {
				if m.ID == *a && !containsMember(choices, m.ID) {
					choices = append(choices, m)
				}
			}
			domain.SortMembersByName(choices, nil)
		}
		p.AssistantOptions[medium.ID] = choices
	}

	for _, slot := range domain.DepartmentSlots {
		holder := s.Departments.Get(slot)
		candidates := []domain.Member{}
		for _, m := range present {
			if held, ok := slotOf(m.ID); ok && held != slot {
				continue
			}
			if _, isPaired := paired[m.ID]; isPaired || m.CanLead || m.Function.Exclusive() {
				continue
			}
			if m.Department != slot.Department() && m.Department != domain.DepartmentNone {
				if holder == nil || *holder != m.ID {
					continue
				}
			}
			candidates = append(candidates, m)
		}
		p.DepartmentCandidates[slot] = candidates
	}

	return p
}

func containsMember(ms []domain.Member, id domain.MemberID) bool {
	for _, m := range ms {
		if m.ID == id {
			return true
		}
	}
	return false
}
