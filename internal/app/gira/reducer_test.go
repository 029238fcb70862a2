package gira

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
)

func id(v domain.MemberID) *domain.MemberID { return &v }

func member(mid domain.MemberID, name string, opts ...func(*domain.Member)) domain.Member {
	m := domain.Member{
		ID:         mid,
		Name:       name,
		Status:     domain.StatusActive,
		Department: domain.DepartmentNone,
		Function:   domain.FunctionNone,
	}
	for _, o := range opts {
		o(&m)
	}
	return m
}

func medium(m *domain.Member) { m.CanLead = true }

func withFunction(f domain.Function) func(*domain.Member) {
	return func(m *domain.Member) { m.Function = f }
}

func withDepartment(d domain.Department) func(*domain.Member) {
	return func(m *domain.Member) { m.Department = d }
}

func ids(ms []domain.Member) []domain.MemberID {
	out := make([]domain.MemberID, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	s := NewState()
	s = Reduce(s, SetPresence{Member: 1, Mark: domain.PresencePresent})
	before := s.Clone()

	_ = Reduce(s, SetPairing{Medium: 1, Assistant: id(2)})
	_ = Reduce(s, SetDepartmentSlot{Slot: domain.SlotCanteen, Member: id(3)})
	_ = Reduce(s, ClearPresence{})

	require.Equal(t, before, s)
}

func TestReduce_SetPairingMovesAssistant(t *testing.T) {
	s := NewState()
	s = Reduce(s, SetPairing{Medium: 1, Assistant: id(10)})
	s = Reduce(s, SetPairing{Medium: 2, Assistant: id(10)})

	require.Nil(t, s.Pairings[1])
	require.NotNil(t, s.Pairings[2])
	assert.Equal(t, domain.MemberID(10), *s.Pairings[2])
	_, stillKeyed := s.Pairings[1]
	assert.True(t, stillKeyed, "previous medium keeps an explicit null entry")
}

func TestReduce_SetPairingNullUnpairs(t *testing.T) {
	s := Reduce(NewState(), SetPairing{Medium: 1, Assistant: id(10)})
	s = Reduce(s, SetPairing{Medium: 1, Assistant: nil})
	assert.Nil(t, s.Pairings[1])
	assert.Empty(t, s.Pairings.Assistants())
}

func TestReduce_DepartmentSlotExclusivity(t *testing.T) {
	s := Reduce(NewState(), SetDepartmentSlot{Slot: domain.SlotReception, Member: id(5)})
	s = Reduce(s, SetDepartmentSlot{Slot: domain.SlotCanteen, Member: id(5)})

	assert.Nil(t, s.Departments.Reception)
	require.NotNil(t, s.Departments.Canteen)
	assert.Equal(t, domain.MemberID(5), *s.Departments.Canteen)

	// Re-assigning the same slot to someone else leaves the other slot alone.
	s = Reduce(s, SetDepartmentSlot{Slot: domain.SlotReception, Member: id(6)})
	assert.Equal(t, domain.MemberID(6), *s.Departments.Reception)
	assert.Equal(t, domain.MemberID(5), *s.Departments.Canteen)
}

func TestReduce_UnmarkingDropsAssignments(t *testing.T) {
	s := NewState()
	s = Reduce(s, MarkAllPresent{Members: []domain.MemberID{1, 2, 3, 4}})
	s = Reduce(s, SetPairing{Medium: 1, Assistant: id(2)})
	s = Reduce(s, SetPairing{Medium: 4, Assistant: nil})
	s = Reduce(s, SetDepartmentSlot{Slot: domain.SlotReception, Member: id(3)})

	s = Reduce(s, SetPresence{Member: 2, Mark: domain.PresenceAbsent})
	assert.Nil(t, s.Pairings[1], "absent assistant is released")

	s = Reduce(s, SetPresence{Member: 4, Mark: domain.PresenceUnset})
	_, keyed := s.Pairings[4]
	assert.False(t, keyed, "unmarked medium loses its pairing entry")
	_, marked := s.Presence[4]
	assert.False(t, marked)

	s = Reduce(s, SetPresence{Member: 3, Mark: domain.PresenceAbsent})
	assert.Nil(t, s.Departments.Reception)
}

func TestReduce_ResetAndClearPresence(t *testing.T) {
	s := NewState()
	s = Reduce(s, SetLabel{Label: "Gira de Pretos Velhos"})
	s = Reduce(s, MarkAllPresent{Members: []domain.MemberID{1, 2}})
	s = Reduce(s, SetPairing{Medium: 1, Assistant: id(2)})

	cleared := Reduce(s, ClearPresence{})
	assert.Equal(t, "Gira de Pretos Velhos", cleared.Label)
	assert.Empty(t, cleared.Presence)
	assert.Empty(t, cleared.Pairings)

	reset := Reduce(s, Reset{})
	assert.Equal(t, NewState(), reset)
}

// TestReduce_InvariantsHoldUnderRandomEdits drives the reducer with random
// edits and checks assistant uniqueness, slot exclusivity and the pool
// partition after every step.
func TestReduce_InvariantsHoldUnderRandomEdits(t *testing.T) {
	members := []domain.Member{
		member(1, "Marcos", medium),
		member(2, "Ana", medium),
		member(3, "Bia", medium),
		member(4, "Caio"),
		member(5, "Duda", withDepartment(domain.DepartmentReception)),
		member(6, "Eli", withDepartment(domain.DepartmentCanteen)),
		member(7, "Fabi", withFunction(domain.FunctionOgan)),
		member(8, "Gui", withFunction(domain.FunctionCurimba)),
		member(9, "Hana", withDepartment(domain.DepartmentKitchen)),
		member(10, "Ivo", withFunction(domain.FunctionEkedi), medium),
	}
	rng := rand.New(rand.NewSource(42))
	pick := func() domain.MemberID { return domain.MemberID(rng.Intn(len(members)) + 1) }
	maybe := func() *domain.MemberID {
		if rng.Intn(4) == 0 {
			return nil
		}
		return id(pick())
	}
	marks := []domain.PresenceMark{domain.PresencePresent, domain.PresencePresent, domain.PresenceAbsent, domain.PresenceUnset}

	s := NewState()
	for step := 0; step < 2000; step++ {
		var a Action
		switch rng.Intn(4) {
		case 0:
			a = SetPresence{Member: pick(), Mark: marks[rng.Intn(len(marks))]}
		case 1:
			a = SetPairing{Medium: pick(), Assistant: maybe()}
		case 2:
			a = SetDepartmentSlot{Slot: domain.DepartmentSlots[rng.Intn(2)], Member: maybe()}
		default:
			if rng.Intn(50) == 0 {
				a = ClearPresence{}
			} else {
				a = SetPresence{Member: pick(), Mark: domain.PresencePresent}
			}
		}
		s = Reduce(s, a)

		seen := map[domain.MemberID]domain.MemberID{}
		for m, v := range s.Pairings {
			if v == nil {
				continue
			}
			prev, dup := seen[*v]
			require.Falsef(t, dup, "step %d: assistant %d paired to %d and %d", step, *v, prev, m)
			seen[*v] = m
		}
		if s.Departments.Reception != nil && s.Departments.Canteen != nil {
			require.NotEqualf(t, *s.Departments.Reception, *s.Departments.Canteen, "step %d: member holds both slots", step)
		}

		p := ComputePools(members, s, Options{})
		assertPartition(t, p, s.PresentIDs())
		require.Equal(t, p, ComputePools(members, s, Options{}), "derivation must be idempotent")
	}
}

func assertPartition(t *testing.T, p Pools, present []domain.MemberID) {
	t.Helper()
	count := map[domain.MemberID]int{}
	for _, pool := range [][]domain.Member{p.Mediums, p.Assistants, p.Department, p.FixedFunction, p.Unallocated} {
		for _, m := range pool {
			count[m.ID]++
		}
	}
	require.Len(t, count, len(present))
	for _, mid := range present {
		require.Equalf(t, 1, count[mid], "member %d appears in %d pools", mid, count[mid])
	}
}
