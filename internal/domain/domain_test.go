package domain

import (
	"encoding/json"
	"testing"
)

func TestParseEnums_AcceptsPortugueseLabels(t *testing.T) {
	t.Parallel()

	if v, err := ParseMemberStatus(" Ativo "); err != nil || v != StatusActive {
		t.Fatalf("ParseMemberStatus=%q err=%v", v, err)
	}
	if v, err := ParseDepartment("Recepção"); err != nil || v != DepartmentReception {
		t.Fatalf("ParseDepartment=%q err=%v", v, err)
	}
	if v, err := ParseFunction("Pai ou Mãe  Pequena"); err != nil || v != FunctionDeputyLeader {
		t.Fatalf("ParseFunction=%q err=%v", v, err)
	}
	if v, err := ParseTransportMode("carona"); err != nil || v != TransportNeedsRide {
		t.Fatalf("ParseTransportMode=%q err=%v", v, err)
	}
	if _, err := ParseFunction("bishop"); err == nil {
		t.Fatalf("expected error for unknown function")
	}
}

func TestFunction_Exclusive(t *testing.T) {
	t.Parallel()

	for _, f := range Functions {
		want := f != FunctionNone && f != FunctionCurimba
		if got := f.Exclusive(); got != want {
			t.Fatalf("%q.Exclusive()=%v, want %v", f, got, want)
		}
	}
}

func TestMember_UnmarshalRejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	var m Member
	err := json.Unmarshal([]byte(`{"id":1,"name":"Ana","status":"retired","department":"none","function":"none"}`), &m)
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestPresenceMark_UnmarshalLegacyBoolean(t *testing.T) {
	t.Parallel()

	var marks map[MemberID]PresenceMark
	if err := json.Unmarshal([]byte(`{"1":true,"2":false,"3":"absent","4":"present"}`), &marks); err != nil {
		t.Fatalf("Unmarshal err=%v", err)
	}
	want := map[MemberID]PresenceMark{1: PresencePresent, 2: PresenceUnset, 3: PresenceAbsent, 4: PresencePresent}
	for id, w := range want {
		if marks[id] != w {
			t.Fatalf("marks[%d]=%q, want %q", id, marks[id], w)
		}
	}
}

func TestSortMembersByName_CollatesAndPins(t *testing.T) {
	t.Parallel()

	ms := []Member{
		{ID: 1, Name: "Érica"},
		{ID: 2, Name: "bruno"},
		{ID: 3, Name: "Marcos"},
		{ID: 4, Name: "Ana"},
		{ID: 5, Name: "Eduardo"},
	}
	SortMembersByName(ms, MemberIDPtr(3))

	got := make([]MemberID, 0, len(ms))
	for _, m := range ms {
		got = append(got, m.ID)
	}
	want := []MemberID{3, 4, 2, 5, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order=%v, want %v", got, want)
		}
	}
}

func TestNextMemberID(t *testing.T) {
	t.Parallel()

	if got := NextMemberID(nil); got != 1 {
		t.Fatalf("NextMemberID(nil)=%d", got)
	}
	if got := NextMemberID([]MemberID{4, 9, 2}); got != 10 {
		t.Fatalf("NextMemberID=%d", got)
	}
}

func TestCloneCeremonyRecord_KeepsEmptyListsEncodedAsArrays(t *testing.T) {
	t.Parallel()

	rec := CeremonyRecord{ID: 1, Label: "Gira", Present: []MemberID{1}, Absent: []MemberID{}}
	clone := CloneCeremonyRecord(rec)

	b, err := json.Marshal(clone)
	if err != nil {
		t.Fatalf("Marshal err=%v", err)
	}
	var got struct {
		Present json.RawMessage `json:"present"`
		Absent  json.RawMessage `json:"absent"`
	}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal err=%v", err)
	}
	if string(got.Absent) != "[]" || string(got.Present) != "[1]" {
		t.Fatalf("present=%s absent=%s", got.Present, got.Absent)
	}

	clone.Present[0] = 9
	if rec.Present[0] != 1 {
		t.Fatalf("clone shares backing array with original")
	}
}
