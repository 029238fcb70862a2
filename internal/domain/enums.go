package domain

import (
	"fmt"
	"strings"
)

// MemberStatus is the membership status of a member.
type MemberStatus string

const (
	StatusActive     MemberStatus = "active"
	StatusOnLeave    MemberStatus = "on-leave"
	StatusDischarged MemberStatus = "discharged"
)

var memberStatusByLabel = map[string]MemberStatus{
	"active":     StatusActive,
	"ativo":      StatusActive,
	"on-leave":   StatusOnLeave,
	"afastado":   StatusOnLeave,
	"discharged": StatusDischarged,
	"desligado":  StatusDischarged,
}

// ParseMemberStatus accepts the canonical value or the community's Portuguese label.
func ParseMemberStatus(s string) (MemberStatus, error) {
	if v, ok := memberStatusByLabel[enumKey(s)]; ok {
		return v, nil
	}
	return "", fmt.Errorf("invalid member status %q", s)
}

func (s *MemberStatus) UnmarshalText(b []byte) error {
	v, err := ParseMemberStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Department is a member's standing department affiliation.
type Department string

const (
	DepartmentReception Department = "reception"
	DepartmentCanteen   Department = "canteen"
	DepartmentKitchen   Department = "kitchen"
	DepartmentCleaning  Department = "cleaning"
	DepartmentNone      Department = "none"
)

var departmentByLabel = map[string]Department{
	"reception": DepartmentReception,
	"recepção":  DepartmentReception,
	"recepcao":  DepartmentReception,
	"canteen":   DepartmentCanteen,
	"cantina":   DepartmentCanteen,
	"kitchen":   DepartmentKitchen,
	"cozinha":   DepartmentKitchen,
	"cleaning":  DepartmentCleaning,
	"limpeza":   DepartmentCleaning,
	"none":      DepartmentNone,
	"nenhum":    DepartmentNone,
}

func ParseDepartment(s string) (Department, error) {
	if v, ok := departmentByLabel[enumKey(s)]; ok {
		return v, nil
	}
	return "", fmt.Errorf("invalid department %q", s)
}

func (d *Department) UnmarshalText(b []byte) error {
	v, err := ParseDepartment(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Function is a fixed ritual function held by a member.
type Function string

const (
	FunctionDeputyLeader  Function = "deputy-leader"
	FunctionOgan          Function = "ogan"
	FunctionCurimba       Function = "curimba"
	FunctionHeadAssistant Function = "head-assistant"
	FunctionEkedi         Function = "ekedi"
	FunctionFilhaDeAxe    Function = "filha-de-axe"
	FunctionNone          Function = "none"
)

var functionByLabel = map[string]Function{
	"deputy-leader":      FunctionDeputyLeader,
	"pai ou mãe pequena": FunctionDeputyLeader,
	"pai ou mae pequena": FunctionDeputyLeader,
	"ogan":               FunctionOgan,
	"ogãns":              FunctionOgan,
	"ogans":              FunctionOgan,
	"curimba":            FunctionCurimba,
	"head-assistant":     FunctionHeadAssistant,
	"cambono chefe":      FunctionHeadAssistant,
	"ekedi":              FunctionEkedi,
	"ekedis":             FunctionEkedi,
	"filha-de-axe":       FunctionFilhaDeAxe,
	"filhas do axé":      FunctionFilhaDeAxe,
	"filhas do axe":      FunctionFilhaDeAxe,
	"none":               FunctionNone,
	"nenhum":             FunctionNone,
}

// Functions lists every function in display order.
var Functions = []Function{
	FunctionDeputyLeader,
	FunctionOgan,
	FunctionCurimba,
	FunctionHeadAssistant,
	FunctionEkedi,
	FunctionFilhaDeAxe,
	FunctionNone,
}

func ParseFunction(s string) (Function, error) {
	if v, ok := functionByLabel[enumKey(s)]; ok {
		return v, nil
	}
	return "", fmt.Errorf("invalid function %q", s)
}

func (f *Function) UnmarshalText(b []byte) error {
	v, err := ParseFunction(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Exclusive reports whether holding f keeps a member out of the assistant and department pools.
// Curimba (drumming) does not.
func (f Function) Exclusive() bool {
	switch f {
	case FunctionNone, FunctionCurimba, "":
		return false
	default:
		return true
	}
}

// TransportMode is how a participant gets to an external event. The empty value means undeclared.
type TransportMode string

const (
	TransportNone        TransportMode = ""
	TransportDriver      TransportMode = "driver"
	TransportNeedsRide   TransportMode = "needs-ride"
	TransportIndependent TransportMode = "independent"
)

var transportModeByLabel = map[string]TransportMode{
	"":             TransportNone,
	"driver":       TransportDriver,
	"motorista":    TransportDriver,
	"needs-ride":   TransportNeedsRide,
	"carona":       TransportNeedsRide,
	"independent":  TransportIndependent,
	"independente": TransportIndependent,
}

func ParseTransportMode(s string) (TransportMode, error) {
	if v, ok := transportModeByLabel[enumKey(s)]; ok {
		return v, nil
	}
	return "", fmt.Errorf("invalid transport mode %q", s)
}

func (m *TransportMode) UnmarshalText(b []byte) error {
	v, err := ParseTransportMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// DepartmentSlot is one of the department posts staffed during a ceremony.
type DepartmentSlot string

const (
	SlotReception DepartmentSlot = "reception"
	SlotCanteen   DepartmentSlot = "canteen"
)

// DepartmentSlots lists the tracked slots in display order.
var DepartmentSlots = []DepartmentSlot{SlotReception, SlotCanteen}

func ParseDepartmentSlot(s string) (DepartmentSlot, error) {
	switch enumKey(s) {
	case "reception", "recepcao", "recepção":
		return SlotReception, nil
	case "canteen", "cantina":
		return SlotCanteen, nil
	default:
		return "", fmt.Errorf("invalid department slot %q", s)
	}
}

func (s *DepartmentSlot) UnmarshalText(b []byte) error {
	v, err := ParseDepartmentSlot(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Department returns the standing department that feeds this slot.
func (s DepartmentSlot) Department() Department {
	if s == SlotCanteen {
		return DepartmentCanteen
	}
	return DepartmentReception
}

// Other returns the remaining tracked slot.
func (s DepartmentSlot) Other() DepartmentSlot {
	if s == SlotCanteen {
		return SlotReception
	}
	return SlotCanteen
}

func enumKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
