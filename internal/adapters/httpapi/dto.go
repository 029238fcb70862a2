package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/Overland-East-Bay/terreiro-api/internal/app/carpool"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/gira"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/members"
	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
)

type milestoneDTO struct {
	Done bool                `json:"done"`
	Date *openapi_types.Date `json:"date,omitempty"`
}

type juremaDTO struct {
	Done   bool                `json:"done"`
	Date   *openapi_types.Date `json:"date,omitempty"`
	BoatID *domain.BoatID      `json:"boatId,omitempty"`
}

type memberDTO struct {
	ID              domain.MemberID     `json:"id"`
	Name            string              `json:"name"`
	Status          domain.MemberStatus `json:"status"`
	Department      domain.Department   `json:"department"`
	Function        domain.Function     `json:"function"`
	CanLead         bool                `json:"canLead"`
	EntryDate       *openapi_types.Date `json:"entryDate,omitempty"`
	BirthDate       *openapi_types.Date `json:"birthDate,omitempty"`
	Orixas          domain.Orixas       `json:"orixas"`
	Entities        domain.Entities     `json:"entities"`
	SymbolURL       string              `json:"symbolUrl,omitempty"`
	Jurema          juremaDTO           `json:"jurema"`
	SupportOrder    milestoneDTO        `json:"supportOrder"`
	PasseOrder      milestoneDTO        `json:"passeOrder"`
	SponsorEntities []domain.EntityKey  `json:"sponsorEntities"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// memberRefDTO is the short member form used inside pools and views.
type memberRefDTO struct {
	ID         domain.MemberID   `json:"id"`
	Name       string            `json:"name"`
	Function   domain.Function   `json:"function"`
	Department domain.Department `json:"department"`
	CanLead    bool              `json:"canLead"`
}

type createMemberRequest struct {
	Name         string              `json:"name"`
	Status       domain.MemberStatus `json:"status"`
	Department   domain.Department   `json:"department"`
	Function     domain.Function     `json:"function"`
	CanLead      bool                `json:"canLead"`
	EntryDate    *openapi_types.Date `json:"entryDate"`
	BirthDate    *openapi_types.Date `json:"birthDate"`
	Orixas       domain.Orixas       `json:"orixas"`
	Entities     domain.Entities     `json:"entities"`
	SymbolURL    string              `json:"symbolUrl"`
	Jurema       juremaDTO           `json:"jurema"`
	SupportOrder milestoneDTO        `json:"supportOrder"`
	PasseOrder   milestoneDTO        `json:"passeOrder"`
}

type updateMemberRequest struct {
	Name         nullable.Nullable[string]              `json:"name,omitempty"`
	Status       nullable.Nullable[domain.MemberStatus] `json:"status,omitempty"`
	Department   nullable.Nullable[domain.Department]   `json:"department,omitempty"`
	Function     nullable.Nullable[domain.Function]     `json:"function,omitempty"`
	CanLead      nullable.Nullable[bool]                `json:"canLead,omitempty"`
	EntryDate    nullable.Nullable[openapi_types.Date]  `json:"entryDate,omitempty"`
	BirthDate    nullable.Nullable[openapi_types.Date]  `json:"birthDate,omitempty"`
	Orixas       nullable.Nullable[domain.Orixas]       `json:"orixas,omitempty"`
	Entities     nullable.Nullable[domain.Entities]     `json:"entities,omitempty"`
	SymbolURL    nullable.Nullable[string]              `json:"symbolUrl,omitempty"`
	Jurema       nullable.Nullable[juremaDTO]           `json:"jurema,omitempty"`
	SupportOrder nullable.Nullable[milestoneDTO]        `json:"supportOrder,omitempty"`
	PasseOrder   nullable.Nullable[milestoneDTO]        `json:"passeOrder,omitempty"`
}

type sponsorEntitiesRequest struct {
	Entities []domain.EntityKey `json:"entities"`
}

type importResponse struct {
	Imported []memberDTO        `json:"imported"`
	Errors   []members.RowError `json:"errors"`
	Warnings []members.RowError `json:"warnings"`
}

type labelRequest struct {
	Label string `json:"label"`
}

type presenceRequest struct {
	Mark domain.PresenceMark `json:"mark"`
}

type pairingRequest struct {
	AssistantID nullable.Nullable[domain.MemberID] `json:"assistantId"`
}

type slotRequest struct {
	MemberID nullable.Nullable[domain.MemberID] `json:"memberId"`
}

type poolsDTO struct {
	Mediums              []memberRefDTO                     `json:"mediums"`
	Assistants           []memberRefDTO                     `json:"assistants"`
	Department           []memberRefDTO                     `json:"department"`
	FixedFunction        []memberRefDTO                     `json:"fixedFunction"`
	Unallocated          []memberRefDTO                     `json:"unallocated"`
	AssistantCandidates  []memberRefDTO                     `json:"assistantCandidates"`
	AssistantOptions     map[domain.MemberID][]memberRefDTO `json:"assistantOptions"`
	DepartmentCandidates map[string][]memberRefDTO          `json:"departmentCandidates"`
	ByFunction           map[string][]memberRefDTO          `json:"byFunction"`
}

type sessionDTO struct {
	Label       string                                  `json:"label"`
	Presence    map[domain.MemberID]domain.PresenceMark `json:"presence"`
	Pairings    domain.Pairings                         `json:"pairings"`
	Departments domain.DepartmentAssignments            `json:"departments"`
	Pools       poolsDTO                                `json:"pools"`
	Present     []memberRefDTO                          `json:"present"`
	Absent      []memberRefDTO                          `json:"absent"`
	Unset       []memberRefDTO                          `json:"unset"`
}

type historyDetailDTO struct {
	Record domain.CeremonyRecord      `json:"record"`
	Names  map[domain.MemberID]string `json:"names"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type dateRequest struct {
	Date nullable.Nullable[openapi_types.Date] `json:"date"`
}

type modeRequest struct {
	Mode domain.TransportMode `json:"mode"`
}

type seatRequest struct {
	RiderID nullable.Nullable[domain.MemberID] `json:"riderId"`
}

type vehicleDTO struct {
	Driver memberRefDTO                          `json:"driver"`
	Seats  [domain.SeatsPerVehicle]*memberRefDTO `json:"seats"`
}

type summaryDTO struct {
	Participants int `json:"participants"`
	Drivers      int `json:"drivers"`
	Independents int `json:"independents"`
	NeedRide     int `json:"needRide"`
	Unseated     int `json:"unseated"`
}

type draftDTO struct {
	EditingID         *domain.EventID                          `json:"editingId,omitempty"`
	Name              string                                   `json:"name"`
	Date              *openapi_types.Date                      `json:"date,omitempty"`
	Participants      map[domain.MemberID]domain.Participation `json:"participants"`
	Vehicles          domain.SeatMap                           `json:"vehicles"`
	ParticipantList   []memberRefDTO                           `json:"participantList"`
	VehicleList       []vehicleDTO                             `json:"vehicleList"`
	RidersNeedingSeat []memberRefDTO                           `json:"ridersNeedingSeat"`
	UnseatedRiders    []memberRefDTO                           `json:"unseatedRiders"`
	Independents      []memberRefDTO                           `json:"independents"`
	Undeclared        []memberRefDTO                           `json:"undeclared"`
	Available         []memberRefDTO                           `json:"available"`
	Summary           summaryDTO                               `json:"summary"`
}

type eventDTO struct {
	ID           domain.EventID                           `json:"id"`
	Name         string                                   `json:"name"`
	Date         *openapi_types.Date                      `json:"date,omitempty"`
	Participants map[domain.MemberID]domain.Participation `json:"participants"`
	Vehicles     domain.SeatMap                           `json:"vehicles"`
}

type boatRequest struct {
	Name     string              `json:"name"`
	Sponsors []domain.SponsorRef `json:"sponsors"`
}

type celebrationRequest struct {
	Name     string                             `json:"name"`
	Date     *openapi_types.Date                `json:"date"`
	Payments map[domain.MemberID]domain.Payment `json:"payments"`
}

type celebrationDTO struct {
	ID       domain.CelebrationID               `json:"id"`
	Name     string                             `json:"name"`
	Date     *openapi_types.Date                `json:"date,omitempty"`
	Payments map[domain.MemberID]domain.Payment `json:"payments"`
	Payers   int                                `json:"payers"`
	// CollectedCents sums the amounts of paying members.
	CollectedCents int64 `json:"collectedCents"`
}

type magicLinkRequest struct {
	Subject string `json:"subject"`
}

type sessionRequest struct {
	Token string `json:"token"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func toDate(t *time.Time) *openapi_types.Date {
	if t == nil {
		return nil
	}
	return &openapi_types.Date{Time: *t}
}

func fromDate(d *openapi_types.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return &t
}

func milestoneToDTO(m domain.Milestone) milestoneDTO {
	return milestoneDTO{Done: m.Done, Date: toDate(m.Date)}
}

func milestoneFromDTO(m milestoneDTO) domain.Milestone {
	return domain.Milestone{Done: m.Done, Date: fromDate(m.Date)}
}

func juremaFromDTO(j juremaDTO) domain.Jurema {
	return domain.Jurema{Done: j.Done, Date: fromDate(j.Date), BoatID: j.BoatID}
}

func memberFromDomain(m domain.Member) memberDTO {
	out := memberDTO{
		ID:              m.ID,
		Name:            m.Name,
		Status:          m.Status,
		Department:      m.Department,
		Function:        m.Function,
		CanLead:         m.CanLead,
		EntryDate:       toDate(m.EntryDate),
		BirthDate:       toDate(m.BirthDate),
		Orixas:          m.Orixas,
		Entities:        m.Entities,
		SymbolURL:       m.SymbolURL,
		Jurema:          juremaDTO{Done: m.Jurema.Done, Date: toDate(m.Jurema.Date), BoatID: m.Jurema.BoatID},
		SupportOrder:    milestoneToDTO(m.SupportOrder),
		PasseOrder:      milestoneToDTO(m.PasseOrder),
		SponsorEntities: m.SponsorEntities,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if out.Entities == nil {
		out.Entities = domain.Entities{}
	}
	if out.SponsorEntities == nil {
		out.SponsorEntities = []domain.EntityKey{}
	}
	return out
}

func membersFromDomain(ms []domain.Member) []memberDTO {
	out := make([]memberDTO, 0, len(ms))
	for _, m := range ms {
		out = append(out, memberFromDomain(m))
	}
	return out
}

func refFromDomain(m domain.Member) memberRefDTO {
	return memberRefDTO{ID: m.ID, Name: m.Name, Function: m.Function, Department: m.Department, CanLead: m.CanLead}
}

func refsFromDomain(ms []domain.Member) []memberRefDTO {
	out := make([]memberRefDTO, 0, len(ms))
	for _, m := range ms {
		out = append(out, refFromDomain(m))
	}
	return out
}

func createMemberInputFromRequest(b createMemberRequest) members.CreateMemberInput {
	return members.CreateMemberInput{
		Name:         b.Name,
		Status:       b.Status,
		Department:   b.Department,
		Function:     b.Function,
		CanLead:      b.CanLead,
		EntryDate:    fromDate(b.EntryDate),
		BirthDate:    fromDate(b.BirthDate),
		Orixas:       b.Orixas,
		Entities:     b.Entities,
		SymbolURL:    b.SymbolURL,
		Jurema:       juremaFromDTO(b.Jurema),
		SupportOrder: milestoneFromDTO(b.SupportOrder),
		PasseOrder:   milestoneFromDTO(b.PasseOrder),
	}
}

func updateMemberInputFromRequest(b updateMemberRequest) members.UpdateMemberInput {
	return members.UpdateMemberInput{
		Name:         optional(b.Name, identity[string]),
		Status:       optional(b.Status, identity[domain.MemberStatus]),
		Department:   optional(b.Department, identity[domain.Department]),
		Function:     optional(b.Function, identity[domain.Function]),
		CanLead:      optional(b.CanLead, identity[bool]),
		EntryDate:    optional(b.EntryDate, func(d openapi_types.Date) time.Time { return *fromDate(&d) }),
		BirthDate:    optional(b.BirthDate, func(d openapi_types.Date) time.Time { return *fromDate(&d) }),
		Orixas:       optional(b.Orixas, identity[domain.Orixas]),
		Entities:     optional(b.Entities, identity[domain.Entities]),
		SymbolURL:    optional(b.SymbolURL, identity[string]),
		Jurema:       optional(b.Jurema, juremaFromDTO),
		SupportOrder: optional(b.SupportOrder, milestoneFromDTO),
		PasseOrder:   optional(b.PasseOrder, milestoneFromDTO),
	}
}

func identity[T any](v T) T { return v }

// optional maps a JSON nullable onto the members patch tri-state.
func optional[T, U any](n nullable.Nullable[T], conv func(T) U) members.Optional[U] {
	if !n.IsSpecified() {
		return members.Unspecified[U]()
	}
	if n.IsNull() {
		return members.Null[U]()
	}
	v, err := n.Get()
	if err != nil {
		return members.Unspecified[U]()
	}
	return members.Some(conv(v))
}

// nullableID returns nil for an unspecified or null id.
func nullableID(n nullable.Nullable[domain.MemberID]) *domain.MemberID {
	if !n.IsSpecified() || n.IsNull() {
		return nil
	}
	v, err := n.Get()
	if err != nil {
		return nil
	}
	return &v
}

func sessionFromDomain(s gira.Session) sessionDTO {
	p := s.Pools
	pools := poolsDTO{
		Mediums:              refsFromDomain(p.Mediums),
		Assistants:           refsFromDomain(p.Assistants),
		Department:           refsFromDomain(p.Department),
		FixedFunction:        refsFromDomain(p.FixedFunction),
		Unallocated:          refsFromDomain(p.Unallocated),
		AssistantCandidates:  refsFromDomain(p.AssistantCandidates),
		AssistantOptions:     make(map[domain.MemberID][]memberRefDTO, len(p.AssistantOptions)),
		DepartmentCandidates: make(map[string][]memberRefDTO, len(p.DepartmentCandidates)),
		ByFunction:           make(map[string][]memberRefDTO, len(p.ByFunction)),
	}
	for k, v := range p.AssistantOptions {
		pools.AssistantOptions[k] = refsFromDomain(v)
	}
	for k, v := range p.DepartmentCandidates {
		pools.DepartmentCandidates[string(k)] = refsFromDomain(v)
	}
	for k, v := range p.ByFunction {
		pools.ByFunction[string(k)] = refsFromDomain(v)
	}
	return sessionDTO{
		Label:       s.State.Label,
		Presence:    s.State.Presence,
		Pairings:    s.State.Pairings,
		Departments: s.State.Departments,
		Pools:       pools,
		Present:     refsFromDomain(s.Present),
		Absent:      refsFromDomain(s.Absent),
		Unset:       refsFromDomain(s.Unset),
	}
}

func draftFromDomain(d carpool.Draft) draftDTO {
	v := d.Views
	out := draftDTO{
		EditingID:         d.State.EditingID,
		Name:              d.State.Name,
		Date:              toDate(d.State.Date),
		Participants:      d.State.Participants,
		Vehicles:          d.State.Vehicles,
		ParticipantList:   refsFromDomain(v.Participants),
		VehicleList:       make([]vehicleDTO, 0, len(v.Vehicles)),
		RidersNeedingSeat: refsFromDomain(v.RidersNeedingSeat),
		UnseatedRiders:    refsFromDomain(v.UnseatedRiders),
		Independents:      refsFromDomain(v.Independents),
		Undeclared:        refsFromDomain(v.Undeclared),
		Available:         refsFromDomain(v.Available),
		Summary: summaryDTO{
			Participants: v.Summary.Participants,
			Drivers:      v.Summary.Drivers,
			Independents: v.Summary.Independents,
			NeedRide:     v.Summary.NeedRide,
			Unseated:     v.Summary.Unseated,
		},
	}
	for _, veh := range v.Vehicles {
		vd := vehicleDTO{Driver: refFromDomain(veh.Driver)}
		for i, r := range veh.Seats {
			if r != nil {
				ref := refFromDomain(*r)
				vd.Seats[i] = &ref
			}
		}
		out.VehicleList = append(out.VehicleList, vd)
	}
	return out
}

func eventFromDomain(e domain.ExternalEvent) eventDTO {
	return eventDTO{
		ID:           e.ID,
		Name:         e.Name,
		Date:         toDate(e.Date),
		Participants: e.Participants,
		Vehicles:     e.Vehicles,
	}
}

func celebrationFromDomain(c domain.Celebration) celebrationDTO {
	sum := c.Summary()
	return celebrationDTO{
		ID:             c.ID,
		Name:           c.Name,
		Date:           toDate(c.Date),
		Payments:       c.Payments,
		Payers:         sum.Payers,
		CollectedCents: sum.CollectedCents,
	}
}
