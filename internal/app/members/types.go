package members

import (
	"time"

	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
)

// Optional is a tri-state field used to distinguish:
// - unspecified (omitted)
// - specified as null
// - specified with a value
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

// CreateMemberInput is a full member record without id and timestamps.
// Empty enum fields take their defaults (active, no department, no function);
// a missing entry date defaults to today.
type CreateMemberInput struct {
	Name       string
	Status     domain.MemberStatus
	Department domain.Department
	Function   domain.Function
	CanLead    bool

	EntryDate *time.Time
	BirthDate *time.Time

	Orixas    domain.Orixas
	Entities  domain.Entities
	SymbolURL string

	Jurema       domain.Jurema
	SupportOrder domain.Milestone
	PasseOrder   domain.Milestone
}

// UpdateMemberInput patches a member. Name, Status, Department and Function cannot be null.
type UpdateMemberInput struct {
	Name       Optional[string]
	Status     Optional[domain.MemberStatus]
	Department Optional[domain.Department]
	Function   Optional[domain.Function]
	CanLead    Optional[bool]

	EntryDate Optional[time.Time]
	BirthDate Optional[time.Time]

	Orixas    Optional[domain.Orixas]
	Entities  Optional[domain.Entities]
	SymbolURL Optional[string]

	Jurema       Optional[domain.Jurema]
	SupportOrder Optional[domain.Milestone]
	PasseOrder   Optional[domain.Milestone]
}

// RowError reports a problem with one line of an imported file. Line is 1-based
// and counts the header.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportResult is the outcome of a CSV import. Rows with errors are skipped;
// warnings mark values that fell back to a default.
type ImportResult struct {
	Imported []domain.Member
	Errors   []RowError
	Warnings []RowError
}
