package memberrepo

import (
	"context"

	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
)

// Filter narrows List results. Nil fields match everything.
type Filter struct {
	Status     *domain.MemberStatus
	Function   *domain.Function
	Department *domain.Department
	// Query is a case-insensitive, tokenized match on Name.
	Query string
}

// Repository provides access to the member registry.
//
// Result ordering expectations:
// - List returns results ordered by Name (pt-BR collation), then ID, to keep behavior deterministic.
type Repository interface {
	Create(ctx context.Context, m domain.Member) error
	Update(ctx context.Context, m domain.Member) error
	Delete(ctx context.Context, id domain.MemberID) error

	GetByID(ctx context.Context, id domain.MemberID) (domain.Member, error)
	List(ctx context.Context, f Filter) ([]domain.Member, error)

	// NextID returns max(existing ids)+1, or 1 when empty.
	NextID(ctx context.Context) (domain.MemberID, error)

	// ReplaceAll swaps the whole registry, e.g. when restoring from the table mirror.
	ReplaceAll(ctx context.Context, ms []domain.Member) error
}
