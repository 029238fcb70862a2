package eventrepo

import (
	"context"

	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
)

// Repository provides access to saved external events (carpool plans).
//
// Result ordering expectations:
// - List returns dated events newest first, then undated events, ties broken by ID descending.
type Repository interface {
	Create(ctx context.Context, e domain.ExternalEvent) error
	Save(ctx context.Context, e domain.ExternalEvent) error
	Delete(ctx context.Context, id domain.EventID) error

	GetByID(ctx context.Context, id domain.EventID) (domain.ExternalEvent, error)
	List(ctx context.Context) ([]domain.ExternalEvent, error)

	// NextID returns max(existing ids)+1, or 1 when empty.
	NextID(ctx context.Context) (domain.EventID, error)
	ReplaceAll(ctx context.Context, es []domain.ExternalEvent) error
}
