package idempotency

import (
	"context"
	"time"

	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a request uniquely for idempotency purposes:
// key + route + subject + request body hash.
// Route is the route pattern with path parameters filled in (e.g. "/gira/finalize").
type Fingerprint struct {
	Key      Key
	Subject  domain.SubjectID
	Method   string
	Route    string
	BodyHash string
}

// Record is a finalize, outing save or member create response, replayed
// verbatim when the same request is retried.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists replayable responses. Implementations may expire records;
// an expired record reads as missing.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
}

// Sweeper is implemented by stores that do not expire records on their own.
type Sweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}
