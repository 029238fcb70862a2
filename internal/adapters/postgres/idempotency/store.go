package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/idempotency"
)

var (
	_ idempotency.Store   = (*Store)(nil)
	_ idempotency.Sweeper = (*Store)(nil)
)

// Store is a Postgres implementation of idempotency.Store.
//
// realm namespaces subjects by authentication mode, so a dev subject and a
// magic-link subject with the same name never share keys.
type Store struct {
	pool  *pgxpool.Pool
	realm string
	ttl   time.Duration
	now   func() time.Time
}

// NewStore returns a store whose records expire after ttl (zero keeps them forever).
func NewStore(pool *pgxpool.Pool, realm string, ttl time.Duration) *Store {
	return &Store{pool: pool, realm: realm, ttl: ttl, now: time.Now}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, errors.New("nil postgres pool")
	}
	row := s.pool.QueryRow(ctx, `
		SELECT status_code, content_type, body, created_at
		FROM idempotency_keys
		WHERE idempotency_key = $1
		  AND subject_realm = $2
		  AND subject = $3
		  AND method = $4
		  AND route = $5
		  AND body_hash = $6
		  AND created_at >= $7
	`,
		string(fp.Key),
		s.realm,
		string(fp.Subject),
		fp.Method,
		fp.Route,
		fp.BodyHash,
		s.cutoff(),
	)
	var rec idempotency.Record
	if err := row.Scan(&rec.StatusCode, &rec.ContentType, &rec.Body, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}
	body := rec.Body
	if body == nil {
		body = []byte{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (
			idempotency_key,
			subject_realm,
			subject,
			method,
			route,
			body_hash,
			status_code,
			content_type,
			body,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (idempotency_key, subject_realm, subject, method, route, body_hash)
		DO UPDATE SET
			status_code = EXCLUDED.status_code,
			content_type = EXCLUDED.content_type,
			body = EXCLUDED.body,
			created_at = EXCLUDED.created_at
	`,
		string(fp.Key),
		s.realm,
		string(fp.Subject),
		fp.Method,
		fp.Route,
		fp.BodyHash,
		rec.StatusCode,
		rec.ContentType,
		body,
		createdAt.UTC(),
	)
	return err
}

// DeleteExpired removes records older than the ttl and returns how many went.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	if s.pool == nil {
		return 0, errors.New("nil postgres pool")
	}
	if s.ttl <= 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, s.cutoff())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) cutoff() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(-s.ttl).UTC()
}
