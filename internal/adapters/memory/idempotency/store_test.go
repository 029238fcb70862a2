package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/idempotency"
)

func TestStore_PutThenGet(t *testing.T) {
	t.Parallel()

	s := NewStore(time.Hour)
	fp := idempotency.Fingerprint{
		Key:      "k1",
		Subject:  domain.SubjectID("sub-1"),
		Method:   "POST",
		Route:    "/gira/finalize",
		BodyHash: "abc123",
	}
	rec := idempotency.Record{
		StatusCode:  200,
		ContentType: "application/json",
		Body:        []byte(`{"ok":true}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}

	if err := s.Put(context.Background(), fp, rec); err != nil {
		t.Fatalf("Put() err=%v", err)
	}
	rec.Body[0] = 'X'

	got, ok, err := s.Get(context.Background(), fp)
	if err != nil {
		t.Fatalf("Get() err=%v", err)
	}
	if !ok {
		t.Fatalf("Get() ok=false, want true")
	}
	if got.StatusCode != 200 || got.ContentType != "application/json" || string(got.Body) != `{"ok":true}` {
		t.Fatalf("Get()=%+v", got)
	}

	other := fp
	other.BodyHash = "different"
	if _, ok, _ := s.Get(context.Background(), other); ok {
		t.Fatalf("Get() matched a different body hash")
	}
}

func TestStore_RecordsExpire(t *testing.T) {
	t.Parallel()

	s := NewStore(20 * time.Millisecond)
	fp := idempotency.Fingerprint{Key: "k", Subject: "s", Method: "POST", Route: "/members"}
	if err := s.Put(context.Background(), fp, idempotency.Record{StatusCode: 201}); err != nil {
		t.Fatalf("Put() err=%v", err)
	}
	time.Sleep(40 * time.Millisecond)
	if _, ok, _ := s.Get(context.Background(), fp); ok {
		t.Fatalf("Get() returned an expired record")
	}
}
