package contracttest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
	eventrepoport "github.com/Overland-East-Bay/terreiro-api/internal/ports/out/eventrepo"
	idempotencyport "github.com/Overland-East-Bay/terreiro-api/internal/ports/out/idempotency"
	memberrepoport "github.com/Overland-East-Bay/terreiro-api/internal/ports/out/memberrepo"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

type CleanupFunc = func()

type TableStoreFactory func(t *testing.T) (tablestore.Store, CleanupFunc)
type MemberRepoFactory func(t *testing.T) (memberrepoport.Repository, CleanupFunc)
type EventRepoFactory func(t *testing.T) (eventrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      "k-1",
		Subject:  domain.SubjectID("sub-1"),
		Method:   "POST",
		Route:    "/gira/finalize",
		BodyHash: "",
	}
	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Now().UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// Fingerprints are scoped by subject.
	other := fp
	other.Subject = domain.SubjectID("sub-2")
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("expected miss for other subject, ok=%v err=%v", ok, err)
	}
}

// RunTableStore checks the snapshot semantics every table mirror backend must honor.
func RunTableStore(t *testing.T, newStore TableStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	if _, err := store.LoadAll(ctx, tablestore.Table("nope")); !errors.Is(err, tablestore.ErrUnknownTable) {
		t.Fatalf("LoadAll unknown table err=%v", err)
	}
	if err := store.ReplaceAll(ctx, tablestore.Table("nope"), nil); !errors.Is(err, tablestore.ErrUnknownTable) {
		t.Fatalf("ReplaceAll unknown table err=%v", err)
	}

	for _, table := range tablestore.Tables {
		got, err := store.LoadAll(ctx, table)
		if err != nil {
			t.Fatalf("LoadAll(%s) err=%v", table, err)
		}
		if len(got) != 0 {
			t.Fatalf("LoadAll(%s) on empty store = %d records", table, len(got))
		}
	}

	first := []tablestore.Record{
		{ID: 3, Data: json.RawMessage(`{"id":3,"name":"Caio"}`)},
		{ID: 1, Data: json.RawMessage(`{"id":1,"name":"Ana"}`)},
		{ID: 2, Data: json.RawMessage(`{"id":2,"name":"Bia"}`)},
	}
	if err := store.ReplaceAll(ctx, tablestore.TableMembers, first); err != nil {
		t.Fatalf("ReplaceAll err=%v", err)
	}
	got, err := store.LoadAll(ctx, tablestore.TableMembers)
	if err != nil {
		t.Fatalf("LoadAll err=%v", err)
	}
	if len(got) != 3 || got[0].ID != 1 || got[1].ID != 2 || got[2].ID != 3 {
		t.Fatalf("unexpected order: %+v", got)
	}
	assertJSONEqual(t, got[0].Data, `{"id":1,"name":"Ana"}`)

	// Callers may reuse their slices; the stored copy must not change.
	first[0].Data[7] = 'X'
	got, _ = store.LoadAll(ctx, tablestore.TableMembers)
	assertJSONEqual(t, got[2].Data, `{"id":3,"name":"Caio"}`)

	// Full overwrite, never a merge.
	second := []tablestore.Record{{ID: 2, Data: json.RawMessage(`{"id":2,"name":"Bia Souza"}`)}}
	if err := store.ReplaceAll(ctx, tablestore.TableMembers, second); err != nil {
		t.Fatalf("ReplaceAll overwrite err=%v", err)
	}
	got, err = store.LoadAll(ctx, tablestore.TableMembers)
	if err != nil {
		t.Fatalf("LoadAll err=%v", err)
	}
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("expected single record after overwrite, got %+v", got)
	}
	assertJSONEqual(t, got[0].Data, `{"id":2,"name":"Bia Souza"}`)

	// Tables are independent.
	if err := store.ReplaceAll(ctx, tablestore.TableBoats, []tablestore.Record{{ID: 7, Data: json.RawMessage(`{"id":7}`)}}); err != nil {
		t.Fatalf("ReplaceAll boats err=%v", err)
	}
	if got, _ := store.LoadAll(ctx, tablestore.TableMembers); len(got) != 1 {
		t.Fatalf("members changed by boats write: %+v", got)
	}

	// Empty snapshot clears the table.
	if err := store.ReplaceAll(ctx, tablestore.TableBoats, nil); err != nil {
		t.Fatalf("ReplaceAll empty err=%v", err)
	}
	if got, _ := store.LoadAll(ctx, tablestore.TableBoats); len(got) != 0 {
		t.Fatalf("expected empty boats, got %+v", got)
	}
}

func RunMemberRepo(t *testing.T, newRepo MemberRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	if id, err := repo.NextID(ctx); err != nil || id != 1 {
		t.Fatalf("NextID on empty repo = %d err=%v", id, err)
	}

	now := time.Unix(1000, 0).UTC()
	ana := domain.Member{
		ID:         1,
		Name:       "Ana Souza",
		Status:     domain.StatusActive,
		Department: domain.DepartmentReception,
		Function:   domain.FunctionNone,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.Create(ctx, ana); err != nil {
		t.Fatalf("Create ana: %v", err)
	}
	if err := repo.Create(ctx, ana); !errors.Is(err, memberrepoport.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	got, err := repo.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Ana Souza" || got.Department != domain.DepartmentReception {
		t.Fatalf("unexpected member: %+v", got)
	}
	if _, err := repo.GetByID(ctx, 99); !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	for _, m := range []domain.Member{
		{ID: 2, Name: "Álvaro Lima", Status: domain.StatusActive, Department: domain.DepartmentNone, Function: domain.FunctionOgan},
		{ID: 5, Name: "bruno", Status: domain.StatusOnLeave, Department: domain.DepartmentNone, Function: domain.FunctionNone},
	} {
		if err := repo.Create(ctx, m); err != nil {
			t.Fatalf("Create %d: %v", m.ID, err)
		}
	}
	if id, err := repo.NextID(ctx); err != nil || id != 6 {
		t.Fatalf("NextID = %d err=%v, want 6", id, err)
	}

	// pt-BR collation: accents and case do not push names to the end.
	all, err := repo.List(ctx, memberrepoport.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].ID != 2 || all[1].ID != 1 || all[2].ID != 5 {
		t.Fatalf("unexpected ordering: %+v", names(all))
	}

	active := domain.StatusActive
	res, err := repo.List(ctx, memberrepoport.Filter{Status: &active})
	if err != nil || len(res) != 2 {
		t.Fatalf("status filter: n=%d err=%v", len(res), err)
	}
	ogan := domain.FunctionOgan
	res, err = repo.List(ctx, memberrepoport.Filter{Function: &ogan})
	if err != nil || len(res) != 1 || res[0].ID != 2 {
		t.Fatalf("function filter: %+v err=%v", names(res), err)
	}
	res, err = repo.List(ctx, memberrepoport.Filter{Query: "SOU an"})
	if err != nil || len(res) != 1 || res[0].ID != 1 {
		t.Fatalf("query filter: %+v err=%v", names(res), err)
	}

	ana.Name = "Ana Souza Lima"
	if err := repo.Update(ctx, ana); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got, _ := repo.GetByID(ctx, 1); got.Name != "Ana Souza Lima" {
		t.Fatalf("update not applied: %+v", got)
	}
	if err := repo.Update(ctx, domain.Member{ID: 42, Name: "x"}); !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("Update missing err=%v", err)
	}

	if err := repo.Delete(ctx, 5); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, 5); !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("Delete twice err=%v", err)
	}

	if err := repo.ReplaceAll(ctx, []domain.Member{{ID: 10, Name: "Zé", Status: domain.StatusActive}}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	all, _ = repo.List(ctx, memberrepoport.Filter{})
	if len(all) != 1 || all[0].ID != 10 {
		t.Fatalf("ReplaceAll left %+v", names(all))
	}
	if id, _ := repo.NextID(ctx); id != 11 {
		t.Fatalf("NextID after ReplaceAll = %d", id)
	}
}

func RunEventRepo(t *testing.T, newRepo EventRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	if id, err := repo.NextID(ctx); err != nil || id != 1 {
		t.Fatalf("NextID on empty repo = %d err=%v", id, err)
	}

	jan := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	dec := time.Date(2026, 12, 8, 0, 0, 0, 0, time.UTC)
	driver := domain.MemberID(1)
	rider := domain.MemberID(2)
	seats := domain.Seats{}
	seats[0] = &rider

	events := []domain.ExternalEvent{
		{ID: 1, Name: "Cachoeira", Date: &jan, Participants: map[domain.MemberID]domain.Participation{}, Vehicles: domain.SeatMap{}},
		{ID: 2, Name: "Sem data", Participants: map[domain.MemberID]domain.Participation{}, Vehicles: domain.SeatMap{}},
		{ID: 3, Name: "Praia", Date: &dec,
			Participants: map[domain.MemberID]domain.Participation{
				driver: {Participating: true, Mode: domain.TransportDriver},
				rider:  {Participating: true, Mode: domain.TransportNeedsRide},
			},
			Vehicles: domain.SeatMap{driver: seats},
		},
	}
	for _, e := range events {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create %d: %v", e.ID, err)
		}
	}
	if err := repo.Create(ctx, events[0]); !errors.Is(err, eventrepoport.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 || list[0].ID != 3 || list[1].ID != 1 || list[2].ID != 2 {
		t.Fatalf("unexpected ordering: %+v", list)
	}

	got, err := repo.GetByID(ctx, 3)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Vehicles[driver].IndexOf(rider) != 0 {
		t.Fatalf("seat map not kept: %+v", got.Vehicles)
	}

	// Returned values must not alias stored state.
	got.Participants[99] = domain.Participation{Participating: true}
	if again, _ := repo.GetByID(ctx, 3); len(again.Participants) != 2 {
		t.Fatalf("stored participants mutated through returned value")
	}

	got.Name = "Praia Grande"
	if err := repo.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if again, _ := repo.GetByID(ctx, 3); again.Name != "Praia Grande" {
		t.Fatalf("save not applied: %+v", again)
	}
	if err := repo.Save(ctx, domain.ExternalEvent{ID: 40}); !errors.Is(err, eventrepoport.ErrNotFound) {
		t.Fatalf("Save missing err=%v", err)
	}

	if err := repo.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, 1); !errors.Is(err, eventrepoport.ErrNotFound) {
		t.Fatalf("GetByID deleted err=%v", err)
	}
	if id, _ := repo.NextID(ctx); id != 4 {
		t.Fatalf("NextID = %d, want 4", id)
	}

	if err := repo.ReplaceAll(ctx, nil); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if list, _ := repo.List(ctx); len(list) != 0 {
		t.Fatalf("ReplaceAll left %+v", list)
	}
}

func assertJSONEqual(t *testing.T, got json.RawMessage, want string) {
	t.Helper()
	var a, b any
	if err := json.Unmarshal(got, &a); err != nil {
		t.Fatalf("unmarshal got %q: %v", string(got), err)
	}
	if err := json.Unmarshal([]byte(want), &b); err != nil {
		t.Fatalf("unmarshal want: %v", err)
	}
	ga, _ := json.Marshal(a)
	gb, _ := json.Marshal(b)
	if string(ga) != string(gb) {
		t.Fatalf("json mismatch: got %s want %s", ga, gb)
	}
}

func names(ms []domain.Member) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Name)
	}
	return out
}
