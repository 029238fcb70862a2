package itest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Overland-East-Bay/terreiro-api/internal/adapters/httpapi"
	memclock "github.com/Overland-East-Bay/terreiro-api/internal/adapters/memory/clock"
	memeventrepo "github.com/Overland-East-Bay/terreiro-api/internal/adapters/memory/eventrepo"
	memidempotency "github.com/Overland-East-Bay/terreiro-api/internal/adapters/memory/idempotency"
	memmemberrepo "github.com/Overland-East-Bay/terreiro-api/internal/adapters/memory/memberrepo"
	memtablestore "github.com/Overland-East-Bay/terreiro-api/internal/adapters/memory/tablestore"
	pgidempotency "github.com/Overland-East-Bay/terreiro-api/internal/adapters/postgres/idempotency"
	pgtablestore "github.com/Overland-East-Bay/terreiro-api/internal/adapters/postgres/tablestore"
	postgres_testutil "github.com/Overland-East-Bay/terreiro-api/internal/adapters/postgres/testutil"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/syncer"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/terreiro"
	idempotencyport "github.com/Overland-East-Bay/terreiro-api/internal/ports/out/idempotency"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

// storage is what survives a server restart.
type storage struct {
	tables tablestore.Store
	idem   idempotencyport.Store
}

func newStorage(t *testing.T, b backend) storage {
	t.Helper()
	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		st := pgtablestore.NewStore(pool)
		for _, tbl := range tablestore.Tables {
			if err := st.ReplaceAll(context.Background(), tbl, nil); err != nil {
				t.Fatalf("reset %s err=%v", tbl, err)
			}
		}
		return storage{tables: st, idem: pgidempotency.NewStore(pool, "itest", time.Hour)}
	case backendMemory:
		return storage{tables: memtablestore.NewStore(), idem: memidempotency.NewStore(time.Hour)}
	default:
		t.Fatalf("unknown backend: %s", b)
		return storage{}
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
	sync    *syncer.Syncer
	srv     *httptest.Server
}

// newTestServer boots a server over st, restoring whatever st already holds.
func newTestServer(t *testing.T, st storage) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2026, 1, 10, 20, 0, 0, 0, time.UTC))
	sync := syncer.New(syncer.Config{Store: st.tables, Clock: clk})

	app := terreiro.New(terreiro.Deps{
		Members: memmemberrepo.NewRepo(),
		Events:  memeventrepo.NewRepo(),
		Clock:   clk,
		Syncer:  sync,
	})
	if err := app.Restore(context.Background(), st.tables); err != nil {
		t.Fatalf("Restore err=%v", err)
	}

	api := httpapi.NewServer(app.Members, app.Gira, app.Carpool, app.Boats, app.Celebrations, st.idem)
	api.Sync = sync

	// Integration tests use the dev auth middleware to stay fully local and deterministic.
	// We pass empty default subject to ensure requests MUST provide X-Debug-Subject, allowing
	// auth-failure coverage.
	authMW := httpapi.NewDevAuthMiddleware("")
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{AuthMiddleware: authMW})

	srv := httptest.NewServer(handler)
	ts := &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
		sync:    sync,
		srv:     srv,
	}
	t.Cleanup(ts.stop)
	return ts
}

// stop closes the listener and writes pending snapshots. Safe to call twice.
func (s *testServer) stop() {
	s.srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = s.sync.Close(ctx)
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, subject string, body any, hdr ...string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if subject != "" {
		req.Header.Set("X-Debug-Subject", subject)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
