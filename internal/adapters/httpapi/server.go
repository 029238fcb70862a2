package httpapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Overland-East-Bay/terreiro-api/internal/app/boats"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/carpool"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/celebrations"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/gira"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/members"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/syncer"
	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
	"github.com/Overland-East-Bay/terreiro-api/internal/platform/auth/magiclink"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/idempotency"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

const maxJSONBody = 1 << 20

// SyncStatus reports the persistence state of each table.
type SyncStatus interface {
	Status() map[tablestore.Table]syncer.TableStatus
}

// Server is the HTTP adapter over the application services.
type Server struct {
	Members      *members.Service
	Gira         *gira.Service
	Carpool      *carpool.Service
	Boats        *boats.Service
	Celebrations *celebrations.Service
	Idem         idempotency.Store
	Sync         SyncStatus

	// Auth is nil unless magic-link sign-in is enabled.
	Auth *magiclink.Service
	// SubjectAllowed gates magic-link requests; nil allows every subject.
	SubjectAllowed func(string) bool
	PublicBaseURL  string

	Logger *slog.Logger
}

func NewServer(
	membersSvc *members.Service,
	giraSvc *gira.Service,
	carpoolSvc *carpool.Service,
	boatsSvc *boats.Service,
	celebrationsSvc *celebrations.Service,
	idem idempotency.Store,
) *Server {
	return &Server{
		Members:      membersSvc,
		Gira:         giraSvc,
		Carpool:      carpoolSvc,
		Boats:        boatsSvc,
		Celebrations: celebrationsSvc,
		Idem:         idem,
		Logger:       slog.Default(),
	}
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// readBody reads a bounded request body. An empty body is returned as nil.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Body == nil {
		return nil, true
	}
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
			return nil, false
		}
		writeValidation(w, r, "unreadable request body", nil)
		return nil, false
	}
	return b, true
}

// decodeBody reads and unmarshals a required JSON body, answering 422 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) ([]byte, bool) {
	raw, ok := readBody(w, r)
	if !ok {
		return nil, false
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		writeValidation(w, r, "missing request body", nil)
		return nil, false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		writeValidation(w, r, "invalid request body", map[string]any{"body": err.Error()})
		return nil, false
	}
	return raw, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		writeValidation(w, r, "invalid "+name, map[string]any{name: "must be a positive integer"})
		return 0, false
	}
	return v, true
}

func hashRequest(route string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(route))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// idempotent runs do once per (subject, Idempotency-Key, route). A retry with
// the same body replays the stored response; a retry with another body is
// rejected with 409. Requests without the header run unconditionally.
func (s *Server) idempotent(w http.ResponseWriter, r *http.Request, route string, body []byte, do func(ctx context.Context) (int, any, error)) {
	ctx := r.Context()
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" || s.Idem == nil {
		status, resp, err := do(ctx)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, status, resp)
		return
	}

	sub, _ := SubjectFromContext(ctx)
	bodyHash := hashRequest(route, body)
	metaFP := idempotency.Fingerprint{
		Key:      idempotency.Key(key),
		Subject:  domain.SubjectID(sub),
		Method:   r.Method,
		Route:    route,
		BodyHash: "",
	}
	if meta, ok, err := s.Idem.Get(ctx, metaFP); err != nil {
		s.writeAppError(w, r, err)
		return
	} else if ok {
		if string(meta.Body) != bodyHash {
			writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
			return
		}
	} else {
		_ = s.Idem.Put(ctx, metaFP, idempotency.Record{
			StatusCode:  0,
			ContentType: "text/plain",
			Body:        []byte(bodyHash),
			CreatedAt:   time.Now().UTC(),
		})
	}

	respFP := metaFP
	respFP.BodyHash = bodyHash
	if rec, ok, err := s.Idem.Get(ctx, respFP); err != nil {
		s.writeAppError(w, r, err)
		return
	} else if ok && rec.StatusCode >= 200 && rec.StatusCode < 300 && strings.HasPrefix(rec.ContentType, "application/json") {
		w.Header().Set("Content-Type", rec.ContentType)
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(rec.StatusCode)
		_, _ = w.Write(rec.Body)
		return
	}

	status, resp, err := do(ctx)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	b, err := json.Marshal(resp)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	b = append(b, '\n')
	// Store successful response for replay, byte for byte.
	_ = s.Idem.Put(ctx, respFP, idempotency.Record{
		StatusCode:  status,
		ContentType: "application/json",
		Body:        b,
		CreatedAt:   time.Now().UTC(),
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func (s *Server) SyncStatus(w http.ResponseWriter, r *http.Request) {
	tables := map[tablestore.Table]syncer.TableStatus{}
	if s.Sync != nil {
		tables = s.Sync.Status()
	}
	healthy := true
	for _, st := range tables {
		if st.Failing {
			healthy = false
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"healthy": healthy, "tables": tables})
}
