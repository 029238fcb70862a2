package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Overland-East-Bay/terreiro-api/internal/app/gira"
	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
)

func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, sess gira.Session, err error) {
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": sessionFromDomain(sess)})
}

func (s *Server) applyGira(w http.ResponseWriter, r *http.Request, a gira.Action) {
	sess, err := s.Gira.Apply(r.Context(), a)
	s.writeSession(w, r, sess, err)
}

func (s *Server) GetGira(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Gira.Session(r.Context())
	s.writeSession(w, r, sess, err)
}

func (s *Server) SetGiraLabel(w http.ResponseWriter, r *http.Request) {
	var body labelRequest
	if _, ok := decodeBody(w, r, &body); !ok {
		return
	}
	s.applyGira(w, r, gira.SetLabel{Label: body.Label})
}

func (s *Server) SetPresence(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "memberId")
	if !ok {
		return
	}
	var body presenceRequest
	if _, ok := decodeBody(w, r, &body); !ok {
		return
	}
	s.applyGira(w, r, gira.SetPresence{Member: domain.MemberID(id), Mark: body.Mark})
}

func (s *Server) MarkAllPresent(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Gira.MarkAllActivePresent(r.Context())
	s.writeSession(w, r, sess, err)
}

func (s *Server) ClearPresence(w http.ResponseWriter, r *http.Request) {
	s.applyGira(w, r, gira.ClearPresence{})
}

func (s *Server) SetPairing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "mediumId")
	if !ok {
		return
	}
	var body pairingRequest
	if _, ok := decodeBody(w, r, &body); !ok {
		return
	}
	s.applyGira(w, r, gira.SetPairing{Medium: domain.MemberID(id), Assistant: nullableID(body.AssistantID)})
}

func (s *Server) SetDepartmentSlot(w http.ResponseWriter, r *http.Request) {
	slot, err := domain.ParseDepartmentSlot(chi.URLParam(r, "slot"))
	if err != nil {
		writeValidation(w, r, "invalid department slot", map[string]any{"slot": "must be reception or canteen"})
		return
	}
	var body slotRequest
	if _, ok := decodeBody(w, r, &body); !ok {
		return
	}
	s.applyGira(w, r, gira.SetDepartmentSlot{Slot: slot, Member: nullableID(body.MemberID)})
}

func (s *Server) ResetGira(w http.ResponseWriter, r *http.Request) {
	s.applyGira(w, r, gira.Reset{})
}

func (s *Server) FinalizeGira(w http.ResponseWriter, r *http.Request) {
	raw, ok := readBody(w, r)
	if !ok {
		return
	}
	s.idempotent(w, r, "/gira/finalize", raw, func(ctx context.Context) (int, any, error) {
		rec, err := s.Gira.Finalize(ctx)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, map[string]any{"record": rec}, nil
	})
}

func (s *Server) ListHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"records": s.Gira.History(r.Context())})
}

func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "historyId")
	if !ok {
		return
	}
	d, err := s.Gira.HistoryRecord(r.Context(), domain.HistoryID(id))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyDetailDTO{Record: d.Record, Names: d.Names})
}

func (s *Server) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	s.Gira.DeleteHistory(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
