package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Overland-East-Bay/terreiro-api/internal/app/carpool"
	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
)

func (s *Server) writeDraft(w http.ResponseWriter, r *http.Request, d carpool.Draft, err error) {
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"draft": draftFromDomain(d)})
}

func (s *Server) applyOuting(w http.ResponseWriter, r *http.Request, a carpool.Action) {
	d, err := s.Carpool.Apply(r.Context(), a)
	s.writeDraft(w, r, d, err)
}

func (s *Server) GetOuting(w http.ResponseWriter, r *http.Request) {
	d, err := s.Carpool.Draft(r.Context())
	s.writeDraft(w, r, d, err)
}

func (s *Server) SetOutingName(w http.ResponseWriter, r *http.Request) {
	var body nameRequest
	if _, ok := decodeBody(w, r, &body); !ok {
		return
	}
	s.applyOuting(w, r, carpool.SetName{Name: body.Name})
}

func (s *Server) SetOutingDate(w http.ResponseWriter, r *http.Request) {
	var body dateRequest
	if _, ok := decodeBody(w, r, &body); !ok {
		return
	}
	a := carpool.SetDate{}
	if body.Date.IsSpecified() && !body.Date.IsNull() {
		if d, err := body.Date.Get(); err == nil {
			a.Date = fromDate(&d)
		}
	}
	s.applyOuting(w, r, a)
}

func (s *Server) ToggleParticipation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "memberId")
	if !ok {
		return
	}
	s.applyOuting(w, r, carpool.ToggleParticipation{Member: domain.MemberID(id)})
}

func (s *Server) SetTransportMode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "memberId")
	if !ok {
		return
	}
	var body modeRequest
	if _, ok := decodeBody(w, r, &body); !ok {
		return
	}
	s.applyOuting(w, r, carpool.SetTransportMode{Member: domain.MemberID(id), Mode: body.Mode})
}

func (s *Server) AssignSeat(w http.ResponseWriter, r *http.Request) {
	driver, ok := pathID(w, r, "driverId")
	if !ok {
		return
	}
	seat, err := strconv.Atoi(chi.URLParam(r, "seat"))
	if err != nil || seat < 0 || seat >= domain.SeatsPerVehicle {
		writeValidation(w, r, "invalid seat", map[string]any{"seat": "must be between 0 and 3"})
		return
	}
	var body seatRequest
	if _, ok := decodeBody(w, r, &body); !ok {
		return
	}
	s.applyOuting(w, r, carpool.AssignSeat{Driver: domain.MemberID(driver), Seat: seat, Rider: nullableID(body.RiderID)})
}

func (s *Server) NewOuting(w http.ResponseWriter, r *http.Request) {
	d, err := s.Carpool.New(r.Context())
	s.writeDraft(w, r, d, err)
}

func (s *Server) LoadOuting(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "eventId")
	if !ok {
		return
	}
	d, err := s.Carpool.Load(r.Context(), domain.EventID(id))
	s.writeDraft(w, r, d, err)
}

func (s *Server) SaveOuting(w http.ResponseWriter, r *http.Request) {
	raw, ok := readBody(w, r)
	if !ok {
		return
	}
	s.idempotent(w, r, "/outing/save", raw, func(ctx context.Context) (int, any, error) {
		ev, err := s.Carpool.Save(ctx)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, map[string]any{"event": eventFromDomain(ev)}, nil
	})
}

func (s *Server) ListEvents(w http.ResponseWriter, r *http.Request) {
	evs, err := s.Carpool.Events(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	out := make([]eventDTO, 0, len(evs))
	for _, e := range evs {
		out = append(out, eventFromDomain(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

func (s *Server) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "eventId")
	if !ok {
		return
	}
	ev, err := s.Carpool.Event(r.Context(), domain.EventID(id))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event": eventFromDomain(ev)})
}

func (s *Server) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "eventId")
	if !ok {
		return
	}
	if err := s.Carpool.Delete(r.Context(), domain.EventID(id)); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
