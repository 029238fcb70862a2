package httpapi

import (
	"net/http"

	"github.com/Overland-East-Bay/terreiro-api/internal/app/boats"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/celebrations"
	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
)

func (s *Server) ListBoats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"boats": s.Boats.List(r.Context())})
}

func (s *Server) GetBoat(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "boatId")
	if !ok {
		return
	}
	b, err := s.Boats.Get(r.Context(), domain.BoatID(id))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"boat": b})
}

func (s *Server) CreateBoat(w http.ResponseWriter, r *http.Request) {
	var body boatRequest
	if _, ok := decodeBody(w, r, &body); !ok {
		return
	}
	b, err := s.Boats.Create(r.Context(), boats.Input{Name: body.Name, Sponsors: body.Sponsors})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"boat": b})
}

func (s *Server) UpdateBoat(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "boatId")
	if !ok {
		return
	}
	var body boatRequest
	if _, ok := decodeBody(w, r, &body); !ok {
		return
	}
	b, err := s.Boats.Update(r.Context(), domain.BoatID(id), boats.Input{Name: body.Name, Sponsors: body.Sponsors})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"boat": b})
}

func (s *Server) DeleteBoat(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "boatId")
	if !ok {
		return
	}
	if err := s.Boats.Delete(r.Context(), domain.BoatID(id)); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ListCelebrations(w http.ResponseWriter, r *http.Request) {
	cs := s.Celebrations.List(r.Context())
	out := make([]celebrationDTO, 0, len(cs))
	for _, c := range cs {
		out = append(out, celebrationFromDomain(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"celebrations": out})
}

func (s *Server) GetCelebration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "celebrationId")
	if !ok {
		return
	}
	c, err := s.Celebrations.Get(r.Context(), domain.CelebrationID(id))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"celebration": celebrationFromDomain(c)})
}

func (s *Server) CreateCelebration(w http.ResponseWriter, r *http.Request) {
	var body celebrationRequest
	if _, ok := decodeBody(w, r, &body); !ok {
		return
	}
	c, err := s.Celebrations.Create(r.Context(), celebrationInput(body))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"celebration": celebrationFromDomain(c)})
}

func (s *Server) UpdateCelebration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "celebrationId")
	if !ok {
		return
	}
	var body celebrationRequest
	if _, ok := decodeBody(w, r, &body); !ok {
		return
	}
	c, err := s.Celebrations.Update(r.Context(), domain.CelebrationID(id), celebrationInput(body))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"celebration": celebrationFromDomain(c)})
}

func (s *Server) SetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "celebrationId")
	if !ok {
		return
	}
	mid, ok := pathID(w, r, "memberId")
	if !ok {
		return
	}
	var body domain.Payment
	if _, ok := decodeBody(w, r, &body); !ok {
		return
	}
	c, err := s.Celebrations.SetPayment(r.Context(), domain.CelebrationID(id), domain.MemberID(mid), body)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"celebration": celebrationFromDomain(c)})
}

func (s *Server) DeleteCelebration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "celebrationId")
	if !ok {
		return
	}
	if err := s.Celebrations.Delete(r.Context(), domain.CelebrationID(id)); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func celebrationInput(b celebrationRequest) celebrations.Input {
	return celebrations.Input{Name: b.Name, Date: fromDate(b.Date), Payments: b.Payments}
}
