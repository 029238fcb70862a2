package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Overland-East-Bay/terreiro-api/internal/app/boats"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/carpool"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/celebrations"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/gira"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/members"
)

type errorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	er := errorResponse{Error: errorBody{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: middleware.GetReqID(r.Context()),
	}}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(er)
}

func writeValidation(w http.ResponseWriter, r *http.Request, message string, details map[string]any) {
	writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, details)
}

// writeAppError maps application errors onto the error envelope. Anything
// else is logged and reported as a 500.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		me *members.Error
		ge *gira.Error
		ce *carpool.Error
		be *boats.Error
		fe *celebrations.Error
	)
	switch {
	case errors.As(err, &me):
		writeError(w, r, me.Status, me.Code, me.Message, me.Details)
	case errors.As(err, &ge):
		writeError(w, r, ge.Status, ge.Code, ge.Message, ge.Details)
	case errors.As(err, &ce):
		writeError(w, r, ce.Status, ce.Code, ce.Message, ce.Details)
	case errors.As(err, &be):
		writeError(w, r, be.Status, be.Code, be.Message, be.Details)
	case errors.As(err, &fe):
		writeError(w, r, fe.Status, fe.Code, fe.Message, fe.Details)
	default:
		s.logger().Error("request failed",
			append(requestAttrs(r), slog.String("path", r.URL.Path), slog.Any("err", err))...,
		)
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
