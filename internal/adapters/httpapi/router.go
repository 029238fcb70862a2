package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Overland-East-Bay/terreiro-api/internal/platform/metrics"
)

// RouterOptions configures optional router wiring.
type RouterOptions struct {
	// AuthMiddleware, if set, guards every route except health, metrics and sign-in.
	AuthMiddleware func(http.Handler) http.Handler
	Metrics        *metrics.Metrics
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

// NewRouter constructs the API HTTP router.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observe(opts.Metrics, s.logger()))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}
	if s.Auth != nil {
		r.Post("/auth/magic-link", s.RequestMagicLink)
		r.Post("/auth/session", s.ExchangeMagicLink)
	}

	r.Group(func(r chi.Router) {
		if opts.AuthMiddleware != nil {
			r.Use(opts.AuthMiddleware)
		}

		r.Get("/sync-status", s.SyncStatus)

		r.Route("/members", func(r chi.Router) {
			r.Get("/", s.ListMembers)
			r.Post("/", s.CreateMember)
			r.Post("/import", s.ImportMembers)
			r.Get("/import/template", s.MemberImportTemplate)
			r.Get("/{memberId}", s.GetMember)
			r.Patch("/{memberId}", s.UpdateMember)
			r.Delete("/{memberId}", s.DeleteMember)
			r.Put("/{memberId}/sponsor-entities", s.SetSponsorEntities)
		})

		r.Route("/gira", func(r chi.Router) {
			r.Get("/", s.GetGira)
			r.Put("/label", s.SetGiraLabel)
			r.Put("/presence/{memberId}", s.SetPresence)
			r.Post("/presence/all", s.MarkAllPresent)
			r.Delete("/presence", s.ClearPresence)
			r.Put("/pairings/{mediumId}", s.SetPairing)
			r.Put("/departments/{slot}", s.SetDepartmentSlot)
			r.Post("/reset", s.ResetGira)
			r.Post("/finalize", s.FinalizeGira)
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/", s.ListHistory)
			r.Delete("/", s.DeleteHistory)
			r.Get("/{historyId}", s.GetHistory)
		})

		r.Route("/outing", func(r chi.Router) {
			r.Get("/", s.GetOuting)
			r.Put("/name", s.SetOutingName)
			r.Put("/date", s.SetOutingDate)
			r.Post("/participants/{memberId}/toggle", s.ToggleParticipation)
			r.Put("/participants/{memberId}/mode", s.SetTransportMode)
			r.Put("/vehicles/{driverId}/seats/{seat}", s.AssignSeat)
			r.Post("/new", s.NewOuting)
			r.Post("/load/{eventId}", s.LoadOuting)
			r.Post("/save", s.SaveOuting)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", s.ListEvents)
			r.Get("/{eventId}", s.GetEvent)
			r.Delete("/{eventId}", s.DeleteEvent)
		})

		r.Route("/boats", func(r chi.Router) {
			r.Get("/", s.ListBoats)
			r.Post("/", s.CreateBoat)
			r.Get("/{boatId}", s.GetBoat)
			r.Put("/{boatId}", s.UpdateBoat)
			r.Delete("/{boatId}", s.DeleteBoat)
		})

		r.Route("/celebrations", func(r chi.Router) {
			r.Get("/", s.ListCelebrations)
			r.Post("/", s.CreateCelebration)
			r.Get("/{celebrationId}", s.GetCelebration)
			r.Put("/{celebrationId}", s.UpdateCelebration)
			r.Delete("/{celebrationId}", s.DeleteCelebration)
			r.Put("/{celebrationId}/payments/{memberId}", s.SetPayment)
		})
	})

	return r
}

// observe records request metrics by route pattern and logs each request at debug level.
func observe(m *metrics.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, slot := withRequestSlot(r.Context())
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			d := time.Since(start)
			m.ObserveHTTP(route, r.Method, strconv.Itoa(status), d)
			logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("route", route),
				slog.Int("status", status),
				slog.Duration("duration", d),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("subject", slot.subject),
			)
		})
	}
}
