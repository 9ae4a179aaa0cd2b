// Package router builds the chi routers for the two services. The parcel
// service owns intake and queries; the courier service owns the scan and
// session endpoints.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parcelflow/internal/http/handlers"
	mw "parcelflow/internal/http/middleware"
	"parcelflow/internal/logx"
)

func base(logger logx.Logger, h *handlers.Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Observability(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(5 * time.Second))

	r.Get("/ping", h.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(h.HealthcheckHead))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.NotFound(http.HandlerFunc(h.NotFound))

	return r
}

// NewParcel constructs the parcel service router: intake and queries.
func NewParcel(logger logx.Logger, h *handlers.Handlers, parcel *handlers.ParcelHandler) http.Handler {
	r := base(logger, h)

	r.Post("/parcels", parcel.Create)
	r.Post("/parcels/batch", parcel.Batch)
	r.Get("/parcel/{id}", parcel.GetByID)
	r.Get("/parcel/code/{code}", parcel.GetByCode)

	return r
}

// NewCourier constructs the courier service router. The rate limiter
// guards the scan endpoints; nil disables it.
func NewCourier(logger logx.Logger, h *handlers.Handlers, session *handlers.SessionHandler, ratelimit func(http.Handler) http.Handler) http.Handler {
	r := base(logger, h)

	r.Group(func(g chi.Router) {
		if ratelimit != nil {
			g.Use(ratelimit)
		}
		g.Post("/couriers/{courierID}/parcels/{parcelID}/accept", session.Accept)
		g.Post("/couriers/{courierID}/parcels/{parcelID}/complete", session.Complete)
		g.Post("/couriers/{courierID}/parcels/{parcelID}/fail", session.Fail)
		g.Post("/couriers/{courierID}/parcels/{parcelID}/refuse", session.Refuse)
		g.Post("/sessions/{sessionID}/complete", session.CompleteSession)
		g.Post("/sessions/{sessionID}/fail", session.FailSession)
	})

	return r
}
