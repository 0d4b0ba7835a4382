/**
 * @description
 * This file sets up the HTTP router for the campaign-service. It defines the
 * API endpoints, associates them with their corresponding handlers, and
 * applies the middleware stack: request ids, real-ip resolution, structured
 * request logging, panic recovery, a request timeout, and CORS for the web
 * frontend.
 *
 * Routes are mounted under /api/classy, matching the paths the frontend
 * already calls.
 *
 * @dependencies
 * - net/http, time: Standard Go libraries.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware.
 * - github.com/rs/zerolog: Structured logging.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// RouterOptions carries the router-level knobs.
type RouterOptions struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// CampaignRoutes creates and returns the router for the campaign service.
func CampaignRoutes(h *CampaignHandlers, logger zerolog.Logger, opts RouterOptions) http.Handler {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Route("/api/classy", func(r chi.Router) {
		r.Get("/campaigns", h.ListCampaignsHandler)
		r.Route("/campaigns/{campaignID}", func(r chi.Router) {
			r.Get("/", h.CampaignDetailHandler)
			r.Get("/transactions", h.CampaignTransactionsHandler)
			r.Get("/top-fundraisers", h.TopFundraisersHandler)
			r.Get("/summary", h.CampaignSummaryHandler)
		})
		r.Get("/organizations/{organizationID}", h.OrganizationHandler)
		r.Get("/fundraising-pages/{pageID}/overview", h.FundraisingPageOverviewHandler)
	})

	return r
}
