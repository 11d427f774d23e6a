// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/danielhkuo/livepoll/broadcast"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/handlers"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/tally"
)

func NewRouter(engine *tally.Engine, hub *broadcast.Hub, cfg cliparse.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS)

	// Initialize handlers
	pollHandler := handlers.NewPollHandler(engine, cfg)
	liveHandler := handlers.NewLiveHandler(engine, hub, cfg)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/polls", middleware.WithLogging(pollHandler.CreatePoll))
		r.Get("/polls/{id}", middleware.WithLogging(pollHandler.GetPoll))
		r.Post("/polls/{id}/vote", middleware.WithLogging(pollHandler.Vote))

		// Push channel; the connection outlives any request log line.
		r.Handle("/live", liveHandler)
	})

	// Root endpoint
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("livepoll API v1"))
	})

	return r
}
