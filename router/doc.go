// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the livepoll API.

# Route Registration

NewRouter creates a chi router with all endpoints and CORS applied to every
route:

	r := router.NewRouter(engine, hub, cfg)

# Endpoints

Health:

	GET /health

Polls:

	POST /api/polls           - Create poll
	GET  /api/polls/{id}      - Snapshot and has_voted (X-Participant-Token)
	POST /api/polls/{id}/vote - Cast a vote

Push channel:

	GET /api/live - Websocket; joinPoll / leavePoll in, voteUpdate out

# Handler Initialization

The router creates handler instances with dependency injection:

	pollHandler := handlers.NewPollHandler(engine, cfg)
	liveHandler := handlers.NewLiveHandler(engine, hub, cfg)
*/
package router
