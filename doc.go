// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the livepoll API server.

livepoll runs single-choice polls with live results. Every accepted vote
is pushed to everyone watching the poll, and each participant can vote
once per poll.

# Starting the Server

The server reads flags, environment variables and an optional .env file:

	IP_HASH_SALT=... DATABASE_URL=polls.db go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..."

# Configuration

Required settings:

  - IP_HASH_SALT (--ip-salt): Secret for hashing voter IPs
  - DATABASE_URL (-d): Connection string or SQLite path (not needed for memory)

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite, postgres or memory (default: sqlite)
  - BROADCAST_QUEUE_SIZE (--queue): Per-subscriber queue (default: 16)
  - WRITE_TIMEOUT (--write-timeout): Push channel write timeout (default: 5s)
  - LOG_LEVEL (--log-level): debug, info, warn or error (default: info)

# Architecture

  - tally: Vote ledger and in-memory tallies, the single writer per poll
  - broadcast: Poll rooms and per-subscriber delivery queues
  - reconciler: Client-side view state with optimistic votes
  - client: Go client for the HTTP API and push channel
  - store: Durable poll and vote storage (SQL or memory)
  - handlers: HTTP and push channel handlers
  - router: Route definitions using chi
  - middleware: CORS, logging, JSON helpers
  - models: Request, response and domain types
  - auth: Token generation and IP hashing
  - db: Connection setup and schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
