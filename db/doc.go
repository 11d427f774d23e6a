// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the configured SQL database and creates its schema.

# Drivers

Open picks the database/sql driver from the configured type:

	sqlite   → modernc.org/sqlite (pure Go, default)
	postgres → github.com/lib/pq

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)

SQLite connections are limited to one open connection.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - poll: question and creation time
  - poll_option: ordered options with their vote counts
  - vote_record: one row per (poll_id, participant_token)

# Relationships

	poll 1──* poll_option
	poll 1──* vote_record

The UNIQUE (poll_id, participant_token) constraint backs the in-memory vote
ledger when several processes share one database.
*/
package db
