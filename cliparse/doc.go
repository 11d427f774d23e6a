// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

LoadEnvFile reads a .env file into the environment first, if one exists:

	if err := cliparse.LoadEnvFile(".env"); err != nil {
		log.Fatal(err)
	}

# CLI Flags

	-p              Server port (default 3318)
	-d              Database URL
	-t              Database type: sqlite (default), postgres, memory
	-queue          Per-subscriber delivery queue size (default 16)
	-write-timeout  Push channel write timeout (default 5s)
	-log-level      debug, info, warn, error (default info)
	-ip-salt        Salt for hashing client addresses

# Environment Variables

	PORT                 → -p
	DATABASE_URL         → -d
	DATABASE_TYPE        → -t
	BROADCAST_QUEUE_SIZE → -queue
	WRITE_TIMEOUT        → -write-timeout
	LOG_LEVEL            → -log-level
	IP_HASH_SALT         → -ip-salt

CLI flags take precedence over environment variables, which take precedence
over the .env file.

# Validation

ParseFlags returns an error if:

  - DATABASE_URL is missing and the database type is not memory
  - IP_HASH_SALT is missing
  - the database type, port, queue size, timeout or log level is malformed
*/
package cliparse
