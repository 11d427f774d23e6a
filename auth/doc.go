// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides token and identifier generation.

# Participant Tokens

Participant tokens are random 24-byte (192-bit) values:

	token, err := auth.GenerateParticipantToken()

Clients generate a token once, persist it, and send it with every vote. The
server uses it only for duplicate-vote rejection. It is not an identity: a
participant who discards the token can vote again.

# ID Generation

Random hex IDs for subscriber handles:

	id, err := auth.GenerateID(8)  // 16 hex characters

# IP Hashing

Vote records keep a salted hash of the client address for auditing:

	hash := auth.HashIP(ipAddress, salt)

Returns first 8 bytes (16 hex chars) of HMAC-SHA256. The hash is never used to
reject votes.
*/
package auth
