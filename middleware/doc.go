// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	r.Get("/api/polls/{id}", middleware.WithLogging(handler))

Logs completion with method, path, status and duration_ms.

# CORS Middleware

Enable cross-origin requests for browser clients:

	r.Use(middleware.CORS)

Allows GET, POST and OPTIONS with the Content-Type and X-Participant-Token
headers.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")
	middleware.CodedErrorResponse(w, http.StatusConflict, models.CodeDuplicateVote, "message")

Parse JSON request bodies (unknown fields are rejected):

	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

Get the original client IP (handles X-Forwarded-For, X-Real-IP):

	ip := middleware.GetClientIP(r)

Used for the hashed IP stored with each vote record.
*/
package middleware
