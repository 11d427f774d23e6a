// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/tally"
)

type PollHandler struct {
	engine *tally.Engine
	cfg    cliparse.Config
}

func NewPollHandler(engine *tally.Engine, cfg cliparse.Config) *PollHandler {
	return &PollHandler{engine: engine, cfg: cfg}
}

// CreatePoll handles POST /api/polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	snap, err := h.engine.CreatePoll(r.Context(), req.Question, req.Options)
	if err != nil {
		writeError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CreatePollResponse{
		Success: true,
		PollID:  snap.PollID,
		Poll:    snap,
	})
}

// GetPoll handles GET /api/polls/{id}
// The participant token is optional and only used to report has_voted.
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollID := pathID(r)
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	snap, err := h.engine.Snapshot(r.Context(), pollID)
	if err != nil {
		writeError(w, err)
		return
	}

	hasVoted, err := h.engine.HasVoted(r.Context(), pollID, r.Header.Get(middleware.ParticipantTokenHeader))
	if err != nil {
		writeError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.GetPollResponse{
		Success:  true,
		Poll:     snap,
		HasVoted: hasVoted,
	})
}

// Vote handles POST /api/polls/{id}/vote
func (h *PollHandler) Vote(w http.ResponseWriter, r *http.Request) {
	pollID := pathID(r)
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	ipHash := auth.HashIP(middleware.GetClientIP(r), h.cfg.IPHashSalt)
	snap, err := h.engine.Vote(r.Context(), models.VoteRecord{
		PollID:           pollID,
		ParticipantToken: req.ParticipantToken,
		OptionIndex:      req.OptionIndex,
		IPHash:           &ipHash,
	})
	if err != nil {
		if models.IsTerminal(err) {
			slog.Debug("vote rejected", "poll_id", pollID, "reason", models.ErrorCode(err))
		}
		writeError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VoteResponse{
		Success: true,
		Poll:    snap,
	})
}

// pathID reads the {id} route parameter from chi, falling back to the
// standard library path value.
func pathID(r *http.Request) string {
	if id := chi.URLParam(r, "id"); id != "" {
		return id
	}
	return r.PathValue("id")
}

// writeError maps domain errors to HTTP statuses and wire codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrTransientUnavailable):
		// The cause is logged where it happened and not sent to the client.
		middleware.CodedErrorResponse(w, http.StatusServiceUnavailable,
			models.CodeTransientUnavailable, models.ErrTransientUnavailable.Error())
	case errors.Is(err, models.ErrNotFound):
		middleware.CodedErrorResponse(w, http.StatusNotFound, models.CodeNotFound, err.Error())
	case errors.Is(err, models.ErrDuplicateVote):
		middleware.CodedErrorResponse(w, http.StatusConflict, models.CodeDuplicateVote, err.Error())
	case errors.Is(err, models.ErrInvalidOption):
		middleware.CodedErrorResponse(w, http.StatusBadRequest, models.CodeInvalidOption, err.Error())
	case errors.Is(err, models.ErrInvalidPoll):
		middleware.CodedErrorResponse(w, http.StatusBadRequest, models.CodeInvalidPoll, err.Error())
	case errors.Is(err, models.ErrMissingToken):
		middleware.CodedErrorResponse(w, http.StatusBadRequest, models.CodeMissingToken, err.Error())
	default:
		slog.Error("unhandled error", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Internal error")
	}
}
