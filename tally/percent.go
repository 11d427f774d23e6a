// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"math"

	"github.com/danielhkuo/livepoll/models"
)

// Percentages derives each option's share of the total, rounded to one
// decimal. Every share is 0 when nobody has voted.
func Percentages(options []models.Option, total int) []float64 {
	out := make([]float64, len(options))
	if total <= 0 {
		return out
	}
	for i, opt := range options {
		out[i] = math.Round(float64(opt.Votes)/float64(total)*1000) / 10
	}
	return out
}

// NewSnapshot builds a snapshot from a poll, deriving the total and the
// percentages from the option counts.
func NewSnapshot(poll models.Poll) models.Snapshot {
	options := append([]models.Option(nil), poll.Options...)
	total := poll.TotalVotes()
	return models.Snapshot{
		PollID:      poll.ID,
		Question:    poll.Question,
		Options:     options,
		TotalVotes:  total,
		Percentages: Percentages(options, total),
		CreatedAt:   poll.CreatedAt,
	}
}

// Increment returns a copy of snap with one more vote for option. It is what
// a client shows before the server confirms its vote.
func Increment(snap models.Snapshot, option int) models.Snapshot {
	out := snap.Clone()
	if option < 0 || option >= len(out.Options) {
		return out
	}
	out.Options[option].Votes++
	out.TotalVotes++
	out.Percentages = Percentages(out.Options, out.TotalVotes)
	return out
}
