package models

import "time"

// Poll creation limits
const (
	MaxQuestionLength = 200
	MaxOptionLength   = 100
	MinOptions        = 2
	MaxOptions        = 10
)

// Push channel event types
const (
	EventJoinPoll   = "joinPoll"
	EventLeavePoll  = "leavePoll"
	EventVoteUpdate = "voteUpdate"
	EventError      = "error"
)

// Request types

type CreatePollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type VoteRequest struct {
	OptionIndex      int    `json:"option_index"`
	ParticipantToken string `json:"participant_token"`
}

// Response types

type CreatePollResponse struct {
	Success bool     `json:"success"`
	PollID  string   `json:"poll_id"`
	Poll    Snapshot `json:"poll"`
}

type GetPollResponse struct {
	Success  bool     `json:"success"`
	Poll     Snapshot `json:"poll"`
	HasVoted bool     `json:"has_voted"`
}

type VoteResponse struct {
	Success bool     `json:"success"`
	Poll    Snapshot `json:"poll"`
}

// Domain types

type Option struct {
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

type Poll struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Options   []Option  `json:"options"`
	CreatedAt time.Time `json:"created_at"`
}

// TotalVotes is derived from the option counts; it is never stored.
func (p Poll) TotalVotes() int {
	total := 0
	for _, opt := range p.Options {
		total += opt.Votes
	}
	return total
}

type VoteRecord struct {
	ID               string    `json:"id"`
	PollID           string    `json:"poll_id"`
	ParticipantToken string    `json:"-"` // Never expose in JSON
	OptionIndex      int       `json:"option_index"`
	IPHash           *string   `json:"-"` // Never expose in JSON
	CreatedAt        time.Time `json:"created_at"`
}

// Snapshot is a consistent point-in-time view of a poll's tally.
type Snapshot struct {
	PollID      string    `json:"id"`
	Question    string    `json:"question"`
	Options     []Option  `json:"options"`
	TotalVotes  int       `json:"total_votes"`
	Percentages []float64 `json:"percentages"`
	CreatedAt   time.Time `json:"created_at"`
}

// Clone returns a deep copy so callers can mutate counts freely.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Options = append([]Option(nil), s.Options...)
	out.Percentages = append([]float64(nil), s.Percentages...)
	return out
}

// Delta returns the broadcast form of the snapshot.
func (s Snapshot) Delta() Delta {
	c := s.Clone()
	return Delta{
		PollID:      c.PollID,
		Options:     c.Options,
		TotalVotes:  c.TotalVotes,
		Percentages: c.Percentages,
	}
}

// Delta is pushed to room members after every accepted vote. It carries the
// full mutable state of the poll, so a subscriber can replace what it shows.
// TotalVotes only ever grows and orders deltas of one poll.
type Delta struct {
	PollID      string    `json:"poll_id"`
	Options     []Option  `json:"options"`
	TotalVotes  int       `json:"total_votes"`
	Percentages []float64 `json:"percentages"`
}

// Push channel frames

type ClientMessage struct {
	Type   string `json:"type"`
	PollID string `json:"poll_id"`
}

type PushMessage struct {
	Type    string `json:"type"`
	PollID  string `json:"poll_id"`
	Delta   *Delta `json:"delta,omitempty"`
	Message string `json:"message,omitempty"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}
