// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// votedKeyPrefix namespaces the per-poll voted flags.
const votedKeyPrefix = "poll_voted_"

// LocalState is what a participant keeps between sessions: their token and
// the polls they have voted on. It is a hint for the UI, never the source of
// truth for who voted.
type LocalState interface {
	Token() (string, bool)
	SetToken(token string) error
	Voted(pollID string) bool
	MarkVoted(pollID string) error
}

// MemoryState keeps local state for the lifetime of the process.
type MemoryState struct {
	mu    sync.Mutex
	token string
	flags map[string]bool
}

func NewMemoryState() *MemoryState {
	return &MemoryState{flags: make(map[string]bool)}
}

func (s *MemoryState) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

func (s *MemoryState) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryState) Voted(pollID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags[votedKeyPrefix+pollID]
}

func (s *MemoryState) MarkVoted(pollID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[votedKeyPrefix+pollID] = true
	return nil
}

type fileData struct {
	Token string          `json:"participant_token,omitempty"`
	Flags map[string]bool `json:"flags"`
}

// FileState persists local state as a small JSON file.
type FileState struct {
	path string

	mu   sync.Mutex
	data fileData
}

// NewFileState loads path if it exists. The file is created on first write.
func NewFileState(path string) (*FileState, error) {
	s := &FileState{path: path, data: fileData{Flags: make(map[string]bool)}}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}
	if s.data.Flags == nil {
		s.data.Flags = make(map[string]bool)
	}
	return s, nil
}

func (s *FileState) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Token, s.data.Token != ""
}

func (s *FileState) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Token = token
	return s.save()
}

func (s *FileState) Voted(pollID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Flags[votedKeyPrefix+pollID]
}

func (s *FileState) MarkVoted(pollID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := votedKeyPrefix + pollID
	if s.data.Flags[key] {
		return nil
	}
	s.data.Flags[key] = true
	return s.save()
}

// save writes through a temp file so a crash never leaves a torn file.
// Caller holds s.mu.
func (s *FileState) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".livepoll-state-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
