// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package progress

import (
	"context"
	"log/slog"
	"maps"
	"math"
	"slices"
	"sync"
	"time"
)

// Stage is the processing stage a session is in.
type Stage string

const (
	StageChunking  Stage = "chunking"
	StageEmbedding Stage = "embedding"
	StageDone      Stage = "done"
)

var milestones = []int{10, 25, 50, 75, 90, 100}

// Update is a partial change to a session. Zero fields are left unchanged.
type Update struct {
	ChunksProcessed     int
	EmbeddingsGenerated int
	Stage               Stage
	Err                 error
}

// Snapshot is a copy of a session's state.
type Snapshot struct {
	SessionID           string
	TotalChunks         int
	ChunksProcessed     int
	EmbeddingsGenerated int
	Stage               Stage
	Percentage          int
	StartTime           time.Time
	LastUpdate          time.Time
	ErrorCount          int
}

// Summary describes a completed session.
type Summary struct {
	SessionID           string
	ChunksProcessed     int
	TotalTime           time.Duration
	AverageTimePerChunk time.Duration
	ErrorCount          int
	Errors              []error
	Success             bool
}

// Observer receives a snapshot after every accepted update.
type Observer func(Snapshot)

type session struct {
	id                  string
	totalChunks         int
	chunksProcessed     int
	embeddingsGenerated int
	stage               Stage
	startTime           time.Time
	lastUpdate          time.Time
	errors              []error
	loggedMilestones    map[int]bool
}

func (s *session) percentage() int {
	if s.totalChunks <= 0 {
		if s.stage == StageDone {
			return 100
		}
		return 0
	}
	pct := math.Round(float64(s.chunksProcessed) / float64(s.totalChunks) * 100)
	return int(min(100, max(0, pct)))
}

func (s *session) snapshot() Snapshot {
	return Snapshot{
		SessionID:           s.id,
		TotalChunks:         s.totalChunks,
		ChunksProcessed:     s.chunksProcessed,
		EmbeddingsGenerated: s.embeddingsGenerated,
		Stage:               s.stage,
		Percentage:          s.percentage(),
		StartTime:           s.startTime,
		LastUpdate:          s.lastUpdate,
		ErrorCount:          len(s.errors),
	}
}

// Tracker holds progress sessions. It is safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	sessions  map[string]*session
	now       func() time.Time
	observers []Observer
	logger    *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(t *Tracker) {
		t.observers = append(t.observers, o)
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// NewTracker creates an empty Tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		sessions: make(map[string]*session),
		now:      time.Now,
		logger:   slog.Default().With("component", "progress-tracker"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// StartSession begins tracking id, replacing any session with the same id.
func (t *Tracker) StartSession(id string, totalChunks int) Snapshot {
	t.mu.Lock()
	now := t.now()
	s := &session{
		id:               id,
		totalChunks:      max(totalChunks, 0),
		stage:            StageChunking,
		startTime:        now,
		lastUpdate:       now,
		loggedMilestones: make(map[int]bool),
	}
	t.sessions[id] = s
	snap := s.snapshot()
	t.mu.Unlock()

	t.logger.Debug("progress session started", "session", id, "totalChunks", totalChunks)
	t.notify(snap)
	return snap
}

// SetTotal changes a session's chunk total, for runs that learn it after
// starting.
func (t *Tracker) SetTotal(id string, totalChunks int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[id]
	if ok {
		s.totalChunks = max(totalChunks, 0)
	}
	return ok
}

// UpdateProgress applies u to session id and returns the new state, or nil
// if the session does not exist.
func (t *Tracker) UpdateProgress(id string, u Update) *Snapshot {
	t.mu.Lock()
	s, ok := t.sessions[id]
	if !ok {
		t.mu.Unlock()
		return nil
	}

	s.chunksProcessed = max(s.chunksProcessed, u.ChunksProcessed)
	s.embeddingsGenerated = max(s.embeddingsGenerated, u.EmbeddingsGenerated)
	if u.Stage != "" {
		s.stage = u.Stage
	}
	if u.Err != nil {
		s.errors = append(s.errors, u.Err)
	}
	s.lastUpdate = t.now()

	snap := s.snapshot()
	var reached []int
	for _, m := range milestones {
		if snap.Percentage >= m && !s.loggedMilestones[m] {
			s.loggedMilestones[m] = true
			reached = append(reached, m)
		}
	}
	t.mu.Unlock()

	for _, m := range reached {
		t.logger.Info("progress milestone",
			"session", id,
			"milestone", m,
			"chunksProcessed", snap.ChunksProcessed,
			"totalChunks", snap.TotalChunks,
			"elapsed", snap.LastUpdate.Sub(snap.StartTime))
	}
	if u.Err != nil {
		t.logger.Warn("progress session recorded error", "session", id, "err", u.Err)
	}
	t.notify(snap)
	return &snap
}

// CompleteSession removes session id and summarizes it.
func (t *Tracker) CompleteSession(id string) (*Summary, bool) {
	t.mu.Lock()
	s, ok := t.sessions[id]
	if !ok {
		t.mu.Unlock()
		return nil, false
	}
	delete(t.sessions, id)
	s.stage = StageDone
	total := t.now().Sub(s.startTime)
	snap := s.snapshot()
	t.mu.Unlock()

	summary := &Summary{
		SessionID:       id,
		ChunksProcessed: s.chunksProcessed,
		TotalTime:       total,
		ErrorCount:      len(s.errors),
		Errors:          slices.Clone(s.errors),
		Success:         len(s.errors) == 0,
	}
	if s.chunksProcessed > 0 {
		summary.AverageTimePerChunk = total / time.Duration(s.chunksProcessed)
	}

	t.logger.Info("progress session complete",
		"session", id,
		"chunks", summary.ChunksProcessed,
		"totalTime", summary.TotalTime,
		"avgPerChunk", summary.AverageTimePerChunk,
		"errors", summary.ErrorCount)
	t.notify(snap)
	return summary, true
}

// CancelSession discards session id without a summary.
func (t *Tracker) CancelSession(id string) bool {
	t.mu.Lock()
	s, ok := t.sessions[id]
	delete(t.sessions, id)
	t.mu.Unlock()

	if ok {
		t.logger.Info("progress session cancelled",
			"session", id, "chunksProcessed", s.chunksProcessed, "totalChunks", s.totalChunks)
	}
	return ok
}

// Session returns the state of session id, or nil.
func (t *Tracker) Session(id string) *Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[id]
	if !ok {
		return nil
	}
	snap := s.snapshot()
	return &snap
}

// ActiveSessions returns the IDs of all tracked sessions in sorted order.
func (t *Tracker) ActiveSessions() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Sorted(maps.Keys(t.sessions))
}

// EstimateTimeRemaining extrapolates linearly from the elapsed time and
// chunks processed so far. It reports false until a chunk has been processed.
func (t *Tracker) EstimateTimeRemaining(id string) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[id]
	if !ok || s.chunksProcessed == 0 {
		return 0, false
	}
	remaining := s.totalChunks - s.chunksProcessed
	if remaining <= 0 {
		return 0, true
	}
	elapsed := t.now().Sub(s.startTime)
	perChunk := elapsed / time.Duration(s.chunksProcessed)
	return perChunk * time.Duration(remaining), true
}

// CleanupOldSessions removes sessions not updated within maxAge and returns
// how many were removed.
func (t *Tracker) CleanupOldSessions(maxAge time.Duration) int {
	t.mu.Lock()
	now := t.now()
	var removed []string
	for id, s := range t.sessions {
		if now.Sub(s.lastUpdate) > maxAge {
			delete(t.sessions, id)
			removed = append(removed, id)
		}
	}
	t.mu.Unlock()

	if len(removed) > 0 {
		t.logger.Info("removed idle progress sessions", "count", len(removed), "sessions", removed)
	}
	return len(removed)
}

// StartSweeper calls CleanupOldSessions every interval until ctx is done.
func (t *Tracker) StartSweeper(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.CleanupOldSessions(maxAge)
			}
		}
	}()
}

func (t *Tracker) notify(snap Snapshot) {
	for _, o := range t.observers {
		o(snap)
	}
}
