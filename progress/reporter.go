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
	"fmt"
	"io"
	"sync"
)

// Reporter writes a single updating progress line per session to a terminal.
// Register its Observe method with WithObserver.
type Reporter struct {
	writer      io.Writer
	minInterval int
	mu          sync.Mutex
	last        map[string]int
}

// NewReporter creates a Reporter that redraws after every minInterval
// processed chunks and when a session finishes.
func NewReporter(writer io.Writer, minInterval int) *Reporter {
	return &Reporter{
		writer:      writer,
		minInterval: max(minInterval, 1),
		last:        make(map[string]int),
	}
}

// Observe redraws the progress line for snap's session.
func (r *Reporter) Observe(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	done := snap.Stage == StageDone
	last, seen := r.last[snap.SessionID]
	if seen && !done && snap.ChunksProcessed-last < r.minInterval {
		return
	}
	r.last[snap.SessionID] = snap.ChunksProcessed

	elapsed := snap.LastUpdate.Sub(snap.StartTime)
	var rate float64
	if elapsed > 0 {
		rate = float64(snap.ChunksProcessed) / elapsed.Seconds()
	}

	fmt.Fprintf(r.writer, "\r%s: %d/%d chunks (%d%%) - %.1f chunks/s",
		snap.Stage, snap.ChunksProcessed, snap.TotalChunks, snap.Percentage, rate)
	if done {
		fmt.Fprintln(r.writer)
		delete(r.last, snap.SessionID)
	}
}
