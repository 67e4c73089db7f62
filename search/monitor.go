package search

import (
	"github.com/poiesic/docembed/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(userID, query string)
	AfterQueryEmbedding(source core.ResultSource)
	AfterSemanticSearch(ids []core.ID)
	SemanticHit(match *core.InsightMatch)
	VerbatimHit(match *core.InsightMatch)
	Finish(results []*core.InsightMatch)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)                       {}
func (n *noopMonitor) AfterQueryEmbedding(_ core.ResultSource) {}
func (n *noopMonitor) AfterSemanticSearch(_ []core.ID)         {}
func (n *noopMonitor) SemanticHit(_ *core.InsightMatch)        {}
func (n *noopMonitor) VerbatimHit(_ *core.InsightMatch)        {}
func (n *noopMonitor) Finish(_ []*core.InsightMatch)           {}
