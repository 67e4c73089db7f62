package ingestion

import (
	"context"
	"time"

	"github.com/poiesic/docembed/chunking"
)

// HealthStatus is the coarse result of a health check.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

const healthSampleText = "Health check document. It exercises chunking and embedding end to end."

// HealthReport describes the outcome of Health.
type HealthReport struct {
	Status    HealthStatus
	LastCheck time.Time
	Latency   time.Duration
	Details   map[string]string
}

// Health chunks a fixed sample document and embeds it with a single provider
// attempt. The pipeline is degraded when the round trip exceeds the health
// threshold and unhealthy when either step fails.
func (p *Pipeline) Health(ctx context.Context) HealthReport {
	report := HealthReport{
		Status:    StatusHealthy,
		LastCheck: time.Now().UTC(),
		Details:   map[string]string{},
	}

	if _, err := chunking.ChunkText(healthSampleText, chunking.DefaultOptions()); err != nil {
		report.Status = StatusUnhealthy
		report.Details["chunking"] = err.Error()
		return report
	}
	report.Details["chunking"] = "ok"

	latency, err := p.embeddings.Ping(ctx)
	report.Latency = latency
	report.Details["latency"] = latency.String()
	report.Details["model"] = p.embeddings.Model()
	switch {
	case err != nil:
		report.Status = StatusUnhealthy
		report.Details["embedding"] = err.Error()
	case latency > p.healthThreshold:
		report.Status = StatusDegraded
		report.Details["embedding"] = "slow"
	default:
		report.Details["embedding"] = "ok"
	}

	if report.Status != StatusHealthy {
		p.logger.Warn("pipeline health check", "status", report.Status, "latency", latency, "details", report.Details)
	}
	return report
}
