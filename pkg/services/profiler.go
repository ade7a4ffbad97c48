package services

import (
	"context"

	"github.com/datakite/governance-engine/pkg/models"
)

// DataProfiler measures data-quality characteristics of a field from a
// sample. The real profiling algorithm belongs to a collaborator outside
// this engine; NoopProfiler stands in where no profiling backend exists.
type DataProfiler interface {
	Profile(ctx context.Context, field models.Field, sampleRows int) (models.FieldProfileMetrics, error)
}

// NoopProfiler returns zero metrics for every field.
type NoopProfiler struct{}

// NewNoopProfiler creates the stand-in profiler.
func NewNoopProfiler() *NoopProfiler {
	return &NoopProfiler{}
}

func (p *NoopProfiler) Profile(ctx context.Context, field models.Field, sampleRows int) (models.FieldProfileMetrics, error) {
	if err := ctx.Err(); err != nil {
		return models.FieldProfileMetrics{}, err
	}
	return models.FieldProfileMetrics{}, nil
}
