package services

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/datakite/governance-engine/pkg/models"
)

// AuditTrail is the append-only record of evidence decisions. Entries are
// never removed or rewritten.
type AuditTrail struct {
	mu      sync.Mutex
	entries []models.AuditLogEntry
	logger  *zap.Logger
}

// NewAuditTrail creates an empty audit trail.
func NewAuditTrail(logger *zap.Logger) *AuditTrail {
	return &AuditTrail{logger: logger.Named("audit")}
}

// Record appends one evidence decision.
func (a *AuditTrail) Record(field, action, source, reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries = append(a.entries, models.AuditLogEntry{
		Field:     field,
		Action:    action,
		Source:    source,
		Reason:    reason,
		Timestamp: time.Now(),
	})
	a.logger.Info("audit entry recorded",
		zap.String("field", field),
		zap.String("action", action),
		zap.String("source", source))
}

// Entries returns a copy of all recorded entries in append order.
func (a *AuditTrail) Entries() []models.AuditLogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.AuditLogEntry(nil), a.entries...)
}
