package models

import "time"

// AuditAction is the kind of evidence decision being recorded.
const (
	AuditActionAccept   = "accept"
	AuditActionOverride = "override"
	AuditActionPending  = "pending"
	AuditActionConfirm  = "confirm"
)

// AuditLogEntry is one evidence decision in the append-only audit trail.
type AuditLogEntry struct {
	Field     string    `json:"field"`
	Action    string    `json:"action"` // 'accept', 'override', 'pending', 'confirm'
	Source    string    `json:"source"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
