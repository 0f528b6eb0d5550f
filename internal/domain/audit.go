package domain

import (
	"context"
	"time"
)

// Outcome of an audited mutation.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// AuditEvent describes one mutating call: who, what, which entity, and the
// change set, so a cross-user write can be reconstructed after the fact.
type AuditEvent struct {
	UserID    string
	Operation string
	Entity    string
	EntityID  string
	Outcome   string
	Changes   map[string]any
	Err       error
	At        time.Time
}

// Auditor receives audit events. Implementations must not block the caller
// for long; routing and persistence are their concern.
type Auditor interface {
	Record(ctx context.Context, ev AuditEvent)
}

// NopAuditor discards events.
type NopAuditor struct{}

func (NopAuditor) Record(context.Context, AuditEvent) {}
