package logger

import (
	"context"

	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/rs/zerolog"
)

// AuditLog writes one structured record per mutating call. Successful
// mutations are logged at info, rejected and failed ones at warn.
type AuditLog struct {
	log zerolog.Logger
}

// NewAuditLog creates an audit log on top of log.
func NewAuditLog(log zerolog.Logger) *AuditLog {
	return &AuditLog{log: log.With().Str("component", "audit").Logger()}
}

// Record implements domain.Auditor.
func (a *AuditLog) Record(ctx context.Context, ev domain.AuditEvent) {
	e := a.log.Info()
	if ev.Outcome != domain.OutcomeSuccess {
		e = a.log.Warn()
	}

	e = e.
		Str("user_id", ev.UserID).
		Str("operation", ev.Operation).
		Str("entity", ev.Entity).
		Str("entity_id", ev.EntityID).
		Str("outcome", ev.Outcome).
		Time("at", ev.At)
	if len(ev.Changes) > 0 {
		e = e.Interface("changes", ev.Changes)
	}
	if ev.Err != nil {
		e = e.Err(ev.Err)
	}
	e.Msg("mutation")
}

var _ domain.Auditor = (*AuditLog)(nil)
