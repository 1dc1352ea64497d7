package sqlite

import (
	"context"
	"database/sql"

	"github.com/opsdesk/opsdesk/internal/auth/domain"
)

type auditEventsRepo struct {
	db *sql.DB
}

func (r *auditEventsRepo) Record(ctx context.Context, event domain.AuditEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, event, actor_id, email, reason, source_ip, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Event,
		nullIfEmpty(event.ActorID),
		nullIfEmpty(event.Email),
		nullIfEmpty(event.Reason),
		nullIfEmpty(event.SourceIP),
		event.At.UTC(),
	)
	return err
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
