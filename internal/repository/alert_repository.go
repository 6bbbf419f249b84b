package repository

import (
	"context"

	"token-alert-bot/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

const createAlertTables = `
CREATE TABLE IF NOT EXISTS token_alerts (
    id          BIGSERIAL   PRIMARY KEY,
    alert_id    TEXT        NOT NULL,
    chat_id     BIGINT      NOT NULL,
    address     TEXT        NOT NULL,
    name        TEXT        NOT NULL DEFAULT '',
    variant     TEXT        NOT NULL,
    message_id  INTEGER     NOT NULL DEFAULT 0,
    delivered   BOOLEAN     NOT NULL,
    error       TEXT        NOT NULL DEFAULT '',
    sent_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_token_alerts_sent_at ON token_alerts (sent_at DESC);

CREATE TABLE IF NOT EXISTS token_alert_actions (
    id          BIGSERIAL   PRIMARY KEY,
    chat_id     BIGINT      NOT NULL,
    message_id  INTEGER     NOT NULL,
    user_id     BIGINT      NOT NULL,
    kind        TEXT        NOT NULL,
    address     TEXT        NOT NULL,
    chosen_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_token_alert_actions_chosen_at ON token_alert_actions (chosen_at DESC);
`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// AlertRepository is the Postgres-backed alert journal.
type AlertRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewAlertRepository(pool PgxPool, tracer trace.Tracer) *AlertRepository {
	return &AlertRepository{pool: pool, tracer: tracer}
}

func (r *AlertRepository) RunMigrations(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "alert-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createAlertTables)
	return err
}

func (r *AlertRepository) RecordAlert(ctx context.Context, rec domain.AlertRecord) error {
	ctx, span := r.tracer.Start(ctx, "alert-repo.record-alert")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO token_alerts (alert_id, chat_id, address, name, variant, message_id, delivered, error, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.AlertID, int64(rec.ChatID), rec.Address, rec.Name, string(rec.Variant),
		rec.MessageID, rec.Delivered, rec.Error, rec.SentAt,
	)
	return err
}

func (r *AlertRepository) RecordAction(ctx context.Context, rec domain.ActionRecord) error {
	ctx, span := r.tracer.Start(ctx, "alert-repo.record-action")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO token_alert_actions (chat_id, message_id, user_id, kind, address, chosen_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		int64(rec.ChatID), rec.MessageID, rec.UserID, string(rec.Kind), rec.Address, rec.ChosenAt,
	)
	return err
}

func (r *AlertRepository) RecentAlerts(ctx context.Context, limit int) ([]domain.AlertRecord, error) {
	ctx, span := r.tracer.Start(ctx, "alert-repo.recent-alerts")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT alert_id, chat_id, address, name, variant, message_id, delivered, error, sent_at
		 FROM token_alerts
		 ORDER BY sent_at DESC
		 LIMIT $1`,
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AlertRecord
	for rows.Next() {
		var (
			rec     domain.AlertRecord
			chatID  int64
			variant string
		)
		if err := rows.Scan(&rec.AlertID, &chatID, &rec.Address, &rec.Name, &variant,
			&rec.MessageID, &rec.Delivered, &rec.Error, &rec.SentAt); err != nil {
			return nil, err
		}
		rec.ChatID = domain.ChatID(chatID)
		rec.Variant = domain.AlertVariant(variant)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *AlertRepository) RecentActions(ctx context.Context, limit int) ([]domain.ActionRecord, error) {
	ctx, span := r.tracer.Start(ctx, "alert-repo.recent-actions")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT chat_id, message_id, user_id, kind, address, chosen_at
		 FROM token_alert_actions
		 ORDER BY chosen_at DESC
		 LIMIT $1`,
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ActionRecord
	for rows.Next() {
		var (
			rec    domain.ActionRecord
			chatID int64
			kind   string
		)
		if err := rows.Scan(&chatID, &rec.MessageID, &rec.UserID, &kind, &rec.Address, &rec.ChosenAt); err != nil {
			return nil, err
		}
		rec.ChatID = domain.ChatID(chatID)
		rec.Kind = domain.ActionKind(kind)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
