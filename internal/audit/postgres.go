package audit

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	p := &Postgres{db: db}
	if err := p.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS operator_audit_logs (
			id TEXT PRIMARY KEY,
			actor_email TEXT NOT NULL,
			actor_name TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL,
			entity_kind TEXT NOT NULL,
			entity_id TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = newEntryID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO operator_audit_logs (
			id, actor_email, actor_name, action, entity_kind, entity_id, detail, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorEmail, entry.ActorName, entry.Action, entry.EntityKind, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (p *Postgres) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, actor_email, actor_name, action, entity_kind, entity_id, detail, created_at
		FROM operator_audit_logs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.ID, &entry.ActorEmail, &entry.ActorName, &entry.Action, &entry.EntityKind, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
