package docstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// PostgresStore implements Store on PostgreSQL. Documents live in a single
// jsonb table keyed by (user_id, collection, doc_id). When a NATS
// connection is supplied, every write is published to docs.<uid>.<collection>
// so that watchers on other instances and the integration forwarder see it.
type PostgresStore struct {
	db    *sql.DB
	nc    *nats.Conn
	notes *notifier
	sub   *nats.Subscription
}

// NewPostgresStore creates a new PostgreSQL store. nc may be nil for
// standalone deployments; watches then only observe local writes.
func NewPostgresStore(dsn string, nc *nats.Conn) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{
		db:    db,
		nc:    nc,
		notes: newNotifier(),
	}

	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	if nc != nil {
		sub, err := nc.Subscribe("docs.>", s.handleChangeMessage)
		if err != nil {
			return nil, fmt.Errorf("subscribe document changes: %w", err)
		}
		s.sub = sub
	}

	return s, nil
}

// Close closes the database connection and the NATS bridge
func (s *PostgresStore) Close() error {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	return s.db.Close()
}

// ensureSchema creates the tables on first run
func (s *PostgresStore) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			user_id    TEXT NOT NULL,
			collection TEXT NOT NULL,
			doc_id     TEXT NOT NULL,
			data       JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, collection, doc_id)
		)`,
		`CREATE INDEX IF NOT EXISTS documents_user_collection_idx
			ON documents (user_id, collection)`,
		`CREATE TABLE IF NOT EXISTS users (
			id               UUID PRIMARY KEY,
			created_at       TIMESTAMPTZ NOT NULL,
			updated_at       TIMESTAMPTZ NOT NULL,
			email            TEXT NOT NULL UNIQUE,
			display_name     TEXT NOT NULL DEFAULT '',
			password_hash    TEXT NOT NULL,
			email_verified   BOOLEAN NOT NULL DEFAULT false,
			is_active        BOOLEAN NOT NULL DEFAULT true,
			token_generation INTEGER NOT NULL DEFAULT 0,
			last_login_at    TIMESTAMPTZ,
			integrations     JSONB
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// publish fans a change out to local watchers and, when connected, NATS.
func (s *PostgresStore) publish(ev ChangeEvent) {
	s.notes.notify(notifyKey(ev.UserID, ev.Collection))

	if s.nc == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := s.nc.Publish(ev.Subject(), payload); err != nil {
		log.Error().Err(err).Str("subject", ev.Subject()).Msg("Failed to publish document change")
	}
}

// handleChangeMessage bridges NATS change events into the local notifier
// so watches refresh on writes made by other instances.
func (s *PostgresStore) handleChangeMessage(msg *nats.Msg) {
	// docs.<uid>.<collection>
	parts := strings.SplitN(msg.Subject, ".", 3)
	if len(parts) != 3 {
		return
	}
	s.notes.notify(notifyKey(parts[1], parts[2]))
}
