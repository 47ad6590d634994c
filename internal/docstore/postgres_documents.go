package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ========== Document Methods ==========

// fieldNamePattern limits the identifiers accepted into query SQL.
var fieldNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Get gets a document by id
func (s *PostgresStore) Get(ctx context.Context, uid, collection, id string) (*Document, error) {
	query := `
		SELECT data FROM documents
		WHERE user_id = $1 AND collection = $2 AND doc_id = $3`

	var raw []byte
	err := s.db.QueryRowContext(ctx, query, uid, collection, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode document %s/%s: %w", collection, id, err)
	}

	return &Document{ID: id, Data: data}, nil
}

// Set writes a document with merge semantics: on conflict the new fields
// are overlaid onto the stored jsonb, so unspecified fields persist.
func (s *PostgresStore) Set(ctx context.Context, uid, collection, id string, data map[string]interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	query := `
		INSERT INTO documents (user_id, collection, doc_id, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, collection, doc_id)
		DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = now()`

	if _, err := s.db.ExecContext(ctx, query, uid, collection, id, raw); err != nil {
		return err
	}

	s.publish(ChangeEvent{UserID: uid, Collection: collection, DocID: id, Action: "set"})
	return nil
}

// Add stores a new document under a generated id
func (s *PostgresStore) Add(ctx context.Context, uid, collection string, data map[string]interface{}) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	id := uuid.New().String()
	query := `
		INSERT INTO documents (user_id, collection, doc_id, data)
		VALUES ($1, $2, $3, $4)`

	if _, err := s.db.ExecContext(ctx, query, uid, collection, id, raw); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return "", ErrDuplicateKey
		}
		return "", err
	}

	s.publish(ChangeEvent{UserID: uid, Collection: collection, DocID: id, Action: "add"})
	return id, nil
}

// Update merges data into an existing document
func (s *PostgresStore) Update(ctx context.Context, uid, collection, id string, data map[string]interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	query := `
		UPDATE documents SET data = data || $4, updated_at = now()
		WHERE user_id = $1 AND collection = $2 AND doc_id = $3`

	result, err := s.db.ExecContext(ctx, query, uid, collection, id, raw)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.publish(ChangeEvent{UserID: uid, Collection: collection, DocID: id, Action: "update"})
	return nil
}

// Delete deletes a document
func (s *PostgresStore) Delete(ctx context.Context, uid, collection, id string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE user_id = $1 AND collection = $2 AND doc_id = $3",
		uid, collection, id,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.publish(ChangeEvent{UserID: uid, Collection: collection, DocID: id, Action: "delete"})
	return nil
}

// Query runs an ordered query over one collection
func (s *PostgresStore) Query(ctx context.Context, uid, collection string, q Query) ([]Document, error) {
	var sb strings.Builder
	sb.WriteString("SELECT doc_id, data FROM documents WHERE user_id = $1 AND collection = $2")

	args := []interface{}{uid, collection}

	if q.FilterField != "" {
		if !fieldNamePattern.MatchString(q.FilterField) {
			return nil, ErrInvalidData
		}
		args = append(args, q.FilterValue)
		fmt.Fprintf(&sb, " AND data->>'%s' = $%d", q.FilterField, len(args))
	}

	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "id"
	}
	orderExpr := "doc_id"
	if orderBy != "id" {
		if !fieldNamePattern.MatchString(orderBy) {
			return nil, ErrInvalidData
		}
		orderExpr = fmt.Sprintf("data->>'%s'", orderBy)
	}
	direction := "ASC"
	if q.Desc {
		direction = "DESC"
	}
	fmt.Fprintf(&sb, " ORDER BY %s %s, doc_id ASC", orderExpr, direction)

	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}

		var data map[string]interface{}
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("decode document %s/%s: %w", collection, id, err)
		}
		docs = append(docs, Document{ID: id, Data: data})
	}

	return docs, rows.Err()
}

// Watch pushes the current result set now and after every change
func (s *PostgresStore) Watch(ctx context.Context, uid, collection string, q Query, push func([]Document)) (func(), error) {
	run := func() ([]Document, error) {
		return s.Query(context.Background(), uid, collection, q)
	}
	return startWatch(s.notes, notifyKey(uid, collection), run, push)
}
