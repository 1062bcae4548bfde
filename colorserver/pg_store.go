// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package colorserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGDocumentStore stores documents in PostgreSQL
type PGDocumentStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPGDocumentStore creates the store and initializes its schema.
// The caller owns the pool lifecycle.
func NewPGDocumentStore(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*PGDocumentStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PGDocumentStore{pool: pool, logger: logger}
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		return s.initializeSchemaInTx(ctx, tx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document schema: %w", err)
	}
	logger.Debug("Document schema initialized successfully")
	return s, nil
}

// initializeSchemaInTx creates the document tables within an existing transaction
func (s *PGDocumentStore) initializeSchemaInTx(ctx context.Context, tx pgx.Tx) error {
	migrations := []string{
		/*language=postgresql*/ `CREATE SCHEMA IF NOT EXISTS colorsync`,
		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS colorsync.documents (
			user_id     TEXT        NOT NULL,
			collection  TEXT        NOT NULL,
			doc_id      TEXT        NOT NULL,
			data        JSONB       NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, collection, doc_id)
		)`,
		/*language=postgresql*/ `CREATE INDEX IF NOT EXISTS documents_updated_idx
			ON colorsync.documents (user_id, collection, updated_at)`,
	}
	for _, m := range migrations {
		if _, err := tx.Exec(ctx, m); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}
	return nil
}

func (s *PGDocumentStore) BatchSet(ctx context.Context, userID, collection string, docs []Document) (time.Time, error) {
	var committedAt time.Time
	err := defaultTxRetry.do(ctx, s.logger, "batch_set", func(ctx context.Context) error {
		var err error
		committedAt, err = s.batchSetOnce(ctx, userID, collection, docs)
		return err
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to commit batch of %d into %s: %w", len(docs), collection, err)
	}
	return committedAt, nil
}

func (s *PGDocumentStore) batchSetOnce(ctx context.Context, userID, collection string, docs []Document) (time.Time, error) {
	var committedAt time.Time
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT now()`).Scan(&committedAt); err != nil {
			return fmt.Errorf("failed to read commit time: %w", err)
		}
		batch := &pgx.Batch{}
		for _, d := range docs {
			batch.Queue(`
				INSERT INTO colorsync.documents (user_id, collection, doc_id, data, updated_at)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (user_id, collection, doc_id)
				DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
				userID, collection, d.ID, []byte(d.Data), committedAt)
		}
		br := tx.SendBatch(ctx, batch)
		for i := range docs {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("failed to upsert document %s: %w", docs[i].ID, err)
			}
		}
		return br.Close()
	})
	if err != nil {
		return time.Time{}, err
	}
	return committedAt.UTC(), nil
}

func (s *PGDocumentStore) Delete(ctx context.Context, userID, collection, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM colorsync.documents WHERE user_id = $1 AND collection = $2 AND doc_id = $3`,
		userID, collection, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PGDocumentStore) List(ctx context.Context, userID, collection string) ([]Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT doc_id, data, updated_at FROM colorsync.documents
		WHERE user_id = $1 AND collection = $2
		ORDER BY doc_id`, userID, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var d Document
		var data []byte
		if err := rows.Scan(&d.ID, &data, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		d.Data = json.RawMessage(data)
		d.UpdatedAt = d.UpdatedAt.UTC()
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}
	return docs, nil
}

func (s *PGDocumentStore) Backend() string { return BackendPostgres }
