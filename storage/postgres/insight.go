package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/storage"
)

//go:embed schema.sql
var schemaSQL string

// InsightRepository implements storage.InsightRepository on PostgreSQL.
type InsightRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ storage.InsightRepository = (*InsightRepository)(nil)

// Open connects to dsn, verifies the connection and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*InsightRepository, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: empty database url", storage.ErrInvalidQuery)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	repo := New(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// New wraps an existing connection pool. The caller owns schema setup.
func New(db *sql.DB) *InsightRepository {
	return &InsightRepository{
		db:     db,
		logger: slog.Default().With("component", "postgres-insights"),
	}
}

// EnsureSchema creates the vector extension, table and indexes if missing.
func (r *InsightRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (r *InsightRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InsertInsights writes all records in one transaction.
func (r *InsightRepository) InsertInsights(ctx context.Context, records ...*core.InsightRecord) ([]*core.InsightRecord, error) {
	if len(records) == 0 {
		return records, nil
	}
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}

	const q = `
		INSERT INTO document_insights
			(document_id, user_id, content, embedding, source_chunk_ids, confidence_score, inserted_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
		RETURNING id, inserted_at
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	defer stmt.Close()

	for _, record := range records {
		sourceIDs, err := json.Marshal(nonNil(record.SourceChunkIDs))
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}

		var embedding any
		if len(record.Embedding) > 0 {
			embedding = pgvector.NewVector(record.Embedding)
		}
		var insertedAt any
		if !record.InsertedAt.IsZero() {
			insertedAt = record.InsertedAt
		}

		var id int64
		err = stmt.QueryRowContext(ctx,
			record.DocumentID, record.UserID, record.Content, embedding, sourceIDs, record.ConfidenceScore, insertedAt,
		).Scan(&id, &record.InsertedAt)
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		record.Id = core.ID(id)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return records, nil
}

// GetInsightsByDocument returns a document's insights, highest confidence first.
func (r *InsightRepository) GetInsightsByDocument(ctx context.Context, documentID string) ([]*core.InsightRecord, error) {
	const q = `
		SELECT id, document_id, user_id, content, embedding, source_chunk_ids, confidence_score, inserted_at
		FROM document_insights
		WHERE document_id = $1
		ORDER BY confidence_score DESC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*core.InsightRecord
	for rows.Next() {
		record, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// DeleteInsightsByDocument removes a document's insights.
func (r *InsightRepository) DeleteInsightsByDocument(ctx context.Context, documentID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM document_insights WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// FindSimilar orders by cosine distance in the database and converts it back
// to similarity.
func (r *InsightRepository) FindSimilar(ctx context.Context, userID string, vector []float32, minSimilarity float32, limit int) ([]*core.InsightMatch, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	const q = `
		SELECT id, document_id, user_id, content, embedding, source_chunk_ids, confidence_score, inserted_at,
			1 - (embedding <=> $1) AS similarity
		FROM document_insights
		WHERE embedding IS NOT NULL
			AND ($2::text = '' OR user_id = $2::text)
			AND 1 - (embedding <=> $1) >= $3::float8
		ORDER BY embedding <=> $1
		LIMIT $4
	`
	rows, err := r.db.QueryContext(ctx, q, pgvector.NewVector(vector), userID, float64(minSimilarity), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*core.InsightMatch
	for rows.Next() {
		var similarity float64
		record, err := scanInsight(rows, &similarity)
		if err != nil {
			return nil, err
		}
		out = append(out, &core.InsightMatch{Record: record, Score: float32(similarity)})
	}
	return out, rows.Err()
}

func scanInsight(rows *sql.Rows, extra ...any) (*core.InsightRecord, error) {
	var (
		record    core.InsightRecord
		id        int64
		embedding sql.Null[pgvector.Vector]
		sourceIDs []byte
	)
	dest := []any{
		&id, &record.DocumentID, &record.UserID, &record.Content, &embedding,
		&sourceIDs, &record.ConfidenceScore, &record.InsertedAt,
	}
	if err := rows.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	record.Id = core.ID(id)
	if embedding.Valid {
		record.Embedding = embedding.V.Slice()
	}
	if len(sourceIDs) > 0 {
		if err := json.Unmarshal(sourceIDs, &record.SourceChunkIDs); err != nil {
			return nil, errors.Join(storage.ErrSerializationFailed, err)
		}
	}
	return &record, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
