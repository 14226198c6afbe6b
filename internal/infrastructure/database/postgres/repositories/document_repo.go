package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bpointel/docintel/internal/domain/document"
	"github.com/bpointel/docintel/internal/domain/entity"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// DocumentRepository
// ─────────────────────────────────────────────────────────────────────────────

// DocumentRepository is the PostgreSQL implementation of document.Repository.
// Every write is a single-statement upsert, so concurrent chunk workers
// targeting the same document never coordinate above the row level, and
// repeating a batch leaves stored state unchanged apart from updated_at.
type DocumentRepository struct {
	db     querier
	logger Logger
}

// NewDocumentRepository constructs a ready-to-use DocumentRepository.
func NewDocumentRepository(db querier, logger Logger) *DocumentRepository {
	return &DocumentRepository{db: db, logger: logger}
}

// ─────────────────────────────────────────────────────────────────────────────
// UpsertDocument
// ─────────────────────────────────────────────────────────────────────────────

// UpsertDocument inserts the document or, when its content hash has been seen
// before, refreshes the mutable metadata of the existing row.  The returned id
// is the stored row's id, which may differ from doc.ID on a hash collision
// with an earlier ingest.
func (r *DocumentRepository) UpsertDocument(ctx context.Context, doc *document.Document) (uuid.UUID, error) {
	r.logger.Debug("DocumentRepository.UpsertDocument",
		logging.String("document_id", doc.ID.String()),
		logging.String("content_hash", doc.ContentHash))

	metaJSON, _ := json.Marshal(doc.Metadata)
	now := time.Now().UTC()

	var id uuid.UUID
	err := r.db.QueryRow(ctx, `
		INSERT INTO documents (
			id, url, content_hash, language, content_type,
			fetched_at, metadata, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (content_hash) DO UPDATE SET
			url          = EXCLUDED.url,
			language     = EXCLUDED.language,
			content_type = EXCLUDED.content_type,
			fetched_at   = EXCLUDED.fetched_at,
			metadata     = EXCLUDED.metadata,
			updated_at   = EXCLUDED.updated_at
		RETURNING id`,
		doc.ID, doc.URL, doc.ContentHash, doc.Language, doc.ContentType,
		doc.FetchedAt, metaJSON, now, now,
	).Scan(&id)
	if err != nil {
		r.logger.Error("DocumentRepository.UpsertDocument", logging.Err(err))
		return uuid.Nil, errors.Wrap(err, errors.ErrCodeUpsertFailed, "failed to upsert document")
	}

	doc.ID = id
	return id, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// UpsertChunk
// ─────────────────────────────────────────────────────────────────────────────

// UpsertChunk inserts the chunk, keyed on (document_id, seq).  On conflict the
// stored row's id is returned so downstream entity rows keep a stable chunk
// reference across re-runs.
func (r *DocumentRepository) UpsertChunk(ctx context.Context, chunk *document.Chunk) (uuid.UUID, error) {
	r.logger.Debug("DocumentRepository.UpsertChunk",
		logging.String("document_id", chunk.DocumentID.String()),
		logging.Int("seq", chunk.Seq))

	metaJSON, _ := json.Marshal(chunk.Metadata)

	var id uuid.UUID
	err := r.db.QueryRow(ctx, `
		INSERT INTO chunks (id, document_id, seq, text, text_hash, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (document_id, seq) DO UPDATE SET
			text      = EXCLUDED.text,
			text_hash = EXCLUDED.text_hash,
			metadata  = EXCLUDED.metadata
		RETURNING id`,
		chunk.ID, chunk.DocumentID, chunk.Seq, chunk.Text, chunk.TextHash,
		metaJSON, chunk.CreatedAt,
	).Scan(&id)
	if err != nil {
		r.logger.Error("DocumentRepository.UpsertChunk", logging.Err(err))
		return uuid.Nil, errors.Wrap(err, errors.ErrCodeUpsertFailed, "failed to upsert chunk")
	}

	chunk.ID = id
	return id, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// UpsertEntity
// ─────────────────────────────────────────────────────────────────────────────

// UpsertEntity inserts the entity, keyed on (document_id, type, span_hash).
// On conflict, confidence keeps the greater of old and new while the other
// mutable fields take the latest write's values.  e.ID is rewritten to the
// stored row's id so relationship references stay valid across re-runs.
func (r *DocumentRepository) UpsertEntity(ctx context.Context, e *entity.Entity) error {
	r.logger.Debug("DocumentRepository.UpsertEntity",
		logging.String("document_id", e.DocumentID.String()),
		logging.String("type", string(e.Type)),
		logging.String("span_hash", e.SpanHash))

	normJSON, _ := json.Marshal(e.Normalized)

	// Callers outside the pipeline (human corrections) leave timestamps zero.
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}

	var id uuid.UUID
	err := r.db.QueryRow(ctx, `
		INSERT INTO entities (
			id, document_id, chunk_id, chunk_seq, span_start, span_end,
			span_hash, type, surface, normalized, confidence, sources,
			method, heuristics_version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (document_id, type, span_hash) DO UPDATE SET
			chunk_id           = EXCLUDED.chunk_id,
			surface            = EXCLUDED.surface,
			normalized         = EXCLUDED.normalized,
			confidence         = GREATEST(entities.confidence, EXCLUDED.confidence),
			sources            = EXCLUDED.sources,
			method             = EXCLUDED.method,
			heuristics_version = EXCLUDED.heuristics_version,
			updated_at         = EXCLUDED.updated_at
		RETURNING id`,
		e.ID, e.DocumentID, e.ChunkID, e.Span.ChunkSeq, e.Span.Start, e.Span.End,
		e.SpanHash, e.Type, e.Surface, normJSON, e.Confidence, e.SourceLabel(),
		e.Method, e.HeuristicsVersion, e.CreatedAt, e.UpdatedAt,
	).Scan(&id)
	if err != nil {
		r.logger.Error("DocumentRepository.UpsertEntity", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeUpsertFailed, "failed to upsert entity")
	}

	e.ID = id
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// UpsertRelationship
// ─────────────────────────────────────────────────────────────────────────────

// UpsertRelationship inserts the relationship, keyed on (document_id, head,
// tail, type, evidence pattern).  On conflict confidence keeps the greater
// value.
func (r *DocumentRepository) UpsertRelationship(ctx context.Context, rel *entity.Relationship) error {
	r.logger.Debug("DocumentRepository.UpsertRelationship",
		logging.String("document_id", rel.DocumentID.String()),
		logging.String("type", string(rel.Type)))

	now := time.Now().UTC()

	_, err := r.db.Exec(ctx, `
		INSERT INTO relationships (
			id, document_id, head_entity_id, tail_entity_id, type, confidence,
			evidence_pattern, evidence_distance, evidence_matched, source,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (document_id, head_entity_id, tail_entity_id, type, evidence_pattern)
		DO UPDATE SET
			confidence        = GREATEST(relationships.confidence, EXCLUDED.confidence),
			evidence_distance = EXCLUDED.evidence_distance,
			evidence_matched  = EXCLUDED.evidence_matched,
			source            = EXCLUDED.source,
			updated_at        = EXCLUDED.updated_at`,
		rel.ID, rel.DocumentID, rel.HeadEntityID, rel.TailEntityID, rel.Type,
		rel.Confidence, rel.Evidence.Pattern, rel.Evidence.Distance,
		rel.Evidence.Matched, rel.Source, now, now,
	)
	if err != nil {
		r.logger.Error("DocumentRepository.UpsertRelationship", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeUpsertFailed, "failed to upsert relationship")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Reader
// ─────────────────────────────────────────────────────────────────────────────

func (r *DocumentRepository) GetDocument(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	r.logger.Debug("DocumentRepository.GetDocument", logging.String("id", id.String()))

	return r.scanDocument(r.db.QueryRow(ctx, `
		SELECT id, url, content_hash, language, content_type,
		       fetched_at, metadata, created_at, updated_at
		FROM documents WHERE id = $1`, id))
}

func (r *DocumentRepository) GetDocumentByHash(ctx context.Context, contentHash string) (*document.Document, error) {
	r.logger.Debug("DocumentRepository.GetDocumentByHash",
		logging.String("content_hash", contentHash))

	return r.scanDocument(r.db.QueryRow(ctx, `
		SELECT id, url, content_hash, language, content_type,
		       fetched_at, metadata, created_at, updated_at
		FROM documents WHERE content_hash = $1`, contentHash))
}

// ListEntities returns the document's entities in chunk and span order, so
// paging through the review API is stable across requests.
func (r *DocumentRepository) ListEntities(ctx context.Context, docID uuid.UUID, limit, offset int) ([]*entity.Entity, error) {
	r.logger.Debug("DocumentRepository.ListEntities",
		logging.String("document_id", docID.String()),
		logging.Int("limit", limit), logging.Int("offset", offset))

	limit, offset = normalizePage(limit, offset)

	rows, err := r.db.Query(ctx, `
		SELECT id, document_id, chunk_id, chunk_seq, span_start, span_end,
		       span_hash, type, surface, normalized, confidence, sources,
		       method, heuristics_version, created_at, updated_at
		FROM entities
		WHERE document_id = $1
		ORDER BY chunk_seq, span_start, span_end, type
		LIMIT $2 OFFSET $3`, docID, limit, offset)
	if err != nil {
		r.logger.Error("DocumentRepository.ListEntities", logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query entities")
	}
	defer rows.Close()

	var out []*entity.Entity
	for rows.Next() {
		var (
			e        entity.Entity
			normJSON []byte
			sources  string
		)
		if err := rows.Scan(
			&e.ID, &e.DocumentID, &e.ChunkID, &e.Span.ChunkSeq, &e.Span.Start, &e.Span.End,
			&e.SpanHash, &e.Type, &e.Surface, &normJSON, &e.Confidence, &sources,
			&e.Method, &e.HeuristicsVersion, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			r.logger.Error("DocumentRepository.ListEntities: scan", logging.Err(err))
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan entity row")
		}
		if len(normJSON) > 0 {
			_ = json.Unmarshal(normJSON, &e.Normalized)
		}
		e.Sources = entity.ParseSources(sources)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "entity row iteration error")
	}
	return out, nil
}

// ListRelationships returns the document's relationships in endpoint order.
func (r *DocumentRepository) ListRelationships(ctx context.Context, docID uuid.UUID, limit, offset int) ([]*entity.Relationship, error) {
	r.logger.Debug("DocumentRepository.ListRelationships",
		logging.String("document_id", docID.String()),
		logging.Int("limit", limit), logging.Int("offset", offset))

	limit, offset = normalizePage(limit, offset)

	rows, err := r.db.Query(ctx, `
		SELECT id, document_id, head_entity_id, tail_entity_id, type, confidence,
		       evidence_pattern, evidence_distance, evidence_matched, source,
		       created_at, updated_at
		FROM relationships
		WHERE document_id = $1
		ORDER BY head_entity_id, tail_entity_id, type, evidence_pattern
		LIMIT $2 OFFSET $3`, docID, limit, offset)
	if err != nil {
		r.logger.Error("DocumentRepository.ListRelationships", logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query relationships")
	}
	defer rows.Close()

	var out []*entity.Relationship
	for rows.Next() {
		var rel entity.Relationship
		if err := rows.Scan(
			&rel.ID, &rel.DocumentID, &rel.HeadEntityID, &rel.TailEntityID,
			&rel.Type, &rel.Confidence, &rel.Evidence.Pattern,
			&rel.Evidence.Distance, &rel.Evidence.Matched, &rel.Source,
			&rel.CreatedAt, &rel.UpdatedAt,
		); err != nil {
			r.logger.Error("DocumentRepository.ListRelationships: scan", logging.Err(err))
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan relationship row")
		}
		out = append(out, &rel)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "relationship row iteration error")
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *DocumentRepository) scanDocument(row pgx.Row) (*document.Document, error) {
	var (
		d        document.Document
		metaJSON []byte
	)
	err := row.Scan(
		&d.ID, &d.URL, &d.ContentHash, &d.Language, &d.ContentType,
		&d.FetchedAt, &metaJSON, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.New(errors.ErrCodeDocumentNotFound, "document not found")
		}
		r.logger.Error("scanDocument", logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan document")
	}
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &d.Metadata)
	}
	return &d, nil
}

const defaultPageSize = 50

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
