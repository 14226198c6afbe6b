package document

import (
	"context"

	"github.com/google/uuid"

	"github.com/bpointel/docintel/internal/domain/entity"
)

// Gateway is the idempotent persistence contract the pipeline writes through.
// Each upsert is keyed by a content-derived identity and resolves conflicts
// with confidence = GREATEST(existing, new); repeating a write with identical
// input leaves stored state unchanged apart from updated_at.  All operations
// must be row-atomic so concurrent chunk writers targeting the same document
// never need a pipeline-level lock.
//
// Human corrections from the review tool travel the same methods; the write
// path is uniform regardless of writer identity.
type Gateway interface {
	// UpsertDocument returns the existing document id when the content hash
	// has been seen before (refreshing metadata only), otherwise creates the
	// record.
	UpsertDocument(ctx context.Context, doc *Document) (uuid.UUID, error)

	// UpsertChunk is unique on (document_id, seq).
	UpsertChunk(ctx context.Context, chunk *Chunk) (uuid.UUID, error)

	// UpsertEntity is unique on (document_id, type, span_hash); on conflict
	// confidence takes the greater value and the remaining fields take the
	// latest write's values.
	UpsertEntity(ctx context.Context, e *entity.Entity) error

	// UpsertRelationship is unique on (document_id, head, tail, type,
	// evidence pattern); on conflict confidence takes the greater value.
	UpsertRelationship(ctx context.Context, r *entity.Relationship) error
}

// Reader is the keyed read contract serving the review API.
type Reader interface {
	GetDocumentByHash(ctx context.Context, contentHash string) (*Document, error)
	GetDocument(ctx context.Context, id uuid.UUID) (*Document, error)
	ListEntities(ctx context.Context, docID uuid.UUID, limit, offset int) ([]*entity.Entity, error)
	ListRelationships(ctx context.Context, docID uuid.UUID, limit, offset int) ([]*entity.Relationship, error)
}

// Repository combines the write and read contracts; the Postgres
// implementation satisfies both.
type Repository interface {
	Gateway
	Reader
}
