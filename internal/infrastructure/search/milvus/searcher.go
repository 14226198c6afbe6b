package milvus

import (
	"context"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"

	domain "github.com/bpointel/docintel/internal/domain/entity"
	"github.com/bpointel/docintel/internal/extraction"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/pkg/errors"
)

// Embedder turns text into the vector space the reference index was built
// with.  Implementations call an external embedding service; the dimension
// must match the collection's.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ReferenceEntity is one canonical entry of the reference index.
type ReferenceEntity struct {
	ID        string
	Canonical string
	Type      domain.Type
	Embedding []float32
}

// ReferenceSearcher resolves probe strings against the reference entity
// collection.  It implements extraction.Searcher.
type ReferenceSearcher struct {
	client   *Client
	embedder Embedder
	logger   logging.Logger
}

// NewReferenceSearcher constructs a searcher over the shared client.
func NewReferenceSearcher(c *Client, embedder Embedder, logger logging.Logger) *ReferenceSearcher {
	return &ReferenceSearcher{client: c, embedder: embedder, logger: logger}
}

// Nearest returns the closest reference entity for the probe text.  ok is
// false when the index is empty; cosine scores are returned unchanged as the
// similarity, the extraction tier applies its own cutoff.
func (s *ReferenceSearcher) Nearest(ctx context.Context, text string) (extraction.Match, bool, error) {
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return extraction.Match{}, false, errors.Wrap(err, errors.ErrCodeExternalService, "embedding failed")
	}

	sp, err := milvusentity.NewIndexIvfFlatSearchParam(16)
	if err != nil {
		return extraction.Match{}, false, errors.Wrap(err, errors.ErrCodeExternalService, "failed to build search param")
	}

	results, err := s.client.SDK().Search(ctx,
		s.client.CollectionName(),
		nil, // partitions
		"",  // filter expression
		[]string{FieldID, FieldCanonical, FieldType},
		[]milvusentity.Vector{milvusentity.FloatVector(vector)},
		FieldEmbedding,
		milvusentity.COSINE,
		1,
		sp,
	)
	if err != nil {
		return extraction.Match{}, false, errors.Wrap(err, errors.ErrCodeExternalService, "vector search failed")
	}

	for _, res := range results {
		if res.ResultCount == 0 {
			continue
		}
		m := extraction.Match{Similarity: float64(res.Scores[0])}
		if col := fieldColumn(res, FieldID); col != nil {
			m.ID, _ = col.GetAsString(0)
		}
		if col := fieldColumn(res, FieldCanonical); col != nil {
			m.Canonical, _ = col.GetAsString(0)
		}
		if col := fieldColumn(res, FieldType); col != nil {
			typ, _ := col.GetAsString(0)
			m.Type = domain.Type(typ)
		}
		return m, true, nil
	}
	return extraction.Match{}, false, nil
}

// IndexReferenceEntities upserts reference entries, embedding any entry whose
// vector is missing.  Used by the reference-load CLI command.
func (s *ReferenceSearcher) IndexReferenceEntities(ctx context.Context, entries []ReferenceEntity) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]string, 0, len(entries))
	canonicals := make([]string, 0, len(entries))
	types := make([]string, 0, len(entries))
	vectors := make([][]float32, 0, len(entries))

	for _, e := range entries {
		vec := e.Embedding
		if len(vec) == 0 {
			var err error
			vec, err = s.embedder.Embed(ctx, e.Canonical)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeExternalService, "embedding failed")
			}
		}
		ids = append(ids, e.ID)
		canonicals = append(canonicals, e.Canonical)
		types = append(types, string(e.Type))
		vectors = append(vectors, vec)
	}

	name := s.client.CollectionName()
	dim := s.client.Config().EmbeddingDim

	_, err := s.client.SDK().Upsert(ctx, name, "",
		milvusentity.NewColumnVarChar(FieldID, ids),
		milvusentity.NewColumnVarChar(FieldCanonical, canonicals),
		milvusentity.NewColumnVarChar(FieldType, types),
		milvusentity.NewColumnFloatVector(FieldEmbedding, dim, vectors),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "reference upsert failed")
	}

	s.logger.Info("indexed reference entities", logging.Int("count", len(entries)))
	return nil
}

// fieldColumn finds an output column by name.
func fieldColumn(res client.SearchResult, name string) milvusentity.Column {
	for _, col := range res.Fields {
		if col.Name() == name {
			return col
		}
	}
	return nil
}
