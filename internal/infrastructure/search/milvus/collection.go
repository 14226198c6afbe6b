package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/pkg/errors"
)

// Field names of the reference entity collection.
const (
	FieldID        = "id"
	FieldCanonical = "canonical"
	FieldType      = "entity_type"
	FieldEmbedding = "embedding"
)

// referenceCollection is the collection name suffix; the configured prefix is
// prepended so environments can share one Milvus instance.
const referenceCollection = "reference_entities"

// CollectionName renders the full prefixed collection name.
func (c *Client) CollectionName() string {
	if c.cfg.CollectionPrefix == "" {
		return referenceCollection
	}
	return c.cfg.CollectionPrefix + "_" + referenceCollection
}

// referenceSchema describes the reference entity collection: a string primary
// key (the reference id), the canonical surface, the entity type, and the
// embedding vector.
func referenceSchema(name string, dim int) *entity.Schema {
	return &entity.Schema{
		CollectionName: name,
		Description:    "canonical reference entities for embedding-tier lookup",
		Fields: []*entity.Field{
			{
				Name:       FieldID,
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       FieldCanonical,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "512"},
			},
			{
				Name:       FieldType,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       FieldEmbedding,
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": fmt.Sprintf("%d", dim)},
			},
		},
	}
}

// EnsureCollection creates the reference collection, its vector index and
// loads it into memory if it does not exist yet.  Safe to call on every
// startup.
func (c *Client) EnsureCollection(ctx context.Context) error {
	name := c.CollectionName()

	has, err := c.SDK().HasCollection(ctx, name)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to check collection")
	}

	if !has {
		schema := referenceSchema(name, c.cfg.EmbeddingDim)
		if err := c.SDK().CreateCollection(ctx, schema, 2); err != nil {
			return errors.Wrap(err, errors.ErrCodeExternalService, "failed to create collection")
		}

		idx, err := entity.NewIndexIvfFlat(entity.COSINE, 1024)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeExternalService, "failed to build index definition")
		}
		if err := c.SDK().CreateIndex(ctx, name, FieldEmbedding, idx, false); err != nil {
			return errors.Wrap(err, errors.ErrCodeExternalService, "failed to create index")
		}

		c.logger.Info("created reference entity collection",
			logging.String("collection", name),
			logging.Int("dim", c.cfg.EmbeddingDim))
	}

	if err := c.SDK().LoadCollection(ctx, name, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to load collection")
	}
	return nil
}
