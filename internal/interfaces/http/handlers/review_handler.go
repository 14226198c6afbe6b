package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bpointel/docintel/internal/domain/document"
	"github.com/bpointel/docintel/internal/domain/entity"
	"github.com/bpointel/docintel/internal/infrastructure/database/redis"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/pkg/errors"
)

// reviewCacheTTL bounds staleness of cached entity/relationship pages.  A
// correction invalidates the affected document's pages immediately; the TTL
// covers writes from concurrent pipeline runs.
const reviewCacheTTL = 30 * time.Second

// ReviewHandler serves the review API: keyed reads over extraction results
// and human-correction writebacks through the same gateway the pipeline
// writes through.
type ReviewHandler struct {
	repo   document.Repository
	cache  redis.Cache
	logger logging.Logger
}

// NewReviewHandler creates a ReviewHandler.  cache may be nil, in which case
// every read goes to storage.
func NewReviewHandler(repo document.Repository, cache redis.Cache, logger logging.Logger) *ReviewHandler {
	return &ReviewHandler{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// GetDocument handles GET /documents/:id.
func (h *ReviewHandler) GetDocument(c *gin.Context) {
	id, ok := parseDocumentID(c)
	if !ok {
		return
	}

	doc, err := h.repo.GetDocument(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// GetDocumentByHash handles GET /documents/by-hash/:hash.
func (h *ReviewHandler) GetDocumentByHash(c *gin.Context) {
	hash := c.Param("hash")
	if hash == "" {
		respondError(c, errors.New(errors.ErrCodeBadRequest, "content hash is required"))
		return
	}

	doc, err := h.repo.GetDocumentByHash(c.Request.Context(), hash)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// EntityPage is the paged entity listing body.
type EntityPage struct {
	DocumentID uuid.UUID        `json:"document_id"`
	Entities   []*entity.Entity `json:"entities"`
	Limit      int              `json:"limit"`
	Offset     int              `json:"offset"`
}

// ListEntities handles GET /documents/:id/entities.
func (h *ReviewHandler) ListEntities(c *gin.Context) {
	id, ok := parseDocumentID(c)
	if !ok {
		return
	}
	limit, offset := parsePagination(c)

	var page EntityPage
	err := h.cached(c.Request.Context(), h.entityPageKey(id, limit, offset), &page,
		func(ctx context.Context) (interface{}, error) {
			ents, err := h.repo.ListEntities(ctx, id, limit, offset)
			if err != nil {
				return nil, err
			}
			return EntityPage{DocumentID: id, Entities: ents, Limit: limit, Offset: offset}, nil
		})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// RelationshipPage is the paged relationship listing body.
type RelationshipPage struct {
	DocumentID    uuid.UUID              `json:"document_id"`
	Relationships []*entity.Relationship `json:"relationships"`
	Limit         int                    `json:"limit"`
	Offset        int                    `json:"offset"`
}

// ListRelationships handles GET /documents/:id/relationships.
func (h *ReviewHandler) ListRelationships(c *gin.Context) {
	id, ok := parseDocumentID(c)
	if !ok {
		return
	}
	limit, offset := parsePagination(c)

	var page RelationshipPage
	err := h.cached(c.Request.Context(), h.relationshipPageKey(id, limit, offset), &page,
		func(ctx context.Context) (interface{}, error) {
			rels, err := h.repo.ListRelationships(ctx, id, limit, offset)
			if err != nil {
				return nil, err
			}
			return RelationshipPage{DocumentID: id, Relationships: rels, Limit: limit, Offset: offset}, nil
		})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CorrectionRequest is a reviewer's entity correction.  The span fields
// identify the entity row; the remaining fields carry the corrected values.
// Corrections travel the pipeline's upsert path, so stored confidence only
// moves upward.
type CorrectionRequest struct {
	ChunkSeq   int                    `json:"chunk_seq"`
	SpanStart  int                    `json:"span_start"`
	SpanEnd    int                    `json:"span_end"`
	Type       string                 `json:"type" binding:"required"`
	Surface    string                 `json:"surface" binding:"required"`
	Normalized map[string]interface{} `json:"normalized,omitempty"`
	Confidence float64                `json:"confidence"`
}

// CorrectEntity handles PATCH /documents/:id/entities.
func (h *ReviewHandler) CorrectEntity(c *gin.Context) {
	id, ok := parseDocumentID(c)
	if !ok {
		return
	}

	var req CorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid correction body"))
		return
	}

	typ := entity.Type(req.Type)
	if !entity.IsValidType(typ) {
		respondError(c, errors.New(errors.ErrCodeValidation,
			fmt.Sprintf("unknown entity type %q", req.Type)))
		return
	}
	if req.SpanEnd <= req.SpanStart || req.SpanStart < 0 || req.ChunkSeq < 0 {
		respondError(c, errors.New(errors.ErrCodeValidation, "span is invalid"))
		return
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		respondError(c, errors.New(errors.ErrCodeValidation, "confidence is out of range [0, 1]"))
		return
	}

	span := entity.Span{ChunkSeq: req.ChunkSeq, Start: req.SpanStart, End: req.SpanEnd}
	e := &entity.Entity{
		ID:         uuid.New(),
		DocumentID: id,
		Span:       span,
		SpanHash:   span.Hash(typ),
		Type:       typ,
		Surface:    req.Surface,
		Normalized: req.Normalized,
		Confidence: req.Confidence,
		Method:     entity.MethodHumanCorrection,
	}

	if err := h.repo.UpsertEntity(c.Request.Context(), e); err != nil {
		respondError(c, err)
		return
	}

	h.invalidate(c.Request.Context(), id)
	h.logger.Info("entity correction applied",
		logging.String("document_id", id.String()),
		logging.String("span_hash", e.SpanHash),
		logging.String("type", string(typ)))

	c.JSON(http.StatusOK, e)
}

// ─────────────────────────────────────────────────────────────────────────────
// Cache plumbing
// ─────────────────────────────────────────────────────────────────────────────

func (h *ReviewHandler) entityPageKey(id uuid.UUID, limit, offset int) string {
	return fmt.Sprintf("review:entities:%s:%d:%d", id, limit, offset)
}

func (h *ReviewHandler) relationshipPageKey(id uuid.UUID, limit, offset int) string {
	return fmt.Sprintf("review:relationships:%s:%d:%d", id, limit, offset)
}

func (h *ReviewHandler) cached(ctx context.Context, key string, dest interface{},
	loader func(ctx context.Context) (interface{}, error)) error {
	if h.cache == nil {
		v, err := loader(ctx)
		if err != nil {
			return err
		}
		return assign(dest, v)
	}
	return h.cache.GetOrSet(ctx, key, dest, reviewCacheTTL, loader)
}

// invalidate drops the first few cached pages of the document.  Deeper pages
// expire via TTL.
func (h *ReviewHandler) invalidate(ctx context.Context, id uuid.UUID) {
	if h.cache == nil {
		return
	}
	keys := make([]string, 0, 8)
	for _, limit := range []int{defaultPageSize, maxPageSize} {
		for _, offset := range []int{0, limit} {
			keys = append(keys,
				h.entityPageKey(id, limit, offset),
				h.relationshipPageKey(id, limit, offset))
		}
	}
	if err := h.cache.Delete(ctx, keys...); err != nil {
		h.logger.Warn("review cache invalidation failed",
			logging.String("document_id", id.String()), logging.Err(err))
	}
}

// assign copies a loader result into dest the same way the cache layer does,
// via a JSON round-trip, so cached and uncached reads share one shape.
func assign(dest, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode review page")
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "decode review page")
	}
	return nil
}

func parseDocumentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "document id is not a uuid"))
		return uuid.Nil, false
	}
	return id, true
}
