package client

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Document mirrors the API's document representation.
type Document struct {
	ID          string                 `json:"id"`
	URL         string                 `json:"url,omitempty"`
	ContentHash string                 `json:"content_hash"`
	Language    string                 `json:"language,omitempty"`
	ContentType string                 `json:"content_type,omitempty"`
	FetchedAt   time.Time              `json:"fetched_at"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// Span locates an entity inside a chunk.
type Span struct {
	ChunkSeq int `json:"chunk_seq"`
	Start    int `json:"start"`
	End      int `json:"end"`
}

// Entity mirrors one extracted entity.
type Entity struct {
	ID                string                 `json:"id"`
	DocumentID        string                 `json:"document_id"`
	ChunkID           *string                `json:"chunk_id,omitempty"`
	Span              Span                   `json:"span"`
	SpanHash          string                 `json:"span_hash"`
	Type              string                 `json:"type"`
	Surface           string                 `json:"surface"`
	Normalized        map[string]interface{} `json:"normalized,omitempty"`
	Confidence        float64                `json:"confidence"`
	Sources           []string               `json:"sources"`
	Method            string                 `json:"method"`
	HeuristicsVersion string                 `json:"heuristics_version,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// Evidence explains why a relationship was inferred.
type Evidence struct {
	Pattern  string `json:"pattern"`
	Distance int    `json:"distance"`
	Matched  string `json:"matched,omitempty"`
}

// Relationship mirrors one inferred relationship.
type Relationship struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	HeadEntityID string    `json:"head_entity_id"`
	TailEntityID string    `json:"tail_entity_id"`
	Type         string    `json:"type"`
	Confidence   float64   `json:"confidence"`
	Evidence     Evidence  `json:"evidence"`
	Source       string    `json:"source"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EntityPage is one page of a document's entities.
type EntityPage struct {
	DocumentID string   `json:"document_id"`
	Entities   []Entity `json:"entities"`
	Limit      int      `json:"limit"`
	Offset     int      `json:"offset"`
}

// RelationshipPage is one page of a document's relationships.
type RelationshipPage struct {
	DocumentID    string         `json:"document_id"`
	Relationships []Relationship `json:"relationships"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
}

// Correction is a reviewer's override for one span.  The span fields identify
// the entity; confidence only ever moves upward on the server.
type Correction struct {
	ChunkSeq   int                    `json:"chunk_seq"`
	SpanStart  int                    `json:"span_start"`
	SpanEnd    int                    `json:"span_end"`
	Type       string                 `json:"type"`
	Surface    string                 `json:"surface"`
	Normalized map[string]interface{} `json:"normalized,omitempty"`
	Confidence float64                `json:"confidence"`
}

// GetDocument fetches a document by id.
func (c *Client) GetDocument(ctx context.Context, id string) (*Document, error) {
	var doc Document
	path := fmt.Sprintf("/api/v1/documents/%s", url.PathEscape(id))
	if err := c.do(ctx, "GET", path, nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetDocumentByHash fetches a document by its content hash.
func (c *Client) GetDocumentByHash(ctx context.Context, contentHash string) (*Document, error) {
	var doc Document
	path := fmt.Sprintf("/api/v1/documents/by-hash/%s", url.PathEscape(contentHash))
	if err := c.do(ctx, "GET", path, nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListEntities returns one page of the document's entities.
func (c *Client) ListEntities(ctx context.Context, documentID string, limit, offset int) (*EntityPage, error) {
	var page EntityPage
	path := fmt.Sprintf("/api/v1/documents/%s/entities?limit=%d&offset=%d",
		url.PathEscape(documentID), limit, offset)
	if err := c.do(ctx, "GET", path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListRelationships returns one page of the document's relationships.
func (c *Client) ListRelationships(ctx context.Context, documentID string, limit, offset int) (*RelationshipPage, error) {
	var page RelationshipPage
	path := fmt.Sprintf("/api/v1/documents/%s/relationships?limit=%d&offset=%d",
		url.PathEscape(documentID), limit, offset)
	if err := c.do(ctx, "GET", path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CorrectEntity applies a reviewer correction and returns the stored entity.
func (c *Client) CorrectEntity(ctx context.Context, documentID string, correction Correction) (*Entity, error) {
	var e Entity
	path := fmt.Sprintf("/api/v1/documents/%s/entities", url.PathEscape(documentID))
	if err := c.do(ctx, "PATCH", path, correction, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
