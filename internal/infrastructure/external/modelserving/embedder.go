package modelserving

import (
	"context"

	"github.com/bpointel/docintel/internal/config"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/pkg/errors"
)

// EmbedderClient calls the sentence-embedding serving endpoint.  It
// implements the milvus searcher's Embedder dependency.
//
// The embedder shares the tagger's serving host: both models run behind the
// same inference gateway.
type EmbedderClient struct {
	http   *httpClient
	logger logging.Logger
}

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewEmbedderClient builds an embedder client from the tagger service config.
func NewEmbedderClient(cfg config.TaggerConfig, logger logging.Logger) (*EmbedderClient, error) {
	hc, err := newHTTPClient(cfg.BaseURL, "", cfg.RequestTimeout, 2, logger)
	if err != nil {
		return nil, err
	}
	return &EmbedderClient{http: hc, logger: logger}, nil
}

// Embed returns the embedding vector for a single text.
func (e *EmbedderClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embedResponse
	if err := e.http.post(ctx, "/v1/embed", embedRequest{Texts: []string{text}}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, errors.New(errors.ErrCodeExternalService, "modelserving: empty embedding response")
	}
	return resp.Embeddings[0], nil
}

// EmbedBatch returns one embedding per input text, in input order.
func (e *EmbedderClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var resp embedResponse
	if err := e.http.post(ctx, "/v1/embed", embedRequest{Texts: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, errors.New(errors.ErrCodeExternalService, "modelserving: embedding count mismatch")
	}
	return resp.Embeddings, nil
}
