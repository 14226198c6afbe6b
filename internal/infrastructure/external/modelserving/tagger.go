package modelserving

import (
	"context"

	"github.com/bpointel/docintel/internal/config"
	"github.com/bpointel/docintel/internal/extraction"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
)

// TaggerClient calls the statistical NER serving endpoint.  It implements
// extraction.Tagger for the third tier.
type TaggerClient struct {
	http   *httpClient
	logger logging.Logger
}

type tagRequest struct {
	Text string `json:"text"`
}

type tagResponse struct {
	Spans []extraction.TagSpan `json:"spans"`
}

// NewTaggerClient builds a tagger client from config.
func NewTaggerClient(cfg config.TaggerConfig, logger logging.Logger) (*TaggerClient, error) {
	hc, err := newHTTPClient(cfg.BaseURL, "", cfg.RequestTimeout, 2, logger)
	if err != nil {
		return nil, err
	}
	return &TaggerClient{http: hc, logger: logger}, nil
}

// Tag labels the given text with coarse NER spans.
func (t *TaggerClient) Tag(ctx context.Context, text string) ([]extraction.TagSpan, error) {
	var resp tagResponse
	if err := t.http.post(ctx, "/v1/tag", tagRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	return resp.Spans, nil
}
