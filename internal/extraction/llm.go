package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bpointel/docintel/internal/domain/entity"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/pkg/errors"
)

// LLMClient is the structured-extraction capability: prompt in, raw JSON
// out.  Requests run at zero temperature so re-runs are deterministic.
type LLMClient interface {
	Extract(ctx context.Context, prompt string) (json.RawMessage, error)
}

// llmResponse is the fixed output schema the model must produce.
type llmResponse struct {
	Entities []llmEntity `json:"entities"`
}

type llmEntity struct {
	Type       string                 `json:"type"`
	Start      int                    `json:"start"`
	End        int                    `json:"end"`
	Confidence float64                `json:"confidence"`
	Normalized map[string]interface{} `json:"normalized"`
}

// LLMAdapter is the last-resort tier, consulted only for chunks still below
// the global confidence floor after tiers 1-4 and only when the budget guard
// admits the call.  Failures here are never fatal: a schema-invalid response
// after one retry, or a request timeout, drops the candidates and moves on.
type LLMAdapter struct {
	client  LLMClient
	timeout time.Duration
	floor   float64
	logger  logging.Logger
}

func NewLLMAdapter(client LLMClient, timeout time.Duration, floor float64, logger logging.Logger) *LLMAdapter {
	return &LLMAdapter{
		client:  client,
		timeout: timeout,
		floor:   floor,
		logger:  logger.Named("extraction.llm"),
	}
}

func (a *LLMAdapter) Tier() entity.Tier { return entity.TierLLM }

func (a *LLMAdapter) Generate(ctx context.Context, req Request) ([]entity.Candidate, error) {
	prompt := buildPrompt(req.Chunk.Text)

	resp, err := a.callWithRetry(ctx, prompt)
	if err != nil {
		// Recoverable by contract: log, emit nothing.
		a.logger.Warn("llm fallback yielded no candidates",
			logging.Int("chunk_seq", req.Chunk.Seq),
			logging.Err(err))
		return nil, nil
	}

	out := make([]entity.Candidate, 0, len(resp.Entities))
	for _, e := range resp.Entities {
		if e.Confidence < a.floor {
			continue
		}
		span := entity.Span{ChunkSeq: req.Chunk.Seq, Start: e.Start, End: e.End}
		cand, err := entity.NewCandidate(span, req.Chunk.Text, entity.Type(e.Type),
			entity.Normalized(e.Normalized), e.Confidence, entity.TierLLM)
		if err != nil {
			a.logger.Warn("dropping llm candidate", logging.String("type", e.Type), logging.Err(err))
			continue
		}
		out = append(out, cand)
	}
	return out, nil
}

// callWithRetry performs the request with a hard per-request timeout and one
// retry on schema-validation failure.  A timeout is not retried: the budget
// slot is already spent and the chunk simply gets no LLM candidates.
func (a *LLMAdapter) callWithRetry(ctx context.Context, prompt string) (*llmResponse, error) {
	resp, err := a.call(ctx, prompt)
	if err == nil {
		return resp, nil
	}
	if !errors.IsCode(err, errors.ErrCodeLLMSchemaInvalid) {
		return nil, err
	}

	a.logger.Debug("retrying llm request after schema failure")
	return a.call(ctx, prompt)
}

func (a *LLMAdapter) call(ctx context.Context, prompt string) (*llmResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.client.Extract(callCtx, prompt)
	if callCtx.Err() == context.DeadlineExceeded {
		return nil, errors.New(errors.ErrCodeLLMTimeout,
			fmt.Sprintf("llm request exceeded %s", a.timeout))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTierFailed, "llm request failed")
	}

	var resp llmResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeLLMSchemaInvalid, "llm response is not valid JSON")
	}
	if resp.Entities == nil {
		return nil, errors.New(errors.ErrCodeLLMSchemaInvalid, "llm response missing entities array")
	}
	return &resp, nil
}

func buildPrompt(chunkText string) string {
	var b strings.Builder
	b.WriteString("Extract typed entities from the text below. ")
	b.WriteString("Respond with JSON only, matching this schema exactly: ")
	b.WriteString(`{"entities":[{"type":"<TYPE>","start":0,"end":0,"confidence":0.0,"normalized":{}}]}. `)
	b.WriteString("Allowed types: ")
	for i, typ := range entity.AllTypes() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(typ))
	}
	b.WriteString(". Offsets are character positions into the text.\n\nText:\n")
	b.WriteString(chunkText)
	return b.String()
}
