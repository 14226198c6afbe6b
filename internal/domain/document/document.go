// Package document implements the Document bounded context: the source-unit
// aggregate, its chunks, deterministic identity derivation, and the
// persistence contracts the pipeline depends on.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/bpointel/docintel/pkg/errors"
)

// idTextPrefixLen bounds how much text feeds identity derivation when neither
// an explicit id nor a URL is available.
const idTextPrefixLen = 256

// docNamespace is the fixed uuid5 namespace for derived document identifiers.
var docNamespace = uuid.MustParse("6f1c24b0-95cf-5a38-9d0e-3c5a7f20d1aa")

// Document is a source unit of text.  Content hash is unique: two documents
// with identical normalized text collapse to one record.
type Document struct {
	ID          uuid.UUID              `json:"id"`
	URL         string                 `json:"url,omitempty"`
	ContentHash string                 `json:"content_hash"`
	Language    string                 `json:"language,omitempty"`
	FetchedAt   time.Time              `json:"fetched_at"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`

	// ContentType is the classifier's winning label, empty when the
	// classifier is disabled or undecided.
	ContentType string `json:"content_type,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Chunk is a contiguous slice of a document's text.  (DocumentID, Seq) is
// unique; chunks are owned exclusively by their document and destroyed with
// it.
type Chunk struct {
	ID         uuid.UUID              `json:"id"`
	DocumentID uuid.UUID              `json:"document_id"`
	Seq        int                    `json:"seq"`
	Text       string                 `json:"text"`
	TextHash   string                 `json:"text_hash"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NormalizeText canonicalises document text before hashing: NFC unicode
// normalization, CRLF folding, and outer whitespace trim.  Hashing anything
// else would make content-addressed dedup sensitive to encoding accidents.
func NormalizeText(text string) string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.TrimSpace(text)
}

// ContentHash returns the hex sha256 of the normalized text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(NormalizeText(text)))
	return hex.EncodeToString(sum[:])
}

// DeriveID computes the deterministic document identifier.  Preference order:
// an explicit upstream id, then the canonical URL, then a prefix of the
// normalized text.  The same inputs always yield the same uuid so re-ingestion
// cannot mint duplicate identities.
func DeriveID(explicitID, url, text string) uuid.UUID {
	switch {
	case explicitID != "":
		if parsed, err := uuid.Parse(explicitID); err == nil {
			return parsed
		}
		return uuid.NewSHA1(docNamespace, []byte("id:"+explicitID))
	case url != "":
		return uuid.NewSHA1(docNamespace, []byte("url:"+url))
	default:
		prefix := NormalizeText(text)
		if len(prefix) > idTextPrefixLen {
			prefix = prefix[:idTextPrefixLen]
		}
		return uuid.NewSHA1(docNamespace, []byte("text:"+prefix))
	}
}

// NewDocument constructs a Document from normalized text and source hints.
func NewDocument(explicitID, url, text, language string, meta map[string]interface{}) (*Document, error) {
	normalized := NormalizeText(text)
	if normalized == "" {
		return nil, errors.New(errors.ErrCodeDocumentTextEmpty, "document text is empty after normalization")
	}
	now := time.Now().UTC()
	return &Document{
		ID:          DeriveID(explicitID, url, text),
		URL:         url,
		ContentHash: ContentHash(text),
		Language:    language,
		FetchedAt:   now,
		Metadata:    meta,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// NewChunk constructs a validated Chunk for a document.
func NewChunk(docID uuid.UUID, seq int, text string, meta map[string]interface{}) (*Chunk, error) {
	if seq < 0 {
		return nil, errors.New(errors.ErrCodeChunkSequenceInvalid, "chunk sequence must be ≥ 0")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New(errors.ErrCodeDocumentTextEmpty, "chunk text is empty")
	}
	return &Chunk{
		ID:         uuid.New(),
		DocumentID: docID,
		Seq:        seq,
		Text:       text,
		TextHash:   ContentHash(text),
		Metadata:   meta,
		CreatedAt:  time.Now().UTC(),
	}, nil
}
