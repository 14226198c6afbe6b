package pipeline

import (
	"strings"
)

// defaultChunkSize is the target chunk length in bytes.  Paragraphs are
// packed whole until the target is reached; a single oversized paragraph is
// hard-split rather than dropped.
const defaultChunkSize = 2000

// Splitter turns normalized document text into ordered chunk texts.  The
// driver depends on this so tests can substitute splitting behaviour.
type Splitter interface {
	Split(text string) []string
}

// Chunker splits normalized document text into sequence-numbered chunk texts.
// Splitting prefers paragraph boundaries so entity spans rarely straddle a
// chunk edge.
type Chunker struct {
	maxSize int
}

func NewChunker(maxSize int) *Chunker {
	if maxSize <= 0 {
		maxSize = defaultChunkSize
	}
	return &Chunker{maxSize: maxSize}
}

// Split returns the chunk texts in sequence order.  Empty and
// whitespace-only input yields no chunks.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if len(para) > c.maxSize {
			flush()
			for _, piece := range hardSplit(para, c.maxSize) {
				chunks = append(chunks, piece)
			}
			continue
		}

		if current.Len() > 0 && current.Len()+2+len(para) > c.maxSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()
	return chunks
}

// hardSplit cuts an oversized paragraph at the last space before the limit,
// falling back to a byte cut when it contains no spaces at all.
func hardSplit(para string, maxSize int) []string {
	var out []string
	for len(para) > maxSize {
		cut := strings.LastIndexByte(para[:maxSize], ' ')
		if cut <= 0 {
			cut = maxSize
		}
		out = append(out, strings.TrimSpace(para[:cut]))
		para = strings.TrimSpace(para[cut:])
	}
	if para != "" {
		out = append(out, para)
	}
	return out
}
