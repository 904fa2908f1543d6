// Package chunk splits a document into a sentence-aware
// fixed-size-with-overlap sequence, then enriches each chunk with
// keyword extraction and a rolling summary of the previous, current, and
// next chunks.
package chunk

import (
	"regexp"
	"strings"

	"hybridrag/internal/model"
)

// Options controls the splitter and enrichment stages.
type Options struct {
	ChunkSize    int // default 1024 characters
	ChunkOverlap int // default 128 characters
	TopKeywords  int // default 5
}

// DefaultOptions returns the recommended defaults.
func DefaultOptions() Options {
	return Options{ChunkSize: 1024, ChunkOverlap: 128, TopKeywords: 5}
}

var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

// Split produces fixed-target-size chunks with overlap, preferring to cut
// at a sentence boundary near the target size and falling back to the
// nearest whitespace boundary, matching SimpleChunker.fixedChunk's
// approach of avoiding mid-word splits.
func Split(text string, opt Options) []string {
	size := opt.ChunkSize
	if size < 64 {
		size = 1024
	}
	overlap := opt.ChunkOverlap
	if overlap < 0 || overlap >= size {
		overlap = 128
	}

	var out []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			end = len(text)
		} else {
			end = cutBoundary(text, start, end)
		}
		piece := strings.TrimSpace(text[start:end])
		if piece != "" {
			out = append(out, piece)
		}
		if end >= len(text) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

// cutBoundary prefers the last sentence end inside (start, end], then the
// last whitespace run, only accepting a cut past the halfway point of the
// window so chunks don't shrink to near nothing.
func cutBoundary(text string, start, end int) int {
	window := text[start:end]
	half := (end - start) / 2

	if loc := lastSentenceEnd(window); loc > half {
		return start + loc
	}
	if i := strings.LastIndex(window, " "); i > half {
		return start + i
	}
	return end
}

func lastSentenceEnd(window string) int {
	matches := sentenceEnd.FindAllStringIndex(window, -1)
	if len(matches) == 0 {
		return -1
	}
	return matches[len(matches)-1][1]
}

// Pipeline turns a Document's text into enriched Chunks: split, then
// keyword-extract and rolling-summarize each one in order (summarization
// needs neighbor access, so it runs after the full chunk slice exists).
func Pipeline(doc model.Document, opt Options, summarizer Summarizer) []model.Chunk {
	texts := Split(doc.Text, opt)
	chunks := make([]model.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = model.Chunk{
			DocID:    doc.ID,
			Text:     text,
			Position: i,
			Keywords: TopKeywords(text, topKOrDefault(opt.TopKeywords)),
			Source:   doc.Source,
			FileName: doc.FileName,
			FileType: doc.FileType,
		}
	}
	for i := range chunks {
		prev, next := "", ""
		if i > 0 {
			prev = chunks[i-1].Text
		}
		if i+1 < len(chunks) {
			next = chunks[i+1].Text
		}
		chunks[i].Summary = summarizer.Summarize(prev, chunks[i].Text, next)
	}
	return chunks
}

func topKOrDefault(k int) int {
	if k <= 0 {
		return 5
	}
	return k
}
