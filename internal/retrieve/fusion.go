// Package retrieve fuses the vector, BM25/text, and graph retrievers
// into one ranked result list, deduplicates graph-decorated passages,
// and answers queries through an LLM layered over the same composed
// retrieval.
package retrieve

import "sort"

// candidate is one fused result before conversion to a Result. Ranks are
// 1-based per source; 0 means the source did not return this chunk.
type candidate struct {
	ChunkID     string
	Text        string
	Source      string
	FileType    string
	FileName    string
	Metadata    map[string]string
	VectorRank  int
	BM25Rank    int
	GraphRank   int
	VectorScore float64
	BM25Score   float64
	GraphScore  float64
	Fused       float64
}

const defaultRRFK = 60

// sourceHits is one retriever's ranked candidate list, already truncated
// to its per-retriever top-k (vector=10, bm25=bm25_similarity_top_k,
// graph=5) before it reaches fuseRRF.
type sourceHits struct {
	chunkID  string
	text     string
	source   string
	fileType string
	fileName string
	metadata map[string]string
	score    float64
}

// fuseRRF performs reciprocal-rank fusion across up to three retrievers'
// candidate lists. Each source contributes 1/(k_rrf+rank) when it
// returned the chunk, 0 otherwise; the fused score is the unweighted sum
// of present contributions, so all active sources are weighted equally.
func fuseRRF(vector, bm25, graph []sourceHits, kRRF int) []candidate {
	if kRRF <= 0 {
		kRRF = defaultRRFK
	}

	byID := make(map[string]*candidate)
	order := make([]string, 0)
	get := func(id string) *candidate {
		c, ok := byID[id]
		if !ok {
			c = &candidate{ChunkID: id, Metadata: map[string]string{}}
			byID[id] = c
			order = append(order, id)
		}
		return c
	}
	fill := func(c *candidate, h sourceHits) {
		if c.Text == "" {
			c.Text = h.text
		}
		if c.Source == "" {
			c.Source = h.source
		}
		if c.FileType == "" {
			c.FileType = h.fileType
		}
		if c.FileName == "" {
			c.FileName = h.fileName
		}
		for k, v := range h.metadata {
			if _, exists := c.Metadata[k]; !exists {
				c.Metadata[k] = v
			}
		}
	}

	for i, h := range vector {
		c := get(h.chunkID)
		c.VectorRank = i + 1
		c.VectorScore = 1.0 / float64(kRRF+i+1)
		fill(c, h)
	}
	for i, h := range bm25 {
		c := get(h.chunkID)
		c.BM25Rank = i + 1
		c.BM25Score = 1.0 / float64(kRRF+i+1)
		fill(c, h)
	}
	for i, h := range graph {
		c := get(h.chunkID)
		c.GraphRank = i + 1
		c.GraphScore = 1.0 / float64(kRRF+i+1)
		fill(c, h)
	}

	out := make([]candidate, 0, len(order))
	for _, id := range order {
		c := byID[id]
		c.Fused = c.VectorScore + c.BM25Score + c.GraphScore
		out = append(out, *c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Fused != out[j].Fused {
			return out[i].Fused > out[j].Fused
		}
		ri := rankSum(out[i])
		rj := rankSum(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	return out
}

// rankSum favors candidates that rank well across more sources when fused
// scores tie, treating an absent rank as maximally unfavorable.
func rankSum(c candidate) int {
	const absent = 1 << 20
	sum := 0
	for _, r := range []int{c.VectorRank, c.BM25Rank, c.GraphRank} {
		if r == 0 {
			sum += absent
		} else {
			sum += r
		}
	}
	return sum
}

// singleSource converts one retriever's hits directly into candidates
// with their native score, used when exactly one retriever is active:
// fusion is skipped because it can dilute relevance for a single source.
func singleSource(hits []sourceHits) []candidate {
	out := make([]candidate, 0, len(hits))
	for _, h := range hits {
		out = append(out, candidate{
			ChunkID:  h.chunkID,
			Text:     h.text,
			Source:   h.source,
			FileType: h.fileType,
			FileName: h.fileName,
			Metadata: h.metadata,
			Fused:    h.score,
		})
	}
	return out
}

// postFusionFilterThreshold is the "fused score at or below this is
// non-relevant" cutoff.
const postFusionFilterThreshold = 1e-3

func filterRelevant(cands []candidate) []candidate {
	out := cands[:0:0]
	for _, c := range cands {
		if c.Fused > postFusionFilterThreshold {
			out = append(out, c)
		}
	}
	return out
}

// fusedTopK caps the fused candidate list before dedup and before the
// caller's requested top_k slice is applied.
const fusedTopK = 15
