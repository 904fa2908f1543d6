package retrieve

import (
	"regexp"
	"strings"
)

// preamblePrefixes are LLM narration phrases that sometimes wrap graph
// extraction output, stripped before dedup fingerprinting.
var preamblePrefixes = []string{
	"here are some facts extracted from the provided text:",
	"facts extracted from the provided text:",
	"extracted facts:",
	"key information:",
	"summary:",
	"important points:",
	"main points:",
	"key facts:",
	"extracted information:",
	"document summary:",
	"content summary:",
	"text summary:",
	"based on the provided text:",
	"from the provided text:",
	"the text contains:",
	"the document contains:",
	"the content includes:",
	"the following facts were extracted:",
	"extracted from the document:",
	"the document reveals:",
	"the text reveals:",
	"the content reveals:",
}

// preambleSuffixes are closing phrases stripped from the end of a passage.
var preambleSuffixes = []string{
	"end of document",
	"end of text",
	"document ends",
	"text ends",
	"this concludes the document",
	"this concludes the text",
	"this ends the document",
	"this ends the text",
}

// entityChainPatterns match a leading "A -> B -> C:" style chain left by
// graph-derived passages.
var entityChainPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^[a-z\s]+->[a-z\s]+->[a-z\s]+->[a-z\s]+->[a-z\s]+:`),
	regexp.MustCompile(`(?i)^[a-z\s]+->[a-z\s]+->[a-z\s]+->[a-z\s]+:`),
	regexp.MustCompile(`(?i)^[a-z\s]+->[a-z\s]+->[a-z\s]+:`),
	regexp.MustCompile(`(?i)^[a-z\s]+->[a-z\s]+:`),
}

// corpusDateRegexes locate the start of the original prose embedded
// after an entity-chain prefix: dateline-shaped spans, a place name or
// capitalized word followed by a date.
var corpusDateRegexes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)[A-Z]{2,}.*?\d{1,2}.*?\d{4}.*?[A-Za-z]+`),
	regexp.MustCompile(`[A-Z][a-z]+.*?\d{1,2},.*?\d{4}`),
	regexp.MustCompile(`[A-Z][a-z]+.*?\d{1,2}.*?\d{4}.*?[A-Za-z]+`),
	regexp.MustCompile(`[A-Z]{2,}.*?\d{1,2}.*?\d{4}`),
	regexp.MustCompile(`[A-Z][a-z]+.*?\d{1,2}.*?\d{4}`),
}

// extractCoreContent strips known preambles, closing phrases, and (for
// graph-shaped passages) the leading entity-relation chain, returning
// the prose underneath: prefix strip, suffix strip, then entity-chain
// detection with dateline-based recovery of the embedded original text.
func extractCoreContent(text string) string {
	text = strings.TrimSpace(text)

	lower := strings.ToLower(text)
	for _, p := range preamblePrefixes {
		if strings.HasPrefix(lower, p) {
			text = strings.TrimSpace(text[len(p):])
			break
		}
	}

	lower = strings.ToLower(strings.TrimSpace(text))
	for _, s := range preambleSuffixes {
		if strings.HasSuffix(lower, s) {
			text = strings.TrimSpace(text[:len(text)-len(s)])
			break
		}
	}

	trimmed := strings.TrimSpace(text)
	for _, chain := range entityChainPatterns {
		if chain.MatchString(trimmed) {
			for _, dateline := range corpusDateRegexes {
				if loc := dateline.FindStringIndex(text); loc != nil {
					text = text[loc[0]:]
					break
				}
			}
			break
		}
	}

	return strings.TrimSpace(text)
}

// fingerprint is the per-source content signature dedup compares: the
// first 300 characters of the cleaned core, lowercased.
func fingerprint(text string) string {
	core := extractCoreContent(text)
	if len(core) > 300 {
		core = core[:300]
	}
	return strings.ToLower(strings.TrimSpace(core))
}

// jaccardOverlap is the word-set overlap ratio used for dedup:
// |intersection| / |union| of the two fingerprints' word sets.
func jaccardOverlap(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	inter := 0
	for w := range setA {
		if setB[w] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(s)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

const (
	sameSourceDupThreshold  = 0.7
	crossFormatDupThreshold = 0.6
)

// dedup drops a candidate whose fingerprint overlaps an earlier-kept one
// from the same source above 0.7, or whose graph-shaped ("->"-containing)
// text collapses into an already-kept prose version above 0.6. Input
// must already be sorted by descending score so that the highest-ranked
// variant of a duplicate is the one retained.
func dedup(cands []candidate) []candidate {
	type kept struct {
		c           candidate
		fp          string
		isGraphForm bool
	}
	seenBySource := map[string][]kept{}
	var keptAll []kept

	for _, c := range cands {
		fp := fingerprint(c.Text)
		isGraphForm := strings.Contains(c.Text, "->")
		duplicate := false

		if len(fp) > 50 {
			for _, k := range seenBySource[c.Source] {
				if len(k.fp) > 50 && jaccardOverlap(fp, k.fp) > sameSourceDupThreshold {
					duplicate = true
					break
				}
			}
		}

		if !duplicate && isGraphForm {
			for _, k := range keptAll {
				if !k.isGraphForm && len(k.fp) > 50 && len(fp) > 50 {
					if jaccardOverlap(fp, k.fp) > crossFormatDupThreshold {
						duplicate = true
						break
					}
				}
			}
		}

		if duplicate {
			continue
		}

		k := kept{c: c, fp: fp, isGraphForm: isGraphForm}
		seenBySource[c.Source] = append(seenBySource[c.Source], k)
		keptAll = append(keptAll, k)
	}

	out := make([]candidate, 0, len(keptAll))
	for _, k := range keptAll {
		out = append(out, k.c)
	}
	return out
}
