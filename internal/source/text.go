package source

import "context"

// TextSource wraps a single in-memory document with no backing file,
// letting pasted or generated text flow through the same ingestion path
// as a filesystem document.
type TextSource struct {
	Content    string
	SourceName string
}

// NewTextSource defaults SourceName to "pasted-text.txt" when empty. A
// caller-supplied name with no recognized extension (or none at all) still
// converts correctly: Fetch reports mime type text/plain, which the
// converter falls back to when extension-based dispatch misses.
func NewTextSource(content, sourceName string) *TextSource {
	if sourceName == "" {
		sourceName = "pasted-text.txt"
	}
	return &TextSource{Content: content, SourceName: sourceName}
}

func (s *TextSource) Enumerate(ctx context.Context, out chan<- DocumentRef) error {
	defer close(out)
	select {
	case out <- DocumentRef{DisplayName: s.SourceName, opaque: s.SourceName}:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (s *TextSource) Fetch(ctx context.Context, ref DocumentRef) (Fetched, error) {
	return Fetched{
		Bytes:       []byte(s.Content),
		Mime:        "text/plain",
		DisplayName: s.SourceName,
		Cleanup:     func() {},
	}, nil
}
