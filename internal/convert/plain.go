package convert

import "context"

// plainTextConverter handles formats that are already textual: plain text,
// Markdown, AsciiDoc, CSV, JSON, and XML. The markdown serialization and
// plain serialization are the same bytes for these formats; choose() still
// runs the table-marker heuristic over them (a CSV or Markdown file can
// itself contain a table).
type plainTextConverter struct{}

func (plainTextConverter) Convert(ctx context.Context, in Input) (markdown, plain, method string, err error) {
	text := string(in.Bytes)
	return text, text, "passthrough", nil
}
