package convert

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	readability "github.com/go-shiori/go-readability"
)

// htmlConverter renders HTML/XHTML to markdown, preferring the
// readability-extracted main article over the raw document body when
// extraction succeeds.
type htmlConverter struct{}

func (htmlConverter) Convert(ctx context.Context, in Input) (markdown, plain, method string, err error) {
	html := string(in.Bytes)

	articleHTML := html
	title := ""
	base, _ := url.Parse("about:" + in.FileName)
	if art, rerr := readability.FromReader(strings.NewReader(html), base); rerr == nil && strings.TrimSpace(art.Content) != "" {
		articleHTML = art.Content
		title = strings.TrimSpace(art.Title)
	}

	md, mdErr := htmltomarkdown.ConvertString(articleHTML, converter.WithDomain(""))
	if mdErr != nil {
		return "", "", "", fmt.Errorf("html to markdown: %w", mdErr)
	}
	if title != "" && !strings.HasPrefix(strings.TrimSpace(md), "# ") {
		md = "# " + title + "\n\n" + md
	}

	plainText := stripMarkdown(md)
	return strings.TrimSpace(md), strings.TrimSpace(plainText), "html-to-markdown", nil
}

// stripMarkdown is a light pass removing the most common markdown
// punctuation so entity extraction sees prose rather than syntax, used
// whenever a plain-text serialization is required alongside markdown.
func stripMarkdown(md string) string {
	r := strings.NewReplacer(
		"#", "",
		"*", "",
		"_", "",
		"`", "",
		">", "",
	)
	lines := strings.Split(md, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if strings.HasPrefix(trimmed, "|") || isRuleLine(trimmed) {
			continue
		}
		out = append(out, r.Replace(l))
	}
	return strings.Join(out, "\n")
}

func isRuleLine(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '-' && r != ' ' && r != ':' {
			return false
		}
	}
	return strings.Contains(s, "-")
}
