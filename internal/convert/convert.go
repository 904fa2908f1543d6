// Package convert dispatches raw document bytes by format to produce
// both a markdown and a plain-text serialization, selecting the form
// entity extraction works best on, with cooperative cancellation and a
// hard wall-clock timeout for CPU-bound conversions.
package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"hybridrag/internal/engine/errs"
	"hybridrag/internal/model"
)

// Input is what the converter receives from a fetched document.
type Input struct {
	Bytes    []byte
	Mime     string
	FileName string
	Source   string
}

// Options controls cancellation polling and the hard timeout.
type Options struct {
	CancelCheckInterval time.Duration
	Timeout             time.Duration
	// IsCancelled is polled every CancelCheckInterval; when it returns
	// true the conversion is abandoned.
	IsCancelled func() bool
}

// formatConverter produces a markdown rendering and a plain-text rendering
// of one document's bytes. Implementations must be safe to call from a
// background goroutine and should do no I/O beyond decoding the bytes they
// were given (DOCX/PPTX/image formats delegate to an external tool; PDF
// and XLSX are decoded in-process; see external.go).
type formatConverter interface {
	Convert(ctx context.Context, in Input) (markdown, plain, method string, err error)
}

// Converter dispatches by file extension to a registered formatConverter.
type Converter struct {
	byExt map[string]formatConverter
}

// New builds a Converter with the full dispatch table: native handling
// for HTML/text/markdown-like formats, in-process PDF/XLSX decoding, and
// an external-tool seam (see external.go) for DOCX/PPTX/images.
func New(external ExternalTool) *Converter {
	html := htmlConverter{}
	plain := plainTextConverter{}
	ext := externalConverter{tool: external}

	return &Converter{byExt: map[string]formatConverter{
		".html":  html,
		".xhtml": html,
		".htm":   html,
		".txt":   plain,
		".md":    plain,
		".adoc":  plain,
		".csv":   plain,
		".json":  plain,
		".xml":   plain,
		".pdf":   ext,
		".docx":  ext,
		".pptx":  ext,
		".xlsx":  ext,
		".png":   ext,
		".jpg":   ext,
		".jpeg":  ext,
		".tiff":  ext,
		".tif":   ext,
		".bmp":   ext,
		".webp":  ext,
	}}
}

// byMimeFallback dispatches by mime type when in.FileName carries no
// extension (or one not in byExt), keyed on the same formatConverter
// instances New wires into byExt.
func (c *Converter) byMimeFallback(mime string) (formatConverter, bool) {
	switch {
	case strings.HasPrefix(mime, "text/html"):
		return c.byExt[".html"], true
	case strings.HasPrefix(mime, "text/plain"), strings.HasPrefix(mime, "text/markdown"):
		return c.byExt[".txt"], true
	case strings.HasPrefix(mime, "text/csv"):
		return c.byExt[".csv"], true
	case strings.HasPrefix(mime, "application/json"):
		return c.byExt[".json"], true
	case strings.HasPrefix(mime, "application/xml"), strings.HasPrefix(mime, "text/xml"):
		return c.byExt[".xml"], true
	case strings.HasPrefix(mime, "application/pdf"):
		return c.byExt[".pdf"], true
	case strings.Contains(mime, "wordprocessingml"):
		return c.byExt[".docx"], true
	case strings.Contains(mime, "presentationml"):
		return c.byExt[".pptx"], true
	case strings.Contains(mime, "spreadsheetml"):
		return c.byExt[".xlsx"], true
	case strings.HasPrefix(mime, "image/"):
		return c.byExt[".png"], true
	default:
		return nil, false
	}
}

// Convert runs the registered converter for in's extension, polling
// opt.IsCancelled every opt.CancelCheckInterval and aborting after
// opt.Timeout elapses. It returns a model.Document whose Text holds
// whichever serialization (markdown or plain) is selected by the
// table-marker heuristic in choose().
func (c *Converter) Convert(ctx context.Context, in Input, opt Options) (model.Document, error) {
	ext := strings.ToLower(filepath.Ext(in.FileName))
	fc, ok := c.byExt[ext]
	if !ok {
		fc, ok = c.byMimeFallback(strings.ToLower(in.Mime))
		if !ok {
			return model.Document{}, errs.Bug(fmt.Sprintf("unsupported format %q", ext))
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, timeoutOrDefault(opt.Timeout))
	defer cancel()

	type result struct {
		markdown, plain, method string
		err                     error
	}
	resCh := make(chan result, 1)
	go func() {
		md, pl, method, err := fc.Convert(runCtx, in)
		resCh <- result{md, pl, method, err}
	}()

	interval := opt.CancelCheckInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var cancelledByUser bool
	for {
		select {
		case r := <-resCh:
			if r.err != nil {
				return model.Document{}, fmt.Errorf("convert %s: %w", in.FileName, r.err)
			}
			text := choose(r.markdown, r.plain)
			return model.Document{
				Source:           in.Source,
				FileName:         in.FileName,
				FileType:         ext,
				ConversionMethod: r.method,
				Text:             text,
			}, nil
		case <-runCtx.Done():
			if cancelledByUser || ctx.Err() != nil {
				return model.Document{}, errs.Cancelled("processing cancelled by user")
			}
			return model.Document{}, errs.Timeout(fmt.Sprintf("conversion of %s exceeded timeout", in.FileName), runCtx.Err())
		case <-ticker.C:
			if opt.IsCancelled != nil && opt.IsCancelled() {
				cancelledByUser = true
				cancel()
			}
		}
	}
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 300 * time.Second
	}
	return d
}

// choose applies a table-marker heuristic: markdown is selected iff a
// pipe and a header-rule sequence are both present, otherwise plain text
// is preferred because downstream entity extraction performs empirically
// better on prose.
func choose(markdown, plain string) string {
	if hasMarkdownTable(markdown) {
		return markdown
	}
	if plain != "" {
		return plain
	}
	return markdown
}

func hasMarkdownTable(s string) bool {
	if !strings.Contains(s, "|") {
		return false
	}
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		isRule := true
		sawDash := false
		for _, r := range trimmed {
			switch r {
			case '-', '|', ':', ' ':
				if r == '-' {
					sawDash = true
				}
			default:
				isRule = false
			}
			if !isRule {
				break
			}
		}
		if isRule && sawDash {
			return true
		}
	}
	return false
}
