package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// ExternalTool converts formats this package has no in-process decoder
// for (DOCX, PPTX, and image OCR) by shelling out to a converter binary
// on PATH. PDF (github.com/ledongthuc/pdf) and XLSX
// (github.com/xuri/excelize/v2) have pure-Go decoders and are handled
// in-process below.
type ExternalTool interface {
	// Convert shells out to render path to markdown, returning the tool
	// name used (for ConversionMethod).
	Convert(ctx context.Context, path string, ext string) (markdown string, method string, err error)
}

// externalConverter is the formatConverter that dispatches PDF and XLSX
// in-process and everything else to an injected ExternalTool.
type externalConverter struct {
	tool ExternalTool
}

func (e externalConverter) Convert(ctx context.Context, in Input) (markdown, plain, method string, err error) {
	ext := strings.ToLower(filepath.Ext(in.FileName))
	switch ext {
	case ".pdf":
		return convertPDF(in)
	case ".xlsx":
		return convertXLSX(in)
	default:
		if e.tool == nil {
			return "", "", "", fmt.Errorf("no external converter configured for %s", ext)
		}
		tmp, err := os.CreateTemp("", "hybridrag-convert-*"+ext)
		if err != nil {
			return "", "", "", fmt.Errorf("create temp file: %w", err)
		}
		defer os.Remove(tmp.Name())
		if _, err := tmp.Write(in.Bytes); err != nil {
			tmp.Close()
			return "", "", "", fmt.Errorf("write temp file: %w", err)
		}
		tmp.Close()

		md, method, err := e.tool.Convert(ctx, tmp.Name(), ext)
		if err != nil {
			return "", "", "", err
		}
		return md, md, method, nil
	}
}

func convertPDF(in Input) (markdown, plain, method string, err error) {
	tmp, err := os.CreateTemp("", "hybridrag-pdf-*.pdf")
	if err != nil {
		return "", "", "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(in.Bytes); err != nil {
		tmp.Close()
		return "", "", "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	f, r, err := pdf.Open(tmp.Name())
	if err != nil {
		return "", "", "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	totalPages := r.NumPage()
	for i := 1; i <= totalPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n\n")
	}
	text := strings.TrimSpace(buf.String())
	return text, text, "pdf-native", nil
}

func convertXLSX(in Input) (markdown, plain, method string, err error) {
	tmp, err := os.CreateTemp("", "hybridrag-xlsx-*.xlsx")
	if err != nil {
		return "", "", "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(in.Bytes); err != nil {
		tmp.Close()
		return "", "", "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	f, err := excelize.OpenFile(tmp.Name())
	if err != nil {
		return "", "", "", fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	var md, pl strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		md.WriteString("## " + sheet + "\n\n")
		pl.WriteString(sheet + "\n")
		for i, row := range rows {
			md.WriteString("| " + strings.Join(row, " | ") + " |\n")
			if i == 0 {
				sep := make([]string, len(row))
				for j := range sep {
					sep[j] = "---"
				}
				md.WriteString("| " + strings.Join(sep, " | ") + " |\n")
			}
			pl.WriteString(strings.Join(row, " ") + "\n")
		}
		md.WriteString("\n")
	}
	return strings.TrimSpace(md.String()), strings.TrimSpace(pl.String()), "xlsx-native", nil
}

// DevFakeTool is an ExternalTool stand-in for tests and local development
// when no real DOCX/PPTX/OCR converter binary is installed: it returns the
// file's raw bytes decoded as UTF-8 best-effort, tagging the method so
// callers can tell output came from the fake.
type DevFakeTool struct{}

func (DevFakeTool) Convert(ctx context.Context, path string, ext string) (markdown, method string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), "dev-fake:" + ext, nil
}

// ShellTool shells out to pandoc (or any compatible binary named by
// Binary) to render DOCX/PPTX to markdown. Image OCR is not wired to
// this tool and returns an error.
type ShellTool struct {
	// Binary defaults to "pandoc" when empty.
	Binary string
}

func (s ShellTool) Convert(ctx context.Context, path string, ext string) (markdown, method string, err error) {
	switch ext {
	case ".docx", ".pptx":
		bin := s.Binary
		if bin == "" {
			bin = "pandoc"
		}
		out, err := exec.CommandContext(ctx, bin, "-f", strings.TrimPrefix(ext, "."), "-t", "markdown", path).Output()
		if err != nil {
			return "", "", fmt.Errorf("%s %s: %w", bin, path, err)
		}
		return string(out), bin, nil
	default:
		return "", "", fmt.Errorf("no shell converter for %s (image OCR is not wired)", ext)
	}
}
