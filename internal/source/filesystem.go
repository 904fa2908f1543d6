package source

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemSource walks a list of paths, each possibly a file or a
// directory, yielding every converter-supported document found.
type FilesystemSource struct {
	Paths []string
}

// NewFilesystemSource strips surrounding quotation marks from each path,
// matching callers that paste quoted paths from a shell or file dialog.
func NewFilesystemSource(paths []string) *FilesystemSource {
	cleaned := make([]string, len(paths))
	for i, p := range paths {
		cleaned[i] = unquote(p)
	}
	return &FilesystemSource{Paths: cleaned}
}

func unquote(p string) string {
	p = strings.TrimSpace(p)
	if len(p) >= 2 {
		if (p[0] == '"' && p[len(p)-1] == '"') || (p[0] == '\'' && p[len(p)-1] == '\'') {
			return p[1 : len(p)-1]
		}
	}
	return p
}

func (s *FilesystemSource) Enumerate(ctx context.Context, out chan<- DocumentRef) error {
	defer close(out)
	for _, root := range s.Paths {
		info, err := os.Stat(root)
		if err != nil {
			return fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			if isSelectable(root) {
				select {
				case out <- DocumentRef{DisplayName: filepath.Base(root), opaque: root}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			continue
		}
		walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if !isSelectable(path) {
				return nil
			}
			select {
			case out <- DocumentRef{DisplayName: filepath.Base(path), opaque: path}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if walkErr != nil {
			return fmt.Errorf("walk %s: %w", root, walkErr)
		}
	}
	return nil
}

func (s *FilesystemSource) Fetch(ctx context.Context, ref DocumentRef) (Fetched, error) {
	data, err := os.ReadFile(ref.opaque)
	if err != nil {
		return Fetched{}, fmt.Errorf("read %s: %w", ref.opaque, err)
	}
	return Fetched{
		Bytes:       data,
		Mime:        mimeFor(ref.opaque),
		DisplayName: ref.DisplayName,
		Cleanup:     func() {},
	}, nil
}

func isSelectable(path string) bool {
	return SupportedExt(strings.ToLower(filepath.Ext(path)))
}

func mimeFor(path string) string {
	if m := mime.TypeByExtension(filepath.Ext(path)); m != "" {
		return m
	}
	return "application/octet-stream"
}
