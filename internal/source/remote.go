package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// RemoteKind distinguishes the two supported repository connectors. Both
// speak plain HTTP REST with no dedicated Go client library, so
// RemoteSource talks to them with net/http directly, streaming fetched
// bytes to a temp file and then reading the whole file into memory.
type RemoteKind string

const (
	RemoteCMIS      RemoteKind = "cmis"
	RemoteAlfresco  RemoteKind = "alfresco"
)

// RemoteConfig is the connection surface for a CMIS or Alfresco repository.
type RemoteConfig struct {
	Kind       RemoteKind
	BaseURL    string
	Username   string
	Password   string
	FolderPath string // CMIS
	Path       string // Alfresco
}

// remoteEntry is a single repository listing entry as both connectors
// expose it: an id to fetch content by, a display name, a flag for
// recursion, and a mime/extension hint for format filtering.
type remoteEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsFolder bool   `json:"isFolder"`
	MimeType string `json:"mimeType"`
}

// RemoteSource lists and fetches documents from a CMIS or Alfresco
// repository over its REST browser binding, recursing through folders.
type RemoteSource struct {
	cfg    RemoteConfig
	client *http.Client
}

// NewRemoteSource constructs a RemoteSource for the given connector config.
func NewRemoteSource(cfg RemoteConfig) *RemoteSource {
	return &RemoteSource{cfg: cfg, client: &http.Client{}}
}

func (s *RemoteSource) rootPath() string {
	if s.cfg.Kind == RemoteCMIS {
		return s.cfg.FolderPath
	}
	return s.cfg.Path
}

func (s *RemoteSource) Enumerate(ctx context.Context, out chan<- DocumentRef) error {
	defer close(out)
	return s.enumerateFolder(ctx, s.rootPath(), out)
}

func (s *RemoteSource) enumerateFolder(ctx context.Context, path string, out chan<- DocumentRef) error {
	entries, err := s.list(ctx, path)
	if err != nil {
		return fmt.Errorf("list %s %s: %w", s.cfg.Kind, path, err)
	}
	for _, e := range entries {
		childPath := strings.TrimRight(path, "/") + "/" + e.Name
		if e.IsFolder {
			if err := s.enumerateFolder(ctx, childPath, out); err != nil {
				return err
			}
			continue
		}
		if !SupportedExt(strings.ToLower(filepath.Ext(e.Name))) {
			continue
		}
		select {
		case out <- DocumentRef{DisplayName: e.Name, opaque: e.ID}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *RemoteSource) list(ctx context.Context, path string) ([]remoteEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"/browse?path="+path, nil)
	if err != nil {
		return nil, err
	}
	if s.cfg.Username != "" {
		req.SetBasicAuth(s.cfg.Username, s.cfg.Password)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var entries []remoteEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	return entries, nil
}

// Fetch streams the document's content into a process-private temporary
// file, then reads that file into Bytes. The caller must invoke Cleanup,
// which removes the temp file, after it is done reading Bytes; the temp
// path itself is not exposed.
// On fetch failure the temp file, if created, is removed before returning.
func (s *RemoteSource) Fetch(ctx context.Context, ref DocumentRef) (Fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"/content/"+ref.opaque, nil)
	if err != nil {
		return Fetched{}, err
	}
	if s.cfg.Username != "" {
		req.SetBasicAuth(s.cfg.Username, s.cfg.Password)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Fetched{}, fmt.Errorf("fetch %s: %w", ref.opaque, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Fetched{}, fmt.Errorf("fetch %s: unexpected status %d", ref.opaque, resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "hybridrag-remote-*"+filepath.Ext(ref.DisplayName))
	if err != nil {
		return Fetched{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return Fetched{}, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	data, err := os.ReadFile(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return Fetched{}, fmt.Errorf("read temp file: %w", err)
	}

	return Fetched{
		Bytes:       data,
		Mime:        resp.Header.Get("Content-Type"),
		DisplayName: ref.DisplayName,
		Cleanup:     func() { os.Remove(tmpPath) },
	}, nil
}
