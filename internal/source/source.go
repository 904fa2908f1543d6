// Package source enumerates and fetches raw bytes from filesystem, CMIS,
// Alfresco, and S3 origins, normalized to a stream of (name, bytes, mime)
// tuples.
package source

import "context"

// DocumentRef is opaque to callers; only the source that produced it knows
// how to resolve it with Fetch.
type DocumentRef struct {
	// DisplayName is the human-readable name shown in job progress and
	// passed through to the converter as the document's file name.
	DisplayName string
	// opaque carries source-specific addressing (a filesystem path, a CMIS
	// object id, an Alfresco node id).
	opaque string
}

// Fetched is the raw bytes resolved from a DocumentRef, plus the mime type
// and display name the converter needs to dispatch correctly.
type Fetched struct {
	Bytes       []byte
	Mime        string
	DisplayName string
	// Cleanup releases any temporary resource (e.g. a temp file) backing
	// Bytes. It is always safe to call, even after Bytes has been read.
	Cleanup func()
}

// Source enumerates documents lazily and fetches their bytes on demand.
// Enumerate errors are transport/auth failures and are fatal to the job;
// per-document Fetch errors are logged and skipped by the caller.
type Source interface {
	// Enumerate sends one DocumentRef per selected document to out and
	// closes it when enumeration completes or ctx is done. Only documents
	// whose file extension SupportedExt accepts are sent.
	Enumerate(ctx context.Context, out chan<- DocumentRef) error
	// Fetch resolves a DocumentRef to its raw bytes.
	Fetch(ctx context.Context, ref DocumentRef) (Fetched, error)
}

// SupportedExt reports whether ext (including the leading dot, lower case)
// is one of the converter-supported formats.
func SupportedExt(ext string) bool {
	_, ok := supportedExtensions[ext]
	return ok
}

var supportedExtensions = map[string]struct{}{
	".pdf":  {},
	".docx": {},
	".pptx": {},
	".xlsx": {},
	".html": {},
	".xhtml": {},
	".htm":  {},
	".txt":  {},
	".md":   {},
	".adoc": {},
	".csv":  {},
	".json": {},
	".xml":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".tiff": {},
	".tif":  {},
	".bmp":  {},
	".webp": {},
}
