package convert

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hybridrag/internal/engine/errs"
)

func TestConvert_PlainText(t *testing.T) {
	c := New(DevFakeTool{})
	doc, err := c.Convert(context.Background(), Input{
		Bytes:    []byte("hello world"),
		FileName: "a.txt",
		Source:   "test",
	}, Options{})
	require.NoError(t, err)
	require.Equal(t, "hello world", doc.Text)
	require.Equal(t, "passthrough", doc.ConversionMethod)
}

func TestConvert_SelectsMarkdownWhenTablePresent(t *testing.T) {
	md := "| a | b |\n| --- | --- |\n| 1 | 2 |\n"
	require.True(t, hasMarkdownTable(md))
	require.False(t, hasMarkdownTable("just prose with a | pipe but no rule"))
}

func TestConvert_UnsupportedExtension(t *testing.T) {
	c := New(DevFakeTool{})
	_, err := c.Convert(context.Background(), Input{
		Bytes:    []byte("x"),
		FileName: "a.zip",
	}, Options{})
	require.Error(t, err)
}

func TestConvert_FallsBackToMimeWhenNameHasNoExtension(t *testing.T) {
	c := New(DevFakeTool{})
	doc, err := c.Convert(context.Background(), Input{
		Bytes:    []byte("Paul is the heir of House Atreides"),
		Mime:     "text/plain",
		FileName: "sample-test",
		Source:   "sample-test",
	}, Options{})
	require.NoError(t, err)
	require.Equal(t, "Paul is the heir of House Atreides", doc.Text)
}

func TestConvert_UnsupportedExtensionAndMimeStillErrors(t *testing.T) {
	c := New(DevFakeTool{})
	_, err := c.Convert(context.Background(), Input{
		Bytes:    []byte("x"),
		FileName: "a.zip",
		Mime:     "application/zip",
	}, Options{})
	require.Error(t, err)
}

func TestConvert_CancellationAbortsConversion(t *testing.T) {
	c := New(blockingTool{})
	cancelled := false
	_, err := c.Convert(context.Background(), Input{
		Bytes:    []byte("doesn't matter"),
		FileName: "a.docx",
	}, Options{
		CancelCheckInterval: time.Millisecond,
		IsCancelled:         func() bool { cancelled = true; return true },
	})
	require.True(t, cancelled)
	require.Error(t, err)
}

// blockingTool never returns until well after ctx is cancelled, so Convert's
// select reliably takes the runCtx.Done() branch instead of racing a fast
// resCh send (as DevFakeTool's instant return would).
type blockingTool struct{}

func (blockingTool) Convert(ctx context.Context, path string, ext string) (string, string, error) {
	<-ctx.Done()
	time.Sleep(50 * time.Millisecond)
	return "", "", ctx.Err()
}

func TestConvert_UserCancellationReturnsCancelledNotTimeout(t *testing.T) {
	c := New(blockingTool{})
	_, err := c.Convert(context.Background(), Input{
		Bytes:    []byte("x"),
		FileName: "a.docx",
	}, Options{
		CancelCheckInterval: time.Millisecond,
		Timeout:             time.Hour,
		IsCancelled:         func() bool { return true },
	})
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindCancelled), "expected KindCancelled, got %v", err)
	require.False(t, errs.Is(err, errs.KindTimeout))
}

func TestConvert_WallClockTimeoutReturnsTimeoutNotCancelled(t *testing.T) {
	c := New(blockingTool{})
	_, err := c.Convert(context.Background(), Input{
		Bytes:    []byte("x"),
		FileName: "a.docx",
	}, Options{
		CancelCheckInterval: time.Millisecond,
		Timeout:             5 * time.Millisecond,
		IsCancelled:         func() bool { return false },
	})
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindTimeout), "expected KindTimeout, got %v", err)
	require.False(t, errs.Is(err, errs.KindCancelled))
}

func TestDevFakeTool_ReturnsBytesAsMarkdown(t *testing.T) {
	tool := DevFakeTool{}
	tmp := t.TempDir() + "/doc.docx"
	require.NoError(t, os.WriteFile(tmp, []byte("fake docx body"), 0o644))
	md, method, err := tool.Convert(context.Background(), tmp, ".docx")
	require.NoError(t, err)
	require.Equal(t, "fake docx body", md)
	require.Equal(t, "dev-fake:.docx", method)
}
