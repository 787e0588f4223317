package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tekpress/cli/internal/injector"
)

const scanPage = `<html><body>
<div data-test-id="pin">
  <img src="https://img.example/small.jpg"
       srcset="https://img.example/a.jpg 100w, https://img.example/b.jpg 400w, https://img.example/c.jpg 1200w">
</div>
<div class="sidebar"><img src="https://img.example/ignored.jpg"></div>
</body></html>`

func stringFetcher(page string) func(ctx context.Context, target string) (io.ReadCloser, error) {
	return func(ctx context.Context, target string) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(page)), nil
	}
}

func TestScan_ReportsPrintableImages(t *testing.T) {
	setupStdoutCapture(t)

	c := ScanCmd{fetch: stringFetcher(scanPage)}
	count, err := c.scanOnce(context.Background(), ScanInput{Target: "page.html"})
	require.NoError(t, err)

	assert.Equal(t, 1, count)
	out := outBuf.String()
	assert.Contains(t, out, "https://img.example/c.jpg")
	assert.NotContains(t, out, "ignored.jpg")
}

func TestScan_AnnotateWritesDecoratedPage(t *testing.T) {
	setupStdoutCapture(t)

	outPath := filepath.Join(t.TempDir(), "annotated.html")
	c := ScanCmd{fetch: stringFetcher(scanPage)}

	_, err := c.scanOnce(context.Background(), ScanInput{Target: "page.html", Annotate: outPath})
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), injector.MarkerClass)
	assert.Contains(t, string(data), `data-image-url="https://img.example/c.jpg"`)
}

func TestScan_NoPrintableImages(t *testing.T) {
	setupStdoutCapture(t)

	c := ScanCmd{fetch: stringFetcher(`<html><body><img src="x.jpg"></body></html>`)}
	count, err := c.scanOnce(context.Background(), ScanInput{Target: "page.html"})
	require.NoError(t, err)

	assert.Equal(t, 0, count)
	assert.Contains(t, outBuf.String(), "No printable images")
}

func TestScan_WatchRejectsURLs(t *testing.T) {
	c := ScanCmd{fetch: fetchTarget}
	err := c.Run(context.Background(), ScanInput{Target: "https://example.com", Watch: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "local files")
}
