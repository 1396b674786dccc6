package download

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fwcsearch/agreement-finder/internal/crawl"
)

func TestFetchAllSavesDocuments(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/document-search/view/3/abc" {
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.4 fake"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := NewDownloader(dir, "test-agent", zap.NewNop())

	saved := d.FetchAll([]crawl.Record{
		{
			DownloadURL:   srv.URL + "/document-search/view/3/abc",
			AgreementCode: "AE123456",
			WorkerID:      1,
		},
		{DownloadURL: srv.URL + "/missing", WorkerID: 1},
		{WorkerID: 2},
	})
	require.Equal(t, 1, saved)

	body, err := os.ReadFile(filepath.Join(dir, "downloads", "worker_1", "AE123456.pdf"))
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 fake", string(body))
}

func TestDocumentFilename(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		rec  crawl.Record
		want string
	}{
		{
			"agreement code wins",
			crawl.Record{AgreementCode: "AE123456", DownloadURL: "https://example.test/view/3/abc"},
			"AE123456.pdf",
		},
		{
			"falls back to url path",
			crawl.Record{DownloadURL: "https://example.test/docs/agreement.pdf"},
			"agreement.pdf",
		},
		{
			"extensionless path gets pdf",
			crawl.Record{DownloadURL: "https://example.test/view/3/abc"},
			"abc.pdf",
		},
		{
			"empty record",
			crawl.Record{},
			"document.pdf",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, documentFilename(tc.rec))
		})
	}
}
