// Package download fetches matched agreement documents to local disk.
package download

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/fwcsearch/agreement-finder/internal/crawl"
)

const defaultFetchTimeout = 30 * time.Second

// Downloader saves agreement documents referenced by crawl records. Each
// worker's documents land in their own subdirectory.
type Downloader struct {
	baseDir   string
	userAgent string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewDownloader stores documents under baseDir/downloads.
func NewDownloader(baseDir, userAgent string, logger *zap.Logger) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseDir == "" {
		baseDir = "output"
	}
	if userAgent == "" {
		userAgent = "agreement-finder/1.0"
	}
	return &Downloader{
		baseDir:   filepath.Join(baseDir, "downloads"),
		userAgent: userAgent,
		timeout:   defaultFetchTimeout,
		logger:    logger,
	}
}

// FetchAll downloads every record's document, continuing past per-document
// failures. It returns the number saved.
func (d *Downloader) FetchAll(records []crawl.Record) int {
	saved := 0
	for _, r := range records {
		if r.DownloadURL == "" {
			continue
		}
		dest, err := d.fetch(r)
		if err != nil {
			d.logger.Warn("document download failed",
				zap.String("url", r.DownloadURL),
				zap.Error(err),
			)
			continue
		}
		d.logger.Info("document saved",
			zap.String("url", r.DownloadURL),
			zap.String("path", dest),
		)
		saved++
	}
	return saved
}

func (d *Downloader) fetch(r crawl.Record) (string, error) {
	dir := filepath.Join(d.baseDir, fmt.Sprintf("worker_%d", r.WorkerID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir %s: %w", dir, err)
	}
	dest := filepath.Join(dir, documentFilename(r))

	c := colly.NewCollector(colly.UserAgent(d.userAgent))
	c.SetRequestTimeout(d.timeout)

	var saveErr error
	c.OnResponse(func(resp *colly.Response) {
		saveErr = resp.Save(dest)
	})
	if err := c.Visit(r.DownloadURL); err != nil {
		return "", fmt.Errorf("fetch %s: %w", r.DownloadURL, err)
	}
	c.Wait()
	if saveErr != nil {
		return "", fmt.Errorf("save %s: %w", dest, saveErr)
	}
	return dest, nil
}

// documentFilename derives a filesystem name from the record, preferring the
// agreement code, then the URL's last path segment. PDF is assumed when the
// URL carries no extension.
func documentFilename(r crawl.Record) string {
	name := r.AgreementCode
	if name == "" {
		if u, err := url.Parse(r.DownloadURL); err == nil {
			name = path.Base(u.Path)
		}
	}
	if name == "" || name == "." || name == "/" {
		name = "document"
	}
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	if path.Ext(name) == "" {
		name += ".pdf"
	}
	return name
}
