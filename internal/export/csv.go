// Package export writes crawl results to disk.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fwcsearch/agreement-finder/internal/crawl"
)

var csvColumns = []string{
	"Title",
	"Approval Date",
	"Expiry Date",
	"Agreement status",
	"Agreement Type",
	"Agreement reference code",
	"Industry",
	"Citation(FWCA Code)",
	"Download URL",
	"Page Number",
	"Worker ID",
}

// CSVSink writes result records to timestamped CSV files under a directory.
type CSVSink struct {
	dir string
	now func() time.Time
}

// NewCSVSink creates the output directory if needed.
func NewCSVSink(dir string) (*CSVSink, error) {
	if dir == "" {
		dir = "output"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", dir, err)
	}
	return &CSVSink{dir: dir, now: time.Now}, nil
}

// Write stores records in a new timestamped CSV file and returns its path.
func (s *CSVSink) Write(records []crawl.Record) (string, error) {
	name := fmt.Sprintf("target_agreements_%s.csv", s.now().Format("20060102_150405"))
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvColumns); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Title,
			r.ApprovalDate,
			r.NominalExpiry,
			r.Status,
			r.AgreementType,
			r.AgreementCode,
			r.Industry,
			r.FWCACode,
			r.DownloadURL,
			strconv.Itoa(r.PageNumber),
			strconv.Itoa(r.WorkerID),
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return path, nil
}
