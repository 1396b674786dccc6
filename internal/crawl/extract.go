package crawl

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/fwcsearch/agreement-finder/internal/metrics"
)

// Selectors for the document-search result markup.
const (
	ResultItemSelector = ".fwc-results-item"

	chipSelector           = ".fwc-chip"
	titleSelector          = "h3"
	pdfIconAnchorSelector  = `a[href^="/document-search/view/"] img[alt="PDF"]`
	downloadButtonSelector = ".fwc-button"

	documentViewPathFmt = "%s/document-search/view/%s/%s"
)

var (
	fwcaTitlePattern      = regexp.MustCompile(`\[\d{4}\]\s*FWCA\s*\d+`)
	fwcaChipPattern       = regexp.MustCompile(`^\[\d{4}\]\s*FWCA\s*\d+$`)
	bareDatePattern       = regexp.MustCompile(`^\d{1,2}\s+[A-Za-z]+\s+\d{4}$`)
	agreementCodePattern  = regexp.MustCompile(`^AE\d+$`)
	downloadActionPattern = regexp.MustCompile(`downloadDocument\(['"](\d+)['"],\s*['"](.*?)['"]\)`)
	tagFilterPattern      = regexp.MustCompile(`applyTagAsFilter\(['"](.*?)['"],\s*['"](.*?)['"]\)`)
)

var agreementTypeValues = map[string]struct{}{
	"Single-enterprise Agreement": {},
	"Multi-enterprise Agreement":  {},
	"Greenfields Agreement":       {},
}

var statusValues = map[string]struct{}{
	"Approved":   {},
	"Current":    {},
	"Terminated": {},
	"Superseded": {},
}

var industryKeywords = []string{
	"industry", "Building", "Construction", "Metal",
	"Health", "Education", "Mining", "services",
}

// chipRule classifies one chip's text into one record field. Rules run in
// declaration order and every field is set-if-empty: a field populated by
// an earlier chip or by the title is never overwritten.
type chipRule struct {
	field func(*Record) *string
	match func(text string) (string, bool)
}

var chipRules = []chipRule{
	{field: func(r *Record) *string { return &r.ApprovalDate }, match: prefixedValue("Approved:")},
	{field: func(r *Record) *string { return &r.ApprovalDate }, match: patternValue(bareDatePattern)},
	{field: func(r *Record) *string { return &r.NominalExpiry }, match: prefixedValue("Nominal expiry:")},
	{field: func(r *Record) *string { return &r.AgreementCode }, match: patternValue(agreementCodePattern)},
	{field: func(r *Record) *string { return &r.FWCACode }, match: patternValue(fwcaChipPattern)},
	{field: func(r *Record) *string { return &r.AgreementType }, match: enumValue(agreementTypeValues)},
	{field: func(r *Record) *string { return &r.Industry }, match: keywordValue(industryKeywords)},
	{field: func(r *Record) *string { return &r.Status }, match: statusChipValue},
}

func prefixedValue(prefix string) func(string) (string, bool) {
	return func(text string) (string, bool) {
		if !strings.Contains(text, prefix) {
			return "", false
		}
		return strings.TrimSpace(strings.Replace(text, prefix, "", 1)), true
	}
}

func patternValue(re *regexp.Regexp) func(string) (string, bool) {
	return func(text string) (string, bool) {
		if !re.MatchString(text) {
			return "", false
		}
		return text, true
	}
}

func enumValue(values map[string]struct{}) func(string) (string, bool) {
	return func(text string) (string, bool) {
		_, ok := values[text]
		return text, ok
	}
}

func keywordValue(keywords []string) func(string) (string, bool) {
	return func(text string) (string, bool) {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				return text, true
			}
		}
		return "", false
	}
}

func statusChipValue(text string) (string, bool) {
	if _, ok := statusValues[text]; ok {
		return text, true
	}
	return prefixedValue("Status:")(text)
}

// Extractor decides which result fragments are targets and parses matched
// fragments into records. Full metadata parsing is deferred until a
// fragment's download URL matches a target.
type Extractor struct {
	baseURL string
	state   *State
	logger  *zap.Logger
}

// NewExtractor builds an extractor resolving relative links against the
// site named by startURL.
func NewExtractor(startURL string, state *State, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		baseURL: siteBase(startURL),
		state:   state,
		logger:  logger,
	}
}

// ExtractPage scans the page's result fragments in order and returns whether
// at least one target was matched. Scanning stops early once the full target
// set is covered.
func (e *Extractor) ExtractPage(items []*goquery.Selection, pageNum, workerID int) bool {
	metrics.ObserveFragments(len(items))
	found := false
	for _, item := range items {
		matched, complete := e.extractItem(item, pageNum, workerID)
		if matched {
			found = true
		}
		if complete {
			break
		}
	}
	return found
}

func (e *Extractor) extractItem(item *goquery.Selection, pageNum, workerID int) (matched, complete bool) {
	downloadURL, ok := e.downloadURL(item)
	if !ok {
		return false, false
	}
	if !e.state.IsTarget(downloadURL) {
		return false, false
	}
	if !e.state.TryClaimTarget(downloadURL) {
		e.logger.Info("target already claimed by another worker", zap.String("url", downloadURL))
		return false, false
	}
	e.logger.Info("found target",
		zap.String("url", downloadURL),
		zap.Int("page", pageNum),
	)
	metrics.ObserveTargetFound()

	rec := e.parseRecord(item, downloadURL, pageNum, workerID)
	e.state.RecordResult(rec)
	e.logger.Info("recorded agreement", zap.String("title", rec.Title))
	return true, e.state.AllTargetsFound()
}

// downloadURL resolves the fragment's canonical document URL via two ordered
// strategies: the embedded PDF-indicator link, then the inline download
// action descriptor. Fragments yielding neither are skipped.
func (e *Extractor) downloadURL(item *goquery.Selection) (string, bool) {
	if icon := item.Find(pdfIconAnchorSelector).First(); icon.Length() > 0 {
		if href, ok := icon.Parent().Attr("href"); ok && href != "" {
			return Canonicalize(e.absolute(href)), true
		}
	}
	if onclick, ok := item.Find(downloadButtonSelector).First().Attr("onclick"); ok {
		if m := downloadActionPattern.FindStringSubmatch(onclick); m != nil {
			return Canonicalize(fmt.Sprintf(documentViewPathFmt, e.baseURL, m[1], m[2])), true
		}
	}
	return "", false
}

func (e *Extractor) absolute(href string) string {
	if strings.HasPrefix(href, "/") {
		return e.baseURL + href
	}
	return href
}

func (e *Extractor) parseRecord(item *goquery.Selection, downloadURL string, pageNum, workerID int) Record {
	rec := Record{
		DownloadURL: downloadURL,
		PageNumber:  pageNum,
		WorkerID:    workerID,
	}
	if heading := item.Find(titleSelector).First(); heading.Length() > 0 {
		rec.Title = strings.TrimSpace(heading.Text())
		rec.FWCACode = fwcaTitlePattern.FindString(rec.Title)
	}
	item.Find(chipSelector).Each(func(_ int, chip *goquery.Selection) {
		text := strings.TrimSpace(chip.Text())
		applyChipRules(&rec, text)
		if onclick, ok := chip.Attr("onclick"); ok {
			applyFilterAction(&rec, onclick)
		}
	})
	return rec
}

func applyChipRules(rec *Record, text string) {
	if text == "" {
		return
	}
	for _, rule := range chipRules {
		dst := rule.field(rec)
		if *dst != "" {
			continue
		}
		if value, ok := rule.match(text); ok {
			*dst = value
		}
	}
}

// applyFilterAction parses a chip's inline filter descriptor and fills
// status/type/industry only when plain-text classification left them empty.
func applyFilterAction(rec *Record, onclick string) {
	m := tagFilterPattern.FindStringSubmatch(onclick)
	if m == nil {
		return
	}
	filterType, filterValue := m[1], m[2]
	switch filterType {
	case "Status":
		if rec.Status == "" {
			rec.Status = filterValue
		}
	case "AgreementType":
		if rec.AgreementType == "" {
			rec.AgreementType = filterValue
		}
	case "Industry":
		if rec.Industry == "" {
			rec.Industry = filterValue
		}
	}
}
