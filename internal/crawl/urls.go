package crawl

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	pageParam    = "page"
	optionsParam = "options"

	agreementTypeTokenPrefix = "AgreementType_"
	statusTokenPrefix        = "Status_"
)

// Paginate returns baseURL pointed at the given result page. Page 1 is
// canonically parameter-free so repeated visits collapse to the same
// visited-page key; all other query parameters are preserved.
func Paginate(baseURL string, page int) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	if page > 1 {
		q.Set(pageParam, strconv.Itoa(page))
	} else {
		q.Del(pageParam)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ApplyFilters injects agreement-type and status tokens into the comma-joined
// options parameter. Each filter type occupies at most one token, so
// re-applying the same filters is idempotent.
func ApplyFilters(rawURL, agreementType, status string) (string, error) {
	if agreementType == "" && status == "" {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	var tokens []string
	if opts := q.Get(optionsParam); opts != "" {
		tokens = strings.Split(opts, ",")
	}
	if agreementType != "" {
		tokens = replaceToken(tokens, agreementTypeTokenPrefix, agreementType)
	}
	if status != "" {
		tokens = replaceToken(tokens, statusTokenPrefix, status)
	}
	q.Set(optionsParam, strings.Join(tokens, ","))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func replaceToken(tokens []string, prefix, value string) []string {
	out := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		if !strings.HasPrefix(t, prefix) {
			out = append(out, t)
		}
	}
	return append(out, prefix+strings.ReplaceAll(value, " ", "_"))
}

// Canonicalize strips the query string so URLs that differ only by query
// parameters compare equal. Input that is not a URL passes through unchanged
// and simply never matches a target.
func Canonicalize(rawURL string) string {
	if i := strings.Index(rawURL, "?"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// siteBase extracts scheme://host for resolving relative document links.
func siteBase(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
