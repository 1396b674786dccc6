package crawl

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

const testStartURL = "https://tribunalsearch.fwc.gov.au/document-search?q=*&options=SearchType_3%2CSortOrder_agreement-date-desc"

func TestPaginateSetsPageParam(t *testing.T) {
	t.Parallel()

	got, err := Paginate(testStartURL, 7)
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	require.Equal(t, "7", u.Query().Get("page"))
	require.Equal(t, "*", u.Query().Get("q"))
	require.Equal(t, "SearchType_3,SortOrder_agreement-date-desc", u.Query().Get("options"))
}

func TestPaginatePageOneIsParamFree(t *testing.T) {
	t.Parallel()

	deep, err := Paginate(testStartURL, 9)
	require.NoError(t, err)

	back, err := Paginate(deep, 1)
	require.NoError(t, err)

	u, err := url.Parse(back)
	require.NoError(t, err)
	require.False(t, u.Query().Has("page"))

	// Both routes to page 1 produce the same URL, so the visited-page
	// dedup key is stable.
	direct, err := Paginate(testStartURL, 1)
	require.NoError(t, err)
	require.Equal(t, direct, back)
}

func TestPaginateOverwritesExistingPage(t *testing.T) {
	t.Parallel()

	first, err := Paginate(testStartURL, 3)
	require.NoError(t, err)
	second, err := Paginate(first, 5)
	require.NoError(t, err)

	u, err := url.Parse(second)
	require.NoError(t, err)
	require.Equal(t, "5", u.Query().Get("page"))
}

func TestPaginateRejectsBadURL(t *testing.T) {
	t.Parallel()

	_, err := Paginate("://bad", 2)
	require.Error(t, err)
}

func TestApplyFiltersAddsTokens(t *testing.T) {
	t.Parallel()

	got, err := ApplyFilters(testStartURL, "Single-enterprise Agreement", "Approved")
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	opts := u.Query().Get("options")
	require.Contains(t, opts, "AgreementType_Single-enterprise_Agreement")
	require.Contains(t, opts, "Status_Approved")
	require.Contains(t, opts, "SearchType_3")
}

func TestApplyFiltersReplacesExistingToken(t *testing.T) {
	t.Parallel()

	once, err := ApplyFilters(testStartURL, "", "Approved")
	require.NoError(t, err)
	twice, err := ApplyFilters(once, "", "Terminated")
	require.NoError(t, err)

	u, err := url.Parse(twice)
	require.NoError(t, err)
	opts := u.Query().Get("options")
	require.Contains(t, opts, "Status_Terminated")
	require.NotContains(t, opts, "Status_Approved")
}

func TestApplyFiltersNoopWithoutFilters(t *testing.T) {
	t.Parallel()

	got, err := ApplyFilters(testStartURL, "", "")
	require.NoError(t, err)
	require.Equal(t, testStartURL, got)
}

func TestCanonicalizeStripsQuery(t *testing.T) {
	t.Parallel()

	raw := "https://tribunalsearch.fwc.gov.au/document-search/view/3/abc?sid=42&x=1"
	want := "https://tribunalsearch.fwc.gov.au/document-search/view/3/abc"
	require.Equal(t, want, Canonicalize(raw))

	// Idempotent.
	require.Equal(t, want, Canonicalize(Canonicalize(raw)))
	require.Equal(t, want, Canonicalize(want))
}

func TestSiteBase(t *testing.T) {
	t.Parallel()

	require.Equal(t, "https://tribunalsearch.fwc.gov.au", siteBase(testStartURL))
	require.Equal(t, "", siteBase("not a url"))
}
