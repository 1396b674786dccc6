package crawl

// Record is one extracted agreement. Textual fields default to empty and are
// filled opportunistically; a missing field is not an error.
type Record struct {
	Title         string
	ApprovalDate  string
	NominalExpiry string
	Status        string
	AgreementType string
	AgreementCode string
	Industry      string
	FWCACode      string
	DownloadURL   string
	PageNumber    int
	WorkerID      int
}
