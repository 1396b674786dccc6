// Command agreementfinder searches the FWC tribunal document-search index
// for a configured set of known agreement document URLs using parallel
// headless-browser workers, exporting matched records to CSV.
package main
