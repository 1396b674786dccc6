package crawl

// Assignment pairs a worker id with the page numbers it must visit,
// in ascending order.
type Assignment struct {
	WorkerID int
	Pages    []int
}

// Assignments partitions pages among workers with interleaving: worker i
// gets startPage+i, startPage+i+workerCount, and so on, capped at maxPage.
// Interleaving keeps every worker on early pages so all make proportional
// progress when targets cluster by recency. Workers whose lists filter to
// empty are not scheduled.
func Assignments(workerCount, pagesPerWorker, startPage, maxPage int) []Assignment {
	if workerCount <= 0 || pagesPerWorker <= 0 {
		return nil
	}
	if startPage < 1 {
		startPage = 1
	}
	out := make([]Assignment, 0, workerCount)
	for i := 0; i < workerCount; i++ {
		pages := make([]int, 0, pagesPerWorker)
		for k := 0; k < pagesPerWorker; k++ {
			p := startPage + i + workerCount*k
			if p <= maxPage {
				pages = append(pages, p)
			}
		}
		if len(pages) > 0 {
			out = append(out, Assignment{WorkerID: i, Pages: pages})
		}
	}
	return out
}
