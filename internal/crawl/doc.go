// Package crawl implements the target-driven search coordinator: the page
// partition scheduler, the shared dedup/termination state, the per-page
// metadata extractor, the worker page walk, and the iterative-deepening
// retry controller.
package crawl
