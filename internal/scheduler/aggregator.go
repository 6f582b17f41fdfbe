package scheduler

import (
	"sync"
	"time"

	"github.com/docweave/crawler/internal/storage"
)

// crawlAggregator folds the concurrent output of every worker goroutine
// into one CrawlResult. Every method locks a single mutex; callers never
// touch the underlying slices directly, so it is safe to share one
// aggregator across the whole worker pool.
type crawlAggregator struct {
	mu sync.Mutex

	totalErrors int
	totalAssets int

	perHostRequests map[string]int
	pages           []PageResult
	issues          []Issue
	writeResults    []storage.WriteResult
}

func newCrawlAggregator() *crawlAggregator {
	return &crawlAggregator{
		perHostRequests: make(map[string]int),
	}
}

func (a *crawlAggregator) recordError() {
	a.mu.Lock()
	a.totalErrors++
	a.mu.Unlock()
}

func (a *crawlAggregator) recordAssets(n int) {
	if n == 0 {
		return
	}
	a.mu.Lock()
	a.totalAssets += n
	a.mu.Unlock()
}

func (a *crawlAggregator) recordHostRequest(host string) {
	a.mu.Lock()
	a.perHostRequests[host]++
	a.mu.Unlock()
}

func (a *crawlAggregator) addIssue(issue Issue) {
	a.mu.Lock()
	a.issues = append(a.issues, issue)
	a.mu.Unlock()
}

func (a *crawlAggregator) addPage(page PageResult, write storage.WriteResult) {
	a.mu.Lock()
	a.pages = append(a.pages, page)
	a.writeResults = append(a.writeResults, write)
	a.mu.Unlock()
}

// result builds the terminal CrawlResult. visitedCount/duration come from
// the frontier and the wall clock respectively, neither of which the
// aggregator itself tracks.
func (a *crawlAggregator) result(visitedCount int, duration time.Duration) CrawlResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	hostCounts := make(map[string]int, len(a.perHostRequests))
	for host, count := range a.perHostRequests {
		hostCounts[host] = count
	}
	pages := make([]PageResult, len(a.pages))
	copy(pages, a.pages)
	issues := make([]Issue, len(a.issues))
	copy(issues, a.issues)
	writeResults := make([]storage.WriteResult, len(a.writeResults))
	copy(writeResults, a.writeResults)

	return CrawlResult{
		Stats: CrawlStats{
			TotalPages:      len(pages),
			TotalErrors:     a.totalErrors,
			TotalAssets:     a.totalAssets,
			VisitedCount:    visitedCount,
			Duration:        duration,
			PerHostRequests: hostCounts,
		},
		Pages:        pages,
		Issues:       issues,
		WriteResults: writeResults,
	}
}

func (a *crawlAggregator) snapshotErrors() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totalErrors
}

func (a *crawlAggregator) snapshotAssets() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totalAssets
}
