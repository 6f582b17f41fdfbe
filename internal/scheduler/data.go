package scheduler

import (
	"time"

	"github.com/docweave/crawler/internal/quality"
	"github.com/docweave/crawler/internal/storage"
)

type CrawlingExecution struct {
	WriteResults []storage.WriteResult
}

type PipelineOutcome struct {
	Continue bool
	Retry    bool
	Abort    bool
}

// Issue is a crawl-level finding recorded outside any PageResult: an
// admission failure on a seed, a fetch that could not be dispatched or
// gave up, a page whose content processing failed. Per-page quality
// findings travel on PageResult instead, via quality.Issue.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	PageURL string `json:"page_url,omitempty"`
}

// PageResult is everything the orchestrator kept about one successfully
// processed page: where it was written, what ContentProcessor produced,
// and what QualityChecker found in it.
type PageResult struct {
	URL         string          `json:"url"`
	Title       string          `json:"title"`
	OutputPath  string          `json:"output_path"`
	ContentHash string          `json:"content_hash"`
	Depth       int             `json:"depth"`
	Issues      []quality.Issue `json:"issues,omitempty"`
	Metrics     quality.Metrics `json:"metrics"`
}

// CrawlStats is the terminal, aggregate summary of one Crawl call. It is
// the library-facing counterpart to metadata.CrawlFinalizer's observational
// record: CrawlFinalizer exists so every run is logged; CrawlStats exists
// so the caller gets the same numbers back as a return value.
type CrawlStats struct {
	TotalPages      int            `json:"total_pages"`
	TotalErrors     int            `json:"total_errors"`
	TotalAssets     int            `json:"total_assets"`
	VisitedCount    int            `json:"visited_count"`
	Duration        time.Duration  `json:"duration_ns"`
	PerHostRequests map[string]int `json:"per_host_requests"`
}

// CrawlResult is the return value of the crawl(target, config) -> CrawlResult
// entry point: the full account of one crawl, suitable for serializing to
// JSON as the crawl's persisted summary alongside the Markdown it wrote.
type CrawlResult struct {
	Stats        CrawlStats           `json:"stats"`
	Pages        []PageResult         `json:"pages"`
	Issues       []Issue              `json:"issues,omitempty"`
	WriteResults []storage.WriteResult `json:"-"`
}
