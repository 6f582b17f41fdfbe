package config

import (
	"fmt"
	"net/url"
)

// CrawlTarget describes the scope of a single crawl: the seed URLs, how far
// and wide to follow links, and which content is in or out of bounds. It is
// intentionally separate from Config, which carries engine-wide settings
// (concurrency, retry/backoff, timeouts) that outlive any one crawl.
type CrawlTarget struct {
	seedURLs []url.URL

	maxDepth int
	maxPages int

	allowedPathPrefixes  []string
	excludedPathPrefixes []string
	allowPatterns        []string
	denyPatterns         []string
	allowedContentTypes  []string

	followExternal           bool
	followExternalSubdomains bool

	// concurrency overrides Config.Concurrency() for this crawl when > 0.
	concurrency int
}

// WithDefaultTarget creates a new CrawlTarget with the provided seed URLs and
// default values for all other fields. seedUrls is mandatory; Build returns
// an error if it is empty.
func WithDefaultTarget(seedUrls []url.URL) *CrawlTarget {
	return &CrawlTarget{
		seedURLs:                 seedUrls,
		maxDepth:                 3,
		maxPages:                 100,
		allowedPathPrefixes:      nil,
		excludedPathPrefixes:     nil,
		allowPatterns:            nil,
		denyPatterns:             nil,
		allowedContentTypes:      []string{"text/html"},
		followExternal:           false,
		followExternalSubdomains: false,
		concurrency:              0,
	}
}

func (t *CrawlTarget) WithMaxDepth(depth int) *CrawlTarget {
	t.maxDepth = depth
	return t
}

func (t *CrawlTarget) WithMaxPages(pages int) *CrawlTarget {
	t.maxPages = pages
	return t
}

func (t *CrawlTarget) WithAllowedPathPrefixes(prefixes []string) *CrawlTarget {
	t.allowedPathPrefixes = prefixes
	return t
}

func (t *CrawlTarget) WithExcludedPathPrefixes(prefixes []string) *CrawlTarget {
	t.excludedPathPrefixes = prefixes
	return t
}

func (t *CrawlTarget) WithAllowPatterns(patterns []string) *CrawlTarget {
	t.allowPatterns = patterns
	return t
}

func (t *CrawlTarget) WithDenyPatterns(patterns []string) *CrawlTarget {
	t.denyPatterns = patterns
	return t
}

func (t *CrawlTarget) WithAllowedContentTypes(contentTypes []string) *CrawlTarget {
	t.allowedContentTypes = contentTypes
	return t
}

func (t *CrawlTarget) WithFollowExternal(follow bool) *CrawlTarget {
	t.followExternal = follow
	return t
}

func (t *CrawlTarget) WithFollowExternalSubdomains(follow bool) *CrawlTarget {
	t.followExternalSubdomains = follow
	return t
}

func (t *CrawlTarget) WithConcurrency(concurrency int) *CrawlTarget {
	t.concurrency = concurrency
	return t
}

func (t *CrawlTarget) Build() (CrawlTarget, error) {
	if len(t.seedURLs) == 0 {
		return CrawlTarget{}, fmt.Errorf("%w: seedUrls cannot be empty", ErrInvalidConfig)
	}
	return *t, nil
}

func (t CrawlTarget) SeedURLs() []url.URL {
	urls := make([]url.URL, len(t.seedURLs))
	copy(urls, t.seedURLs)
	return urls
}

func (t CrawlTarget) MaxDepth() int { return t.maxDepth }

func (t CrawlTarget) MaxPages() int { return t.maxPages }

func (t CrawlTarget) AllowedPathPrefixes() []string {
	prefixes := make([]string, len(t.allowedPathPrefixes))
	copy(prefixes, t.allowedPathPrefixes)
	return prefixes
}

func (t CrawlTarget) ExcludedPathPrefixes() []string {
	prefixes := make([]string, len(t.excludedPathPrefixes))
	copy(prefixes, t.excludedPathPrefixes)
	return prefixes
}

func (t CrawlTarget) AllowPatterns() []string {
	patterns := make([]string, len(t.allowPatterns))
	copy(patterns, t.allowPatterns)
	return patterns
}

func (t CrawlTarget) DenyPatterns() []string {
	patterns := make([]string, len(t.denyPatterns))
	copy(patterns, t.denyPatterns)
	return patterns
}

func (t CrawlTarget) AllowedContentTypes() []string {
	contentTypes := make([]string, len(t.allowedContentTypes))
	copy(contentTypes, t.allowedContentTypes)
	return contentTypes
}

func (t CrawlTarget) FollowExternal() bool { return t.followExternal }

func (t CrawlTarget) FollowExternalSubdomains() bool { return t.followExternalSubdomains }

// Concurrency returns the per-target concurrency override, or 0 when the
// caller should fall back to Config.Concurrency().
func (t CrawlTarget) Concurrency() int { return t.concurrency }
