package frontier

import (
	"strings"
	"sync"

	"github.com/docweave/crawler/internal/config"
	"github.com/docweave/crawler/internal/urlinfo"
)

/*
Frontier Responsibilities
- Maintain BFS ordering
- Deduplicate URLs
- Track crawl depth
- Prevent infinite traversal
- Knows nothing about:
	- fetching
	- extraction
	- markdown
	- storage

It is a data structure + policy module, not a pipeline executor.
*/

// CrawlingPolicy is the admission policy the Frontier enforces on every
// Submit call. It never re-derives robots.txt decisions: those are already
// baked into the CrawlAdmissionCandidate by the time it reaches Submit.
type CrawlingPolicy struct {
	maxDepth int
	maxPages int

	allowedHosts map[string]struct{}

	allowedPathPrefixes  []string
	excludedPathPrefixes []string
	allowPatterns        []string
	denyPatterns         []string

	followExternal           bool
	followExternalSubdomains bool
}

// NewCrawlingPolicy derives the depth/page limits and host allow-list from
// the engine config. Pattern/path filters and the follow-external flags are
// per-crawl and are layered in separately via CrawlingPolicy.WithTarget.
func NewCrawlingPolicy(cfg config.Config) CrawlingPolicy {
	return CrawlingPolicy{
		maxDepth:     cfg.MaxDepth(),
		maxPages:     cfg.MaxPages(),
		allowedHosts: cfg.AllowedHosts(),
	}
}

// WithTarget layers a CrawlTarget's scope rules (path/pattern filters,
// follow-external flags, and any tighter depth/page limit) onto the policy.
func (p CrawlingPolicy) WithTarget(target config.CrawlTarget) CrawlingPolicy {
	p.allowedPathPrefixes = target.AllowedPathPrefixes()
	p.excludedPathPrefixes = target.ExcludedPathPrefixes()
	p.allowPatterns = target.AllowPatterns()
	p.denyPatterns = target.DenyPatterns()
	p.followExternal = target.FollowExternal()
	p.followExternalSubdomains = target.FollowExternalSubdomains()
	if target.MaxDepth() > 0 {
		p.maxDepth = target.MaxDepth()
	}
	if target.MaxPages() > 0 {
		p.maxPages = target.MaxPages()
	}
	return p
}

// allows applies enqueue rules 3 through 6 of the six-point admission rule.
// Rules 1 (invalid URL) and 2 (already visited) are checked by the caller,
// which owns the visited set.
func (p CrawlingPolicy) allows(info urlinfo.URLInfo, depth int, visitedCount int) bool {
	if p.maxDepth > 0 && depth > p.maxDepth {
		return false
	}
	if p.maxPages > 0 && visitedCount >= p.maxPages {
		return false
	}
	if !p.passesPathAndPatternFilters(info) {
		return false
	}
	if p.isExternal(info) && !p.followExternal {
		return false
	}
	return true
}

func (p CrawlingPolicy) passesPathAndPatternFilters(info urlinfo.URLInfo) bool {
	path := info.Path()
	if len(p.allowedPathPrefixes) > 0 && !anyPrefixMatch(path, p.allowedPathPrefixes) {
		return false
	}
	if len(p.excludedPathPrefixes) > 0 && anyPrefixMatch(path, p.excludedPathPrefixes) {
		return false
	}

	normalized := info.NormalizedURL()
	if len(p.allowPatterns) > 0 && !anySubstringMatch(normalized, p.allowPatterns) {
		return false
	}
	if len(p.denyPatterns) > 0 && anySubstringMatch(normalized, p.denyPatterns) {
		return false
	}
	return true
}

// isExternal reports whether info's host falls outside the allowed-host
// set. An empty allowed-host set means "no restriction" (config.Config
// only has one when its seed URLs carry no hostname).
// An internal-subdomain only counts as internal when followExternalSubdomains
// is set; otherwise it is treated as external, per the frontier's rule 6.
func (p CrawlingPolicy) isExternal(info urlinfo.URLInfo) bool {
	if len(p.allowedHosts) == 0 {
		return false
	}
	if _, ok := p.allowedHosts[info.Host()]; ok {
		return false
	}
	for host := range p.allowedHosts {
		base := urlinfo.Parse("https://"+host+"/", nil)
		switch urlinfo.Classify(info, base) {
		case urlinfo.Internal:
			return false
		case urlinfo.InternalSubdomain:
			if p.followExternalSubdomains {
				return false
			}
		}
	}
	return true
}

func anyPrefixMatch(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func anySubstringMatch(s string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(s, pattern) {
			return true
		}
	}
	return false
}

// Frontier is the FIFO queue of admitted URLs plus the visited set. It
// enforces strict breadth-first ordering: no URL at depth N+1 is ever
// dequeued while a URL at depth <= N is still pending, even when the
// deeper URL was submitted first.
//
// Frontier is the sole owner of its internal state; every exported method
// locks a single mutex, so it is safe to call concurrently from any number
// of crawl workers.
type Frontier struct {
	mu sync.Mutex

	policy CrawlingPolicy

	queuesByDepth  map[int]*FIFOQueue[CrawlToken]
	pendingByDepth map[int]int

	visited Set[string]
}

// NewCrawlFrontier constructs an empty Frontier. Init must be called before
// Submit/Dequeue are used with meaningful limits; an un-Init'd Frontier
// behaves as if every limit is unlimited.
func NewCrawlFrontier() *Frontier {
	return &Frontier{
		queuesByDepth:  make(map[int]*FIFOQueue[CrawlToken]),
		pendingByDepth: make(map[int]int),
		visited:        NewSet[string](),
	}
}

// Init wires the engine-wide depth/page limits and host allow-list.
func (f *Frontier) Init(cfg config.Config) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.policy = NewCrawlingPolicy(cfg)
}

// SetTarget layers a per-crawl CrawlTarget's scope rules onto the policy
// already established by Init. Call it after Init, before the first Submit.
func (f *Frontier) SetTarget(target config.CrawlTarget) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.policy = f.policy.WithTarget(target)
}

// Submit applies the six-point enqueue rule to an already-admitted
// candidate. It is a no-op when the candidate fails any rule; otherwise the
// candidate's normalized URL is added to the visited set immediately (not
// at completion time) so concurrent duplicate submissions are suppressed.
func (f *Frontier) Submit(candidate CrawlAdmissionCandidate) {
	target := candidate.TargetURL()
	info := urlinfo.Parse(target.String(), nil)
	if !info.Valid() {
		return
	}
	normalized := info.NormalizedURL()
	depth := candidate.DiscoveryMetadata().Depth()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.visited.Contains(normalized) {
		return
	}
	if !f.policy.allows(info, depth, f.visited.Size()) {
		return
	}

	f.visited.Add(normalized)
	f.enqueueLocked(NewCrawlToken(target, depth))
}

func (f *Frontier) enqueueLocked(token CrawlToken) {
	depth := token.Depth()
	queue, ok := f.queuesByDepth[depth]
	if !ok {
		queue = NewFIFOQueue[CrawlToken]()
		f.queuesByDepth[depth] = queue
	}
	queue.Enqueue(token)
	f.pendingByDepth[depth]++
}

// Dequeue returns the next token in strict breadth-first order: the lowest
// depth with at least one pending token. It returns false when the frontier
// is empty.
func (f *Frontier) Dequeue() (CrawlToken, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	depth := f.currentMinDepthLocked()
	if depth == -1 {
		return CrawlToken{}, false
	}
	queue := f.queuesByDepth[depth]
	token, ok := queue.Dequeue()
	if !ok {
		return CrawlToken{}, false
	}
	f.pendingByDepth[depth]--
	return token, true
}

// VisitedCount returns the number of unique normalized URLs ever admitted,
// including ones already dequeued. The visited set is append-only.
func (f *Frontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited.Size()
}

// HasVisited reports whether normalizedURL has already been admitted, via
// Submit or MarkVisited. C7 uses this to short-circuit a redirect chain
// that lands on a URL some other path already fetched, instead of writing
// the same page's content twice.
func (f *Frontier) HasVisited(normalizedURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited.Contains(normalizedURL)
}

// MarkVisited adds normalizedURL to the visited set without enqueuing a
// token for it. C7 calls this when a fetch resolves (via redirect) to a
// URL that was never itself submitted, so a later independent discovery of
// that same URL is deduped exactly as if it had gone through Submit.
func (f *Frontier) MarkVisited(normalizedURL string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visited.Add(normalizedURL)
}

// IsDepthExhausted reports whether there are no pending (not yet dequeued)
// tokens at the given depth. Negative depths and depths the frontier has
// never seen are always exhausted.
func (f *Frontier) IsDepthExhausted(depth int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if depth < 0 {
		return true
	}
	return f.pendingByDepth[depth] <= 0
}

// CurrentMinDepth returns the lowest depth with a pending token, or -1 when
// the frontier holds no pending tokens.
func (f *Frontier) CurrentMinDepth() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currentMinDepthLocked()
}

func (f *Frontier) currentMinDepthLocked() int {
	minDepth := -1
	for depth, count := range f.pendingByDepth {
		if count <= 0 {
			continue
		}
		if minDepth == -1 || depth < minDepth {
			minDepth = depth
		}
	}
	return minDepth
}
