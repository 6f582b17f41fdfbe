package robots

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/docweave/crawler/internal/metadata"
	"github.com/docweave/crawler/internal/robots/cache"
)

/*
Responsibilities

- Fetch robots.txt per host
- Cache rules for crawl duration
- Enforce allow/disallow rules before enqueue

Robots checks occur before a URL enters the frontier.
*/

// Robot is the scheduler's admission-time robots.txt port. CachedRobot is
// the only production implementation; tests substitute their own.
type Robot interface {
	Init(userAgent string)
	Decide(u url.URL) (Decision, *RobotsError)
}

// ruleSetCache memoizes the mapped ruleSet per host for the lifetime of a
// crawl, so a host's robots.txt is fetched at most once regardless of how
// many URLs on that host are decided.
type ruleSetCache struct {
	mu    sync.RWMutex
	rules map[string]ruleSet
}

// CachedRobot is the Robot implementation used by the pipeline: it wraps a
// RobotsFetcher with a per-host ruleSet cache and turns a raw fetch result
// into an allow/disallow Decision.
type CachedRobot struct {
	sink      metadata.MetadataSink
	userAgent string
	fetcher   *RobotsFetcher
	httpCache cache.Cache
	state     *ruleSetCache
}

// NewCachedRobot constructs a robot bound to the given metadata sink. Init
// or InitWithCache must be called before Decide is used.
func NewCachedRobot(sink metadata.MetadataSink) CachedRobot {
	return CachedRobot{sink: sink}
}

// Init prepares the robot with no robots.txt body cache (each host is still
// memoized in-process via the ruleSet cache).
func (r *CachedRobot) Init(userAgent string) {
	r.userAgent = userAgent
	r.fetcher = NewRobotsFetcher(r.sink, userAgent, nil)
	r.state = &ruleSetCache{rules: make(map[string]ruleSet)}
}

// InitWithCache prepares the robot with a backing cache.Cache for the raw
// robots.txt fetch result, in addition to the in-process ruleSet cache.
func (r *CachedRobot) InitWithCache(userAgent string, c cache.Cache) {
	r.userAgent = userAgent
	r.httpCache = c
	r.fetcher = NewRobotsFetcher(r.sink, userAgent, c)
	r.state = &ruleSetCache{rules: make(map[string]ruleSet)}
}

func hostKey(u url.URL) string {
	scheme := u.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + u.Host
}

// Decide determines whether u may be crawled under this robot's user agent.
func (r *CachedRobot) Decide(u url.URL) (Decision, *RobotsError) {
	key := hostKey(u)

	r.state.mu.RLock()
	rs, cached := r.state.rules[key]
	r.state.mu.RUnlock()

	if !cached {
		scheme := u.Scheme
		if scheme == "" {
			scheme = "http"
		}

		result, fetchErr := r.fetcher.Fetch(context.Background(), scheme, u.Host)
		if fetchErr != nil {
			r.sink.RecordError(
				time.Now(),
				"robots",
				"fetch",
				mapRobotsErrorToMetadataCause(fetchErr),
				fetchErr.Error(),
				[]metadata.Attribute{metadata.NewAttr(metadata.AttrHost, u.Host)},
			)
			return Decision{}, fetchErr
		}

		rs = MapResponseToRuleSet(result.Response, r.userAgent, result.FetchedAt)
		r.state.mu.Lock()
		r.state.rules[key] = rs
		r.state.mu.Unlock()
	}

	return evaluate(u, rs), nil
}

// evaluate applies the robots.txt precedence rule (longest matching pattern
// wins; Allow and Disallow compete on equal footing) to u.Path.
func evaluate(u url.URL, rs ruleSet) Decision {
	decision := Decision{Url: u}
	if rs.CrawlDelay() != nil {
		decision.CrawlDelay = *rs.CrawlDelay()
	}

	if !rs.hasGroups {
		decision.Allowed = true
		decision.Reason = EmptyRuleSet
		return decision
	}
	if !rs.matchedGroup {
		decision.Allowed = true
		decision.Reason = UserAgentNotMatched
		return decision
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	bestLen := -1
	bestAllow := true
	matchedAny := false

	for _, rule := range rs.allowRules {
		if matchesRobotsPattern(path, rule.prefix) {
			matchedAny = true
			if len(rule.prefix) > bestLen {
				bestLen = len(rule.prefix)
				bestAllow = true
			}
		}
	}
	for _, rule := range rs.disallowRules {
		if matchesRobotsPattern(path, rule.prefix) {
			matchedAny = true
			if len(rule.prefix) > bestLen {
				bestLen = len(rule.prefix)
				bestAllow = false
			}
		}
	}

	if !matchedAny {
		decision.Allowed = true
		decision.Reason = NoMatchingRules
		return decision
	}

	decision.Allowed = bestAllow
	if bestAllow {
		decision.Reason = AllowedByRobots
	} else {
		decision.Reason = DisallowedByRobots
	}
	return decision
}

// matchesRobotsPattern implements the robots.txt wildcard grammar: '*'
// matches any sequence of characters, a trailing '$' anchors the match to
// the end of path.
func matchesRobotsPattern(path, pattern string) bool {
	if pattern == "" {
		return false
	}

	endAnchored := strings.HasSuffix(pattern, "$")
	if endAnchored {
		pattern = pattern[:len(pattern)-1]
	}

	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		if endAnchored {
			return path == parts[0]
		}
		return strings.HasPrefix(path, parts[0])
	}

	if !strings.HasPrefix(path, parts[0]) {
		return false
	}
	pos := len(parts[0])

	for i := 1; i < len(parts)-1; i++ {
		if parts[i] == "" {
			continue
		}
		idx := strings.Index(path[pos:], parts[i])
		if idx == -1 {
			return false
		}
		pos += idx + len(parts[i])
	}

	last := parts[len(parts)-1]
	if endAnchored {
		return strings.HasSuffix(path[pos:], last)
	}
	if last == "" {
		return true
	}
	return strings.Contains(path[pos:], last)
}

// String identifies the robot by the user agent it was initialised with,
// for logging.
func (r *CachedRobot) String() string {
	return fmt.Sprintf("CachedRobot(%s)", r.userAgent)
}
