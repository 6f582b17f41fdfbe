package backend

import (
	"strings"

	"github.com/docweave/crawler/internal/urlinfo"
)

/*
Responsibilities

- Score every registered backend against a target URL and content type
- Pick a winner without fetching or retrying anything
- Fall back to a wildcard backend when nothing scores above zero

Scoring (highest wins; ties broken by registration order):

  - host exact match:        +100
  - host suffix/glob match:  +60   (else disqualified, unless the pattern is "*")
  - content-type exact:      +40
  - content-type family:     +20   (e.g. criteria "text/*" against "text/plain")
  - content-type unknown:    +0
  - criteria.Priority added verbatim (may be negative)
  - HTML preference:         +10   when contentType is unspecified ("")
*/

const (
	scoreHostExact        = 100
	scoreHostSuffix       = 60
	scoreContentTypeExact = 40
	scoreContentTypeFam   = 20
	scoreHTMLPreference   = 10
)

// Selector is the C4 backend selector: it never fetches, only scores.
type Selector struct {
	registry *Registry
}

func NewSelector(registry *Registry) Selector {
	return Selector{registry: registry}
}

// Select returns the best-scoring backend for target, and whether one was
// found at all. contentType may be "" when the caller hasn't fetched
// anything yet and is selecting for the initial request.
func (s Selector) Select(target urlinfo.URLInfo, contentType string) (Backend, bool) {
	entries := s.registry.snapshot()

	bestScore := 0
	bestSeq := -1
	var best Backend
	found := false

	var wildcardFallback Backend
	wildcardPriority := 0
	haveWildcard := false

	for _, entry := range entries {
		hostScore, qualifies := scoreHost(entry.criteria.HostPattern, target)
		if entry.criteria.HostPattern == "*" || entry.criteria.HostPattern == "" {
			if !haveWildcard || entry.criteria.Priority > wildcardPriority {
				wildcardFallback = entry.backend
				wildcardPriority = entry.criteria.Priority
				haveWildcard = true
			}
		}
		if !qualifies {
			continue
		}

		score := hostScore + scoreContentType(entry.criteria.ContentTypes, contentType) + entry.criteria.Priority
		if contentType == "" {
			score += scoreHTMLPreference
		}

		if score <= 0 {
			continue
		}

		if !found || score > bestScore || (score == bestScore && entry.seq < bestSeq) {
			bestScore = score
			bestSeq = entry.seq
			best = entry.backend
			found = true
		}
	}

	if found {
		return best, true
	}
	if haveWildcard {
		return wildcardFallback, true
	}
	return nil, false
}

// scoreHost reports the host-matching component of the score, and whether
// the registration is disqualified outright (a non-wildcard pattern that
// doesn't match host at all never contributes, regardless of content type).
func scoreHost(pattern string, target urlinfo.URLInfo) (int, bool) {
	if pattern == "" || pattern == "*" {
		return 0, true
	}

	host := strings.ToLower(target.Host())
	pattern = strings.ToLower(pattern)
	pattern = strings.TrimPrefix(pattern, "*.")

	if host == pattern {
		return scoreHostExact, true
	}
	if strings.HasSuffix(host, "."+pattern) {
		return scoreHostSuffix, true
	}
	return 0, false
}

// scoreContentType reports the content-type component of the score.
// contentType == "" is treated as unknown/unspecified, contributing 0 here
// (the HTML-preference bonus is applied by the caller instead).
func scoreContentType(accepted []string, contentType string) int {
	if contentType == "" || len(accepted) == 0 {
		return 0
	}

	contentType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	family := familyOf(contentType)

	best := 0
	for _, a := range accepted {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "*/*" {
			if best < scoreContentTypeFam {
				best = scoreContentTypeFam
			}
			continue
		}
		if a == contentType {
			return scoreContentTypeExact
		}
		if strings.HasSuffix(a, "/*") && familyOf(a) == family {
			if best < scoreContentTypeFam {
				best = scoreContentTypeFam
			}
		}
	}
	return best
}

func familyOf(contentType string) string {
	idx := strings.Index(contentType, "/")
	if idx == -1 {
		return contentType
	}
	return contentType[:idx]
}
