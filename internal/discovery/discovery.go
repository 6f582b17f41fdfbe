// Package discovery implements the ProjectDiscovery external collaborator:
// resolving a library name into a documentation root URL when the caller
// gives the orchestrator a name instead of a literal seed URL.
package discovery

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ProjectType distinguishes the kind of thing a ProjectIdentity names,
// since the query-generation rules differ for an unversioned entity.
type ProjectType string

const (
	ProjectTypeLibrary   ProjectType = "library"
	ProjectTypeFramework ProjectType = "framework"
	ProjectTypeUnknown   ProjectType = "unknown"
)

// ProjectIdentity is the best-effort identification of what a seed
// "library name" (as opposed to a literal URL) refers to.
type ProjectIdentity struct {
	Name    string
	Type    ProjectType
	Version string
}

// ProjectDiscovery is the external collaborator C8 consults when a seed
// entry is a library name rather than a URL.
type ProjectDiscovery interface {
	// Identify performs best-effort project identification from a URL,
	// returning ok=false when nothing recognizable can be derived.
	Identify(target url.URL) (ProjectIdentity, bool)
	// SearchForProjectDocs returns zero or more candidate documentation
	// root URLs for the given search queries.
	SearchForProjectDocs(queries []string) ([]url.URL, error)
}

// SearchFunc is a pluggable search backend: given queries, return
// candidate documentation root URLs. NoopSearch (what NewHeuristicDiscovery
// uses for a nil search) always returns no candidates, since no search-API client
// exists for this to delegate to.
type SearchFunc func(queries []string) ([]url.URL, error)

// NoopSearch is the deterministic default SearchFunc: no search-API
// client is available, so it always reports zero candidates rather than
// guessing a URL.
func NoopSearch(queries []string) ([]url.URL, error) {
	return nil, nil
}

// HeuristicDiscovery is the default ProjectDiscovery implementation. It
// identifies a project from a URL's host/path shape and delegates query
// execution to a pluggable SearchFunc.
type HeuristicDiscovery struct {
	search SearchFunc
}

// NewHeuristicDiscovery builds a HeuristicDiscovery. A nil search
// defaults to NoopSearch.
func NewHeuristicDiscovery(search SearchFunc) HeuristicDiscovery {
	if search == nil {
		search = NoopSearch
	}
	return HeuristicDiscovery{search: search}
}

// Identify derives a ProjectIdentity from the path of a URL whose host
// looks like a package registry or docs host: the whole path for
// pkg.go.dev, the last path segment for pypi.org, docs.rs and npmjs.com.
// Anything else reports ok=false rather than guessing.
func (d HeuristicDiscovery) Identify(target url.URL) (ProjectIdentity, bool) {
	host := strings.ToLower(target.Host)
	segments := strings.Split(strings.Trim(target.Path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return ProjectIdentity{}, false
	}

	switch {
	case strings.Contains(host, "pkg.go.dev"):
		return ProjectIdentity{Name: strings.Join(segments, "/"), Type: ProjectTypeLibrary}, true
	case strings.Contains(host, "pypi.org"), strings.Contains(host, "docs.rs"), strings.Contains(host, "npmjs.com"):
		return ProjectIdentity{Name: segments[len(segments)-1], Type: ProjectTypeLibrary}, true
	default:
		return ProjectIdentity{}, false
	}
}

// SearchForProjectDocs delegates to the configured SearchFunc.
func (d HeuristicDiscovery) SearchForProjectDocs(queries []string) ([]url.URL, error) {
	return d.search(queries)
}
