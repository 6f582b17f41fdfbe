package backend

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/docweave/crawler/internal/metadata"
)

/*
Responsibilities

- Hold the set of registered backends for a crawl
- Let a later registration under the same name replace an earlier one
- Close every backend on crawl shutdown, worst-effort, in reverse order
*/

// Criteria is what the Selector (C4) scores a registration against.
type Criteria struct {
	// HostPattern matches either exactly, as a registered-domain suffix
	// ("example.com" also matches "docs.example.com"), or the literal
	// wildcard "*" which matches any host.
	HostPattern string

	// ContentTypes lists the MIME types (or "family/*" wildcards, or the
	// universal "*/*") this backend is willing to serve. An empty list
	// means the backend expresses no content-type preference.
	ContentTypes []string

	// Priority breaks ties among otherwise-equal-scoring registrations and
	// is also what the fallback wildcard backend is chosen by. It may be
	// negative to rank a backend below the implicit zero baseline.
	Priority int
}

type registration struct {
	name     string
	backend  Backend
	criteria Criteria
	seq      int
}

// Registry is the C3 backend registry: a name-keyed, insertion-ordered set
// of backends plus their selection criteria.
type Registry struct {
	sink metadata.MetadataSink

	mu      sync.RWMutex
	order   []string
	entries map[string]registration
	nextSeq int
}

// NewRegistry builds an empty Registry. sink may be nil; a nil sink simply
// means re-registration replacement is not logged.
func NewRegistry(sink metadata.MetadataSink) *Registry {
	return &Registry{
		sink:    sink,
		entries: make(map[string]registration),
	}
}

// Register adds or replaces the backend registered under name. Replacing an
// existing registration keeps its original position in registration order
// for tie-breaking purposes but updates the backend/criteria in place; the
// old backend is NOT closed here, since the pipeline may still have Fetch
// calls in flight against it, so callers that actually intend to retire a
// backend should Close it themselves before re-registering under its name.
func (r *Registry) Register(name string, b Backend, criteria Criteria) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[name]; ok {
		if r.sink != nil {
			r.sink.RecordError(
				time.Now(),
				"backend",
				"Register",
				metadata.CauseUnknown,
				fmt.Sprintf("backend %q re-registered, replacing previous registration", name),
				[]metadata.Attribute{metadata.NewAttr(metadata.AttrField, name)},
			)
		}
		r.entries[name] = registration{name: name, backend: b, criteria: criteria, seq: existing.seq}
		return
	}

	r.entries[name] = registration{name: name, backend: b, criteria: criteria, seq: r.nextSeq}
	r.nextSeq++
	r.order = append(r.order, name)
}

// List returns the registered backend names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) snapshot() []registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]registration, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name])
	}
	return out
}

// CloseAll closes every registered backend in reverse registration order,
// swallowing individual Close errors into one combined report rather than
// stopping at the first failure.
func (r *Registry) CloseAll() error {
	entries := r.snapshot()

	var failures []string
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if err := entry.backend.Close(); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", entry.name, err))
		}
	}

	if len(failures) == 0 {
		return nil
	}
	return fmt.Errorf("backend close_all: %s", strings.Join(failures, "; "))
}
