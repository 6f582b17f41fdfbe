package backend_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docweave/crawler/internal/backend"
	"github.com/docweave/crawler/internal/urlinfo"
)

func mustParse(t *testing.T, raw string) urlinfo.URLInfo {
	t.Helper()
	info := urlinfo.Parse(raw, nil)
	require.True(t, info.Valid(), "expected %q to parse", raw)
	return info
}

func TestSelector_ExactHostBeatsWildcard(t *testing.T) {
	reg := backend.NewRegistry(nil)
	wildcard := &stubBackend{kind: backend.KindHTTP, name: "wildcard"}
	exact := &stubBackend{kind: backend.KindHTTP, name: "exact"}

	reg.Register("wildcard", wildcard, backend.Criteria{HostPattern: "*"})
	reg.Register("exact", exact, backend.Criteria{HostPattern: "docs.example.com"})

	sel := backend.NewSelector(reg)
	target := mustParse(t, "https://docs.example.com/guide")

	got, ok := sel.Select(target, "")
	require.True(t, ok)
	assert.Same(t, backend.Backend(exact), got)
}

func TestSelector_SuffixMatchAppliesToSubdomain(t *testing.T) {
	reg := backend.NewRegistry(nil)
	suffixBackend := &stubBackend{kind: backend.KindHTTP, name: "suffix"}
	reg.Register("suffix", suffixBackend, backend.Criteria{HostPattern: "example.com"})

	sel := backend.NewSelector(reg)
	target := mustParse(t, "https://docs.example.com/guide")

	got, ok := sel.Select(target, "")
	require.True(t, ok)
	assert.Same(t, backend.Backend(suffixBackend), got)
}

func TestSelector_DisqualifiesNonMatchingHost(t *testing.T) {
	reg := backend.NewRegistry(nil)
	reg.Register("other", &stubBackend{kind: backend.KindHTTP}, backend.Criteria{HostPattern: "other.com"})

	sel := backend.NewSelector(reg)
	target := mustParse(t, "https://docs.example.com/guide")

	_, ok := sel.Select(target, "")
	assert.False(t, ok)
}

func TestSelector_ContentTypeExactBeatsFamily(t *testing.T) {
	reg := backend.NewRegistry(nil)
	familyBackend := &stubBackend{kind: backend.KindHTTP, name: "family"}
	exactBackend := &stubBackend{kind: backend.KindHTTP, name: "exact"}

	reg.Register("family", familyBackend, backend.Criteria{HostPattern: "*", ContentTypes: []string{"text/*"}})
	reg.Register("exact", exactBackend, backend.Criteria{HostPattern: "*", ContentTypes: []string{"text/html"}})

	sel := backend.NewSelector(reg)
	target := mustParse(t, "https://example.com/page")

	got, ok := sel.Select(target, "text/html")
	require.True(t, ok)
	assert.Same(t, backend.Backend(exactBackend), got)
}

func TestSelector_FallsBackToWildcardWhenNothingScores(t *testing.T) {
	reg := backend.NewRegistry(nil)
	wildcard := &stubBackend{kind: backend.KindHTTP, name: "wildcard"}
	reg.Register("wildcard", wildcard, backend.Criteria{HostPattern: "*", Priority: -5})

	sel := backend.NewSelector(reg)
	target := mustParse(t, "https://example.com/page")

	got, ok := sel.Select(target, "application/pdf")
	require.True(t, ok)
	assert.Same(t, backend.Backend(wildcard), got)
}

func TestSelector_NoBackendsRegistered(t *testing.T) {
	reg := backend.NewRegistry(nil)
	sel := backend.NewSelector(reg)
	target := mustParse(t, "https://example.com/page")

	_, ok := sel.Select(target, "")
	assert.False(t, ok)
}

func TestSelector_TieBreaksByRegistrationOrder(t *testing.T) {
	reg := backend.NewRegistry(nil)
	first := &stubBackend{kind: backend.KindHTTP, name: "first"}
	second := &stubBackend{kind: backend.KindHTTP, name: "second"}

	reg.Register("first", first, backend.Criteria{HostPattern: "example.com"})
	reg.Register("second", second, backend.Criteria{HostPattern: "example.com"})

	sel := backend.NewSelector(reg)
	target := mustParse(t, "https://docs.example.com/guide")

	got, ok := sel.Select(target, "")
	require.True(t, ok)
	assert.Same(t, backend.Backend(first), got)
}
