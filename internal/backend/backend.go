package backend

import (
	"context"
	"time"

	"github.com/docweave/crawler/internal/urlinfo"
)

/*
Responsibilities

- Perform the actual byte transfer for a target URL, whatever the transport
- Report a uniform FetchResponse regardless of backend kind
- Never retry, never select itself, never touch the frontier

Fetch never panics and never returns a Go error for a failed request; a
failed fetch is reported through FetchResponse.StatusCode/Reason so the
pipeline can classify it the same way for every backend kind.
*/

// Kind tags the transport family a Backend implements.
type Kind string

const (
	KindHTTP            Kind = "http"
	KindHeadlessBrowser Kind = "headless_browser"
	KindLocalFile       Kind = "local_file"
	KindArchive         Kind = "archive"
)

// FetchConfig carries the per-request parameters a Backend honors. Not every
// field applies to every Kind; a LocalFileBackend ignores Proxy and
// VerifyTLS, for instance.
type FetchConfig struct {
	Timeout            time.Duration
	VerifyTLS          bool
	UserAgent          string
	MaxRedirects       int
	AcceptContentTypes []string
	Proxy              string
}

// FetchResponse is the uniform result of a Backend.Fetch call, successful or
// not. FinalURL is the backend's own view of where the content actually came
// from after following any redirects; the pipeline re-normalizes it through
// urlinfo before treating it as authoritative.
type FetchResponse struct {
	StatusCode  int
	FinalURL    urlinfo.URLInfo
	Body        []byte
	Headers     map[string]string
	ContentType string
	Reason      string
}

// ReasonRedirectLimit is set on FetchResponse when a backend stops following
// redirects because it hit its configured limit.
const ReasonRedirectLimit = "redirect_limit"

// Backend is the C5 port every transport implements: HTTP, a headless
// browser, the local filesystem, or a read-through archive/cache.
type Backend interface {
	Kind() Kind
	Fetch(ctx context.Context, target urlinfo.URLInfo, cfg FetchConfig) FetchResponse
	Close() error
}
