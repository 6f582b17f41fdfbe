package backend

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"time"

	"github.com/docweave/crawler/internal/fetcher"
	"github.com/docweave/crawler/internal/metadata"
	"github.com/docweave/crawler/internal/urlinfo"
	"github.com/docweave/crawler/pkg/retry"
	"github.com/docweave/crawler/pkg/timeutil"
)

/*
HTTPBackend is the C5 backend for plain http/https transport. It is a thin
FetchResponse-shaped wrapper around fetcher.HtmlFetcher, which already owns
the retry loop, status-code classification, and content-type gating; the
backend layer only translates between urlinfo.URLInfo/backend.FetchConfig
and the fetcher's url.URL/retry.RetryParam shapes.
*/

type HTTPBackend struct {
	fetcher fetcher.HtmlFetcher
}

// NewHTTPBackend builds an HTTPBackend bound to sink for fetch/error
// reporting. cfg configures the transport (TLS verification, proxy,
// redirect limit, user agent); a zero FetchConfig falls back to Go's
// default http.Client behavior.
func NewHTTPBackend(sink metadata.MetadataSink, cfg FetchConfig) *HTTPBackend {
	b := &HTTPBackend{fetcher: fetcher.NewHtmlFetcher(sink)}
	b.fetcher.Init(buildHTTPClient(cfg), cfg.UserAgent)
	return b
}

func buildHTTPClient(cfg FetchConfig) *http.Client {
	transport := &http.Transport{}
	if !cfg.VerifyTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if cfg.Proxy != "" {
		if proxyURL, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	client := &http.Client{Transport: transport}
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}

	maxRedirects := cfg.MaxRedirects
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if maxRedirects > 0 && len(via) >= maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}

	return client
}

func (b *HTTPBackend) Kind() Kind { return KindHTTP }

func (b *HTTPBackend) Fetch(ctx context.Context, target urlinfo.URLInfo, cfg FetchConfig) FetchResponse {
	fetchURL, err := url.Parse(target.NormalizedURL())
	if err != nil {
		return FetchResponse{StatusCode: 0, Reason: "invalid_url"}
	}

	retryParam := retry.NewRetryParam(
		100*time.Millisecond,
		25*time.Millisecond,
		time.Now().UnixNano(),
		1,
		timeutil.NewBackoffParam(100*time.Millisecond, 2.0, time.Second),
	)

	result, fetchErr := b.fetcher.Fetch(ctx, 0, *fetchURL, retryParam)
	if fetchErr != nil {
		return FetchResponse{StatusCode: 0, Reason: fetchErr.Error()}
	}

	finalInfo := urlinfo.Parse(result.FinalURL().String(), nil)
	return FetchResponse{
		StatusCode:  result.Code(),
		FinalURL:    finalInfo,
		Body:        result.Body(),
		Headers:     result.Headers(),
		ContentType: result.Headers()["Content-Type"],
	}
}

func (b *HTTPBackend) Close() error { return nil }
