package backend

import (
	"context"

	"github.com/docweave/crawler/internal/urlinfo"
)

/*
HeadlessBrowserBackend is the C5 tagged variant for JS-rendered pages. No
browser-automation library (chromedp, rod, playwright-go) appears anywhere
in this repo's dependency corpus, so there is nothing to ground a real
rendering engine on; this delegates to an underlying Backend (normally an
HTTPBackend) and exists so the registry/selector can register and score a
"headless_browser" criteria entry distinctly from "http" without a second
network stack. Swapping in a real renderer later only means replacing
delegate with one.
*/

type HeadlessBrowserBackend struct {
	delegate Backend
}

func NewHeadlessBrowserBackend(delegate Backend) *HeadlessBrowserBackend {
	return &HeadlessBrowserBackend{delegate: delegate}
}

func (b *HeadlessBrowserBackend) Kind() Kind { return KindHeadlessBrowser }

func (b *HeadlessBrowserBackend) Fetch(ctx context.Context, target urlinfo.URLInfo, cfg FetchConfig) FetchResponse {
	return b.delegate.Fetch(ctx, target, cfg)
}

func (b *HeadlessBrowserBackend) Close() error {
	return b.delegate.Close()
}
