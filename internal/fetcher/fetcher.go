package fetcher

import (
	"context"
	"net/http"
	"net/url"

	"github.com/docweave/crawler/pkg/failure"
	"github.com/docweave/crawler/pkg/retry"
)

type Fetcher interface {
	Init(httpClient *http.Client, userAgent string)
	Fetch(
		ctx context.Context,
		crawlDepth int,
		fetchUrl url.URL,
		retryParam retry.RetryParam,
	) (FetchResult, failure.ClassifiedError)
}
