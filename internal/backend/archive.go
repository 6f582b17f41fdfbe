package backend

import (
	"context"
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/docweave/crawler/internal/robots/cache"
	"github.com/docweave/crawler/internal/urlinfo"
)

/*
ArchiveBackend is a read-through cache in front of a delegate backend (the
"archive/cache" variant C5 names). A hit returns the previously stored
response without touching the delegate at all; a miss fetches through the
delegate and stores the result for next time. It reuses robots/cache.Cache
(string-keyed, in-memory for the crawl's lifetime) rather than inventing a
second cache abstraction for the same shape of problem.
*/

type ArchiveBackend struct {
	delegate Backend
	store    cache.Cache
}

func NewArchiveBackend(delegate Backend, store cache.Cache) *ArchiveBackend {
	return &ArchiveBackend{delegate: delegate, store: store}
}

func (b *ArchiveBackend) Kind() Kind { return KindArchive }

func (b *ArchiveBackend) Fetch(ctx context.Context, target urlinfo.URLInfo, cfg FetchConfig) FetchResponse {
	key := target.NormalizedURL()

	if raw, ok := b.store.Get(key); ok {
		if resp, ok := decodeArchivedResponse(raw, target); ok {
			return resp
		}
	}

	resp := b.delegate.Fetch(ctx, target, cfg)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		b.store.Put(key, encodeArchivedResponse(resp))
	}
	return resp
}

func (b *ArchiveBackend) Close() error {
	return b.delegate.Close()
}

// encodeArchivedResponse/decodeArchivedResponse serialize just enough of a
// FetchResponse to replay it later: status, content type, and body. Headers
// and FinalURL are not preserved across a cache hit; a replayed response
// carries the target URL as its FinalURL instead.
func encodeArchivedResponse(resp FetchResponse) string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(resp.StatusCode))
	sb.WriteByte('\n')
	sb.WriteString(resp.ContentType)
	sb.WriteByte('\n')
	sb.WriteString(base64.StdEncoding.EncodeToString(resp.Body))
	return sb.String()
}

func decodeArchivedResponse(raw string, target urlinfo.URLInfo) (FetchResponse, bool) {
	parts := strings.SplitN(raw, "\n", 3)
	if len(parts) != 3 {
		return FetchResponse{}, false
	}
	statusCode, err := strconv.Atoi(parts[0])
	if err != nil {
		return FetchResponse{}, false
	}
	body, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return FetchResponse{}, false
	}
	return FetchResponse{
		StatusCode:  statusCode,
		FinalURL:    target,
		Body:        body,
		ContentType: parts[1],
		Headers:     map[string]string{"Content-Type": parts[1]},
	}, true
}
