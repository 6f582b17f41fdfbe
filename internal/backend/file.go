package backend

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/docweave/crawler/internal/urlinfo"
)

/*
LocalFileBackend serves file:// targets straight off disk. It never
retries and never consults the rate limiter or robots.txt (those only
apply to network transports), matching the file-scheme carve-out in the
fetch-and-process pipeline.
*/

type LocalFileBackend struct{}

func NewLocalFileBackend() *LocalFileBackend {
	return &LocalFileBackend{}
}

func (b *LocalFileBackend) Kind() Kind { return KindLocalFile }

func (b *LocalFileBackend) Fetch(ctx context.Context, target urlinfo.URLInfo, cfg FetchConfig) FetchResponse {
	path := target.Path()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FetchResponse{StatusCode: 0, Reason: "file_not_found"}
		}
		return FetchResponse{StatusCode: 0, Reason: fmt.Sprintf("file_read_error: %v", err)}
	}
	if info.IsDir() {
		return FetchResponse{StatusCode: 0, Reason: "file_is_directory"}
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return FetchResponse{StatusCode: 0, Reason: fmt.Sprintf("file_read_error: %v", err)}
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "text/html"
	}

	return FetchResponse{
		StatusCode:  200,
		FinalURL:    target,
		Body:        body,
		ContentType: contentType,
		Headers:     map[string]string{"Content-Type": contentType},
	}
}

func (b *LocalFileBackend) Close() error { return nil }
