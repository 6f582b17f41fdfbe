package metadata

import "time"

// ArtifactKind names the kind of artifact RecordArtifact reports.
type ArtifactKind string

const (
	ArtifactMarkdown ArtifactKind = "markdown"
	ArtifactAsset    ArtifactKind = "asset"
)

// MetadataSink is the write side of the metadata/observability boundary.
// Every pipeline package that can fail or produce output reports through
// this interface rather than logging directly, so the recorded shape stays
// uniform regardless of which package emitted it.
type MetadataSink interface {
	RecordFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		contentType string,
		retryCount int,
		crawlDepth int,
	)
	RecordAssetFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		retryCount int,
	)
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

// CrawlFinalizer is called exactly once, after a crawl terminates, with the
// aggregate counts that make up the terminal crawlStats record.
type CrawlFinalizer interface {
	RecordFinalCrawlStats(
		totalPages int,
		totalErrors int,
		totalAssets int,
		duration time.Duration,
	)
}
