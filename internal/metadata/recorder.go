package metadata

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

/*
Metadata Collected
- Fetch timestamps
- HTTP status codes
- Content hashes
- Crawl depth

Logging Goals
- Debuggable crawl behavior
- Post-run auditability
- Failure diagnostics

Structured logging is preferred.

Allowed:
- Primitive values
- Timestamps
- URLs (as values, not objects with behavior)
- Hashes
- Status codes
- Durations
- Identifiers (page ID, crawl ID)
*/

// Recorder is the concrete MetadataSink/CrawlFinalizer: it logs each event
// through zap for post-run auditability and keeps an in-memory copy so the
// orchestrator can fold everything into a CrawlResult's issues/stats.
type Recorder struct {
	logger *zap.Logger

	mu         sync.Mutex
	fetches    []FetchEvent
	assets     []FetchEvent
	errors     []ErrorRecord
	artifacts  []ArtifactRecord
	finalStats *crawlStats
}

// NewRecorder builds a Recorder around a production zap logger.
func NewRecorder() *Recorder {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	return NewRecorderWithLogger(logger)
}

// NewRecorderWithLogger builds a Recorder around a caller-supplied logger,
// letting tests substitute zap.NewNop() the way the teacher substitutes
// fakes for its other collaborators.
func NewRecorderWithLogger(logger *zap.Logger) *Recorder {
	return &Recorder{logger: logger}
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
	crawlDepth int,
) {
	evt := FetchEvent{
		fetchUrl:    fetchUrl,
		httpStatus:  httpStatus,
		duration:    duration,
		contentType: contentType,
		retryCount:  retryCount,
		crawlDepth:  crawlDepth,
	}
	r.mu.Lock()
	r.fetches = append(r.fetches, evt)
	r.mu.Unlock()

	r.logger.Info("fetch",
		zap.String("url", fetchUrl),
		zap.Int("status", httpStatus),
		zap.Duration("duration", duration),
		zap.String("content_type", contentType),
		zap.Int("retry_count", retryCount),
		zap.Int("depth", crawlDepth),
	)
}

func (r *Recorder) RecordAssetFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	retryCount int,
) {
	evt := FetchEvent{
		fetchUrl:   fetchUrl,
		httpStatus: httpStatus,
		duration:   duration,
		retryCount: retryCount,
	}
	r.mu.Lock()
	r.assets = append(r.assets, evt)
	r.mu.Unlock()

	r.logger.Info("asset_fetch",
		zap.String("url", fetchUrl),
		zap.Int("status", httpStatus),
		zap.Duration("duration", duration),
		zap.Int("retry_count", retryCount),
	)
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
	rec := ErrorRecord{
		packageName: packageName,
		action:      action,
		cause:       cause,
		errorString: details,
		observedAt:  observedAt,
		attrs:       attrs,
	}
	r.mu.Lock()
	r.errors = append(r.errors, rec)
	r.mu.Unlock()

	fields := make([]zap.Field, 0, len(attrs)+4)
	fields = append(fields,
		zap.String("package", packageName),
		zap.String("action", action),
		zap.Int("cause", int(cause)),
		zap.Time("observed_at", observedAt),
	)
	for _, a := range attrs {
		fields = append(fields, zap.String(string(a.Key), a.Value))
	}
	r.logger.Warn(details, fields...)
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	rec := ArtifactRecord{kind: kind, paths: path, attrs: attrs}
	r.mu.Lock()
	r.artifacts = append(r.artifacts, rec)
	r.mu.Unlock()

	r.logger.Info("artifact",
		zap.String("kind", string(kind)),
		zap.String("path", path),
	)
}

// RecordFinalCrawlStats implements CrawlFinalizer; it is expected exactly
// once, after the crawl's workers have all exited.
func (r *Recorder) RecordFinalCrawlStats(
	totalPages int,
	totalErrors int,
	totalAssets int,
	duration time.Duration,
) {
	stats := crawlStats{
		totalPages:  totalPages,
		totalErrors: totalErrors,
		totalAssets: totalAssets,
		durationMs:  duration.Milliseconds(),
	}
	r.mu.Lock()
	r.finalStats = &stats
	r.mu.Unlock()

	r.logger.Info("crawl_finished",
		zap.Int("total_pages", totalPages),
		zap.Int("total_errors", totalErrors),
		zap.Int("total_assets", totalAssets),
		zap.Duration("duration", duration),
	)
	_ = r.logger.Sync()
}

// Errors returns a snapshot of every recorded error, in recording order.
func (r *Recorder) Errors() []ErrorRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ErrorRecord, len(r.errors))
	copy(out, r.errors)
	return out
}

// Fetches returns a snapshot of every recorded page fetch.
func (r *Recorder) Fetches() []FetchEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FetchEvent, len(r.fetches))
	copy(out, r.fetches)
	return out
}

// Artifacts returns a snapshot of every recorded artifact.
func (r *Recorder) Artifacts() []ArtifactRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ArtifactRecord, len(r.artifacts))
	copy(out, r.artifacts)
	return out
}
