package scheduler

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/docweave/crawler/internal/assets"
	"github.com/docweave/crawler/internal/backend"
	"github.com/docweave/crawler/internal/config"
	"github.com/docweave/crawler/internal/discovery"
	"github.com/docweave/crawler/internal/docmodel"
	"github.com/docweave/crawler/internal/extractor"
	"github.com/docweave/crawler/internal/frontier"
	"github.com/docweave/crawler/internal/metadata"
	"github.com/docweave/crawler/internal/normalize"
	"github.com/docweave/crawler/internal/quality"
	"github.com/docweave/crawler/internal/robots"
	"github.com/docweave/crawler/internal/storage"
	"github.com/docweave/crawler/internal/urlinfo"
	"github.com/docweave/crawler/pkg/failure"
)

// Crawl is the crawl(target, config) -> CrawlResult entry point: it runs
// target's seeds through a bounded pool of cfg.Concurrency() workers (or
// target.Concurrency() when the target overrides it), all sharing one
// Frontier and one crawlAggregator, until the frontier is exhausted or
// cfg.Timeout() elapses.
func (s *Scheduler) Crawl(target config.CrawlTarget, cfg config.Config) (CrawlResult, error) {
	crawlStartTime := time.Now()
	aggregator := newCrawlAggregator()

	var totalErrors, totalAssets int
	defer func() {
		s.crawlFinalizer.RecordFinalCrawlStats(
			s.frontier.VisitedCount(),
			totalErrors,
			totalAssets,
			time.Since(crawlStartTime),
		)
	}()

	if len(target.SeedURLs()) == 0 {
		err := fmt.Errorf("no seed URLs configured")
		s.metadataSink.RecordError(time.Now(), "scheduler", "Crawl", metadata.CauseContentInvalid, err.Error(), nil)
		return CrawlResult{}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	defer cancel()
	s.ctx = ctx

	s.rateLimiter.SetBaseDelay(cfg.BaseDelay())
	s.rateLimiter.SetJitter(cfg.Jitter())
	s.rateLimiter.SetRandomSeed(cfg.RandomSeed())

	s.robot.Init(cfg.UserAgent())
	s.frontier.Init(cfg)
	s.frontier.SetTarget(target)

	extractParam := extractParamFrom(cfg)
	s.domExtractor.SetExtractParam(extractParam)
	s.qualityChecker = quality.NewDefaultQualityChecker(extractParam.ScoreMultiplier, extractParam.Threshold)

	registry := s.buildRegistry(cfg)
	defer registry.CloseAll()
	selector := backend.NewSelector(registry)

	seeds := resolveSeeds(target, s.discovery)
	for _, seed := range seeds {
		if err := s.admitSeed(seed); err != nil {
			if robotsErr, ok := err.(*robots.RobotsError); ok {
				s.recordRobotsErrorAndBackoff(robotsErr, seed)
			}
			aggregator.addIssue(Issue{Code: "seed_admission_failed", Message: err.Error(), PageURL: seed.String()})
			aggregator.recordError()
		}
	}

	numWorkers := target.Concurrency()
	if numWorkers <= 0 {
		numWorkers = cfg.Concurrency()
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}

	var inFlight int32
	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			s.crawlWorker(ctx, selector, cfg, aggregator, &inFlight)
		}()
	}
	wg.Wait()

	totalErrors = aggregator.snapshotErrors()
	totalAssets = aggregator.snapshotAssets()

	return aggregator.result(s.frontier.VisitedCount(), time.Since(crawlStartTime)), nil
}

func extractParamFrom(cfg config.Config) extractor.ExtractParam {
	return extractor.ExtractParam{
		BodySpecificityBias:  cfg.BodySpecificityBias(),
		LinkDensityThreshold: cfg.LinkDensityThreshold(),
		ScoreMultiplier: extractor.ContentScoreMultiplier{
			NonWhitespaceDivisor: cfg.ScoreMultiplierNonWhitespaceDivisor(),
			Paragraphs:           cfg.ScoreMultiplierParagraphs(),
			Headings:             cfg.ScoreMultiplierHeadings(),
			CodeBlocks:           cfg.ScoreMultiplierCodeBlocks(),
			ListItems:            cfg.ScoreMultiplierListItems(),
		},
		Threshold: extractor.MeaningfulThreshold{
			MinNonWhitespace:    cfg.ThresholdMinNonWhitespace(),
			MinHeadings:         cfg.ThresholdMinHeadings(),
			MinParagraphsOrCode: cfg.ThresholdMinParagraphsOrCode(),
			MaxLinkDensity:      cfg.ThresholdMaxLinkDensity(),
		},
	}
}

// crawlWorker is one of cfg.Concurrency() goroutines draining the shared
// frontier. Termination is joint: a worker only stops once the frontier is
// empty AND no other worker has a token in flight that might still discover
// and enqueue new links. A worker that finds the frontier momentarily empty
// while inFlight > 0 backs off briefly and checks again, since Frontier has
// no blocking-wait primitive to wake it the instant a new token appears.
func (s *Scheduler) crawlWorker(
	ctx context.Context,
	selector backend.Selector,
	cfg config.Config,
	aggregator *crawlAggregator,
	inFlight *int32,
) {
	for {
		if ctx.Err() != nil {
			return
		}

		token, ok := s.frontier.Dequeue()
		if !ok {
			if atomic.LoadInt32(inFlight) == 0 {
				return
			}
			s.sleeper.Sleep(10 * time.Millisecond)
			continue
		}

		atomic.AddInt32(inFlight, 1)
		s.processToken(ctx, selector, token, cfg, aggregator)
		atomic.AddInt32(inFlight, -1)
	}
}

// admitSeed runs SubmitUrlForAdmission for one seed URL, applying the
// caller-supplied rate-limiting delay the old sequential loop used to apply
// only to the very first seed.
func (s *Scheduler) admitSeed(seed url.URL) failure.ClassifiedError {
	s.currentHost = seed.Host
	if err := s.SubmitUrlForAdmission(seed, frontier.SourceSeed, 0); err != nil {
		return err
	}
	delay := s.rateLimiter.ResolveDelay(seed.Host)
	s.sleeper.Sleep(delay)
	return nil
}

// resolveSeeds substitutes a bare library-name seed (no scheme, no host)
// with a discovered documentation URL, when one can be found. Seeds that
// carry a scheme or a host pass through untouched.
func resolveSeeds(target config.CrawlTarget, disco discovery.ProjectDiscovery) []url.URL {
	seeds := target.SeedURLs()
	if disco == nil {
		return seeds
	}
	resolved := make([]url.URL, 0, len(seeds))
	for _, seed := range seeds {
		if seed.Scheme != "" || seed.Host != "" {
			resolved = append(resolved, seed)
			continue
		}
		identity, ok := disco.Identify(seed)
		if !ok {
			identity = discovery.ProjectIdentity{Name: seed.Path}
		}
		queries := discovery.GenerateSearchQueries(identity)
		candidates, err := disco.SearchForProjectDocs(queries)
		if err != nil || len(candidates) == 0 {
			resolved = append(resolved, seed)
			continue
		}
		resolved = append(resolved, candidates[0])
	}
	return resolved
}

// processToken runs one dequeued token through fetch, content processing
// and link discovery. It never returns an error to the caller: every
// failure is recorded on the aggregator and the worker moves on to the
// next token, per the scheduler's "pipeline stages never decide abort"
// contract carried over from the sequential pipeline.
func (s *Scheduler) processToken(
	ctx context.Context,
	selector backend.Selector,
	token frontier.CrawlToken,
	cfg config.Config,
	aggregator *crawlAggregator,
) {
	pageURL := token.URL()
	targetInfo := urlinfo.Parse(pageURL.String(), nil)
	host := pageURL.Host

	delay := s.rateLimiter.ResolveDelay(host)
	s.sleeper.Sleep(delay)

	var resp backend.FetchResponse
	var dispatchErr *dispatchError
	if pageURL.Scheme == "file" {
		resp, dispatchErr = s.fetchLocalFile(targetInfo)
	} else {
		resp, dispatchErr = s.fetchViaBackend(ctx, selector, targetInfo, cfg)
	}
	aggregator.recordHostRequest(host)

	if dispatchErr != nil {
		aggregator.recordError()
		aggregator.addIssue(Issue{Code: string(dispatchErr.cause), Message: dispatchErr.Error(), PageURL: pageURL.String()})
		return
	}

	// 3xx: the fetch resolved to a different URL than the one submitted.
	// Dedupe against the frontier's visited set instead of writing the
	// same page twice under two different paths.
	if resp.FinalURL.Valid() && !resp.FinalURL.Equals(targetInfo) {
		normalized := resp.FinalURL.NormalizedURL()
		if s.frontier.HasVisited(normalized) {
			return
		}
		s.frontier.MarkVisited(normalized)
	}

	s.processingMu.Lock()
	page, write, procErr := s.runContentPipeline(pageURL, resp, token.Depth(), cfg)
	s.processingMu.Unlock()

	if procErr != nil {
		aggregator.recordError()
		aggregator.addIssue(Issue{Code: "processing_failed", Message: procErr.Error(), PageURL: pageURL.String()})
		return
	}

	// Quality findings travel on page.result.Issues ([]quality.Issue), not
	// the crawl-wide Issues list: they belong to this one page, not the
	// crawl as a whole.
	aggregator.recordAssets(page.assetCount)
	aggregator.addPage(page.result, write)

	s.submitDiscoveredLinks(page.discoveredURLs, pageURL, token.Depth(), aggregator)
}

// processedPage bundles runContentPipeline's PageResult with the asset
// count, which belongs on the aggregator's running total rather than on
// the page record itself.
type processedPage struct {
	result         PageResult
	assetCount     int
	discoveredURLs []url.URL
}

// runContentPipeline is C7's extract -> sanitize -> convert -> assets ->
// normalize -> write -> docmodel -> quality stage, called with
// Scheduler.processingMu held: LocalResolver's written-asset bookkeeping is
// not safe for concurrent calls, so this whole CPU/disk-bound stage is
// serialized across workers even though fetch and robots/rate-limiting run
// fully concurrently.
func (s *Scheduler) runContentPipeline(
	pageURL url.URL,
	resp backend.FetchResponse,
	depth int,
	cfg config.Config,
) (processedPage, storage.WriteResult, failure.ClassifiedError) {
	extraction, err := s.domExtractor.Extract(pageURL, resp.Body)
	if err != nil {
		return processedPage{}, storage.WriteResult{}, err
	}

	sanitized, err := s.htmlSanitizer.Sanitize(extraction.ContentNode)
	if err != nil {
		return processedPage{}, storage.WriteResult{}, err
	}

	markdownDoc, err := s.markdownConversionRule.Convert(sanitized)
	if err != nil {
		return processedPage{}, storage.WriteResult{}, err
	}

	resolveParam := assets.NewResolveParam(cfg.OutputDir(), cfg.MaxAssetSize())
	assetfulMarkdown, assetErr := s.assetResolver.Resolve(s.ctx, pageURL, markdownDoc, resolveParam, RetryParam(cfg))
	if assetErr != nil && assetErr.Severity() == failure.SeverityFatal {
		return processedPage{}, storage.WriteResult{}, assetErr
	}

	normalizeParam := normalize.NewNormalizeParam(
		cfg.AppVersion(),
		time.Now(),
		cfg.HashAlgo(),
		depth,
		cfg.AllowedPathPrefix(),
	)
	normalized, err := s.markdownConstraint.Normalize(pageURL, assetfulMarkdown, normalizeParam)
	if err != nil {
		return processedPage{}, storage.WriteResult{}, err
	}

	writeResult, err := s.storageSink.Write(cfg.OutputDir(), normalized, cfg.HashAlgo())
	if err != nil {
		return processedPage{}, storage.WriteResult{}, err
	}

	structure := docmodel.FromHTMLNode(extraction.ContentNode)
	page := docmodel.NewProcessedPage(normalized.Frontmatter().Title(), resp.ContentType, structure, string(normalized.Content()))
	issues, metrics := s.qualityChecker.Check(page)

	return processedPage{
		result: PageResult{
			URL:         pageURL.String(),
			Title:       page.Title,
			OutputPath:  writeResult.Path(),
			ContentHash: writeResult.ContentHash(),
			Depth:       depth,
			Issues:      issues,
			Metrics:     metrics,
		},
		assetCount:     len(assetfulMarkdown.LocalAssets()),
		discoveredURLs: sanitized.GetDiscoveredURLs(),
	}, writeResult, nil
}

// submitDiscoveredLinks resolves every href the sanitizer found against the
// page's own URL (not the seed's scheme/host, which the page may have
// redirected away from) and submits each one for admission.
// CrawlingPolicy's external-host rule, applied inside
// SubmitUrlForAdmission -> Frontier.Submit, is the only host filter needed:
// no separate pre-filter step.
func (s *Scheduler) submitDiscoveredLinks(discovered []url.URL, pageURL url.URL, depth int, aggregator *crawlAggregator) {
	for _, href := range discovered {
		resolved := pageURL.ResolveReference(&href)
		submissionErr := s.SubmitUrlForAdmission(*resolved, frontier.SourceCrawl, depth+1)
		if submissionErr != nil {
			if robotsErr, ok := submissionErr.(*robots.RobotsError); ok {
				s.recordRobotsErrorAndBackoff(robotsErr, *resolved)
			}
			aggregator.recordError()
		}
	}
}
