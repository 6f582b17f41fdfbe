// Package quality implements the QualityChecker external collaborator:
// check(page) -> (issues[], metrics). Unlike internal/normalize's
// structural validation, a QualityChecker finding is never fatal to the
// pipeline — the page is still written, with its issues attached.
package quality

import (
	"github.com/docweave/crawler/internal/docmodel"
	"github.com/docweave/crawler/internal/extractor"
	"github.com/docweave/crawler/internal/normalize"
)

// IssueSeverity distinguishes a hard structural violation from an
// informational signal about content shape.
type IssueSeverity string

const (
	IssueSeverityWarning IssueSeverity = "warning"
	IssueSeverityInfo    IssueSeverity = "info"
)

// Issue is one non-fatal quality finding attached to a processed page.
type Issue struct {
	Code     string
	Message  string
	Severity IssueSeverity
}

// Metrics captures the same structural signals DomExtractor's heuristic
// layer scores a candidate container on, now reported for the page that
// was actually chosen rather than used to choose between candidates.
// Only text, paragraphs and links are counted: docmodel has no heading,
// code-block or list node kinds, so Headings, CodeBlocks and ListItems stay
// zero and add nothing to ContentScore.
type Metrics struct {
	NonWhitespaceChars int
	Paragraphs         int
	Headings           int
	CodeBlocks         int
	ListItems          int
	LinkCount          int
	LinkDensity        float64
	ContentScore       float64
}

// QualityChecker is the external collaborator C7 calls after
// ContentProcessor.Process succeeds.
type QualityChecker interface {
	Check(page docmodel.ProcessedPage) ([]Issue, Metrics)
}

// DefaultQualityChecker wraps internal/normalize's structural invariant
// checks and the extraction-heuristic scoring weights as a single
// QualityChecker implementation.
type DefaultQualityChecker struct {
	scoreMultiplier extractor.ContentScoreMultiplier
	threshold       extractor.MeaningfulThreshold
}

// NewDefaultQualityChecker builds a checker using the given scoring
// weights and thresholds, normally sourced from the same config.Config
// fields DomExtractor itself is configured with.
func NewDefaultQualityChecker(
	scoreMultiplier extractor.ContentScoreMultiplier,
	threshold extractor.MeaningfulThreshold,
) DefaultQualityChecker {
	return DefaultQualityChecker{
		scoreMultiplier: scoreMultiplier,
		threshold:       threshold,
	}
}

// Check runs structural validation over the page's markdown and computes
// content-shape metrics over its structure tree.
func (q DefaultQualityChecker) Check(page docmodel.ProcessedPage) ([]Issue, Metrics) {
	var issues []Issue

	for _, structuralErr := range normalize.CheckStructuralIssues([]byte(page.Markdown)) {
		issues = append(issues, Issue{
			Code:     string(structuralErr.Cause),
			Message:  structuralErr.Message,
			Severity: IssueSeverityWarning,
		})
	}

	metrics := q.computeMetrics(page.Structure)
	if metrics.NonWhitespaceChars < q.threshold.MinNonWhitespace {
		issues = append(issues, Issue{
			Code:     "thin_content",
			Message:  "page has fewer non-whitespace characters than the minimum meaningful threshold",
			Severity: IssueSeverityInfo,
		})
	}
	if metrics.LinkDensity > q.threshold.MaxLinkDensity && metrics.LinkCount > 2 {
		issues = append(issues, Issue{
			Code:     "navigation_heavy",
			Message:  "page's link-to-text ratio exceeds the navigation-chrome threshold",
			Severity: IssueSeverityInfo,
		})
	}

	return issues, metrics
}

func (q DefaultQualityChecker) computeMetrics(root docmodel.Node) Metrics {
	var m Metrics
	var linkTextLength int
	var walk func(n docmodel.Node)
	walk = func(n docmodel.Node) {
		switch n.Kind {
		case docmodel.KindText:
			m.NonWhitespaceChars += len(n.Value)
		case docmodel.KindParagraph:
			m.Paragraphs++
		case docmodel.KindLink:
			m.LinkCount++
			linkTextLength += docmodel.CountText(n)
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(root)

	totalText := docmodel.CountText(root)
	if totalText > 0 {
		m.LinkDensity = float64(linkTextLength) / float64(totalText)
	}

	m.ContentScore = float64(m.NonWhitespaceChars)/q.scoreMultiplier.NonWhitespaceDivisor +
		float64(m.Paragraphs)*q.scoreMultiplier.Paragraphs +
		float64(m.Headings)*q.scoreMultiplier.Headings +
		float64(m.CodeBlocks)*q.scoreMultiplier.CodeBlocks +
		float64(m.ListItems)*q.scoreMultiplier.ListItems

	return m
}
