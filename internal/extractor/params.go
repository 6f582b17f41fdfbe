package extractor

import "net/url"

import "github.com/docweave/crawler/pkg/failure"

// Extractor is the C7 port for turning fetched HTML bytes into a
// DocumentRoot/ContentNode pair. Implementations must be deterministic:
// the same bytes always yield the same ContentNode.
type Extractor interface {
	Extract(sourceUrl url.URL, htmlByte []byte) (ExtractionResult, failure.ClassifiedError)
	SetExtractParam(param ExtractParam)
}

// Compile-time interface check.
var _ Extractor = (*DomExtractor)(nil)

// ContentScoreMultiplier weights each structural signal
// calculateContentScore adds up when ranking candidate content containers.
type ContentScoreMultiplier struct {
	NonWhitespaceDivisor float64
	Paragraphs           float64
	Headings             float64
	CodeBlocks           float64
	ListItems            float64
}

// MeaningfulThreshold is the minimum bar a candidate node must clear for
// isMeaningful to accept it as real content rather than chrome/navigation.
type MeaningfulThreshold struct {
	MinNonWhitespace    int
	MinHeadings         int
	MinParagraphsOrCode int
	MaxLinkDensity      float64
}

// ExtractParam configures the heuristic layers of DomExtractor: the
// specificity bias applied when <body> out-scores a more specific child,
// the link-density penalty threshold, and the scoring weights/thresholds
// the layer-3 heuristic uses to pick and validate a content container.
type ExtractParam struct {
	BodySpecificityBias  float64
	LinkDensityThreshold float64
	ScoreMultiplier      ContentScoreMultiplier
	Threshold            MeaningfulThreshold
}

// defaultScoreMultiplier and defaultThreshold mirror the values the
// heuristic layer used before these weights were configurable, so a zero
// ExtractParam (as a freshly constructed DomExtractor{} would have) keeps
// behaving exactly as before.
var defaultScoreMultiplier = ContentScoreMultiplier{
	NonWhitespaceDivisor: 50,
	Paragraphs:           5,
	Headings:             10,
	CodeBlocks:           15,
	ListItems:            2,
}

var defaultThreshold = MeaningfulThreshold{
	MinNonWhitespace:    50,
	MinHeadings:         0,
	MinParagraphsOrCode: 1,
	MaxLinkDensity:      0.8,
}

// SetExtractParam replaces the extraction parameters used by subsequent
// Extract calls.
func (d *DomExtractor) SetExtractParam(param ExtractParam) {
	d.params = param
}

func (d *DomExtractor) scoreMultiplier() ContentScoreMultiplier {
	if d.params.ScoreMultiplier == (ContentScoreMultiplier{}) {
		return defaultScoreMultiplier
	}
	return d.params.ScoreMultiplier
}

func (d *DomExtractor) threshold() MeaningfulThreshold {
	if d.params.Threshold == (MeaningfulThreshold{}) {
		return defaultThreshold
	}
	return d.params.Threshold
}
