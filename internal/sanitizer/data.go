package sanitizer

import (
	"net/url"

	"golang.org/x/net/html"
)

type SanitizedHTMLDoc struct {
	contentNode    *html.Node
	discoveredUrls []url.URL
}

// NewSanitizedHTMLDoc wraps an already-sanitized content node and the URLs
// discovered while sanitizing it.
func NewSanitizedHTMLDoc(contentNode *html.Node, discoveredUrls []url.URL) SanitizedHTMLDoc {
	return SanitizedHTMLDoc{
		contentNode:    contentNode,
		discoveredUrls: discoveredUrls,
	}
}

func (s *SanitizedHTMLDoc) GetDiscoveredURLs() []url.URL {
	return s.discoveredUrls
}

// GetContentNode returns the sanitized DOM subtree ready for markdown
// conversion.
func (s *SanitizedHTMLDoc) GetContentNode() *html.Node {
	return s.contentNode
}
