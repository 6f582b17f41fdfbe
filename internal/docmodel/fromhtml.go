package docmodel

import (
	"strings"

	"golang.org/x/net/html"
)

// FromHTMLNode walks a sanitized *html.Node subtree and builds the
// equivalent docmodel.Node tree. This is the adapter C7 uses at the
// boundary between the DOM-based extraction/sanitization/conversion
// pipeline and the tagged-variant link-extraction visitor: extractor and
// sanitizer keep operating on *html.Node internally (that is how the
// teacher's heuristics are written), and the content tree is converted
// once, after sanitization, purely to drive ExtractLinks.
func FromHTMLNode(n *html.Node) Node {
	if n == nil {
		return NewOther()
	}
	switch n.Type {
	case html.TextNode:
		if strings.TrimSpace(n.Data) == "" {
			return NewText("")
		}
		return NewText(n.Data)
	case html.ElementNode:
		children := childNodes(n)
		switch n.Data {
		case "a":
			href := attr(n, "href")
			return NewLink(href, children...)
		case "section", "article", "div", "main", "body", "html":
			return NewSection(children...)
		case "p":
			return NewParagraph(children...)
		default:
			return NewOther(children...)
		}
	default:
		return NewOther(childNodes(n)...)
	}
}

func childNodes(n *html.Node) []Node {
	var children []Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		child := FromHTMLNode(c)
		if child.Kind == KindText && child.Value == "" {
			continue
		}
		children = append(children, child)
	}
	return children
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
