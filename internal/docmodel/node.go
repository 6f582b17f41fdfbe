// Package docmodel holds the tagged-variant content tree produced once a
// page's main content has been isolated and sanitized. It replaces ad-hoc
// walking of loosely-typed nested structures with a typed tree and a
// structural visitor.
package docmodel

// Kind tags which variant a Node holds. Exactly one of the corresponding
// fields on Node is meaningful for a given Kind.
type Kind int

const (
	KindLink Kind = iota
	KindSection
	KindParagraph
	KindText
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindLink:
		return "link"
	case KindSection:
		return "section"
	case KindParagraph:
		return "paragraph"
	case KindText:
		return "text"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

// Node is a tagged variant: Link{Href}, Section{Children}, Paragraph{Children},
// Text{Value}, Other{Children}. Construct instances with the NewX helpers
// rather than the struct literal, so the Kind tag can never drift out of
// sync with the populated fields.
type Node struct {
	Kind     Kind
	Href     string
	Value    string
	Children []Node
}

// NewLink builds a Link node. Href is kept exactly as encountered; resolving
// it against a base URL is the caller's responsibility.
func NewLink(href string, children ...Node) Node {
	return Node{Kind: KindLink, Href: href, Children: children}
}

// NewSection builds a Section node grouping its children.
func NewSection(children ...Node) Node {
	return Node{Kind: KindSection, Children: children}
}

// NewParagraph builds a Paragraph node grouping its children.
func NewParagraph(children ...Node) Node {
	return Node{Kind: KindParagraph, Children: children}
}

// NewText builds a leaf Text node.
func NewText(value string) Node {
	return Node{Kind: KindText, Value: value}
}

// NewOther builds a catch-all container node for anything that does not map
// onto Link, Section, Paragraph, or Text (e.g. tables, images, code blocks).
func NewOther(children ...Node) Node {
	return Node{Kind: KindOther, Children: children}
}

// ExtractLinks walks the tree at any depth and returns every Link node's
// Href, in document order. This is the structural-visitor replacement for
// recursively scanning nested maps/lists for "href" keys: it finds links
// under any ancestor Kind, not just Section/Paragraph.
func ExtractLinks(root Node) []string {
	var hrefs []string
	var walk func(n Node)
	walk = func(n Node) {
		if n.Kind == KindLink && n.Href != "" {
			hrefs = append(hrefs, n.Href)
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(root)
	return hrefs
}

// CountText returns the total rune length of every Text node under root,
// the same signal the extraction heuristics use to judge whether a
// container holds meaningful content.
func CountText(root Node) int {
	total := 0
	var walk func(n Node)
	walk = func(n Node) {
		if n.Kind == KindText {
			total += len([]rune(n.Value))
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(root)
	return total
}
