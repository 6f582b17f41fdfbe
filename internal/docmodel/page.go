package docmodel

// ProcessedPage is what a ContentProcessor external collaborator returns
// from process(body, base, content_type): the isolated, structured content
// of a fetched page, plus enough of the source to let QualityChecker and
// link extraction operate on it.
type ProcessedPage struct {
	Title       string
	ContentType string
	Structure   Node
	Markdown    string
}

// NewProcessedPage builds a ProcessedPage from its required fields.
func NewProcessedPage(title, contentType string, structure Node, markdown string) ProcessedPage {
	return ProcessedPage{
		Title:       title,
		ContentType: contentType,
		Structure:   structure,
		Markdown:    markdown,
	}
}

// Links returns every href reachable from Structure, in document order.
func (p ProcessedPage) Links() []string {
	return ExtractLinks(p.Structure)
}
