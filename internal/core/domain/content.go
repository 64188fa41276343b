package domain

// Content is what a connector hands to the upload pipeline for one item.
// It is a closed set: *Blob and *Text are downloadable payloads, *Link is
// a reference the destination (or the local extractor) resolves itself.
type Content interface {
	isContent()
}

// TextFormat names the markup of an inline text body.
type TextFormat string

// Supported text formats.
const (
	TextPlain    TextFormat = "PLAIN"
	TextMarkdown TextFormat = "MARKDOWN"
	TextHTML     TextFormat = "HTML"
	TextJSON     TextFormat = "JSON"
)

// Blob is raw file content.
type Blob struct {
	Data []byte
	// MimeType is the type of Data when the connector knows it better than
	// the item listing (e.g. a document exported to PDF).
	MimeType string
}

// Text is structured text set directly on the destination resource.
type Text struct {
	Body   string     `json:"body"`
	Format TextFormat `json:"format,omitempty"`
}

// Link references content by URI.
type Link struct {
	URI           string
	CSSSelector   string
	XPathSelector string
	ExtraHeaders  map[string]string
}

func (*Blob) isContent() {}
func (*Text) isContent() {}
func (*Link) isContent() {}
