package driven

import (
	"context"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// Destination opens handles on knowledge boxes.
type Destination interface {
	KnowledgeBox(kb domain.KnowledgeBox) KnowledgeBox
}

// KnowledgeBox is the subset of the indexing service used for delivery.
// Transport failures worth retrying wrap domain.ErrTransient.
type KnowledgeBox interface {
	// ID returns the knowledge box id.
	ID() string

	// GetResourceBySlug returns domain.ErrNotFound when absent.
	GetResourceBySlug(ctx context.Context, slug string) (*Resource, error)
	HasResource(ctx context.Context, slug string) (bool, error)
	CreateResource(ctx context.Context, res Resource) error
	ModifyResource(ctx context.Context, slug string, res Resource) error

	// Upload sends a binary payload to a file field of the resource.
	Upload(ctx context.Context, slug, field string, data []byte, opts UploadOptions) error

	// SetTextField sets an inline text field of the resource.
	SetTextField(ctx context.Context, slug, field string, text domain.Text) error

	// DeleteResource returns domain.ErrNotFound when absent.
	DeleteResource(ctx context.Context, slug string) error
}

// Resource is the payload of a create or modify call. Empty fields are
// omitted from the request.
type Resource struct {
	Slug         string               `json:"slug,omitempty"`
	Title        string               `json:"title,omitempty"`
	Icon         string               `json:"icon,omitempty"`
	Origin       *Origin              `json:"origin,omitempty"`
	UserMetadata *UserMetadata        `json:"usermetadata,omitempty"`
	Security     *Security            `json:"security,omitempty"`
	Files        map[string]FileField `json:"files,omitempty"`
	Links        map[string]LinkField `json:"links,omitempty"`
}

// Origin records where a resource came from.
type Origin struct {
	URL      string `json:"url,omitempty"`
	Path     string `json:"path,omitempty"`
	SourceID string `json:"source_id,omitempty"`
	Modified string `json:"modified,omitempty"`
}

// UserMetadata carries the classification labels.
type UserMetadata struct {
	Classifications []domain.Label `json:"classifications"`
}

// Security carries the access groups.
type Security struct {
	AccessGroups []string `json:"access_groups"`
}

// FileField references a file the destination downloads by URI.
type FileField struct {
	File FileRef `json:"file"`
}

// FileRef is the location of a referenced file.
type FileRef struct {
	URI          string            `json:"uri"`
	Filename     string            `json:"filename,omitempty"`
	ExtraHeaders map[string]string `json:"extra_headers,omitempty"`
}

// LinkField is a web page the destination renders itself.
type LinkField struct {
	URI             string            `json:"uri"`
	CSSSelector     string            `json:"css_selector,omitempty"`
	XPath           string            `json:"xpath,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
	Cookies         map[string]string `json:"cookies,omitempty"`
	LocalStorage    map[string]string `json:"localstorage,omitempty"`
	ExtractStrategy string            `json:"extract_strategy,omitempty"`
}

// UploadOptions describes a binary upload.
type UploadOptions struct {
	ContentType     string
	Filename        string
	MD5             string
	ExtractStrategy string
}
