package domain

// FileStatus tracks whether a selected folder has been fully enumerated.
type FileStatus string

const (
	// StatusPending means the folder has never been fully enumerated.
	StatusPending FileStatus = "PENDING"
	// StatusProcessing is reserved for items being delivered.
	StatusProcessing FileStatus = "PROCESSING"
	// StatusUploaded means the folder is now tracked incrementally.
	StatusUploaded FileStatus = "UPLOADED"
)

// MimeTypeToBeChecked marks an item whose content type must be probed
// with a HEAD request before it is delivered.
const MimeTypeToBeChecked = "_to_be_checked_"

// Well-known metadata keys set by connectors.
const (
	MetaPath         = "path"
	MetaURI          = "uri"
	MetaType         = "type"
	MetaLastModified = "lastModified"
	MetaDownloadLink = "downloadLink"
)

// SyncItem is one discovered unit of content at a source.
// OriginalID is stable across cycles and is the only identity used for
// idempotent delivery and deletion detection.
type SyncItem struct {
	OriginalID  string            `json:"originalId"`
	UUID        string            `json:"uuid,omitempty"`
	Title       string            `json:"title"`
	MimeType    string            `json:"mimeType,omitempty"`
	ModifiedGMT string            `json:"modifiedGMT,omitempty"`
	IsFolder    bool              `json:"isFolder,omitempty"`
	Parents     []string          `json:"parents,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Status      FileStatus        `json:"status,omitempty"`

	// Deleted is set only on items synthesized by diffing against the
	// previously known ids; it is never persisted.
	Deleted bool `json:"-"`
}

// Meta returns a metadata value, or "" when absent.
func (i SyncItem) Meta(key string) string {
	if i.Metadata == nil {
		return ""
	}
	return i.Metadata[key]
}

// IsPending reports whether a folder still needs a full enumeration.
// Folders without a status are treated as pending.
func (i SyncItem) IsPending() bool {
	return i.Status == "" || i.Status == StatusPending
}

// DeletedItem builds the placeholder emitted for an id that is no longer
// observed at the source.
func DeletedItem(originalID string) SyncItem {
	return SyncItem{
		OriginalID: originalID,
		UUID:       originalID,
		Metadata:   map[string]string{},
		Deleted:    true,
	}
}

// SearchResults is one page of a connector listing.
type SearchResults struct {
	Items []SyncItem `json:"items"`

	// NextPage is an opaque token for the following page, empty on the last one.
	NextPage string `json:"nextPage,omitempty"`
}

// DiffDeleted returns placeholders for every id of existing that is not in
// observed. Order follows existing.
func DiffDeleted(existing []string, observed map[string]struct{}) []SyncItem {
	var deleted []SyncItem
	for _, id := range existing {
		if _, ok := observed[id]; !ok {
			deleted = append(deleted, DeletedItem(id))
		}
	}
	return deleted
}
