package drive

import "github.com/custodia-labs/sercha-sync/internal/core/domain"

// Name is the connector identifier stored in configurations.
const Name = "gdrive"

// Drive MIME types.
const (
	MimeTypeFolder      = "application/vnd.google-apps.folder"
	mimeTypeWorkspace   = "application/vnd.google-apps"
	metaNeedsConversion = "needsPdfConversion"
)

// pageSize is the number of files requested per listing page.
const pageSize = 50

// listFields selects the file attributes the connector reads.
const listFields = "nextPageToken, files(id, name, mimeType, modifiedTime, parents)"

// Definition describes the connector in the catalogue.
var Definition = domain.ConnectorDefinition{
	Name:        Name,
	Title:       "Google Drive",
	Description: "Synchronise files of selected Drive folders, Google documents are exported to PDF",
	AuthMethod:  domain.AuthMethodOAuth,
	HasFolders:  true,
	ConfigKeys:  domain.OAuthConfigKeys,
}
