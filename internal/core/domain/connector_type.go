package domain

import "strings"

// AuthMethod defines how a connector authenticates.
type AuthMethod string

const (
	// AuthMethodNone requires no authentication (e.g., local folder, feeds).
	AuthMethodNone AuthMethod = "none"
	// AuthMethodToken uses a static token or API key.
	AuthMethodToken AuthMethod = "token"
	// AuthMethodBasic uses a user name and token pair.
	AuthMethodBasic AuthMethod = "basic"
	// AuthMethodOAuth uses an access token renewed through a refresh endpoint.
	AuthMethodOAuth AuthMethod = "oauth"
)

// ConnectorDefinition describes a supported connector variant.
type ConnectorDefinition struct {
	// Name is the identifier stored in configurations (e.g., "gdrive").
	Name string
	// Title is the human-readable display name.
	Title string
	// Description provides a brief explanation of the connector.
	Description string
	// AuthMethod specifies how the connector authenticates.
	AuthMethod AuthMethod
	// External reports that content is referenced by link, not downloaded.
	External bool
	// HasFolders reports whether GetFolders is supported.
	HasFolders bool
	// RootParam names the parameter holding the one folder synchronised by
	// connectors without folder listing.
	RootParam string
	// ConfigKeys lists the parameters understood by this connector.
	ConfigKeys []ConfigKey
}

// RequiresAuth returns true if this connector needs credentials.
func (d *ConnectorDefinition) RequiresAuth() bool {
	return d.AuthMethod != AuthMethodNone && d.AuthMethod != ""
}

// RootFolder returns the folder a connector without folder listing
// synchronises, as a new PENDING selection. ok is false when the connector
// lists folders or params carry no root.
func (d *ConnectorDefinition) RootFolder(params Params) (_ SyncItem, ok bool) {
	if d.HasFolders || d.RootParam == "" {
		return SyncItem{}, false
	}
	root := strings.TrimSpace(params.String(d.RootParam))
	if root == "" {
		return SyncItem{}, false
	}
	return SyncItem{
		OriginalID: root,
		Title:      root,
		IsFolder:   true,
		Status:     StatusPending,
		Metadata:   map[string]string{MetaPath: root},
	}, true
}

// RequiredKeys returns the keys of the required parameters.
func (d *ConnectorDefinition) RequiredKeys() []string {
	var keys []string
	for _, k := range d.ConfigKeys {
		if k.Required {
			keys = append(keys, k.Key)
		}
	}
	return keys
}

// ConfigKey describes a configuration field for a connector.
type ConfigKey struct {
	// Key is the parameter name.
	Key string
	// Label is the human-readable label.
	Label string
	// Description explains what this field is for.
	Description string
	// Default is the default value, if any.
	Default string
	// Required indicates whether this field must be provided.
	Required bool
	// Secret indicates whether this field should be masked on output.
	Secret bool
}

// OAuthConfigKeys are the parameters shared by every OAuth connector.
var OAuthConfigKeys = []ConfigKey{
	{Key: "token", Label: "Access token", Required: true, Secret: true},
	{Key: "refresh", Label: "Refresh token", Required: true, Secret: true},
	{Key: "refresh_endpoint", Label: "Refresh endpoint", Description: "URL exchanging a refresh token for an access token", Required: true},
}
