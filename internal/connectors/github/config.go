package github

import (
	"strings"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// Name is the connector identifier stored in configurations.
const Name = "github"

// Parameter keys.
const (
	KeyToken           = "token"
	KeyEnterpriseURL   = "enterprise_url"
	KeyContentTypes    = "content_types"
	KeyFilePatterns    = "file_patterns"
	KeyIncludeArchived = "include_archived"
	KeyIncludeForks    = "include_forks"
)

// ContentType represents the type of content to index.
type ContentType string

const (
	ContentFiles  ContentType = "files"
	ContentIssues ContentType = "issues"
	ContentPRs    ContentType = "prs"
)

// AllContentTypes returns all supported content types.
func AllContentTypes() []ContentType {
	return []ContentType{ContentFiles, ContentIssues, ContentPRs}
}

// Definition describes the connector in the catalogue.
var Definition = domain.ConnectorDefinition{
	Name:        Name,
	Title:       "GitHub",
	Description: "Synchronise files, issues and pull requests of GitHub repositories",
	AuthMethod:  domain.AuthMethodToken,
	HasFolders:  true,
	ConfigKeys: []domain.ConfigKey{
		{Key: KeyToken, Label: "Access token", Description: "Personal access or OAuth token", Required: true, Secret: true},
		{Key: KeyEnterpriseURL, Label: "Enterprise URL", Description: "GitHub Enterprise Server URL"},
		{Key: KeyContentTypes, Label: "Content types", Description: "Comma separated: files, issues, prs", Default: "files,issues,prs"},
		{Key: KeyFilePatterns, Label: "File patterns", Description: "Comma separated glob patterns"},
		{Key: KeyIncludeArchived, Label: "Include archived repositories", Default: "false"},
		{Key: KeyIncludeForks, Label: "Include forks", Default: "false"},
	},
}

// Config holds the parsed settings of a GitHub source.
type Config struct {
	// ContentTypes specifies what content to index.
	// Default: all types (files, issues, prs)
	ContentTypes []ContentType

	// FilePatterns are glob patterns for file filtering.
	// Default: all files
	FilePatterns []string

	IncludeArchived bool
	IncludeForks    bool
}

// ParseConfig reads the connector parameters. All fields are optional.
func ParseConfig(params domain.Params) (*Config, error) {
	cfg := &Config{
		ContentTypes:    AllContentTypes(),
		IncludeArchived: params.Bool(KeyIncludeArchived),
		IncludeForks:    params.Bool(KeyIncludeForks),
	}

	if s := params.String(KeyContentTypes); s != "" {
		types, err := parseContentTypes(s)
		if err != nil {
			return nil, err
		}
		cfg.ContentTypes = types
	}
	if s := params.String(KeyFilePatterns); s != "" {
		cfg.FilePatterns = parsePatterns(s)
	}
	return cfg, nil
}

func parseContentTypes(s string) ([]ContentType, error) {
	valid := map[string]ContentType{
		"files":  ContentFiles,
		"issues": ContentIssues,
		"prs":    ContentPRs,
	}

	var types []ContentType
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		ct, ok := valid[part]
		if !ok {
			return nil, ErrConfigInvalidContentType
		}
		types = append(types, ct)
	}

	if len(types) == 0 {
		return AllContentTypes(), nil
	}
	return types, nil
}

func parsePatterns(s string) []string {
	var patterns []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			patterns = append(patterns, part)
		}
	}
	return patterns
}

// HasContentType checks if a content type is enabled.
func (c *Config) HasContentType(ct ContentType) bool {
	for _, t := range c.ContentTypes {
		if t == ct {
			return true
		}
	}
	return false
}
