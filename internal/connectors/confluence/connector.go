// Package confluence synchronises the pages, blog posts and attachments of
// Confluence spaces.
package confluence

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/rest"
	"github.com/custodia-labs/sercha-sync/internal/connectors/base"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Name is the connector identifier stored in configurations.
const Name = "confluence"

// Parameter keys.
const (
	KeyURL   = "url"
	KeyUser  = "user"
	KeyToken = "token"
)

const (
	batchSize      = 50
	typeAttachment = "attachment"
	cqlEpoch       = "1970-01-01"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Definition describes the connector in the catalogue.
var Definition = domain.ConnectorDefinition{
	Name:        Name,
	Title:       "Confluence",
	Description: "Synchronise pages and attachments of selected Confluence spaces",
	AuthMethod:  domain.AuthMethodBasic,
	HasFolders:  true,
	ConfigKeys: []domain.ConfigKey{
		{Key: KeyURL, Label: "Site URL", Description: "e.g. https://example.atlassian.net/wiki", Required: true},
		{Key: KeyUser, Label: "User", Description: "Account e-mail", Required: true},
		{Key: KeyToken, Label: "API token", Required: true, Secret: true},
	},
}

type links struct {
	WebUI    string `json:"webui"`
	Download string `json:"download"`
	Next     string `json:"next"`
}

type space struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Links links  `json:"_links"`
}

type content struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Version struct {
		When string `json:"when"`
	} `json:"version"`
	Extensions struct {
		MediaType string `json:"mediaType"`
	} `json:"extensions"`
	Body struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
	Links links `json:"_links"`
}

type page[T any] struct {
	Results []T   `json:"results"`
	Links   links `json:"_links"`
}

// Connector reads Confluence through the REST API with basic auth. Folder
// ids are space keys, item ids are content ids.
type Connector struct {
	params domain.Params
	client *rest.Client
}

// New creates a Confluence connector. The base URL defaults to the url
// parameter.
func New(params domain.Params, opts ...base.Option) (*Connector, error) {
	o := base.Apply(strings.TrimSuffix(params.String(KeyURL), "/"), opts...)
	return &Connector{
		params: params.Clone(),
		client: rest.New(rest.Config{
			BaseURL:   o.BaseURL,
			Auth:      rest.Basic(params.String(KeyUser), params.String(KeyToken)),
			Transport: o.Transport,
		}),
	}, nil
}

// ValidateParameters requires an absolute http(s) url, a user and a token.
func (c *Connector) ValidateParameters(params domain.Params) bool {
	if params.String(KeyUser) == "" || params.String(KeyToken) == "" {
		return false
	}
	u, err := url.Parse(params.String(KeyURL))
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// HasAuthData reports whether user and token are set.
func (c *Connector) HasAuthData() bool {
	return c.params.String(KeyUser) != "" && c.params.String(KeyToken) != ""
}

// IsAccessTokenValid reads one space; only a 401 reports false.
func (c *Connector) IsAccessTokenValid(ctx context.Context) bool {
	err := c.client.Get(ctx, "rest/api/space", url.Values{"limit": {"1"}}, nil)
	return rest.StatusCode(err) != http.StatusUnauthorized
}

// RefreshAuthentication is a no-op, API tokens do not expire.
func (c *Connector) RefreshAuthentication(context.Context) (domain.Params, bool) {
	return c.params.Clone(), true
}

// GetFolders lists the spaces whose name or key contains query.
func (c *Connector) GetFolders(ctx context.Context, query string) (domain.SearchResults, error) {
	spaces, err := collect[space](ctx, c.client, "rest/api/space", url.Values{})
	if err != nil {
		return domain.SearchResults{}, fmt.Errorf("list spaces: %w", err)
	}

	q := strings.ToLower(query)
	var items []domain.SyncItem
	for _, s := range spaces {
		if q != "" && !strings.Contains(strings.ToLower(s.Name), q) && !strings.Contains(strings.ToLower(s.Key), q) {
			continue
		}
		items = append(items, domain.SyncItem{
			OriginalID: s.Key,
			UUID:       s.Key,
			Title:      s.Name,
			IsFolder:   true,
			Metadata:   map[string]string{domain.MetaPath: s.Links.WebUI},
			Status:     domain.StatusPending,
		})
	}
	return domain.SearchResults{Items: items}, nil
}

// GetFilesFromFolders lists every page, blog post and attachment of the
// spaces.
func (c *Connector) GetFilesFromFolders(ctx context.Context, folders []domain.SyncItem) (domain.SearchResults, error) {
	items, err := c.search(ctx, folders, "")
	return domain.SearchResults{Items: items}, err
}

// GetLastModified searches content modified after since. CQL works at
// minute precision and cannot report deletions.
func (c *Connector) GetLastModified(
	ctx context.Context,
	since string,
	folders []domain.SyncItem,
	_ []string,
) (domain.SearchResults, error) {
	items, err := c.search(ctx, folders, since)
	return domain.SearchResults{Items: items}, err
}

// Fetch returns the storage body of pages as HTML text and the raw bytes
// of attachments.
func (c *Connector) Fetch(ctx context.Context, item domain.SyncItem) (domain.Content, error) {
	if item.Meta(domain.MetaType) == typeAttachment {
		link := item.Meta(domain.MetaDownloadLink)
		if link == "" {
			return nil, fmt.Errorf("download attachment %s: no download link: %w", item.OriginalID, domain.ErrInvalidInput)
		}
		resp, err := c.client.Do(ctx, &rest.Request{Path: link})
		if err != nil {
			return nil, fmt.Errorf("download attachment %s: %w", item.OriginalID, err)
		}
		return &domain.Blob{Data: resp.Body}, nil
	}

	var page content
	path := "rest/api/content/" + url.PathEscape(item.OriginalID)
	if err := c.client.Get(ctx, path, url.Values{"expand": {"body.storage"}}, &page); err != nil {
		return nil, fmt.Errorf("get content %s: %w", item.OriginalID, err)
	}
	return &domain.Text{Body: page.Body.Storage.Value, Format: domain.TextHTML}, nil
}

func (c *Connector) search(ctx context.Context, folders []domain.SyncItem, since string) ([]domain.SyncItem, error) {
	var items []domain.SyncItem
	var errs []error
	for _, folder := range folders {
		q := url.Values{"cql": {cql(folder.OriginalID, since)}, "expand": {"version"}}
		found, err := collect[content](ctx, c.client, "rest/api/content/search", q)
		if err != nil {
			errs = append(errs, fmt.Errorf("search space %s: %w", folder.OriginalID, err))
		}
		for _, r := range found {
			items = append(items, toItem(r))
		}
	}
	return base.Dedupe(items), errors.Join(errs...)
}

// cql builds the space query. since is cut to "yyyy-MM-dd HH:mm".
func cql(spaceKey, since string) string {
	boundary := cqlEpoch
	if t, ok := domain.ParseTimestamp(since); ok {
		boundary = t.UTC().Format("2006-01-02 15:04")
	}
	return fmt.Sprintf(`space="%s" and lastModified > "%s"`, strings.ReplaceAll(spaceKey, `"`, `\"`), boundary)
}

// collect pages with start/limit until no next link is returned.
func collect[T any](ctx context.Context, client *rest.Client, path string, query url.Values) ([]T, error) {
	var all []T
	for start := 0; ; start += batchSize {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("limit", strconv.Itoa(batchSize))
		q.Set("start", strconv.Itoa(start))

		var p page[T]
		if err := client.Get(ctx, path, q, &p); err != nil {
			return all, err
		}
		all = append(all, p.Results...)
		if p.Links.Next == "" || len(p.Results) == 0 {
			return all, nil
		}
	}
}

func toItem(r content) domain.SyncItem {
	item := domain.SyncItem{
		OriginalID:  r.ID,
		UUID:        r.ID,
		Title:       r.Title,
		MimeType:    domain.MimeHTML,
		ModifiedGMT: r.Version.When,
		Metadata: map[string]string{
			domain.MetaType: r.Type,
			domain.MetaPath: r.Links.WebUI,
		},
		Status: domain.StatusPending,
	}
	if r.Type == typeAttachment {
		item.MimeType = r.Extensions.MediaType
		if item.MimeType == "" {
			item.MimeType = domain.LookupMimeType(r.Title)
		}
		item.Metadata[domain.MetaDownloadLink] = r.Links.Download
	}
	return item
}
