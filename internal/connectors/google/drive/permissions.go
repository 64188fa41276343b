package drive

import (
	"context"
	"fmt"
	"sort"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

const permissionFields = "nextPageToken, permissions(type, emailAddress, domain)"

// GetGroups returns the principals allowed to read item: user and group
// emails, and domains for domain-wide shares. Public files have none.
func (c *Connector) GetGroups(ctx context.Context, item domain.SyncItem) ([]string, error) {
	seen := make(map[string]bool)
	pageToken := ""
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		call := c.svc.Permissions.List(item.OriginalID).
			SupportsAllDrives(true).
			Fields(googleapi.Field(permissionFields)).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list permissions of %s: %w", item.OriginalID, c.wrap(err))
		}
		for _, p := range page.Permissions {
			switch p.Type {
			case "user", "group":
				if p.EmailAddress != "" {
					seen[p.EmailAddress] = true
				}
			case "domain":
				if p.Domain != "" {
					seen[p.Domain] = true
				}
			}
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups, nil
}
