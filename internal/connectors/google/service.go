package google

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DefaultDriveEndpoint is the Drive v3 API root.
const DefaultDriveEndpoint = "https://www.googleapis.com/drive/v3/"

// NewDriveService creates a Drive API client authenticated with ts.
// An empty endpoint selects the public API. transport may be nil.
func NewDriveService(ctx context.Context, ts oauth2.TokenSource, endpoint string, transport http.RoundTripper) (*drive.Service, error) {
	if transport == nil {
		transport = http.DefaultTransport
	}
	client := &http.Client{Transport: &oauth2.Transport{Source: ts, Base: transport}}

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if endpoint != "" && endpoint != DefaultDriveEndpoint {
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return svc, nil
}
