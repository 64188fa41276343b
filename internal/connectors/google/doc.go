// Package google provides shared infrastructure for the Google Drive
// connector: the authenticated service factory, the mapping of API errors
// onto domain errors and a quota-aware rate limiter.
//
// Access tokens come from the connector parameters and are renewed through
// the configured refresh endpoint, never through Google's token endpoint:
//
//	base := oauth.NewBase(params, oauth.NewRefresher(nil))
//	svc, err := google.NewDriveService(ctx, base.TokenSource(), "", nil)
//
// The agent only reads, so the OAuth client behind the refresh endpoint
// needs https://www.googleapis.com/auth/drive.readonly.
package google
