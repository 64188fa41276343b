// Package github implements a connector for GitHub repositories.
//
// Repositories accessible to the token are the folders. For each selected
// repository the connector syncs:
//
//   - files: blobs of the default branch tree, downloaded by SHA
//   - issues: rendered with their comments as markdown
//   - prs: pull requests rendered the same way
//
// Changes are detected from the commits made after the last sync. Files
// missing from the current tree are reported deleted.
//
// # Rate Limiting
//
// Requests are throttled to ~1.2 per second, below the 5,000 per hour quota
// of authenticated users, and pause until the reset time once fewer than
// MinBuffer requests remain.
package github
