package github

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// MaxBlobSize is the largest blob the git data API serves.
const MaxBlobSize = 100 * 1024 * 1024

// Item metadata keys.
const (
	metaRepo     = "repo"
	metaBranch   = "branch"
	metaFilePath = "filePath"
	metaSHA      = "sha"
	metaNumber   = "number"
)

// Item kinds stored in the type metadata.
const (
	typeFile  = "file"
	typeIssue = "issue"
	typePull  = "pull"
)

// repoRef names a repository and the branch synchronised.
type repoRef struct {
	Owner  string
	Name   string
	Branch string
}

func (r repoRef) FullName() string { return r.Owner + "/" + r.Name }

// fileID identifies a file across repositories.
func fileID(repo repoRef, path string) string {
	return repo.FullName() + ":" + path
}

// listFiles converts the blobs of the branch tree into items.
func listFiles(ctx context.Context, client *Client, repo repoRef, cfg *Config) ([]domain.SyncItem, error) {
	tree, err := client.GetTree(ctx, repo.Owner, repo.Name, repo.Branch)
	if err != nil {
		return nil, fmt.Errorf("list files of %s: %w", repo.FullName(), err)
	}
	if tree == nil {
		return nil, nil
	}

	items := make([]domain.SyncItem, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		path := entry.GetPath()
		if !matchesPatterns(path, cfg.FilePatterns) || isBinaryExtension(path) {
			continue
		}
		if entry.GetSize() > MaxBlobSize {
			continue
		}
		items = append(items, fileItem(repo, entry))
	}
	return items, nil
}

func fileItem(repo repoRef, entry *gh.TreeEntry) domain.SyncItem {
	path := entry.GetPath()
	return domain.SyncItem{
		OriginalID: fileID(repo, path),
		UUID:       fileID(repo, path),
		Title:      filepath.Base(path),
		MimeType:   detectFileMIMEType(path),
		Metadata: map[string]string{
			domain.MetaType: typeFile,
			domain.MetaPath: repo.FullName() + "/" + path,
			domain.MetaURI:  fmt.Sprintf("https://github.com/%s/blob/%s/%s", repo.FullName(), repo.Branch, path),
			metaRepo:        repo.FullName(),
			metaBranch:      repo.Branch,
			metaFilePath:    path,
			metaSHA:         entry.GetSHA(),
		},
		Status: domain.StatusPending,
	}
}

// extMIMETypes maps file extensions to MIME types for common types not in Go's registry.
var extMIMETypes = map[string]string{
	".md": "text/markdown", ".markdown": "text/markdown",
	".go": "text/x-go", ".py": "text/x-python", ".rs": "text/x-rust",
	".ts": "text/typescript", ".tsx": "text/typescript-jsx", ".jsx": "text/javascript-jsx",
	".yaml": "text/yaml", ".yml": "text/yaml", ".toml": "text/toml",
	".sh": "text/x-shellscript", ".sql": "text/x-sql", ".rb": "text/x-ruby",
	".java": "text/x-java", ".kt": "text/x-kotlin", ".swift": "text/x-swift",
}

// detectFileMIMEType determines the MIME type from the file extension.
func detectFileMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "text/plain"
	}
	if t, ok := extMIMETypes[ext]; ok {
		return t
	}
	if t := domain.LookupMimeType(path); t != "" {
		return t
	}
	return "text/plain"
}

// matchesPatterns checks if a path matches any of the glob patterns, by
// base name or full path.
func matchesPatterns(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, filepath.Base(path)); err == nil && ok {
			return true
		}
		if ok, err := filepath.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// binaryExts are build outputs and archives nothing can index.
var binaryExts = map[string]bool{
	".exe": true, ".dll": true, ".so": true, ".dylib": true,
	".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".7z": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".bin": true, ".dat": true, ".db": true, ".sqlite": true,
	".pyc": true, ".pyo": true, ".class": true, ".o": true, ".a": true,
}

func isBinaryExtension(path string) bool {
	return binaryExts[strings.ToLower(filepath.Ext(path))]
}
