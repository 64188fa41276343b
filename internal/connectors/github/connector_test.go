package github

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-sync/internal/connectors/base"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

type fakeGitHub struct {
	mu          sync.Mutex
	userStatus  int
	issuesSince string
	commitsSHA  string
}

func (f *fakeGitHub) update(fn func(*fakeGitHub)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeGitHub) snapshot() fakeGitHub {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakeGitHub{userStatus: f.userStatus, issuesSince: f.issuesSince, commitsSHA: f.commitsSHA}
}

func newFakeGitHub(t *testing.T) (*httptest.Server, *fakeGitHub) {
	t.Helper()
	fake := &fakeGitHub{userStatus: http.StatusOK}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ghp_test", r.Header.Get("Authorization"))
		status := fake.snapshot().userStatus
		if status != http.StatusOK {
			w.WriteHeader(status)
			writeJSON(w, map[string]string{"message": "Bad credentials"})
			return
		}
		writeJSON(w, map[string]any{"login": "octocat"})
	})

	mux.HandleFunc("GET /user/repos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all", r.URL.Query().Get("visibility"))
		writeJSON(w, []any{
			repo("acme/app", "main", false, false),
			repo("acme/old", "main", true, false),
			repo("acme/lib", "trunk", false, true),
			repo("acme/empty", "main", false, false),
		})
	})

	mux.HandleFunc("GET /repos/acme/app", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, repo("acme/app", "main", false, false))
	})
	mux.HandleFunc("GET /repos/acme/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]string{"message": "Not Found"})
	})

	mux.HandleFunc("GET /repos/acme/app/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("recursive"))
		writeJSON(w, map[string]any{
			"sha": "tree1",
			"tree": []any{
				map[string]any{"path": "README.md", "type": "blob", "sha": "r1", "size": 12},
				map[string]any{"path": "cmd", "type": "tree", "sha": "t2"},
				map[string]any{"path": "cmd/main.go", "type": "blob", "sha": "m1", "size": 40},
				map[string]any{"path": "bin/tool.exe", "type": "blob", "sha": "x1", "size": 400},
			},
		})
	})
	mux.HandleFunc("GET /repos/acme/empty/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		writeJSON(w, map[string]string{"message": "Git Repository is empty."})
	})

	mux.HandleFunc("GET /repos/acme/app/git/blobs/{sha}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "blob:"+r.PathValue("sha"))
	})

	mux.HandleFunc("GET /repos/acme/app/commits", func(w http.ResponseWriter, r *http.Request) {
		fake.update(func(f *fakeGitHub) { f.commitsSHA = r.URL.Query().Get("sha") })
		writeJSON(w, []any{map[string]string{"sha": "c1"}, map[string]string{"sha": "c2"}})
	})
	mux.HandleFunc("GET /repos/acme/app/commits/{sha}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("sha") {
		case "c1":
			writeJSON(w, map[string]any{
				"sha":    "c1",
				"commit": map[string]any{"committer": map[string]any{"date": "2024-05-01T10:00:00Z"}},
				"files": []any{
					map[string]string{"filename": "cmd/main.go", "status": "modified"},
					map[string]string{"filename": "gone.txt", "status": "removed"},
				},
			})
		default:
			writeJSON(w, map[string]any{
				"sha":    "c2",
				"commit": map[string]any{"committer": map[string]any{"date": "2024-04-01T10:00:00Z"}},
				"files":  []any{map[string]string{"filename": "cmd/main.go", "status": "modified"}},
			})
		}
	})

	mux.HandleFunc("GET /repos/{owner}/{repo}/issues", func(w http.ResponseWriter, r *http.Request) {
		fake.update(func(f *fakeGitHub) { f.issuesSince = r.URL.Query().Get("since") })
		if r.PathValue("repo") != "app" {
			writeJSON(w, []any{})
			return
		}
		writeJSON(w, []any{
			map[string]any{"number": 1, "title": "Crash on start", "html_url": "https://github.com/acme/app/issues/1", "updated_at": "2024-05-02T09:00:00Z"},
			map[string]any{"number": 2, "title": "Fix crash", "updated_at": "2024-05-03T09:00:00Z", "pull_request": map[string]string{"url": "https://api.github.com/repos/acme/app/pulls/2"}},
		})
	})
	mux.HandleFunc("GET /repos/acme/app/issues/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"number": 1, "title": "Crash on start", "body": "It crashes.", "state": "open",
			"user":   map[string]string{"login": "alice"},
			"labels": []any{map[string]string{"name": "bug"}},
		})
	})
	mux.HandleFunc("GET /repos/acme/app/issues/{number}/comments", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []any{
			map[string]any{"user": map[string]string{"login": "bob"}, "body": "Confirmed.", "created_at": "2024-05-02T10:00:00Z"},
		})
	})

	mux.HandleFunc("GET /repos/{owner}/{repo}/pulls", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "desc", r.URL.Query().Get("direction"))
		if r.PathValue("repo") != "app" {
			writeJSON(w, []any{})
			return
		}
		writeJSON(w, []any{
			map[string]any{"number": 2, "title": "Fix crash", "html_url": "https://github.com/acme/app/pull/2", "updated_at": "2024-05-03T09:00:00Z"},
			map[string]any{"number": 3, "title": "Old change", "updated_at": "2023-01-01T09:00:00Z"},
		})
	})
	mux.HandleFunc("GET /repos/acme/app/pulls/2", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"number": 2, "title": "Fix crash", "body": "Fixes #1.", "state": "closed", "merged": true,
			"user": map[string]string{"login": "carol"},
			"head": map[string]string{"ref": "fix"},
			"base": map[string]string{"ref": "main"},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, fake
}

func repo(fullName, branch string, archived, fork bool) map[string]any {
	return map[string]any{
		"full_name":      fullName,
		"default_branch": branch,
		"archived":       archived,
		"fork":           fork,
		"html_url":       "https://github.com/" + fullName,
		"pushed_at":      "2024-05-01T10:00:00Z",
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func setup(t *testing.T, params domain.Params) (*Connector, *fakeGitHub) {
	t.Helper()
	server, fake := newFakeGitHub(t)
	if params == nil {
		params = domain.Params{}
	}
	params[KeyToken] = "ghp_test"

	c, err := New(params, base.WithBaseURL(server.URL))
	require.NoError(t, err)
	c.client.rateLimiter = NewRateLimiterWithRate(1000, 100)
	return c, fake
}

func ids(items []domain.SyncItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.OriginalID
	}
	sort.Strings(out)
	return out
}

var appFolder = domain.SyncItem{OriginalID: "acme/app", Metadata: map[string]string{metaBranch: "main"}}

func TestConnector_Validate(t *testing.T) {
	c, _ := setup(t, nil)
	assert.True(t, c.HasAuthData())
	assert.True(t, c.ValidateParameters(domain.Params{KeyToken: "t"}))
	assert.False(t, c.ValidateParameters(domain.Params{}))
	assert.False(t, c.ValidateParameters(domain.Params{KeyToken: "t", KeyContentTypes: "wikis"}))

	_, err := New(domain.Params{KeyToken: "t", KeyContentTypes: "nope"})
	assert.ErrorIs(t, err, ErrConfigInvalidContentType)
}

func TestConnector_IsAccessTokenValid(t *testing.T) {
	c, fake := setup(t, nil)
	ctx := context.Background()
	assert.True(t, c.IsAccessTokenValid(ctx))

	fake.update(func(f *fakeGitHub) { f.userStatus = http.StatusUnauthorized })
	assert.False(t, c.IsAccessTokenValid(ctx))

	fake.update(func(f *fakeGitHub) { f.userStatus = http.StatusBadGateway })
	assert.True(t, c.IsAccessTokenValid(ctx))
}

func TestConnector_GetFolders(t *testing.T) {
	c, _ := setup(t, nil)

	res, err := c.GetFolders(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"acme/app", "acme/empty"}, ids(res.Items))

	res, err = c.GetFolders(context.Background(), "APP")
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	app := res.Items[0]
	assert.True(t, app.IsFolder)
	assert.Equal(t, "main", app.Meta(metaBranch))
	assert.Equal(t, "2024-05-01T10:00:00.000Z", app.ModifiedGMT)
}

func TestConnector_GetFolders_IncludeForks(t *testing.T) {
	c, _ := setup(t, domain.Params{KeyIncludeForks: "true", KeyIncludeArchived: true})

	res, err := c.GetFolders(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"acme/app", "acme/empty", "acme/lib", "acme/old"}, ids(res.Items))
}

func TestConnector_GetFilesFromFolders(t *testing.T) {
	c, fake := setup(t, nil)

	res, err := c.GetFilesFromFolders(context.Background(), []domain.SyncItem{appFolder, {OriginalID: "acme/empty", Metadata: map[string]string{metaBranch: "main"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"acme/app#1", "acme/app#2", "acme/app#3", "acme/app:README.md", "acme/app:cmd/main.go"}, ids(res.Items))
	assert.Empty(t, fake.snapshot().issuesSince)

	byID := make(map[string]domain.SyncItem)
	for _, it := range res.Items {
		byID[it.OriginalID] = it
	}
	readme := byID["acme/app:README.md"]
	assert.Equal(t, "README.md", readme.Title)
	assert.Equal(t, "text/markdown", readme.MimeType)
	assert.Equal(t, "acme/app/README.md", readme.Meta(domain.MetaPath))
	assert.Equal(t, "https://github.com/acme/app/blob/main/README.md", readme.Meta(domain.MetaURI))
	assert.Equal(t, "r1", readme.Meta(metaSHA))

	issue := byID["acme/app#1"]
	assert.Equal(t, typeIssue, issue.Meta(domain.MetaType))
	assert.Equal(t, "Crash on start", issue.Title)
	assert.Equal(t, "2024-05-02T09:00:00.000Z", issue.ModifiedGMT)
	assert.Equal(t, typePull, byID["acme/app#2"].Meta(domain.MetaType))
}

func TestConnector_GetFilesFromFolders_ResolvesBranch(t *testing.T) {
	c, _ := setup(t, domain.Params{KeyContentTypes: "files"})

	res, err := c.GetFilesFromFolders(context.Background(), []domain.SyncItem{{OriginalID: "acme/app"}, {OriginalID: "acme/missing"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, []string{"acme/app:README.md", "acme/app:cmd/main.go"}, ids(res.Items))
}

func TestConnector_GetFilesFromFolders_FilePatterns(t *testing.T) {
	c, _ := setup(t, domain.Params{KeyContentTypes: "files", KeyFilePatterns: "*.go"})

	res, err := c.GetFilesFromFolders(context.Background(), []domain.SyncItem{appFolder})
	require.NoError(t, err)
	assert.Equal(t, []string{"acme/app:cmd/main.go"}, ids(res.Items))
}

func TestConnector_GetLastModified(t *testing.T) {
	c, fake := setup(t, nil)

	res, err := c.GetLastModified(context.Background(), "2024-01-01T00:00:00.000Z",
		[]domain.SyncItem{appFolder},
		[]string{"acme/app:README.md", "acme/app:gone.txt", "acme/other:x.txt", "acme/app#1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"acme/app#1", "acme/app#2", "acme/app:cmd/main.go", "acme/app:gone.txt"}, ids(res.Items))

	snap := fake.snapshot()
	assert.Equal(t, "2024-01-01T00:00:00Z", snap.issuesSince)
	assert.Equal(t, "main", snap.commitsSHA)

	for _, it := range res.Items {
		switch it.OriginalID {
		case "acme/app:cmd/main.go":
			assert.Equal(t, "2024-05-01T10:00:00.000Z", it.ModifiedGMT)
		case "acme/app:gone.txt":
			assert.True(t, it.Deleted)
		default:
			assert.False(t, it.Deleted)
		}
	}
}

func TestConnector_GetLastModified_PartialNoDeletions(t *testing.T) {
	c, _ := setup(t, domain.Params{KeyContentTypes: "files"})

	res, err := c.GetLastModified(context.Background(), "2024-01-01T00:00:00.000Z",
		[]domain.SyncItem{appFolder, {OriginalID: "acme/missing"}}, []string{"acme/app:gone.txt"})
	require.Error(t, err)
	assert.Equal(t, []string{"acme/app:cmd/main.go"}, ids(res.Items))
}

func TestConnector_Fetch(t *testing.T) {
	c, _ := setup(t, nil)
	ctx := context.Background()

	res, err := c.GetFilesFromFolders(ctx, []domain.SyncItem{appFolder})
	require.NoError(t, err)
	byID := make(map[string]domain.SyncItem)
	for _, it := range res.Items {
		byID[it.OriginalID] = it
	}

	content, err := c.Fetch(ctx, byID["acme/app:cmd/main.go"])
	require.NoError(t, err)
	blob, ok := content.(*domain.Blob)
	require.True(t, ok)
	assert.Equal(t, "blob:m1", string(blob.Data))

	content, err = c.Fetch(ctx, byID["acme/app#1"])
	require.NoError(t, err)
	text, ok := content.(*domain.Text)
	require.True(t, ok)
	assert.Equal(t, domain.TextMarkdown, text.Format)
	assert.Contains(t, text.Body, "# Crash on start")
	assert.Contains(t, text.Body, "opened by @alice, open")
	assert.Contains(t, text.Body, "Labels: bug")
	assert.Contains(t, text.Body, "It crashes.")
	assert.Contains(t, text.Body, "@bob, 2024-05-02T10:00:00Z:\n\nConfirmed.")

	content, err = c.Fetch(ctx, byID["acme/app#2"])
	require.NoError(t, err)
	text = content.(*domain.Text)
	assert.Contains(t, text.Body, "Pull request #2 by @carol, merged: fix into main")
	assert.Contains(t, text.Body, "Fixes #1.")

	_, err = c.Fetch(ctx, domain.SyncItem{OriginalID: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
