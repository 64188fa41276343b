package sharepoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-sync/internal/connectors/base"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

const siteID = "contoso.sharepoint.com,1111,2222"

type fakeSharePoint struct {
	server      *httptest.Server
	siteLookups atomic.Int32
	lastFilter  atomic.Value
}

func newFakeSharePoint(t *testing.T) *fakeSharePoint {
	t.Helper()
	f := &fakeSharePoint{}
	mux := http.NewServeMux()

	mux.HandleFunc("/sites", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("search") == "" {
			writeJSON(w, map[string]any{"value": []any{}})
			return
		}
		f.siteLookups.Add(1)
		assert.Equal(t, "Marketing", r.URL.Query().Get("search"))
		writeJSON(w, map[string]any{"value": []any{map[string]string{"id": siteID}}})
	})
	mux.HandleFunc("/sites/"+siteID+"/lists", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"value": []any{
			map[string]string{"id": "L1", "name": "Shared Documents", "displayName": "Documents", "webUrl": "https://contoso.example.com/docs"},
			map[string]string{"id": "L2", "name": "Events", "displayName": "Events"},
		}})
	})
	mux.HandleFunc("/sites/"+siteID+"/lists/L1/items", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fields", r.URL.Query().Get("expand"))
		assert.Equal(t, "HonorNonIndexedQueriesWarningMayFailRandomly", r.Header.Get("Prefer"))
		f.lastFilter.Store(r.URL.Query().Get("$filter"))
		writeJSON(w, map[string]any{"value": []any{
			map[string]any{"id": "7", "webUrl": "https://contoso.example.com/docs/plan.docx", "lastModifiedDateTime": "2024-03-01T08:00:00Z",
				"fields": map[string]string{"ContentType": "Document", "FileLeafRef": "plan.docx"}},
			map[string]any{"id": "8", "webUrl": "https://contoso.example.com/docs/Forms", "fields": map[string]string{"ContentType": "Folder"}},
		}})
	})
	mux.HandleFunc("/sites/"+siteID+"/lists/L1/items/7/driveitem/content", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("docx-bytes"))
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func setup(t *testing.T) (*Connector, *fakeSharePoint) {
	t.Helper()
	fake := newFakeSharePoint(t)
	params := domain.Params{KeySiteName: "Marketing", "token": "access", "refresh": "r", "refresh_endpoint": "https://auth.example.com"}
	c, err := New(params, base.WithBaseURL(fake.server.URL))
	require.NoError(t, err)
	return c, fake
}

func TestConnector_ValidateParameters(t *testing.T) {
	c, _ := setup(t)
	assert.True(t, c.ValidateParameters(domain.Params{KeySiteName: "x", "token": "t", "refresh": "r", "refresh_endpoint": "https://a.example.com"}))
	assert.False(t, c.ValidateParameters(domain.Params{"token": "t", "refresh": "r", "refresh_endpoint": "https://a.example.com"}))
}

func TestConnector_IsAccessTokenValid(t *testing.T) {
	c, _ := setup(t)
	assert.True(t, c.IsAccessTokenValid(context.Background()))
}

func TestConnector_GetFolders(t *testing.T) {
	c, fake := setup(t)

	res, err := c.GetFolders(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "L1", res.Items[0].OriginalID)
	assert.Equal(t, "Documents", res.Items[0].Title)
	assert.True(t, res.Items[0].IsFolder)

	res, err = c.GetFolders(context.Background(), "event")
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "L2", res.Items[0].OriginalID)
	assert.Equal(t, int32(1), fake.siteLookups.Load(), "site id must be cached")
}

func TestConnector_GetFilesFromFolders(t *testing.T) {
	c, fake := setup(t)

	res, err := c.GetFilesFromFolders(context.Background(), []domain.SyncItem{{OriginalID: "L1"}})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	doc := res.Items[0]
	assert.Equal(t, "https://contoso.example.com/docs/plan.docx", doc.OriginalID)
	assert.Equal(t, "plan.docx", doc.Title)
	assert.Equal(t, "2024-03-01T08:00:00Z", doc.ModifiedGMT)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", doc.MimeType)
	assert.Empty(t, fake.lastFilter.Load())
}

func TestConnector_GetLastModified(t *testing.T) {
	c, fake := setup(t)

	res, err := c.GetLastModified(context.Background(), "2024-01-01T00:00:00.000Z", []domain.SyncItem{{OriginalID: "L1"}}, []string{"gone"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.False(t, res.Items[0].Deleted)
	assert.Equal(t, "fields/Modified gt '2024-01-01T00:00:00.000Z'", fake.lastFilter.Load())
}

func TestConnector_Fetch(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()

	res, err := c.GetFilesFromFolders(ctx, []domain.SyncItem{{OriginalID: "L1"}})
	require.NoError(t, err)

	content, err := c.Fetch(ctx, res.Items[0])
	require.NoError(t, err)
	assert.Equal(t, "docx-bytes", string(content.(*domain.Blob).Data))

	_, err = c.Fetch(ctx, domain.SyncItem{OriginalID: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConnector_SiteNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"value": []any{}})
	}))
	defer server.Close()

	c, err := New(domain.Params{KeySiteName: "Nope", "token": "t"}, base.WithBaseURL(server.URL))
	require.NoError(t, err)
	_, err = c.GetFolders(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
