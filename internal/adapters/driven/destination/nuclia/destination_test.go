package nuclia

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

type recorded struct {
	Method   string
	Path     string
	Header   http.Header
	Body     []byte
	RawQuery string
}

// fakeAPI is a minimal knowledge box: resources are kept by slug.
type fakeAPI struct {
	mu        sync.Mutex
	resources map[string]driven.Resource
	requests  []recorded
	failWith  int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{resources: make(map[string]driven.Resource)}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, _ := io.ReadAll(r.Body)
	f.requests = append(f.requests, recorded{
		Method:   r.Method,
		Path:     r.URL.Path,
		Header:   r.Header.Clone(),
		Body:     body,
		RawQuery: r.URL.RawQuery,
	})
	if f.failWith != 0 {
		http.Error(w, `{"detail":"boom"}`, f.failWith)
		return
	}

	const prefix = "/api/v1/kb/kb-1"
	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && path == prefix+"/resources":
		var res driven.Resource
		_ = json.Unmarshal(body, &res)
		f.resources[res.Slug] = res
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"uuid":"u-1"}`))
	case r.Method == http.MethodGet && path == prefix+"/slug/s1":
		res, ok := f.resources["s1"]
		if !ok {
			http.Error(w, `{"detail":"Resource does not exist"}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(res)
	case r.Method == http.MethodDelete && path == prefix+"/slug/s1":
		if _, ok := f.resources["s1"]; !ok {
			http.Error(w, "", http.StatusNotFound)
			return
		}
		delete(f.resources, "s1")
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (f *fakeAPI) fail(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = status
}

func (f *fakeAPI) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func setup(t *testing.T) (*fakeAPI, driven.KnowledgeBox) {
	t.Helper()
	api := newFakeAPI()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	dest := New(Config{RateLimit: 1000})
	kb := dest.KnowledgeBox(domain.KnowledgeBox{
		Backend:      server.URL + "/api",
		KnowledgeBox: "kb-1",
		APIKey:       "secret",
	})
	return api, kb
}

func TestKnowledgeBox_ResourceLifecycle(t *testing.T) {
	api, kb := setup(t)
	ctx := context.Background()

	assert.Equal(t, "kb-1", kb.ID())

	exists, err := kb.HasResource(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = kb.GetResourceBySlug(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, kb.CreateResource(ctx, driven.Resource{
		Slug:         "s1",
		Title:        "Report",
		UserMetadata: &driven.UserMetadata{Classifications: []domain.Label{{Labelset: "l", Label: "a"}}},
	}))
	assert.Equal(t, "Bearer secret", api.last().Header.Get(headerServiceAccount))

	exists, err = kb.HasResource(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, exists)

	res, err := kb.GetResourceBySlug(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Report", res.Title)
	require.NotNil(t, res.UserMetadata)
	assert.Equal(t, []domain.Label{{Labelset: "l", Label: "a"}}, res.UserMetadata.Classifications)
	assert.Equal(t, "show=basic&show=origin&show=security", api.last().RawQuery)

	require.NoError(t, kb.DeleteResource(ctx, "s1"))
	assert.ErrorIs(t, kb.DeleteResource(ctx, "s1"), domain.ErrNotFound)
}

func TestKnowledgeBox_ModifyDropsSlug(t *testing.T) {
	api, kb := setup(t)

	require.NoError(t, kb.ModifyResource(context.Background(), "s1", driven.Resource{Slug: "s1", Title: "New"}))

	req := api.last()
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "/api/v1/kb/kb-1/slug/s1", req.Path)
	assert.JSONEq(t, `{"title":"New"}`, string(req.Body))
}

func TestKnowledgeBox_Upload(t *testing.T) {
	api, kb := setup(t)

	err := kb.Upload(context.Background(), "s1", "file", []byte("%PDF"), driven.UploadOptions{
		ContentType:     "application/pdf",
		Filename:        "report.pdf",
		MD5:             "abc",
		ExtractStrategy: "fast",
	})
	require.NoError(t, err)

	req := api.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/v1/kb/kb-1/slug/s1/file/file/upload", req.Path)
	assert.Equal(t, "application/pdf", req.Header.Get("Content-Type"))
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("report.pdf")), req.Header.Get(headerFilename))
	assert.Equal(t, "abc", req.Header.Get(headerMD5))
	assert.Equal(t, "fast", req.Header.Get(headerExtractStrategy))
	assert.Equal(t, []byte("%PDF"), req.Body)
}

func TestKnowledgeBox_SetTextField(t *testing.T) {
	api, kb := setup(t)

	require.NoError(t, kb.SetTextField(context.Background(), "s1", "text", domain.Text{Body: "<p>hi</p>", Format: domain.TextHTML}))
	req := api.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/api/v1/kb/kb-1/slug/s1/text/text", req.Path)
	assert.JSONEq(t, `{"body":"<p>hi</p>","format":"HTML"}`, string(req.Body))

	require.NoError(t, kb.SetTextField(context.Background(), "s1", "text", domain.Text{Body: "plain"}))
	assert.JSONEq(t, `{"body":"plain","format":"PLAIN"}`, string(api.last().Body))
}

func TestKnowledgeBox_ServerErrorsAreTransient(t *testing.T) {
	api, kb := setup(t)
	api.fail(http.StatusServiceUnavailable)

	err := kb.CreateResource(context.Background(), driven.Resource{Slug: "s1"})
	assert.ErrorIs(t, err, domain.ErrTransient)

	_, err = kb.HasResource(context.Background(), "s1")
	assert.ErrorIs(t, err, domain.ErrTransient)

	api.fail(http.StatusUnauthorized)
	err = kb.Upload(context.Background(), "s1", "file", nil, driven.UploadOptions{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.NotErrorIs(t, err, domain.ErrTransient)
}

func TestDestination_CachesHandles(t *testing.T) {
	dest := New(Config{})
	kb := domain.KnowledgeBox{Backend: "https://nuclia.cloud/api", KnowledgeBox: "kb-1", APIKey: "k"}

	assert.Same(t, dest.KnowledgeBox(kb), dest.KnowledgeBox(kb))

	other := kb
	other.APIKey = "k2"
	assert.NotSame(t, dest.KnowledgeBox(kb), dest.KnowledgeBox(other))
}

func TestAPIBase(t *testing.T) {
	tests := []struct {
		name string
		kb   domain.KnowledgeBox
		want string
	}{
		{"no zone", domain.KnowledgeBox{Backend: "https://nuclia.cloud/api/"}, "https://nuclia.cloud/api"},
		{"zone inserted", domain.KnowledgeBox{Backend: "https://nuclia.cloud/api", Zone: "europe-1"}, "https://europe-1.nuclia.cloud/api"},
		{"zone present", domain.KnowledgeBox{Backend: "https://europe-1.nuclia.cloud/api", Zone: "europe-1"}, "https://europe-1.nuclia.cloud/api"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, APIBase(tt.kb))
		})
	}
}
