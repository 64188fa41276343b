package sitemap

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

func newFakeSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>`+server.URL+`/pages.xml</loc></sitemap>
  <sitemap><loc>`+server.URL+`/blog.xml.gz</loc></sitemap>
  <sitemap><loc>`+server.URL+`/sitemap.xml</loc></sitemap>
</sitemapindex>`)
	})
	mux.HandleFunc("/pages.xml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/about</loc><lastmod>2024-02-01</lastmod></url>
  <url><loc> https://example.com/contact </loc></url>
  <url><lastmod>2024-02-01</lastmod></url>
</urlset>`)
	})
	mux.HandleFunc("/blog.xml.gz", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, _ = io.WriteString(zw, `<urlset><url><loc>https://example.com/blog/old</loc><lastmod>2022-06-01T10:00:00Z</lastmod></url></urlset>`)
		require.NoError(t, zw.Close())
		w.Header().Set("Content-Type", "application/x-gzip")
		_, _ = w.Write(buf.Bytes())
	})
	mux.HandleFunc("/broken.xml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<sitemapindex><sitemap><loc>`+server.URL+`/pages.xml</loc></sitemap><sitemap><loc>`+server.URL+`/missing.xml</loc></sitemap></sitemapindex>`)
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func setup(t *testing.T, path string) *Connector {
	t.Helper()
	server := newFakeSite(t)
	c, err := New(domain.Params{KeySitemap: server.URL + path, KeyCSSSelector: "article"})
	require.NoError(t, err)
	return c
}

func ids(items []domain.SyncItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.OriginalID
	}
	return out
}

func TestConnector_Validate(t *testing.T) {
	c := setup(t, "/sitemap.xml")
	assert.True(t, c.HasAuthData())
	assert.True(t, c.ValidateParameters(domain.Params{KeySitemap: "https://example.com/sitemap.xml"}))
	assert.False(t, c.ValidateParameters(domain.Params{}))

	_, err := c.GetFolders(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
}

func TestConnector_GetFilesFromFolders(t *testing.T) {
	c := setup(t, "/sitemap.xml")

	res, err := c.GetFilesFromFolders(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://example.com/about",
		"https://example.com/contact",
		"https://example.com/blog/old",
	}, ids(res.Items))

	about := res.Items[0]
	assert.Equal(t, "https://example.com/about", about.Title)
	assert.Equal(t, domain.MimeTypeToBeChecked, about.MimeType)
	assert.Equal(t, "example.com/about", about.Meta(domain.MetaPath))
	assert.Equal(t, "2024-02-01", about.Meta(domain.MetaLastModified))
	assert.Equal(t, "2024-02-01T00:00:00.000Z", about.ModifiedGMT)
	assert.Empty(t, res.Items[1].ModifiedGMT)
}

func TestConnector_GetLastModified(t *testing.T) {
	c := setup(t, "/sitemap.xml")

	res, err := c.GetLastModified(context.Background(), "2023-01-01T00:00:00.000Z", nil,
		[]string{"https://example.com/blog/old", "https://example.com/removed"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://example.com/about",
		"https://example.com/contact",
		"https://example.com/removed",
	}, ids(res.Items))
	assert.True(t, res.Items[2].Deleted)
}

func TestConnector_GetLastModified_PartialNoDeletions(t *testing.T) {
	c := setup(t, "/broken.xml")

	res, err := c.GetLastModified(context.Background(), "2023-01-01T00:00:00.000Z", nil,
		[]string{"https://example.com/removed"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, []string{"https://example.com/about", "https://example.com/contact"}, ids(res.Items))
}

func TestConnector_Fetch(t *testing.T) {
	c := setup(t, "/sitemap.xml")

	content, err := c.Fetch(context.Background(), domain.SyncItem{
		OriginalID: "https://example.com/about",
		Metadata:   map[string]string{domain.MetaURI: "https://example.com/about"},
	})
	require.NoError(t, err)
	link, ok := content.(*domain.Link)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/about", link.URI)
	assert.Equal(t, "article", link.CSSSelector)
}

func TestDecompress(t *testing.T) {
	plain := []byte("<urlset/>")
	got, err := decompress(plain)
	require.NoError(t, err)
	assert.Equal(t, plain, got)

	_, err = decompress([]byte{0x1f, 0x8b, 0x00})
	assert.Error(t, err)
}
