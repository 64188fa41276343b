package sitemap

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/rest"
)

// MaxDepth bounds sitemap index nesting.
const MaxDepth = 5

// URL is one page entry of a sitemap.
type URL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

type document struct {
	XMLName  xml.Name
	URLs     []URL `xml:"url"`
	Sitemaps []URL `xml:"sitemap"`
}

// Reader fetches sitemaps and follows sitemap indexes.
type Reader struct {
	client *rest.Client
}

// NewReader creates a reader using client for every fetch.
func NewReader(client *rest.Client) *Reader {
	return &Reader{client: client}
}

// Read returns the page URLs of the sitemap at location, following nested
// indexes up to MaxDepth. Every sitemap is read at most once. URLs of the
// sitemaps that could be read are returned with the errors of the others.
func (r *Reader) Read(ctx context.Context, location string) ([]URL, error) {
	visited := make(map[string]bool)
	var errs []error
	urls := r.read(ctx, location, 0, visited, &errs)
	return urls, errors.Join(errs...)
}

func (r *Reader) read(ctx context.Context, location string, depth int, visited map[string]bool, errs *[]error) []URL {
	location = strings.TrimSpace(location)
	if location == "" || visited[location] {
		return nil
	}
	visited[location] = true
	if depth > MaxDepth {
		*errs = append(*errs, fmt.Errorf("sitemap %s: nested deeper than %d", location, MaxDepth))
		return nil
	}

	doc, err := r.fetch(ctx, location)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("sitemap %s: %w", location, err))
		return nil
	}

	var urls []URL
	for _, u := range doc.URLs {
		u.Loc = strings.TrimSpace(u.Loc)
		u.LastMod = strings.TrimSpace(u.LastMod)
		if u.Loc != "" {
			urls = append(urls, u)
		}
	}
	for _, child := range doc.Sitemaps {
		urls = append(urls, r.read(ctx, child.Loc, depth+1, visited, errs)...)
	}
	return urls
}

func (r *Reader) fetch(ctx context.Context, location string) (*document, error) {
	resp, err := r.client.Do(ctx, &rest.Request{Path: location})
	if err != nil {
		return nil, err
	}
	data, err := decompress(resp.Body)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

// parse decodes a urlset or sitemapindex document.
func parse(data []byte) (*document, error) {
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse sitemap: %w", err)
	}
	return &doc, nil
}

// decompress inflates gzip payloads (*.xml.gz) and returns others as is.
func decompress(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gunzip sitemap: %w", err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
