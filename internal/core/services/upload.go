package services

import (
	"context"
	"crypto/md5" //nolint:gosec // content checksum expected by the destination, not a security primitive
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// Action is what a delivery did for one item.
type Action string

// Delivery actions.
const (
	ActionUpload Action = "upload"
	ActionDelete Action = "delete"
)

// Field names on destination resources.
const (
	fileField = "file"
	textField = "text"
	linkField = "link"
)

// Outcome is the result of delivering one item.
type Outcome struct {
	ID      string
	Action  Action
	Success bool
	Message string
}

// Uploader delivers one item to the destination: create-or-modify of the
// resource keyed by the item slug, then the payload. Deleted items remove
// the resource.
type Uploader struct {
	destination driven.Destination
	web         driven.WebClient
	extractor   driven.Extractor
	retryDelays []time.Duration
}

// UploaderOption configures an Uploader.
type UploaderOption func(*Uploader)

// WithRetryDelays overrides the waits between destination retries.
func WithRetryDelays(delays []time.Duration) UploaderOption {
	return func(u *Uploader) { u.retryDelays = delays }
}

// WithExtractor enables local extraction of HTML links.
func WithExtractor(e driven.Extractor) UploaderOption {
	return func(u *Uploader) { u.extractor = e }
}

// NewUploader creates an upload pipeline.
func NewUploader(destination driven.Destination, web driven.WebClient, opts ...UploaderOption) *Uploader {
	u := &Uploader{
		destination: destination,
		web:         web,
		retryDelays: DefaultRetryDelays,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Deliver uploads or deletes item. Failures are reported in the outcome,
// never returned.
func (u *Uploader) Deliver(ctx context.Context, cfg *domain.Configuration, conn driven.Connector, item domain.SyncItem) Outcome {
	out := Outcome{ID: item.OriginalID, Action: ActionUpload}
	if item.Deleted {
		out.Action = ActionDelete
	}

	var err error
	if item.Deleted {
		err = u.delete(ctx, cfg, item)
	} else {
		err = u.upload(ctx, cfg, conn, item)
	}

	switch {
	case err == nil && item.Deleted:
		out.Success = true
		out.Message = fmt.Sprintf("Deleted %s with success", item.OriginalID)
	case err == nil:
		out.Success = true
		out.Message = fmt.Sprintf("Uploaded %s with success", item.OriginalID)
	default:
		out.Message = strings.TrimSpace(fmt.Sprintf("Failed to %s %s %v", out.Action, item.OriginalID, err))
		logger.Warn("%s", out.Message)
	}
	return out
}

func (u *Uploader) delete(ctx context.Context, cfg *domain.Configuration, item domain.SyncItem) error {
	kb := u.destination.KnowledgeBox(cfg.KB)
	slug := domain.Slug(item.OriginalID)
	err := retryCall(ctx, u.retryDelays, "delete resource", func() error {
		return kb.DeleteResource(ctx, slug)
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

// itemMeta is what ends up in the resource origin, labels and security.
type itemMeta struct {
	labels       []domain.Label
	path         string
	groups       []string
	sourceID     string
	lastModified string
	uri          string
	originURL    string
}

func (u *Uploader) upload(ctx context.Context, cfg *domain.Configuration, conn driven.Connector, item domain.SyncItem) error {
	content, err := conn.Fetch(ctx, item)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	meta := itemMeta{
		labels:       cfg.Labels,
		path:         item.Meta(domain.MetaPath),
		sourceID:     cfg.ID,
		lastModified: item.Meta(domain.MetaLastModified),
		uri:          item.Meta(domain.MetaURI),
	}
	if cfg.SyncSecurityGroups {
		if gl, ok := conn.(driven.GroupLister); ok {
			groups, err := gl.GetGroups(ctx, item)
			if err != nil {
				logger.Warn("groups for %s: %v", item.OriginalID, err)
			}
			meta.groups = groups
		}
	}

	kb := u.destination.KnowledgeBox(cfg.KB)
	switch c := content.(type) {
	case *domain.Blob:
		return u.uploadBlob(ctx, kb, cfg, item.OriginalID, item.Title, c, item.MimeType, meta)
	case *domain.Text:
		return u.uploadText(ctx, kb, cfg, item.OriginalID, item.Title, *c, meta)
	case *domain.Link:
		return u.uploadLink(ctx, kb, cfg, item, c, meta)
	default:
		return errors.New("no content")
	}
}

// resolve modifies the resource if it exists, or creates it.
func (u *Uploader) resolve(ctx context.Context, kb driven.KnowledgeBox, slug string, res driven.Resource, preserveLabels bool) error {
	existing, err := withRetry(ctx, u.retryDelays, "get resource", func() (*driven.Resource, error) {
		return kb.GetResourceBySlug(ctx, slug)
	})
	switch {
	case err == nil:
		res.UserMetadata = labelsFor(res.UserMetadata, existing, preserveLabels)
		return retryCall(ctx, u.retryDelays, "modify resource", func() error {
			return kb.ModifyResource(ctx, slug, res)
		})
	case errors.Is(err, domain.ErrNotFound):
		res.Slug = slug
		return retryCall(ctx, u.retryDelays, "create resource", func() error {
			return kb.CreateResource(ctx, res)
		})
	default:
		return fmt.Errorf("get resource: %w", err)
	}
}

func (u *Uploader) uploadBlob(
	ctx context.Context,
	kb driven.KnowledgeBox,
	cfg *domain.Configuration,
	originalID, title string,
	blob *domain.Blob,
	itemMime string,
	meta itemMeta,
) error {
	slug := domain.Slug(originalID)
	res := driven.Resource{Title: title}
	applyMeta(&res, meta)
	if err := u.resolve(ctx, kb, slug, res, cfg.PreserveLabels); err != nil {
		return err
	}

	sum := md5.Sum(blob.Data) //nolint:gosec // see import
	opts := driven.UploadOptions{
		ContentType:     blobContentType(blob.MimeType, itemMime, title),
		Filename:        title,
		MD5:             hex.EncodeToString(sum[:]),
		ExtractStrategy: cfg.ExtractStrategy,
	}
	err := retryCall(ctx, u.retryDelays, "upload file", func() error {
		return kb.Upload(ctx, slug, fileField, blob.Data, opts)
	})
	if err != nil {
		u.rollback(ctx, kb, slug)
		return err
	}
	return nil
}

func (u *Uploader) uploadText(
	ctx context.Context,
	kb driven.KnowledgeBox,
	cfg *domain.Configuration,
	originalID, title string,
	text domain.Text,
	meta itemMeta,
) error {
	slug := domain.Slug(originalID)
	res := driven.Resource{Title: title}
	applyMeta(&res, meta)
	if err := u.resolve(ctx, kb, slug, res, cfg.PreserveLabels); err != nil {
		return err
	}

	err := retryCall(ctx, u.retryDelays, "set text field", func() error {
		return kb.SetTextField(ctx, slug, textField, text)
	})
	if err != nil {
		u.rollback(ctx, kb, slug)
		return err
	}
	return nil
}

func (u *Uploader) uploadLink(
	ctx context.Context,
	kb driven.KnowledgeBox,
	cfg *domain.Configuration,
	item domain.SyncItem,
	link *domain.Link,
	meta itemMeta,
) error {
	params := cfg.Connector.Parameters
	headers := params.KeyValues("headers")
	for k, v := range link.ExtraHeaders {
		headers[k] = v
	}
	cookies := params.KeyValues("cookies")
	localStorage := params.KeyValues("localstorage")

	mimeType := item.MimeType
	switch mimeType {
	case domain.MimeTypeToBeChecked:
		mimeType = u.probe(ctx, link.URI, headers)
	case "":
		mimeType = domain.MimeHTML
	}
	isHTML := strings.HasPrefix(mimeType, domain.MimeHTML)

	if params.Bool("localExtract") {
		meta.originURL = link.URI
		if isHTML {
			return u.extractAndUpload(ctx, kb, cfg, item, link, headers, cookies, localStorage, meta)
		}
		if u.web == nil {
			return errors.New("no web client configured")
		}
		blob, err := u.web.Fetch(ctx, link.URI, headers)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", link.URI, err)
		}
		return u.uploadBlob(ctx, kb, cfg, item.OriginalID, item.Title, blob, mimeType, meta)
	}

	slug := domain.Slug(item.OriginalID)
	res := driven.Resource{Origin: &driven.Origin{URL: link.URI}}
	if isHTML {
		res.Links = map[string]driven.LinkField{linkField: {
			URI:             link.URI,
			CSSSelector:     link.CSSSelector,
			XPath:           link.XPathSelector,
			Headers:         emptyToNil(headers),
			Cookies:         emptyToNil(cookies),
			LocalStorage:    emptyToNil(localStorage),
			ExtractStrategy: cfg.ExtractStrategy,
		}}
		res.Icon = domain.MimeLink
	} else {
		res.Title = item.Title
		res.Files = map[string]driven.FileField{fileField: {File: driven.FileRef{
			URI:          link.URI,
			Filename:     item.Title,
			ExtraHeaders: emptyToNil(headers),
		}}}
		res.Icon = mimeType
	}
	applyMeta(&res, meta)

	exists, err := withRetry(ctx, u.retryDelays, "has resource", func() (bool, error) {
		return kb.HasResource(ctx, slug)
	})
	if err != nil {
		return fmt.Errorf("has resource: %w", err)
	}
	if !exists {
		res.Slug = slug
		return retryCall(ctx, u.retryDelays, "create resource", func() error {
			return kb.CreateResource(ctx, res)
		})
	}

	res.Title = ""
	existing, err := withRetry(ctx, u.retryDelays, "get resource", func() (*driven.Resource, error) {
		return kb.GetResourceBySlug(ctx, slug)
	})
	if err != nil {
		return fmt.Errorf("get resource: %w", err)
	}
	res.UserMetadata = labelsFor(res.UserMetadata, existing, cfg.PreserveLabels)
	return retryCall(ctx, u.retryDelays, "modify resource", func() error {
		return kb.ModifyResource(ctx, slug, res)
	})
}

func (u *Uploader) extractAndUpload(
	ctx context.Context,
	kb driven.KnowledgeBox,
	cfg *domain.Configuration,
	item domain.SyncItem,
	link *domain.Link,
	headers, cookies, localStorage map[string]string,
	meta itemMeta,
) error {
	if u.extractor == nil {
		return errors.New("no extractor configured")
	}
	result, err := u.extractor.Extract(ctx, driven.ExtractRequest{
		URL:           link.URI,
		CSSSelector:   link.CSSSelector,
		XPathSelector: link.XPathSelector,
		Headers:       emptyToNil(headers),
		Cookies:       emptyToNil(cookies),
		LocalStorage:  emptyToNil(localStorage),
	})
	if err != nil {
		return fmt.Errorf("extract %s: %w", link.URI, err)
	}
	if result.Error != "" {
		return fmt.Errorf("extract %s: %s", link.URI, result.Error)
	}
	title := result.Title
	if title == "" {
		title = item.Title
	}
	text := domain.Text{Body: result.HTML, Format: domain.TextHTML}
	return u.uploadText(ctx, kb, cfg, item.OriginalID, title, text, meta)
}

// probe returns the media type of uri, text/html when it cannot be told.
func (u *Uploader) probe(ctx context.Context, uri string, headers map[string]string) string {
	if u.web == nil {
		return domain.MimeHTML
	}
	ct, err := u.web.ContentType(ctx, uri, headers)
	if err != nil || ct == "" {
		return domain.MimeHTML
	}
	return ct
}

func (u *Uploader) rollback(ctx context.Context, kb driven.KnowledgeBox, slug string) {
	if err := kb.DeleteResource(ctx, slug); err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Warn("rollback %s: %v", slug, err)
	}
}

func applyMeta(res *driven.Resource, meta itemMeta) {
	if len(meta.labels) > 0 {
		res.UserMetadata = &driven.UserMetadata{Classifications: append([]domain.Label(nil), meta.labels...)}
	}
	origin := driven.Origin{}
	if res.Origin != nil {
		origin = *res.Origin
	}
	if meta.originURL != "" {
		origin.URL = meta.originURL
	}
	if meta.path != "" {
		origin.Path = meta.path
		if !strings.HasPrefix(origin.Path, "/") {
			origin.Path = "/" + origin.Path
		}
	}
	if len(meta.groups) > 0 {
		res.Security = &driven.Security{AccessGroups: meta.groups}
	}
	origin.SourceID = meta.sourceID
	if meta.lastModified != "" {
		origin.Modified = meta.lastModified
	}
	if meta.uri != "" && origin.URL == "" {
		origin.URL = meta.uri
	}
	if origin != (driven.Origin{}) {
		res.Origin = &origin
	}
}

// labelsFor returns the labels to write on an existing resource.
func labelsFor(desired *driven.UserMetadata, existing *driven.Resource, preserve bool) *driven.UserMetadata {
	if !preserve || existing == nil || existing.UserMetadata == nil {
		return desired
	}
	var want []domain.Label
	if desired != nil {
		want = desired.Classifications
	}
	return &driven.UserMetadata{Classifications: domain.MergeLabels(existing.UserMetadata.Classifications, want)}
}

func blobContentType(blobMime, itemMime, filename string) string {
	for _, t := range []string{blobMime, itemMime} {
		if t != "" && t != domain.MimeTypeToBeChecked {
			return t
		}
	}
	if t := domain.LookupMimeType(filename); t != "" {
		return t
	}
	return domain.MimeOctetStream
}

func emptyToNil(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	return m
}
