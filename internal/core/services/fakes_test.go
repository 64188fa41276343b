package services

import (
	"context"
	"errors"
	stdsync "sync"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// --- Connector ---

// fakeConnector serves a fixed set of files for every folder.
type fakeConnector struct {
	mu stdsync.Mutex

	files    []domain.SyncItem
	delta    []domain.SyncItem
	fullErr  error
	deltaErr error
	folders  []domain.SyncItem
	content  map[string]domain.Content
	fetchErr map[string]error
	groups   []string

	tokenValid    bool
	refreshOK     bool
	refreshed     domain.Params
	validParams   bool
	fullCalls     int
	deltaCalls    int
	deltaSince    string
	deltaExisting []string

	// onList runs at the start of each listing call.
	onList func()
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{
		content:     make(map[string]domain.Content),
		fetchErr:    make(map[string]error),
		tokenValid:  true,
		refreshOK:   true,
		validParams: true,
	}
}

func (c *fakeConnector) ValidateParameters(domain.Params) bool { return c.validParams }
func (c *fakeConnector) HasAuthData() bool                     { return true }

func (c *fakeConnector) IsAccessTokenValid(context.Context) bool { return c.tokenValid }

func (c *fakeConnector) RefreshAuthentication(context.Context) (domain.Params, bool) {
	return c.refreshed, c.refreshOK
}

func (c *fakeConnector) GetFolders(context.Context, string) (domain.SearchResults, error) {
	return domain.SearchResults{Items: c.folders}, nil
}

func (c *fakeConnector) GetFilesFromFolders(context.Context, []domain.SyncItem) (domain.SearchResults, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.onList != nil {
		c.onList()
	}
	c.fullCalls++
	if c.fullErr != nil {
		return domain.SearchResults{}, c.fullErr
	}
	return domain.SearchResults{Items: c.files}, nil
}

func (c *fakeConnector) GetLastModified(
	_ context.Context,
	since string,
	_ []domain.SyncItem,
	existing []string,
) (domain.SearchResults, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.onList != nil {
		c.onList()
	}
	c.deltaCalls++
	c.deltaSince = since
	c.deltaExisting = append([]string(nil), existing...)
	if c.deltaErr != nil {
		return domain.SearchResults{}, c.deltaErr
	}
	return domain.SearchResults{Items: c.delta}, nil
}

func (c *fakeConnector) Fetch(_ context.Context, item domain.SyncItem) (domain.Content, error) {
	if err := c.fetchErr[item.OriginalID]; err != nil {
		return nil, err
	}
	if content, ok := c.content[item.OriginalID]; ok {
		return content, nil
	}
	return &domain.Blob{Data: []byte("data of " + item.OriginalID), MimeType: item.MimeType}, nil
}

// groupConnector adds access groups.
type groupConnector struct {
	*fakeConnector
}

func (c groupConnector) GetGroups(context.Context, domain.SyncItem) ([]string, error) {
	return c.groups, nil
}

// --- Factory ---

type fakeFactory struct {
	conns   map[string]driven.Connector
	created []domain.Params
}

func newFakeFactory(name string, conn driven.Connector) *fakeFactory {
	return &fakeFactory{conns: map[string]driven.Connector{name: conn}}
}

func (f *fakeFactory) Create(name string, params domain.Params) (driven.Connector, error) {
	conn, ok := f.conns[name]
	if !ok {
		return nil, domain.ErrUnsupportedType
	}
	f.created = append(f.created, params.Clone())
	return conn, nil
}

func (f *fakeFactory) Definition(name string) (domain.ConnectorDefinition, bool) {
	if _, ok := f.conns[name]; !ok {
		return domain.ConnectorDefinition{}, false
	}
	return domain.ConnectorDefinition{Name: name, Title: name}, true
}

func (f *fakeFactory) Definitions() []domain.ConnectorDefinition {
	defs := make([]domain.ConnectorDefinition, 0, len(f.conns))
	for name := range f.conns {
		defs = append(defs, domain.ConnectorDefinition{Name: name, Title: name})
	}
	return defs
}

// --- Destination ---

// fakeKB keeps resources in memory. Failures can be injected per slug.
type fakeKB struct {
	mu stdsync.Mutex

	id         string
	resources  map[string]driven.Resource
	uploads    map[string][]byte
	uploadOpts map[string]driven.UploadOptions
	texts      map[string]domain.Text
	deleted    []string

	failUpload map[string]error
	failCreate map[string]error
	getErr     error
	calls      []string
}

func newFakeKB(id string) *fakeKB {
	return &fakeKB{
		id:         id,
		resources:  make(map[string]driven.Resource),
		uploads:    make(map[string][]byte),
		uploadOpts: make(map[string]driven.UploadOptions),
		texts:      make(map[string]domain.Text),
		failUpload: make(map[string]error),
		failCreate: make(map[string]error),
	}
}

func (k *fakeKB) KnowledgeBox(domain.KnowledgeBox) driven.KnowledgeBox { return k }

func (k *fakeKB) ID() string { return k.id }

func (k *fakeKB) record(call string) {
	k.calls = append(k.calls, call)
}

func (k *fakeKB) GetResourceBySlug(_ context.Context, slug string) (*driven.Resource, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.record("get")
	if k.getErr != nil {
		return nil, k.getErr
	}
	res, ok := k.resources[slug]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &res, nil
}

func (k *fakeKB) HasResource(_ context.Context, slug string) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.record("has")
	_, ok := k.resources[slug]
	return ok, nil
}

func (k *fakeKB) CreateResource(_ context.Context, res driven.Resource) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.record("create")
	if err := k.failCreate[res.Slug]; err != nil {
		return err
	}
	if _, ok := k.resources[res.Slug]; ok {
		return domain.ErrAlreadyExists
	}
	k.resources[res.Slug] = res
	return nil
}

func (k *fakeKB) ModifyResource(_ context.Context, slug string, res driven.Resource) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.record("modify")
	stored, ok := k.resources[slug]
	if !ok {
		return domain.ErrNotFound
	}
	res.Slug = stored.Slug
	k.resources[slug] = res
	return nil
}

func (k *fakeKB) Upload(_ context.Context, slug, _ string, data []byte, opts driven.UploadOptions) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.record("upload")
	if err := k.failUpload[slug]; err != nil {
		return err
	}
	k.uploads[slug] = append([]byte(nil), data...)
	k.uploadOpts[slug] = opts
	return nil
}

func (k *fakeKB) SetTextField(_ context.Context, slug, _ string, text domain.Text) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.record("text")
	k.texts[slug] = text
	return nil
}

func (k *fakeKB) DeleteResource(_ context.Context, slug string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.record("delete")
	if _, ok := k.resources[slug]; !ok {
		return domain.ErrNotFound
	}
	delete(k.resources, slug)
	delete(k.uploads, slug)
	k.deleted = append(k.deleted, slug)
	return nil
}

func (k *fakeKB) has(originalID string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, ok := k.resources[domain.Slug(originalID)]
	return ok
}

func (k *fakeKB) resource(originalID string) driven.Resource {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.resources[domain.Slug(originalID)]
}

// --- Web ---

type fakeWeb struct {
	contentType string
	blob        *domain.Blob
	fetched     []string
}

func (w *fakeWeb) ContentType(context.Context, string, map[string]string) (string, error) {
	if w.contentType == "" {
		return "", errors.New("no content type")
	}
	return w.contentType, nil
}

func (w *fakeWeb) Fetch(_ context.Context, uri string, _ map[string]string) (*domain.Blob, error) {
	w.fetched = append(w.fetched, uri)
	return w.blob, nil
}

type fakeExtractor struct {
	result *driven.ExtractResult
	reqs   []driven.ExtractRequest
}

func (e *fakeExtractor) Extract(_ context.Context, req driven.ExtractRequest) (*driven.ExtractResult, error) {
	e.reqs = append(e.reqs, req)
	return e.result, nil
}

// --- Events ---

type recordingPublisher struct {
	mu     stdsync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) named(name domain.EventName) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Event
	for _, e := range p.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// --- Helpers ---

func file(id, mimeType string) domain.SyncItem {
	return domain.SyncItem{
		OriginalID:  id,
		Title:       id,
		MimeType:    mimeType,
		ModifiedGMT: "2024-01-01T00:00:00.000Z",
	}
}

func folder(id string, status domain.FileStatus) domain.SyncItem {
	return domain.SyncItem{OriginalID: id, Title: id, IsFolder: true, Status: status}
}
