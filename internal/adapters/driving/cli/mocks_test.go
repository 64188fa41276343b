package cli

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// execute runs the root command with args and returns everything it wrote.
// Flags are reset first so values do not leak between tests.
func execute(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// withServices installs s for the duration of the test.
func withServices(t *testing.T, s *Services) {
	t.Helper()
	old := Services{
		Configurations: configurationService,
		Sync:           syncOrchestrator,
		Settings:       settingsService,
		Logs:           logService,
		Scheduler:      scheduler,
		Watcher:        watcher,
	}
	SetServices(s)
	t.Cleanup(func() { SetServices(&old) })
}

// mockConfigurationService implements driving.ConfigurationService for testing.
type mockConfigurationService struct {
	mu       sync.Mutex
	configs  map[string]*domain.Configuration
	folders  []domain.SyncItem
	defs     []domain.ConnectorDefinition
	created  []domain.Configuration
	patches  map[string][]domain.ConfigurationPatch
	deleted  []string
	queries  []string
	failWith error
}

func newMockConfigurationService() *mockConfigurationService {
	return &mockConfigurationService{
		configs: make(map[string]*domain.Configuration),
		patches: make(map[string][]domain.ConfigurationPatch),
		defs: []domain.ConnectorDefinition{
			{
				Name:       "folder",
				Title:      "Local folder",
				AuthMethod: domain.AuthMethodNone,
				ConfigKeys: []domain.ConfigKey{{Key: "path", Label: "Root path", Required: true}},
			},
			{
				Name:       "gdrive",
				Title:      "Google Drive",
				AuthMethod: domain.AuthMethodOAuth,
				HasFolders: true,
				ConfigKeys: domain.OAuthConfigKeys,
			},
		},
	}
}

func (m *mockConfigurationService) Create(_ context.Context, cfg domain.Configuration) (*domain.Configuration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	if cfg.ID == "" {
		cfg.ID = "cfg-new"
	}
	m.created = append(m.created, cfg)
	stored := cfg
	m.configs[cfg.ID] = &stored
	return &cfg, nil
}

func (m *mockConfigurationService) Get(_ context.Context, id string) (*domain.Configuration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *cfg
	return &out, nil
}

func (m *mockConfigurationService) List(_ context.Context) ([]domain.Configuration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []domain.Configuration
	for _, id := range sortedConfigIDs(m.configs) {
		out = append(out, *m.configs[id])
	}
	return out, nil
}

func (m *mockConfigurationService) ListByKnowledgeBox(_ context.Context, kb string) ([]domain.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Summary
	for _, id := range sortedConfigIDs(m.configs) {
		if c := m.configs[id]; c.KB.KnowledgeBox == kb {
			out = append(out, c.Summarise())
		}
	}
	return out, nil
}

func (m *mockConfigurationService) Update(_ context.Context, id string, patch domain.ConfigurationPatch) (*domain.Configuration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	m.patches[id] = append(m.patches[id], patch)
	updated := patch.Apply(*cfg)
	m.configs[id] = &updated
	return &updated, nil
}

func (m *mockConfigurationService) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.configs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.configs, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockConfigurationService) ListFolders(_ context.Context, id, query string) (domain.SearchResults, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.configs[id]; !ok {
		return domain.SearchResults{}, domain.ErrNotFound
	}
	m.queries = append(m.queries, query)
	var items []domain.SyncItem
	for _, f := range m.folders {
		if query == "" || strings.Contains(strings.ToLower(f.Title), strings.ToLower(query)) {
			items = append(items, f)
		}
	}
	return domain.SearchResults{Items: items}, nil
}

func (m *mockConfigurationService) Connectors() []domain.ConnectorDefinition {
	return m.defs
}

func sortedConfigIDs(configs map[string]*domain.Configuration) []string {
	ids := make([]string, 0, len(configs))
	for id := range configs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// mockSyncOrchestrator implements driving.SyncOrchestrator for testing.
type mockSyncOrchestrator struct {
	mu      sync.Mutex
	reports []domain.CycleReport
	err     error
	runIDs  []string
	runAll  int
}

func (m *mockSyncOrchestrator) RunAll(_ context.Context) ([]domain.CycleReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runAll++
	return m.reports, m.err
}

func (m *mockSyncOrchestrator) Run(_ context.Context, id string) (*domain.CycleReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runIDs = append(m.runIDs, id)
	if m.err != nil {
		return nil, m.err
	}
	for _, r := range m.reports {
		if r.ConfigurationID == id {
			return &r, nil
		}
	}
	return &domain.CycleReport{ConfigurationID: id}, nil
}

func (m *mockSyncOrchestrator) Running() bool { return false }

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings domain.AppSettings
	set      map[string]string
	setErr   error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings(), set: map[string]string{}}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	return []string{"log.file", "sync.enabled", "sync.interval"}
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// mockLogService implements driving.LogService for testing.
type mockLogService struct {
	entries []domain.LogEntry
	since   time.Time
	cleared bool
}

func (m *mockLogService) List(context.Context) ([]domain.LogEntry, error) {
	return m.entries, nil
}

func (m *mockLogService) ListSince(_ context.Context, since time.Time) ([]domain.LogEntry, error) {
	m.since = since
	var out []domain.LogEntry
	for _, e := range m.entries {
		if e.CreatedAt.After(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockLogService) Clear(context.Context) error {
	m.cleared = true
	m.entries = nil
	return nil
}

// mockScheduler blocks in Start until ctx ends.
type mockScheduler struct {
	started chan struct{}
	stopped bool
}

func (m *mockScheduler) Start(ctx context.Context) error {
	close(m.started)
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) Stop() error {
	m.stopped = true
	return nil
}
