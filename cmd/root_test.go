package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/tubescout/internal/analyzer"
	"github.com/JakeFAU/tubescout/internal/auth"
	"github.com/JakeFAU/tubescout/internal/clock/system"
	"github.com/JakeFAU/tubescout/internal/config"
	"github.com/JakeFAU/tubescout/internal/crawler"
	"github.com/JakeFAU/tubescout/internal/discovery"
	"github.com/JakeFAU/tubescout/internal/export"
	"github.com/JakeFAU/tubescout/internal/resolver"
	"github.com/JakeFAU/tubescout/internal/storage/memory"
	"github.com/JakeFAU/tubescout/internal/youtube"
)

type fakeRunner struct {
	params []discovery.Params
	result discovery.Result
}

func (f *fakeRunner) Run(_ context.Context, p discovery.Params) (discovery.Result, error) {
	f.params = append(f.params, p)
	return f.result, nil
}

type fakeLookup struct{}

func (fakeLookup) ChannelIDForHandle(_ context.Context, handle string) (string, bool, error) {
	if handle == "known" {
		return "UCknownknownknownknown00", true, nil
	}
	return "", false, nil
}

func (fakeLookup) SearchHandle(context.Context, string, int64) ([]youtube.SearchHit, error) {
	return nil, nil
}

func (fakeLookup) ChannelIDForUsername(context.Context, string) (string, bool, error) {
	return "", false, nil
}

type fakeDetails struct{}

func (fakeDetails) Fetch(_ context.Context, ids []string, _ int64) ([]crawler.ChannelDetail, error) {
	out := make([]crawler.ChannelDetail, 0, len(ids))
	for _, id := range ids {
		out = append(out, crawler.ChannelDetail{ChannelID: id, Title: "Known", Subscribers: 1_200, VideoCount: 30})
	}
	return out, nil
}

type fakeApp struct {
	cfg       config.Config
	store     *memory.Store
	runner    *fakeRunner
	discovery *discovery.Service
	resolver  *resolver.Resolver
	analyzer  *analyzer.Analyzer
	closed    bool
}

func newFakeApp(cfg config.Config) *fakeApp {
	store := memory.NewStore(system.New())
	runner := &fakeRunner{result: discovery.Result{RunID: "run-1", NewChannels: 4, TotalFetched: 4}}
	res := resolver.New(fakeLookup{}, zap.NewNop())
	return &fakeApp{
		cfg:       cfg,
		store:     store,
		runner:    runner,
		discovery: discovery.NewService(runner, store, nil, zap.NewNop()),
		resolver:  res,
		analyzer:  analyzer.New(res, fakeDetails{}, zap.NewNop()),
	}
}

func (a *fakeApp) Close()                           { a.closed = true }
func (a *fakeApp) GetConfig() config.Config         { return a.cfg }
func (a *fakeApp) GetLogger() *zap.Logger           { return zap.NewNop() }
func (a *fakeApp) GetStore() crawler.Store          { return a.store }
func (a *fakeApp) GetResolver() *resolver.Resolver  { return a.resolver }
func (a *fakeApp) GetDiscovery() *discovery.Service { return a.discovery }
func (a *fakeApp) GetAnalyzer() *analyzer.Analyzer  { return a.analyzer }
func (a *fakeApp) GetArchiver() *export.Archiver    { return nil }
func (a *fakeApp) GetSessions() *auth.Sessions      { return nil }

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tubescout.yaml")
	body := `
db:
  driver: memory
youtube:
  api_key: test-key
  target_channels: 25
  max_results: 20
  max_subscribers: 50000
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// runCommand swaps the app factory for a fake and executes args.
func runCommand(t *testing.T, args ...string) (*fakeApp, string, error) {
	t.Helper()
	var built *fakeApp
	orig := newApp
	newApp = func(_ context.Context, cfg config.Config) (App, error) {
		built = newFakeApp(cfg)
		return built, nil
	}
	t.Cleanup(func() { newApp = orig })

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", writeConfig(t)}, args...))
	err := root.ExecuteContext(context.Background())
	return built, out.String(), err
}

func TestCrawlCommand_UsesConfigDefaults(t *testing.T) {
	app, out, err := runCommand(t, "crawl")
	require.NoError(t, err)
	require.Len(t, app.runner.params, 1)
	p := app.runner.params[0]
	assert.Equal(t, 25, p.TargetChannels)
	assert.EqualValues(t, 20, p.MaxResults)
	assert.EqualValues(t, 50_000, p.MaxSubscribers)
	assert.True(t, app.closed)

	var res discovery.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, 4, res.NewChannels)
}

func TestCrawlCommand_FlagsOverrideConfig(t *testing.T) {
	app, _, err := runCommand(t, "crawl", "--target", "3", "--max-results", "5", "--max-subscribers", "900")
	require.NoError(t, err)
	require.Len(t, app.runner.params, 1)
	p := app.runner.params[0]
	assert.Equal(t, 3, p.TargetChannels)
	assert.EqualValues(t, 5, p.MaxResults)
	assert.EqualValues(t, 900, p.MaxSubscribers)

	entries, err := app.store.ListActivity(context.Background(), crawler.ActivityQuery{Action: crawler.ActionFetchChannels})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRescoreCommand(t *testing.T) {
	app, out, err := runCommand(t, "rescore")
	require.NoError(t, err)
	assert.Contains(t, out, "rescored 0 channels")

	entries, err := app.store.ListActivity(context.Background(), crawler.ActivityQuery{Action: crawler.ActionRescore})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestMigrateCommand_MemoryStoreHasNoSchema(t *testing.T) {
	_, _, err := runCommand(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no schema")
}

func TestResolveCommand(t *testing.T) {
	_, out, err := runCommand(t, "resolve", "https://www.youtube.com/@known")
	require.NoError(t, err)
	assert.Equal(t, "UCknownknownknownknown00", strings.TrimSpace(out))

	_, _, err = runCommand(t, "resolve", "youtube.com/@missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not resolve")
}

func TestAnalyzeCommand(t *testing.T) {
	_, out, err := runCommand(t, "analyze", "youtube.com/@known")
	require.NoError(t, err)

	var report analyzer.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "UCknownknownknownknown00", report.ChannelID)
	assert.Equal(t, "Known", report.Title)

	_, _, err = runCommand(t, "analyze", "@missing")
	require.Error(t, err)
}

func TestRootCommand_RequiresArgs(t *testing.T) {
	_, _, err := runCommand(t, "resolve")
	require.Error(t, err)
}

func TestRootCommand_BadConfigFails(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "crawl"})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}
