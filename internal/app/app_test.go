package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/evsubsidy/internal/config"
	"github.com/JonMunkholm/evsubsidy/internal/core"
	"github.com/JonMunkholm/evsubsidy/internal/source"
)

func testConfig(dir string) *config.Config {
	return &config.Config{
		Data: config.DataConfig{
			PrimaryPath:    filepath.Join(dir, "ev_data_final.json"),
			SecondaryPath:  filepath.Join(dir, "ev_complete_data.json"),
			MergeSecondary: true,
			CSVEncoding:    source.EncodingUTF8,
			FetchTimeout:   time.Second,
		},
		Cache: config.CacheConfig{
			Backend:  "memory",
			Key:      "ev_final_data",
			Duration: time.Hour,
		},
	}
}

func writeDocument(t *testing.T, path string, d core.Draft, overrides bool) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, core.EncodeDataset(f, d.Build(), overrides))
}

func names(chain []core.Source) []string {
	out := make([]string, 0, len(chain))
	for _, s := range chain {
		out = append(out, s.Name())
	}
	return out
}

func TestSources_Order(t *testing.T) {
	cfg := testConfig(t.TempDir())

	chain, overlay := Sources(cfg, source.Fetcher{})
	assert.Equal(t, []string{SourcePrimary, SourceSecondary, source.FallbackName}, names(chain))
	require.NotNil(t, overlay)
	assert.Equal(t, SourceSecondary, overlay.Name())

	cfg.Sheets = config.SheetsConfig{SpreadsheetID: "sheet", APIKey: "key"}
	cfg.Data.MergeSecondary = false
	chain, overlay = Sources(cfg, source.Fetcher{})
	assert.Equal(t, []string{SourcePrimary, SourceSecondary, SourceSheets, source.FallbackName}, names(chain))
	assert.Nil(t, overlay)

	cfg.Data.PrimaryPath, cfg.Data.SecondaryPath = "", ""
	chain, _ = Sources(cfg, source.Fetcher{})
	assert.Equal(t, []string{SourceSheets, source.FallbackName}, names(chain))
}

func TestSources_CSVPrimary(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Data.PrimaryPath = "exports/subsidies.csv"

	chain, _ := Sources(cfg, source.Fetcher{})
	_, isCSV := chain[0].(*source.CSV)
	assert.True(t, isCSV, "a .csv location is read as a CSV export")
}

func TestNew_PrimaryWithOverlay(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)

	writeDocument(t, cfg.Data.PrimaryPath, core.Draft{
		Rows:    []core.Row{{Manufacturer: "기아", Model: "EV6", National: 655, Local: 400, HasNational: true}},
		Regions: []core.Region{{Region: "서울특별시", AvgSubsidy: 400}},
	}, false)
	writeDocument(t, cfg.Data.SecondaryPath, core.Draft{
		Rows:      []core.Row{{Manufacturer: "기아", Model: "EV6", National: 655, Local: 400, HasNational: true}},
		Regions:   []core.Region{{Region: "서울특별시", AvgSubsidy: 400}},
		Overrides: core.Overrides{"서울특별시": {"기아_EV6": 180}},
	}, true)

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })
	require.NotNil(t, a.Cache)

	ctx := context.Background()
	res := a.Service.Resolve(ctx, "기아_EV6", "서울특별시")
	assert.Equal(t, core.MatchExact, res.Match)
	assert.Equal(t, 180, res.LocalSubsidy)
	assert.Equal(t, SourcePrimary, a.Service.Status(ctx).Source)

	_, cached := a.Cache.Get(ctx, cfg.Cache.Key)
	assert.True(t, cached, "the merged dataset is written back to the cache")
}

func TestNew_FallsBackToEmbedded(t *testing.T) {
	cfg := testConfig(t.TempDir())

	a, err := New(context.Background(), cfg, WithoutCache())
	require.NoError(t, err)
	assert.Nil(t, a.Cache)
	assert.NoError(t, a.Close())

	ctx := context.Background()
	st := a.Service.Status(ctx)
	assert.Equal(t, source.FallbackName, st.Source)
	assert.Equal(t, 16, st.Vehicles)
	assert.Equal(t, 17, st.Regions)
}

func TestNew_UnknownCacheBackend(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Cache.Backend = "memcached"

	_, err := New(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown cache backend")
}
