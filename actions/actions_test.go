package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/relloyd/silverpipe/blob"
	"github.com/relloyd/silverpipe/config"
	"github.com/relloyd/silverpipe/constants"
	"github.com/relloyd/silverpipe/logger"
	"github.com/relloyd/silverpipe/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLog = logger.NewLogger("silverpipe-test", "error", false)

const walmartRaw = "itemId,name,salePrice,msrp,stock,snapshot_date,captured_at\n" +
	"1,Widget,9.99,19.99,Available,2024-03-01,2024-03-01T10:00:00Z\n" +
	"2,Gadget,5.00,,Out of stock,2024-03-01,2024-03-01T10:00:00Z\n"

func newTestIngestConfig(store blob.Store, runID string) *IngestConfig {
	cfg := NewIngestConfig(config.Defaults(), runID)
	cfg.Log = testLog
	cfg.Store = store
	return cfg
}

func TestRunIngest(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemoryStore()
	require.NoError(t, store.WriteText(ctx, "raw/walmart/2024-03-01/items.csv", walmartRaw, true))

	cfg := newTestIngestConfig(store, "r1")
	cfg.Stats = stats.NewManager(testLog, stats.SetStatsDumpFrequency(0))
	results, err := RunIngest(ctx, cfg)
	require.NoError(t, err)
	require.Len(t, results, 2)

	w := results[0]
	assert.Equal(t, constants.RetailerWalmart, w.Retailer)
	assert.Equal(t, "raw/walmart/2024-03-01/items.csv", w.RawBlob)
	assert.Equal(t, 2, w.Rows)
	assert.Equal(t, []string{
		"silver/walmart/snapshot_date=2024-03-01/run_r1.csv",
		"silver/walmart/snapshot_date=2024-03-01/current.csv",
	}, w.Written)
	assert.NotEmpty(t, w.Stats)

	// No raw eBay data is not an error.
	assert.Equal(t, constants.RetailerEbay, results[1].Retailer)
	assert.Empty(t, results[1].Written)
	assert.Empty(t, results[1].Error)

	text, err := store.ReadText(ctx, "silver/walmart/snapshot_date=2024-03-01/current.csv")
	require.NoError(t, err)
	assert.Contains(t, text, "Widget")
	assert.Contains(t, text, "r1")
}

func TestRunIngest_Parallel(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemoryStore()
	require.NoError(t, store.WriteText(ctx, "raw/walmart/a.csv", walmartRaw, true))
	require.NoError(t, store.WriteText(ctx, "raw/ebay/b.json",
		`[{"itemId": "v1|9|0", "title": "Thing", "price": {"value": "8.00", "currency": "USD"}, "snapshot_date": "2024-03-01", "captured_at": "2024-03-01T11:00:00Z"}]`, true))
	cfg := newTestIngestConfig(store, "r2")
	cfg.Parallel = true
	results, err := RunIngest(ctx, cfg)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Len(t, results[0].Written, 2)
	assert.Len(t, results[1].Written, 2)
	ok, err := store.Exists(ctx, "silver/ebay/snapshot_date=2024-03-01/current.csv")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunIngest_Errors(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemoryStore()

	_, err := RunIngest(ctx, &IngestConfig{Log: testLog})
	assert.Error(t, err, "missing store")

	cfg := newTestIngestConfig(store, "")
	_, err = RunIngest(ctx, cfg)
	assert.Error(t, err, "missing run id")

	cfg = newTestIngestConfig(store, "r3")
	cfg.Retailers = []string{"target", constants.RetailerWalmart}
	results, err := RunIngest(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target")
	assert.NotEmpty(t, results[0].Error)
	assert.Empty(t, results[1].Error)

	// A repeated run id collides with the write-once audit copy.
	require.NoError(t, store.WriteText(ctx, "raw/walmart/a.csv", walmartRaw, true))
	cfg = newTestIngestConfig(store, "r4")
	cfg.Retailers = []string{constants.RetailerWalmart}
	_, err = RunIngest(ctx, cfg)
	require.NoError(t, err)
	_, err = RunIngest(ctx, cfg)
	assert.Error(t, err)
}

func TestRunUpsertFile(t *testing.T) {
	ctx := context.Background()
	dir, err := ioutil.TempDir("", "silverpipe-actions")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	fileName := filepath.Join(dir, "items.csv")
	require.NoError(t, ioutil.WriteFile(fileName, []byte(walmartRaw), 0644))

	store := blob.NewMemoryStore()
	res, err := RunUpsertFile(ctx, newTestIngestConfig(store, "f1"), constants.RetailerWalmart, fileName)
	require.NoError(t, err)
	assert.Equal(t, "items.csv", res.RawBlob)
	assert.Equal(t, 2, res.Rows)
	assert.Len(t, res.Written, 2)

	_, err = RunUpsertFile(ctx, newTestIngestConfig(store, "f2"), constants.RetailerWalmart, filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	s, closer, err := OpenStore(ctx, config.StoreConfig{Type: constants.StoreTypeMemory})
	require.NoError(t, err)
	assert.IsType(t, &blob.MemoryStore{}, s)
	assert.NoError(t, closer())

	dir, err := ioutil.TempDir("", "silverpipe-store")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	s, _, err = OpenStore(ctx, config.StoreConfig{Type: constants.StoreTypeFile, DSN: dir})
	require.NoError(t, err)
	assert.IsType(t, &blob.FileStore{}, s)

	_, _, err = OpenStore(ctx, config.StoreConfig{Type: "ftp"})
	assert.Error(t, err)
}

func TestActionLauncher(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemoryStore()
	require.NoError(t, store.WriteText(ctx, "raw/walmart/a.csv", walmartRaw, true))
	req := &ActionRequest{
		Settings:  config.Defaults(),
		Log:       testLog,
		Store:     store,
		RunID:     "a1",
		Retailers: []string{constants.RetailerWalmart},
	}
	out, err := ActionLauncher(ctx, req, constants.ActionFuncsCommandRun)
	require.NoError(t, err)
	results, ok := out.([]IngestResult)
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Len(t, results[0].Written, 2)

	_, err = ActionLauncher(ctx, req, "explode")
	assert.Error(t, err)
}

func newTestServer(store blob.Store) *server {
	settings := config.Defaults()
	web := &WebServerConfig{LogLevel: "error", Port: 0, Settings: settings, Store: store}
	s := newServer(context.Background(), testLog, web)
	s.newRunID = func() string { return "web1" }
	return s
}

func doRequest(t *testing.T, h http.Handler, method string, url string, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(method, url, bytes.NewBufferString(body))
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	out := make(map[string]interface{})
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestWebServer_Runs(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemoryStore()
	require.NoError(t, store.WriteText(ctx, "raw/walmart/a.csv", walmartRaw, true))
	s := newTestServer(store)
	h := s.router()

	rec, out := doRequest(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])

	rec, out = doRequest(t, h, http.MethodPost, "/runs", `{"retailers": ["walmart"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "web1", out["runId"])

	rec, out = doRequest(t, h, http.MethodPost, "/runs", `{"retailers": ["walmart"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "duplicate run id")
	assert.Equal(t, "error", out["status"])

	s.runs.wait()
	rec, out = doRequest(t, h, http.MethodGet, "/runs/web1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	run := out["run"].(map[string]interface{})
	assert.Equal(t, RunStatusComplete, run["runStatus"])
	assert.Len(t, run["results"], 1)

	rec, out = doRequest(t, h, http.MethodGet, "/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["runs"], 1)

	rec, out = doRequest(t, h, http.MethodGet, "/runs/web1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, out["runStats"])

	rec, _ = doRequest(t, h, http.MethodGet, "/runs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, out = doRequest(t, h, http.MethodGet, "/partitions/walmart/2024-03-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rows := out["rows"].([]interface{})
	require.Len(t, rows, 2)
	assert.Equal(t, "web1", rows[0].(map[string]interface{})[constants.ColIngestRunID])

	rec, _ = doRequest(t, h, http.MethodGet, "/partitions/walmart/1999-01-01", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doRequest(t, h, http.MethodPost, "/runs", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebServer_Stop(t *testing.T) {
	s := newTestServer(blob.NewMemoryStore())
	rec, _ := doRequest(t, s.router(), http.MethodGet, "/stop", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	select {
	case <-s.chanStop:
	case <-time.After(time.Second):
		t.Fatal("expected a stop signal")
	}
	s.runs.closeForLaunch()
	assert.Error(t, s.runs.start("late", nil))
}
