package harvest

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"placeharvest/pkg/config"
	"placeharvest/pkg/logger"
	"placeharvest/pkg/outreach"
	"placeharvest/pkg/progress"
	"placeharvest/pkg/ratelimit"
	"placeharvest/pkg/sink"
)

func chatServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		if n == 2 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		content, _ := json.Marshal(map[string]string{
			"whatsapp":      "Hi there",
			"email_subject": "Hello",
			"email_body":    "A short note",
		})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": string(content)}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func readJSONL(t *testing.T, path string) []Record {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		out = append(out, r)
	}
	require.NoError(t, sc.Err())
	return out
}

// runWith performs one run with durable collaborators, reopening them like a new process would
func runWith(t *testing.T, dir string, srvURL string, entries []RawEntry, quota int) RunSummary {
	t.Helper()
	ctx := context.Background()
	log := logger.NewNopLogger()

	cfg := testConfig()
	cfg.Sink = config.SinkConfig{Type: "jsonl", Path: filepath.Join(dir, "out", "places.jsonl")}
	cfg.Outreach.BaseURL = srvURL
	cfg.Outreach.APIKey = "sk-test"
	cfg.Retry = config.RetryConfig{Enabled: true, MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

	backend, err := progress.NewSQLiteBackend(ctx, filepath.Join(dir, "progress.db"))
	require.NoError(t, err)
	store := progress.NewStore(backend, "", log)
	defer store.Close()

	out, err := sink.Open(ctx, cfg.Sink, log)
	require.NoError(t, err)
	defer out.Close()

	gen, err := outreach.NewClient(cfg.Outreach, cfg.Retry, log)
	require.NoError(t, err)

	engine, err := NewEngine(cfg, Deps{
		Driver:    &fakeDriver{entries: entries},
		Store:     store,
		Sink:      out,
		Generator: gen,
		Limiter:   ratelimit.Unlimited{},
		Logger:    log,
	})
	require.NoError(t, err)

	return engine.RunOnce(ctx, seed, quota)
}

func TestEndToEndResumesAcrossProcesses(t *testing.T) {
	dir := t.TempDir()
	var calls int32
	srv := chatServer(t, &calls)

	sum := runWith(t, dir, srv.URL, places("A", "B", "C", "D"), 2)
	require.False(t, sum.Fatal, sum.Error)
	assert.Equal(t, 2, sum.Emitted)
	assert.Equal(t, 1, sum.Fallbacks, "the second generation call is rejected")

	sum = runWith(t, dir, srv.URL, places("B", "A", "D", "C", "E"), 2)
	require.False(t, sum.Fatal, sum.Error)
	assert.Equal(t, 2, sum.StartCursor)
	assert.Equal(t, 2, sum.Emitted)

	sum = runWith(t, dir, srv.URL, places("B", "A", "D", "C", "E"), 2)
	require.False(t, sum.Fatal, sum.Error)
	assert.Equal(t, Exhausted, sum.Terminal)
	assert.Equal(t, 1, sum.Emitted)

	records := readJSONL(t, filepath.Join(dir, "out", "places.jsonl"))
	var ids []string
	for _, r := range records {
		ids = append(ids, r.Identity)
	}
	assert.Equal(t, identities("A", "B", "D", "C", "E"), ids)
	assert.True(t, records[1].Outreach.Fallback)
	assert.Equal(t, "Hi there", records[0].Outreach.WhatsApp)
}
