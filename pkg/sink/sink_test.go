package sink

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"placeharvest/pkg/config"
	errs "placeharvest/pkg/errors"
	"placeharvest/pkg/models"
)

func record(id, title string) models.Record {
	return models.Record{
		Identity:    "https://maps.example.com/maps/place/" + id,
		Title:       title,
		Rating:      "4.2",
		RatingValue: 4.2,
		ReviewCount: 31,
		HasPhone:    true,
		Industry:    "retail",
		Sentiment:   "positive",
		Outreach:    models.Message{WhatsApp: "Hi " + title, Fallback: true},
		ExtractedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func readJSONL(t *testing.T, path string) []models.Record {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []models.Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r models.Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r))
		out = append(out, r)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestJSONLAppend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out", "places.jsonl")

	s, err := NewJSONL(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, record("a", "Alpha")))
	require.NoError(t, s.Append(ctx, record("b", "Beta")))
	require.NoError(t, s.Append(ctx, record("a", "Alpha again")))
	assert.Equal(t, 2, s.Count())
	require.NoError(t, s.Close())

	got := readJSONL(t, path)
	require.Len(t, got, 2)
	assert.Equal(t, "Alpha", got[0].Title)
	assert.Equal(t, "Beta", got[1].Title)
	assert.Equal(t, "Hi Beta", got[1].Outreach.WhatsApp)
}

func TestJSONLReopenSkipsKnownIdentities(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "places.jsonl")

	s, err := NewJSONL(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, record("a", "Alpha")))
	require.NoError(t, s.Close())

	// simulate a torn line from an interrupted write
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"identity":"https://maps.exa`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	s, err = NewJSONL(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count())
	require.NoError(t, s.Append(ctx, record("a", "Alpha")))
	assert.Equal(t, 1, s.Count())
	require.NoError(t, s.Append(ctx, record("b", "Beta")))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	var last models.Record
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &last))
	assert.Equal(t, "Beta", last.Title)
}

func TestJSONLClosed(t *testing.T) {
	s, err := NewJSONL(filepath.Join(t.TempDir(), "places.jsonl"), nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	err = s.Append(context.Background(), record("a", "Alpha"))
	assert.ErrorIs(t, err, errs.ErrSinkUnavailable)
}

func TestAppendCancelled(t *testing.T) {
	s, err := NewJSONL(filepath.Join(t.TempDir(), "places.jsonl"), nil)
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Append(ctx, record("a", "Alpha")), errs.ErrSinkUnavailable)
}

func TestCSVAppend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "places.csv")

	s, err := NewCSV(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, record("a", "Alpha, Ltd")))
	require.NoError(t, s.Close())

	s, err = NewCSV(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, record("a", "Alpha, Ltd")))
	require.NoError(t, s.Append(ctx, record("b", "Beta")))
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "Alpha, Ltd", rows[1][2])
	assert.Equal(t, "4.2", rows[1][5])
	assert.Equal(t, "true", rows[1][10])
	assert.Equal(t, "2024-05-01T12:00:00Z", rows[1][19])
	assert.Equal(t, "https://maps.example.com/maps/place/b", rows[2][0])
}

func TestCSVRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,age\nbob,3\n"), 0644))

	_, err := NewCSV(path, nil)
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(ctx, config.SinkConfig{Type: "jsonl", Path: filepath.Join(dir, "a.jsonl")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &JSONL{}, s)
	require.NoError(t, s.Close())

	s, err = Open(ctx, config.SinkConfig{Type: "csv", Path: filepath.Join(dir, "a.csv")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &CSV{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.SinkConfig{Type: "postgres"}, nil)
	assert.Error(t, err)

	_, err = Open(ctx, config.SinkConfig{Type: "parquet"}, nil)
	assert.Error(t, err)
}

func TestPostgresRejectsBadTable(t *testing.T) {
	_, err := NewPostgres(context.Background(), "postgres://localhost/db", "places; drop", nil)
	assert.Error(t, err)
}
