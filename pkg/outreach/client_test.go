package outreach

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"placeharvest/pkg/config"
	errs "placeharvest/pkg/errors"
	"placeharvest/pkg/logger"
	"placeharvest/pkg/models"
)

func fastRetry() config.RetryConfig {
	return config.RetryConfig{
		Enabled:     true,
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Multiplier:  2,
	}
}

func testClient(t *testing.T, url string) *Client {
	t.Helper()
	cfg := config.DefaultConfig().Outreach
	cfg.BaseURL = url
	cfg.APIKey = "sk-test"
	c, err := NewClient(cfg, fastRetry(), logger.NewNopLogger())
	require.NoError(t, err)
	return c
}

func completion(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	}
}

var sampleRecord = models.Record{
	Identity:    "https://maps.example.com/maps/place/harbour-dental",
	Title:       "Harbour Dental",
	Category:    "Dentist",
	Rating:      "4.6",
	ReviewCount: 212,
	Industry:    "dental",
	Sentiment:   "very positive",
	HasPhone:    true,
}

func TestGenerate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion(
			"```json\n{\"whatsapp\":\"Hi Harbour Dental!\",\"email_subject\":\"Hello\",\"email_body\":\"Dear team\"}\n```"))
	}))
	defer srv.Close()

	msg, err := testClient(t, srv.URL).Generate(context.Background(), sampleRecord)
	require.NoError(t, err)

	assert.Equal(t, models.Message{WhatsApp: "Hi Harbour Dental!", EmailSubject: "Hello", EmailBody: "Dear team"}, msg)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Contains(t, got.Messages[1].Content, "Business: Harbour Dental")
	assert.Contains(t, got.Messages[1].Content, "Has website: false")
	assert.Equal(t, "json_object", got.ResponseFormat["type"])
}

func TestGenerateRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion(`{"whatsapp":"hi","email_subject":"s","email_body":"b"}`))
	}))
	defer srv.Close()

	msg, err := testClient(t, srv.URL).Generate(context.Background(), sampleRecord)
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.WhatsApp)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      interface{}
		wantCalls int32
	}{
		{name: "unauthorized is not retried", status: http.StatusUnauthorized, body: map[string]string{"error": "bad key"}, wantCalls: 1},
		{name: "server error exhausts attempts", status: http.StatusBadGateway, body: map[string]string{"error": "upstream"}, wantCalls: 3},
		{name: "prose instead of json", status: http.StatusOK, body: completion("Sure! Here is a message."), wantCalls: 1},
		{name: "empty copy", status: http.StatusOK, body: completion(`{"whatsapp":"","email_body":""}`), wantCalls: 1},
		{name: "no choices", status: http.StatusOK, body: map[string]interface{}{"choices": []interface{}{}}, wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(tt.body)
			}))
			defer srv.Close()

			_, err := testClient(t, srv.URL).Generate(context.Background(), sampleRecord)
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrGeneration)
			assert.False(t, errs.IsFatal(errs.TypeOf(err)))
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestGenerateCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(t, srv.URL).Generate(ctx, sampleRecord)
	assert.ErrorIs(t, err, errs.ErrGeneration)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(config.DefaultConfig().Outreach, fastRetry(), nil)
	assert.Error(t, err)
}
