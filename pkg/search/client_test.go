package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL, APIKey: "test-key"}, noopLogger())
}

func TestSearchSendsRequest(t *testing.T) {
	var gotPath, gotTenant, gotAuth string
	var gotBody searchRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTenant = r.Header.Get("X-Tenant-Id")
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"id": "proj-1", "title": "Q3 Roadmap", "score": 0.9, "kind": "project"},
			},
		})
	})

	results, err := client.Search(context.Background(), "tenant-1", "roadmap", "project", 5)
	require.NoError(t, err)

	assert.Equal(t, "/v1/search", gotPath)
	assert.Equal(t, "tenant-1", gotTenant)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "roadmap", gotBody.Query)
	assert.Equal(t, "project", gotBody.Kind)
	assert.Equal(t, 5, gotBody.Limit)

	require.Len(t, results, 1)
	assert.Equal(t, "proj-1", results[0].ID)
	assert.Equal(t, "Q3 Roadmap", results[0].Title)
	assert.InDelta(t, 0.9, results[0].Score, 1e-9)
	assert.Equal(t, "project", results[0].Kind)
}

func TestSearchNormalizesFieldAliases(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// an older deployment shape: items, doc_id, name, distance, type
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"doc_id": "todo-7", "name": "Launch checklist", "distance": 0.25, "type": "task"},
			},
		})
	})

	results, err := client.Search(context.Background(), "tenant-1", "launch", "todo", 5)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "todo-7", results[0].ID)
	assert.Equal(t, "Launch checklist", results[0].Title)
	assert.InDelta(t, 0.75, results[0].Score, 1e-9)
	assert.Equal(t, "task", results[0].Kind)
}

func TestSearchSkipsRecordsWithoutID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "no id", "score": 0.9},
				{"id": "proj-1", "score": 0.8},
			},
		})
	})

	results, err := client.Search(context.Background(), "tenant-1", "q", "project", 5)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "proj-1", results[0].ID)
	// kind falls back to the requested kind
	assert.Equal(t, "project", results[0].Kind)
}

func TestSearchEnforcesLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		records := make([]map[string]any, 10)
		for i := range records {
			records[i] = map[string]any{"id": "proj", "score": 0.9}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": records})
	})

	results, err := client.Search(context.Background(), "tenant-1", "q", "project", 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearchDoesNotLogQueryContent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zapadapter.NewZapEctoLogger(zap.New(core), nil)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{}})
	}))
	t.Cleanup(server.Close)
	client := NewClient(Config{BaseURL: server.URL}, logger)

	// The query carries message content; no log line may reproduce it.
	query := "my SSN is 123-45-6789 please wire money to acct 9981"
	_, err := client.Search(context.Background(), "tenant-1", query, "project", 5)
	require.NoError(t, err)

	entries := logs.All()
	require.NotEmpty(t, entries)
	for _, entry := range entries {
		assert.NotContains(t, entry.Message, "SSN")
		for _, field := range entry.Context {
			assert.NotContains(t, field.String, "SSN")
			if field.Interface != nil {
				assert.NotContains(t, fmt.Sprint(field.Interface), "SSN")
			}
		}
	}
}

func TestSearchNon200IsAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Search(context.Background(), "tenant-1", "q", "project", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSearchMalformedBodyIsAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})

	_, err := client.Search(context.Background(), "tenant-1", "q", "project", 5)
	require.Error(t, err)
}
