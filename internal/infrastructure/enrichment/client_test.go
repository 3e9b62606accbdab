package enrichment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serpprice/backend/internal/domain"
)

// newTestClient returns a client with a generous limiter and instant backoff
func newTestClient(baseURL string, batchSize int) *Client {
	c := NewClient(Config{
		BaseURL:         baseURL,
		APIKey:          "test-api-key",
		Provider:        "test",
		BatchSize:       batchSize,
		RequestsPerHour: 3_600_000,
	})
	c.backoff = func(int) time.Duration { return time.Millisecond }
	return c
}

// echoHandler echoes each title back as its model code
func echoHandler(t *testing.T, calls *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		var req extractRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := extractResponse{}
		for i, title := range req.Titles {
			resp.Items = append(resp.Items, extractedItem{
				Index:      i,
				Attributes: map[string]any{AttrBrand: "msi", AttrModel: title},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient(Config{BaseURL: "https://extract.example.com/", APIKey: "k"})

	assert.NotNil(t, client)
	assert.Equal(t, "k", client.apiKey)
	assert.Equal(t, "https://extract.example.com", client.baseURL)
	assert.Equal(t, defaultBatchSize, client.batchSize)
	assert.Equal(t, "http", client.Provider())
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.rateLimiter)
	assert.False(t, client.debug)
}

func TestSetDebug(t *testing.T) {
	client := NewClient(Config{BaseURL: "https://extract.example.com"})

	assert.False(t, client.debug)
	client.SetDebug(true)
	assert.True(t, client.debug)
	client.SetDebug(false)
	assert.False(t, client.debug)
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1000 * time.Millisecond},
		{3, 2000 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestExtractFeatures_Success(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/extract", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		echoHandler(t, &calls)(w, r)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 15)
	titles := []string{"b13wfkg-687xes", "anv15-51"}

	features, err := client.ExtractFeatures(context.Background(), titles)

	require.NoError(t, err)
	require.Len(t, features, 2)
	assert.Equal(t, "MSI", features[0].Brand)
	assert.Equal(t, "B13WFKG-687XES", features[0].Model)
	assert.Equal(t, "ANV15-51", features[1].Model)
	assert.Equal(t, int32(1), calls)
}

func TestExtractFeatures_Batches(t *testing.T) {
	var calls int32
	server := httptest.NewServer(echoHandler(t, &calls))
	defer server.Close()

	client := newTestClient(server.URL, 2)
	titles := []string{"a1", "a2", "a3", "a4", "a5"}

	features, err := client.ExtractFeatures(context.Background(), titles)

	require.NoError(t, err)
	require.Len(t, features, 5)
	assert.Equal(t, int32(3), calls)
	for i, f := range features {
		assert.Equal(t, strings.ToUpper(titles[i]), f.Model, "batch offsets keep title order")
	}
}

func TestExtractFeatures_ServerError_Retries(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(extractResponse{Items: []extractedItem{
			{Index: 0, Attributes: map[string]any{AttrRAM: "16GB"}},
		}})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 15)
	features, err := client.ExtractFeatures(context.Background(), []string{"retry"})

	require.NoError(t, err)
	assert.Equal(t, 16, features[0].RAMGB)
	assert.Equal(t, int32(3), attempts)
}

func TestExtractFeatures_TooManyRequests_Retries(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(extractResponse{})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 15)
	_, err := client.ExtractFeatures(context.Background(), []string{"rate-limited"})

	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts)
}

func TestExtractFeatures_ClientError_NoRetry_EmptyFeatures(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 15)
	features, err := client.ExtractFeatures(context.Background(), []string{"a", "b"})

	require.NoError(t, err, "a failed batch degrades to empty features")
	require.Len(t, features, 2)
	assert.True(t, features[0].IsEmpty())
	assert.True(t, features[1].IsEmpty())
	assert.Equal(t, int32(1), attempts)
}

func TestExtractFeatures_AllRetriesFail(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 15)
	features, err := client.ExtractFeatures(context.Background(), []string{"a"})

	require.NoError(t, err)
	assert.True(t, features[0].IsEmpty())
	assert.Equal(t, int32(maxAttempts), attempts)
}

func TestExtractBatch_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("invalid json"))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 15)
	result, err := client.extractBatch(context.Background(), []string{"x"})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrEnrichmentFailure)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestExtractFeatures_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 15)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	result, err := client.ExtractFeatures(ctx, []string{"timeout"})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrEnrichmentFailure)
}

func TestExtractFeatures_Empty(t *testing.T) {
	client := newTestClient("http://unused.invalid", 15)
	features, err := client.ExtractFeatures(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, features)
}
