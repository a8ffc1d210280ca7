package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) Client {
	return NewClient("test-key", option.WithBaseURL(baseURL))
}

func writeAPIError(w http.ResponseWriter, status int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":  "error",
		"error": map[string]any{"type": kind, "message": msg},
	})
}

func batchJSON(id, status string, processing, succeeded int) map[string]any {
	return map[string]any{
		"id":                id,
		"type":              "message_batch",
		"processing_status": status,
		"request_counts": map[string]any{
			"processing": processing,
			"succeeded":  succeeded,
			"errored":    0,
			"canceled":   0,
			"expired":    0,
		},
	}
}

func TestSDKClient_CreateMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_review_1",
			"type":        "message",
			"role":        "assistant",
			"content":     []map[string]any{{"type": "text", "text": "Clear and specific."}},
			"model":       "claude-haiku-4-5",
			"stop_reason": "end_turn",
			"usage": map[string]any{
				"input_tokens":                40,
				"output_tokens":               6,
				"cache_creation_input_tokens": 0,
				"cache_read_input_tokens":     32,
			},
		})
	}))
	defer ts.Close()

	resp, err := newTestClient(ts.URL).CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-haiku-4-5",
		MaxTokens: 256,
		System:    CachedSystem("Review PDM copy.", ""),
		Messages:  []Message{{Role: "user", Content: "Premium widgets description text."}},
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_review_1", resp.ID)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, "Clear and specific.", resp.Text())
	assert.Equal(t, int64(32), resp.Usage.CacheReadInputTokens)
}

func TestSDKClient_CreateMessage_ErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeAPIError(w, http.StatusTooManyRequests, "rate_limit_error", "Rate limit exceeded")
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-haiku-4-5",
		MaxTokens: 256,
		Messages:  []Message{{Role: "user", Content: "Hello"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: create message")
	assert.Equal(t, http.StatusTooManyRequests, StatusCode(err))
	assert.Equal(t, int32(1), hits.Load())
}

func TestSDKClient_CreateBatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/batches")

		var body struct {
			Requests []struct {
				CustomID string `json:"custom_id"`
			} `json:"requests"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body.Requests, 2)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(batchJSON("batch_review_1", BatchInProgress, 2, 0))
	}))
	defer ts.Close()

	temp := 0.0
	resp, err := newTestClient(ts.URL).CreateBatch(context.Background(), BatchRequest{
		Requests: []BatchRequestItem{
			{CustomID: "pdm-7001", Params: MessageRequest{
				Model: "claude-haiku-4-5", MaxTokens: 256,
				System:      CachedSystem("Review PDM copy.", "1h"),
				Messages:    []Message{{Role: "user", Content: "Text one"}},
				Temperature: &temp,
			}},
			{CustomID: "pdm-7002", Params: MessageRequest{
				Model: "claude-haiku-4-5", MaxTokens: 256,
				Messages: []Message{{Role: "user", Content: "Text two"}},
			}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "batch_review_1", resp.ID)
	assert.Equal(t, BatchInProgress, resp.ProcessingStatus)
	assert.Equal(t, int64(2), resp.RequestCounts.Processing)
}

func TestSDKClient_CreateBatch_Error(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusBadRequest, "invalid_request_error", "bad batch")
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).CreateBatch(context.Background(), BatchRequest{
		Requests: []BatchRequestItem{{CustomID: "pdm-1", Params: MessageRequest{
			Model: "claude-haiku-4-5", MaxTokens: 16,
			Messages: []Message{{Role: "user", Content: "x"}},
		}}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: create batch")
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
}

func TestSDKClient_GetBatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "batch_get_001")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(batchJSON("batch_get_001", BatchEnded, 0, 5))
	}))
	defer ts.Close()

	resp, err := newTestClient(ts.URL).GetBatch(context.Background(), "batch_get_001")
	require.NoError(t, err)
	assert.Equal(t, BatchEnded, resp.ProcessingStatus)
	assert.Equal(t, int64(5), resp.RequestCounts.Succeeded)
}

func TestSDKClient_GetBatch_Error(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusNotFound, "not_found_error", "Batch not found")
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).GetBatch(context.Background(), "batch_missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: get batch batch_missing")
}

func TestSDKClient_GetBatchResults(t *testing.T) {
	lines := `{"custom_id":"pdm-7001","result":{"type":"succeeded","message":{"id":"msg_r1","type":"message","role":"assistant","content":[{"type":"text","text":"Looks good."}],"model":"claude-haiku-4-5","stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":3,"cache_creation_input_tokens":0,"cache_read_input_tokens":0}}}}` + "\n" +
		`{"custom_id":"pdm-7002","result":{"type":"expired"}}` + "\n"

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "batch_results_001")
		w.Header().Set("Content-Type", "application/x-jsonlines")
		_, _ = w.Write([]byte(lines))
	}))
	defer ts.Close()

	iter, err := newTestClient(ts.URL).GetBatchResults(context.Background(), "batch_results_001")
	require.NoError(t, err)

	results, err := CollectBatchResults(iter)
	require.NoError(t, err)
	require.Len(t, results.Succeeded, 1)
	assert.Equal(t, "Looks good.", results.Succeeded["pdm-7001"].Text())
	assert.Equal(t, []BatchFailure{{CustomID: "pdm-7002", Type: "expired"}}, results.Failures)
}

func TestSDKClient_GetBatchResults_Error(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusNotFound, "not_found_error", "Batch not found")
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).GetBatchResults(context.Background(), "batch_missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: get batch results")
}
