package analysistest

import (
	"bufio"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, ts *TestServer, path, body string) *http.Response {
	t.Helper()
	resp, err := ts.Client().Post(ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAnalyze_AcceptsThenConflicts(t *testing.T) {
	ts := NewTestServer(t)

	resp := postJSON(t, ts, "/api/v1/analysis/analyze", `{"stock_code":"600519","async_mode":true}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var accepted map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	taskID, _ := accepted["task_id"].(string)
	require.NotEmpty(t, taskID)

	resp = postJSON(t, ts, "/api/v1/analysis/analyze", `{"stock_code":"600519","async_mode":true}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var conflict map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&conflict))
	assert.Equal(t, taskID, conflict["task_id"])
	assert.Equal(t, "600519", conflict["stock_code"])
	assert.Equal(t, 2, ts.Submissions())

	require.NoError(t, ts.CompleteTask(taskID))
	resp = postJSON(t, ts, "/api/v1/analysis/analyze", `{"stock_code":"600519","async_mode":true}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode, "finished tasks do not block a new submission")
}

func TestAnalyze_RejectsMissingStockCode(t *testing.T) {
	ts := NewTestServer(t)

	resp := postJSON(t, ts, "/api/v1/analysis/analyze", `{"async_mode":true}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestStream_OpensWithConnectedAndPushesLifecycle(t *testing.T) {
	ts := NewTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/api/v1/analysis/tasks/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 64)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	next := func() string {
		select {
		case l := <-lines:
			return l
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for stream data")
			return ""
		}
	}

	assert.Equal(t, "event: connected", next())
	assert.True(t, strings.HasPrefix(next(), "data: "))
	assert.Equal(t, "", next())

	require.Eventually(t, func() bool { return ts.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)
	id := ts.AddTask("000001", "pending")
	require.NoError(t, ts.StartTask(id))

	assert.Equal(t, "event: task_started", next())
	data := strings.TrimPrefix(next(), "data: ")
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(data), &payload))
	assert.Equal(t, id, payload["task_id"])
	assert.Equal(t, "processing", payload["status"])
	assert.NotNil(t, payload["started_at"])

	ts.DropStreams()
	for range lines {
	}
	assert.Equal(t, 0, ts.Subscribers())
}

func TestStream_Reject(t *testing.T) {
	ts := NewTestServer(t)
	ts.RejectStreams(http.StatusServiceUnavailable)

	resp, err := ts.Client().Get(ts.URL + "/api/v1/analysis/tasks/stream")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	ts.AcceptStreams()
	assert.Equal(t, 1, ts.StreamOpens())
}
