package task

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusPending, true},
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusFailed, true},
		{StatusProcessing, StatusProcessing, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusPending, false},
		{StatusCompleted, StatusCompleted, true},
		{StatusCompleted, StatusFailed, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusFailed, StatusPending, false},
		{StatusFailed, StatusCompleted, false},
		{Status("queued"), StatusPending, false},
		{StatusPending, Status(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatus_Predicates(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.False(t, Status("running").Valid())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
}

func TestTask_Validate(t *testing.T) {
	valid := Task{TaskID: "t1", StockCode: "600519", Status: StatusPending, Progress: 0}
	assert.NoError(t, valid.Validate())

	missingID := valid
	missingID.TaskID = ""
	assert.Error(t, missingID.Validate())

	badStatus := valid
	badStatus.Status = "queued"
	assert.Error(t, badStatus.Validate())

	badProgress := valid
	badProgress.Progress = 101
	assert.Error(t, badProgress.Validate())
}

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"rfc3339", `"2024-05-01T09:30:00+08:00"`, time.Date(2024, 5, 1, 1, 30, 0, 0, time.UTC)},
		{"naive with micros", `"2024-05-01T09:30:00.123456"`, time.Date(2024, 5, 1, 9, 30, 0, 123456000, time.UTC)},
		{"naive seconds", `"2024-05-01T09:30:00"`, time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)},
		{"space separated", `"2024-05-01 09:30:00"`, time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.in), &ts))
			assert.True(t, tt.want.Equal(ts.Time), "got %s", ts.Time)
		})
	}

	t.Run("null and empty", func(t *testing.T) {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
		assert.True(t, ts.IsZero())
		require.NoError(t, json.Unmarshal([]byte(`""`), &ts))
		assert.True(t, ts.IsZero())
	})

	t.Run("garbage", func(t *testing.T) {
		var ts Timestamp
		assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
	})
}

func TestTask_DecodeEventPayload(t *testing.T) {
	payload := `{"taskId":"t1","stockCode":"600519","stockName":"Kweichow Moutai","status":"processing",` +
		`"progress":30,"reportType":"detailed","createdAt":"2024-05-01T09:30:00","startedAt":"2024-05-01T09:30:02"}`

	var got Task
	require.NoError(t, json.Unmarshal([]byte(payload), &got))
	assert.Equal(t, "t1", got.TaskID)
	assert.Equal(t, StatusProcessing, got.Status)
	assert.Equal(t, 30, got.Progress)
	require.NotNil(t, got.StartedAt)
	assert.Nil(t, got.CompletedAt)
	assert.NoError(t, got.Validate())
}
