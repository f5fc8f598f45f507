package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/tickerwatch/internal/config"
	"github.com/phrazzld/tickerwatch/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findItem(items []ConfigItem, key string) (ConfigItem, bool) {
	for _, item := range items {
		if item.Key == key {
			return item, true
		}
	}
	return ConfigItem{}, false
}

func TestSystemConfig_Get(t *testing.T) {
	c, ts := newTestClient(t)
	ctx := context.Background()

	cfg, err := c.SystemConfig(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, ts.ConfigVersion(), cfg.ConfigVersion)

	token, ok := findItem(cfg.Items, "API_TOKEN")
	require.True(t, ok)
	assert.True(t, token.IsMasked)
	assert.True(t, token.RawValueExists)
	assert.NotEqual(t, "sk-test-secret", token.Value)
	require.NotNil(t, token.Schema)
	assert.True(t, token.Schema.IsSensitive)
	assert.Equal(t, "password", token.Schema.UIControl)

	model, ok := findItem(cfg.Items, "LLM_MODEL")
	require.True(t, ok)
	require.NotNil(t, model.Schema)
	assert.Equal(t, []string{"default", "fast", "deep"}, model.Schema.Options)

	cfg, err = c.SystemConfig(ctx, false)
	require.NoError(t, err)
	for _, item := range cfg.Items {
		assert.Nil(t, item.Schema)
	}
}

func TestSystemConfig_Update(t *testing.T) {
	c, ts := newTestClient(t)
	ctx := context.Background()
	version := ts.ConfigVersion()

	result, err := c.UpdateSystemConfig(ctx, ConfigUpdate{
		Items:         []ConfigUpdateItem{{Key: "LLM_MODEL", Value: "deep"}, {Key: "API_TOKEN", Value: "******"}},
		ConfigVersion: version,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.UpdatedCount, "the mask token keeps the stored secret")
	assert.NotEqual(t, version, result.ConfigVersion)

	// the old version is now stale
	_, err = c.UpdateSystemConfig(ctx, ConfigUpdate{
		Items:         []ConfigUpdateItem{{Key: "LLM_MODEL", Value: "fast"}},
		ConfigVersion: version,
	})
	var conflict *ConfigVersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, result.ConfigVersion, conflict.CurrentConfigVersion)
}

func TestSystemConfig_UpdateValidationIssues(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.UpdateSystemConfig(context.Background(), ConfigUpdate{
		Items: []ConfigUpdateItem{
			{Key: "SCHEDULE_ENABLED", Value: "sometimes"},
			{Key: "NOPE", Value: "x"},
		},
	})
	var invalid *ConfigValidationError
	require.ErrorAs(t, err, &invalid)
	require.Len(t, invalid.Issues, 2)
	assert.Equal(t, "SCHEDULE_ENABLED", invalid.Issues[0].Key)
	assert.Equal(t, "invalid_type", invalid.Issues[0].Code)
	assert.Equal(t, "sometimes", invalid.Issues[0].Actual)
	assert.Equal(t, "unknown_key", invalid.Issues[1].Code)
	assert.Contains(t, err.Error(), "SCHEDULE_ENABLED")
}

func TestSystemConfig_UpdateRequestValidation(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, err := c.UpdateSystemConfig(ctx, ConfigUpdate{})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = c.UpdateSystemConfig(ctx, ConfigUpdate{Items: []ConfigUpdateItem{{Value: "x"}}})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestSystemConfig_ErrorsWithoutBody(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "validation",
			status: http.StatusBadRequest,
			check: func(t *testing.T, err error) {
				var invalid *ConfigValidationError
				require.ErrorAs(t, err, &invalid)
				assert.Empty(t, invalid.Issues)
			},
		},
		{
			name:   "conflict",
			status: http.StatusConflict,
			check: func(t *testing.T, err error) {
				var conflict *ConfigVersionConflictError
				require.ErrorAs(t, err, &conflict)
				assert.Empty(t, conflict.CurrentConfigVersion)
			},
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				var httpErr *HTTPError
				require.ErrorAs(t, err, &httpErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c, err := New(config.APIConfig{BaseURL: srv.URL}, logger.Discard())
			require.NoError(t, err)

			_, err = c.UpdateSystemConfig(context.Background(), ConfigUpdate{
				Items: []ConfigUpdateItem{{Key: "LLM_MODEL", Value: "fast"}},
			})
			tt.check(t, err)
		})
	}
}
