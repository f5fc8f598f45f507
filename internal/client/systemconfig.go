package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const systemConfigPath = "/api/v1/system/config"

// ConfigFieldSchema describes one editable configuration key.
type ConfigFieldSchema struct {
	Key          string                 `json:"key"`
	Title        string                 `json:"title,omitempty"`
	Description  string                 `json:"description,omitempty"`
	Category     string                 `json:"category"`
	DataType     string                 `json:"dataType"`
	UIControl    string                 `json:"uiControl"`
	IsSensitive  bool                   `json:"isSensitive"`
	IsRequired   bool                   `json:"isRequired"`
	IsEditable   bool                   `json:"isEditable"`
	DefaultValue *string                `json:"defaultValue,omitempty"`
	Options      []string               `json:"options"`
	Validation   map[string]interface{} `json:"validation"`
	DisplayOrder int                    `json:"displayOrder"`
}

// ConfigItem is one configuration value. Sensitive values arrive masked.
type ConfigItem struct {
	Key            string             `json:"key"`
	Value          string             `json:"value"`
	RawValueExists bool               `json:"rawValueExists"`
	IsMasked       bool               `json:"isMasked"`
	Schema         *ConfigFieldSchema `json:"schema,omitempty"`
}

// SystemConfig is the server's current configuration and its version.
type SystemConfig struct {
	Items         []ConfigItem `json:"items"`
	ConfigVersion string       `json:"configVersion"`
}

// ConfigUpdateItem sets one key.
type ConfigUpdateItem struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value"`
}

// ConfigUpdate replaces the listed keys. ConfigVersion, when set, makes the
// update conditional on the server still being at that version.
type ConfigUpdate struct {
	Items         []ConfigUpdateItem `validate:"required,min=1,dive"`
	ConfigVersion string
	MaskToken     string
	ReloadNow     bool
}

type configUpdateBody struct {
	Items         []ConfigUpdateItem `json:"items"`
	ConfigVersion string             `json:"config_version,omitempty"`
	MaskToken     string             `json:"mask_token,omitempty"`
	ReloadNow     bool               `json:"reload_now,omitempty"`
}

// ConfigUpdateResult reports what the server applied.
type ConfigUpdateResult struct {
	Success       bool                    `json:"success"`
	ConfigVersion string                  `json:"configVersion"`
	UpdatedCount  int                     `json:"updatedCount"`
	Issues        []ConfigValidationIssue `json:"issues"`
}

// SystemConfig fetches the server configuration, with field schemas when
// includeSchema is set.
func (c *Client) SystemConfig(ctx context.Context, includeSchema bool) (*SystemConfig, error) {
	query := url.Values{"include_schema": {strconv.FormatBool(includeSchema)}}

	var cfg SystemConfig
	if err := c.do(ctx, http.MethodGet, systemConfigPath, query, nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UpdateSystemConfig applies update. A 400 answer becomes
// *ConfigValidationError and a 409 answer *ConfigVersionConflictError.
func (c *Client) UpdateSystemConfig(ctx context.Context, update ConfigUpdate) (*ConfigUpdateResult, error) {
	if err := validate.Struct(update); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	body := configUpdateBody{
		Items:         update.Items,
		ConfigVersion: update.ConfigVersion,
		MaskToken:     update.MaskToken,
		ReloadNow:     update.ReloadNow,
	}

	var result ConfigUpdateResult
	err := c.do(ctx, http.MethodPut, systemConfigPath, nil, body, &result)
	if err == nil {
		c.logger.Info("system configuration updated",
			"config_version", result.ConfigVersion,
			"updated_count", result.UpdatedCount)
		return &result, nil
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return nil, err
	}

	switch httpErr.StatusCode {
	case http.StatusBadRequest:
		var payload struct {
			Issues []ConfigValidationIssue `json:"issues"`
		}
		decodeErrorBody(httpErr.Body, &payload)
		return nil, &ConfigValidationError{Issues: payload.Issues}
	case http.StatusConflict:
		var payload struct {
			CurrentConfigVersion string `json:"currentConfigVersion"`
		}
		decodeErrorBody(httpErr.Body, &payload)
		return nil, &ConfigVersionConflictError{CurrentConfigVersion: payload.CurrentConfigVersion}
	}
	return nil, err
}
