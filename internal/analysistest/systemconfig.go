package analysistest

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// maskToken stands in for sensitive values in responses; sending it back
// keeps the stored value.
const maskToken = "******"

type configField struct {
	category  string
	dataType  string
	control   string
	sensitive bool
	options   []string
}

var configSchema = map[string]configField{
	"STOCK_LIST":       {category: "base", dataType: "list", control: "textarea"},
	"LLM_MODEL":        {category: "ai_model", dataType: "string", control: "select", options: []string{"default", "fast", "deep"}},
	"SCHEDULE_ENABLED": {category: "system", dataType: "boolean", control: "switch"},
	"API_TOKEN":        {category: "ai_model", dataType: "string", control: "password", sensitive: true},
}

type configUpdateRequest struct {
	Items []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"items" validate:"required,min=1"`
	ConfigVersion string `json:"config_version"`
	MaskToken     string `json:"mask_token"`
	ReloadNow     bool   `json:"reload_now"`
}

type configIssue struct {
	Key      string `json:"key"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

// ConfigVersion returns the current system configuration version.
func (s *Server) ConfigVersion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strconv.Itoa(s.configVersion)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	includeSchema := r.URL.Query().Get("include_schema") != "false"

	s.mu.Lock()
	keys := make([]string, 0, len(s.config))
	for k := range s.config {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]map[string]interface{}, 0, len(keys))
	for i, k := range keys {
		field := configSchema[k]
		value := s.config[k]
		if field.sensitive && value != "" {
			value = maskToken
		}
		item := map[string]interface{}{
			"key":              k,
			"value":            value,
			"raw_value_exists": s.config[k] != "",
			"is_masked":        field.sensitive,
		}
		if includeSchema {
			options := field.options
			if options == nil {
				options = []string{}
			}
			item["schema"] = map[string]interface{}{
				"key":           k,
				"category":      field.category,
				"data_type":     field.dataType,
				"ui_control":    field.control,
				"is_sensitive":  field.sensitive,
				"is_required":   false,
				"is_editable":   true,
				"options":       options,
				"validation":    map[string]interface{}{},
				"display_order": i,
			}
		}
		items = append(items, item)
	}
	version := strconv.Itoa(s.configVersion)
	s.mu.Unlock()

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":          items,
		"config_version": version,
	})
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req configUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, http.StatusUnprocessableEntity, "invalid_request", err.Error(), nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := strconv.Itoa(s.configVersion)
	if req.ConfigVersion != "" && req.ConfigVersion != current {
		s.respondError(w, r, http.StatusConflict, "config_version_conflict",
			"configuration has changed, please reload and retry",
			map[string]interface{}{"current_config_version": current})
		return
	}

	mask := req.MaskToken
	if mask == "" {
		mask = maskToken
	}

	issues := []configIssue{}
	for _, item := range req.Items {
		field, known := configSchema[item.Key]
		switch {
		case !known:
			issues = append(issues, configIssue{Key: item.Key, Code: "unknown_key", Message: "unknown configuration key", Severity: "error"})
		case field.dataType == "boolean" && item.Value != "true" && item.Value != "false":
			issues = append(issues, configIssue{Key: item.Key, Code: "invalid_type", Message: "value must be a boolean", Severity: "error", Expected: "boolean", Actual: item.Value})
		case len(field.options) > 0 && !contains(field.options, item.Value):
			issues = append(issues, configIssue{Key: item.Key, Code: "invalid_option", Message: "value is not an allowed option", Severity: "error", Expected: strings.Join(field.options, "|"), Actual: item.Value})
		}
	}
	if len(issues) > 0 {
		s.respondError(w, r, http.StatusBadRequest, "validation_failed",
			"system configuration validation failed",
			map[string]interface{}{"issues": issues})
		return
	}

	updated := 0
	for _, item := range req.Items {
		if configSchema[item.Key].sensitive && item.Value == mask {
			continue
		}
		if s.config[item.Key] != item.Value {
			s.config[item.Key] = item.Value
			updated++
		}
	}
	if updated > 0 {
		s.configVersion++
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"config_version": strconv.Itoa(s.configVersion),
		"updated_count":  updated,
		"issues":         issues,
	})
}

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}
