package importing

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// UnknownColumnsPolicy decides what happens to file headers the config does
// not declare.
type UnknownColumnsPolicy string

const (
	// PolicyError fails the job when unknown columns are present.
	PolicyError UnknownColumnsPolicy = "error"
	// PolicyIgnore drops unknown cells silently.
	PolicyIgnore UnknownColumnsPolicy = "ignore"
	// PolicyCapture stores unknown cells into each row's extras.
	PolicyCapture UnknownColumnsPolicy = "capture"
)

// IsValid checks if the policy is known.
func (p UnknownColumnsPolicy) IsValid() bool {
	return p == PolicyError || p == PolicyIgnore || p == PolicyCapture
}

// Config is the per-job import configuration carried inside the stage event.
// The three maps go internal key -> file header.
type Config struct {
	Required map[string]string `json:"required"`
	Optional map[string]string `json:"optional"`
	// Extras maps template variable names to file headers.
	Extras map[string]string `json:"extras"`

	UnknownColumnsPolicy UnknownColumnsPolicy `json:"unknown_columns_policy"`
	StopOnRowError       bool                 `json:"stop_on_row_error"`
	MaxErrors            int                  `json:"max_errors"`
}

// Constraints are the static, per-import-type restrictions a handler imposes
// on its configs. Nil allowed-key slices mean unrestricted.
type Constraints struct {
	AllowedRequiredKeys []string
	AllowedOptionalKeys []string
	RequiredMustInclude []string
}

// ParseConfig decodes a raw config blob and applies defaults.
func ParseConfig(raw json.RawMessage, defaults Config) (*Config, error) {
	config := defaults
	if len(raw) > 0 {
		dec := json.NewDecoder(strings.NewReader(string(raw)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&config); err != nil {
			return nil, fmt.Errorf("malformed import config: %w", err)
		}
	}

	if config.Required == nil {
		config.Required = map[string]string{}
	}
	if config.Optional == nil {
		config.Optional = map[string]string{}
	}
	if config.Extras == nil {
		config.Extras = map[string]string{}
	}
	if config.UnknownColumnsPolicy == "" {
		config.UnknownColumnsPolicy = PolicyError
	}
	if config.MaxErrors <= 0 {
		config.MaxErrors = 500
	}
	return &config, nil
}

// Validate enforces structural rules plus the handler's constraints.
func (c *Config) Validate(constraints Constraints) error {
	if !c.UnknownColumnsPolicy.IsValid() {
		return fmt.Errorf("invalid unknown_columns_policy: %s", c.UnknownColumnsPolicy)
	}

	var overlap []string
	for key := range c.Required {
		if _, ok := c.Optional[key]; ok {
			overlap = append(overlap, key)
		}
	}
	if len(overlap) > 0 {
		sort.Strings(overlap)
		return fmt.Errorf("keys cannot be in both required and optional: %v", overlap)
	}

	if bad := disallowedKeys(c.Required, constraints.AllowedRequiredKeys); len(bad) > 0 {
		return fmt.Errorf("invalid required keys: %v", bad)
	}
	if bad := disallowedKeys(c.Optional, constraints.AllowedOptionalKeys); len(bad) > 0 {
		return fmt.Errorf("invalid optional keys: %v", bad)
	}

	var missing []string
	for _, key := range constraints.RequiredMustInclude {
		if _, ok := c.Required[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required keys: %v", missing)
	}

	return nil
}

func disallowedKeys(mapping map[string]string, allowed []string) []string {
	if allowed == nil {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, key := range allowed {
		set[key] = struct{}{}
	}
	var bad []string
	for key := range mapping {
		if _, ok := set[key]; !ok {
			bad = append(bad, key)
		}
	}
	sort.Strings(bad)
	return bad
}

// DeclaredHeaders returns every non-empty file header the config mentions.
func (c *Config) DeclaredHeaders() []string {
	seen := map[string]struct{}{}
	var headers []string
	for _, mapping := range []map[string]string{c.Required, c.Optional, c.Extras} {
		for _, header := range mapping {
			if header == "" {
				continue
			}
			if _, ok := seen[header]; ok {
				continue
			}
			seen[header] = struct{}{}
			headers = append(headers, header)
		}
	}
	return headers
}

// Canon canonicalizes a header for comparison: trim plus case-fold. Original
// casing is preserved everywhere user-facing.
func Canon(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
