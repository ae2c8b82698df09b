package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ProviderSettings describes one model provider in the providers file.
type ProviderSettings struct {
	APIKey  string `json:"apiKey,omitempty"`
	BaseURL string `json:"baseUrl,omitempty"`
	Model   string `json:"model,omitempty"`
}

// ProvidersFile is the optional on-disk provider override, hot-reloaded when
// the file changes. Empty fields fall back to environment configuration.
type ProvidersFile struct {
	Primary  ProviderSettings `json:"primary"`
	Fallback ProviderSettings `json:"fallback"`
}

// LoadProviders loads provider overrides from a JSON file.
func LoadProviders(filePath string) (*ProvidersFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read providers file: %w", err)
	}

	var pf ProvidersFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse providers JSON: %w", err)
	}

	return &pf, nil
}

// Apply overlays non-empty override fields onto the base configuration.
func (pf *ProvidersFile) Apply(cfg *Config) {
	if pf.Primary.APIKey != "" {
		cfg.GeminiAPIKey = pf.Primary.APIKey
	}
	if pf.Primary.Model != "" {
		cfg.GeminiModel = pf.Primary.Model
	}
	if pf.Fallback.APIKey != "" {
		cfg.OpenAIAPIKey = pf.Fallback.APIKey
	}
	if pf.Fallback.BaseURL != "" {
		cfg.OpenAIBaseURL = pf.Fallback.BaseURL
	}
	if pf.Fallback.Model != "" {
		cfg.OpenAIModel = pf.Fallback.Model
	}
}
