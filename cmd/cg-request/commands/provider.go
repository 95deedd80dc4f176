package commands

import (
	"github.com/spf13/viper"

	"github.com/allendavis-developer/cg-request/internal/llm"
	"github.com/allendavis-developer/cg-request/internal/logger"
)

// buildProvider resolves the LLM provider from flags, config, and the
// environment. With nothing configured it auto-detects from API key env
// vars, falling back to local Ollama.
func buildProvider() (llm.Provider, error) {
	providerName := viper.GetString("provider")
	apiKey := viper.GetString("api_key")

	if providerName == "" {
		detected, detectedKey := llm.DetectProvider()
		providerName = detected
		if apiKey == "" {
			apiKey = detectedKey
		}
		logger.Debug("provider auto-detected", "provider", providerName)
	}

	model := viper.GetString("model")
	if model == "" {
		model = llm.GetDefaultModel(providerName)
	}

	cfg := llm.DefaultProviderConfig()
	cfg.APIKey = apiKey
	cfg.Model = model
	if baseURL := viper.GetString("base_url"); baseURL != "" {
		cfg.BaseURL = baseURL
	}

	logger.Debug("creating provider", "provider", providerName, "model", model)
	return llm.NewProvider(providerName, cfg)
}
