package adapters

import (
	"os"
	"strings"

	"github.com/Rajchodisetti/quotedash/internal/observ"
)

// SourceConfig selects and configures the live quote source.
type SourceConfig struct {
	Source         string // "alphavantage" | "offline"
	APIKeyEnv      string
	BaseURL        string
	TimeoutSeconds int
}

// NewLiveSource builds the configured live source. QUOTES in the environment
// overrides the configured name. Misconfiguration never fails: it degrades to
// OfflineSource, which makes every quote synthetic.
func NewLiveSource(config SourceConfig) LiveSource {
	source := strings.ToLower(strings.TrimSpace(config.Source))
	if env := os.Getenv("QUOTES"); env != "" {
		source = strings.ToLower(strings.TrimSpace(env))
		observ.Log("quotes_source_override", map[string]any{
			"config_source": config.Source,
			"env_override":  source,
		})
	}

	switch source {
	case "offline":
		observ.Log("quotes_source_created", map[string]any{"type": "offline"})
		return OfflineSource{}
	case SourceAlphaVantage, "":
		return newAlphaVantageOrOffline(config)
	default:
		observ.Log("quotes_source_fallback", map[string]any{
			"requested_source": source,
			"fallback_to":      "offline",
			"reason":           "unknown source type",
		})
		return OfflineSource{}
	}
}

func newAlphaVantageOrOffline(config SourceConfig) LiveSource {
	apiKey := ""
	if config.APIKeyEnv != "" {
		apiKey = os.Getenv(config.APIKeyEnv)
	}
	if apiKey == "" {
		observ.Log("quotes_source_fallback", map[string]any{
			"requested_source": SourceAlphaVantage,
			"fallback_to":      "offline",
			"reason":           "missing API key",
			"api_key_env":      config.APIKeyEnv,
		})
		return OfflineSource{}
	}

	av, err := NewAlphaVantageSource(AlphaVantageConfig{
		APIKey:         apiKey,
		BaseURL:        config.BaseURL,
		TimeoutSeconds: config.TimeoutSeconds,
	})
	if err != nil {
		observ.Log("quotes_source_fallback", map[string]any{
			"requested_source": SourceAlphaVantage,
			"fallback_to":      "offline",
			"reason":           err.Error(),
		})
		return OfflineSource{}
	}
	observ.Log("quotes_source_created", map[string]any{
		"type":     SourceAlphaVantage,
		"base_url": av.baseURL,
	})
	return av
}
