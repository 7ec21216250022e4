package config

// Default values applied by [ApplyDefaults].
const (
	DefaultSTTProvider = "deepgram"
	DefaultModel       = "nova-2"
	DefaultLanguage    = "en-US"
	DefaultFormat      = "vtt"
)

// apiKeyEnv names the environment variable consulted for each provider's
// API key when none is configured.
var apiKeyEnv = map[string]string{
	"deepgram": "DEEPGRAM_API_KEY",
	"openai":   "OPENAI_API_KEY",
}

// APIKeyEnv returns the environment variable that holds the API key for the
// named provider, or "" when the provider has none.
func APIKeyEnv(provider string) string {
	return apiKeyEnv[provider]
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields of cfg in place. Model and language
// defaults only apply to the Deepgram provider; other providers pick their
// own.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	stt := &cfg.Providers.STT
	if stt.Name == "" {
		stt.Name = DefaultSTTProvider
	}
	if stt.Name == "deepgram" {
		if stt.Model == "" {
			stt.Model = DefaultModel
		}
		if stt.OptionString("language") == "" {
			if stt.Options == nil {
				stt.Options = make(map[string]any)
			}
			stt.Options["language"] = DefaultLanguage
		}
	}
	if len(cfg.Output.Formats) == 0 {
		cfg.Output.Formats = []string{DefaultFormat}
	}
}
