package domain

// AIProvider identifies the embedding provider
type AIProvider string

const (
	AIProviderOpenAI AIProvider = "openai"
	AIProviderOllama AIProvider = "ollama"
)

// RequiresAPIKey reports whether the provider needs an API key
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// EmbeddingSettings configures the embedding service
type EmbeddingSettings struct {
	Provider AIProvider `json:"provider"`
	Model    string     `json:"model"`
	APIKey   string     `json:"-"` // Never serialize to JSON
	BaseURL  string     `json:"base_url,omitempty"`

	// RequestsPerSecond limits calls to the provider; 0 disables limiting
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"`
}

// IsConfigured returns true if embedding settings are properly configured
func (e *EmbeddingSettings) IsConfigured() bool {
	if e.Provider == "" {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}
