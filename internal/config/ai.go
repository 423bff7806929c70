package config

import "os"

// GeminiModels defines which Gemini models to use for the two oracle tasks
type GeminiModels struct {
	// Classify judges one answer per turn, so it needs to be fast
	Classify string `json:"classify"`

	// Summarize produces the final profile narrative once per session,
	// so quality matters more than latency
	Summarize string `json:"summarize"`
}

// AIConfig holds all oracle-related configuration
type AIConfig struct {
	APIKey    string       `json:"-"` // Never serialize
	BaseURL   string       `json:"baseUrl"`
	Models    GeminiModels `json:"models"`
	TimeoutMS int          `json:"timeoutMs"`
}

// DefaultAIConfig returns the default oracle configuration
func DefaultAIConfig() *AIConfig {
	return &AIConfig{
		APIKey:  os.Getenv("GEMINI_API_KEY"),
		BaseURL: "https://generativelanguage.googleapis.com/v1beta/models",
		Models: GeminiModels{
			Classify:  getEnvOrDefault("GEMINI_MODEL_CLASSIFY", "gemini-2.5-flash-preview-05-20"),
			Summarize: getEnvOrDefault("GEMINI_MODEL_SUMMARIZE", "gemini-2.0-flash"),
		},
		TimeoutMS: 30000, // a classification must return within 30s or fail the turn
	}
}

// IsEnabled returns true if the oracle API is configured. When it is not,
// the deterministic offline evaluator is used instead.
func (c *AIConfig) IsEnabled() bool {
	return c.APIKey != ""
}

// ModelEndpoint returns the full endpoint for a given model
func (c *AIConfig) ModelEndpoint(model string) string {
	return c.BaseURL + "/" + model + ":generateContent"
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
