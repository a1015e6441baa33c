package rag

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError reports invalid or incomplete configuration: a missing
// credential, an unsupported strategy type, a strategy parameter left out.
// Hint always carries a remediation step the operator can act on.
type ConfigurationError struct {
	Message string
	Hint    string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Hint != "" {
		return e.Message + "\n" + e.Hint
	}
	return e.Message
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ValidationError reports a resource that failed pre-ingestion validation.
type ValidationError struct {
	URL    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("resource %s failed validation: %s", e.URL, e.Reason)
}

// ProcessingError reports a load or split failure for a resource when the
// skip-invalid-docs policy is off.
type ProcessingError struct {
	URL string
	Err error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("failed to process resource %s: %v", e.URL, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// classifyInitError turns an embedding construction failure into a
// ConfigurationError with provider-specific remediation. Callers never see
// the raw provider error alone.
func classifyInitError(err error, providerType, model string) *ConfigurationError {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "openai_api_key") || (strings.Contains(msg, "openai") && strings.Contains(msg, "api")):
		return &ConfigurationError{
			Message: "OpenAI API key is required for openai embeddings.",
			Hint: "Solutions:\n" +
				"  1. Set the environment variable: export OPENAI_API_KEY='your-key-here'\n" +
				"  2. Set embedding.api_key in the config file\n" +
				"  3. Switch to a different embedding type (ollama needs no key)",
			Err: err,
		}
	case strings.Contains(msg, "azure"):
		return &ConfigurationError{
			Message: "Azure OpenAI configuration is incomplete.",
			Hint:    "Required: endpoint, API key and API version. Check your configuration or use a different profile.",
			Err:     err,
		}
	case strings.Contains(msg, "cohere") && strings.Contains(msg, "api"):
		return &ConfigurationError{
			Message: "Cohere API key is required for cohere embeddings.",
			Hint:    "Set the environment variable: export COHERE_API_KEY='your-key-here'",
			Err:     err,
		}
	case strings.Contains(msg, "gemini") || (strings.Contains(msg, "google") && strings.Contains(msg, "api")):
		return &ConfigurationError{
			Message: "Google API key is required for google embeddings.",
			Hint:    "Set the environment variable: export GEMINI_API_KEY='your-key-here'",
			Err:     err,
		}
	case strings.Contains(msg, "pulling") || strings.Contains(msg, "connection refused") && strings.Contains(msg, "11434"):
		return &ConfigurationError{
			Message: fmt.Sprintf("Ollama is unavailable or the model %q is not present.", model),
			Hint:    "Start the server (ollama serve) and pull the model (ollama pull " + model + "), or set embedding.base_url to a reachable host.",
			Err:     err,
		}
	default:
		return &ConfigurationError{
			Message: fmt.Sprintf("Failed to initialize %s embeddings.", providerType),
			Hint:    fmt.Sprintf("Check your embedding configuration. Original error: %v", err),
			Err:     err,
		}
	}
}
