package config

import (
	"os"
	"strconv"
)

// envMapping maps environment variables to configuration paths.
// Sensitive credentials arrive only through the environment; they have
// no file-layer equivalent.
func envMapping() map[string]string {
	return map[string]string{
		"DRAFTPILOT_PROVIDER":      "ai.provider",
		"DRAFTPILOT_MODEL":         "ai.model",
		"DRAFTPILOT_MAX_TOKENS":    "ai.maxTokens",
		"DRAFTPILOT_TEMPERATURE":   "ai.temperature",
		"DRAFTPILOT_STEP_DELAY":    "ai.stepDelay",
		"DRAFTPILOT_FORMAT":        "ai.format",
		"DRAFTPILOT_LOG_LEVEL":     "logging.level",
		"DRAFTPILOT_LOG_FILE":      "logging.file",
		"DRAFTPILOT_ANTHROPIC_KEY": "ai.anthropicApiKey",
		"DRAFTPILOT_OPENAI_KEY":    "ai.openaiApiKey",
		"DRAFTPILOT_GEMINI_KEY":    "ai.geminiApiKey",
	}
}

// loadEnv reads mapped environment variables into a layer. Empty
// string values are valid values, not unset.
func loadEnv() map[string]any {
	layer := make(map[string]any)
	for env, path := range envMapping() {
		if val, ok := os.LookupEnv(env); ok {
			setPath(layer, path, parseEnvValue(val))
		}
	}
	return layer
}

// parseEnvValue converts an environment string to the closest typed
// value: bool, integer, float, then string.
func parseEnvValue(val string) any {
	switch val {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(val, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(val, 64); err == nil {
		return f
	}
	return val
}
