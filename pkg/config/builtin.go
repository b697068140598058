package config

import (
	"sync"
)

// BuiltinConfig holds all built-in configuration data.
// This provides default connections, MCP tool servers, pollers, LLM
// providers, and masking patterns.
type BuiltinConfig struct {
	Connections     map[string]ConnectionConfig
	MCPServers      map[string]MCPServerConfig
	Pollers         map[string]PollerConfig
	LLMProviders    map[string]LLMProviderConfig
	MaskingPatterns map[string]MaskingPattern
	PatternGroups   map[string][]string
	CodeMaskers     []string
}

var (
	builtinConfig     *BuiltinConfig
	builtinConfigOnce sync.Once
)

// GetBuiltinConfig returns the singleton built-in configuration (thread-safe, lazy-initialized)
func GetBuiltinConfig() *BuiltinConfig {
	builtinConfigOnce.Do(initBuiltinConfig)
	return builtinConfig
}

func initBuiltinConfig() {
	builtinConfig = &BuiltinConfig{
		Connections:     initBuiltinConnections(),
		MCPServers:      initBuiltinMCPServers(),
		Pollers:         initBuiltinPollers(),
		LLMProviders:    initBuiltinLLMProviders(),
		MaskingPatterns: initBuiltinMaskingPatterns(),
		PatternGroups:   initBuiltinPatternGroups(),
		CodeMaskers:     initBuiltinCodeMaskers(),
	}
}

// initBuiltinConnections returns no built-in connections: every Connection
// (C1) is a user-provided endpoint, there is no sensible default source.
func initBuiltinConnections() map[string]ConnectionConfig {
	return map[string]ConnectionConfig{}
}

// initBuiltinPollers returns the default cadence for each known handler kind (C5).
func initBuiltinPollers() map[string]PollerConfig {
	return map[string]PollerConfig{
		"git":        *DefaultPollerConfig(),
		"jira":       *DefaultPollerConfig(),
		"confluence": *DefaultPollerConfig(),
		"mail":       *DefaultPollerConfig(),
	}
}

// initBuiltinMCPServers returns the built-in MCP tool servers the plan
// executor (C10) resolves tool calls against: RAG_SEARCH, TRAVERSE, PURGE
// front the external knowledge-base service; FINALIZER renders the
// user-facing answer during the finalization pass.
func initBuiltinMCPServers() map[string]MCPServerConfig {
	return map[string]MCPServerConfig{
		"rag-search": {
			Transport: TransportConfig{
				Type: TransportTypeHTTP,
				URL:  "{{.KB_SERVICE_URL}}/retrieve",
			},
			Instructions: "Search the knowledge base for documents relevant to a query, scoped to a project.",
		},
		"traverse": {
			Transport: TransportConfig{
				Type: TransportTypeHTTP,
				URL:  "{{.KB_SERVICE_URL}}/traverse",
			},
			Instructions: "Walk the symbol/commit graph from a known node (e.g. a class or file) to its neighbors.",
		},
		"purge": {
			Transport: TransportConfig{
				Type: TransportTypeHTTP,
				URL:  "{{.KB_SERVICE_URL}}/purge",
			},
			Instructions: "Delete a project's indexed knowledge, used by administrative maintenance steps.",
		},
		"finalizer": {
			Transport: TransportConfig{
				Type: TransportTypeStdio,
			},
			Instructions: "Render the plan's terminal state into a user-facing answer in the original question's language.",
		},
	}
}

func initBuiltinLLMProviders() map[string]LLMProviderConfig {
	return map[string]LLMProviderConfig{
		"anthropic-default": {
			Type:                LLMProviderTypeAnthropic,
			Model:               "claude-sonnet-4-20250514",
			APIKeyEnv:           "ANTHROPIC_API_KEY",
			MaxToolResultTokens: 150000, // Conservative for 200K context
		},
		"openai-default": {
			Type:                LLMProviderTypeOpenAI,
			Model:               "gpt-5",
			APIKeyEnv:           "OPENAI_API_KEY",
			MaxToolResultTokens: 250000, // Conservative for 272K context
		},
		"bedrock-default": {
			Type:                LLMProviderTypeBedrock,
			Model:               "anthropic.claude-sonnet-4-20250514-v1:0",
			APIKeyEnv:           "", // Bedrock uses the default AWS credential chain
			MaxToolResultTokens: 150000,
		},
	}
}

// initBuiltinMaskingPatterns returns the regex patterns applied to ingested
// content (and tool results) before they reach storage or the vector store.
func initBuiltinMaskingPatterns() map[string]MaskingPattern {
	return map[string]MaskingPattern{
		"api_key": {
			Pattern:     `(?i)(?:api[_-]?key|apikey|key)["\']?\s*[:=]\s*["\']?([A-Za-z0-9_\-]{20,})["\']?`,
			Replacement: `"api_key": "[MASKED_API_KEY]"`,
			Description: "API keys",
		},
		"password": {
			Pattern:     `(?i)(?:password|pwd|pass)["\']?\s*[:=]\s*["\']?([^"\'\s\n]{6,})["\']?`,
			Replacement: `"password": "[MASKED_PASSWORD]"`,
			Description: "Passwords",
		},
		"certificate": {
			Pattern:     `(?s)-----BEGIN [A-Z ]+-----.*?-----END [A-Z ]+-----`,
			Replacement: `[MASKED_CERTIFICATE]`,
			Description: "SSL/TLS certificates",
		},
		"token": {
			Pattern:     `(?i)(?:token|bearer|jwt)["\']?\s*[:=]\s*["\']?([A-Za-z0-9_\-\.]{20,})["\']?`,
			Replacement: `"token": "[MASKED_TOKEN]"`,
			Description: "Access tokens",
		},
		"email": {
			Pattern:     `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9]+(?:[.-][A-Za-z0-9]+)*\.[A-Za-z]{2,63}\b`,
			Replacement: `[MASKED_EMAIL]`,
			Description: "Email addresses",
		},
		"ssh_key": {
			Pattern:     `ssh-(?:rsa|dss|ed25519|ecdsa)\s+[A-Za-z0-9+/=]+`,
			Replacement: `[MASKED_SSH_KEY]`,
			Description: "SSH public keys",
		},
		"private_key": {
			Pattern:     `(?i)(?:private[_-]?key)["\']?\s*[:=]\s*["\']?([A-Za-z0-9_\-\.]{20,})["\']?`,
			Replacement: `"private_key": "[MASKED_PRIVATE_KEY]"`,
			Description: "Private keys",
		},
		"secret_key": {
			Pattern:     `(?i)(?:secret[_-]?key)["\']?\s*[:=]\s*["\']?([A-Za-z0-9_\-\.]{20,})["\']?`,
			Replacement: `"secret_key": "[MASKED_SECRET_KEY]"`,
			Description: "Secret keys",
		},
		"aws_access_key": {
			Pattern:     `(?i)(?:aws[_-]?access[_-]?key[_-]?id)["\']?\s*[:=]\s*["\']?(AKIA[A-Z0-9]{16})["\']?`,
			Replacement: `"aws_access_key_id": "[MASKED_AWS_KEY]"`,
			Description: "AWS access keys",
		},
		"aws_secret_key": {
			Pattern:     `(?i)(?:aws[_-]?secret[_-]?access[_-]?key)["\']?\s*[:=]\s*["\']?([A-Za-z0-9/+=]{40})["\']?`,
			Replacement: `"aws_secret_access_key": "[MASKED_AWS_SECRET]"`,
			Description: "AWS secret keys",
		},
		"github_token": {
			Pattern:     `(?i)(?:github[_-]?token|gh[ps]_[A-Za-z0-9_]{36,255})`,
			Replacement: `[MASKED_GITHUB_TOKEN]`,
			Description: "GitHub tokens",
		},
		"slack_token": {
			Pattern:     `(?i)xox[baprs]-[A-Za-z0-9-]{10,72}`,
			Replacement: `[MASKED_SLACK_TOKEN]`,
			Description: "Slack tokens",
		},
	}
}

// initBuiltinPatternGroups returns predefined groups of masking patterns,
// selected by Defaults.IngestMasking.PatternGroup.
func initBuiltinPatternGroups() map[string][]string {
	return map[string][]string{
		"basic":    {"api_key", "password"},
		"secrets":  {"api_key", "password", "token", "private_key", "secret_key"},
		"security": {"api_key", "password", "token", "certificate", "email", "ssh_key"},
		"cloud":    {"aws_access_key", "aws_secret_key", "api_key", "token"},
		"all": {
			"api_key", "password", "certificate", "email", "token", "ssh_key",
			"private_key", "secret_key", "aws_access_key", "aws_secret_key",
			"github_token", "slack_token",
		},
	}
}

// initBuiltinCodeMaskers returns names of code-based maskers for complex
// masking scenarios that regex patterns can't express cleanly.
// Each name must match a Masker registered in pkg/masking/service.go.
func initBuiltinCodeMaskers() []string {
	return []string{}
}
