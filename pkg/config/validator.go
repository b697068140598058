package config

import (
	"fmt"
	"os"
)

// Validator validates configuration comprehensively with clear error messages
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at first error)
func (v *Validator) ValidateAll() error {
	// Validate in order: queue → connections → pollers → MCP servers → LLM providers → defaults
	// This ensures dependencies are validated before dependents

	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue validation failed: %w", err)
	}

	if err := v.validateConnections(); err != nil {
		return fmt.Errorf("connection validation failed: %w", err)
	}

	if err := v.validatePollers(); err != nil {
		return fmt.Errorf("poller validation failed: %w", err)
	}

	if err := v.validateMCPServers(); err != nil {
		return fmt.Errorf("MCP server validation failed: %w", err)
	}

	if err := v.validateLLMProviders(); err != nil {
		return fmt.Errorf("LLM provider validation failed: %w", err)
	}

	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}

	if err := v.validateRetention(); err != nil {
		return fmt.Errorf("retention validation failed: %w", err)
	}

	if err := v.validateSlack(); err != nil {
		return fmt.Errorf("slack validation failed: %w", err)
	}

	return nil
}

func (v *Validator) validateQueue() error {
	q := v.cfg.Queue
	if q == nil {
		return fmt.Errorf("queue configuration is nil")
	}

	if q.WorkerCount < 1 || q.WorkerCount > 50 {
		return fmt.Errorf("worker_count must be between 1 and 50, got %d", q.WorkerCount)
	}
	if q.MaxConcurrentItems < 1 {
		return fmt.Errorf("max_concurrent_items must be at least 1, got %d", q.MaxConcurrentItems)
	}
	if q.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", q.PollInterval)
	}
	if q.PollIntervalJitter < 0 {
		return fmt.Errorf("poll_interval_jitter must be non-negative, got %v", q.PollIntervalJitter)
	}
	if q.PollIntervalJitter >= q.PollInterval {
		return fmt.Errorf("poll_interval_jitter must be less than poll_interval, got jitter=%v interval=%v", q.PollIntervalJitter, q.PollInterval)
	}
	if q.LeaseTimeout <= 0 {
		return fmt.Errorf("lease_timeout must be positive, got %v", q.LeaseTimeout)
	}
	if q.GracefulShutdownTimeout <= 0 {
		return fmt.Errorf("graceful_shutdown_timeout must be positive, got %v", q.GracefulShutdownTimeout)
	}
	if q.OrphanDetectionInterval <= 0 {
		return fmt.Errorf("orphan_detection_interval must be positive, got %v", q.OrphanDetectionInterval)
	}
	if q.OrphanDetectionInterval >= q.LeaseTimeout {
		return fmt.Errorf("orphan_detection_interval must be less than lease_timeout to catch stale leases promptly, got interval=%v lease=%v", q.OrphanDetectionInterval, q.LeaseTimeout)
	}
	if q.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", q.MaxAttempts)
	}

	return nil
}

func (v *Validator) validateConnections() error {
	for name, conn := range v.cfg.ConnectionRegistry.GetAll() {
		if conn.Kind == "" {
			return NewValidationError("connection", name, "kind", fmt.Errorf("required"))
		}
		if conn.BaseURL == "" {
			return NewValidationError("connection", name, "base_url", fmt.Errorf("required"))
		}
		if !AuthType(conn.AuthType).IsValid() {
			return NewValidationError("connection", name, "auth_type", fmt.Errorf("invalid auth type: %s", conn.AuthType))
		}
		if conn.ClientID == "" {
			return NewValidationError("connection", name, "client_id", fmt.Errorf("required"))
		}
		if conn.CredentialsEnv == "" {
			return NewValidationError("connection", name, "credentials_env", fmt.Errorf("required"))
		}
		if value := os.Getenv(conn.CredentialsEnv); value == "" {
			return NewValidationError("connection", name, "credentials_env", fmt.Errorf("environment variable %s is not set", conn.CredentialsEnv))
		}
	}

	return nil
}

func (v *Validator) validatePollers() error {
	for kind, poller := range v.cfg.PollerRegistry.GetAll() {
		if poller.PollingInterval <= 0 {
			return NewValidationError("poller", kind, "polling_interval", fmt.Errorf("must be positive"))
		}
		if poller.InitialDelay < 0 {
			return NewValidationError("poller", kind, "initial_delay", fmt.Errorf("must be non-negative"))
		}
		if poller.CycleDelay < 0 {
			return NewValidationError("poller", kind, "cycle_delay", fmt.Errorf("must be non-negative"))
		}
	}

	return nil
}

func (v *Validator) validateDefaults() error {
	defaults := v.cfg.Defaults
	if defaults == nil {
		return nil
	}

	// Validate default LLM provider reference if specified
	if defaults.LLMProvider != "" && !v.cfg.LLMProviderRegistry.Has(defaults.LLMProvider) {
		return NewValidationError("defaults", "", "llm_provider",
			fmt.Errorf("LLM provider '%s' not found", defaults.LLMProvider))
	}

	// Validate ingest masking configuration
	if defaults.IngestMasking != nil && defaults.IngestMasking.Enabled {
		builtin := GetBuiltinConfig()
		groupName := defaults.IngestMasking.PatternGroup
		if groupName == "" {
			return NewValidationError("defaults", "", "ingest_masking.pattern_group",
				fmt.Errorf("pattern_group is required when ingest masking is enabled"))
		}
		if _, exists := builtin.PatternGroups[groupName]; !exists {
			return NewValidationError("defaults", "", "ingest_masking.pattern_group",
				fmt.Errorf("pattern group '%s' not found in built-in groups", groupName))
		}
	}

	return nil
}

func (v *Validator) validateMCPServers() error {
	builtin := GetBuiltinConfig()

	for serverID, server := range v.cfg.MCPServerRegistry.GetAll() {
		// Validate transport type
		if !server.Transport.Type.IsValid() {
			return NewValidationError("mcp_server", serverID, "transport.type", fmt.Errorf("invalid transport type: %s", server.Transport.Type))
		}

		// Validate transport-specific fields
		switch server.Transport.Type {
		case TransportTypeStdio:
			if server.Transport.Command == "" {
				return NewValidationError("mcp_server", serverID, "transport.command", fmt.Errorf("command required for stdio transport"))
			}

		case TransportTypeHTTP, TransportTypeSSE:
			if server.Transport.URL == "" {
				return NewValidationError("mcp_server", serverID, "transport.url", fmt.Errorf("url required for %s transport", server.Transport.Type))
			}
		}

		// Validate data masking configuration
		if server.DataMasking != nil && server.DataMasking.Enabled {
			// Validate pattern groups reference built-in patterns
			for _, groupName := range server.DataMasking.PatternGroups {
				if _, exists := builtin.PatternGroups[groupName]; !exists {
					return NewValidationError("mcp_server", serverID, "data_masking.pattern_groups", fmt.Errorf("pattern group '%s' not found", groupName))
				}
			}

			// Validate individual patterns reference built-in patterns
			for _, patternName := range server.DataMasking.Patterns {
				if _, exists := builtin.MaskingPatterns[patternName]; !exists {
					return NewValidationError("mcp_server", serverID, "data_masking.patterns", fmt.Errorf("pattern '%s' not found", patternName))
				}
			}

			// Validate custom patterns have required fields
			for i, pattern := range server.DataMasking.CustomPatterns {
				if pattern.Pattern == "" {
					return NewValidationError("mcp_server", serverID, fmt.Sprintf("data_masking.custom_patterns[%d].pattern", i), fmt.Errorf("pattern required"))
				}
				if pattern.Replacement == "" {
					return NewValidationError("mcp_server", serverID, fmt.Sprintf("data_masking.custom_patterns[%d].replacement", i), fmt.Errorf("replacement required"))
				}
			}
		}

		// Validate summarization configuration
		if server.Summarization != nil && server.Summarization.Enabled {
			if server.Summarization.SizeThresholdTokens < 100 {
				return NewValidationError("mcp_server", serverID, "summarization.size_threshold_tokens", fmt.Errorf("must be at least 100"))
			}
			if server.Summarization.SummaryMaxTokenLimit > 0 && server.Summarization.SummaryMaxTokenLimit < 50 {
				return NewValidationError("mcp_server", serverID, "summarization.summary_max_token_limit", fmt.Errorf("must be at least 50 if specified"))
			}
		}
	}

	return nil
}

func (v *Validator) validateLLMProviders() error {
	// Collect all LLM providers referenced by defaults/plan-executor config
	referencedProviders := v.collectReferencedLLMProviders()

	for name, provider := range v.cfg.LLMProviderRegistry.GetAll() {
		// Validate provider type
		if !provider.Type.IsValid() {
			return NewValidationError("llm_provider", name, "type", fmt.Errorf("invalid provider type: %s", provider.Type))
		}

		// Validate model is not empty
		if provider.Model == "" {
			return NewValidationError("llm_provider", name, "model", fmt.Errorf("model required"))
		}

		// Only validate API key environment variable for providers that are actually referenced
		if referencedProviders[name] {
			if provider.APIKeyEnv != "" {
				if value := os.Getenv(provider.APIKeyEnv); value == "" {
					return NewValidationError("llm_provider", name, "api_key_env", fmt.Errorf("environment variable %s is not set", provider.APIKeyEnv))
				}
			}
		}

		// Validate max tool result tokens
		if provider.MaxToolResultTokens < 1000 {
			return NewValidationError("llm_provider", name, "max_tool_result_tokens", fmt.Errorf("must be at least 1000"))
		}
	}

	return nil
}

// collectReferencedLLMProviders returns the set of LLM provider names
// actually referenced by Defaults and the plan executor/pipeline configuration.
func (v *Validator) collectReferencedLLMProviders() map[string]bool {
	referenced := make(map[string]bool)

	if v.cfg.Defaults != nil && v.cfg.Defaults.LLMProvider != "" {
		referenced[v.cfg.Defaults.LLMProvider] = true
	}

	if v.cfg.PlanExec != nil && v.cfg.PlanExec.FinalizationLLMProvider != "" {
		referenced[v.cfg.PlanExec.FinalizationLLMProvider] = true
	}

	if v.cfg.Pipeline != nil && v.cfg.Pipeline.ClassSummaryLLMProvider != "" {
		referenced[v.cfg.Pipeline.ClassSummaryLLMProvider] = true
	}

	return referenced
}

func (v *Validator) validateRetention() error {
	r := v.cfg.Retention
	if r == nil {
		return nil
	}

	if r.PlanRetentionDays < 0 {
		return fmt.Errorf("system.retention.plan_retention_days must be non-negative, got %d", r.PlanRetentionDays)
	}
	if r.EventTTL <= 0 {
		return fmt.Errorf("system.retention.event_ttl must be positive, got %v", r.EventTTL)
	}
	if r.CleanupInterval <= 0 {
		return fmt.Errorf("system.retention.cleanup_interval must be positive, got %v", r.CleanupInterval)
	}

	return nil
}

func (v *Validator) validateSlack() error {
	s := v.cfg.Slack
	if s == nil || !s.Enabled {
		return nil
	}

	if s.Channel == "" {
		return fmt.Errorf("system.slack.channel is required when Slack is enabled")
	}

	if s.TokenEnv == "" {
		return fmt.Errorf("system.slack.token_env is required when Slack is enabled")
	}

	if token := os.Getenv(s.TokenEnv); token == "" {
		return fmt.Errorf("system.slack.token_env: environment variable %s is not set", s.TokenEnv)
	}

	return nil
}
