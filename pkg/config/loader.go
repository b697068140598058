package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// JervisYAMLConfig represents the complete jervis.yaml file structure
type JervisYAMLConfig struct {
	System      *SystemYAMLConfig           `yaml:"system"`
	Connections map[string]ConnectionConfig `yaml:"connections"`
	MCPServers  map[string]MCPServerConfig  `yaml:"mcp_servers"`
	Pollers     map[string]PollerConfig     `yaml:"pollers"`
	Defaults    *Defaults                   `yaml:"defaults"`
	Queue       *QueueConfig                `yaml:"queue"`
	Pipeline    *PipelineConfig             `yaml:"pipeline"`
	PlanExec    *PlanExecutorConfig         `yaml:"plan_executor"`
	VecStore    *VectorStoreConfig          `yaml:"vector_store"`
}

// SystemYAMLConfig groups system-wide infrastructure settings.
type SystemYAMLConfig struct {
	GitHub    *GitHubYAMLConfig   `yaml:"github"`
	Slack     *SlackYAMLConfig    `yaml:"slack"`
	Retention *RetentionConfig    `yaml:"retention"`
	KBClient  *KBClientYAMLConfig `yaml:"kb_client"`
}

// KBClientYAMLConfig holds external knowledge-base service settings from
// YAML.
type KBClientYAMLConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKeyEnv  string `yaml:"api_key_env,omitempty"` // Defaults to "KB_SERVICE_API_KEY" if omitted
	TimeoutSec int    `yaml:"timeout_sec,omitempty"`
}

// SlackYAMLConfig holds Slack notification settings from YAML.
type SlackYAMLConfig struct {
	Enabled  *bool  `yaml:"enabled,omitempty"`
	TokenEnv string `yaml:"token_env,omitempty"`
	Channel  string `yaml:"channel,omitempty"`
}

// GitHubYAMLConfig holds GitHub integration settings from YAML.
type GitHubYAMLConfig struct {
	TokenEnv string `yaml:"token_env,omitempty"` // Defaults to "GITHUB_TOKEN" if omitted
}

// LLMProvidersYAMLConfig represents the complete llm-providers.yaml file structure
type LLMProvidersYAMLConfig struct {
	LLMProviders map[string]LLMProviderConfig `yaml:"llm_providers"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load YAML files from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined configurations
//  5. Apply MCP server defaults (e.g. size_threshold_tokens)
//  6. Build in-memory registries
//  7. Apply default values
//  8. Validate all configuration
//  9. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"connections", stats.Connections,
		"mcp_servers", stats.MCPServers,
		"llm_providers", stats.LLMProviders)

	return cfg, nil
}

// load is the internal loader (not exported)
func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{
		configDir: configDir,
	}

	jervisConfig, err := loader.loadJervisYAML()
	if err != nil {
		return nil, NewLoadError("jervis.yaml", err)
	}

	llmProviders, err := loader.loadLLMProvidersYAML()
	if err != nil {
		return nil, NewLoadError("llm-providers.yaml", err)
	}

	builtin := GetBuiltinConfig()

	connections := mergeConnections(builtin.Connections, jervisConfig.Connections)
	mcpServers := mergeMCPServers(builtin.MCPServers, jervisConfig.MCPServers)
	pollers := mergePollers(builtin.Pollers, jervisConfig.Pollers)
	llmProvidersMerged := mergeLLMProviders(builtin.LLMProviders, llmProviders)

	// Apply MCP server defaults (before validation)
	for _, server := range mcpServers {
		if server.Summarization != nil && server.Summarization.Enabled && server.Summarization.SizeThresholdTokens == 0 {
			server.Summarization.SizeThresholdTokens = DefaultSizeThresholdTokens
		}
	}

	connectionRegistry := NewConnectionRegistry(connections)
	mcpServerRegistry := NewMCPServerRegistry(mcpServers)
	pollerRegistry := NewPollerRegistry(pollers)
	llmProviderRegistry := NewLLMProviderRegistry(llmProvidersMerged)

	defaults := jervisConfig.Defaults
	if defaults == nil {
		defaults = &Defaults{}
	}
	if defaults.IngestMasking == nil {
		defaults.IngestMasking = &IngestMaskingDefaults{
			Enabled:      true,
			PatternGroup: "security",
		}
	}

	queueConfig := DefaultQueueConfig()
	if jervisConfig.Queue != nil {
		if err := mergo.Merge(queueConfig, jervisConfig.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}

	pipelineConfig := DefaultPipelineConfig()
	if jervisConfig.Pipeline != nil {
		if err := mergo.Merge(pipelineConfig, jervisConfig.Pipeline, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge pipeline config: %w", err)
		}
	}

	planExecConfig := DefaultPlanExecutorConfig()
	if jervisConfig.PlanExec != nil {
		if err := mergo.Merge(planExecConfig, jervisConfig.PlanExec, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge plan executor config: %w", err)
		}
	}

	vecStoreConfig := DefaultVectorStoreConfig()
	if jervisConfig.VecStore != nil {
		if err := mergo.Merge(vecStoreConfig, jervisConfig.VecStore, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge vector store config: %w", err)
		}
	}

	githubCfg := resolveGitHubConfig(jervisConfig.System)
	slackCfg := resolveSlackConfig(jervisConfig.System)
	retentionCfg := resolveRetentionConfig(jervisConfig.System)
	kbClientCfg := resolveKBClientConfig(jervisConfig.System)

	return &Config{
		configDir:           configDir,
		Defaults:            defaults,
		Queue:               queueConfig,
		Pipeline:            pipelineConfig,
		PlanExec:            planExecConfig,
		VecStore:            vecStoreConfig,
		GitHub:              githubCfg,
		Slack:               slackCfg,
		Retention:           retentionCfg,
		KBClient:            kbClientCfg,
		ConnectionRegistry:  connectionRegistry,
		PollerRegistry:      pollerRegistry,
		MCPServerRegistry:   mcpServerRegistry,
		LLMProviderRegistry: llmProviderRegistry,
	}, nil
}

// validate performs comprehensive validation on loaded configuration
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Note: ExpandEnv passes through original data on parse/execution errors,
	// allowing the YAML parser to handle the content (or fail with a clearer message).
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadJervisYAML() (*JervisYAMLConfig, error) {
	var config JervisYAMLConfig

	config.Connections = make(map[string]ConnectionConfig)
	config.MCPServers = make(map[string]MCPServerConfig)
	config.Pollers = make(map[string]PollerConfig)

	if err := l.loadYAML("jervis.yaml", &config); err != nil {
		return nil, err
	}

	return &config, nil
}

func (l *configLoader) loadLLMProvidersYAML() (map[string]LLMProviderConfig, error) {
	var config LLMProvidersYAMLConfig

	config.LLMProviders = make(map[string]LLMProviderConfig)

	if err := l.loadYAML("llm-providers.yaml", &config); err != nil {
		return nil, err
	}

	return config.LLMProviders, nil
}

// resolveGitHubConfig resolves GitHub configuration from system YAML, applying defaults.
func resolveGitHubConfig(sys *SystemYAMLConfig) *GitHubConfig {
	cfg := &GitHubConfig{
		TokenEnv: "GITHUB_TOKEN",
	}

	if sys != nil && sys.GitHub != nil && sys.GitHub.TokenEnv != "" {
		cfg.TokenEnv = sys.GitHub.TokenEnv
	}

	return cfg
}

// resolveSlackConfig resolves Slack configuration from system YAML, applying defaults.
func resolveSlackConfig(sys *SystemYAMLConfig) *SlackConfig {
	cfg := &SlackConfig{
		Enabled:  false,
		TokenEnv: "SLACK_BOT_TOKEN",
	}

	if sys == nil || sys.Slack == nil {
		return cfg
	}

	s := sys.Slack
	if s.Enabled != nil {
		cfg.Enabled = *s.Enabled
	}
	if s.TokenEnv != "" {
		cfg.TokenEnv = s.TokenEnv
	}
	if s.Channel != "" {
		cfg.Channel = s.Channel
	}

	return cfg
}

// resolveKBClientConfig resolves external knowledge-base service
// configuration from system YAML, applying defaults.
func resolveKBClientConfig(sys *SystemYAMLConfig) *KBClientConfig {
	cfg := &KBClientConfig{
		APIKeyEnv:  "KB_SERVICE_API_KEY",
		TimeoutSec: 30,
	}

	if sys == nil || sys.KBClient == nil {
		return cfg
	}

	k := sys.KBClient
	if k.BaseURL != "" {
		cfg.BaseURL = k.BaseURL
	}
	if k.APIKeyEnv != "" {
		cfg.APIKeyEnv = k.APIKeyEnv
	}
	if k.TimeoutSec > 0 {
		cfg.TimeoutSec = k.TimeoutSec
	}

	return cfg
}

// resolveRetentionConfig resolves retention configuration from system YAML, applying defaults.
func resolveRetentionConfig(sys *SystemYAMLConfig) *RetentionConfig {
	cfg := DefaultRetentionConfig()

	if sys == nil || sys.Retention == nil {
		return cfg
	}

	r := sys.Retention
	if r.PlanRetentionDays > 0 {
		cfg.PlanRetentionDays = r.PlanRetentionDays
	}
	if r.EventTTL > 0 {
		cfg.EventTTL = r.EventTTL
	}
	if r.CleanupInterval > 0 {
		cfg.CleanupInterval = r.CleanupInterval
	}

	return cfg
}
