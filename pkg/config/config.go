package config

// Config is the umbrella configuration object that encapsulates
// all registries, defaults, and configuration state.
// This is the primary object returned by Initialize() and used throughout the application.
type Config struct {
	configDir string // Configuration directory path (for reference)

	// System-wide defaults
	Defaults  *Defaults
	Queue     *QueueConfig
	Pipeline  *PipelineConfig
	PlanExec  *PlanExecutorConfig
	VecStore  *VectorStoreConfig
	GitHub    *GitHubConfig
	Slack     *SlackConfig
	Retention *RetentionConfig
	KBClient  *KBClientConfig

	// Component registries
	ConnectionRegistry  *ConnectionRegistry
	PollerRegistry      *PollerRegistry
	MCPServerRegistry   *MCPServerRegistry
	LLMProviderRegistry *LLMProviderRegistry
}

// Initialize is defined in loader.go

// ConfigStats contains statistics about loaded configuration
type ConfigStats struct {
	Connections  int
	MCPServers   int
	LLMProviders int
}

// Stats returns configuration statistics for logging/monitoring
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		Connections:  len(c.ConnectionRegistry.GetAll()),
		MCPServers:   len(c.MCPServerRegistry.GetAll()),
		LLMProviders: len(c.LLMProviderRegistry.GetAll()),
	}
}

// ConfigDir returns the configuration directory path
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetConnection retrieves a seed connection configuration by name.
// This is a convenience method that wraps ConnectionRegistry.Get().
func (c *Config) GetConnection(name string) (*ConnectionConfig, error) {
	return c.ConnectionRegistry.Get(name)
}

// GetPoller retrieves the poller cadence configuration for a handler kind.
// This is a convenience method that wraps PollerRegistry.Get().
func (c *Config) GetPoller(kind string) *PollerConfig {
	return c.PollerRegistry.Get(kind)
}

// GetMCPServer retrieves an MCP server configuration by ID.
// This is a convenience method that wraps MCPServerRegistry.Get().
func (c *Config) GetMCPServer(serverID string) (*MCPServerConfig, error) {
	return c.MCPServerRegistry.Get(serverID)
}

// GetLLMProvider retrieves an LLM provider configuration by name.
// This is a convenience method that wraps LLMProviderRegistry.Get().
func (c *Config) GetLLMProvider(name string) (*LLMProviderConfig, error) {
	return c.LLMProviderRegistry.Get(name)
}
