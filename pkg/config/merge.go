package config

// mergeConnections merges built-in and user-defined connection configurations.
// User-defined connections override built-in ones with the same name.
func mergeConnections(builtinConnections map[string]ConnectionConfig, userConnections map[string]ConnectionConfig) map[string]*ConnectionConfig {
	result := make(map[string]*ConnectionConfig)

	for name, conn := range builtinConnections {
		connCopy := conn
		result[name] = &connCopy
	}

	for name, userConn := range userConnections {
		connCopy := userConn
		result[name] = &connCopy
	}

	return result
}

// mergeMCPServers merges built-in and user-defined MCP server configurations.
// User-defined servers override built-in servers with the same ID.
func mergeMCPServers(builtinServers map[string]MCPServerConfig, userServers map[string]MCPServerConfig) map[string]*MCPServerConfig {
	result := make(map[string]*MCPServerConfig)

	// First, add built-in servers
	for id, server := range builtinServers {
		serverCopy := server
		result[id] = &serverCopy
	}

	// Then, override with user-defined servers (or add new ones)
	for id, userServer := range userServers {
		serverCopy := userServer
		result[id] = &serverCopy
	}

	return result
}

// mergePollers merges built-in and user-defined per-handler poller cadences.
func mergePollers(builtinPollers map[string]PollerConfig, userPollers map[string]PollerConfig) map[string]*PollerConfig {
	result := make(map[string]*PollerConfig)

	for kind, poller := range builtinPollers {
		pollerCopy := poller
		result[kind] = &pollerCopy
	}

	for kind, userPoller := range userPollers {
		pollerCopy := userPoller
		result[kind] = &pollerCopy
	}

	return result
}

// mergeLLMProviders merges built-in and user-defined LLM provider configurations.
// User-defined providers override built-in providers with the same name.
func mergeLLMProviders(builtinProviders map[string]LLMProviderConfig, userProviders map[string]LLMProviderConfig) map[string]*LLMProviderConfig {
	result := make(map[string]*LLMProviderConfig)

	// First, add built-in providers
	for name, provider := range builtinProviders {
		providerCopy := provider
		result[name] = &providerCopy
	}

	// Then, override with user-defined providers (or add new ones)
	for name, userProvider := range userProviders {
		providerCopy := userProvider
		result[name] = &providerCopy
	}

	return result
}
