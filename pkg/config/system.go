package config

// GitHubConfig holds resolved GitHub integration configuration, used by the
// Git polling handler (C5) for metadata cross-references and by the
// cross-indexer link queue (C11) for GitHub issue-URL classification.
type GitHubConfig struct {
	TokenEnv string // Env var name containing GitHub PAT (default: "GITHUB_TOKEN")
}

// SlackConfig holds resolved Slack notification configuration, used for
// plan-finalization announcements (C10) and git connection auth-failure
// alerts (C5).
type SlackConfig struct {
	Enabled  bool
	TokenEnv string // Env var name containing the Slack bot token
	Channel  string
}

// KBClientConfig holds resolved configuration for the external
// knowledge-base service REST client: stage P1's CPG-backed symbol source,
// and the RAG_SEARCH/TRAVERSE/PURGE tools the plan executor calls.
type KBClientConfig struct {
	BaseURL    string // e.g. "https://kb.internal.example.com"
	APIKeyEnv  string // Env var name containing the service's bearer token
	TimeoutSec int    // per-request timeout; 0 uses the client's default
}
