// Jervis is a knowledge-ingestion and retrieval orchestrator: it clones
// the periodic poller (C4), streaming indexing pipeline (C6), and plan
// executor (C10) subsystems behind one HTTP surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/jandamek/jervis/pkg/api"
	"github.com/jandamek/jervis/pkg/config"
	"github.com/jandamek/jervis/pkg/database"
	"github.com/jandamek/jervis/pkg/indexing"
	"github.com/jandamek/jervis/pkg/indexing/ledger"
	"github.com/jandamek/jervis/pkg/kbclient"
	"github.com/jandamek/jervis/pkg/llmgateway"
	"github.com/jandamek/jervis/pkg/masking"
	"github.com/jandamek/jervis/pkg/planexec"
	"github.com/jandamek/jervis/pkg/project"
	"github.com/jandamek/jervis/pkg/slack"
	"github.com/jandamek/jervis/pkg/vectorstore"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: could not load %s: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")

	ctx := context.Background()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("Error closing database client: %v", err)
		}
	}()
	log.Println("connected to PostgreSQL database")

	gateway, err := buildLLMGateway(cfg)
	if err != nil {
		log.Fatalf("Failed to build LLM gateway: %v", err)
	}

	vecStore := vectorstore.New(cfg.VecStore, os.Getenv(cfg.VecStore.PasswordEnv))
	defer func() {
		if err := vecStore.Close(); err != nil {
			log.Printf("Error closing vector store gateway: %v", err)
		}
	}()

	idxLedger := ledger.New(dbClient.Client, nil)
	embedder := indexing.NewOpenAIEmbedder(os.Getenv("OPENAI_API_KEY"))
	pipeline := indexing.New(idxLedger, vecStore, gateway, embedder, cfg.Pipeline)
	if cfg.Defaults.IngestMasking != nil && cfg.Defaults.IngestMasking.Enabled {
		pipeline.SetMasker(masking.NewMaskingService(cfg.MCPServerRegistry, masking.AlertMaskingConfig{
			Enabled:      true,
			PatternGroup: cfg.Defaults.IngestMasking.PatternGroup,
		}))
	}

	kb := kbclient.New(cfg.KBClient)
	projects := project.New()

	planExecTools := kbclient.NewToolExecutor(kb, "", "")
	plans := planexec.New(dbClient.Client, planExecTools, nil, 0)
	if notifier := slack.NewService(slack.ServiceConfig{
		Token:   os.Getenv(cfg.Slack.TokenEnv),
		Channel: cfg.Slack.Channel,
	}); cfg.Slack.Enabled && notifier != nil {
		plans.SetNotifier(notifier)
	}

	reindexer := &pipelineReindexer{pipeline: pipeline, kb: kb}

	server := api.NewServer(cfg, dbClient, gateway, embedder, projects, plans, reindexer)

	addr := ":" + httpPort
	log.Printf("HTTP server listening on %s", addr)
	if err := server.Start(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// pipelineReindexer adapts the indexing pipeline to api.Reindexer. It
// assumes a checked-out worktree for projectID already exists under
// REPO_WORKSPACE_ROOT/<projectID> at HEAD; a deployment that instead
// tracks per-project checkouts via the connection store and poller
// framework would resolve repoPath/commitHash from there instead of this
// fixed convention.
type pipelineReindexer struct {
	pipeline *indexing.Pipeline
	kb       *kbclient.Client
}

func (r *pipelineReindexer) Reindex(ctx context.Context, projectID string) error {
	repoPath := filepath.Join(getEnv("REPO_WORKSPACE_ROOT", "./workspace"), projectID)
	source := kbclient.NewCPGSource(r.kb, repoPath, "HEAD")
	return r.pipeline.Run(ctx, projectID, "HEAD", source)
}

// defaultContextTokens is used when a configured provider has no better
// source for its context-window size; config.LLMProviderConfig bounds
// tool-result tokens but doesn't carry the model's full window.
const defaultContextTokens = 128_000

// buildLLMGateway assembles the candidate list from the configured LLM
// providers. Ordering follows map iteration, which is fine here: callers
// that need a specific fallback order configure a single provider of each
// type they want tried, and WithQuickCandidates/WithRetryBudget override
// behavior per deployment, not per request.
func buildLLMGateway(cfg *config.Config) (*llmgateway.Gateway, error) {
	templates := llmgateway.NewTemplateRegistry(llmgateway.BuiltinTemplates())

	var candidates []llmgateway.Candidate
	for name, provider := range cfg.LLMProviderRegistry.GetAll() {
		switch provider.Type {
		case config.LLMProviderTypeAnthropic:
			candidates = append(candidates, llmgateway.NewAnthropicCandidate(os.Getenv(provider.APIKeyEnv), provider.Model, defaultContextTokens))
		case config.LLMProviderTypeOpenAI:
			candidates = append(candidates, llmgateway.NewOpenAICandidate(os.Getenv(provider.APIKeyEnv), provider.Model, defaultContextTokens))
		default:
			return nil, fmt.Errorf("llm provider %q: unsupported type %q for gateway wiring", name, provider.Type)
		}
	}

	return llmgateway.New(templates, candidates), nil
}
