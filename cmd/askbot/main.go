// askbot answers support questions about the hackathon-judging workflow.
// Run without arguments for the interactive chat; `askbot serve` runs the
// Telegram bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"askbot/internal/bot"
	"askbot/internal/catalog"
	"askbot/internal/config"
	"askbot/internal/convo"
	"askbot/internal/embedding"
	"askbot/internal/feedback"
	"askbot/internal/ingest"
	"askbot/internal/knowledge"
	"askbot/internal/llm"
	"askbot/internal/logging"
	"askbot/internal/plan"
	"askbot/internal/query"
	"askbot/internal/respond"
	"askbot/internal/semantic"
)

var (
	configPath string
	debugFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "askbot",
	Short: "askbot - hackathon judging support assistant",
	Long: `askbot answers natural-language questions about the hackathon-judging
workflow: setting up criteria, inviting judges, scoring, publishing results.

It matches questions against a scenario catalog with multi-tier fuzzy
matching, falls back to generative synthesis for open-ended questions, and
keeps a bounded per-user conversation context.

Run without arguments to start the interactive chat interface.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(args)
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [url...]",
	Short: "Scrape documentation pages into the docs corpus",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(args)
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Scenario catalog maintenance",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the scenario catalog file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCatalogValidate()
	},
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Feedback store maintenance",
}

var feedbackListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the most recent feedback entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFeedbackList()
	},
}

var (
	ingestBrowser bool
	ingestWorkers int
	feedbackLimit int
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "askbot.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")

	ingestCmd.Flags().BoolVar(&ingestBrowser, "browser", false, "render pages through a headless browser")
	ingestCmd.Flags().IntVar(&ingestWorkers, "workers", 4, "concurrent page fetches")

	feedbackListCmd.Flags().IntVar(&feedbackLimit, "limit", 20, "number of entries to print")

	catalogCmd.AddCommand(catalogValidateCmd)
	feedbackCmd.AddCommand(feedbackListCmd)
	rootCmd.AddCommand(serveCmd, askCmd, ingestCmd, catalogCmd, feedbackCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// pipeline bundles everything one serving process needs.
type pipeline struct {
	cfg      *config.Config
	catalog  *catalog.Catalog
	bot      *bot.Bot
	contexts *convo.Store
	feedback *feedback.Store
}

// buildPipeline loads config and wires every component. The returned cleanup
// must run on shutdown; it flushes the last context batch.
func buildPipeline(ctx context.Context) (*pipeline, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if debugFlag {
		cfg.Logging.DebugMode = true
	}

	if err := logging.Initialize(cfg.StateDir, cfg.Logging.DebugMode, cfg.Logging.Level); err != nil {
		return nil, nil, err
	}
	logging.Boot("askbot %s starting", cfg.Version)

	cat, err := catalog.Load(cfg.Catalog.ScenariosPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load scenario catalog: %w", err)
	}
	if cfg.Catalog.HotReload {
		if err := cat.WatchForChanges(); err != nil {
			logging.Get(logging.CategoryCatalog).Warn("hot reload unavailable: %v", err)
		}
	}

	engine, err := embedding.NewEngine(embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
		CachePath:      cfg.Embedding.CachePath,
	})
	if err != nil {
		// Embedding failures degrade to lexical matching, never abort boot.
		logging.Get(logging.CategoryEmbedding).Warn("embedding engine unavailable, lexical matching only: %v", err)
		engine = nil
	}

	matcher, err := semantic.NewMatcher(ctx, engine, cat)
	if err != nil {
		logging.Get(logging.CategoryMatcher).Warn("semantic matcher unavailable: %v", err)
		matcher, _ = semantic.NewMatcher(ctx, nil, cat)
	}

	scorer := catalog.NewScorer(cat, catalog.ScorerConfig{
		NearDuplicateRatio: cfg.Match.NearDuplicateRatio,
		KeywordWeight:      cfg.Match.KeywordWeight,
		SemanticWeight:     cfg.Match.SemanticWeight,
		MinBlendedScore:    cfg.Match.MinBlendedScore,
		AlternateFloor:     cfg.Match.AlternateFloor,
		MaxAlternates:      cfg.Match.MaxAlternates,
	})

	processor := query.NewProcessor(cat, scorer, matcher, nil, query.Config{
		SemanticTopK:      cfg.Match.SemanticTopK,
		SemanticThreshold: cfg.Match.SemanticThreshold,
	})

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	var reasoner plan.ReasoningPlanner
	var collab plan.Collaborator
	if planner := llm.NewPlanner(client); planner != nil {
		reasoner = planner
		collab = planner
	} else {
		logging.Boot("no generative collaborator configured; scenario answers only")
	}

	corpus, err := knowledge.Load(cfg.Catalog.DocsDir)
	if err != nil {
		return nil, nil, err
	}

	renderer := respond.NewEngine()
	if err := renderer.LoadOverrides(cfg.Catalog.TemplatesPath); err != nil {
		logging.Get(logging.CategoryTemplate).Warn("template overrides not loaded: %v", err)
	}
	validator := respond.NewValidator(respond.DefaultValidatorConfig())

	selector := plan.NewSelector(reasoner, plan.SelectorConfig{
		DirectConfidence: cfg.Match.DirectConfidence,
		HybridConfidence: cfg.Match.HybridConfidence,
	})
	executor := plan.NewExecutor(cat, renderer, corpus, collab)

	saveInterval, _ := cfg.SaveInterval()
	contexts, err := convo.NewStore(convo.StoreConfig{
		DatabasePath:  cfg.Convo.DatabasePath,
		SaveInterval:  saveInterval,
		SaveEvery:     cfg.Convo.SaveEvery,
		HistoryWindow: cfg.Convo.HistoryWindow,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open context store: %w", err)
	}

	fb, err := feedback.NewStore(filepath.Join(cfg.StateDir, "feedback.db"))
	if err != nil {
		logging.Get(logging.CategoryFeedback).Warn("feedback store unavailable: %v", err)
		fb = nil
	}

	b := bot.New(cat, processor, selector, executor, validator, contexts, fb)

	cleanup := func() {
		if err := contexts.Close(); err != nil {
			logging.Get(logging.CategoryConvo).Error("context store close failed: %v", err)
		}
		if fb != nil {
			fb.Close()
		}
		cat.StopWatching()
		logging.Boot("askbot stopped")
		logging.CloseAll()
	}

	return &pipeline{cfg: cfg, catalog: cat, bot: b, contexts: contexts, feedback: fb}, cleanup, nil
}

func runServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, cleanup, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	pollInterval, _ := p.cfg.PollInterval()
	transport, err := bot.NewTelegramTransport(bot.TelegramConfig{
		Token:        p.cfg.Transport.Token,
		BaseURL:      p.cfg.Transport.BaseURL,
		BotMention:   p.cfg.Transport.BotMention,
		PollInterval: pollInterval,
	})
	if err != nil {
		return err
	}

	fmt.Println("askbot serving; press Ctrl-C to stop")
	if err := p.bot.Run(ctx, transport); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runAsk(args []string) error {
	ctx := context.Background()
	p, cleanup, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	question := ""
	for i, a := range args {
		if i > 0 {
			question += " "
		}
		question += a
	}

	fmt.Println(p.bot.HandleMessage(ctx, "local", question))
	return nil
}

func runIngest(urls []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	zcfg := zap.NewProductionConfig()
	if debugFlag {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	ing, err := ingest.New(ingest.Config{
		OutputDir:   cfg.Catalog.DocsDir,
		Concurrency: ingestWorkers,
		Timeout:     30 * time.Second,
		UseBrowser:  ingestBrowser,
	}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return ing.Run(ctx, urls)
}

func runFeedbackList() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := feedback.NewStore(filepath.Join(cfg.StateDir, "feedback.db"))
	if err != nil {
		return fmt.Errorf("failed to open feedback store: %w", err)
	}
	defer store.Close()

	entries, err := store.Recent(feedbackLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no feedback recorded")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s  [%s]  user %s\n", e.CreatedAt.Format(time.RFC3339), e.Category, e.UserID)
		fmt.Printf("  Q: %s\n", e.Question)
		if e.Text != "" {
			fmt.Printf("  feedback: %s\n", e.Text)
		}
	}
	return nil
}

func runCatalogValidate() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(cfg.Catalog.ScenariosPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", cfg.Catalog.ScenariosPath, err)
	}

	scenarios, err := catalog.ParseScenarios(data)
	if err != nil {
		return fmt.Errorf("catalog invalid: %w", err)
	}

	cat, err := catalog.NewFromScenarios(scenarios)
	if err != nil {
		return fmt.Errorf("catalog invalid: %w", err)
	}

	dangling := 0
	for _, s := range scenarios {
		for _, rid := range s.RelatedScenarios {
			if _, ok := cat.ByID(rid); !ok {
				fmt.Printf("warning: scenario %q references unknown related scenario %q\n", s.ScenarioID, rid)
				dangling++
			}
		}
	}

	fmt.Printf("OK: %d scenarios", len(scenarios))
	if dangling > 0 {
		fmt.Printf(" (%d dangling related references)", dangling)
	}
	fmt.Println()
	return nil
}
