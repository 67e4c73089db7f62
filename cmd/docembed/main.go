// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/docembed"
	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/ingestion"
	"github.com/poiesic/docembed/progress"
	"github.com/poiesic/docembed/validation"
)

var errDocumentsFailed = errors.New("documents failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	userFlag := &cli.StringFlag{
		Name:    "user",
		Aliases: []string{"u"},
		Usage:   "User ID owning insights (overrides user_id in the config)",
	}

	return &cli.App{
		Name:  "docembed",
		Usage: "Chunk, embed and extract insights from documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML config file",
				EnvVars: []string{"DOCEMBED_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "process",
				Usage:     "Chunk and embed documents, then extract insights",
				ArgsUsage: "FILE...",
				Action:    processCommand,
				Flags: []cli.Flag{
					userFlag,
					&cli.BoolFlag{
						Name:  "no-insights",
						Usage: "Skip insight extraction",
					},
					&cli.BoolFlag{
						Name:    "quiet",
						Aliases: []string{"q"},
						Usage:   "Do not draw progress",
					},
				},
			},
			{
				Name:      "estimate",
				Usage:     "Estimate chunks, tokens and cost without calling the provider",
				ArgsUsage: "FILE...",
				Action:    estimateCommand,
			},
			{
				Name:      "insights",
				Usage:     "List stored insights for processed documents",
				ArgsUsage: "FILE...",
				Action:    insightsCommand,
			},
			{
				Name:      "search",
				Usage:     "Search stored insights",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					userFlag,
					&cli.IntFlag{
						Name:    "max-hits",
						Aliases: []string{"n"},
						Usage:   "Maximum results (default from config)",
					},
				},
			},
			{
				Name:   "health",
				Usage:  "Check that the pipeline and provider are responsive",
				Action: healthCommand,
			},
			{
				Name:      "validate",
				Usage:     "Validate documents without processing them",
				ArgsUsage: "FILE...",
				Action:    validateCommand,
			},
		},
	}
}

func processCommand(c *cli.Context) error {
	docs, err := readDocuments(c.Args().Slice())
	if err != nil {
		return err
	}

	var opts []docembed.Option
	if !c.Bool("quiet") {
		opts = append(opts, docembed.WithObserver(progress.NewReporter(c.App.ErrWriter, 10).Observe))
	}
	engine, err := openEngine(c, opts...)
	if err != nil {
		return err
	}
	defer engine.Close()

	if c.Bool("no-insights") {
		engine.Config().Pipeline.ExtractInsights = false
	}

	processed := 0
	for doc := range engine.ProcessDocuments(c.Context, docs) {
		processed++
		stats := doc.Processing
		fmt.Fprintf(c.App.Writer, "%s: %d chunks, %d tokens", doc.Filename, stats.ChunkCount, stats.TotalTokens)
		if stats.Costs != nil {
			fmt.Fprintf(c.App.Writer, ", $%.6f", stats.Costs.EmbeddingCost)
		}
		fmt.Fprintf(c.App.Writer, " (%s)\n", stats.ProcessingTime.Round(time.Millisecond))
	}

	if engine.Config().Pipeline.ExtractInsights {
		fmt.Fprintln(c.App.ErrWriter, "waiting for insight extraction...")
		engine.Pipeline().Wait()
	}
	if err := c.Context.Err(); err != nil {
		return err
	}
	if processed < len(docs) {
		return fmt.Errorf("%w: %d of %d documents", errDocumentsFailed, len(docs)-processed, len(docs))
	}
	return nil
}

func estimateCommand(c *cli.Context) error {
	docs, err := readDocuments(c.Args().Slice())
	if err != nil {
		return err
	}
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	opts := engine.Config().ProcessOptions()
	var totalTokens int
	var totalCost float64
	for _, doc := range docs {
		est, err := engine.Pipeline().EstimateProcessingCost(c.Context, doc, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", doc.Filename, err)
		}
		totalTokens += est.EstimatedTokens
		totalCost += est.EstimatedCost
		fmt.Fprintf(c.App.Writer, "%s: %d chunks, %d tokens, $%.6f (%s)\n",
			doc.Filename, est.EstimatedChunks, est.EstimatedTokens, est.EstimatedCost, est.Model)
	}
	if len(docs) > 1 {
		fmt.Fprintf(c.App.Writer, "total: %d tokens, $%.6f\n", totalTokens, totalCost)
	}
	return nil
}

func insightsCommand(c *cli.Context) error {
	docs, err := readDocuments(c.Args().Slice())
	if err != nil {
		return err
	}
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	for _, doc := range docs {
		records, err := engine.InsightRepository().GetInsightsByDocument(c.Context, doc.DocumentID().String())
		if err != nil {
			return fmt.Errorf("%s: %w", doc.Filename, err)
		}
		fmt.Fprintf(c.App.Writer, "%s (%d insights)\n", doc.Filename, len(records))
		for _, rec := range records {
			fmt.Fprintf(c.App.Writer, "  [%.2f] %s\n", rec.ConfidenceScore, rec.Content)
		}
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("search query is required")
	}
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	maxHits := c.Int("max-hits")
	if maxHits <= 0 {
		maxHits = engine.Config().Search.MaxHits
	}
	results, err := engine.Searcher().FindSimilar(c.Context, engine.Config().UserID, query, maxHits)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		fmt.Fprintln(c.App.Writer, "no matching insights")
		return nil
	}
	for i, match := range results {
		fmt.Fprintf(c.App.Writer, "%d. [%.3f] %s (document %s)\n",
			i+1, match.Score, match.Record.Content, match.Record.DocumentID)
	}
	return nil
}

func healthCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	report := engine.Pipeline().Health(c.Context)
	fmt.Fprintf(c.App.Writer, "status: %s (latency %s)\n", report.Status, report.Latency.Round(time.Millisecond))
	for k, v := range report.Details {
		fmt.Fprintf(c.App.Writer, "  %s: %s\n", k, v)
	}
	if report.Status == ingestion.StatusUnhealthy {
		return cli.Exit("pipeline is unhealthy", 1)
	}
	return nil
}

func validateCommand(c *cli.Context) error {
	docs, err := readDocuments(c.Args().Slice())
	if err != nil {
		return err
	}

	result := validation.New().ValidateBatch(docs)
	for _, doc := range result.Valid {
		fmt.Fprintf(c.App.Writer, "ok       %s\n", doc.Filename)
	}
	for _, rejected := range result.Invalid {
		fmt.Fprintf(c.App.Writer, "invalid  %s: %v\n", rejected.Document.Filename, rejected.Err)
	}
	if len(result.Invalid) > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d documents failed validation", len(result.Invalid), len(docs)), 1)
	}
	return nil
}

// openEngine loads the configuration named by --config and applies command flags.
func openEngine(c *cli.Context, opts ...docembed.Option) (*docembed.Engine, error) {
	cfg, err := docembed.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if user := c.String("user"); user != "" {
		cfg.UserID = user
	}
	engine, err := docembed.Open(c.Context, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open docembed: %w", err)
	}
	return engine, nil
}

func readDocuments(paths []string) ([]*core.DocumentInput, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one file is required")
	}
	docs := make([]*core.DocumentInput, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		docs = append(docs, &core.DocumentInput{
			Content:  strings.ToValidUTF8(string(content), "\uFFFD"),
			Filename: filepath.Base(path),
			Metadata: core.Metadata{"path": path},
		})
	}
	return docs, nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
