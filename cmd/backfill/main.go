// Command backfill re-runs the pipeline over interactions whose extraction
// is missing or incomplete, pacing itself between items to stay under the
// inference provider's rate limits.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ninjaos/followup/internal/config"
	"github.com/ninjaos/followup/internal/core"
	"github.com/ninjaos/followup/internal/llm"
	"github.com/ninjaos/followup/internal/store"
)

func main() {
	var (
		cfgPath string
		dbPath  string
		user    string
		limit   int
		delayMS int
	)

	rootCmd := &cobra.Command{
		Use:   "backfill",
		Short: "Process unextracted interactions through the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil {
				log.Println("No .env file found, using defaults")
			}
			return run(cmd.Context(), cfgPath, dbPath, user, limit, delayMS)
		},
	}

	rootCmd.Flags().StringVar(&cfgPath, "config", "config/config.toml", "path to config file")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "database path (overrides config)")
	rootCmd.Flags().StringVar(&user, "user", "default", "user id to process")
	rootCmd.Flags().IntVar(&limit, "limit", 100, "max interactions to process")
	rootCmd.Flags().IntVar(&delayMS, "delay", -1, "delay between items in ms (-1 = from config)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath, dbPath, user string, limit, delayMS int) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if delayMS >= 0 {
		cfg.Pipeline.BatchDelayMS = delayMS
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	llmClient, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return err
	}

	pipeline := core.NewPipeline(st, llmClient, cfg)

	expired := pipeline.ExpireSignals(ctx, user)
	if expired > 0 {
		fmt.Printf("Expired %d stale signal(s)\n", expired)
	}

	pending, err := st.ListUnprocessed(ctx, user, limit)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d interaction(s) to process\n", len(pending))

	delay := time.Duration(cfg.Pipeline.BatchDelayMS) * time.Millisecond
	var processed, failed, experiences, drafts, signals int
	for i, in := range pending {
		if i > 0 && delay > 0 {
			// Throughput throttle, not a correctness mechanism.
			time.Sleep(delay)
		}

		result, err := pipeline.ProcessInteraction(ctx, user, in.ID)
		if err != nil {
			failed++
			log.Printf("interaction %s failed: %v", in.ID, err)
		} else {
			processed++
			experiences += result.ExperiencesAdded
			drafts += result.DraftsCreated
			if result.SignalCreated {
				signals++
			}
		}
		fmt.Printf("[%d/%d] processed=%d failed=%d experiences=%d drafts=%d signals=%d\n",
			i+1, len(pending), processed, failed, experiences, drafts, signals)
	}

	fbProcessed, fbPatterns := pipeline.LearnPending(ctx, user, 50)
	if fbProcessed > 0 {
		fmt.Printf("Learned from %d feedback record(s): %d new pattern(s)\n", fbProcessed, fbPatterns)
	}

	printVoiceSummary(ctx, st, user)
	return nil
}

func printVoiceSummary(ctx context.Context, st store.Store, user string) {
	patterns, err := st.ListVoicePatterns(ctx, user)
	if err != nil {
		log.Printf("failed to load voice profile summary: %v", err)
		return
	}
	if len(patterns) == 0 {
		return
	}

	byCategory := make(map[string]int)
	var order []string
	for _, p := range patterns {
		if _, ok := byCategory[p.Category]; !ok {
			order = append(order, p.Category)
		}
		byCategory[p.Category]++
	}

	fmt.Println("\nLearned patterns by category:")
	for _, c := range order {
		fmt.Printf("  %-26s %d\n", c, byCategory[c])
	}
}
