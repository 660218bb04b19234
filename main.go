package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "pgsieve [config.toml] [pattern]",
	Short: "Selective PostgreSQL to PostgreSQL table transfer",
	Long: `pgsieve runs declared transfer jobs: it recreates each job's target
schema, streams filtered and projected rows from the source with COPY, and
best-effort replicates table constraints.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runTransfer,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to job config file (TOML or YAML)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log compiled queries and per-table detail")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runTransfer(cmd *cobra.Command, args []string) error {
	// Resolve config path: positional arg takes precedence over --config flag
	cfgPath := configPath
	pattern := "*"
	if len(args) > 0 {
		cfgPath = args[0]
	}
	if len(args) > 1 {
		pattern = args[1]
	}
	if cfgPath == "" {
		return fmt.Errorf("config file required: pgsieve <config> [pattern] or pgsieve --config <config>")
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	start := time.Now()

	log.Printf("pgsieve: selective PostgreSQL to PostgreSQL transfer")
	log.Printf("config: %d job(s), pattern=%q", len(cfg.Jobs), pattern)

	reports, err := runJobs(ctx, pattern, cfg, verbose)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range reports {
		r.logSummary()
		if r.Failed() {
			failed++
		}
	}

	log.Printf("finished %d job(s) in %s", len(reports), time.Since(start).Round(time.Millisecond))
	if failed > 0 {
		return fmt.Errorf("%d of %d job(s) failed", failed, len(reports))
	}
	return nil
}
