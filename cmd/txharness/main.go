/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/tomoncle/txharness"
	"github.com/tomoncle/txharness/config"
	"github.com/tomoncle/txharness/database"
	"github.com/tomoncle/txharness/metrics"
	"github.com/tomoncle/txharness/utils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = color.New(color.FgRed).Fprintf(os.Stderr, "txharness: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "txharness",
		Short:         "Concurrency harness for transaction-scoped repositories",
		Long:          "txharness runs N concurrent workers, each inserting a disjoint batch of todos and users in its own transaction, and verifies the committed result.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", os.Getenv("TXHARNESS_CONFIG"), "YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: trace|debug|info|warn|error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text|json")

	rootCmd.AddCommand(newRunCmd(), newHealthCmd())
	return rootCmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the workers and verify the committed rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			db, err := database.InitDB(ctx, cfg.ConfigLoader())
			if err != nil {
				return err
			}
			defer func() { _ = database.CloseDB() }()

			reg := prometheus.NewRegistry()
			m := metrics.New(reg)
			db.AddQueryHook(m.QueryHook())
			if err := metrics.RegisterDBStats(reg, db.DB, cfg.Database.DBName); err != nil {
				return fmt.Errorf("register pool metrics: %w", err)
			}

			h, err := txharness.New(db, cfg.HarnessOptions(), txharness.WithMetrics(m))
			if err != nil {
				return err
			}
			report, runErr := h.Run(ctx)
			printReport(cmd.OutOrStdout(), report, runErr)

			if cfg.Metrics.File != "" {
				if err := metrics.WriteTextfile(reg, cfg.Metrics.File); err != nil && runErr == nil {
					return fmt.Errorf("write metrics: %w", err)
				}
			}
			return runErr
		},
	}
	cmd.Flags().IntP("workers", "n", 0, "Number of concurrent workers (N)")
	cmd.Flags().IntP("rows", "m", 0, "Rows inserted per worker and table (M)")
	cmd.Flags().Bool("fail-fast", true, "Cancel the remaining workers on the first failure")
	cmd.Flags().Bool("verify-own-writes", false, "Read every row back inside the worker transaction before commit")
	cmd.Flags().Bool("create-tables", false, "Create missing tables before the run")
	cmd.Flags().Bool("truncate", true, "Empty the tables before the run")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics of the run to this file")
	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check database connectivity and pool statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			dbCfg := cfg.ConfigLoader()
			dbCfg.SchemaConfig.CreateTables = false
			if _, err := database.InitDB(cmd.Context(), dbCfg); err != nil {
				return err
			}
			defer func() { _ = database.CloseDB() }()

			status := database.GetHealthStatus(cmd.Context())
			stats := database.GetDatabaseStats()
			printHealth(cmd.OutOrStdout(), cfg.Database.Type, status, stats)
			if !status.Healthy {
				return fmt.Errorf("%w: %s", database.ErrConnectivity, status.LastError)
			}
			return nil
		},
	}
}

// loadConfig reads the configuration, applies command line overrides and
// configures logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Run.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("rows") {
		cfg.Run.RowsPerWorker, _ = flags.GetInt("rows")
	}
	if flags.Changed("fail-fast") {
		cfg.Run.FailFast, _ = flags.GetBool("fail-fast")
	}
	if flags.Changed("verify-own-writes") {
		cfg.Run.VerifyOwnWrites, _ = flags.GetBool("verify-own-writes")
	}
	if flags.Changed("create-tables") {
		cfg.Schema.CreateTables, _ = flags.GetBool("create-tables")
	}
	if flags.Changed("truncate") {
		cfg.Schema.TruncateTables, _ = flags.GetBool("truncate")
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.File, _ = flags.GetString("metrics-file")
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := flags.GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	utils.ConfigureLogLevel(cfg.Log.Level)
	utils.ConfigureConsoleLogFormat(cfg.Log.Format)
	return cfg, nil
}

var (
	passColor  = color.New(color.FgGreen, color.Bold)
	failColor  = color.New(color.FgRed, color.Bold)
	labelColor = color.New(color.FgCyan)
)

func verdict(ok bool) string {
	if ok {
		return passColor.Sprint("PASS")
	}
	return failColor.Sprint("FAIL")
}

func printReport(w io.Writer, report *txharness.Report, runErr error) {
	if report == nil {
		return
	}
	opts := report.Options
	_, _ = fmt.Fprintf(w, "%s %s\n", labelColor.Sprint("run:"), report.RunID)
	_, _ = fmt.Fprintf(w, "%s %d x %d rows (fail-fast=%t, verify-own-writes=%t)\n",
		labelColor.Sprint("workers:"), opts.Workers, opts.RowsPerWorker, opts.FailFast, opts.VerifyOwnWrites)
	_, _ = fmt.Fprintf(w, "%s %d committed, %d failed in %s\n",
		labelColor.Sprint("result:"), report.Committed(), report.Failed(), report.Duration())
	if report.Pool != nil {
		_, _ = fmt.Fprintf(w, "%s %d waits, %s waited\n",
			labelColor.Sprint("pool:"), report.Pool.WaitCount, report.Pool.WaitDuration)
	}
	if report.Verification != nil {
		for _, t := range report.Verification.Tables {
			_, _ = fmt.Fprintf(w, "  %-6s %-8s %d/%d rows, %s\n", verdict(t.OK()), t.Table, t.Rows, t.Expected, t.Order.Desc())
			for _, p := range t.Problems() {
				_, _ = fmt.Fprintf(w, "         - %s\n", p)
			}
		}
	}
	if runErr != nil {
		_, _ = fmt.Fprintf(w, "%s %v\n", verdict(false), runErr)
		return
	}
	_, _ = fmt.Fprintf(w, "%s all %d rows per table verified\n", verdict(true), opts.ExpectedRows())
}

func printHealth(w io.Writer, dbType string, h *database.HealthStatus, s *database.DBStats) {
	_, _ = fmt.Fprintf(w, "%s %s\n", labelColor.Sprint("database:"), dbType)
	_, _ = fmt.Fprintf(w, "%s %s (%s)\n", labelColor.Sprint("health:"), verdict(h.Healthy), h.ResponseTime)
	if h.LastError != "" {
		_, _ = fmt.Fprintf(w, "%s %s\n", labelColor.Sprint("error:"), h.LastError)
	}
	_, _ = fmt.Fprintf(w, "%s open=%d in_use=%d idle=%d max_open=%d\n",
		labelColor.Sprint("pool:"), s.OpenConns, s.InUse, s.Idle, s.MaxOpenConns)
}
