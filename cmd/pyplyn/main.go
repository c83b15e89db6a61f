// Command pyplyn runs the time-series ETL service described by spec.md:
// periodically reload Configurations, schedule one task per Configuration,
// and run Extract/Transform/Load on each tick.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pyplyn/pyplyn/internal/config"
	"github.com/pyplyn/pyplyn/internal/model"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "pyplyn",
		Short: "pyplyn runs a scheduled time-series ETL pipeline",
	}

	root.AddCommand(newRunCommand())
	root.AddCommand(newValidateCommand())
	root.AddCommand(newStatusCommand())
	return root
}

func newRunCommand() *cobra.Command {
	var appConfigPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the UpdateManager and Scheduler, blocking until shutdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			defer logger.Sync()

			a, err := buildApp(appConfigPath, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			mux := http.NewServeMux()
			mux.Handle("/metrics", a.metricsHandler())
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				if a.shutdown.Draining() {
					w.WriteHeader(http.StatusServiceUnavailable)
					return
				}
				w.WriteHeader(http.StatusOK)
			})
			metricsSrv := &http.Server{Addr: ":9090", Handler: mux}
			go func() {
				if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("metrics server exited", zap.Error(err))
				}
			}()

			go a.updater.Run(ctx)

			<-ctx.Done()
			a.shutdown.Drain()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&appConfigPath, "config", "./config/app.yaml", "Path to the AppConfig YAML file")
	return cmd
}

func newValidateCommand() *cobra.Command {
	var appConfigPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate AppConfig, Connectors, and Configurations without running",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := config.Load(appConfigPath)
			if err != nil {
				return fmt.Errorf("app config: %w", err)
			}

			if _, err := buildApp(appConfigPath, zap.NewNop()); err != nil {
				return err
			}

			loader := config.NewYAMLLoader(appCfg.Global.ConfigurationsPath)
			set, err := loader.Load()
			if err != nil {
				return fmt.Errorf("configurations: %w", err)
			}

			fmt.Printf("config ok: %d configuration(s), %d runnable\n", len(set), countRunnable(set))
			return nil
		},
	}

	cmd.Flags().StringVar(&appConfigPath, "config", "./config/app.yaml", "Path to the AppConfig YAML file")
	return cmd
}

func newStatusCommand() *cobra.Command {
	var url string
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Poll a running pyplyn instance's /metrics endpoint and print live counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			fmt.Printf("polling %s (Ctrl+C to stop)\n", url)
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := printMetricsSnapshot(url); err != nil {
						fmt.Fprintf(os.Stderr, "status: %v\n", err)
					}
				}
			}
		},
	}

	cmd.Flags().StringVar(&url, "url", "http://localhost:9090/metrics", "Metrics endpoint to poll")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Poll interval")
	return cmd
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := map[string]float64{
		"pyplyn_meter_total": 0,
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key) {
				var value float64
				if idx := strings.LastIndex(line, " "); idx >= 0 {
					if _, err := fmt.Sscanf(line[idx+1:], "%f", &value); err == nil {
						targets[key] += value
					}
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] meter_events=%.0f\n", time.Now().Format(time.RFC3339), targets["pyplyn_meter_total"])
	return nil
}

func countRunnable(set model.Set) int {
	n := 0
	for _, c := range set {
		if c.Runnable() {
			n++
		}
	}
	return n
}
