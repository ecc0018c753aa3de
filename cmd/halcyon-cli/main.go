package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/halcyonops/halcyon/internal/adapter"
	"github.com/halcyonops/halcyon/internal/adapter/prometheus"
	"github.com/halcyonops/halcyon/internal/adapter/synthetic"
	"github.com/halcyonops/halcyon/internal/config"
	"github.com/halcyonops/halcyon/internal/correlate"
	"github.com/halcyonops/halcyon/internal/drift"
	"github.com/halcyonops/halcyon/internal/gate"
	"github.com/halcyonops/halcyon/internal/graph"
	"github.com/halcyonops/halcyon/internal/logging"
	"github.com/halcyonops/halcyon/internal/manifest"
	"github.com/halcyonops/halcyon/internal/portfolio"
	"github.com/halcyonops/halcyon/internal/slo"
	"github.com/halcyonops/halcyon/internal/storage"
	"github.com/halcyonops/halcyon/internal/storage/postgres"
	"github.com/halcyonops/halcyon/internal/storage/sqlite"

	"github.com/google/uuid"
)

var (
	configPath string
	logLevel   string
)

func main() {
	root := &cobra.Command{
		Use:           "halcyon",
		Short:         "SLO error budget engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetDefault(logging.New(logging.ParseLevel(logLevel), "text"))
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug|info|warn|error)")

	root.AddCommand(
		newValidateCmd(),
		newEvaluateCmd(),
		newGateCmd(),
		newDriftCmd(),
		newCorrelateCmd(),
		newRecordDeploymentCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newValidateCmd() *cobra.Command {
	var dir, schemaPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate service manifests in a directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if schemaPath == "" {
				schemaPath = findSchemaFile()
				if schemaPath == "" {
					return fmt.Errorf("could not find schemas/service_v1.json, pass --schema")
				}
			}

			validator, err := manifest.NewValidator(schemaPath)
			if err != nil {
				return fmt.Errorf("failed to initialize validator: %w", err)
			}

			errs := validator.ValidateDirectory(dir)
			if len(errs) == 0 {
				fmt.Println("✓ All manifests are valid")
				return nil
			}

			sort.Slice(errs, func(i, j int) bool { return errs[i].File < errs[j].File })
			fmt.Fprintf(os.Stderr, "✗ Validation failed with %d error(s):\n\n", len(errs))
			for _, e := range errs {
				if e.Path != "" {
					fmt.Fprintf(os.Stderr, "%s: %s: %s\n", filepath.Base(e.File), e.Path, e.Message)
				} else {
					fmt.Fprintf(os.Stderr, "%s: %s\n", filepath.Base(e.File), e.Message)
				}
			}
			os.Exit(1)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "manifests", "directory containing manifest YAML files")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "path to the manifest JSON schema")
	return cmd
}

func newEvaluateCmd() *cobra.Command {
	var dir string
	var persist bool

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate error budgets for all services once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if dir != "" {
				cfg.Manifests.Dir = dir
			}

			withFiles, loadErrs := manifest.LoadFromDirectory(cfg.Manifests.Dir)
			if len(loadErrs) > 0 {
				return fmt.Errorf("failed to load manifests: %s", loadErrs[0].Error())
			}
			if len(withFiles) == 0 {
				return fmt.Errorf("no manifests found in %s", cfg.Manifests.Dir)
			}

			source, err := buildSource(cfg)
			if err != nil {
				return err
			}

			var repo storage.Repository
			if persist {
				repo, err = openRepository(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				defer repo.Close()
			}

			runner := portfolio.NewRunner(source, repo, nil, nil, nil)
			if cfg.Adapter.Step > 0 {
				runner.Step = cfg.Adapter.Step
			}

			results := runner.Run(cmd.Context(), withFiles, time.Now())
			printResults(results)
			os.Exit(portfolio.ExitCode(results))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "override the manifest directory")
	cmd.Flags().BoolVar(&persist, "persist", false, "write budgets and events to storage")
	return cmd
}

func printResults(results []portfolio.ServiceResult) {
	for _, res := range results {
		fmt.Printf("%s (tier=%s)\n", res.Service, res.Tier)
		for _, b := range res.Budgets {
			fmt.Printf("  %-30s %-10s %6.1f%% consumed, %.1f of %.1f minutes burned, burn rate %.4f\n",
				b.SLOID, b.Status, b.PercentConsumed(), b.BurnedMinutes, b.TotalBudgetMinutes, b.BurnRate)
		}
		for _, ev := range res.Events {
			fmt.Printf("  ALERT [%s] %s: %s\n", ev.Severity, ev.RuleID, ev.Message)
		}
		for _, e := range res.Errors {
			fmt.Fprintf(os.Stderr, "  error: %s\n", e)
		}
	}
}

func newGateCmd() *cobra.Command {
	var service, team, sloID string
	var attrs []string

	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Check whether a deployment should proceed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if service == "" {
				return fmt.Errorf("--service is required")
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			repo, err := openRepository(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			m := findManifest(cfg.Manifests.Dir, service)

			slos, err := repo.GetSLOsByService(cmd.Context(), service)
			if err != nil {
				return fmt.Errorf("load SLOs for %s: %w", service, err)
			}

			var total, consumed float64
			for _, s := range slos {
				if sloID != "" && s.ID != sloID {
					continue
				}
				b, err := repo.GetLatestErrorBudget(cmd.Context(), s.ID)
				if err != nil {
					continue
				}
				total += b.TotalBudgetMinutes
				consumed += b.BurnedMinutes
			}

			req := gate.CheckRequest{
				Service:               service,
				BudgetTotalMinutes:    total,
				BudgetConsumedMinutes: consumed,
				Team:                  team,
				Attributes:            parseAttrs(attrs),
			}
			var policy *gate.Policy
			if m != nil {
				req.Tier = m.Metadata.Tier
				req.Downstream = m.Spec.Downstream
				if req.Team == "" {
					req.Team = m.Metadata.Team
				}
				if _, ok := req.Attributes["environment"]; !ok {
					req.Attributes["environment"] = m.Spec.Environment
				}
				policy = m.Spec.GatePolicy
			}

			decision := gate.NewGate().Check(req, policy)
			printJSON(decision)
			os.Exit(decision.Result.ExitCode())
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "service to check")
	cmd.Flags().StringVar(&sloID, "slo", "", "restrict the check to one SLO")
	cmd.Flags().StringVar(&team, "team", "", "deploying team, for policy exceptions")
	cmd.Flags().StringArrayVar(&attrs, "attr", nil, "request attribute key=value, repeatable")
	return cmd
}

func newDriftCmd() *cobra.Command {
	var sloID, tier, window string

	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Analyze long-term budget drift for an SLO",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sloID == "" {
				return fmt.Errorf("--slo is required")
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			repo, err := openRepository(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			lookback := drift.DefaultWindowForTier(tier)
			if window != "" {
				d, err := slo.ParseDuration(window)
				if err != nil {
					return fmt.Errorf("invalid window: %w", err)
				}
				lookback = d
			}

			points, err := repo.GetBudgetRatioHistory(cmd.Context(), sloID, time.Now().Add(-lookback))
			if err != nil {
				return fmt.Errorf("load budget history: %w", err)
			}

			driftCfg := drift.DefaultConfig()
			analyzer := drift.NewAnalyzer(driftCfg, drift.NewSplitDetector(driftCfg.StepChangeThreshold))
			result, err := analyzer.Analyze(points)
			if err != nil {
				return err
			}

			printJSON(result)
			os.Exit(result.ExitCode)
			return nil
		},
	}

	cmd.Flags().StringVar(&sloID, "slo", "", "SLO to analyze")
	cmd.Flags().StringVar(&tier, "tier", "standard", "service tier, selects the default window")
	cmd.Flags().StringVar(&window, "window", "", "analysis window, e.g. 60d (overrides tier default)")
	return cmd
}

func newCorrelateCmd() *cobra.Command {
	var service, sloID string
	var lookbackHours int

	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Correlate recent deployments with budget burn",
		RunE: func(cmd *cobra.Command, args []string) error {
			if service == "" || sloID == "" {
				return fmt.Errorf("--service and --slo are required")
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			repo, err := openRepository(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			target, err := repo.GetSLO(cmd.Context(), sloID)
			if err != nil {
				return fmt.Errorf("load SLO %s: %w", sloID, err)
			}

			depGraph, closeGraph, err := buildGraph(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if closeGraph != nil {
				defer closeGraph()
			}

			var downstream []string
			if m := findManifest(cfg.Manifests.Dir, service); m != nil {
				downstream = m.DownstreamNames()
			}

			if lookbackHours <= 0 {
				lookbackHours = cfg.Correlation.LookbackHours
			}
			deployments, err := repo.GetRecentDeployments(cmd.Context(), service, time.Duration(lookbackHours)*time.Hour)
			if err != nil {
				return fmt.Errorf("load deployments: %w", err)
			}
			if len(deployments) == 0 {
				fmt.Printf("no deployments for %s in the last %dh\n", service, lookbackHours)
				return nil
			}

			corrCfg := correlate.DefaultConfig()
			if d, err := slo.ParseDuration(cfg.Correlation.BeforeWindow); err == nil {
				corrCfg.BeforeWindow = d
			}
			if d, err := slo.ParseDuration(cfg.Correlation.AfterWindow); err == nil {
				corrCfg.AfterWindow = d
			}

			correlator := correlate.NewCorrelator(repo, depGraph, corrCfg, nil)
			now := time.Now()
			for _, d := range deployments {
				result, err := correlator.Correlate(cmd.Context(), d, target, downstream, now)
				if err != nil {
					fmt.Fprintf(os.Stderr, "deployment %s: %v\n", d.ID, err)
					continue
				}
				fmt.Printf("%s deployed %s: confidence %.2f (%s), %.1f burn minutes attributed\n",
					d.Service, d.DeployedAt.Format(time.RFC3339),
					result.Confidence, correlate.ConfidenceLabel(result.Confidence), result.BurnMinutes)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "deployed service")
	cmd.Flags().StringVar(&sloID, "slo", "", "affected SLO")
	cmd.Flags().IntVar(&lookbackHours, "lookback", 0, "deployment lookback in hours")
	return cmd
}

func newRecordDeploymentCmd() *cobra.Command {
	var service, environment, sha, author string
	var pr int

	cmd := &cobra.Command{
		Use:   "record-deployment",
		Short: "Record a deployment event for later correlation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if service == "" {
				return fmt.Errorf("--service is required")
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			repo, err := openRepository(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			d := &correlate.Deployment{
				ID:          uuid.NewString(),
				Service:     service,
				Environment: environment,
				DeployedAt:  time.Now(),
				CommitSHA:   sha,
				Author:      author,
				PRNumber:    pr,
			}
			if err := repo.RecordDeployment(cmd.Context(), d); err != nil {
				return fmt.Errorf("record deployment: %w", err)
			}

			fmt.Printf("recorded deployment %s for %s\n", d.ID, service)
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "deployed service")
	cmd.Flags().StringVar(&environment, "environment", "production", "deployment environment")
	cmd.Flags().StringVar(&sha, "sha", "", "commit SHA")
	cmd.Flags().StringVar(&author, "author", "", "deployment author")
	cmd.Flags().IntVar(&pr, "pr", 0, "pull request number")
	return cmd
}

// Shared helpers.

func openRepository(ctx context.Context, cfg *config.Config) (storage.Repository, error) {
	switch cfg.Storage.Backend {
	case "postgres":
		return postgres.NewStore(ctx, cfg.Storage.Postgres.DSN())
	default:
		return sqlite.NewStore(cfg.Storage.SQLite.Path)
	}
}

func buildSource(cfg *config.Config) (adapter.TimeSeriesSource, error) {
	switch cfg.Adapter.Provider {
	case "synthetic":
		return synthetic.NewAdapter(), nil
	default:
		pc := prometheus.DefaultConfig(cfg.Adapter.Prometheus.URL)
		if cfg.Adapter.Prometheus.Timeout > 0 {
			pc.Timeout = cfg.Adapter.Prometheus.Timeout
		}
		return prometheus.NewAdapter(pc), nil
	}
}

// buildGraph returns the dependency graph plus an optional close func.
func buildGraph(ctx context.Context, cfg *config.Config) (graph.DependencyGraph, func(), error) {
	if cfg.Graph.Backend == "neo4j" {
		g, err := graph.NewNeo4j(ctx, cfg.Graph.Neo4j.URI, cfg.Graph.Neo4j.Username, cfg.Graph.Neo4j.Password)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to neo4j: %w", err)
		}
		return g, func() { g.Close(ctx) }, nil
	}

	// Static graph assembled from manifest downstream declarations.
	downstream := make(map[string][]string)
	withFiles, _ := manifest.LoadFromDirectory(cfg.Manifests.Dir)
	for _, wf := range withFiles {
		downstream[wf.Manifest.Metadata.Service] = wf.Manifest.DownstreamNames()
	}
	return graph.NewStatic(downstream), nil, nil
}

func findManifest(dir, service string) *manifest.Manifest {
	withFiles, _ := manifest.LoadFromDirectory(dir)
	for _, wf := range withFiles {
		if wf.Manifest.Metadata.Service == service {
			return wf.Manifest
		}
	}
	return nil
}

func parseAttrs(attrs []string) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		if k, v, ok := strings.Cut(a, "="); ok {
			out[k] = v
		}
	}
	return out
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

func findSchemaFile() string {
	candidates := []string{
		"schemas/service_v1.json",
		"../schemas/service_v1.json",
		"../../schemas/service_v1.json",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
