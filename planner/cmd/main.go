package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/models"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/planner/pkg/planner"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/planner/pkg/scenario"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/xapp/pkg/store"
)

const (
	appName = "uav-path-planner"
	version = "v0.1.0"
)

// Config holds the planner CLI options
type Config struct {
	ScenarioFile string
	OutputDir    string
	Publish      bool
	Namespace    string
	Kubeconfig   string
	Parallelism  int
	LogLevel     string
	LogFormat    string
}

func main() {
	config := parseFlags()
	setupLogging(config.LogLevel, config.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config, log.StandardLogger()); err != nil {
		log.Fatalf("Planning failed: %v", err)
	}
}

func parseFlags() Config {
	var config Config

	flag.StringVar(&config.ScenarioFile, "scenario", "", "Scenario YAML with UAV paths")
	flag.StringVar(&config.OutputDir, "output", "policies", "Directory for <uav_id>.json flight plans")
	flag.BoolVar(&config.Publish, "publish", false, "Also publish flight plans as Kubernetes ConfigMaps")
	flag.StringVar(&config.Namespace, "namespace", "default", "Namespace for published ConfigMaps")
	flag.StringVar(&config.Kubeconfig, "kubeconfig", "", "Path to kubeconfig (in-cluster config when empty)")
	flag.IntVar(&config.Parallelism, "parallelism", runtime.NumCPU(), "Maximum UAVs planned concurrently")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level")
	flag.StringVar(&config.LogFormat, "log-format", "text", "Log format (text or json)")

	help := flag.Bool("help", false, "Show help message")
	versionFlag := flag.Bool("version", false, "Show version")

	flag.Parse()

	if *help {
		fmt.Printf("%s %s - Non-RT UAV path-aware cell planner\n\n", appName, version)
		fmt.Println("Usage:")
		fmt.Printf("  %s --scenario <file> [--output <dir>] [--publish]\n", appName)
		fmt.Println("\nOptions:")
		flag.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Printf("  %s --scenario scenarios/uav_paths.yaml --output policies\n", appName)
		fmt.Printf("  %s --scenario scenarios/uav_paths.yaml --publish --namespace ric\n", appName)
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("%s %s\n", appName, version)
		os.Exit(0)
	}

	if config.ScenarioFile == "" {
		if len(flag.Args()) > 0 {
			config.ScenarioFile = flag.Args()[0]
		} else {
			log.Fatal("Scenario file must be specified")
		}
	}

	return config
}

func run(ctx context.Context, config Config, logger log.FieldLogger) error {
	s, err := scenario.Load(config.ScenarioFile)
	if err != nil {
		return err
	}
	logger.WithFields(log.Fields{
		"scenario": s.ScenarioID,
		"uavs":     len(s.UAVs),
	}).Info("Loaded scenario")

	policies, err := planScenario(ctx, s, config.Parallelism)
	if err != nil {
		return err
	}

	files, err := store.NewFileStore(config.OutputDir)
	if err != nil {
		return err
	}
	if err := writePolicies(ctx, files, policies, logger); err != nil {
		return err
	}
	logger.Infof("Wrote %d flight plans to %s", len(policies), files.Dir())

	if config.Publish {
		client, err := store.NewKubernetesClient(config.Kubeconfig)
		if err != nil {
			return err
		}
		if err := writePolicies(ctx, store.NewConfigMapStore(client, config.Namespace), policies, logger); err != nil {
			return err
		}
		logger.Infof("Published %d flight plans to namespace %s", len(policies), config.Namespace)
	}
	return nil
}

// planScenario plans every UAV of the scenario, at most parallelism at a
// time. Results keep the scenario order.
func planScenario(ctx context.Context, s *scenario.Scenario, parallelism int) ([]models.FlightPlanPolicy, error) {
	if parallelism < 1 {
		parallelism = 1
	}
	service := s.ServiceProfile()
	policies := make([]models.FlightPlanPolicy, len(s.UAVs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, u := range s.UAVs {
		i, u := i, u
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			policy, err := planner.PlanFlightPath(u.UavID, u.Waypoints, u.RadioMapFor(), service, s.Planner)
			if err != nil {
				return fmt.Errorf("failed to plan %s: %w", u.UavID, err)
			}
			policies[i] = policy
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return policies, nil
}

func writePolicies(ctx context.Context, st store.Store, policies []models.FlightPlanPolicy, logger log.FieldLogger) error {
	for _, p := range policies {
		if err := st.Put(ctx, p); err != nil {
			return fmt.Errorf("failed to store flight plan for %s: %w", p.UavID, err)
		}
		logger.WithFields(log.Fields{
			"uav_id":   p.UavID,
			"segments": len(p.Segments),
		}).Debug("Stored flight plan")
	}
	return nil
}

func setupLogging(level, format string) {
	logLevel, err := log.ParseLevel(level)
	if err != nil {
		logLevel = log.InfoLevel
		log.Warnf("Invalid log level %s, using info", level)
	}
	log.SetLevel(logLevel)

	if format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp: true,
		})
	}

	log.SetOutput(os.Stdout)
}
