package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	apperrors "github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/errors"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/models"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/security"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/planner/pkg/scenario"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/sim/pkg/replay"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/xapp/pkg/policy"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/xapp/pkg/store"
)

const (
	appName = "nearrt-mock"
	version = "v0.1.0"
)

// Config holds the mock CLI options
type Config struct {
	ScenarioFile string
	PolicyDir    string
	OutputDir    string
	UavID        string
	Verbose      bool
}

func main() {
	config := parseFlags()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stdout)
	if config.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	written, err := run(context.Background(), config, log.StandardLogger())
	if err != nil {
		log.Fatalf("Replay failed: %v", err)
	}
	for _, path := range written {
		log.Infof("Wrote decisions to %s", path)
	}
}

func parseFlags() Config {
	var config Config

	flag.StringVar(&config.ScenarioFile, "scenario", "", "Scenario YAML with UAV paths")
	flag.StringVar(&config.PolicyDir, "policies", "policies", "Directory of flight plans written by the planner")
	flag.StringVar(&config.OutputDir, "output", "decisions", "Directory for <uav_id>.jsonl decision records")
	flag.StringVar(&config.UavID, "uav", "", "Replay only this UAV")
	flag.BoolVar(&config.Verbose, "verbose", false, "Enable verbose logging")

	help := flag.Bool("help", false, "Show help message")
	versionFlag := flag.Bool("version", false, "Show version")

	flag.Parse()

	if *help {
		fmt.Printf("%s %s - Near-RT loop mock replaying UAV paths through the decision policy\n\n", appName, version)
		fmt.Println("Usage:")
		fmt.Printf("  %s --scenario <file> [--policies <dir>] [--output <dir>]\n", appName)
		fmt.Println("\nOptions:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("%s %s\n", appName, version)
		os.Exit(0)
	}

	if config.ScenarioFile == "" {
		log.Fatal("Scenario file must be specified")
	}
	return config
}

// run replays every selected UAV and returns the written file paths
func run(ctx context.Context, config Config, logger log.FieldLogger) ([]string, error) {
	s, err := scenario.Load(config.ScenarioFile)
	if err != nil {
		return nil, err
	}
	plans, err := store.NewFileStore(config.PolicyDir)
	if err != nil {
		return nil, err
	}
	if err := security.SecureCreateDir(config.OutputDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	service := s.ServiceProfile()
	var written []string
	for _, u := range s.UAVs {
		if config.UavID != "" && u.UavID != config.UavID {
			continue
		}

		var plan *models.FlightPlanPolicy
		p, err := plans.Get(ctx, u.UavID)
		switch {
		case err == nil:
			plan = &p
		case apperrors.IsNotFound(err):
			logger.WithField("uav_id", u.UavID).Warn("No flight plan found, replaying with the reactive rule")
		default:
			return written, err
		}

		steps, err := replay.Run(replay.Input{
			UavID:     u.UavID,
			Waypoints: u.Waypoints,
			RadioMap:  u.RadioMapFor(),
			Plan:      plan,
			Service:   &service,
		}, policy.DefaultOptions())
		if err != nil {
			return written, fmt.Errorf("failed to replay %s: %w", u.UavID, err)
		}

		path, err := writeSteps(config.OutputDir, u.UavID, steps)
		if err != nil {
			return written, err
		}
		logger.WithFields(log.Fields{
			"uav_id": u.UavID,
			"steps":  len(steps),
		}).Debug("Replayed UAV path")
		written = append(written, path)
	}

	if config.UavID != "" && len(written) == 0 {
		return nil, apperrors.NewNotFoundError("uav", config.UavID)
	}
	return written, nil
}

func writeSteps(dir, uavID string, steps []replay.Step) (string, error) {
	path, err := security.SecureJoinPath(dir, uavID+".jsonl")
	if err != nil {
		return "", err
	}
	f, err := security.SecureCreateFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := replay.WriteJSONL(f, steps); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	return path, nil
}
