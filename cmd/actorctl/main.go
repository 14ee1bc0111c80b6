// Command actorctl is a small operational CLI around the actor core
// resolve pipeline: resolving a single actor against a config directory,
// dumping the effective caps a config directory would produce, and
// validating a config directory without running a resolve.
//
// Usage:
//
//	actorctl resolve --actor <path> [--config <dir>] [--stats]
//	actorctl dump-caps --actor <path> [--config <dir>]
//	actorctl validate-config <dir>
//
// Exit codes: 0 success, 2 validation failure, 3 cap violation,
// 4 cancelled, 1 unexpected error.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/R3E-Network/actorcore/examples/leveling"
	"github.com/R3E-Network/actorcore/infrastructure/config"
	"github.com/R3E-Network/actorcore/infrastructure/logging"
	"github.com/R3E-Network/actorcore/infrastructure/metrics"
	engine "github.com/R3E-Network/actorcore/system/core"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "resolve":
		err = cmdResolve(ctx, args)
	case "dump-caps":
		err = cmdDumpCaps(ctx, args)
	case "validate-config":
		err = cmdValidateConfig(args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(engine.CLIExitCode(err))
	}
}

func printUsage() {
	fmt.Println(`actorctl - actor core resolve pipeline CLI

Usage:
  actorctl resolve --actor <path> [--config <dir>] [--stats]
  actorctl dump-caps --actor <path> [--config <dir>]
  actorctl validate-config <dir>

Environment:
  ACTORCORE_CONFIG_DIR       default config directory (overridden by --config)
  ACTORCORE_STRICT_MODE      treat an empty composed cap range as a hard error
  ACTORCORE_EXTENDED_BUCKETS enable EXPONENTIAL/LOGARITHMIC/CONDITIONAL buckets
  LOG_LEVEL, LOG_FORMAT      structured logger configuration

Exit codes:
  0 success, 2 validation failure, 3 cap violation, 4 cancelled, 1 other`)
}

// buildEngine loads configuration from configDir (falling back to the
// environment/default precedence in config.LoadEnv) and assembles a ready
// Engine with the leveling example subsystem registered.
func buildEngine(configDir string) (*engine.Engine, *logging.Logger, error) {
	env, err := config.LoadEnv("")
	if err != nil {
		return nil, nil, fmt.Errorf("loading environment: %w", err)
	}
	if configDir == "" {
		configDir = env.ConfigDir
	}

	log := logging.NewFromEnv("actorctl")
	met := metrics.New("actorctl")

	builder := engine.NewBuilder()
	if err := builder.Registry().Register(leveling.New(100)); err != nil {
		return nil, nil, fmt.Errorf("registering leveling subsystem: %w", err)
	}

	if layers, policy, shrink, err := config.LoadCapLayers(configDir); err == nil {
		if err := builder.CapLayers().LoadLayers(layers, policy); err != nil {
			return nil, nil, fmt.Errorf("loading cap layers: %w", err)
		}
		builder.CapLayers().SetShrinkOnViolation(shrink)
	}

	if rules, disableDefault, err := config.LoadCombinerRules(configDir); err == nil {
		if disableDefault {
			builder.Combiners().DisableDefault()
		}
		if err := builder.Combiners().LoadRules(rules); err != nil {
			return nil, nil, fmt.Errorf("loading combiner rules: %w", err)
		}
	}

	eng, err := builder.With(
		engine.WithLogger(logging.NewEngineAdapter(log)),
		engine.WithMetrics(metrics.NewEngineAdapter(met, "actorctl")),
		engine.WithExtendedBuckets(env.ExtendedFlag),
		engine.WithStrictCaps(env.StrictMode),
	).Build()
	if err != nil {
		return nil, nil, fmt.Errorf("building engine: %w", err)
	}
	return eng, log, nil
}

func cmdResolve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	actorPath := fs.String("actor", "", "path to an actor JSON file")
	configDir := fs.String("config", "", "config directory (overrides ACTORCORE_CONFIG_DIR)")
	showStats := fs.Bool("stats", false, "report process RSS/CPU alongside the resolve")
	fs.Parse(args)

	if *actorPath == "" {
		return &engine.EngineError{Kind: engine.KindValidation, Code: engine.CodeContributionInvalid, Message: "--actor is required"}
	}

	actor, err := loadActor(*actorPath)
	if err != nil {
		return err
	}

	eng, _, err := buildEngine(*configDir)
	if err != nil {
		return err
	}

	start := time.Now()
	snap, err := eng.Resolve(ctx, actor)
	if err != nil {
		return err
	}

	fmt.Printf("actor: %s (version %d)\n", snap.ActorID, snap.ActorVersion)
	fmt.Printf("fingerprint: %x\n", snap.Fingerprint)
	fmt.Printf("resolved in: %s\n", time.Since(start))
	printSnapshot(snap)

	if *showStats {
		printProcessStats()
	}
	return nil
}

func cmdDumpCaps(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dump-caps", flag.ExitOnError)
	actorPath := fs.String("actor", "", "path to an actor JSON file")
	configDir := fs.String("config", "", "config directory (overrides ACTORCORE_CONFIG_DIR)")
	fs.Parse(args)

	if *actorPath == "" {
		return &engine.EngineError{Kind: engine.KindValidation, Code: engine.CodeContributionInvalid, Message: "--actor is required"}
	}

	actor, err := loadActor(*actorPath)
	if err != nil {
		return err
	}

	eng, _, err := buildEngine(*configDir)
	if err != nil {
		return err
	}

	snap, err := eng.Resolve(ctx, actor)
	if err != nil {
		return err
	}

	for _, dim := range snap.Dimensions() {
		caps, ok := snap.Caps[dim]
		if !ok {
			continue
		}
		fmt.Printf("%-24s min=%-12g max=%-12g", dim, caps.Min, caps.Max)
		if caps.SoftMin != nil {
			fmt.Printf(" soft_min=%g", *caps.SoftMin)
		}
		if caps.SoftMax != nil {
			fmt.Printf(" soft_max=%g", *caps.SoftMax)
		}
		fmt.Println()
	}
	return nil
}

func cmdValidateConfig(args []string) error {
	fs := flag.NewFlagSet("validate-config", flag.ExitOnError)
	fs.Parse(args)

	remaining := fs.Args()
	if len(remaining) < 1 {
		return &engine.EngineError{Kind: engine.KindValidation, Code: engine.CodeContributionInvalid, Message: "validate-config requires a directory argument"}
	}
	dir := remaining[0]

	builder := engine.NewBuilder()

	layers, policy, shrink, err := config.LoadCapLayers(dir)
	if err != nil {
		return err
	}
	if err := builder.CapLayers().LoadLayers(layers, policy); err != nil {
		return err
	}
	builder.CapLayers().SetShrinkOnViolation(shrink)

	rules, disableDefault, err := config.LoadCombinerRules(dir)
	if err != nil {
		return err
	}
	if disableDefault {
		builder.Combiners().DisableDefault()
	}
	if err := builder.Combiners().LoadRules(rules); err != nil {
		return err
	}

	if _, err := builder.Build(); err != nil {
		return err
	}

	fmt.Printf("%s: %d cap layers, %d combiner rules, policy %s\n", dir, len(layers), len(rules), policy)
	return nil
}

func printSnapshot(snap *engine.Snapshot) {
	for _, dim := range snap.Dimensions() {
		v, _ := snap.Value(dim)
		fmt.Printf("%-24s %g\n", dim, v)
	}
	if len(snap.Flags) > 0 {
		fmt.Printf("flags: %v\n", snap.Flags)
	}
}

func printProcessStats() {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "stats unavailable: %v\n", err)
		return
	}
	memInfo, err := proc.MemoryInfo()
	if err == nil && memInfo != nil {
		fmt.Printf("rss: %.2f MiB\n", float64(memInfo.RSS)/(1024*1024))
	}
	cpuPct, err := proc.CPUPercent()
	if err == nil {
		fmt.Printf("cpu: %.2f%%\n", cpuPct)
	}
}
