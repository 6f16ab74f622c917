package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stagehand/stagehand/pkg/logger"
	"github.com/stagehand/stagehand/pkg/optimizer"
	"github.com/stagehand/stagehand/pkg/resources"
	"github.com/stagehand/stagehand/pkg/state"
	"github.com/stagehand/stagehand/pkg/types"
	"github.com/stagehand/stagehand/pkg/validation"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and environment",
		Long:  `Load the configuration and run the environment checks without deploying.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate()
		},
	}
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Show optimizer capabilities and resource usage",
		Long:  `Probe the native optimization tools and print a fresh resource sample.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor()
		},
	}
}

func newInitCmd() *cobra.Command {
	var name string
	var projectVersion string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(name, projectVersion, force)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "project name (default: directory name)")
	cmd.Flags().StringVar(&projectVersion, "project-version", "1.0.0", "initial project version")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing configuration")

	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the result of the last deployment run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove deployment outputs and state",
		Long:  `Remove the dist tree, the archive directory and the saved run state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("🎬 Stagehand v%s\n", version)
		},
	}
}

func runValidate() error {
	console := logger.NewConsoleLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	console.Success("Configuration is valid")

	log := newLogger(cfg)
	monitor := resources.NewMonitor(log)

	result := validation.NewEnvironmentValidator(cfg, monitor, log).Validate()
	for _, checkErr := range result.Errors {
		if checkErr.Level == validation.LevelError {
			console.Error(checkErr.Error())
		} else {
			console.Warn(checkErr.Error())
		}
	}

	if !result.Valid {
		return fmt.Errorf("environment validation failed")
	}
	console.Success("Environment is ready")
	return nil
}

func runDoctor() error {
	log := logger.CreateLogger("", "error")
	runner := optimizer.NewExecRunner()
	caps := optimizer.ResolveCapabilities(runner, log)

	fmt.Println(color.CyanString("Optimizer capabilities:"))
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	for _, kind := range []types.AssetKind{
		types.AssetKindImage,
		types.AssetKindVideo,
		types.AssetKindStylesheet,
		types.AssetKindScript,
	} {
		method := caps[kind]
		label := color.GreenString(string(method))
		if method == types.OptimizeMethodFallback {
			label = color.YellowString(string(method))
		}
		fmt.Fprintf(w, "  %s\t%s\n", kind, label)
	}
	w.Flush()

	monitor := resources.NewMonitor(log)
	sample := monitor.Sample()

	fmt.Println(color.CyanString("\nResource sample:"))
	if sample.Unavailable {
		fmt.Println("  unavailable on this host")
		return nil
	}
	fmt.Printf("  resident: %.1f MB (%.1f%% of system)\n", sample.ResidentMB, sample.PercentOfSystem)
	fmt.Printf("  virtual:  %.1f MB\n", sample.VirtualMB)
	fmt.Printf("  system available: %.0f MB\n", sample.SystemAvailableMB)

	if free, err := monitor.DiskFreeMB("."); err == nil {
		fmt.Printf("  disk free: %.0f MB\n", free)
	}

	return nil
}

func runInit(name, projectVersion string, force bool) error {
	console := logger.NewConsoleLogger()

	if name == "" {
		abs, err := filepath.Abs(projectRoot)
		if err != nil {
			return err
		}
		name = filepath.Base(abs)
	}

	path := filepath.Join(projectRoot, "stagehand.config.json")
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := types.DefaultConfig(name, projectVersion)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	console.Success(fmt.Sprintf("Created %s for project %q", path, name))
	return nil
}

func runStatus() error {
	summary, err := state.NewManager(projectRoot).LastRun()
	if err != nil {
		return err
	}
	if summary == nil {
		fmt.Println("No deployment has run yet")
		return nil
	}

	stateLabel := color.RedString(string(summary.State))
	if summary.Succeeded() {
		stateLabel = color.GreenString(string(summary.State))
	}

	fmt.Printf("Run %s\n", summary.ID)
	fmt.Printf("  state:    %s\n", stateLabel)
	fmt.Printf("  started:  %s\n", summary.StartedAt.Format(time.RFC3339))
	fmt.Printf("  duration: %s\n", summary.Duration.Round(time.Millisecond))
	if summary.ArchivePath != "" {
		fmt.Printf("  archive:  %s\n", summary.ArchivePath)
	}
	if summary.FailureHint != "" {
		fmt.Printf("  failure:  %s\n", color.RedString(summary.FailureHint))
	}

	if len(summary.Phases) > 0 {
		fmt.Println("  phases:")
		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		for _, phase := range summary.Phases {
			outcome := color.GreenString("ok")
			if !phase.Succeeded {
				outcome = color.RedString("failed: " + phase.Error)
			}
			fmt.Fprintf(w, "    %s\t%s\t%s\n", phase.Phase, phase.Duration.Round(time.Millisecond), outcome)
		}
		w.Flush()
	}

	return nil
}

func runClean() error {
	console := logger.NewConsoleLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	for _, dir := range []string{cfg.Paths.DistRoot, cfg.Paths.TempRoot} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dir, err)
		}
	}
	if err := state.NewManager(projectRoot).Cleanup(); err != nil {
		return err
	}

	console.Success("Cleaned deployment outputs and state")
	return nil
}
