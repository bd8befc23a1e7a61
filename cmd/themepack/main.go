package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/provide-io/themepack/go/themepack/internal/config"
	"github.com/provide-io/themepack/go/themepack/internal/themedir"
	"github.com/provide-io/themepack/go/themepack/pkg"
	"github.com/provide-io/themepack/go/themepack/pkg/logging"
)

const version = "0.1.0"

// Exit codes, one per failure category.
const (
	exitOK = iota
	exitOther
	exitInvalidArgument
	exitMemory
	exitIncompatible
	exitCorrupt
	exitInvalidArchive
	exitOperational
)

var (
	configPath string
	logLevel   string
	themeDir   string
	jsonLog    bool

	cfg    config.Config
	logger hclog.Logger
)

func getBuildTimestamp() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.time" {
				if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
					return t.UTC().Format(time.RFC3339)
				}
			}
		}
	}
	if exePath, err := os.Executable(); err == nil {
		if stat, err := os.Stat(exePath); err == nil {
			return stat.ModTime().UTC().Format(time.RFC3339)
		}
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "themepack",
		Short:         "Pack, convert and verify theme assets",
		Long:          `Convert a theme between its components directory, image cache, Go source and package forms.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(configPath); err != nil {
				return usageError{err}
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("json-log") {
				cfg.JSONLog = jsonLog
			}
			if cmd.Flags().Changed("theme-dir") {
				cfg.ThemeDir = themeDir
				if err := cfg.Validate(); err != nil {
					return usageError{err}
				}
			}
			logger = logging.NewLoggerWithFormat("themepack", cfg.LogLevel, cfg.JSONLog, nil)
			return nil
		},
	}

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to themepack.toml")
	flags.StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.StringVar(&themeDir, "theme-dir", "", "Theme directory (defaults to the per-user theme directory)")
	flags.BoolVar(&jsonLog, "json-log", false, "Log as JSON")

	root.AddCommand(
		newSaveCacheCmd(),
		newLoadCacheCmd(),
		newImageMapCmd(),
		newSaveComponentsCmd(),
		newLoadComponentsCmd(),
		newEmitSourceCmd(),
		newPackCmd(),
		newVerifyCmd(),
		newImportSVGCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "themepack %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Built: %s\n", getBuildTimestamp())
		},
	}
}

// usageError marks bad flags or configuration.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var usage usageError
	if errors.As(err, &usage) {
		return exitInvalidArgument
	}
	switch pkg.Classify(err) {
	case pkg.CategoryNone:
		return exitOK
	case pkg.CategoryInvalidArgument:
		return exitInvalidArgument
	case pkg.CategoryMemory:
		return exitMemory
	case pkg.CategoryIncompatible:
		return exitIncompatible
	case pkg.CategoryCorrupt:
		return exitCorrupt
	case pkg.CategoryInvalidArchive:
		return exitInvalidArchive
	case pkg.CategoryOperational:
		return exitOperational
	default:
		return exitOther
	}
}

func paths() themedir.Paths {
	return themedir.At(cfg.ThemeDir)
}

func main() {
	// Handle --version or -V before cobra parses other flags
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-V") {
		fmt.Printf("themepack %s\n", version)
		fmt.Printf("Built: %s\n", getBuildTimestamp())
		os.Exit(0)
	}

	if err := newRootCmd().Execute(); err != nil {
		var usage usageError
		if errors.As(err, &usage) {
			fmt.Fprintln(os.Stderr, "themepack:", err)
		} else {
			fmt.Fprintln(os.Stderr, "themepack:", pkg.Describe(err))
		}
		os.Exit(exitCode(err))
	}
}
