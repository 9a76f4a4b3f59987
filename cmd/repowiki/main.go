// cmd/repowiki/main.go
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/julianshen/repowiki/internal/config"
	"github.com/julianshen/repowiki/internal/runner"
	"github.com/julianshen/repowiki/internal/store"

	// Register providers via init() side effects.
	_ "github.com/julianshen/repowiki/internal/provider/openai"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	configPath   string
	envFile      string
	languageFlag string
	verbose      bool
)

func versionString() string {
	return fmt.Sprintf("repowiki %s (commit: %s, built: %s)", version, commit, date)
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "repowiki",
		Short: "Generate documentation wikis for code repositories",
		Long: `repowiki asks a language model to plan a wiki for a repository from its
file tree and README, then generates every page of it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before resolving secrets")
	rootCmd.PersistentFlags().StringVar(&languageFlag, "language", "", "wiki language code (en, ja, zh, es, kr, vi)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline activity to stderr")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString())
		},
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(siteCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(runsCmd())
	return rootCmd
}

// loadConfig loads the dotenv file and the config file and applies the
// global flag overrides.
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	cfgPath := configPath
	if cfgPath == "" {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		cfgPath = filepath.Join(dir, "config.toml")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if languageFlag != "" {
		cfg.Generation.Language = languageFlag
	}
	return cfg, nil
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "repowiki"), nil
}

// openStore opens the run cache at the configured path, creating its
// directory when needed.
func openStore(cfg *config.Config) (*store.Store, error) {
	path := cfg.Store.Path
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "repowiki.db")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}
	s, err := store.NewStore(path)
	if err != nil {
		return nil, fmt.Errorf("opening run store: %w", err)
	}
	return s, nil
}

// newLogger returns the logger handed to pipeline components. Without
// --verbose their log lines are dropped.
func newLogger(w io.Writer) *log.Logger {
	if !verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(w, "", log.LstdFlags)
}

// stdinIfPiped returns os.Stdin when it is not a terminal.
func stdinIfPiped() io.Reader {
	if stat, err := os.Stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
		return os.Stdin
	}
	return nil
}
