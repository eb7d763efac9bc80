// Package cli wires configuration, stores, channels and the escalation
// engine into the guardian commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RevCBH/guardian/internal/config"
)

// VersionInfo is stamped at build time
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

// App represents the CLI application with all wired dependencies
type App struct {
	// Root command
	rootCmd *cobra.Command

	// Global flags
	configPath string
	verbose    bool

	// Version information
	versionInfo VersionInfo
}

// New creates a new CLI application
func New() *App {
	app := &App{}
	app.setupRootCmd()
	return app
}

// Execute runs the CLI application
func (a *App) Execute() error {
	return a.rootCmd.Execute()
}

// SetVersion sets the version string for the version command
func (a *App) SetVersion(version, commit, date string) {
	a.versionInfo = VersionInfo{Version: version, Commit: commit, Date: date}
}

// Root returns the root command, for tests.
func (a *App) Root() *cobra.Command {
	return a.rootCmd
}

// setupRootCmd configures the root Cobra command
func (a *App) setupRootCmd() {
	a.rootCmd = &cobra.Command{
		Use:   "guardian",
		Short: "Emergency escalation for trusted contacts",
		Long: `Guardian alerts your trusted contacts when you are in danger, sharing
your message, location, recent audio and a photo, and escalates tier by
tier until you mark yourself safe.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	a.rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "",
		"Config file (default ./"+config.FileName+")")
	a.rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false,
		"Verbose output")

	a.rootCmd.AddCommand(
		NewServeCmd(a),
		NewAlertCmd(a),
		NewContactsCmd(a),
		NewVersionCmd(a),
	)
}

// loadConfig reads the --config file, or .guardian.yaml in the working
// directory when it exists.
func (a *App) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadConfigFile(a.configPath)
	} else {
		var wd string
		wd, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		cfg, err = config.LoadConfig(wd)
	}
	if err != nil {
		return nil, err
	}

	if a.verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}
