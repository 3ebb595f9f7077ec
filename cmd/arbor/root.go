// arbor provisions isolated per-branch development workspaces backed by
// linked git working trees.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"arbor/internal/config"
	"arbor/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	verbose    bool
	logFormat  string
}

// cfgLoader lives for the whole command invocation; created before any
// command runs and shut down after it finishes.
var cfgLoader *config.Loader

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Per-branch development workspaces on linked git working trees",
	Long: "Arbor creates isolated development workspaces for a (project, branch)\n" +
		"pair: a workspace directory, linked working trees for the project's\n" +
		"repositories, and gathered issue context.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(*cobra.Command, []string) {
		logging.Init(logging.Level(rootFlags.verbose), rootFlags.logFormat)
		cfgLoader = config.NewLoader()
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		cfgLoader.Shutdown()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", defaultConfigPath(), "Path to the arbor configuration file")
	pf.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.Version = version
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "arbor.yaml"
	}
	return filepath.Join(home, ".config", "arbor", "arbor.yaml")
}

// loadConfig loads the configuration through the cached loader.
func loadConfig() (*config.File, error) {
	return cfgLoader.Load(rootFlags.configPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
