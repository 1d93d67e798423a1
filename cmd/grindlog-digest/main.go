package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"grindlog/internal/appinfo"
	"grindlog/internal/digest"
)

// Exit codes: 1 for runtime failures, 2 for configuration problems.
const (
	exitFailure = 1
	exitConfig  = 2
)

type rootFlags struct {
	configPath string
	envPath    string
}

func main() {
	os.Exit(execute(os.Args[1:]))
}

func execute(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var cfgErr *digest.ConfigurationError
		if errors.As(err, &cfgErr) {
			return exitConfig
		}
		return exitFailure
	}
	return 0
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "grindlog-digest",
		Short:         "Daily solved-problem digests for GrindLog",
		Version:       appinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "config.json", "path to config.json")
	root.PersistentFlags().StringVar(&flags.envPath, "env-file", ".env", "dotenv file loaded before the config")

	root.AddCommand(
		initCmd(flags),
		serveCmd(flags),
		runCmd(flags),
		triggerCmd(flags),
		markerCmd(flags),
		recipientsCmd(flags),
		runsCmd(flags),
	)
	return root
}
