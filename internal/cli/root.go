package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	homeDir    string
	outputJSON bool
	verbose    bool
)

// Execute runs the root cobra command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "vmgr",
		Short:         "Install downloaded editor releases into versioned trees",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&homeDir, "home", "", "Path to the vmgr home directory (default $VMGR_HOME or per-user data dir)")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Echo debug logs to stderr")

	cmd.AddCommand(newInstallCmd())
	cmd.AddCommand(newPlatformCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newDoctorCmd())

	return cmd
}
