package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"vmgr/internal/config"
	"vmgr/internal/paths"
)

var configInitForce bool

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the vmgr configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration in YAML",
		RunE:  runConfigShow,
	}
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE:  runConfigInit,
	}
	cmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing configuration file")
	return cmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}

	data, err := env.cfg.Marshal()
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	if len(data) == 0 || data[len(data)-1] != '\n' {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(homeDir)
	if err != nil {
		return err
	}

	exists, err := paths.FileExists(pp.ConfigFile)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	if exists && !configInitForce {
		return fmt.Errorf("config already exists: %s (use --force to overwrite)", pp.ConfigFile)
	}

	if err := config.Default().Save(pp.ConfigFile); err != nil {
		return err
	}
	if err := pp.EnsureDirs(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", pp.ConfigFile)
	return nil
}
