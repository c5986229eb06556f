package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spboyer/irtcal/internal/projectconfig"
	"github.com/spboyer/irtcal/internal/wizard"
)

func newInitCommand() *cobra.Command {
	var (
		interactive bool
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a .irtcal.yaml with the default settings",
		Long: `Write a .irtcal.yaml project config holding every estimation and report
setting at its default value.

Use --interactive to run a guided wizard that asks for the common settings.

If no directory is specified, the current directory is used. An existing
config is left alone unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return initCommandE(cmd, dir, interactive, force)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run the guided configuration wizard")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing .irtcal.yaml")

	return cmd
}

func initCommandE(cmd *cobra.Command, dir string, interactive, force bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, projectconfig.FileName)
	if _, err := os.Stat(path); err == nil && !force {
		fmt.Fprintf(cmd.OutOrStdout(), "%s already exists (use --force to overwrite)\n", path) //nolint:errcheck
		return nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	cfg := projectconfig.New()
	if interactive {
		var err error
		if cfg, err = wizard.RunInitWizard(cmd.InOrStdin(), cmd.OutOrStdout(), cfg); err != nil {
			return err
		}
	}

	if err := projectconfig.Write(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path) //nolint:errcheck
	return nil
}
