package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spboyer/tuneval/internal/projectconfig"
	"github.com/spboyer/tuneval/internal/wizard"
	"github.com/spf13/cobra"
)

const gitignoreContent = `# tuneval
data/
results/
.tuneval-cache/
`

func newInitCommand(g *globalOptions) *cobra.Command {
	var (
		yes   bool
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a " + projectconfig.FileName + " config file",
		Long: `Create a project config file.

Runs a short wizard for the cloud project, storage bucket and data source.
Use --yes to write the defaults without prompting.

A .gitignore covering local datasets, results and the prediction cache is
added when the directory has none.

If no directory is specified, the current directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return initCommandE(cmd, dir, yes, force)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Accept defaults without prompting")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

func initCommandE(cmd *cobra.Command, dir string, yes, force bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, projectconfig.FileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}

	cfg := projectconfig.New()
	if !yes {
		if err := wizard.RunConfigWizard(cmd.InOrStdin(), cmd.OutOrStdout(), cfg); err != nil {
			return err
		}
	}

	data, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("rendering config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Project initialized:")                       //nolint:errcheck
	fmt.Fprintf(out, "  %-40s project configuration\n", configPath) //nolint:errcheck

	gitignore := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(gitignore); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(gitignore, []byte(gitignoreContent), 0o644); err != nil {
			return fmt.Errorf("failed to write .gitignore: %w", err)
		}
		fmt.Fprintf(out, "  %-40s ignores datasets, results and cache\n", gitignore) //nolint:errcheck
	}
	return nil
}
