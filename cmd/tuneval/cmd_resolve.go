package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResolveCommand(g *globalOptions) *cobra.Command {
	var (
		baseModel string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the most recent tuned model for the base model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if baseModel != "" {
				cfg.BaseModel = baseModel
			}

			p, closeAll, err := g.newPipeline(cmd.Context(), cfg, needs{service: true})
			if err != nil {
				return err
			}
			defer closeAll()

			model, err := p.Resolve(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, model)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Model:    %s\n", model.Name) //nolint:errcheck
			if model.DisplayName != "" {
				fmt.Fprintf(out, "Name:     %s\n", model.DisplayName) //nolint:errcheck
			}
			if model.Endpoint != "" {
				fmt.Fprintf(out, "Endpoint: %s\n", model.Endpoint) //nolint:errcheck
			}
			if !model.CreateTime.IsZero() {
				fmt.Fprintf(out, "Created:  %s\n", model.CreateTime.Format("2006-01-02 15:04:05 MST")) //nolint:errcheck
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseModel, "base-model", "", "Base model the tuned model was derived from")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the model as JSON")

	return cmd
}
