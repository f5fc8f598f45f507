package main

import (
	"fmt"

	"github.com/phrazzld/tickerwatch/internal/redact"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect client configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := yaml.Marshal(a.cfg)
			if err != nil {
				return fmt.Errorf("failed to encode configuration: %w", err)
			}
			// base_url may embed credentials
			_, err = fmt.Fprint(cmd.OutOrStdout(), redact.String(string(out)))
			return err
		},
	})
	return cmd
}
