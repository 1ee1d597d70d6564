package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/bore/internal/config"
	"github.com/vango-dev/bore/internal/errors"
)

func configCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the bore config file",
	}
	cmd.AddCommand(configInitCmd(a), configShowCmd(a))
	return cmd
}

func configInitCmd(a *app) *cobra.Command {
	var (
		format string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Long: `Write bore.yaml (or bore.json with --format json) to the --config
directory. Values from the environment and --config-patch are
included.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			switch format {
			case "yaml":
				name = "bore.yaml"
			case "json":
				name = "bore.json"
			default:
				return errors.New("B050").WithDetail(fmt.Sprintf("format %q must be yaml or json", format))
			}

			path := filepath.Join(a.configDir, name)
			if _, err := os.Stat(path); err == nil && !force {
				return errors.New("B050").
					WithDetail(path + " already exists").
					WithSuggestion("Use --force to overwrite it")
			}
			if err := a.cfg.SaveTo(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "File format: yaml or json")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}

func configShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Path string `json:"path,omitempty"`
				*config.Config
			}{a.cfg.Path(), a.cfg})
		},
	}
}
