package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vango-dev/bore/pkg/domdiff"
)

func diffCmd(a *app) *cobra.Command {
	var children bool

	cmd := &cobra.Command{
		Use:   "diff <a> <b>",
		Short: "Compare two fixtures as DOM trees",
		Long: `Parse two fixtures and print the patches that turn the first into
the second, one per line. Attribute order and serialization details
are ignored.

By default the first element of each fixture is compared. With
--children the top-level nodes are compared as lists, so the root
elements may differ.

Exits 1 when the fixtures differ.

Examples:
  bore diff before.html after.html
  bore diff --children - golden.html < out.html`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := a.loader(cmd)
			src, err := loader.LoadString(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			dst, err := loader.LoadString(cmd.Context(), args[1])
			if err != nil {
				return err
			}

			patches, err := domdiff.DiffHTML(src, dst, !children)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range patches {
				fmt.Fprintln(out, opColor(p.Op).Sprint(p.String()))
			}
			if len(patches) > 0 {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&children, "children", false, "Compare top-level nodes instead of root elements")

	return cmd
}

func opColor(op domdiff.Op) *color.Color {
	switch op {
	case domdiff.OpInsertNode:
		return color.New(color.FgGreen)
	case domdiff.OpRemoveNode:
		return color.New(color.FgRed)
	case domdiff.OpReplaceNode:
		return color.New(color.FgMagenta)
	}
	return color.New(color.FgYellow)
}
