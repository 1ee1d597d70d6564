package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/bore/internal/errors"
)

func explainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain [code]",
		Short: "Describe an error code",
		Long: `Describe an error code such as B001, or list every code when none
is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, code := range errors.GetAllCodes() {
					t, _ := errors.GetTemplate(code)
					fmt.Fprintf(out, "%s  %-7s %s\n", code, t.Category, t.Message)
				}
				return nil
			}

			code := strings.ToUpper(args[0])
			t, ok := errors.GetTemplate(code)
			if !ok {
				return errors.New("B050").
					WithDetail("unknown error code " + args[0]).
					WithSuggestion("Run bore explain to list the codes")
			}
			fmt.Fprintf(out, "%s: %s\n", code, t.Message)
			fmt.Fprintf(out, "Category: %s\n", t.Category)
			if t.Detail != "" {
				fmt.Fprintf(out, "\n%s\n", t.Detail)
			}
			if t.DocURL != "" {
				fmt.Fprintf(out, "\nSee %s\n", t.DocURL)
			}
			return nil
		},
	}
}
