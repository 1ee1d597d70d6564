package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vango-dev/bore/internal/server"
	"github.com/vango-dev/bore/pkg/bore"
)

func queryCmd(a *app) *cobra.Command {
	var (
		kind    string
		asJSON  bool
		count   bool
		wait    bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "query <source> <query>",
		Short: "Print the elements of a fixture matching a query",
		Long: `Mount a fixture and print every element matching the query, in
document order, shadow roots included.

The query kind is picked from the text unless --kind is given: text
starting with "/" or "(" is XPath, anything else a CSS selector.

Exits 1 when nothing matches.

Examples:
  bore query page.html 'li.active'
  bore query - '//a[@href]' < page.html
  bore query --kind criteria page.html 'localName=x-card'
  bore query --kind expr page.html 'hasAttr("disabled")'
  bore query --wait --timeout 2s https://example.com/app.html 'x-app span'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := bore.ParseQuery(kind, args[1])
			if err != nil {
				return err
			}
			markup, err := a.loader(cmd).LoadString(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			arena := a.arena()
			defer arena.Close()
			root, err := arena.Mount(markup)
			if err != nil {
				return err
			}
			if wait {
				var opts []bore.WaitOption
				if timeout > 0 {
					opts = append(opts, bore.WithTimeout(timeout))
				}
				if _, err := root.WaitFor(cmd.Context(), bore.HasMatch(q), opts...); err != nil {
					return err
				}
			}

			found, err := root.All(q)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case asJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(map[string]any{
					"count":   len(found),
					"matches": server.Matches(found),
				}); err != nil {
					return err
				}
			case count:
				fmt.Fprintln(out, len(found))
			default:
				tag := color.New(color.FgCyan)
				for _, w := range found {
					fmt.Fprintf(out, "%s %s\n", tag.Sprint(w.Node().NodeName()), w.HTML())
				}
			}

			if len(found) == 0 {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "auto", "Query kind: auto, selector, xpath, criteria or expr")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print matches as JSON")
	cmd.Flags().BoolVar(&count, "count", false, "Print only the number of matches")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait until the query matches")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Bound --wait (default from config)")

	return cmd
}
