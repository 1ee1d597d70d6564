package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vango-dev/bore/internal/errors"
	"github.com/vango-dev/bore/internal/watch"
	"github.com/vango-dev/bore/pkg/bore"
)

func watchCmd(a *app) *cobra.Command {
	var (
		kind     string
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <file> [query]",
		Short: "Re-run a query whenever a fixture file changes",
		Long: `Mount a fixture file and print the query's matches, then do it
again every time the file is saved. Without a query only the mounted
root is reported.

Examples:
  bore watch page.html 'li.active'
  bore watch --kind xpath page.html '//x-card'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var q bore.Query
			if len(args) == 2 {
				var err error
				if q, err = bore.ParseQuery(kind, args[1]); err != nil {
					return err
				}
			}

			w := watch.New(watch.Config{
				Path:         args[0],
				Query:        q,
				Debounce:     debounce,
				ArenaOptions: a.cfg.ArenaOptions(),
				Loader:       a.loader(cmd),
				Logger:       a.logger,
			})
			out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
			stamp := color.New(color.FgHiBlack)
			w.OnResult(func(r watch.Result) {
				fmt.Fprint(out, stamp.Sprintf("[%s] ", time.Now().Format("15:04:05")))
				if r.Err != nil {
					fmt.Fprintln(out, "error")
					errors.Fprint(errOut, r.Err)
					return
				}
				if q == nil {
					fmt.Fprintf(out, "mounted %s\n", r.Root.Node().NodeName())
					return
				}
				fmt.Fprintf(out, "%d matches\n", len(r.Matches))
				for _, m := range r.Matches {
					fmt.Fprintf(out, "  %s\n", m.HTML())
				}
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return w.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "auto", "Query kind: auto, selector, xpath, criteria or expr")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before re-running")

	return cmd
}
