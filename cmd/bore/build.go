package main

import (
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/vango-dev/bore/el"
	"github.com/vango-dev/bore/internal/errors"
	"github.com/vango-dev/bore/pkg/dom"
)

func buildCmd(a *app) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "build <source>",
		Short: "Render a hyperscript tree as HTML",
		Long: `Read a tree written in JSON or YAML and print the HTML it builds.

A node is a string or an array of tag, optional attributes and
children. Attributes follow the configured policy: with "buckets",
keys set properties and literal attributes go in an "attrs" object;
with "prefix", aria-* and data-* keys are attributes too.

Examples:
  bore build card.yaml
  echo '["p", {"id": "x"}, "hi"]' | bore build -
  bore build --config-patch '{"policy":"prefix"}' card.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.loader(cmd).Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			// JSON is YAML, so one conversion covers both.
			data, err = yaml.YAMLToJSON(data)
			if err != nil {
				return errors.New("B050").
					WithDetail("Failed to parse " + args[0] + ":\n" + yaml.FormatError(err, false, true))
			}
			var tree any
			if err := json.Unmarshal(data, &tree); err != nil {
				return errors.New("B050").Wrap(err)
			}

			policy, err := a.cfg.BuilderPolicy()
			if err != nil {
				return err
			}
			arena := a.arena()
			defer arena.Close()
			b := el.New(arena.Document(), el.WithPolicy(policy))
			n, err := b.Tree(tree)
			if err != nil {
				return errors.New("B050").Wrap(err)
			}

			if query == "" {
				fmt.Fprintln(cmd.OutOrStdout(), render(n))
				return nil
			}
			root, err := arena.Mount(n)
			if err != nil {
				return err
			}
			found, err := root.All(query)
			if err != nil {
				return err
			}
			for _, w := range found {
				fmt.Fprintln(cmd.OutOrStdout(), w.HTML())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Print only elements matching this selector")

	return cmd
}

func render(n dom.Node) string {
	switch v := n.(type) {
	case *dom.Element:
		return v.OuterHTML()
	case *dom.Fragment:
		return v.InnerHTML()
	}
	return n.TextContent()
}
