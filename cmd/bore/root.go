package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/vango-dev/bore/internal/config"
	"github.com/vango-dev/bore/internal/errors"
	"github.com/vango-dev/bore/internal/source"
	"github.com/vango-dev/bore/pkg/bore"
)

// app holds state shared by every command, filled in before a command
// runs.
type app struct {
	configDir string
	patch     string
	verbose   bool
	noColor   bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "bore",
		Short: "Query a live DOM from the command line",
		Long: `bore mounts HTML fixtures into a live DOM and queries them.

Queries are CSS selectors, XPath expressions, criteria or expressions,
and they see inside open shadow roots. Fixtures are read from files,
stdin, http(s) URLs or s3://bucket/key.

Configuration is read from bore.json or bore.yaml in --config, then
BORE_* environment variables, then --config-patch.

Exit status is 0 on success, 1 when a query matches nothing or a diff
finds differences, and 2 on error.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configDir, "config", "c", ".", "Directory holding bore.json or bore.yaml")
	flags.StringVar(&a.patch, "config-patch", "", "JSON merge patch applied to the config")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Log at debug level")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		queryCmd(a),
		diffCmd(a),
		buildCmd(a),
		serveCmd(a),
		watchCmd(a),
		configCmd(a),
		explainCmd(),
		versionCmd(),
	)
	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	if a.noColor || os.Getenv("NO_COLOR") != "" || !isTerminal(cmd.ErrOrStderr()) {
		errors.DisableColors()
	}
	if a.noColor || !isTerminal(cmd.OutOrStdout()) {
		color.NoColor = true
	}

	cfg, err := config.Load(a.configDir)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}
	if err := cfg.ApplyPatch([]byte(a.patch)); err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = cfg.NewLogger(cmd.ErrOrStderr())
	a.logger.Debug("config loaded", "path", cfg.Path())
	return nil
}

func (a *app) loader(cmd *cobra.Command) *source.Loader {
	return source.FromConfig(a.cfg.Source,
		source.WithStdin(cmd.InOrStdin()),
		source.WithLogger(a.logger),
	)
}

func (a *app) arena() *bore.Arena {
	return bore.New(append([]bore.Option{bore.WithLogger(a.logger)}, a.cfg.ArenaOptions()...)...)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
