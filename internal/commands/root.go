package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/balkashynov/checkmaster/internal/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// NewRootCmd builds the full command tree
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "checkmaster",
		Short: "Checklist templates and sessions in the terminal",
		Long: `checkmaster keeps reusable checklist templates and the sessions you run from them.
Notes are saved as you type, items can be reordered and checked off, and finished
sessions can be exported as text, CSV or Excel. Data lives in a local SQLite file
or on a checkmaster sync server.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          withApp(flags, runUI),
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/.checkmaster/config.yaml)")
	pf.StringVar(&flags.backend, "backend", "", "storage backend: local|remote (overrides config)")
	pf.BoolVar(&flags.debug, "debug", false, "log debug output to stderr")

	rootCmd.AddCommand(
		newUICmd(flags),
		newTemplateCmd(flags),
		newSessionCmd(flags),
		newExportCmd(flags),
		newBackupCmd(flags),
		newRestoreCmd(flags),
		newSearchCmd(flags),
		newServeCmd(flags),
		newVersionCmd(),
	)
	rootCmd.SetHelpCommand(newHelpCmd())
	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

func newUICmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Open the interactive checklist UI",
		Args:  cobra.NoArgs,
		RunE:  withApp(flags, runUI),
	}
}

func runUI(cmd *cobra.Command, args []string, a *app) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := a.live(ctx); err != nil {
		return err
	}

	lang, err := a.lang("")
	if err != nil {
		return err
	}
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}

	relay := &tui.Relay{}
	eng := a.newEngine(relay)
	defer eng.Close(context.Background())

	return tui.Run(tui.Options{
		Context:    ctx,
		Port:       a.port,
		Subscriber: a.sub,
		Engine:     eng,
		Relay:      relay,
		Logger:     a.logger.Named("tui"),
		Lang:       lang,
		ExportDir:  dir,
	})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("checkmaster %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
